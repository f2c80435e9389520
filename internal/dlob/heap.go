package dlob

import (
	"container/heap"
	"math/big"

	"github.com/gagliardetto/solana-go"
)

// RestingOrder is one order deposited into a BookBuilder heap for a given
// tick, carrying the effective price computed for slot S (spec.md §4.2
// step 3) plus the stable tiebreaker fields.
type RestingOrder struct {
	Owner          solana.PublicKey // the UserAccount pubkey the order lives on
	Order          *Order
	EffectivePrice *big.Int
}

// lessTiebreak implements the shared tiebreak: ascending slot, then ascending
// orderId (spec.md §4.2 step 3).
func (r *RestingOrder) lessTiebreak(o *RestingOrder) bool {
	if r.Order.Slot != o.Order.Slot {
		return r.Order.Slot < o.Order.Slot
	}
	return r.Order.OrderID < o.Order.OrderID
}

// bidHeap is a max-heap by effective price (highest first), tiebroken by
// ascending slot/orderId. Adapted from the teacher's MaxPriceHeap, which
// heaped bare prices for O(1) best-bid lookups in a live matching engine;
// here it heaps whole RestingOrders since BookBuilder rebuilds the book
// wholesale every tick rather than incrementally matching it.
type bidHeap []*RestingOrder

func (h bidHeap) Len() int { return len(h) }
func (h bidHeap) Less(i, j int) bool {
	c := h[i].EffectivePrice.Cmp(h[j].EffectivePrice)
	if c != 0 {
		return c > 0 // higher price first
	}
	return h[i].lessTiebreak(h[j])
}
func (h bidHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *bidHeap) Push(x interface{}) {
	*h = append(*h, x.(*RestingOrder))
}
func (h *bidHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// askHeap is a min-heap by effective price (lowest first), same tiebreak.
type askHeap []*RestingOrder

func (h askHeap) Len() int { return len(h) }
func (h askHeap) Less(i, j int) bool {
	c := h[i].EffectivePrice.Cmp(h[j].EffectivePrice)
	if c != 0 {
		return c < 0 // lower price first
	}
	return h[i].lessTiebreak(h[j])
}
func (h askHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *askHeap) Push(x interface{}) {
	*h = append(*h, x.(*RestingOrder))
}
func (h *askHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// drainBidsSorted and drainAsksSorted pop every element off their heap in
// priority order, giving the book side as a plain, fully sorted slice.
// Implementations that need early-break semantics (TopMakers stopping
// after N makers, per the Design Notes) can instead Pop one at a time;
// BookBuilder drains fully because a market's order count is bounded (a
// few thousand).
func drainBidsSorted(h *bidHeap) []*RestingOrder {
	out := make([]*RestingOrder, 0, h.Len())
	for h.Len() > 0 {
		out = append(out, heap.Pop(h).(*RestingOrder))
	}
	return out
}

func drainAsksSorted(h *askHeap) []*RestingOrder {
	out := make([]*RestingOrder, 0, h.Len())
	for h.Len() > 0 {
		out = append(out, heap.Pop(h).(*RestingOrder))
	}
	return out
}
