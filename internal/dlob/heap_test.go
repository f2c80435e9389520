package dlob

import (
	"container/heap"
	"math/big"
	"testing"

	"github.com/gagliardetto/solana-go"
)

func ro(price, slot int64, orderID uint32) *RestingOrder {
	return &RestingOrder{
		Owner:          solana.NewWallet().PublicKey(),
		Order:          &Order{Slot: uint64(slot), OrderID: orderID},
		EffectivePrice: big.NewInt(price),
	}
}

func TestBidHeapOrdersHighestFirst(t *testing.T) {
	h := &bidHeap{}
	heap.Init(h)
	heap.Push(h, ro(100, 1, 1))
	heap.Push(h, ro(300, 1, 2))
	heap.Push(h, ro(200, 1, 3))

	out := drainBidsSorted(h)
	want := []int64{300, 200, 100}
	for i, w := range want {
		if out[i].EffectivePrice.Int64() != w {
			t.Fatalf("position %d: expected %d, got %s", i, w, out[i].EffectivePrice)
		}
	}
}

func TestAskHeapOrdersLowestFirst(t *testing.T) {
	h := &askHeap{}
	heap.Init(h)
	heap.Push(h, ro(300, 1, 1))
	heap.Push(h, ro(100, 1, 2))
	heap.Push(h, ro(200, 1, 3))

	out := drainAsksSorted(h)
	want := []int64{100, 200, 300}
	for i, w := range want {
		if out[i].EffectivePrice.Int64() != w {
			t.Fatalf("position %d: expected %d, got %s", i, w, out[i].EffectivePrice)
		}
	}
}

func TestBidHeapTiebreakBySlotThenOrderID(t *testing.T) {
	h := &bidHeap{}
	heap.Init(h)
	heap.Push(h, ro(100, 5, 2))
	heap.Push(h, ro(100, 5, 1))
	heap.Push(h, ro(100, 3, 9))

	out := drainBidsSorted(h)
	// slot 3 comes before slot 5 regardless of orderId; within slot 5,
	// lower orderId first.
	if out[0].Order.Slot != 3 {
		t.Fatalf("expected slot 3 first, got %d", out[0].Order.Slot)
	}
	if out[1].Order.OrderID != 1 || out[2].Order.OrderID != 2 {
		t.Fatalf("expected orderId 1 then 2 within slot 5, got %d then %d", out[1].Order.OrderID, out[2].Order.OrderID)
	}
}
