package dlob

import (
	"container/heap"
	"context"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/moonape1226/dlob-server/internal/market"
)

// TickInterval is the default BookBuilder tick period (spec.md §4.2).
const TickInterval = 1000 * time.Millisecond

// Snapshot is one market's fully sorted two-sided book at a given slot
// (spec.md §3 "DLOB Snapshot"). Once published it is immutable; a new
// tick produces a brand new Snapshot rather than mutating this one.
type Snapshot struct {
	Slot uint64
	Bids []*RestingOrder // strictly non-increasing effective price
	Asks []*RestingOrder // strictly non-decreasing effective price
}

// BookBuilder rebuilds the sorted per-market book on every tick from
// OrderIndex, enforcing the effective-price and auction rules of
// spec.md §4.2. Adapted from the teacher's orderbook.go/heap.go, which
// heap the book incrementally as a live matching engine; here the heap
// is rebuilt wholesale every tick and the previous Snapshot is swapped
// for the new one atomically (copy-on-publish, spec.md §5).
type BookBuilder struct {
	index   *OrderIndex
	slots   SlotProvider
	oracle  OracleProvider
	markets *market.Registry
	logger  *zap.SugaredLogger

	mu        sync.RWMutex
	snapshots map[market.Key]*Snapshot

	nowFn func() time.Time
}

// NewBookBuilder wires a BookBuilder against its dependencies. markets
// must already be fully populated (markets are static per process,
// spec.md §3).
func NewBookBuilder(index *OrderIndex, slots SlotProvider, oracle OracleProvider, markets *market.Registry, logger *zap.SugaredLogger) *BookBuilder {
	return &BookBuilder{
		index:     index,
		slots:     slots,
		oracle:    oracle,
		markets:   markets,
		logger:    logger,
		snapshots: make(map[market.Key]*Snapshot),
		nowFn:     time.Now,
	}
}

// Run ticks every interval until ctx is cancelled. A panic or error
// within a single tick is trapped by Tick itself so the previous
// snapshot stays authoritative (spec.md §4.2 Failure, §7).
func (b *BookBuilder) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = TickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.Tick()
		}
	}
}

// Tick performs one rebuild pass across every registered market
// (spec.md §4.2 steps 1-4). At most one Tick runs at a time per
// BookBuilder; callers driving Run never overlap ticks since the ticker
// channel only fires again once Tick has returned.
func (b *BookBuilder) Tick() {
	defer func() {
		// A single malformed order never reaches here (handled inline in
		// buildMarket); this recover protects against an unexpected panic
		// so the whole tick failure is swallowed per spec.md §7, leaving
		// the prior snapshots authoritative.
		if r := recover(); r != nil && b.logger != nil {
			b.logger.Errorw("book_tick_panic", "recover", r)
		}
	}()

	slot := b.slots.Current()
	now := b.nowFn()

	entries := b.index.Iterate()

	for _, m := range b.markets.All() {
		bids, asks := b.buildMarket(m, slot, now, entries)
		b.publish(m.Key, &Snapshot{Slot: slot, Bids: bids, Asks: asks})
	}
}

func (b *BookBuilder) buildMarket(m *market.Market, slot uint64, now time.Time, entries []IndexEntry) ([]*RestingOrder, []*RestingOrder) {
	bidH := &bidHeap{}
	askH := &askHeap{}
	heap.Init(bidH)
	heap.Init(askH)

	oracleQuote, haveOracle := b.oracle.Get(m.Key.Index)

	for _, entry := range entries {
		for i := range entry.Account.Orders {
			o := &entry.Account.Orders[i]
			if o.Status == StatusInit {
				continue
			}
			if o.MarketType != m.Key.Type || o.MarketIndex != m.Key.Index {
				continue
			}
			if o.MaxTs != 0 && o.MaxTs < now.Unix() {
				continue
			}
			if o.Price == nil || (o.AuctionDuration > 0 && (o.AuctionStartPrice == nil || o.AuctionEndPrice == nil)) {
				if b.logger != nil {
					b.logger.Warnw("book_order_malformed_skipped", "owner", entry.PubKey.String(), "orderId", o.OrderID)
				}
				continue
			}

			price, ok := b.effectivePrice(o, slot, oracleQuote, haveOracle)
			if !ok {
				continue
			}

			resting := &RestingOrder{Owner: entry.PubKey, Order: o, EffectivePrice: price}
			if o.Direction.IsBid() {
				heap.Push(bidH, resting)
			} else {
				heap.Push(askH, resting)
			}
		}
	}

	return drainBidsSorted(bidH), drainAsksSorted(askH)
}

// effectivePrice computes an order's effective price at slot S
// (spec.md §4.2 step 3). ok is false when the order must be excluded
// from the resting book entirely (an unsatisfied trigger order).
func (b *BookBuilder) effectivePrice(o *Order, slot uint64, oracle OracleQuote, haveOracle bool) (*big.Int, bool) {
	if o.OrderType == OrderTypeTriggerLimit || o.OrderType == OrderTypeTriggerMarket {
		if !haveOracle || !triggerSatisfied(o, oracle.Price) {
			return nil, false
		}
	}

	if inAuction(o, slot) {
		return auctionPrice(o, slot), true
	}

	price := new(big.Int).Set(o.Price)
	if o.OrderType == OrderTypeOracle && haveOracle && o.OraclePriceOffset != nil {
		price.Add(oracle.Price, o.OraclePriceOffset)
	}
	return price, true
}

func inAuction(o *Order, slot uint64) bool {
	if o.AuctionDuration == 0 {
		return false
	}
	elapsed := slot - o.Slot
	if slot < o.Slot {
		elapsed = 0
	}
	return elapsed < uint64(o.AuctionDuration)
}

// auctionPrice linearly interpolates between AuctionStartPrice and
// AuctionEndPrice by fraction (S - order.slot) / auctionDuration
// (spec.md §4.2 step 3, scenario S3).
func auctionPrice(o *Order, slot uint64) *big.Int {
	elapsed := int64(0)
	if slot > o.Slot {
		elapsed = int64(slot - o.Slot)
	}
	duration := int64(o.AuctionDuration)

	start := o.AuctionStartPrice
	end := o.AuctionEndPrice
	// price = start + (end - start) * elapsed / duration
	delta := new(big.Int).Sub(end, start)
	delta.Mul(delta, big.NewInt(elapsed))
	delta.Quo(delta, big.NewInt(duration))
	return new(big.Int).Add(start, delta)
}

func triggerSatisfied(o *Order, oraclePrice *big.Int) bool {
	if o.TriggerPrice == nil || oraclePrice == nil {
		return false
	}
	switch o.TriggerCondition {
	case TriggerAbove:
		return oraclePrice.Cmp(o.TriggerPrice) > 0
	case TriggerBelow:
		return oraclePrice.Cmp(o.TriggerPrice) < 0
	default:
		return false
	}
}

// publish atomically swaps in a market's new snapshot (spec.md §4.2
// step 4, §5 "atomic from the reader's perspective").
func (b *BookBuilder) publish(key market.Key, snap *Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshots[key] = snap
}

// Snapshot returns the most recently published snapshot for a market,
// or nil if none has been published yet.
func (b *BookBuilder) Snapshot(key market.Key) *Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshots[key]
}

// RestingLimitBids returns only bids eligible as makers: past their
// auction window and strictly on the passive side of the oracle price
// (spec.md §4.2 "Resting-only semantics for makers").
func (b *BookBuilder) RestingLimitBids(key market.Key) []*RestingOrder {
	snap := b.Snapshot(key)
	if snap == nil {
		return nil
	}
	oracleQuote, haveOracle := b.oracle.Get(key.Index)
	return filterRestingLimit(snap.Bids, snap.Slot, oracleQuote, haveOracle, true)
}

// RestingLimitAsks is the ask-side counterpart of RestingLimitBids.
func (b *BookBuilder) RestingLimitAsks(key market.Key) []*RestingOrder {
	snap := b.Snapshot(key)
	if snap == nil {
		return nil
	}
	oracleQuote, haveOracle := b.oracle.Get(key.Index)
	return filterRestingLimit(snap.Asks, snap.Slot, oracleQuote, haveOracle, false)
}

func filterRestingLimit(orders []*RestingOrder, slot uint64, oracle OracleQuote, haveOracle bool, isBid bool) []*RestingOrder {
	out := make([]*RestingOrder, 0, len(orders))
	for _, r := range orders {
		if inAuction(r.Order, slot) {
			continue
		}
		if haveOracle && oracle.Price != nil {
			cmp := r.EffectivePrice.Cmp(oracle.Price)
			if isBid && cmp > 0 {
				continue // bid above oracle is not passive
			}
			if !isBid && cmp < 0 {
				continue // ask below oracle is not passive
			}
		}
		out = append(out, r)
	}
	return out
}
