package dlob

import (
	"math/big"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/moonape1226/dlob-server/internal/market"
)

type fixedSlot uint64

func (f fixedSlot) Current() uint64 { return uint64(f) }

type fixedOracle struct {
	quote OracleQuote
	have  bool
}

func (f fixedOracle) Get(marketIndex uint16) (OracleQuote, bool) { return f.quote, f.have }

func newTestMarket(t *testing.T) (*market.Registry, market.Key) {
	t.Helper()
	reg := market.NewRegistry()
	key := market.Key{Type: market.Perp, Index: 0}
	if err := reg.Register(&market.Market{Key: key, Name: "SOL-PERP", BaseAsset: "SOL", QuoteAsset: "USDC"}); err != nil {
		t.Fatalf("register market: %v", err)
	}
	return reg, key
}

func bigp(v int64) *big.Int { return big.NewInt(v) }

// S1: empty OrderIndex produces an empty, non-nil book for every market.
func TestBookBuilderEmptyBook(t *testing.T) {
	reg, key := newTestMarket(t)
	idx := NewOrderIndex()
	bb := NewBookBuilder(idx, fixedSlot(100), fixedOracle{}, reg, nil)

	bb.Tick()

	snap := bb.Snapshot(key)
	if snap == nil {
		t.Fatal("expected a snapshot to have been published")
	}
	if len(snap.Bids) != 0 || len(snap.Asks) != 0 {
		t.Fatalf("expected empty book, got %d bids, %d asks", len(snap.Bids), len(snap.Asks))
	}
}

// S2: a single resting limit bid appears verbatim.
func TestBookBuilderSingleRestingBid(t *testing.T) {
	reg, key := newTestMarket(t)
	idx := NewOrderIndex()

	owner := solana.NewWallet().PublicKey()
	var acc UserAccount
	acc.PubKey = owner
	acc.Authority = solana.NewWallet().PublicKey()
	acc.Orders[0] = Order{
		OrderID:         1,
		MarketType:      market.Perp,
		MarketIndex:     0,
		Status:          StatusOpen,
		OrderType:       OrderTypeLimit,
		Direction:       Long,
		Price:           bigp(100_000_000),
		BaseAssetAmount: bigp(5_000_000_000),
		BaseAssetAmountFilled: bigp(0),
		Slot:            10,
	}
	idx.Upsert(owner, &acc)

	bb := NewBookBuilder(idx, fixedSlot(100), fixedOracle{}, reg, nil)
	bb.Tick()

	snap := bb.Snapshot(key)
	if len(snap.Bids) != 1 {
		t.Fatalf("expected 1 bid, got %d", len(snap.Bids))
	}
	if len(snap.Asks) != 0 {
		t.Fatalf("expected 0 asks, got %d", len(snap.Asks))
	}
	if snap.Bids[0].EffectivePrice.Cmp(bigp(100_000_000)) != 0 {
		t.Fatalf("expected price 100000000, got %s", snap.Bids[0].EffectivePrice)
	}
}

// S3: an order mid-auction prices at the linear interpolation between
// AuctionStartPrice and AuctionEndPrice.
func TestBookBuilderAuctionInterpolation(t *testing.T) {
	reg, key := newTestMarket(t)
	idx := NewOrderIndex()

	owner := solana.NewWallet().PublicKey()
	var acc UserAccount
	acc.PubKey = owner
	acc.Orders[0] = Order{
		OrderID:           1,
		MarketType:        market.Perp,
		MarketIndex:       0,
		Status:            StatusOpen,
		OrderType:         OrderTypeLimit,
		Direction:         Short,
		Price:             bigp(999_999_999), // ignored while in auction
		BaseAssetAmount:   bigp(1_000_000_000),
		BaseAssetAmountFilled: bigp(0),
		Slot:              100,
		AuctionStartPrice: bigp(100_000_000),
		AuctionEndPrice:   bigp(200_000_000),
		AuctionDuration:   10,
	}
	idx.Upsert(owner, &acc)

	// Halfway through the auction window: slot 105 of [100, 110).
	bb := NewBookBuilder(idx, fixedSlot(105), fixedOracle{}, reg, nil)
	bb.Tick()

	snap := bb.Snapshot(key)
	if len(snap.Asks) != 1 {
		t.Fatalf("expected 1 ask, got %d", len(snap.Asks))
	}
	want := bigp(150_000_000)
	if snap.Asks[0].EffectivePrice.Cmp(want) != 0 {
		t.Fatalf("expected interpolated price %s, got %s", want, snap.Asks[0].EffectivePrice)
	}
}

// S4: init (empty) order slots never surface in any book.
func TestBookBuilderExcludesInitOrders(t *testing.T) {
	reg, key := newTestMarket(t)
	idx := NewOrderIndex()

	owner := solana.NewWallet().PublicKey()
	var acc UserAccount
	acc.PubKey = owner
	// every slot left at its zero value: Status == StatusInit
	idx.Upsert(owner, &acc)

	bb := NewBookBuilder(idx, fixedSlot(1), fixedOracle{}, reg, nil)
	bb.Tick()

	snap := bb.Snapshot(key)
	if len(snap.Bids) != 0 || len(snap.Asks) != 0 {
		t.Fatalf("expected init orders excluded, got %d bids, %d asks", len(snap.Bids), len(snap.Asks))
	}
}

// A trigger order that has not crossed its trigger price must not rest.
func TestBookBuilderTriggerOrderGating(t *testing.T) {
	reg, key := newTestMarket(t)
	idx := NewOrderIndex()

	owner := solana.NewWallet().PublicKey()
	var acc UserAccount
	acc.PubKey = owner
	acc.Orders[0] = Order{
		OrderID:          1,
		MarketType:       market.Perp,
		MarketIndex:      0,
		Status:           StatusOpen,
		OrderType:        OrderTypeTriggerMarket,
		Direction:        Long,
		Price:            bigp(0),
		BaseAssetAmount:  bigp(1_000_000_000),
		BaseAssetAmountFilled: bigp(0),
		TriggerPrice:     bigp(50_000_000),
		TriggerCondition: TriggerAbove,
	}
	idx.Upsert(owner, &acc)

	oracle := fixedOracle{quote: OracleQuote{Price: bigp(40_000_000)}, have: true}
	bb := NewBookBuilder(idx, fixedSlot(1), oracle, reg, nil)
	bb.Tick()

	snap := bb.Snapshot(key)
	if len(snap.Bids) != 0 {
		t.Fatalf("expected trigger order gated out, got %d bids", len(snap.Bids))
	}

	// Once the oracle crosses the trigger, the order must appear.
	oracle.quote.Price = bigp(60_000_000)
	bb2 := NewBookBuilder(idx, fixedSlot(1), oracle, reg, nil)
	bb2.Tick()
	snap2 := bb2.Snapshot(key)
	if len(snap2.Bids) != 1 {
		t.Fatalf("expected trigger order resting after crossing, got %d bids", len(snap2.Bids))
	}
}
