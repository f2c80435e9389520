package dlob

import (
	"math/big"
	"testing"

	"github.com/gagliardetto/solana-go"
)

func restingOrder(price, size int64, slot uint64, orderID uint32) *RestingOrder {
	return &RestingOrder{
		Owner: solana.NewWallet().PublicKey(),
		Order: &Order{
			OrderID:               orderID,
			Slot:                  slot,
			BaseAssetAmount:       big.NewInt(size),
			BaseAssetAmountFilled: big.NewInt(0),
		},
		EffectivePrice: big.NewInt(price),
	}
}

func TestGetL2UngroupedOrdersByPrice(t *testing.T) {
	snap := &Snapshot{
		Slot: 1,
		Bids: []*RestingOrder{restingOrder(100, 5, 1, 1), restingOrder(90, 5, 1, 2)},
		Asks: []*RestingOrder{restingOrder(110, 5, 1, 3), restingOrder(120, 5, 1, 4)},
	}

	resp := GetL2(snap, false, L2Params{Depth: -1})

	if len(resp.Bids) != 2 || resp.Bids[0].Price.Int().Int64() != 100 {
		t.Fatalf("expected bids sorted desc starting at 100, got %+v", resp.Bids)
	}
	if len(resp.Asks) != 2 || resp.Asks[0].Price.Int().Int64() != 110 {
		t.Fatalf("expected asks sorted asc starting at 110, got %+v", resp.Asks)
	}
	if resp.Bids[0].Sources[DLOBSourceName].Int().Int64() != 5 {
		t.Fatalf("expected dlob source size 5, got %+v", resp.Bids[0].Sources)
	}
}

func TestGetL2MergesSamePriceLevels(t *testing.T) {
	snap := &Snapshot{
		Bids: []*RestingOrder{restingOrder(100, 5, 1, 1), restingOrder(100, 7, 2, 2)},
	}
	resp := GetL2(snap, false, L2Params{Depth: -1})
	if len(resp.Bids) != 1 {
		t.Fatalf("expected 1 merged level, got %d", len(resp.Bids))
	}
	if resp.Bids[0].Size.Int().Int64() != 12 {
		t.Fatalf("expected merged size 12, got %s", resp.Bids[0].Size.Int())
	}
}

func TestGetL2Grouping(t *testing.T) {
	snap := &Snapshot{
		Bids: []*RestingOrder{restingOrder(101, 5, 1, 1), restingOrder(104, 5, 1, 2), restingOrder(90, 5, 1, 3)},
	}
	resp := GetL2(snap, false, L2Params{Depth: -1, Grouping: big.NewInt(10)})
	if len(resp.Bids) != 2 {
		t.Fatalf("expected 2 grouped levels (100-bucket and 90-bucket), got %d: %+v", len(resp.Bids), resp.Bids)
	}
	if resp.Bids[0].Price.Int().Int64() != 100 {
		t.Fatalf("expected top bucket 100, got %s", resp.Bids[0].Price.Int())
	}
	if resp.Bids[0].Size.Int().Int64() != 10 {
		t.Fatalf("expected bucketed size 10, got %s", resp.Bids[0].Size.Int())
	}
}

// S5: asks at {101,102,103,104} each size 1, grouping=10 -> single
// bucket at 110 (round up), size 4.
func TestGetL2GroupingRoundsAsksUp(t *testing.T) {
	snap := &Snapshot{
		Asks: []*RestingOrder{
			restingOrder(101, 1, 1, 1),
			restingOrder(102, 1, 1, 2),
			restingOrder(103, 1, 1, 3),
			restingOrder(104, 1, 1, 4),
		},
	}
	resp := GetL2(snap, false, L2Params{Depth: -1, Grouping: big.NewInt(10)})
	if len(resp.Asks) != 1 {
		t.Fatalf("expected 1 grouped ask level, got %d: %+v", len(resp.Asks), resp.Asks)
	}
	if resp.Asks[0].Price.Int().Int64() != 110 {
		t.Fatalf("expected asks to round up to 110, got %s", resp.Asks[0].Price.Int())
	}
	if resp.Asks[0].Size.Int().Int64() != 4 {
		t.Fatalf("expected summed size 4, got %s", resp.Asks[0].Size.Int())
	}
}

func TestGetL2DepthLimit(t *testing.T) {
	snap := &Snapshot{
		Bids: []*RestingOrder{restingOrder(100, 1, 1, 1), restingOrder(90, 1, 1, 2), restingOrder(80, 1, 1, 3)},
	}
	resp := GetL2(snap, false, L2Params{Depth: 2})
	if len(resp.Bids) != 2 {
		t.Fatalf("expected depth-limited to 2, got %d", len(resp.Bids))
	}
}

func TestGetL2SpotForcesVammOff(t *testing.T) {
	snap := &Snapshot{}
	vamm := NewVammCurve(big.NewInt(1_000_000_000_000), big.NewInt(1_000_000_000_000), big.NewInt(1_000_000_000))
	resp := GetL2(snap, true, L2Params{Depth: -1, IncludeVamm: true, Vamm: vamm, NumVammOrders: 3})
	if len(resp.Asks) != 0 {
		t.Fatalf("expected spot market to never draw vAMM liquidity, got %d ask levels", len(resp.Asks))
	}
}

func TestGetL2IncludesVammForPerp(t *testing.T) {
	snap := &Snapshot{}
	vamm := NewVammCurve(big.NewInt(1_000_000_000_000), big.NewInt(1_000_000_000_000), big.NewInt(1_000_000_000))
	resp := GetL2(snap, false, L2Params{Depth: -1, IncludeVamm: true, Vamm: vamm, NumVammOrders: 3})
	if len(resp.Asks) != 3 {
		t.Fatalf("expected 3 vamm ask levels, got %d", len(resp.Asks))
	}
	if _, ok := resp.Asks[0].Sources["vamm"]; !ok {
		t.Fatalf("expected vamm source tag, got %+v", resp.Asks[0].Sources)
	}
}
