package dlob

import (
	"math/big"
	"testing"

	"github.com/gagliardetto/solana-go"
)

func TestGetTopMakersDedupesByOwnerPubkey(t *testing.T) {
	idx := NewOrderIndex()
	owner := solana.NewWallet().PublicKey()
	idx.Upsert(owner, &UserAccount{PubKey: owner, Authority: solana.NewWallet().PublicKey()})

	bids := []*RestingOrder{
		{Owner: owner, Order: &Order{OrderID: 1, BaseAssetAmount: big.NewInt(5), BaseAssetAmountFilled: big.NewInt(0)}, EffectivePrice: big.NewInt(100)},
		{Owner: owner, Order: &Order{OrderID: 2, BaseAssetAmount: big.NewInt(3), BaseAssetAmountFilled: big.NewInt(0)}, EffectivePrice: big.NewInt(95)},
	}

	resp := GetTopMakers(bids, nil, idx, nil, 10, false)
	if len(resp.Bids) != 1 {
		t.Fatalf("expected both resting orders from the same owner deduped to 1 maker entry, got %d", len(resp.Bids))
	}
	if resp.Bids[0].Price.Int().Int64() != 100 {
		t.Fatalf("expected the first (best-priced) order to win, got %s", resp.Bids[0].Price.Int())
	}
	if resp.Bids[0].Maker != owner.String() {
		t.Fatalf("expected Maker to be the owner pubkey, got %s", resp.Bids[0].Maker)
	}
}

func TestGetTopMakersDoesNotDedupeSharedAuthority(t *testing.T) {
	idx := NewOrderIndex()
	authority := solana.NewWallet().PublicKey()

	owner1 := solana.NewWallet().PublicKey()
	owner2 := solana.NewWallet().PublicKey()
	idx.Upsert(owner1, &UserAccount{PubKey: owner1, Authority: authority})
	idx.Upsert(owner2, &UserAccount{PubKey: owner2, Authority: authority})

	bids := []*RestingOrder{
		{Owner: owner1, Order: &Order{OrderID: 1, BaseAssetAmount: big.NewInt(5), BaseAssetAmountFilled: big.NewInt(0)}, EffectivePrice: big.NewInt(100)},
		{Owner: owner2, Order: &Order{OrderID: 2, BaseAssetAmount: big.NewInt(3), BaseAssetAmountFilled: big.NewInt(0)}, EffectivePrice: big.NewInt(95)},
	}

	resp := GetTopMakers(bids, nil, idx, nil, 10, false)
	if len(resp.Bids) != 2 {
		t.Fatalf("expected two distinct owner pubkeys sharing one authority to produce 2 maker entries, got %d", len(resp.Bids))
	}
}

func TestGetTopMakersRespectsLimit(t *testing.T) {
	idx := NewOrderIndex()
	var bids []*RestingOrder
	for i := 0; i < 5; i++ {
		owner := solana.NewWallet().PublicKey()
		idx.Upsert(owner, &UserAccount{PubKey: owner, Authority: owner})
		bids = append(bids, &RestingOrder{
			Owner:          owner,
			Order:          &Order{OrderID: uint32(i), BaseAssetAmount: big.NewInt(1), BaseAssetAmountFilled: big.NewInt(0)},
			EffectivePrice: big.NewInt(int64(100 - i)),
		})
	}

	resp := GetTopMakers(bids, nil, idx, nil, 2, false)
	if len(resp.Bids) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(resp.Bids))
	}
}

func TestGetTopMakersIncludesUserStatsWhenRequested(t *testing.T) {
	idx := NewOrderIndex()
	authority := solana.NewWallet().PublicKey()
	owner := solana.NewWallet().PublicKey()
	idx.Upsert(owner, &UserAccount{PubKey: owner, Authority: authority})

	statsPK := solana.NewWallet().PublicKey()
	deriver := fakeDeriver{pk: statsPK}
	stats := NewUserStatsIndex(deriver, func(pk solana.PublicKey) (*UserStats, error) {
		return &UserStats{StatsPubKey: pk, Authority: authority, MakerVolume: NewBigDecimalString(big.NewInt(42))}, nil
	})

	bids := []*RestingOrder{
		{Owner: owner, Order: &Order{OrderID: 1, BaseAssetAmount: big.NewInt(1), BaseAssetAmountFilled: big.NewInt(0)}, EffectivePrice: big.NewInt(100)},
	}

	resp := GetTopMakers(bids, nil, idx, stats, 10, true)
	if resp.Bids[0].UserStats == nil {
		t.Fatal("expected user stats to be populated")
	}
	if resp.Bids[0].UserStats.MakerVolume.Int().Int64() != 42 {
		t.Fatalf("expected maker volume 42, got %s", resp.Bids[0].UserStats.MakerVolume.Int())
	}
}

type fakeDeriver struct{ pk solana.PublicKey }

func (f fakeDeriver) DeriveUserStatsPDA(authority solana.PublicKey) (solana.PublicKey, error) {
	return f.pk, nil
}
