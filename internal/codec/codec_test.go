package codec

import (
	"math/big"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/moonape1226/dlob-server/internal/dlob"
)

func TestEncodeDecodeOrdersRoundTrip(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	var acc dlob.UserAccount
	acc.PubKey = owner
	acc.Orders[0] = dlob.Order{
		OrderID:               7,
		UserOrderID:           1,
		Status:                dlob.StatusOpen,
		OrderType:             dlob.OrderTypeLimit,
		Direction:             dlob.Long,
		Price:                 big.NewInt(123_456_789),
		BaseAssetAmount:       big.NewInt(1_000_000_000),
		BaseAssetAmountFilled: big.NewInt(250_000_000),
		AuctionStartPrice:     big.NewInt(0),
		AuctionEndPrice:       big.NewInt(0),
		Slot:                  42,
	}
	acc.Orders[3] = dlob.Order{
		OrderID:               9,
		Status:                dlob.StatusOpen,
		OrderType:             dlob.OrderTypeMarket,
		Direction:             dlob.Short,
		Price:                 big.NewInt(0),
		BaseAssetAmount:       big.NewInt(5_000_000),
		BaseAssetAmountFilled: big.NewInt(0),
		AuctionStartPrice:     big.NewInt(0),
		AuctionEndPrice:       big.NewInt(0),
		Slot:                  43,
	}

	entries := []dlob.IndexEntry{{PubKey: owner, Account: &acc}}

	encoded, err := EncodeOrders(entries)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := DecodeOrders(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(decoded) != 2 {
		t.Fatalf("expected 2 orders round-tripped, got %d", len(decoded))
	}
	if decoded[0].UserPubKey != owner {
		t.Fatalf("expected owner %s, got %s", owner, decoded[0].UserPubKey)
	}
	if decoded[0].Order.OrderID != 7 || decoded[0].Order.Price != 123_456_789 {
		t.Fatalf("unexpected first order: %+v", decoded[0].Order)
	}
	if decoded[1].Order.OrderID != 9 {
		t.Fatalf("unexpected second order: %+v", decoded[1].Order)
	}
}

func TestEncodeOrdersRejectsOverflowingPrice(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	var acc dlob.UserAccount
	acc.PubKey = owner
	tooBig := new(big.Int).Lsh(big.NewInt(1), 128)
	acc.Orders[0] = dlob.Order{
		OrderID:               1,
		Status:                dlob.StatusOpen,
		Price:                 tooBig,
		BaseAssetAmount:       big.NewInt(1),
		BaseAssetAmountFilled: big.NewInt(0),
		AuctionStartPrice:     big.NewInt(0),
		AuctionEndPrice:       big.NewInt(0),
	}

	_, err := EncodeOrders([]dlob.IndexEntry{{PubKey: owner, Account: &acc}})
	if err == nil {
		t.Fatal("expected an error encoding a price that overflows u64")
	}
}

func TestEncodeOrdersSkipsInitSlots(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	var acc dlob.UserAccount
	acc.PubKey = owner
	// every slot left at StatusInit

	encoded, err := EncodeOrders([]dlob.IndexEntry{{PubKey: owner, Account: &acc}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(encoded) != 0 {
		t.Fatalf("expected no bytes for an account with only init orders, got %d", len(encoded))
	}
}
