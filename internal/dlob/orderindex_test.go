package dlob

import (
	"testing"

	"github.com/gagliardetto/solana-go"
)

func TestOrderIndexUpsertGetDelete(t *testing.T) {
	idx := NewOrderIndex()
	pk := solana.NewWallet().PublicKey()
	acc := &UserAccount{PubKey: pk, Authority: solana.NewWallet().PublicKey()}

	if got := idx.Get(pk); got != nil {
		t.Fatalf("expected miss before upsert, got %v", got)
	}

	idx.Upsert(pk, acc)
	if got := idx.Get(pk); got != acc {
		t.Fatalf("expected %v, got %v", acc, got)
	}
	if idx.Size() != 1 {
		t.Fatalf("expected size 1, got %d", idx.Size())
	}

	idx.Delete(pk)
	if got := idx.Get(pk); got != nil {
		t.Fatalf("expected miss after delete, got %v", got)
	}
	if idx.Size() != 0 {
		t.Fatalf("expected size 0, got %d", idx.Size())
	}
}

func TestOrderIndexIterateAndUniqueAuthorities(t *testing.T) {
	idx := NewOrderIndex()
	auth := solana.NewWallet().PublicKey()

	pk1 := solana.NewWallet().PublicKey()
	pk2 := solana.NewWallet().PublicKey()
	idx.Upsert(pk1, &UserAccount{PubKey: pk1, Authority: auth})
	idx.Upsert(pk2, &UserAccount{PubKey: pk2, Authority: auth})

	entries := idx.Iterate()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	authorities := idx.UniqueAuthorities()
	if len(authorities) != 1 {
		t.Fatalf("expected 1 unique authority, got %d", len(authorities))
	}
	if _, ok := authorities[auth]; !ok {
		t.Fatalf("expected authority %s present", auth)
	}
}

func TestUserAccountOpenOrdersExcludesInit(t *testing.T) {
	var acc UserAccount
	acc.Orders[0].Status = StatusOpen
	acc.Orders[0].OrderID = 1
	acc.Orders[5].Status = StatusFilled
	acc.Orders[5].OrderID = 2
	// everything else remains StatusInit (zero value)

	open := acc.OpenOrders()
	if len(open) != 2 {
		t.Fatalf("expected 2 open orders, got %d", len(open))
	}
}
