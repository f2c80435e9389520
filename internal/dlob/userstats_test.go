package dlob

import (
	"math/big"
	"testing"

	"github.com/gagliardetto/solana-go"
)

func TestUserStatsIndexNilFetchFailsCleanly(t *testing.T) {
	authority := solana.NewWallet().PublicKey()
	stats := NewUserStatsIndex(fakeDeriver{pk: solana.NewWallet().PublicKey()}, nil)

	if _, err := stats.MustGet(authority); err == nil {
		t.Fatal("expected an error from an unwired stats fetch, not a panic or a nil error")
	}
}

func TestUserStatsIndexCachesAfterFirstFetch(t *testing.T) {
	authority := solana.NewWallet().PublicKey()
	calls := 0
	stats := NewUserStatsIndex(fakeDeriver{pk: solana.NewWallet().PublicKey()}, func(pk solana.PublicKey) (*UserStats, error) {
		calls++
		return &UserStats{Authority: authority, MakerVolume: NewBigDecimalString(big.NewInt(1))}, nil
	})

	if _, err := stats.MustGet(authority); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := stats.MustGet(authority); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected the fetch function to run once and cache after, got %d calls", calls)
	}
}
