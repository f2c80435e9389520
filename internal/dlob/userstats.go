package dlob

import (
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// UserStats is the aggregated, authority-scoped statistics record
// consulted only by TopMakers when includeUserStats is requested
// (spec.md §4.5).
type UserStats struct {
	StatsPubKey solana.PublicKey
	Authority   solana.PublicKey
	TakerVolume *BigDecimalString
	MakerVolume *BigDecimalString
}

// StatsPDADeriver derives the stats-account address for an authority.
// Grounded on ice-coldbell-easyclaw's internal/dex/pda.go
// FindProgramAddress pattern — here abstracted behind an interface since
// the chain program ID is an external bootstrap concern (spec.md §1).
type StatsPDADeriver interface {
	DeriveUserStatsPDA(authority solana.PublicKey) (solana.PublicKey, error)
}

// UserStatsIndex is the lazy-loaded secondary map from authority pubkey
// to aggregated user stats. Entries are derived and cached on first
// lookup rather than eagerly built from OrderIndex.
type UserStatsIndex struct {
	mu      sync.RWMutex
	byAuth  map[solana.PublicKey]*UserStats
	deriver StatsPDADeriver
	fetch   func(statsPubKey solana.PublicKey) (*UserStats, error)
}

// NewUserStatsIndex creates a UserStatsIndex that derives a stats pubkey
// via deriver and fetches its contents via fetch on first access. The
// account-fetch RPC call is an external bootstrap concern (spec.md §1),
// same as bootstrap.go's decodeAccount; a nil fetch falls back to a stub
// that fails the lookup cleanly instead of a nil-func-call panic on the
// first cache miss.
func NewUserStatsIndex(deriver StatsPDADeriver, fetch func(solana.PublicKey) (*UserStats, error)) *UserStatsIndex {
	if fetch == nil {
		fetch = stubStatsFetch
	}
	return &UserStatsIndex{
		byAuth:  make(map[solana.PublicKey]*UserStats),
		deriver: deriver,
		fetch:   fetch,
	}
}

// stubStatsFetch is the default fetch when none is wired: it fails the
// lookup rather than panicking, so includeUserStats enrichment is simply
// absent until a real fetcher is plugged in.
func stubStatsFetch(statsPubKey solana.PublicKey) (*UserStats, error) {
	return nil, fmt.Errorf("user stats fetch not wired for %s", statsPubKey)
}

// MustGet returns the cached stats for authority, lazily deriving and
// fetching it on a miss. A fetch failure is returned to the caller —
// TopMakers's includeUserStats path surfaces it as a partial response
// rather than failing the whole request.
func (si *UserStatsIndex) MustGet(authority solana.PublicKey) (*UserStats, error) {
	si.mu.RLock()
	if s, ok := si.byAuth[authority]; ok {
		si.mu.RUnlock()
		return s, nil
	}
	si.mu.RUnlock()

	statsPubKey, err := si.deriver.DeriveUserStatsPDA(authority)
	if err != nil {
		return nil, err
	}
	stats, err := si.fetch(statsPubKey)
	if err != nil {
		return nil, err
	}

	si.mu.Lock()
	si.byAuth[authority] = stats
	si.mu.Unlock()

	return stats, nil
}

// Size returns the number of cached stats entries.
func (si *UserStatsIndex) Size() int {
	si.mu.RLock()
	defer si.mu.RUnlock()
	return len(si.byAuth)
}
