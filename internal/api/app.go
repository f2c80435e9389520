// Package api is the HTTP surface: routing, query validation and
// snapshot serialization (spec.md §4, component 8; §6 endpoint table).
// It never builds a book itself — every handler is a thin read over
// App's dependencies.
package api

import (
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/moonape1226/dlob-server/internal/dlob"
	"github.com/moonape1226/dlob-server/internal/market"
)

// DataSource is the read side of the chain.Provider abstraction (the
// DLOBProvider of spec.md §9) that handlers need. Declared here rather
// than imported from internal/chain so api does not depend on chain;
// chain.UserMapProvider/OrderSubscriberProvider satisfy it structurally.
type DataSource interface {
	Size() int
	GetUserAccount(pubkey solana.PublicKey) *dlob.UserAccount
	GetUserAccounts() []dlob.IndexEntry
	GetUniqueAuthorities() map[solana.PublicKey]struct{}
}

// OracleSource is the read side of chain.OracleView.
type OracleSource interface {
	Get(marketIndex uint16) (dlob.OracleQuote, bool)
}

// VenueSet is a market's vAMM curve plus its external-venue mirrors, as
// wired by cmd/dlobserver at startup. A spot market typically carries
// Fallbacks and no Vamm; a perp market typically carries a Vamm and no
// Fallbacks, but the aggregator doesn't assume either.
type VenueSet struct {
	Vamm      *dlob.VammCurve
	Fallbacks []*dlob.FallbackVenue
}

// App bundles every dependency the HTTP handlers read from. It holds no
// mutable state of its own beyond what its fields already guard.
type App struct {
	Markets *market.Registry
	Books   *dlob.BookBuilder
	Source  DataSource
	Oracle  OracleSource
	Stats   *dlob.UserStatsIndex

	Venues map[market.Key]VenueSet

	Subscribed func() bool // true once the account stream counts as subscribed for /startup
	StartedAt  time.Time
	Commit     string
}

func (a *App) venuesFor(key market.Key) VenueSet {
	if a.Venues == nil {
		return VenueSet{}
	}
	return a.Venues[key]
}

// ready implements the /startup predicate of spec.md §6:
// subscribed ∧ orderIndex.size>0 ∧ userStats.size>0.
func (a *App) ready() bool {
	if a.Subscribed == nil || !a.Subscribed() {
		return false
	}
	if a.Source == nil || a.Source.Size() == 0 {
		return false
	}
	if a.Stats == nil || a.Stats.Size() == 0 {
		return false
	}
	return true
}
