package dlob

import (
	"context"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"
)

// VenueFetchFunc pulls one full bid/ask snapshot from an external venue
// (Phoenix, Serum). Implementations live outside this package, close
// over a venue-specific RPC/websocket client, and are adapted the same
// way as the teacher's orderbookCollector target functions.
type VenueFetchFunc func(ctx context.Context) (bids, asks []Level, err error)

const (
	fallbackMinBackoff = 500 * time.Millisecond
	fallbackMaxBackoff = 30 * time.Second
)

// FallbackVenue mirrors one external venue's order book for use as a
// spot market's fallback liquidity source (spec.md §4.3, glossary
// "FallbackGenerator"). It runs its own backoff-and-retry refresh loop
// so a single venue outage never blocks a BookBuilder tick; on failure
// the last good snapshot is kept and Subscribed degrades to false,
// which the L2 aggregator treats as "omit this source" rather than
// failing the whole response.
type FallbackVenue struct {
	name   string
	fetch  VenueFetchFunc
	logger *zap.SugaredLogger

	mu         sync.RWMutex
	bids, asks []Level
	subscribed bool
}

// NewFallbackVenue wires a named external-venue mirror. Run must be
// started in its own goroutine for the mirror to populate.
func NewFallbackVenue(name string, fetch VenueFetchFunc, logger *zap.SugaredLogger) *FallbackVenue {
	return &FallbackVenue{name: name, fetch: fetch, logger: logger}
}

// Run polls fetch on refreshInterval until ctx is cancelled, with
// exponential backoff between consecutive failures (grounded on the
// teacher enrichment's orderbookCollector.runTargetLoop pattern).
func (f *FallbackVenue) Run(ctx context.Context, refreshInterval time.Duration) {
	backoff := fallbackMinBackoff
	for {
		bids, asks, err := f.fetch(ctx)
		if err != nil {
			if f.logger != nil {
				f.logger.Warnw("fallback_venue_fetch_failed", "venue", f.name, "err", err)
			}
			f.mu.Lock()
			f.subscribed = false
			f.mu.Unlock()

			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > fallbackMaxBackoff {
				backoff = fallbackMaxBackoff
			}
			continue
		}

		backoff = fallbackMinBackoff
		f.mu.Lock()
		f.bids, f.asks, f.subscribed = bids, asks, true
		f.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-time.After(refreshInterval):
		}
	}
}

// Subscribed reports whether the last fetch succeeded.
func (f *FallbackVenue) Subscribed() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.subscribed
}

// BidGenerator and AskGenerator snapshot the current cached mirror into
// lazy generators; safe to call even when Subscribed is false (the
// slices will simply be empty or stale until the next success).
func (f *FallbackVenue) BidGenerator() L2Generator {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return NewSliceGenerator(f.name, cloneLevels(f.bids))
}

func (f *FallbackVenue) AskGenerator() L2Generator {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return NewSliceGenerator(f.name, cloneLevels(f.asks))
}

func (f *FallbackVenue) Name() string { return f.name }

func cloneLevels(levels []Level) []Level {
	out := make([]Level, len(levels))
	for i, l := range levels {
		out[i] = Level{Price: new(big.Int).Set(l.Price), Size: new(big.Int).Set(l.Size)}
	}
	return out
}
