package chain

import (
	"sync"

	"github.com/moonape1226/dlob-server/internal/dlob"
)

// OracleView exposes the latest oracle price per market index. It is fed
// by an external oracle loop (out of scope per spec.md §1) calling
// Update; BookBuilder (via dlob.OracleProvider) and the HTTP handlers
// (via api.OracleSource) only ever read it, through interfaces this type
// satisfies structurally.
type OracleView struct {
	mu     sync.RWMutex
	prices map[uint16]dlob.OracleQuote
}

// NewOracleView creates an empty OracleView.
func NewOracleView() *OracleView {
	return &OracleView{prices: make(map[uint16]dlob.OracleQuote)}
}

// Update records the latest oracle observation for a market index.
func (o *OracleView) Update(marketIndex uint16, p dlob.OracleQuote) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prices[marketIndex] = p
}

// Get returns the current oracle price for a market index, and whether
// one has ever been observed.
func (o *OracleView) Get(marketIndex uint16) (dlob.OracleQuote, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	p, ok := o.prices[marketIndex]
	return p, ok
}
