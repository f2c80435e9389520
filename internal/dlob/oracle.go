package dlob

import "math/big"

// OracleQuote is a market's current reference price, as read from the
// OracleView ancillary loop (spec.md §4, component 3).
type OracleQuote struct {
	Price      *big.Int
	Confidence *big.Int
	TWAP       *big.Int
	Slot       uint64
}

// OracleProvider is the read side of OracleView that BookBuilder depends
// on. Declared here (rather than imported from the
// chain package) so dlob has no dependency on chain — chain.OracleView
// satisfies this interface structurally.
type OracleProvider interface {
	Get(marketIndex uint16) (OracleQuote, bool)
}

// SlotProvider is the read side of SlotSource that BookBuilder depends
// on. chain.SlotSource satisfies this structurally.
type SlotProvider interface {
	Current() uint64
}
