package dlob

// Fixed-point scales shared by every price/size field in this package,
// matching the on-chain protocol's own precision constants so resting
// orders, vAMM levels and oracle quotes are always directly comparable.
const (
	PricePrecision = 1_000_000     // 1e6, price fields (spec.md glossary "PRICE_PRECISION")
	BasePrecision  = 1_000_000_000 // 1e9, base asset amount fields
)
