package dlob

import "math/big"

// DefaultNumVammOrders is how many synthetic levels a vAMM curve
// contributes to each side of an L2 response when included
// (spec.md §4.3, glossary "vAMM").
const DefaultNumVammOrders = 10

// VammCurve models a market's virtual AMM as a constant-product curve
// over its base/quote reserves, the same x*y=k shape Drift's perp
// markets use internally. It never trades; it only answers "what would
// the AMM quote after trading stepSize further in this direction".
type VammCurve struct {
	BaseAssetReserve  *big.Int
	QuoteAssetReserve *big.Int
	StepSize          *big.Int
}

// NewVammCurve builds a curve from a market's current reserves. Callers
// own the *big.Int values; VammCurve never mutates them.
func NewVammCurve(baseReserve, quoteReserve, stepSize *big.Int) *VammCurve {
	return &VammCurve{
		BaseAssetReserve:  baseReserve,
		QuoteAssetReserve: quoteReserve,
		StepSize:          stepSize,
	}
}

// AskLevels walks the curve as if the AMM were selling base asset:
// baseAssetReserve decreases by StepSize at each level, quoteReserve
// rises to keep the product constant, and price rises monotonically.
func (v *VammCurve) AskLevels(numOrders int) []Level {
	if numOrders <= 0 {
		numOrders = DefaultNumVammOrders
	}
	k := new(big.Int).Mul(v.BaseAssetReserve, v.QuoteAssetReserve)
	base := new(big.Int).Set(v.BaseAssetReserve)

	levels := make([]Level, 0, numOrders)
	for i := 0; i < numOrders; i++ {
		base = new(big.Int).Sub(base, v.StepSize)
		if base.Sign() <= 0 {
			break
		}
		quote := new(big.Int).Quo(k, base)
		levels = append(levels, Level{Price: priceFromReserves(quote, base), Size: new(big.Int).Set(v.StepSize)})
	}
	return levels
}

// BidLevels walks the curve as if the AMM were buying base asset:
// baseAssetReserve increases by StepSize at each level and price falls
// monotonically.
func (v *VammCurve) BidLevels(numOrders int) []Level {
	if numOrders <= 0 {
		numOrders = DefaultNumVammOrders
	}
	k := new(big.Int).Mul(v.BaseAssetReserve, v.QuoteAssetReserve)
	base := new(big.Int).Set(v.BaseAssetReserve)

	levels := make([]Level, 0, numOrders)
	for i := 0; i < numOrders; i++ {
		base = new(big.Int).Add(base, v.StepSize)
		quote := new(big.Int).Quo(k, base)
		levels = append(levels, Level{Price: priceFromReserves(quote, base), Size: new(big.Int).Set(v.StepSize)})
	}
	return levels
}

// priceFromReserves converts a (quote, base) reserve pair into a
// PricePrecision-scaled price, matching the scale Order.Price already
// uses so vAMM levels merge with resting-order levels without further
// conversion.
func priceFromReserves(quoteReserve, baseReserve *big.Int) *big.Int {
	scaled := new(big.Int).Mul(quoteReserve, big.NewInt(PricePrecision))
	return scaled.Quo(scaled, baseReserve)
}

// AskGenerator/BidGenerator adapt a VammCurve's bounded output into the
// lazy L2Generator interface the aggregator consumes.
func (v *VammCurve) AskGenerator(numOrders int) L2Generator {
	return NewSliceGenerator("vamm", v.AskLevels(numOrders))
}

func (v *VammCurve) BidGenerator(numOrders int) L2Generator {
	return NewSliceGenerator("vamm", v.BidLevels(numOrders))
}
