package dlob

import (
	"math/big"
	"sort"
)

// DLOBSourceName is the sources-map key for liquidity drawn straight
// from resting limit orders, as opposed to a vAMM or fallback venue.
const DLOBSourceName = "dlob"

// L2Level is one price level of an aggregated L2 response: a price, the
// total size resting at that price, and a breakdown of which source
// (the DLOB itself, the vAMM, or a named fallback venue) contributed
// how much (spec.md §4.3 step 5 "sources map").
type L2Level struct {
	Price   *BigDecimalString            `json:"price"`
	Size    *BigDecimalString            `json:"size"`
	Sources map[string]*BigDecimalString `json:"sources"`
}

// L2Response is one market's aggregated book.
type L2Response struct {
	Slot uint64    `json:"slot"`
	Bids []L2Level `json:"bids"`
	Asks []L2Level `json:"asks"`
}

// L2Params controls how GetL2 draws and shapes a market's book
// (spec.md §4.3). Depth is applied to the merged (and, when Grouping is
// set, grouped) levels; -1 (or any value <= 0) means "no limit, return
// every level". The HTTP layer defaults an absent depth param to 10.
type L2Params struct {
	Depth         int
	Grouping      *big.Int // price bucket size; nil disables grouping
	IncludeVamm   bool
	NumVammOrders int
	Vamm          *VammCurve // nil when the market has none
	Fallbacks     []*FallbackVenue
}

// level is the mutable accumulator GetL2 bucket-merges contributions
// into before the final sort/trim/serialize pass.
type level struct {
	price   *big.Int
	size    *big.Int
	sources map[string]*big.Int
}

// GetL2 builds an aggregated two-sided book for one market from its
// current BookBuilder snapshot, plus optional vAMM and fallback-venue
// synthetic liquidity (spec.md §4.3 steps 1-6). isSpot forces vAMM
// inclusion off regardless of params.IncludeVamm, per the Open Question
// decision recorded in DESIGN.md (only perp markets have a vAMM).
func GetL2(snap *Snapshot, isSpot bool, params L2Params) L2Response {
	includeVamm := params.IncludeVamm && !isSpot

	bidLevels := mergeSide(restingLevels(snap.Bids, true), generatorsFor(params, includeVamm, true), params.Grouping, true)
	askLevels := mergeSide(restingLevels(snap.Asks, false), generatorsFor(params, includeVamm, false), params.Grouping, false)

	return L2Response{
		Slot: snap.Slot,
		Bids: serializeLevels(trimDepth(bidLevels, params.Depth)),
		Asks: serializeLevels(trimDepth(askLevels, params.Depth)),
	}
}

func generatorsFor(params L2Params, includeVamm bool, isBid bool) []L2Generator {
	var gens []L2Generator
	if includeVamm && params.Vamm != nil {
		if isBid {
			gens = append(gens, params.Vamm.BidGenerator(params.NumVammOrders))
		} else {
			gens = append(gens, params.Vamm.AskGenerator(params.NumVammOrders))
		}
	}
	for _, fb := range params.Fallbacks {
		if fb == nil || !fb.Subscribed() {
			continue // an unsubscribed venue is simply omitted, never fails the response
		}
		if isBid {
			gens = append(gens, fb.BidGenerator())
		} else {
			gens = append(gens, fb.AskGenerator())
		}
	}
	return gens
}

// restingLevels converts a sorted slice of RestingOrder into (price,
// size, DLOBSourceName) contributions, already in priority order.
func restingLevels(orders []*RestingOrder, isBid bool) []Level {
	out := make([]Level, 0, len(orders))
	for _, r := range orders {
		size := subNonNegative(r.Order.BaseAssetAmount, r.Order.BaseAssetAmountFilled)
		if size.Sign() <= 0 {
			continue
		}
		out = append(out, Level{Price: r.EffectivePrice, Size: size})
	}
	_ = isBid
	return out
}

// mergeSide folds resting-order levels and every generator's output into
// a single price-bucketed set of levels, grouping by params.Grouping
// when set.
func mergeSide(resting []Level, gens []L2Generator, grouping *big.Int, isBid bool) []*level {
	byPrice := make(map[string]*level)
	order := make([]string, 0)

	add := func(source string, l Level) {
		bucketed := bucketPrice(l.Price, grouping, isBid)
		key := bucketed.String()
		lv, ok := byPrice[key]
		if !ok {
			lv = &level{price: bucketed, size: big.NewInt(0), sources: make(map[string]*big.Int)}
			byPrice[key] = lv
			order = append(order, key)
		}
		lv.size.Add(lv.size, l.Size)
		if existing, ok := lv.sources[source]; ok {
			existing.Add(existing, l.Size)
		} else {
			lv.sources[source] = new(big.Int).Set(l.Size)
		}
	}

	for _, l := range resting {
		add(DLOBSourceName, l)
	}
	for _, g := range gens {
		for {
			l, ok := g.Next()
			if !ok {
				break
			}
			add(g.Name(), l)
		}
	}

	out := make([]*level, 0, len(order))
	for _, k := range order {
		out = append(out, byPrice[k])
	}

	// Grouping can interleave buckets out of price order (a generator's
	// contribution may land in a bucket already seen from the resting
	// side); re-sort once, merge is otherwise append-only.
	sort.Slice(out, func(i, j int) bool {
		c := out[i].price.Cmp(out[j].price)
		if isBid {
			return c > 0
		}
		return c < 0
	})
	return out
}

// bucketPrice collapses a price into its grouping bucket: bids round
// down to the next multiple of G, asks round up (spec.md §4.3 step 5,
// invariant 3, scenario S5). grouping=nil disables bucketing entirely —
// every distinct price is its own bucket.
func bucketPrice(price *big.Int, grouping *big.Int, isBid bool) *big.Int {
	if grouping == nil || grouping.Sign() <= 0 {
		return price
	}
	quo, rem := new(big.Int).QuoRem(price, grouping, new(big.Int))
	bucket := new(big.Int).Mul(quo, grouping)
	if rem.Sign() != 0 && !isBid {
		bucket.Add(bucket, grouping)
	}
	return bucket
}

// trimDepth applies the Depth limit; -1 or 0 both mean unbounded.
func trimDepth(levels []*level, depth int) []*level {
	if depth <= 0 {
		return levels
	}
	if depth >= len(levels) {
		return levels
	}
	return levels[:depth]
}

func serializeLevels(levels []*level) []L2Level {
	out := make([]L2Level, len(levels))
	for i, lv := range levels {
		sources := make(map[string]*BigDecimalString, len(lv.sources))
		for name, sz := range lv.sources {
			sources[name] = NewBigDecimalString(sz)
		}
		out[i] = L2Level{
			Price:   NewBigDecimalString(lv.price),
			Size:    NewBigDecimalString(lv.size),
			Sources: sources,
		}
	}
	return out
}
