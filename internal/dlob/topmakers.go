package dlob

import (
	"github.com/gagliardetto/solana-go"
)

// TopMaker is one maker user account's best resting price on a side,
// deduplicated so a single maker pubkey contributes at most one entry
// per side even if it rests multiple orders (spec.md §4.5, "dedup by
// pubkey"). Maker is the resting order's own user-account pubkey, not
// its authority — one authority can own several user accounts, and each
// is its own distinct maker.
type TopMaker struct {
	Maker     string            `json:"maker"`
	Price     *BigDecimalString `json:"price"`
	Size      *BigDecimalString `json:"size"`
	UserStats *UserStats        `json:"userStats,omitempty"`
}

// TopMakersResponse holds both sides of a market's top-makers listing.
type TopMakersResponse struct {
	Bids []TopMaker `json:"bids"`
	Asks []TopMaker `json:"asks"`
}

// AuthorityResolver resolves a UserAccount pubkey to its authority.
// *OrderIndex satisfies this; declared as an interface so callers
// outside this package (the HTTP layer) don't need an *OrderIndex
// specifically, only something that can answer the lookup.
type AuthorityResolver interface {
	Get(pubkey solana.PublicKey) *UserAccount
}

// GetTopMakers walks a market's maker-eligible resting orders (the same
// RestingLimitBids/RestingLimitAsks filter BookBuilder exposes) and
// returns, per side, the best price offered by each distinct maker user
// account (deduped by pubkey, not authority) up to limit entries. When
// includeUserStats is set, index is consulted to resolve each maker's
// authority to its UserStatsIndex entry; a lookup failure is dropped
// silently rather than failing the whole response (spec.md §4.5
// "best-effort enrichment").
func GetTopMakers(bids, asks []*RestingOrder, index AuthorityResolver, stats *UserStatsIndex, limit int, includeUserStats bool) TopMakersResponse {
	return TopMakersResponse{
		Bids: dedupMakers(bids, index, stats, limit, includeUserStats),
		Asks: dedupMakers(asks, index, stats, limit, includeUserStats),
	}
}

func dedupMakers(orders []*RestingOrder, index AuthorityResolver, stats *UserStatsIndex, limit int, includeUserStats bool) []TopMaker {
	seen := make(map[solana.PublicKey]struct{})
	out := make([]TopMaker, 0, limit)

	for _, r := range orders {
		if limit > 0 && len(out) >= limit {
			break
		}
		if _, ok := seen[r.Owner]; ok {
			continue
		}
		seen[r.Owner] = struct{}{}

		size := r.Order.BaseAssetAmount
		if r.Order.BaseAssetAmountFilled != nil {
			size = subNonNegative(r.Order.BaseAssetAmount, r.Order.BaseAssetAmountFilled)
		}

		tm := TopMaker{
			Maker: r.Owner.String(),
			Price: NewBigDecimalString(r.EffectivePrice),
			Size:  NewBigDecimalString(size),
		}
		if includeUserStats && stats != nil {
			authority := makerAuthority(r.Owner, index)
			if s, err := stats.MustGet(authority); err == nil {
				tm.UserStats = s
			}
		}
		out = append(out, tm)
	}
	return out
}

func makerAuthority(owner solana.PublicKey, index AuthorityResolver) solana.PublicKey {
	if index == nil {
		return owner
	}
	acc := index.Get(owner)
	if acc == nil {
		return owner
	}
	return acc.Authority
}
