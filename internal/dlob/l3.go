package dlob

// L3Order is one individually-identified resting order, as opposed to
// the price-bucketed aggregation L2 produces (spec.md §4.3 "L3").
type L3Order struct {
	OrderID   uint32            `json:"orderId"`
	Maker     string            `json:"maker"`
	Price     *BigDecimalString `json:"price"`
	Size      *BigDecimalString `json:"size"`
	Direction string            `json:"direction"`
	OrderType string            `json:"orderType"`
	PostOnly  bool              `json:"postOnly"`
}

// L3Response is one market's full, unaggregated resting book. Unlike L2
// it never includes vAMM or fallback-venue liquidity — those venues
// don't expose individual maker orders to begin with.
type L3Response struct {
	Slot uint64    `json:"slot"`
	Bids []L3Order `json:"bids"`
	Asks []L3Order `json:"asks"`
}

// GetL3 lists every resting order on both sides of a market's current
// snapshot in priority order, unfiltered and ungrouped.
func GetL3(snap *Snapshot) L3Response {
	return L3Response{
		Slot: snap.Slot,
		Bids: toL3Orders(snap.Bids),
		Asks: toL3Orders(snap.Asks),
	}
}

func toL3Orders(orders []*RestingOrder) []L3Order {
	out := make([]L3Order, 0, len(orders))
	for _, r := range orders {
		out = append(out, L3Order{
			OrderID:   r.Order.OrderID,
			Maker:     r.Owner.String(),
			Price:     NewBigDecimalString(r.EffectivePrice),
			Size:      NewBigDecimalString(subNonNegative(r.Order.BaseAssetAmount, r.Order.BaseAssetAmountFilled)),
			Direction: r.Order.Direction.String(),
			OrderType: r.Order.OrderType.String(),
			PostOnly:  r.Order.PostOnly,
		})
	}
	return out
}
