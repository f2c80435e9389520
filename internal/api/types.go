package api

import (
	"fmt"
	"math/big"
	"net/url"
	"strconv"
	"strings"

	"github.com/moonape1226/dlob-server/internal/dlob"
	"github.com/moonape1226/dlob-server/internal/market"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ordersEntryRaw mirrors /orders/json/raw's deliberately leaky shape:
// big integers serialize as bare JSON numbers, per the Open Question
// decision in DESIGN.md to preserve that wire-compatibility quirk.
type ordersEntryRaw struct {
	User  string      `json:"user"`
	Order *dlob.Order `json:"order"`
}

// ordersEntry is /orders/json's shape: the same tuples, but every
// bigint coerced to a decimal string and enums rendered by name.
type ordersEntry struct {
	User  string        `json:"user"`
	Order orderJSONView `json:"order"`
}

type orderJSONView struct {
	OrderID               uint32            `json:"orderId"`
	UserOrderID           uint8             `json:"userOrderId"`
	MarketType            string            `json:"marketType"`
	MarketIndex           uint16            `json:"marketIndex"`
	Status                string            `json:"status"`
	OrderType             string            `json:"orderType"`
	Direction             string            `json:"direction"`
	Price                 *dlob.BigDecimalString `json:"price"`
	TriggerPrice          *dlob.BigDecimalString `json:"triggerPrice"`
	BaseAssetAmount       *dlob.BigDecimalString `json:"baseAssetAmount"`
	BaseAssetAmountFilled *dlob.BigDecimalString `json:"baseAssetAmountFilled"`
	QuoteAssetAmount      *dlob.BigDecimalString `json:"quoteAssetAmount"`
	QuoteAssetAmountFilled *dlob.BigDecimalString `json:"quoteAssetAmountFilled"`
	Slot                  uint64            `json:"slot"`
	PostOnly              bool              `json:"postOnly"`
	ReduceOnly            bool              `json:"reduceOnly"`
}

func toOrderJSONView(o *dlob.Order) orderJSONView {
	return orderJSONView{
		OrderID:                o.OrderID,
		UserOrderID:            o.UserOrderID,
		MarketType:             o.MarketType.String(),
		MarketIndex:            o.MarketIndex,
		Status:                 o.Status.String(),
		OrderType:              o.OrderType.String(),
		Direction:              o.Direction.String(),
		Price:                  dlob.NewBigDecimalString(o.Price),
		TriggerPrice:           dlob.NewBigDecimalString(o.TriggerPrice),
		BaseAssetAmount:        dlob.NewBigDecimalString(o.BaseAssetAmount),
		BaseAssetAmountFilled:  dlob.NewBigDecimalString(o.BaseAssetAmountFilled),
		QuoteAssetAmount:       dlob.NewBigDecimalString(o.QuoteAssetAmount),
		QuoteAssetAmountFilled: dlob.NewBigDecimalString(o.QuoteAssetAmountFilled),
		Slot:                   o.Slot,
		PostOnly:               o.PostOnly,
		ReduceOnly:             o.ReduceOnly,
	}
}

type oracleEntry struct {
	MarketIndex uint16                 `json:"marketIndex"`
	Price       *dlob.BigDecimalString `json:"price"`
	Confidence  *dlob.BigDecimalString `json:"confidence"`
	Slot        uint64                 `json:"slot"`
}

// clientError is a ClientValidation-kind failure (spec.md §7). The query
// parsing helpers return it; each handler writes its message with a 400
// status.
type clientError struct{ msg string }

func (e *clientError) Error() string { return e.msg }

func badRequest(format string, args ...interface{}) *clientError {
	return &clientError{msg: fmt.Sprintf(format, args...)}
}

// resolveMarket implements spec.md §6 "Market selection": either
// marketName, or both marketType and marketIndex.
func resolveMarket(registry *market.Registry, q url.Values) (*market.Market, error) {
	if name := q.Get("marketName"); name != "" {
		m, ok := registry.ByName(name)
		if !ok {
			return nil, badRequest("unknown marketName %q", name)
		}
		return m, nil
	}

	typeStr := q.Get("marketType")
	indexStr := q.Get("marketIndex")
	if typeStr == "" || indexStr == "" {
		return nil, badRequest("must supply marketName, or both marketType and marketIndex")
	}

	mt, err := market.ParseType(typeStr)
	if err != nil {
		return nil, badRequest("%s", err.Error())
	}
	idx, err := strconv.ParseUint(indexStr, 10, 16)
	if err != nil {
		return nil, badRequest("invalid marketIndex %q", indexStr)
	}

	m, ok := registry.ByKey(market.Key{Type: mt, Index: uint16(idx)})
	if !ok {
		return nil, badRequest("unknown market %s:%d", mt, idx)
	}
	return m, nil
}

// parseSide parses the /topMakers `side` query param.
func parseSide(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "bid":
		return true, nil
	case "ask":
		return false, nil
	default:
		return false, badRequest("invalid side %q: must be bid or ask", s)
	}
}

// parseOptionalInt parses an optional integer query param, returning
// def when absent.
func parseOptionalInt(q url.Values, key string, def int) (int, error) {
	v := q.Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, badRequest("invalid %s %q", key, v)
	}
	return n, nil
}

func parseOptionalBool(q url.Values, key string) bool {
	v, err := strconv.ParseBool(q.Get(key))
	if err != nil {
		return false
	}
	return v
}

func parseOptionalGrouping(q url.Values) (*big.Int, error) {
	v := q.Get("grouping")
	if v == "" {
		return nil, nil
	}
	n, ok := new(big.Int).SetString(v, 10)
	if !ok || n.Sign() <= 0 {
		return nil, badRequest("invalid grouping %q", v)
	}
	return n, nil
}

// splitBatchParam splits a comma-joined batch query value. A repeated
// query param (?depth=1&depth=2) arrives pre-split via url.Values, so
// this only needs to additionally explode any single comma-joined
// entry — matching "comma-joined or equal-length arrays" (spec.md §6).
func splitBatchParam(values []string) []string {
	if len(values) == 1 && strings.Contains(values[0], ",") {
		return strings.Split(values[0], ",")
	}
	return values
}

// normalizeBatch pads every param list to maxLen with "" (spec.md §6
// "missing param becomes an all-undefined list"), and errors if any
// supplied list's length doesn't match maxLen.
func normalizeBatch(lists map[string][]string) (int, error) {
	maxLen := 0
	for _, l := range lists {
		if len(l) > maxLen {
			maxLen = len(l)
		}
	}
	for k, l := range lists {
		if len(l) != 0 && len(l) != maxLen {
			return 0, fmt.Errorf("param %q has length %d, expected %d", k, len(l), maxLen)
		}
	}
	return maxLen, nil
}

func padTo(values []string, n int) []string {
	out := make([]string, n)
	for i := range out {
		if i < len(values) {
			out[i] = values[i]
		}
	}
	return out
}
