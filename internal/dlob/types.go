// Package dlob reconstructs the decentralized limit order book from raw
// user-account state: OrderIndex, BookBuilder, the L2/L3 aggregators and
// TopMakers all live here (spec.md §4).
package dlob

import (
	"math/big"

	"github.com/gagliardetto/solana-go"

	"github.com/moonape1226/dlob-server/internal/market"
)

// MaxOrdersPerUser is the fixed size of a UserAccount's order array,
// matching the on-chain account layout (spec.md §3 "fixed-size array").
const MaxOrdersPerUser = 32

// OrderStatus is the lifecycle state of a single order slot.
type OrderStatus uint8

const (
	StatusInit OrderStatus = iota // empty slot, excluded from every output
	StatusOpen
	StatusCanceled
	StatusFilled
)

func (s OrderStatus) String() string {
	switch s {
	case StatusInit:
		return "init"
	case StatusOpen:
		return "open"
	case StatusCanceled:
		return "canceled"
	case StatusFilled:
		return "filled"
	default:
		return "unknown"
	}
}

// OrderType determines how an order's effective price is computed.
type OrderType uint8

const (
	OrderTypeLimit OrderType = iota
	OrderTypeMarket
	OrderTypeTriggerLimit
	OrderTypeTriggerMarket
	OrderTypeOracle // limit priced as an offset from the oracle price
)

func (t OrderType) String() string {
	switch t {
	case OrderTypeLimit:
		return "limit"
	case OrderTypeMarket:
		return "market"
	case OrderTypeTriggerLimit:
		return "triggerLimit"
	case OrderTypeTriggerMarket:
		return "triggerMarket"
	case OrderTypeOracle:
		return "oracle"
	default:
		return "unknown"
	}
}

// Direction is long/short, equivalently bid/ask.
type Direction uint8

const (
	Long Direction = iota
	Short
)

func (d Direction) String() string {
	if d == Long {
		return "long"
	}
	return "short"
}

// IsBid reports whether this direction rests on the bid side of the book.
func (d Direction) IsBid() bool { return d == Long }

// TriggerCondition gates trigger orders against the oracle price.
type TriggerCondition uint8

const (
	TriggerAbove TriggerCondition = iota
	TriggerBelow
)

// Order is one slot of a UserAccount's fixed order array (spec.md §3).
// All numeric fields are arbitrary-precision to match chain-native
// (u64/u128) precision; see SPEC_FULL.md §4 for why this is math/big
// rather than a third-party decimal type.
type Order struct {
	OrderID     uint32
	UserOrderID uint8

	MarketType  market.Type
	MarketIndex uint16

	Status    OrderStatus
	OrderType OrderType
	Direction Direction

	Price              *big.Int
	TriggerPrice       *big.Int
	OraclePriceOffset  *big.Int
	BaseAssetAmount    *big.Int
	BaseAssetAmountFilled *big.Int
	QuoteAssetAmount   *big.Int
	QuoteAssetAmountFilled *big.Int

	Slot            uint64 // posting slot
	AuctionStartPrice *big.Int
	AuctionEndPrice   *big.Int
	AuctionDuration   uint32 // in slots
	MaxTs             int64  // unix seconds, 0 = no expiry

	TriggerCondition          TriggerCondition
	PostOnly                  bool
	ReduceOnly                bool
	ImmediateOrCancel         bool
	ExistingPositionDirection Direction
}

// UserAccount is one on-chain account: an authority plus a fixed array of
// order slots (spec.md §3 "UserAccount").
type UserAccount struct {
	PubKey    solana.PublicKey
	Authority solana.PublicKey
	Orders    [MaxOrdersPerUser]Order
}

// OpenOrders returns the non-init orders belonging to this account,
// honoring invariant 1 (init orders never surface).
func (u *UserAccount) OpenOrders() []*Order {
	out := make([]*Order, 0, MaxOrdersPerUser)
	for i := range u.Orders {
		if u.Orders[i].Status != StatusInit {
			out = append(out, &u.Orders[i])
		}
	}
	return out
}
