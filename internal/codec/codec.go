// Package codec implements the wire-compatible DLOB order encoding served
// by /orders/idl and /orders/idlWithSlot (spec.md §4.4, glossary "IDL
// encoding"). It is deliberately separate from internal/dlob's in-memory
// *big.Int representation: the wire format uses fixed-width integers to
// match the on-chain account layout byte-for-byte, the same split the
// teacher enrichment (ice-coldbell-easyclaw) keeps between its decoded
// domain types and its gagliardetto/binary-encoded wire types.
package codec

import (
	"bytes"
	"fmt"
	"math/big"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/moonape1226/dlob-server/internal/dlob"
)

// WireOrder is the Borsh-encodable, fixed-width mirror of dlob.Order.
// Field order is part of the wire contract — do not reorder.
type WireOrder struct {
	OrderID               uint32
	UserOrderID           uint8
	MarketType            uint8
	MarketIndex           uint16
	Status                uint8
	OrderType             uint8
	Direction             uint8
	Price                 uint64
	BaseAssetAmount       uint64
	BaseAssetAmountFilled uint64
	Slot                  uint64
	AuctionStartPrice     uint64
	AuctionEndPrice       uint64
	AuctionDuration       uint32
	PostOnly              bool
	ReduceOnly            bool
}

// WireEntry pairs a decoded order with the user account it rests on,
// the {user, order} tuple spec.md §4.4 describes.
type WireEntry struct {
	UserPubKey solana.PublicKey
	Order      WireOrder
}

// EncodeOrders flattens every open order across entries into the Borsh
// buffer /orders/idl returns verbatim. Orders that don't fit a uint64
// (beyond on-chain precision) are rejected rather than silently
// truncated.
func EncodeOrders(entries []dlob.IndexEntry) ([]byte, error) {
	var buf bytes.Buffer
	enc := bin.NewBorshEncoder(&buf)

	for _, entry := range entries {
		for _, o := range entry.Account.OpenOrders() {
			wire, err := toWireOrder(o)
			if err != nil {
				return nil, fmt.Errorf("order %d on %s: %w", o.OrderID, entry.PubKey, err)
			}
			if err := enc.Encode(WireEntry{UserPubKey: entry.PubKey, Order: wire}); err != nil {
				return nil, err
			}
		}
	}
	return buf.Bytes(), nil
}

// DecodeOrders reverses EncodeOrders. Used only by the round-trip test —
// the HTTP surface never needs to decode its own output — but it keeps
// the wire contract honest (spec.md invariant 6).
func DecodeOrders(data []byte) ([]WireEntry, error) {
	dec := bin.NewBorshDecoder(data)
	var out []WireEntry
	for dec.Remaining() > 0 {
		var e WireEntry
		if err := dec.Decode(&e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func toWireOrder(o *dlob.Order) (WireOrder, error) {
	price, err := bigToUint64(o.Price)
	if err != nil {
		return WireOrder{}, fmt.Errorf("price: %w", err)
	}
	baseAmt, err := bigToUint64(o.BaseAssetAmount)
	if err != nil {
		return WireOrder{}, fmt.Errorf("baseAssetAmount: %w", err)
	}
	baseFilled, err := bigToUint64(o.BaseAssetAmountFilled)
	if err != nil {
		return WireOrder{}, fmt.Errorf("baseAssetAmountFilled: %w", err)
	}
	auctionStart, err := bigToUint64(o.AuctionStartPrice)
	if err != nil {
		return WireOrder{}, fmt.Errorf("auctionStartPrice: %w", err)
	}
	auctionEnd, err := bigToUint64(o.AuctionEndPrice)
	if err != nil {
		return WireOrder{}, fmt.Errorf("auctionEndPrice: %w", err)
	}

	return WireOrder{
		OrderID:               o.OrderID,
		UserOrderID:           o.UserOrderID,
		MarketType:            uint8(o.MarketType),
		MarketIndex:           o.MarketIndex,
		Status:                uint8(o.Status),
		OrderType:             uint8(o.OrderType),
		Direction:             uint8(o.Direction),
		Price:                 price,
		BaseAssetAmount:       baseAmt,
		BaseAssetAmountFilled: baseFilled,
		Slot:                  o.Slot,
		AuctionStartPrice:     auctionStart,
		AuctionEndPrice:       auctionEnd,
		AuctionDuration:       o.AuctionDuration,
		PostOnly:              o.PostOnly,
		ReduceOnly:            o.ReduceOnly,
	}, nil
}

func bigToUint64(v *big.Int) (uint64, error) {
	if v == nil {
		return 0, nil
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("value %s does not fit in a u64", v)
	}
	return v.Uint64(), nil
}
