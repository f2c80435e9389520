package dlob

import (
	"fmt"
	"math/big"
)

// BigDecimalString wraps a *big.Int so it marshals as a JSON string of
// its decimal representation — the serialization spec.md §4.3 step 6 and
// the Design Notes require ("only the final JSON serialization coerces
// to decimal strings"). Plain *big.Int marshals as a bare JSON number
// (used deliberately by the /orders/json/raw endpoint, see
// ordersEntryRaw in internal/api/types.go);
// BigDecimalString is for every other response.
type BigDecimalString struct {
	v *big.Int
}

// NewBigDecimalString wraps v. A nil v marshals as "0".
func NewBigDecimalString(v *big.Int) *BigDecimalString {
	return &BigDecimalString{v: v}
}

func (b *BigDecimalString) MarshalJSON() ([]byte, error) {
	if b == nil || b.v == nil {
		return []byte(`"0"`), nil
	}
	return []byte(fmt.Sprintf("%q", b.v.String())), nil
}

func (b *BigDecimalString) UnmarshalJSON(data []byte) error {
	var s string
	if len(data) >= 2 && data[0] == '"' {
		s = string(data[1 : len(data)-1])
	} else {
		s = string(data)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return fmt.Errorf("invalid big integer string %q", s)
	}
	b.v = v
	return nil
}

// Int returns the wrapped *big.Int, or a zero value if nil.
func (b *BigDecimalString) Int() *big.Int {
	if b == nil || b.v == nil {
		return big.NewInt(0)
	}
	return b.v
}

// subNonNegative returns a-b floored at zero, guarding against a
// filled amount that (through a decode race) momentarily exceeds the
// order's total size.
func subNonNegative(a, b *big.Int) *big.Int {
	d := new(big.Int).Sub(a, b)
	if d.Sign() < 0 {
		return big.NewInt(0)
	}
	return d
}
