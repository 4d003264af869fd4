package rangedb

import (
	"fmt"
	"math/bits"
)

// Uint128 is an unsigned 128-bit integer. IPv6 addresses are compared
// and delta-coded as Uint128 values; IPv4 addresses occupy the low 32
// bits with a zero high half.
type Uint128 struct {
	Hi uint64
	Lo uint64
}

func (u Uint128) Cmp(other Uint128) int {
	switch {
	case u.Hi < other.Hi:
		return -1
	case u.Hi > other.Hi:
		return 1
	case u.Lo < other.Lo:
		return -1
	case u.Lo > other.Lo:
		return 1
	}

	return 0
}

func (u Uint128) Less(other Uint128) bool {
	return u.Cmp(other) < 0
}

func (u Uint128) IsZero() bool {
	return u.Hi == 0 && u.Lo == 0
}

// Add panics on overflow: address arithmetic here never leaves the
// 128-bit space because range ends are validated before any math.
func (u Uint128) Add(other Uint128) Uint128 {
	lo, carry := bits.Add64(u.Lo, other.Lo, 0)
	hi, carry := bits.Add64(u.Hi, other.Hi, carry)

	if carry != 0 {
		panic(fmt.Sprintf("uint128 overflow: %v + %v", u, other))
	}

	return Uint128{Hi: hi, Lo: lo}
}

// Sub panics on underflow for the same reason Add panics on overflow:
// it is only called with sorted operands.
func (u Uint128) Sub(other Uint128) Uint128 {
	lo, borrow := bits.Sub64(u.Lo, other.Lo, 0)
	hi, borrow := bits.Sub64(u.Hi, other.Hi, borrow)

	if borrow != 0 {
		panic(fmt.Sprintf("uint128 underflow: %v - %v", u, other))
	}

	return Uint128{Hi: hi, Lo: lo}
}

func (u Uint128) Incr() Uint128 {
	return u.Add(Uint128{Lo: 1})
}

func (u Uint128) Decr() Uint128 {
	return u.Sub(Uint128{Lo: 1})
}

func (u Uint128) String() string {
	if u.Hi == 0 {
		return fmt.Sprintf("%d", u.Lo)
	}

	return fmt.Sprintf("0x%016x%016x", u.Hi, u.Lo)
}

// ParseDecimalUint128 parses a non-negative decimal integer of up to
// 128 bits. The tabular range sources store addresses this way.
func ParseDecimalUint128(text string) (Uint128, error) {
	if text == "" {
		return Uint128{}, fmt.Errorf("empty number")
	}

	rv := Uint128{}

	for i := 0; i < len(text); i++ {
		c := text[i]
		if c < '0' || c > '9' {
			return Uint128{}, fmt.Errorf("incorrect decimal number %q", text)
		}

		loCarry, lo1 := bits.Mul64(rv.Lo, 10)
		overflow, hi1 := bits.Mul64(rv.Hi, 10)
		if overflow != 0 {
			return Uint128{}, fmt.Errorf("number %q overflows 128 bits", text)
		}

		lo, carry := bits.Add64(lo1, uint64(c-'0'), 0)
		hi, carry := bits.Add64(hi1, loCarry, carry)
		if carry != 0 {
			return Uint128{}, fmt.Errorf("number %q overflows 128 bits", text)
		}

		rv = Uint128{Hi: hi, Lo: lo}
	}

	return rv, nil
}
