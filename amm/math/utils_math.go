package math

import (
	"github.com/holiman/uint256"

	"github.com/krazyTry/raydium-go/amm/shared"
)

var one = uint256.NewInt(1)

func u256(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

// MulDiv returns x*y/denominator computed with a 256-bit intermediate.
func MulDiv(x, y, denominator uint64, rounding shared.Rounding) (uint64, error) {
	return mulDiv(u256(x), u256(y), u256(denominator), rounding)
}

func mulDiv(x, y, denominator *uint256.Int, rounding shared.Rounding) (uint64, error) {
	r, err := mulDivU256(x, y, denominator, rounding)
	if err != nil {
		return 0, err
	}
	if !r.IsUint64() {
		return 0, shared.ErrArithmeticOverflow
	}
	return r.Uint64(), nil
}

func mulDivU256(x, y, denominator *uint256.Int, rounding shared.Rounding) (*uint256.Int, error) {
	if denominator.IsZero() {
		return nil, shared.ErrArithmeticOverflow
	}
	prod, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, shared.ErrArithmeticOverflow
	}
	quo, rem := new(uint256.Int), new(uint256.Int)
	quo.DivMod(prod, denominator, rem)
	if rounding == shared.RoundingUp && !rem.IsZero() {
		if _, overflow = quo.AddOverflow(quo, one); overflow {
			return nil, shared.ErrArithmeticOverflow
		}
	}
	return quo, nil
}

// mul2 multiplies two u64 values; the product always fits in 128 bits.
func mul2(a, b uint64) *uint256.Int {
	return new(uint256.Int).Mul(u256(a), u256(b))
}

func CheckedAdd(a, b uint64) (uint64, error) {
	s := a + b
	if s < a {
		return 0, shared.ErrArithmeticOverflow
	}
	return s, nil
}

func CheckedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, shared.ErrArithmeticOverflow
	}
	return a - b, nil
}

func CheckedMul(a, b uint64) (uint64, error) {
	p := mul2(a, b)
	if !p.IsUint64() {
		return 0, shared.ErrArithmeticOverflow
	}
	return p.Uint64(), nil
}

// SqrtProduct returns floor(sqrt(a*b)).
func SqrtProduct(a, b uint64) uint64 {
	// sqrt of a 128-bit value always fits in 64 bits
	return new(uint256.Int).Sqrt(mul2(a, b)).Uint64()
}

func Min(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
