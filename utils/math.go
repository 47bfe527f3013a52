package utils

import (
	"math/big"

	sdkmath "cosmossdk.io/math"

	"github.com/ammlabs/vaultcheck/types"
)

// maxAmount is the exclusive upper bound for all amounts, mirroring the
// 256-bit unsigned range of the amounts being verified.
var maxAmount = new(big.Int).Exp(big.NewInt(2), big.NewInt(256), nil)

// CheckedAdd adds two amounts, failing with ErrOverflow if the result would
// exceed the 256-bit range.
func CheckedAdd(a, b sdkmath.Int) (sdkmath.Int, error) {
	result := new(big.Int).Add(a.BigInt(), b.BigInt())
	if result.Cmp(maxAmount) >= 0 {
		return sdkmath.Int{}, types.ErrOverflow.Wrapf("%s + %s", a, b)
	}
	return sdkmath.NewIntFromBigInt(result), nil
}

// CheckedSub subtracts b from a, failing with ErrUnderflow if the unsigned
// result would be negative.
func CheckedSub(a, b sdkmath.Int) (sdkmath.Int, error) {
	if a.LT(b) {
		return sdkmath.Int{}, types.ErrUnderflow.Wrapf("%s - %s", a, b)
	}
	return a.Sub(b), nil
}

// CheckedMul multiplies two amounts, failing with ErrOverflow if the result
// would exceed the 256-bit range.
func CheckedMul(a, b sdkmath.Int) (sdkmath.Int, error) {
	if a.IsZero() || b.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	result := new(big.Int).Mul(a.BigInt(), b.BigInt())
	if result.Cmp(maxAmount) >= 0 {
		return sdkmath.Int{}, types.ErrOverflow.Wrapf("%s * %s", a, b)
	}
	return sdkmath.NewIntFromBigInt(result), nil
}

// MulDiv computes a * b / c with an explicit rounding direction. The
// intermediate product is exact, so only the final division rounds.
// Fails with ErrOverflow if the result exceeds the 256-bit range, or
// ErrInvalidRequest on division by zero.
func MulDiv(a, b, c sdkmath.Int, rounding types.Rounding) (sdkmath.Int, error) {
	if c.IsZero() {
		return sdkmath.Int{}, types.ErrInvalidRequest.Wrap("division by zero")
	}
	product := new(big.Int).Mul(a.BigInt(), b.BigInt())
	quo, rem := new(big.Int).QuoRem(product, c.BigInt(), new(big.Int))
	if rounding == types.RoundUp && rem.Sign() != 0 {
		quo.Add(quo, big.NewInt(1))
	}
	if quo.Cmp(maxAmount) >= 0 {
		return sdkmath.Int{}, types.ErrOverflow.Wrapf("%s * %s / %s", a, b, c)
	}
	return sdkmath.NewIntFromBigInt(quo), nil
}

// MulDec multiplies an integer amount by a decimal factor with an explicit
// rounding direction.
func MulDec(a sdkmath.Int, d sdkmath.LegacyDec, rounding types.Rounding) sdkmath.Int {
	product := sdkmath.LegacyNewDecFromInt(a).Mul(d)
	if rounding == types.RoundUp {
		return product.Ceil().TruncateInt()
	}
	return product.TruncateInt()
}

// QuoDec divides an integer amount by a decimal divisor with an explicit
// rounding direction. The divisor must be non-zero.
func QuoDec(a sdkmath.Int, d sdkmath.LegacyDec, rounding types.Rounding) (sdkmath.Int, error) {
	if d.IsZero() {
		return sdkmath.Int{}, types.ErrInvalidRequest.Wrap("division by zero")
	}
	quotient := sdkmath.LegacyNewDecFromInt(a).Quo(d)
	if rounding == types.RoundUp {
		return quotient.Ceil().TruncateInt(), nil
	}
	return quotient.TruncateInt(), nil
}

// SqrtInt computes the integer square root of a with an explicit rounding
// direction. RoundUp returns the smallest s with s*s >= a.
func SqrtInt(a sdkmath.Int, rounding types.Rounding) sdkmath.Int {
	root := new(big.Int).Sqrt(a.BigInt())
	if rounding == types.RoundUp {
		sq := new(big.Int).Mul(root, root)
		if sq.Cmp(a.BigInt()) < 0 {
			root.Add(root, big.NewInt(1))
		}
	}
	return sdkmath.NewIntFromBigInt(root)
}

// MinInt returns the smaller of two amounts.
func MinInt(a, b sdkmath.Int) sdkmath.Int {
	if a.LT(b) {
		return a
	}
	return b
}

// MaxInt returns the larger of two amounts.
func MaxInt(a, b sdkmath.Int) sdkmath.Int {
	if a.GT(b) {
		return a
	}
	return b
}

// AbsDiff returns |a - b| for two unsigned amounts.
func AbsDiff(a, b sdkmath.Int) sdkmath.Int {
	if a.GTE(b) {
		return a.Sub(b)
	}
	return b.Sub(a)
}
