// Package fuzzbound maps arbitrary integer inputs into the ranges the
// pool math accepts. Bounding is deterministic: the same raw input and
// bounds always produce the same value, so a failing case replays
// exactly from its seed.
package fuzzbound

import (
	sdkmath "cosmossdk.io/math"

	"github.com/ammlabs/vaultcheck/types"
	"github.com/ammlabs/vaultcheck/utils"
)

// BalanceRatioFloor limits how lopsided generated pool balances may be:
// every balance must be at least balances[0]/BalanceRatioFloor. Pools
// skewed beyond that produce outputs dominated by rounding and stop
// exercising the interesting math.
var BalanceRatioFloor = sdkmath.NewInt(1000)

// decUnit is the scale factor of an 18-decimal fixed-point value.
var decUnit = sdkmath.NewIntWithDecimal(1, sdkmath.LegacyPrecision)

// Amount maps raw into [min, max] inclusive by modulo reduction over the
// span. Negative raw values are reflected to their absolute value first.
func Amount(raw, min, max sdkmath.Int) (sdkmath.Int, error) {
	if min.GT(max) {
		return sdkmath.Int{}, types.ErrUnboundableInput.Wrapf("min %s exceeds max %s", min, max)
	}
	if raw.IsNegative() {
		raw = raw.Neg()
	}
	span := max.Sub(min).Add(sdkmath.OneInt())
	return min.Add(raw.Mod(span)), nil
}

// Balances bounds a slice of raw values into [min, max] and then raises
// any balance below the ratio floor relative to the first balance. The
// floor adjustment runs after bounding so the result stays in range only
// when min and max themselves respect the floor; callers pass pool-wide
// bounds, for which that always holds.
func Balances(raw []sdkmath.Int, min, max sdkmath.Int) ([]sdkmath.Int, error) {
	if len(raw) == 0 {
		return nil, types.ErrUnboundableInput.Wrap("no raw balances")
	}
	out := make([]sdkmath.Int, len(raw))
	for i, r := range raw {
		b, err := Amount(r, min, max)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	floor := out[0].Quo(BalanceRatioFloor)
	for i := 1; i < len(out); i++ {
		if out[i].LT(floor) {
			out[i] = floor
		}
	}
	return out, nil
}

// SwapFee bounds a raw value into a fee percentage in [min, max], both
// 18-decimal fixed point. The raw value is reduced over the span of the
// scaled integer representations, so every representable fee in the
// range is reachable.
func SwapFee(raw sdkmath.Int, min, max sdkmath.LegacyDec) (sdkmath.LegacyDec, error) {
	if min.IsNegative() || max.GTE(sdkmath.LegacyOneDec()) {
		return sdkmath.LegacyDec{}, types.ErrUnboundableInput.Wrapf("fee bounds [%s, %s] outside [0, 1)", min, max)
	}
	minScaled := sdkmath.NewIntFromBigInt(min.BigInt())
	maxScaled := sdkmath.NewIntFromBigInt(max.BigInt())
	bounded, err := Amount(raw, minScaled, maxScaled)
	if err != nil {
		return sdkmath.LegacyDec{}, err
	}
	return sdkmath.LegacyNewDecFromBigIntWithPrec(bounded.BigInt(), sdkmath.LegacyPrecision), nil
}

// AmountForInvariantRatio bounds an amount so that adding it to a pool
// balance keeps the invariant ratio at or below maxRatio. The ceiling is
// computed with checked arithmetic; if the multiply overflows, the bound
// saturates to one hundred times the current balance, which is already
// far past any ratio band the pool math accepts.
func AmountForInvariantRatio(raw, currentBalance sdkmath.Int, maxRatio sdkmath.LegacyDec) (sdkmath.Int, error) {
	if currentBalance.IsNil() || !currentBalance.IsPositive() {
		return sdkmath.Int{}, types.ErrUnboundableInput.Wrapf("current balance %s not positive", currentBalance)
	}
	ratioScaled := sdkmath.NewIntFromBigInt(maxRatio.BigInt())
	ceiling, err := utils.MulDiv(currentBalance, ratioScaled, decUnit, types.RoundDown)
	if err != nil {
		ceiling = currentBalance.MulRaw(100)
	}
	if ceiling.GT(currentBalance) {
		ceiling = ceiling.Sub(currentBalance)
	}
	if !ceiling.IsPositive() {
		ceiling = sdkmath.OneInt()
	}
	return Amount(raw, sdkmath.OneInt(), ceiling)
}
