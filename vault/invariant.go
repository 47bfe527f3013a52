package vault

import (
	sdkmath "cosmossdk.io/math"

	"github.com/ammlabs/vaultcheck/state"
	"github.com/ammlabs/vaultcheck/types"
	"github.com/ammlabs/vaultcheck/utils"
)

// ComputeInvariant returns the pool's conserved quantity for the given raw
// balances with an explicit rounding direction:
//
//	invariant = sqrt(balances[0] * balances[1])
//
// The invariant is linear under proportional scaling, so the pool's share
// supply tracks it directly. Callers comparing invariants must use the same
// rounding on both sides.
func ComputeInvariant(balances []sdkmath.Int, rounding types.Rounding) (sdkmath.Int, error) {
	if len(balances) != state.PoolTokenCount {
		return sdkmath.Int{}, types.ErrInvalidPool.Wrapf("invariant needs %d balances, got %d", state.PoolTokenCount, len(balances))
	}
	for i, b := range balances {
		if b.IsNil() || b.IsNegative() {
			return sdkmath.Int{}, types.ErrInvalidRequest.Wrapf("balance %d is negative or nil", i)
		}
	}
	product, err := utils.CheckedMul(balances[0], balances[1])
	if err != nil {
		return sdkmath.Int{}, err
	}
	return utils.SqrtInt(product, rounding), nil
}

// invariantRatio returns after/before as an 18-decimal value. before must
// be positive.
func invariantRatio(before, after sdkmath.Int) (sdkmath.LegacyDec, error) {
	if !before.IsPositive() {
		return sdkmath.LegacyDec{}, types.ErrInsufficientLiquidity.Wrap("pool invariant is zero")
	}
	return sdkmath.LegacyNewDecFromInt(after).Quo(sdkmath.LegacyNewDecFromInt(before)), nil
}

// checkInvariantRatio enforces the pool's declared invariant-ratio band on
// a liquidity operation.
func checkInvariantRatio(pool *state.Pool, before, after sdkmath.Int) error {
	ratio, err := invariantRatio(before, after)
	if err != nil {
		return err
	}
	if ratio.LT(pool.MinInvariantRatio) {
		return types.ErrInvariantRatioBelow.Wrapf("ratio %s < min %s", ratio, pool.MinInvariantRatio)
	}
	if ratio.GT(pool.MaxInvariantRatio) {
		return types.ErrInvariantRatioAbove.Wrapf("ratio %s > max %s", ratio, pool.MaxInvariantRatio)
	}
	return nil
}

// GetMinimumInvariantRatio returns the pool's lower invariant-ratio bound
// for a single liquidity operation.
func (e *Engine) GetMinimumInvariantRatio(pool types.PoolID) (sdkmath.LegacyDec, error) {
	p, err := e.store.GetPool(pool)
	if err != nil {
		return sdkmath.LegacyDec{}, err
	}
	return p.MinInvariantRatio, nil
}

// GetMaximumInvariantRatio returns the pool's upper invariant-ratio bound
// for a single liquidity operation.
func (e *Engine) GetMaximumInvariantRatio(pool types.PoolID) (sdkmath.LegacyDec, error) {
	p, err := e.store.GetPool(pool)
	if err != nil {
		return sdkmath.LegacyDec{}, err
	}
	return p.MaxInvariantRatio, nil
}
