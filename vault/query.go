package vault

import (
	sdkmath "cosmossdk.io/math"

	"github.com/ammlabs/vaultcheck/types"
)

// Query variants run an operation against a checkpoint and restore the
// store unconditionally, so committed state is never observable as
// changed — the snapshot-and-revert preview idiom made explicit.

// QueryAddLiquidity previews an add-liquidity operation.
func (e *Engine) QueryAddLiquidity(params AddLiquidityParams) ([]sdkmath.Int, sdkmath.Int, error) {
	cp := e.store.Checkpoint()
	defer e.store.Restore(cp)
	return e.AddLiquidity(params)
}

// QueryRemoveLiquidity previews a remove-liquidity operation.
func (e *Engine) QueryRemoveLiquidity(params RemoveLiquidityParams) (sdkmath.Int, []sdkmath.Int, error) {
	cp := e.store.Checkpoint()
	defer e.store.Restore(cp)
	return e.RemoveLiquidity(params)
}

// QuerySwap previews a single-hop swap.
func (e *Engine) QuerySwap(params SwapParams) (sdkmath.Int, error) {
	cp := e.store.Checkpoint()
	defer e.store.Restore(cp)
	return e.Swap(params)
}

// QuerySwapPathsExactIn previews a batch of exact-in paths.
func (e *Engine) QuerySwapPathsExactIn(sender types.Account, paths []types.SwapPath) ([]sdkmath.Int, error) {
	cp := e.store.Checkpoint()
	defer e.store.Restore(cp)
	return e.SwapPathsExactIn(sender, paths)
}

// QuerySwapPathsExactOut previews a batch of exact-out paths.
func (e *Engine) QuerySwapPathsExactOut(sender types.Account, paths []types.SwapPath) ([]sdkmath.Int, error) {
	cp := e.store.Checkpoint()
	defer e.store.Restore(cp)
	return e.SwapPathsExactOut(sender, paths)
}
