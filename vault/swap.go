package vault

import (
	"cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"

	"github.com/ammlabs/vaultcheck/types"
	"github.com/ammlabs/vaultcheck/utils"
)

// SwapParams describes one single-hop swap. For ExactIn, AmountGiven is
// the input and Limit the minimum acceptable output; for ExactOut,
// AmountGiven is the output and Limit the maximum acceptable input.
type SwapParams struct {
	Pool        types.PoolID
	Sender      types.Account
	Kind        types.SwapKind
	TokenIn     string
	TokenOut    string
	AmountGiven sdkmath.Int
	Limit       sdkmath.Int
}

// Swap executes one single-hop swap and returns the calculated amount: the
// output for ExactIn, the input for ExactOut. Rounding always favors the
// pool and the swap fee stays in the pool, so the invariant never
// decreases across a swap. On error the store is left untouched.
func (e *Engine) Swap(params SwapParams) (sdkmath.Int, error) {
	p, err := e.store.GetPool(params.Pool)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if params.TokenIn == params.TokenOut {
		return sdkmath.Int{}, types.ErrInvalidSwap.Wrap("cannot swap identical tokens")
	}
	if params.AmountGiven.IsNil() || !params.AmountGiven.IsPositive() {
		return sdkmath.Int{}, types.ErrInvalidSwap.Wrap("swap amount must be positive")
	}
	inIndex, err := p.TokenIndex(params.TokenIn)
	if err != nil {
		return sdkmath.Int{}, err
	}
	outIndex, err := p.TokenIndex(params.TokenOut)
	if err != nil {
		return sdkmath.Int{}, err
	}

	reserveIn := p.Balances[inIndex]
	reserveOut := p.Balances[outIndex]
	if !reserveIn.IsPositive() || !reserveOut.IsPositive() {
		return sdkmath.Int{}, types.ErrInsufficientLiquidity.Wrapf("pool %s has an empty side", params.Pool)
	}

	var amountIn, amountOut, fee sdkmath.Int
	switch params.Kind {
	case types.SwapExactIn:
		amountIn = params.AmountGiven
		fee = utils.MulDec(amountIn, p.SwapFee, types.RoundUp)
		inAfterFee, err := utils.CheckedSub(amountIn, fee)
		if err != nil || inAfterFee.IsZero() {
			return sdkmath.Int{}, types.ErrInvalidSwap.Wrapf("amount %s too small after fee %s", amountIn, fee)
		}
		denominator, err := utils.CheckedAdd(reserveIn, inAfterFee)
		if err != nil {
			return sdkmath.Int{}, err
		}
		amountOut, err = utils.MulDiv(reserveOut, inAfterFee, denominator, types.RoundDown)
		if err != nil {
			return sdkmath.Int{}, err
		}
		if !params.Limit.IsNil() && amountOut.LT(params.Limit) {
			return sdkmath.Int{}, types.ErrAmountOutBelowMin.Wrapf("calculated %s, min %s", amountOut, params.Limit)
		}
	case types.SwapExactOut:
		amountOut = params.AmountGiven
		if amountOut.GTE(reserveOut) {
			return sdkmath.Int{}, types.ErrInsufficientLiquidity.Wrapf("amount out %s exceeds reserve %s", amountOut, reserveOut)
		}
		inNoFee, err := utils.MulDiv(reserveIn, amountOut, reserveOut.Sub(amountOut), types.RoundUp)
		if err != nil {
			return sdkmath.Int{}, err
		}
		fee = grossUpFee(inNoFee, p.SwapFee)
		amountIn, err = utils.CheckedAdd(inNoFee, fee)
		if err != nil {
			return sdkmath.Int{}, err
		}
		if !params.Limit.IsNil() && amountIn.GT(params.Limit) {
			return sdkmath.Int{}, types.ErrAmountInAboveMax.Wrapf("required %s, max %s", amountIn, params.Limit)
		}
	default:
		return sdkmath.Int{}, types.ErrInvalidSwap.Wrapf("unknown swap kind %d", params.Kind)
	}

	if amountOut.GTE(reserveOut) {
		return sdkmath.Int{}, types.ErrInsufficientLiquidity.Wrapf("amount out %s exceeds reserve %s", amountOut, reserveOut)
	}

	cp := e.store.Checkpoint()
	if err := e.store.Transfer(params.Sender, VaultAccount, params.TokenIn, amountIn); err != nil {
		e.store.Restore(cp)
		return sdkmath.Int{}, err
	}
	if err := e.store.Transfer(VaultAccount, params.Sender, params.TokenOut, amountOut); err != nil {
		e.store.Restore(cp)
		return sdkmath.Int{}, err
	}
	p.Balances[inIndex] = p.Balances[inIndex].Add(amountIn)
	p.Balances[outIndex] = p.Balances[outIndex].Sub(amountOut)

	e.logger.Debug("swap executed",
		"pool", params.Pool,
		"kind", params.Kind.String(),
		"token_in", params.TokenIn,
		"token_out", params.TokenOut,
		"amount_in", amountIn,
		"amount_out", amountOut,
	)
	e.emit(types.NewEventSwap(params.Pool, params.Sender, params.Kind, params.TokenIn, params.TokenOut, amountIn, amountOut, fee))

	if params.Kind == types.SwapExactIn {
		return amountOut, nil
	}
	return amountIn, nil
}

// SwapPathsExactIn executes a batch of exact-in paths in order and returns
// each path's settlement amount (the output of its last step). A path
// whose final output lands below its Limit fails the whole batch, leaving
// the store untouched.
func (e *Engine) SwapPathsExactIn(sender types.Account, paths []types.SwapPath) ([]sdkmath.Int, error) {
	cp := e.store.Checkpoint()
	amountsOut := make([]sdkmath.Int, 0, len(paths))
	for i, path := range paths {
		out, err := e.swapPathExactIn(sender, path)
		if err != nil {
			e.store.Restore(cp)
			return nil, errors.Wrapf(err, "path %d", i)
		}
		amountsOut = append(amountsOut, out)
	}
	return amountsOut, nil
}

// SwapPathsExactOut executes a batch of exact-out paths in order and
// returns each path's settlement amount (the input of its first step).
func (e *Engine) SwapPathsExactOut(sender types.Account, paths []types.SwapPath) ([]sdkmath.Int, error) {
	cp := e.store.Checkpoint()
	amountsIn := make([]sdkmath.Int, 0, len(paths))
	for i, path := range paths {
		in, err := e.swapPathExactOut(sender, path)
		if err != nil {
			e.store.Restore(cp)
			return nil, errors.Wrapf(err, "path %d", i)
		}
		amountsIn = append(amountsIn, in)
	}
	return amountsIn, nil
}

// swapPathExactIn walks a path forward, feeding each step's output into
// the next, and checks the path limit against the final output.
func (e *Engine) swapPathExactIn(sender types.Account, path types.SwapPath) (sdkmath.Int, error) {
	if err := path.Validate(); err != nil {
		return sdkmath.Int{}, err
	}
	tokenIn := path.TokenIn
	amount := path.ExactAmount
	for _, step := range path.Steps {
		out, err := e.Swap(SwapParams{
			Pool:        step.Pool,
			Sender:      sender,
			Kind:        types.SwapExactIn,
			TokenIn:     tokenIn,
			TokenOut:    step.TokenOut,
			AmountGiven: amount,
			Limit:       sdkmath.ZeroInt(),
		})
		if err != nil {
			return sdkmath.Int{}, err
		}
		tokenIn = step.TokenOut
		amount = out
	}
	if amount.LT(path.Limit) {
		return sdkmath.Int{}, types.ErrAmountOutBelowMin.Wrapf("path yields %s, min %s", amount, path.Limit)
	}
	return amount, nil
}

// swapPathExactOut first derives the per-hop amounts by running the path
// backward against a checkpoint, then executes forward with the derived
// amounts so intermediate tokens are in hand when each hop needs them.
func (e *Engine) swapPathExactOut(sender types.Account, path types.SwapPath) (sdkmath.Int, error) {
	if err := path.Validate(); err != nil {
		return sdkmath.Int{}, err
	}

	// The backward derivation reads each pool's reserves once; a repeated
	// pool would derive a later hop against reserves an earlier hop is
	// about to move.
	seen := make(map[types.PoolID]struct{}, len(path.Steps))
	for _, step := range path.Steps {
		if _, ok := seen[step.Pool]; ok {
			return sdkmath.Int{}, types.ErrInvalidSwap.Wrapf("pool %s repeated in exact-out path", step.Pool)
		}
		seen[step.Pool] = struct{}{}
	}

	// Backward pass: the input of hop i is the output required from hop
	// i-1. Derivation is read-only, so every hop sees the same reserves
	// the forward pass will.
	stepIn := make([]string, len(path.Steps))
	tokenIn := path.TokenIn
	for i, step := range path.Steps {
		stepIn[i] = tokenIn
		tokenIn = step.TokenOut
	}

	hopOut := make([]sdkmath.Int, len(path.Steps))
	needed := path.ExactAmount
	for i := len(path.Steps) - 1; i >= 0; i-- {
		hopOut[i] = needed
		var err error
		needed, err = e.queryExactOutInput(path.Steps[i].Pool, stepIn[i], path.Steps[i].TokenOut, needed)
		if err != nil {
			return sdkmath.Int{}, err
		}
	}
	if needed.GT(path.Limit) {
		return sdkmath.Int{}, types.ErrAmountInAboveMax.Wrapf("path requires %s, max %s", needed, path.Limit)
	}

	// Forward pass with the derived per-hop outputs.
	total := sdkmath.ZeroInt()
	for i, step := range path.Steps {
		in, err := e.Swap(SwapParams{
			Pool:        step.Pool,
			Sender:      sender,
			Kind:        types.SwapExactOut,
			TokenIn:     stepIn[i],
			TokenOut:    step.TokenOut,
			AmountGiven: hopOut[i],
			Limit:       sdkmath.Int{}, // the path limit was already enforced on the total
		})
		if err != nil {
			return sdkmath.Int{}, err
		}
		if i == 0 {
			total = in
		}
	}
	return total, nil
}

// queryExactOutInput computes the input an exact-out hop would require
// without mutating pool balances.
func (e *Engine) queryExactOutInput(pool types.PoolID, tokenIn, tokenOut string, amountOut sdkmath.Int) (sdkmath.Int, error) {
	p, err := e.store.GetPool(pool)
	if err != nil {
		return sdkmath.Int{}, err
	}
	inIndex, err := p.TokenIndex(tokenIn)
	if err != nil {
		return sdkmath.Int{}, err
	}
	outIndex, err := p.TokenIndex(tokenOut)
	if err != nil {
		return sdkmath.Int{}, err
	}
	reserveIn, reserveOut := p.Balances[inIndex], p.Balances[outIndex]
	if amountOut.GTE(reserveOut) {
		return sdkmath.Int{}, types.ErrInsufficientLiquidity.Wrapf("amount out %s exceeds reserve %s", amountOut, reserveOut)
	}
	inNoFee, err := utils.MulDiv(reserveIn, amountOut, reserveOut.Sub(amountOut), types.RoundUp)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return utils.CheckedAdd(inNoFee, grossUpFee(inNoFee, p.SwapFee))
}
