package vault

import (
	sdkmath "cosmossdk.io/math"

	"github.com/ammlabs/vaultcheck/state"
	"github.com/ammlabs/vaultcheck/types"
	"github.com/ammlabs/vaultcheck/utils"
)

// AddLiquidityParams describes one add-liquidity operation. Field roles
// depend on Kind:
//   - Proportional: BptAmount is the exact share amount to mint; AmountsIn,
//     when non-nil, caps each token's contribution.
//   - Unbalanced: AmountsIn are the exact contributions; BptAmount is the
//     minimum acceptable share amount.
//   - SingleTokenExactIn: AmountsIn[TokenIndex] is the exact contribution
//     (all other entries zero); BptAmount is the minimum share amount.
//   - SingleTokenExactOut: BptAmount is the exact share amount;
//     AmountsIn[TokenIndex] caps the contribution.
type AddLiquidityParams struct {
	Pool       types.PoolID
	Sender     types.Account
	Kind       types.AddLiquidityKind
	AmountsIn  []sdkmath.Int
	BptAmount  sdkmath.Int
	TokenIndex int
}

// RemoveLiquidityParams describes one remove-liquidity operation. Field
// roles depend on Kind:
//   - Proportional: BptAmount is the exact share amount to burn;
//     AmountsOut, when non-nil, sets each token's minimum payout.
//   - SingleTokenExactIn: BptAmount is the exact share amount to burn;
//     AmountsOut[TokenIndex] is the minimum payout.
//   - SingleTokenExactOut: AmountsOut[TokenIndex] is the exact payout;
//     BptAmount caps the share amount burned.
type RemoveLiquidityParams struct {
	Pool       types.PoolID
	Sender     types.Account
	Kind       types.RemoveLiquidityKind
	BptAmount  sdkmath.Int
	AmountsOut []sdkmath.Int
	TokenIndex int
}

// AddLiquidity executes an add-liquidity operation and returns the actual
// per-token contributions and the share amount minted. On error the store
// is left untouched.
func (e *Engine) AddLiquidity(params AddLiquidityParams) ([]sdkmath.Int, sdkmath.Int, error) {
	p, err := e.store.GetPool(params.Pool)
	if err != nil {
		return nil, sdkmath.Int{}, err
	}
	if !p.TotalSupply.IsPositive() {
		return nil, sdkmath.Int{}, types.ErrInsufficientLiquidity.Wrapf("pool %s not initialized", params.Pool)
	}

	var amountsIn []sdkmath.Int
	var bptOut sdkmath.Int
	switch params.Kind {
	case types.AddLiquidityProportional:
		amountsIn, bptOut, err = computeAddProportional(p, params.BptAmount)
	case types.AddLiquidityUnbalanced:
		amountsIn, bptOut, err = computeAddUnbalanced(p, params.AmountsIn)
	case types.AddLiquiditySingleTokenExactIn:
		amountsIn, bptOut, err = computeAddSingleTokenExactIn(p, params.TokenIndex, params.AmountsIn)
	case types.AddLiquiditySingleTokenExactOut:
		amountsIn, bptOut, err = computeAddSingleTokenExactOut(p, params.TokenIndex, params.BptAmount)
	default:
		err = types.ErrInvalidRequest.Wrapf("unknown add liquidity kind %d", params.Kind)
	}
	if err != nil {
		return nil, sdkmath.Int{}, err
	}

	if err := checkAddLimits(params, amountsIn, bptOut); err != nil {
		return nil, sdkmath.Int{}, err
	}

	invBefore, err := ComputeInvariant(p.Balances, types.RoundDown)
	if err != nil {
		return nil, sdkmath.Int{}, err
	}

	cp := e.store.Checkpoint()
	for i, token := range p.Tokens {
		if amountsIn[i].IsZero() {
			continue
		}
		if err := e.store.Transfer(params.Sender, VaultAccount, token.Symbol, amountsIn[i]); err != nil {
			e.store.Restore(cp)
			return nil, sdkmath.Int{}, err
		}
		p.Balances[i] = p.Balances[i].Add(amountsIn[i])
	}

	// Proportional adds cannot skew the pool, so the ratio band only
	// applies to the other kinds.
	invAfter, err := ComputeInvariant(p.Balances, types.RoundDown)
	if err == nil && params.Kind != types.AddLiquidityProportional {
		err = checkInvariantRatio(p, invBefore, invAfter)
	}
	if err == nil {
		err = e.mintShares(p, params.Sender, bptOut)
	}
	if err != nil {
		e.store.Restore(cp)
		return nil, sdkmath.Int{}, err
	}

	e.logger.Debug("liquidity added", "pool", params.Pool, "kind", params.Kind.String(), "bpt_out", bptOut)
	e.emit(types.NewEventLiquidityAdded(params.Pool, params.Sender, params.Kind, amountsIn, bptOut))
	return amountsIn, bptOut, nil
}

// RemoveLiquidity executes a remove-liquidity operation and returns the
// share amount burned and the actual per-token payouts. On error the store
// is left untouched.
func (e *Engine) RemoveLiquidity(params RemoveLiquidityParams) (sdkmath.Int, []sdkmath.Int, error) {
	p, err := e.store.GetPool(params.Pool)
	if err != nil {
		return sdkmath.Int{}, nil, err
	}
	if !p.TotalSupply.IsPositive() {
		return sdkmath.Int{}, nil, types.ErrInsufficientLiquidity.Wrapf("pool %s not initialized", params.Pool)
	}

	var bptIn sdkmath.Int
	var amountsOut []sdkmath.Int
	switch params.Kind {
	case types.RemoveLiquidityProportional:
		bptIn, amountsOut, err = computeRemoveProportional(p, params.BptAmount)
	case types.RemoveLiquiditySingleTokenExactIn:
		bptIn, amountsOut, err = computeRemoveSingleTokenExactIn(p, params.TokenIndex, params.BptAmount)
	case types.RemoveLiquiditySingleTokenExactOut:
		bptIn, amountsOut, err = computeRemoveSingleTokenExactOut(p, params.TokenIndex, params.AmountsOut)
	default:
		err = types.ErrInvalidRequest.Wrapf("unknown remove liquidity kind %d", params.Kind)
	}
	if err != nil {
		return sdkmath.Int{}, nil, err
	}

	if err := checkRemoveLimits(params, bptIn, amountsOut); err != nil {
		return sdkmath.Int{}, nil, err
	}

	invBefore, err := ComputeInvariant(p.Balances, types.RoundDown)
	if err != nil {
		return sdkmath.Int{}, nil, err
	}

	cp := e.store.Checkpoint()
	if err := e.burnShares(p, params.Sender, bptIn); err != nil {
		e.store.Restore(cp)
		return sdkmath.Int{}, nil, err
	}
	for i, token := range p.Tokens {
		if amountsOut[i].IsZero() {
			continue
		}
		if err := e.store.Transfer(VaultAccount, params.Sender, token.Symbol, amountsOut[i]); err != nil {
			e.store.Restore(cp)
			return sdkmath.Int{}, nil, err
		}
		p.Balances[i] = p.Balances[i].Sub(amountsOut[i])
	}

	invAfter, err := ComputeInvariant(p.Balances, types.RoundDown)
	if err == nil && params.Kind != types.RemoveLiquidityProportional {
		err = checkInvariantRatio(p, invBefore, invAfter)
	}
	if err != nil {
		e.store.Restore(cp)
		return sdkmath.Int{}, nil, err
	}

	e.logger.Debug("liquidity removed", "pool", params.Pool, "kind", params.Kind.String(), "bpt_in", bptIn)
	e.emit(types.NewEventLiquidityRemoved(params.Pool, params.Sender, params.Kind, bptIn, amountsOut))
	return bptIn, amountsOut, nil
}

// checkAddLimits enforces the caller's per-kind limits on an add.
func checkAddLimits(params AddLiquidityParams, amountsIn []sdkmath.Int, bptOut sdkmath.Int) error {
	switch params.Kind {
	case types.AddLiquidityProportional, types.AddLiquiditySingleTokenExactOut:
		if params.AmountsIn == nil {
			return nil
		}
		for i, amount := range amountsIn {
			if amount.GT(params.AmountsIn[i]) {
				return types.ErrAmountInAboveMax.Wrapf("token %d needs %s, max %s", i, amount, params.AmountsIn[i])
			}
		}
	default:
		if !params.BptAmount.IsNil() && bptOut.LT(params.BptAmount) {
			return types.ErrBptAmountOutBelowMin.Wrapf("calculated %s, min %s", bptOut, params.BptAmount)
		}
	}
	return nil
}

// checkRemoveLimits enforces the caller's per-kind limits on a remove.
func checkRemoveLimits(params RemoveLiquidityParams, bptIn sdkmath.Int, amountsOut []sdkmath.Int) error {
	if params.Kind == types.RemoveLiquiditySingleTokenExactOut {
		if !params.BptAmount.IsNil() && bptIn.GT(params.BptAmount) {
			return types.ErrBptAmountInAboveMax.Wrapf("required %s, max %s", bptIn, params.BptAmount)
		}
		return nil
	}
	if params.AmountsOut == nil {
		return nil
	}
	for i, amount := range amountsOut {
		if amount.LT(params.AmountsOut[i]) {
			return types.ErrAmountOutBelowMin.Wrapf("token %d pays %s, min %s", i, amount, params.AmountsOut[i])
		}
	}
	return nil
}

// computeAddProportional derives the per-token contributions that mint
// exactly bptOut shares. Contributions round up so the pool never mints
// shares against less value than it receives.
func computeAddProportional(p *state.Pool, bptOut sdkmath.Int) ([]sdkmath.Int, sdkmath.Int, error) {
	if bptOut.IsNil() || !bptOut.IsPositive() {
		return nil, sdkmath.Int{}, types.ErrInvalidRequest.Wrap("bpt amount must be positive")
	}
	amountsIn := make([]sdkmath.Int, len(p.Balances))
	for i, balance := range p.Balances {
		amount, err := utils.MulDiv(balance, bptOut, p.TotalSupply, types.RoundUp)
		if err != nil {
			return nil, sdkmath.Int{}, err
		}
		amountsIn[i] = amount
	}
	return amountsIn, bptOut, nil
}

// computeAddUnbalanced derives the share amount minted for exact
// contributions. The swap fee is charged on each token's contribution in
// excess of its proportional part: shares are minted against the
// fee-reduced invariant while the full contributions enter the pool, so
// fees accrue to existing holders.
func computeAddUnbalanced(p *state.Pool, exactAmountsIn []sdkmath.Int) ([]sdkmath.Int, sdkmath.Int, error) {
	if len(exactAmountsIn) != len(p.Balances) {
		return nil, sdkmath.Int{}, types.ErrInvalidRequest.Wrapf("expected %d amounts, got %d", len(p.Balances), len(exactAmountsIn))
	}

	invBefore, err := ComputeInvariant(p.Balances, types.RoundDown)
	if err != nil {
		return nil, sdkmath.Int{}, err
	}

	newBalances := make([]sdkmath.Int, len(p.Balances))
	for i, balance := range p.Balances {
		if exactAmountsIn[i].IsNil() || exactAmountsIn[i].IsNegative() {
			return nil, sdkmath.Int{}, types.ErrInvalidRequest.Wrapf("amount %d is negative or nil", i)
		}
		newBalances[i], err = utils.CheckedAdd(balance, exactAmountsIn[i])
		if err != nil {
			return nil, sdkmath.Int{}, err
		}
	}

	invAfter, err := ComputeInvariant(newBalances, types.RoundDown)
	if err != nil {
		return nil, sdkmath.Int{}, err
	}
	ratio, err := invariantRatio(invBefore, invAfter)
	if err != nil {
		return nil, sdkmath.Int{}, err
	}

	// Fee-reduced balances: tax the portion of each contribution beyond a
	// proportional one.
	growth := ratio.Sub(sdkmath.LegacyOneDec())
	feeAdjusted := make([]sdkmath.Int, len(p.Balances))
	for i, balance := range p.Balances {
		proportional := utils.MulDec(balance, growth, types.RoundUp)
		fee := sdkmath.ZeroInt()
		if exactAmountsIn[i].GT(proportional) {
			taxable := exactAmountsIn[i].Sub(proportional)
			fee = utils.MulDec(taxable, p.SwapFee, types.RoundUp)
		}
		feeAdjusted[i] = newBalances[i].Sub(fee)
	}

	invAfterFee, err := ComputeInvariant(feeAdjusted, types.RoundDown)
	if err != nil {
		return nil, sdkmath.Int{}, err
	}
	if invAfterFee.LT(invBefore) {
		invAfterFee = invBefore
	}

	bptOut, err := utils.MulDiv(p.TotalSupply, invAfterFee.Sub(invBefore), invBefore, types.RoundDown)
	if err != nil {
		return nil, sdkmath.Int{}, err
	}
	return append([]sdkmath.Int(nil), exactAmountsIn...), bptOut, nil
}

// computeAddSingleTokenExactIn is the unbalanced computation restricted to
// a single token.
func computeAddSingleTokenExactIn(p *state.Pool, tokenIndex int, amountsIn []sdkmath.Int) ([]sdkmath.Int, sdkmath.Int, error) {
	if err := validTokenIndex(p, tokenIndex); err != nil {
		return nil, sdkmath.Int{}, err
	}
	if len(amountsIn) != len(p.Balances) {
		return nil, sdkmath.Int{}, types.ErrInvalidRequest.Wrapf("expected %d amounts, got %d", len(p.Balances), len(amountsIn))
	}
	for i, amount := range amountsIn {
		if i != tokenIndex && !amount.IsZero() {
			return nil, sdkmath.Int{}, types.ErrInvalidRequest.Wrapf("single-token add must only fund token %d", tokenIndex)
		}
	}
	return computeAddUnbalanced(p, amountsIn)
}

// computeAddSingleTokenExactOut derives the single-token contribution that
// mints exactly bptOut shares. The required amount rounds up and the swap
// fee on the non-proportional portion is grossed up, both in the pool's
// favor.
func computeAddSingleTokenExactOut(p *state.Pool, tokenIndex int, bptOut sdkmath.Int) ([]sdkmath.Int, sdkmath.Int, error) {
	if err := validTokenIndex(p, tokenIndex); err != nil {
		return nil, sdkmath.Int{}, err
	}
	if bptOut.IsNil() || !bptOut.IsPositive() {
		return nil, sdkmath.Int{}, types.ErrInvalidRequest.Wrap("bpt amount must be positive")
	}

	invBefore, err := ComputeInvariant(p.Balances, types.RoundUp)
	if err != nil {
		return nil, sdkmath.Int{}, err
	}
	supplyAfter, err := utils.CheckedAdd(p.TotalSupply, bptOut)
	if err != nil {
		return nil, sdkmath.Int{}, err
	}
	invTarget, err := utils.MulDiv(invBefore, supplyAfter, p.TotalSupply, types.RoundUp)
	if err != nil {
		return nil, sdkmath.Int{}, err
	}

	otherIndex := 1 - tokenIndex
	otherBalance := p.Balances[otherIndex]
	if !otherBalance.IsPositive() {
		return nil, sdkmath.Int{}, types.ErrInsufficientLiquidity.Wrapf("token %d balance is zero", otherIndex)
	}

	// newBalance is the smallest balance whose invariant reaches the target.
	newBalance, err := utils.MulDiv(invTarget, invTarget, otherBalance, types.RoundUp)
	if err != nil {
		return nil, sdkmath.Int{}, err
	}
	amountNoFee, err := utils.CheckedSub(newBalance, p.Balances[tokenIndex])
	if err != nil {
		amountNoFee = sdkmath.ZeroInt()
	}

	proportional, err := utils.MulDiv(p.Balances[tokenIndex], bptOut, p.TotalSupply, types.RoundUp)
	if err != nil {
		return nil, sdkmath.Int{}, err
	}
	taxable := sdkmath.ZeroInt()
	if amountNoFee.GT(proportional) {
		taxable = amountNoFee.Sub(proportional)
	}
	fee := grossUpFee(taxable, p.SwapFee)

	amountIn, err := utils.CheckedAdd(amountNoFee, fee)
	if err != nil {
		return nil, sdkmath.Int{}, err
	}

	amountsIn := zeroAmounts(len(p.Balances))
	amountsIn[tokenIndex] = amountIn
	return amountsIn, bptOut, nil
}

// computeRemoveProportional derives the per-token payouts for burning
// exactly bptIn shares. Payouts round down.
func computeRemoveProportional(p *state.Pool, bptIn sdkmath.Int) (sdkmath.Int, []sdkmath.Int, error) {
	if bptIn.IsNil() || !bptIn.IsPositive() {
		return sdkmath.Int{}, nil, types.ErrInvalidRequest.Wrap("bpt amount must be positive")
	}
	if bptIn.GT(p.TotalSupply) {
		return sdkmath.Int{}, nil, types.ErrInsufficientLiquidity.Wrapf("burning %s exceeds supply %s", bptIn, p.TotalSupply)
	}
	amountsOut := make([]sdkmath.Int, len(p.Balances))
	for i, balance := range p.Balances {
		amount, err := utils.MulDiv(balance, bptIn, p.TotalSupply, types.RoundDown)
		if err != nil {
			return sdkmath.Int{}, nil, err
		}
		amountsOut[i] = amount
	}
	return bptIn, amountsOut, nil
}

// computeRemoveSingleTokenExactIn derives the single-token payout for
// burning exactly bptIn shares. The post-burn invariant target rounds up
// and the swap fee applies to the payout beyond the proportional part.
func computeRemoveSingleTokenExactIn(p *state.Pool, tokenIndex int, bptIn sdkmath.Int) (sdkmath.Int, []sdkmath.Int, error) {
	if err := validTokenIndex(p, tokenIndex); err != nil {
		return sdkmath.Int{}, nil, err
	}
	if bptIn.IsNil() || !bptIn.IsPositive() {
		return sdkmath.Int{}, nil, types.ErrInvalidRequest.Wrap("bpt amount must be positive")
	}
	if bptIn.GTE(p.TotalSupply) {
		return sdkmath.Int{}, nil, types.ErrInsufficientLiquidity.Wrapf("single-token burn of %s would drain supply %s", bptIn, p.TotalSupply)
	}

	invBefore, err := ComputeInvariant(p.Balances, types.RoundDown)
	if err != nil {
		return sdkmath.Int{}, nil, err
	}
	supplyAfter := p.TotalSupply.Sub(bptIn)
	invTarget, err := utils.MulDiv(invBefore, supplyAfter, p.TotalSupply, types.RoundUp)
	if err != nil {
		return sdkmath.Int{}, nil, err
	}

	otherIndex := 1 - tokenIndex
	otherBalance := p.Balances[otherIndex]
	if !otherBalance.IsPositive() {
		return sdkmath.Int{}, nil, types.ErrInsufficientLiquidity.Wrapf("token %d balance is zero", otherIndex)
	}

	newBalance, err := utils.MulDiv(invTarget, invTarget, otherBalance, types.RoundUp)
	if err != nil {
		return sdkmath.Int{}, nil, err
	}
	grossOut := sdkmath.ZeroInt()
	if p.Balances[tokenIndex].GT(newBalance) {
		grossOut = p.Balances[tokenIndex].Sub(newBalance)
	}

	proportional, err := utils.MulDiv(p.Balances[tokenIndex], bptIn, p.TotalSupply, types.RoundDown)
	if err != nil {
		return sdkmath.Int{}, nil, err
	}
	taxable := sdkmath.ZeroInt()
	if grossOut.GT(proportional) {
		taxable = grossOut.Sub(proportional)
	}
	fee := utils.MulDec(taxable, p.SwapFee, types.RoundUp)

	amountOut, err := utils.CheckedSub(grossOut, fee)
	if err != nil {
		amountOut = sdkmath.ZeroInt()
	}

	amountsOut := zeroAmounts(len(p.Balances))
	amountsOut[tokenIndex] = amountOut
	return bptIn, amountsOut, nil
}

// computeRemoveSingleTokenExactOut derives the share amount burned for an
// exact single-token payout. The burn rounds up and the swap fee on the
// payout is grossed up, both in the pool's favor.
func computeRemoveSingleTokenExactOut(p *state.Pool, tokenIndex int, amountsOut []sdkmath.Int) (sdkmath.Int, []sdkmath.Int, error) {
	if err := validTokenIndex(p, tokenIndex); err != nil {
		return sdkmath.Int{}, nil, err
	}
	if len(amountsOut) != len(p.Balances) {
		return sdkmath.Int{}, nil, types.ErrInvalidRequest.Wrapf("expected %d amounts, got %d", len(p.Balances), len(amountsOut))
	}
	amountOut := amountsOut[tokenIndex]
	if amountOut.IsNil() || !amountOut.IsPositive() {
		return sdkmath.Int{}, nil, types.ErrInvalidRequest.Wrap("amount out must be positive")
	}
	for i, amount := range amountsOut {
		if i != tokenIndex && !amount.IsZero() {
			return sdkmath.Int{}, nil, types.ErrInvalidRequest.Wrapf("single-token remove must only pay token %d", tokenIndex)
		}
	}

	invBefore, err := ComputeInvariant(p.Balances, types.RoundDown)
	if err != nil {
		return sdkmath.Int{}, nil, err
	}

	fee := grossUpFee(amountOut, p.SwapFee)
	effectiveOut, err := utils.CheckedAdd(amountOut, fee)
	if err != nil {
		return sdkmath.Int{}, nil, err
	}
	if effectiveOut.GTE(p.Balances[tokenIndex]) {
		return sdkmath.Int{}, nil, types.ErrInsufficientLiquidity.Wrapf("payout %s (with fee) would drain token %d balance %s", effectiveOut, tokenIndex, p.Balances[tokenIndex])
	}

	newBalances := append([]sdkmath.Int(nil), p.Balances...)
	newBalances[tokenIndex] = newBalances[tokenIndex].Sub(effectiveOut)
	invAfter, err := ComputeInvariant(newBalances, types.RoundDown)
	if err != nil {
		return sdkmath.Int{}, nil, err
	}

	bptIn, err := utils.MulDiv(p.TotalSupply, invBefore.Sub(invAfter), invBefore, types.RoundUp)
	if err != nil {
		return sdkmath.Int{}, nil, err
	}

	out := zeroAmounts(len(p.Balances))
	out[tokenIndex] = amountOut
	return bptIn, out, nil
}

// grossUpFee returns the fee to add on top of a fee-exclusive amount so
// the fee rate applies to the gross total: ceil(amount * fee / (1 - fee)).
func grossUpFee(amount sdkmath.Int, fee sdkmath.LegacyDec) sdkmath.Int {
	if fee.IsZero() || amount.IsZero() {
		return sdkmath.ZeroInt()
	}
	gross := sdkmath.LegacyNewDecFromInt(amount).Mul(fee).Quo(sdkmath.LegacyOneDec().Sub(fee))
	return gross.Ceil().TruncateInt()
}

// validTokenIndex checks a single-token operation's token index.
func validTokenIndex(p *state.Pool, tokenIndex int) error {
	if tokenIndex < 0 || tokenIndex >= len(p.Tokens) {
		return types.ErrInvalidRequest.Wrapf("token index %d out of range", tokenIndex)
	}
	return nil
}

// zeroAmounts returns a slice of n zero amounts.
func zeroAmounts(n int) []sdkmath.Int {
	amounts := make([]sdkmath.Int, n)
	for i := range amounts {
		amounts[i] = sdkmath.ZeroInt()
	}
	return amounts
}
