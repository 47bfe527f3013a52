package verifier

import (
	sdkmath "cosmossdk.io/math"

	"github.com/ammlabs/vaultcheck/types"
)

// ExpectedDiffs accumulates, over a batch of planned swap paths, the net
// balance movement the diff engine should observe. Each path debits the
// payer and credits the vault with the path's given input amount, and
// books the path's limit amount on the settlement token (the last step's
// token out): the minimum output for exact-in, the maximum input for
// exact-out. Contributions to the same token merge additively, so
// insertion order never matters. Built incrementally, consumed once by
// the comparison step, then discarded.
type ExpectedDiffs struct {
	vault types.Account

	entries     DiffMap
	tokenTotals map[string]sdkmath.Int
	settlements []sdkmath.Int
}

// NewExpectedDiffs starts an empty accumulator. The vault account is
// credited with every path input.
func NewExpectedDiffs(vault types.Account) *ExpectedDiffs {
	return &ExpectedDiffs{
		vault:       vault,
		entries:     make(DiffMap),
		tokenTotals: make(map[string]sdkmath.Int),
	}
}

// AddPath registers one planned path for the given sender. A path with no
// steps fails with ErrEmptyPath.
func (e *ExpectedDiffs) AddPath(sender types.Account, path types.SwapPath, kind types.SwapKind) error {
	settlementToken, err := path.SettlementToken()
	if err != nil {
		return err
	}

	var amountIn, amountOut sdkmath.Int
	var settlement sdkmath.Int
	switch kind {
	case types.SwapExactIn:
		// Given input, bounded output.
		amountIn = path.ExactAmount
		amountOut = path.Limit
		settlement = path.Limit
	case types.SwapExactOut:
		// Given output, bounded input.
		amountIn = path.Limit
		amountOut = path.ExactAmount
		settlement = path.Limit
	default:
		return types.ErrInvalidSwap.Wrapf("unknown swap kind %d", kind)
	}

	e.entries.Add(sender, path.TokenIn, amountIn.Neg())
	e.entries.Add(e.vault, path.TokenIn, amountIn)
	e.entries.Add(sender, settlementToken, amountOut)
	e.entries.Add(e.vault, settlementToken, amountOut.Neg())

	e.addTokenTotal(path.TokenIn, amountIn.Neg())
	e.addTokenTotal(settlementToken, amountOut)

	e.settlements = append(e.settlements, settlement)
	return nil
}

// addTokenTotal merge-adds a sender-side delta into the per-token totals.
func (e *ExpectedDiffs) addTokenTotal(token string, delta sdkmath.Int) {
	if current, ok := e.tokenTotals[token]; ok {
		e.tokenTotals[token] = current.Add(delta)
		return
	}
	e.tokenTotals[token] = delta
}

// Entries returns the accumulated per-(account, token) expected deltas.
func (e *ExpectedDiffs) Entries() DiffMap { return e.entries }

// TokenTotals returns the accumulated sender-side per-token expected
// deltas, for comparison against aggregated actual transfers. Key
// iteration order is irrelevant by construction.
func (e *ExpectedDiffs) TokenTotals() map[string]sdkmath.Int {
	totals := make(map[string]sdkmath.Int, len(e.tokenTotals))
	for token, delta := range e.tokenTotals {
		totals[token] = delta
	}
	return totals
}

// PathSettlements returns the expected per-path settlement amounts in
// registration order, for order-preserving comparison against the vault's
// returned per-path amounts.
func (e *ExpectedDiffs) PathSettlements() []sdkmath.Int {
	return append([]sdkmath.Int(nil), e.settlements...)
}
