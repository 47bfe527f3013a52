package verifier

import (
	"fmt"
	"sort"
	"strings"

	sdkmath "cosmossdk.io/math"

	"github.com/ammlabs/vaultcheck/types"
	"github.com/ammlabs/vaultcheck/utils"
)

// CompareDiffs checks every expected per-(account, token) delta against
// the actual diff within an absolute tolerance — never hard equality,
// because fixed-point rate conversions introduce bounded drift. Entries
// present on only one side compare against zero. All violations are
// collected into a single error.
func CompareDiffs(expected, actual DiffMap, tolerance sdkmath.Int) error {
	var violations []string

	keys := make(map[DiffKey]struct{}, len(expected)+len(actual))
	for key := range expected {
		keys[key] = struct{}{}
	}
	for key := range actual {
		keys[key] = struct{}{}
	}

	for key := range keys {
		want := expected[key]
		got := actual[key]
		if want.IsNil() {
			want = sdkmath.ZeroInt()
		}
		if got.IsNil() {
			got = sdkmath.ZeroInt()
		}
		if !WithinTolerance(want, got, tolerance) {
			violations = append(violations, fmt.Sprintf("%s/%s: expected %s, got %s", key.Account, key.Token, want, got))
		}
	}
	if len(violations) > 0 {
		sort.Strings(violations)
		return types.ErrInvalidRequest.Wrapf("diff mismatch (tolerance %s): %s", tolerance, strings.Join(violations, "; "))
	}
	return nil
}

// ComparePathSettlements checks the vault's returned per-path amounts
// against the accumulator's predictions, order-preserving and directional:
// for exact-in the actual output must reach at least the predicted
// minimum; for exact-out the actual input must not exceed the predicted
// maximum. The tolerance loosens the bound by the declared rounding drift.
func ComparePathSettlements(predicted, actual []sdkmath.Int, kind types.SwapKind, tolerance sdkmath.Int) error {
	if len(predicted) != len(actual) {
		return types.ErrSnapshotMismatch.Wrapf("%d predicted paths, %d actual", len(predicted), len(actual))
	}
	for i := range predicted {
		switch kind {
		case types.SwapExactIn:
			if actual[i].Add(tolerance).LT(predicted[i]) {
				return types.ErrInvalidRequest.Wrapf("path %d: output %s below predicted minimum %s", i, actual[i], predicted[i])
			}
		case types.SwapExactOut:
			if actual[i].GT(predicted[i].Add(tolerance)) {
				return types.ErrInvalidRequest.Wrapf("path %d: input %s above predicted maximum %s", i, actual[i], predicted[i])
			}
		}
	}
	return nil
}

// CompareTokenTotals checks aggregated sender-side per-token deltas
// against the accumulator's totals within the tolerance, order-irrelevant.
func CompareTokenTotals(expected map[string]sdkmath.Int, actual DiffMap, sender types.Account, tolerance sdkmath.Int) error {
	var violations []string
	for token, want := range expected {
		got := actual[DiffKey{Account: sender, Token: token}]
		if got.IsNil() {
			got = sdkmath.ZeroInt()
		}
		if !WithinTolerance(want, got, tolerance) {
			violations = append(violations, fmt.Sprintf("%s: expected %s, got %s", token, want, got))
		}
	}
	if len(violations) > 0 {
		sort.Strings(violations)
		return types.ErrInvalidRequest.Wrapf("token total mismatch (tolerance %s): %s", tolerance, strings.Join(violations, "; "))
	}
	return nil
}

// AssertNoValueExtraction checks the core conservation property: paying
// amountsIn and later receiving amountsOut for the same share amount must
// never pay out more than was paid in, per token.
func AssertNoValueExtraction(amountsIn, amountsOut []sdkmath.Int) error {
	if len(amountsIn) != len(amountsOut) {
		return types.ErrSnapshotMismatch.Wrapf("%d amounts in, %d amounts out", len(amountsIn), len(amountsOut))
	}
	for i := range amountsIn {
		if amountsOut[i].GT(amountsIn[i]) {
			return types.ErrInvalidRequest.Wrapf("token %d: amount out %s exceeds amount in %s", i, amountsOut[i], amountsIn[i])
		}
	}
	return nil
}

// AssertProportional checks that two amounts agree within the given
// number of base units, the bound used for proportional-liquidity
// rounding checks.
func AssertProportional(a, b, maxDelta sdkmath.Int) error {
	if utils.AbsDiff(a, b).GT(maxDelta) {
		return types.ErrInvalidRequest.Wrapf("amounts %s and %s differ by more than %s", a, b, maxDelta)
	}
	return nil
}
