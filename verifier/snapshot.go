// Package verifier validates vault behavior from the outside: it captures
// balance snapshots around an operation, diffs them, accumulates the
// outcomes a batch of planned paths should produce, and checks invariant
// monotonicity — comparing prediction against observation within explicit
// tolerances rather than trusting the vault's own accounting.
package verifier

import (
	"slices"

	sdkmath "cosmossdk.io/math"

	"github.com/ammlabs/vaultcheck/state"
	"github.com/ammlabs/vaultcheck/types"
	"github.com/ammlabs/vaultcheck/utils"
)

// BalanceSnapshot is an immutable record of every watched account's token,
// share, and native balances plus the pool's raw balances and share supply,
// all read under the same state version. Snapshots are created fresh per
// scenario and discarded after comparison.
type BalanceSnapshot struct {
	accounts []types.Account
	tokens   []string
	pool     types.PoolID

	userBalances map[types.Account]map[string]sdkmath.Int
	lpBalances   map[types.Account]sdkmath.Int
	native       map[types.Account]sdkmath.Int
	poolBalances []sdkmath.Int
	totalSupply  sdkmath.Int
}

// Capture reads the balances of every (account, token) pair, each
// account's share and native balances, and the pool's raw balances and
// total share supply. Unknown accounts, tokens, or pools fail with
// ErrStateRead.
func Capture(store *state.Store, accounts []types.Account, tokens []string, pool types.PoolID) (*BalanceSnapshot, error) {
	p, err := store.GetPool(pool)
	if err != nil {
		return nil, types.ErrStateRead.Wrapf("pool: %s", err)
	}
	for _, token := range tokens {
		if _, err := store.GetToken(token); err != nil {
			return nil, types.ErrStateRead.Wrapf("token: %s", err)
		}
	}

	snap := &BalanceSnapshot{
		accounts:     append([]types.Account(nil), accounts...),
		tokens:       append([]string(nil), tokens...),
		pool:         pool,
		userBalances: make(map[types.Account]map[string]sdkmath.Int, len(accounts)),
		lpBalances:   make(map[types.Account]sdkmath.Int, len(accounts)),
		native:       make(map[types.Account]sdkmath.Int, len(accounts)),
		poolBalances: append([]sdkmath.Int(nil), p.Balances...),
		totalSupply:  p.TotalSupply,
	}

	for _, account := range accounts {
		balances := make(map[string]sdkmath.Int, len(tokens))
		for _, token := range tokens {
			balance, err := store.GetBalance(account, token)
			if err != nil {
				return nil, types.ErrStateRead.Wrapf("account %s: %s", account, err)
			}
			balances[token] = balance
		}
		snap.userBalances[account] = balances

		lp, err := store.GetBalance(account, p.ShareDenom)
		if err != nil {
			return nil, types.ErrStateRead.Wrapf("account %s: %s", account, err)
		}
		snap.lpBalances[account] = lp

		native, err := store.GetNativeBalance(account)
		if err != nil {
			return nil, types.ErrStateRead.Wrapf("account %s: %s", account, err)
		}
		snap.native[account] = native
	}
	return snap, nil
}

// Balance returns the captured balance of the given account and token.
func (s *BalanceSnapshot) Balance(account types.Account, token string) sdkmath.Int {
	return s.userBalances[account][token]
}

// LpBalance returns the captured pool-share balance of the given account.
func (s *BalanceSnapshot) LpBalance(account types.Account) sdkmath.Int {
	return s.lpBalances[account]
}

// PoolBalances returns the captured pool raw balances.
func (s *BalanceSnapshot) PoolBalances() []sdkmath.Int {
	return append([]sdkmath.Int(nil), s.poolBalances...)
}

// TotalSupply returns the captured pool share supply.
func (s *BalanceSnapshot) TotalSupply() sdkmath.Int { return s.totalSupply }

// DiffKey addresses one entry of a diff: an account's balance of a token.
type DiffKey struct {
	Account types.Account
	Token   string
}

// DiffMap maps diff keys to signed deltas (after minus before).
type DiffMap map[DiffKey]sdkmath.Int

// Add merge-adds a delta into the map.
func (m DiffMap) Add(account types.Account, token string, delta sdkmath.Int) {
	key := DiffKey{Account: account, Token: token}
	if current, ok := m[key]; ok {
		m[key] = current.Add(delta)
		return
	}
	m[key] = delta
}

// Diff subtracts two snapshots entry-wise. Both snapshots must cover the
// same accounts, tokens, and pool, else the diff fails with
// ErrSnapshotMismatch. Pool share deltas appear under the pool's share
// token key.
func Diff(before, after *BalanceSnapshot) (DiffMap, error) {
	if before.pool != after.pool {
		return nil, types.ErrSnapshotMismatch.Wrapf("pools %s and %s", before.pool, after.pool)
	}
	if !slices.Equal(before.accounts, after.accounts) || !slices.Equal(before.tokens, after.tokens) {
		return nil, types.ErrSnapshotMismatch.Wrap("account or token sets differ")
	}

	diffs := make(DiffMap)
	for _, account := range before.accounts {
		for _, token := range before.tokens {
			delta := after.userBalances[account][token].Sub(before.userBalances[account][token])
			if !delta.IsZero() {
				diffs.Add(account, token, delta)
			}
		}
		if lpDelta := after.lpBalances[account].Sub(before.lpBalances[account]); !lpDelta.IsZero() {
			diffs.Add(account, lpShareKey, lpDelta)
		}
	}
	return diffs, nil
}

// lpShareKey is the token key under which pool-share deltas are reported.
const lpShareKey = "pool-shares"

// PoolBalanceDeltas returns the signed per-token movement of the pool's
// raw balances between two snapshots.
func PoolBalanceDeltas(before, after *BalanceSnapshot) ([]sdkmath.Int, error) {
	if before.pool != after.pool || len(before.poolBalances) != len(after.poolBalances) {
		return nil, types.ErrSnapshotMismatch.Wrap("pool coverage differs")
	}
	deltas := make([]sdkmath.Int, len(before.poolBalances))
	for i := range before.poolBalances {
		deltas[i] = after.poolBalances[i].Sub(before.poolBalances[i])
	}
	return deltas, nil
}

// SupplyDelta returns the signed share-supply movement between snapshots.
func SupplyDelta(before, after *BalanceSnapshot) (sdkmath.Int, error) {
	if before.pool != after.pool {
		return sdkmath.Int{}, types.ErrSnapshotMismatch.Wrapf("pools %s and %s", before.pool, after.pool)
	}
	return after.totalSupply.Sub(before.totalSupply), nil
}

// WithinTolerance reports whether |a - b| <= tolerance.
func WithinTolerance(a, b, tolerance sdkmath.Int) bool {
	return utils.AbsDiff(a, b).LTE(tolerance)
}
