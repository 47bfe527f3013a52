package verifier

import (
	"math/big"

	sdkmath "cosmossdk.io/math"

	"github.com/ammlabs/vaultcheck/state"
	"github.com/ammlabs/vaultcheck/types"
)

// InvariantFn computes a pool invariant for the given raw balances with an
// explicit rounding direction. The function under test is supplied by the
// vault; the checker only requires that it is deterministic.
type InvariantFn func(balances []sdkmath.Int, rounding types.Rounding) (sdkmath.Int, error)

// GuardMode selects what the guard compares across the wrapped operation.
type GuardMode uint8

const (
	// GuardSwap compares the raw invariant. Swaps leave supply untouched,
	// so any decrease is an accounting bug.
	GuardSwap GuardMode = iota
	// GuardLiquidity compares the invariant normalized by share supply.
	// Liquidity operations move the raw invariant with supply; the
	// per-share value must never decrease.
	GuardLiquidity
)

// Checker arms at most one invariant guard at a time. The guarded scope is
// linear and non-reentrant: arming a second guard while one is outstanding
// fails with ErrNestedInvariantCheck.
type Checker struct {
	invariant InvariantFn
	armed     bool
}

// NewChecker creates a checker over the given invariant function.
func NewChecker(invariant InvariantFn) *Checker {
	return &Checker{invariant: invariant}
}

// Guard holds the before-invariant of an armed check. Verify must run
// exactly once, typically deferred so it fires even when the wrapped
// operation fails.
type Guard struct {
	checker *Checker
	store   *state.Store
	pool    types.PoolID
	mode    GuardMode

	before       sdkmath.Int
	beforeSupply sdkmath.Int
	verified     bool
}

// Begin captures the pool's current invariant and arms the checker. Both
// sides of the comparison round down: with a matched mode the integer
// square root is monotone, so a decrease of even one base unit in the
// underlying product reads as a decrease here, never as rounding noise.
func (c *Checker) Begin(store *state.Store, pool types.PoolID, mode GuardMode) (*Guard, error) {
	if c.armed {
		return nil, types.ErrNestedInvariantCheck.Wrapf("pool %s", pool)
	}
	p, err := store.GetPool(pool)
	if err != nil {
		return nil, types.ErrStateRead.Wrapf("pool: %s", err)
	}
	before, err := c.invariant(p.Balances, types.RoundDown)
	if err != nil {
		return nil, err
	}
	c.armed = true
	return &Guard{
		checker:      c,
		store:        store,
		pool:         pool,
		mode:         mode,
		before:       before,
		beforeSupply: p.TotalSupply,
	}, nil
}

// Verify recomputes the invariant and asserts it did not decrease,
// disarming the checker. A decrease is always a fatal assertion, reported
// as a typed InvariantDecreasedError carrying both values. Verify is
// idempotent: the second and later calls are no-ops.
func (g *Guard) Verify() error {
	if g.verified {
		return nil
	}
	g.verified = true
	g.checker.armed = false

	p, err := g.store.GetPool(g.pool)
	if err != nil {
		return types.ErrStateRead.Wrapf("pool: %s", err)
	}
	after, err := g.checker.invariant(p.Balances, types.RoundDown)
	if err != nil {
		return err
	}

	switch g.mode {
	case GuardLiquidity:
		// Compare invariant per share: before/beforeSupply <= after/afterSupply,
		// cross-multiplied to stay in integers.
		if !g.beforeSupply.IsPositive() || !p.TotalSupply.IsPositive() {
			return types.ErrStateRead.Wrap("pool share supply is zero")
		}
		// Exact big-integer cross products; the operands can each approach
		// the 256-bit range. One base unit of slack on the after side
		// absorbs the floor taken when the share mint rounds; a real
		// dilution moves the products apart by a multiple of the supply.
		lhs := new(big.Int).Mul(g.before.BigInt(), p.TotalSupply.BigInt())
		rhs := new(big.Int).Mul(after.Add(sdkmath.OneInt()).BigInt(), g.beforeSupply.BigInt())
		if rhs.Cmp(lhs) < 0 {
			return &types.InvariantDecreasedError{Before: g.before, After: after}
		}
	default:
		if after.LT(g.before) {
			return &types.InvariantDecreasedError{Before: g.before, After: after}
		}
	}
	return nil
}

// Before returns the invariant captured when the guard was armed.
func (g *Guard) Before() sdkmath.Int { return g.before }
