package vault_test

import (
	"errors"
	"testing"

	"cosmossdk.io/log"
	sdkmath "cosmossdk.io/math"
	"pgregory.net/rapid"

	"github.com/ammlabs/vaultcheck/state"
	"github.com/ammlabs/vaultcheck/types"
	"github.com/ammlabs/vaultcheck/vault"
	"github.com/ammlabs/vaultcheck/verifier"
)

// newPropPool builds an initialized two-token pool with the given raw
// balances and fee, funded from a single well-stocked account.
func newPropPool(t *rapid.T, b0, b1 int64, fee sdkmath.LegacyDec) (*vault.Engine, types.PoolID, sdkmath.Int) {
	store := state.NewStore()
	engine := vault.New(store, log.NewNopLogger())

	for _, sym := range []string{"tok0", "tok1"} {
		if err := store.RegisterToken(types.Token{Symbol: sym, Decimals: 18}); err != nil {
			t.Fatal(err)
		}
	}
	store.RegisterAccount(provider)
	funding := sdkmath.NewInt(1).MulRaw(1 << 62).MulRaw(1 << 10)
	for _, sym := range []string{"tok0", "tok1"} {
		if err := store.AddBalance(provider, sym, funding); err != nil {
			t.Fatal(err)
		}
	}

	pool, err := engine.RegisterPool([]string{"tok0", "tok1"}, fee,
		sdkmath.LegacyMustNewDecFromStr("0.000001"), sdkmath.LegacyMustNewDecFromStr("1000000"))
	if err != nil {
		t.Fatal(err)
	}
	supply, err := engine.InitializePool(provider, pool, []sdkmath.Int{sdkmath.NewInt(b0), sdkmath.NewInt(b1)})
	if err != nil {
		t.Fatal(err)
	}
	return engine, pool, supply
}

// Adding liquidity proportionally and removing the same share amount can
// never pay out more of any token than was paid in.
func TestProportionalRoundTripNeverExtracts(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		b0 := rapid.Int64Range(1_000_000, 1<<50).Draw(rt, "b0")
		b1 := rapid.Int64Range(1_000_000, 1<<50).Draw(rt, "b1")
		pct := rapid.Int64Range(1, 100).Draw(rt, "pct")

		engine, pool, supply := newPropPool(rt, b0, b1, sdkmath.LegacyZeroDec())
		share := supply.MulRaw(pct).QuoRaw(100)
		if !share.IsPositive() {
			rt.Skip("share amount rounds to zero")
		}

		amountsIn, bptOut, err := engine.AddLiquidity(vault.AddLiquidityParams{
			Pool: pool, Sender: provider, Kind: types.AddLiquidityProportional, BptAmount: share,
		})
		if err != nil {
			rt.Fatal(err)
		}
		bptIn, amountsOut, err := engine.RemoveLiquidity(vault.RemoveLiquidityParams{
			Pool: pool, Sender: provider, Kind: types.RemoveLiquidityProportional, BptAmount: bptOut,
		})
		if err != nil {
			rt.Fatal(err)
		}

		if !bptIn.Equal(bptOut) {
			rt.Fatalf("burned %s shares for %s minted", bptIn, bptOut)
		}
		for i := range amountsIn {
			if amountsOut[i].GT(amountsIn[i]) {
				rt.Fatalf("token %d: paid out %s for %s paid in", i, amountsOut[i], amountsIn[i])
			}
		}
	})
}

// A swap never decreases the pool invariant, for any reserves, fee, and
// trade size.
func TestSwapNeverDecreasesInvariant(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		b0 := rapid.Int64Range(1_000, 1<<50).Draw(rt, "b0")
		b1 := rapid.Int64Range(1_000, 1<<50).Draw(rt, "b1")
		feeBps := rapid.Int64Range(0, 1_000).Draw(rt, "feeBps")
		amountIn := rapid.Int64Range(1, 1<<50).Draw(rt, "amountIn")

		fee := sdkmath.LegacyNewDec(feeBps).QuoInt64(10_000)
		engine, pool, _ := newPropPool(rt, b0, b1, fee)

		checker := verifier.NewChecker(vault.ComputeInvariant)
		guard, err := checker.Begin(engine.Store(), pool, verifier.GuardSwap)
		if err != nil {
			rt.Fatal(err)
		}

		_, err = engine.Swap(vault.SwapParams{
			Pool:        pool,
			Sender:      provider,
			Kind:        types.SwapExactIn,
			TokenIn:     "tok0",
			TokenOut:    "tok1",
			AmountGiven: sdkmath.NewInt(amountIn),
		})
		if errors.Is(err, types.ErrInvalidSwap) {
			// The whole input went to fees; nothing moved.
			rt.Skip("amount too small after fee")
		}
		if err != nil {
			rt.Fatal(err)
		}
		if err := guard.Verify(); err != nil {
			rt.Fatalf("invariant decreased: %v", err)
		}
	})
}

// The share supply never changes across a swap, whatever the trade.
func TestSwapPreservesSupply(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		b0 := rapid.Int64Range(1_000, 1<<40).Draw(rt, "b0")
		b1 := rapid.Int64Range(1_000, 1<<40).Draw(rt, "b1")
		amountOut := rapid.Int64Range(1, b1-1).Draw(rt, "amountOut")

		engine, pool, supply := newPropPool(rt, b0, b1, sdkmath.LegacyZeroDec())

		_, err := engine.Swap(vault.SwapParams{
			Pool:        pool,
			Sender:      provider,
			Kind:        types.SwapExactOut,
			TokenIn:     "tok0",
			TokenOut:    "tok1",
			AmountGiven: sdkmath.NewInt(amountOut),
		})
		if err != nil {
			rt.Fatal(err)
		}

		_, _, supplyAfter, err := engine.GetPoolTokenInfo(pool)
		if err != nil {
			rt.Fatal(err)
		}
		if !supplyAfter.Equal(supply) {
			rt.Fatalf("supply moved from %s to %s", supply, supplyAfter)
		}
	})
}

// Unbalanced adds keep the supply-normalized invariant from decreasing:
// existing holders never lose value to a joiner.
func TestUnbalancedAddKeepsShareValue(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		b0 := rapid.Int64Range(1_000_000, 1<<40).Draw(rt, "b0")
		b1 := rapid.Int64Range(1_000_000, 1<<40).Draw(rt, "b1")
		in0 := rapid.Int64Range(0, b0).Draw(rt, "in0")
		in1 := rapid.Int64Range(0, b1).Draw(rt, "in1")
		if in0 == 0 && in1 == 0 {
			rt.Skip("nothing to add")
		}

		engine, pool, _ := newPropPool(rt, b0, b1, sdkmath.LegacyMustNewDecFromStr("0.003"))

		checker := verifier.NewChecker(vault.ComputeInvariant)
		guard, err := checker.Begin(engine.Store(), pool, verifier.GuardLiquidity)
		if err != nil {
			rt.Fatal(err)
		}

		_, _, err = engine.AddLiquidity(vault.AddLiquidityParams{
			Pool:      pool,
			Sender:    provider,
			Kind:      types.AddLiquidityUnbalanced,
			AmountsIn: []sdkmath.Int{sdkmath.NewInt(in0), sdkmath.NewInt(in1)},
		})
		if errors.Is(err, types.ErrInvalidRequest) || errors.Is(err, types.ErrInsufficientLiquidity) {
			rt.Skip("contribution too small to mint shares")
		}
		if err != nil {
			rt.Fatal(err)
		}
		if err := guard.Verify(); err != nil {
			rt.Fatalf("share value decreased: %v", err)
		}
	})
}
