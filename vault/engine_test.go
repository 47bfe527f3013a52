package vault_test

import (
	"testing"

	"cosmossdk.io/log"
	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/suite"

	"github.com/ammlabs/vaultcheck/rate"
	"github.com/ammlabs/vaultcheck/state"
	"github.com/ammlabs/vaultcheck/types"
	"github.com/ammlabs/vaultcheck/vault"
	"github.com/ammlabs/vaultcheck/verifier"
)

const (
	provider types.Account = "provider"
	alice    types.Account = "alice"
	bob      types.Account = "bob"
)

func e18(n int64) sdkmath.Int {
	return sdkmath.NewInt(n).Mul(sdkmath.NewIntWithDecimal(1, 18))
}

type EngineTestSuite struct {
	suite.Suite

	store  *state.Store
	engine *vault.Engine
	events []types.Event

	// poolAB trades dai/weth, poolBC trades weth/usdc, both fee-free.
	// feePool trades dai/usdc with a 0.3% swap fee.
	poolAB  types.PoolID
	poolBC  types.PoolID
	feePool types.PoolID
}

func (s *EngineTestSuite) SetupTest() {
	s.store = state.NewStore()
	s.events = nil
	s.engine = vault.New(s.store, log.NewNopLogger(), vault.WithEventSink(func(ev types.Event) {
		s.events = append(s.events, ev)
	}))

	for _, sym := range []string{"dai", "weth", "usdc"} {
		s.Require().NoError(s.store.RegisterToken(types.Token{Symbol: sym, Decimals: 18}))
	}
	for _, account := range []types.Account{provider, alice, bob} {
		s.store.RegisterAccount(account)
		for _, sym := range []string{"dai", "weth", "usdc"} {
			s.Require().NoError(s.store.AddBalance(account, sym, e18(10_000)))
		}
	}

	minRatio := sdkmath.LegacyMustNewDecFromStr("0.6")
	maxRatio := sdkmath.LegacyMustNewDecFromStr("3.0")
	seed := []sdkmath.Int{e18(1000), e18(1000)}

	var err error
	s.poolAB, err = s.engine.RegisterPool([]string{"dai", "weth"}, sdkmath.LegacyZeroDec(), minRatio, maxRatio)
	s.Require().NoError(err)
	s.poolBC, err = s.engine.RegisterPool([]string{"weth", "usdc"}, sdkmath.LegacyZeroDec(), minRatio, maxRatio)
	s.Require().NoError(err)
	s.feePool, err = s.engine.RegisterPool([]string{"dai", "usdc"}, sdkmath.LegacyMustNewDecFromStr("0.003"), minRatio, maxRatio)
	s.Require().NoError(err)

	for _, id := range []types.PoolID{s.poolAB, s.poolBC, s.feePool} {
		bptOut, err := s.engine.InitializePool(provider, id, seed)
		s.Require().NoError(err)
		s.Require().Equal(e18(1000), bptOut)
	}
}

func (s *EngineTestSuite) balance(account types.Account, token string) sdkmath.Int {
	bal, err := s.store.GetBalance(account, token)
	s.Require().NoError(err)
	return bal
}

func (s *EngineTestSuite) shareDenom(pool types.PoolID) string {
	p, err := s.store.GetPool(pool)
	s.Require().NoError(err)
	return p.ShareDenom
}

func TestEngineTestSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (s *EngineTestSuite) TestInitializePoolRejectsReseed() {
	_, err := s.engine.InitializePool(provider, s.poolAB, []sdkmath.Int{e18(1), e18(1)})
	s.Require().ErrorIs(err, types.ErrInvalidRequest)
}

func (s *EngineTestSuite) TestAddLiquidityUninitializedPool() {
	id, err := s.engine.RegisterPool([]string{"weth", "dai"}, sdkmath.LegacyZeroDec(),
		sdkmath.LegacyMustNewDecFromStr("0.6"), sdkmath.LegacyMustNewDecFromStr("3.0"))
	s.Require().NoError(err)

	_, _, err = s.engine.AddLiquidity(vault.AddLiquidityParams{
		Pool:      id,
		Sender:    alice,
		Kind:      types.AddLiquidityProportional,
		BptAmount: e18(1),
	})
	s.Require().ErrorIs(err, types.ErrInsufficientLiquidity)
}

// A proportional add followed by a proportional remove of the same share
// amount must pay back at most what was paid in, with per-token drift of
// at most two base units.
func (s *EngineTestSuite) TestProportionalAddRemoveRoundTrip() {
	daiBefore := s.balance(alice, "dai")
	wethBefore := s.balance(alice, "weth")

	amountsIn, bptOut, err := s.engine.AddLiquidity(vault.AddLiquidityParams{
		Pool:      s.poolAB,
		Sender:    alice,
		Kind:      types.AddLiquidityProportional,
		BptAmount: e18(500),
	})
	s.Require().NoError(err)
	s.Require().Equal(e18(500), bptOut)
	s.Require().Equal(e18(500), amountsIn[0])
	s.Require().Equal(e18(500), amountsIn[1])
	s.Require().Equal(e18(500), s.balance(alice, s.shareDenom(s.poolAB)))

	bptIn, amountsOut, err := s.engine.RemoveLiquidity(vault.RemoveLiquidityParams{
		Pool:      s.poolAB,
		Sender:    alice,
		Kind:      types.RemoveLiquidityProportional,
		BptAmount: bptOut,
	})
	s.Require().NoError(err)
	s.Require().Equal(bptOut, bptIn)

	two := sdkmath.NewInt(2)
	for i := range amountsIn {
		s.Require().True(amountsOut[i].LTE(amountsIn[i]),
			"token %d paid out %s for %s paid in", i, amountsOut[i], amountsIn[i])
		s.Require().True(amountsIn[i].Sub(amountsOut[i]).LTE(two))
	}

	s.Require().True(s.balance(alice, s.shareDenom(s.poolAB)).IsZero())
	s.Require().True(daiBefore.Sub(s.balance(alice, "dai")).LTE(two))
	s.Require().True(wethBefore.Sub(s.balance(alice, "weth")).LTE(two))
}

// Removing more value than the sender's shares cover surfaces the typed
// shortfall error carrying the exact held and required amounts.
func (s *EngineTestSuite) TestSingleTokenExactOutRemoveShortfall() {
	amountsIn, bptOut, err := s.engine.AddLiquidity(vault.AddLiquidityParams{
		Pool:       s.poolAB,
		Sender:     alice,
		Kind:       types.AddLiquiditySingleTokenExactOut,
		BptAmount:  e18(1000),
		TokenIndex: 1,
	})
	s.Require().NoError(err)
	s.Require().Equal(e18(1000), bptOut)
	s.Require().True(amountsIn[0].IsZero())
	s.Require().Equal(e18(3000), amountsIn[1])

	daiBefore := s.balance(alice, "dai")
	wethBefore := s.balance(alice, "weth")

	amountsOut := []sdkmath.Int{sdkmath.ZeroInt(), e18(3500)}
	_, _, err = s.engine.RemoveLiquidity(vault.RemoveLiquidityParams{
		Pool:       s.poolAB,
		Sender:     alice,
		Kind:       types.RemoveLiquiditySingleTokenExactOut,
		AmountsOut: amountsOut,
		TokenIndex: 1,
	})
	s.Require().ErrorIs(err, types.ErrInsufficientBalance)

	var shortfall *types.InsufficientBalanceError
	s.Require().ErrorAs(err, &shortfall)
	s.Require().Equal(alice, shortfall.Account)
	s.Require().Equal(s.shareDenom(s.poolAB), shortfall.Token)
	s.Require().Equal(bptOut, shortfall.Have)
	s.Require().True(shortfall.Need.GT(shortfall.Have))

	// The failed removal left every balance untouched.
	s.Require().Equal(daiBefore, s.balance(alice, "dai"))
	s.Require().Equal(wethBefore, s.balance(alice, "weth"))
	s.Require().Equal(bptOut, s.balance(alice, s.shareDenom(s.poolAB)))
}

func (s *EngineTestSuite) TestAddLiquidityRespectsMaxAmountsIn() {
	_, _, err := s.engine.AddLiquidity(vault.AddLiquidityParams{
		Pool:      s.poolAB,
		Sender:    alice,
		Kind:      types.AddLiquidityProportional,
		BptAmount: e18(500),
		AmountsIn: []sdkmath.Int{e18(499), e18(499)},
	})
	s.Require().ErrorIs(err, types.ErrAmountInAboveMax)
}

func (s *EngineTestSuite) TestUnbalancedAddRespectsRatioBand() {
	// Quadrupling one side pushes the invariant ratio past the 3.0 maximum.
	_, _, err := s.engine.AddLiquidity(vault.AddLiquidityParams{
		Pool:      s.poolAB,
		Sender:    alice,
		Kind:      types.AddLiquidityUnbalanced,
		AmountsIn: []sdkmath.Int{e18(9000), e18(9000)},
	})
	s.Require().ErrorIs(err, types.ErrInvariantRatioAbove)
}

func (s *EngineTestSuite) TestSwapExactInMatchesQuery() {
	params := vault.SwapParams{
		Pool:        s.feePool,
		Sender:      alice,
		Kind:        types.SwapExactIn,
		TokenIn:     "dai",
		TokenOut:    "usdc",
		AmountGiven: e18(100),
	}

	quoted, err := s.engine.QuerySwap(params)
	s.Require().NoError(err)

	checker := verifier.NewChecker(vault.ComputeInvariant)
	guard, err := checker.Begin(s.store, s.feePool, verifier.GuardSwap)
	s.Require().NoError(err)

	out, err := s.engine.Swap(params)
	s.Require().NoError(err)
	s.Require().Equal(quoted, out)
	s.Require().True(out.IsPositive())
	s.Require().True(out.LT(params.AmountGiven))

	s.Require().NoError(guard.Verify())
}

func (s *EngineTestSuite) TestSwapExactOut() {
	in, err := s.engine.Swap(vault.SwapParams{
		Pool:        s.feePool,
		Sender:      alice,
		Kind:        types.SwapExactOut,
		TokenIn:     "dai",
		TokenOut:    "usdc",
		AmountGiven: e18(50),
		Limit:       e18(100),
	})
	s.Require().NoError(err)
	// Fees and the exchange curve make the input exceed the output here.
	s.Require().True(in.GT(e18(50)))

	s.Require().Equal(e18(10_000).Sub(in), s.balance(alice, "dai"))
	s.Require().Equal(e18(10_050), s.balance(alice, "usdc"))
}

// Swapping the output straight back can never return more than the
// original input.
func (s *EngineTestSuite) TestSwapRoundTripExtractsNothing() {
	start := s.balance(alice, "dai")

	out, err := s.engine.Swap(vault.SwapParams{
		Pool:        s.feePool,
		Sender:      alice,
		Kind:        types.SwapExactIn,
		TokenIn:     "dai",
		TokenOut:    "usdc",
		AmountGiven: e18(100),
	})
	s.Require().NoError(err)

	back, err := s.engine.Swap(vault.SwapParams{
		Pool:        s.feePool,
		Sender:      alice,
		Kind:        types.SwapExactIn,
		TokenIn:     "usdc",
		TokenOut:    "dai",
		AmountGiven: out,
	})
	s.Require().NoError(err)
	s.Require().True(back.LT(e18(100)))
	s.Require().True(s.balance(alice, "dai").LT(start))
}

func (s *EngineTestSuite) TestSwapLimits() {
	_, err := s.engine.Swap(vault.SwapParams{
		Pool:        s.poolAB,
		Sender:      alice,
		Kind:        types.SwapExactIn,
		TokenIn:     "dai",
		TokenOut:    "weth",
		AmountGiven: e18(100),
		Limit:       e18(100),
	})
	s.Require().ErrorIs(err, types.ErrAmountOutBelowMin)

	_, err = s.engine.Swap(vault.SwapParams{
		Pool:        s.poolAB,
		Sender:      alice,
		Kind:        types.SwapExactOut,
		TokenIn:     "dai",
		TokenOut:    "weth",
		AmountGiven: e18(100),
		Limit:       e18(100),
	})
	s.Require().ErrorIs(err, types.ErrAmountInAboveMax)

	_, err = s.engine.Swap(vault.SwapParams{
		Pool:        s.poolAB,
		Sender:      alice,
		Kind:        types.SwapExactIn,
		TokenIn:     "dai",
		TokenOut:    "dai",
		AmountGiven: e18(1),
	})
	s.Require().ErrorIs(err, types.ErrInvalidSwap)

	_, err = s.engine.Swap(vault.SwapParams{
		Pool:        types.PoolID{},
		Sender:      alice,
		Kind:        types.SwapExactIn,
		TokenIn:     "dai",
		TokenOut:    "weth",
		AmountGiven: e18(1),
	})
	s.Require().ErrorIs(err, types.ErrPoolNotFound)
}

// A two-hop exact-in path settles for the same amount as the equivalent
// sequence of single swaps.
func (s *EngineTestSuite) TestSwapPathExactInMatchesHops() {
	hop1, err := s.engine.QuerySwap(vault.SwapParams{
		Pool: s.poolAB, Sender: alice, Kind: types.SwapExactIn,
		TokenIn: "dai", TokenOut: "weth", AmountGiven: e18(100),
	})
	s.Require().NoError(err)
	hop2, err := s.engine.QuerySwap(vault.SwapParams{
		Pool: s.poolBC, Sender: alice, Kind: types.SwapExactIn,
		TokenIn: "weth", TokenOut: "usdc", AmountGiven: hop1,
	})
	s.Require().NoError(err)

	settled, err := s.engine.SwapPathsExactIn(alice, []types.SwapPath{{
		TokenIn: "dai",
		Steps: []types.SwapPathStep{
			{Pool: s.poolAB, TokenOut: "weth"},
			{Pool: s.poolBC, TokenOut: "usdc"},
		},
		ExactAmount: e18(100),
		Limit:       sdkmath.OneInt(),
	}})
	s.Require().NoError(err)
	s.Require().Len(settled, 1)
	s.Require().Equal(hop2, settled[0])
	s.Require().Equal(e18(10_000).Add(hop2), s.balance(alice, "usdc"))
}

func (s *EngineTestSuite) TestSwapPathsExactOut() {
	paid, err := s.engine.SwapPathsExactOut(alice, []types.SwapPath{{
		TokenIn: "dai",
		Steps: []types.SwapPathStep{
			{Pool: s.poolAB, TokenOut: "weth"},
			{Pool: s.poolBC, TokenOut: "usdc"},
		},
		ExactAmount: e18(50),
		Limit:       e18(200),
	}})
	s.Require().NoError(err)
	s.Require().Len(paid, 1)
	s.Require().True(paid[0].LTE(e18(200)))
	s.Require().Equal(e18(10_050), s.balance(alice, "usdc"))
	s.Require().Equal(e18(10_000).Sub(paid[0]), s.balance(alice, "dai"))
}

// An exact-out path may not visit the same pool twice: its backward
// derivation reads each pool's reserves once.
func (s *EngineTestSuite) TestSwapPathsExactOutRejectsRepeatedPool() {
	daiBefore := s.balance(alice, "dai")

	_, err := s.engine.SwapPathsExactOut(alice, []types.SwapPath{{
		TokenIn: "dai",
		Steps: []types.SwapPathStep{
			{Pool: s.poolAB, TokenOut: "weth"},
			{Pool: s.poolAB, TokenOut: "dai"},
		},
		ExactAmount: e18(10),
		Limit:       e18(100),
	}})
	s.Require().ErrorIs(err, types.ErrInvalidSwap)
	s.Require().ErrorContains(err, "repeated")
	s.Require().Equal(daiBefore, s.balance(alice, "dai"))
}

// One failing path fails the whole batch and rolls every hop back.
func (s *EngineTestSuite) TestSwapPathBatchRollsBackOnFailure() {
	_, balancesBefore, _, err := s.engine.GetPoolTokenInfo(s.poolAB)
	s.Require().NoError(err)
	daiBefore := s.balance(alice, "dai")

	_, err = s.engine.SwapPathsExactIn(alice, []types.SwapPath{
		{
			TokenIn:     "dai",
			Steps:       []types.SwapPathStep{{Pool: s.poolAB, TokenOut: "weth"}},
			ExactAmount: e18(100),
			Limit:       sdkmath.OneInt(),
		},
		{
			TokenIn:     "dai",
			Steps:       []types.SwapPathStep{{Pool: s.poolAB, TokenOut: "weth"}},
			ExactAmount: e18(100),
			Limit:       e18(1000),
		},
	})
	s.Require().ErrorIs(err, types.ErrAmountOutBelowMin)

	_, balancesAfter, _, err := s.engine.GetPoolTokenInfo(s.poolAB)
	s.Require().NoError(err)
	s.Require().Equal(balancesBefore, balancesAfter)
	s.Require().Equal(daiBefore, s.balance(alice, "dai"))
}

// Query variants run against a checkpoint and leave no trace in state.
func (s *EngineTestSuite) TestQueriesDoNotMutate() {
	accounts := []types.Account{provider, alice, vault.VaultAccount}
	tokens := []string{"dai", "weth"}

	before, err := verifier.Capture(s.store, accounts, tokens, s.poolAB)
	s.Require().NoError(err)

	_, _, err = s.engine.QueryAddLiquidity(vault.AddLiquidityParams{
		Pool: s.poolAB, Sender: alice, Kind: types.AddLiquidityProportional, BptAmount: e18(250),
	})
	s.Require().NoError(err)
	_, err = s.engine.QuerySwap(vault.SwapParams{
		Pool: s.poolAB, Sender: alice, Kind: types.SwapExactIn,
		TokenIn: "dai", TokenOut: "weth", AmountGiven: e18(10),
	})
	s.Require().NoError(err)
	_, _, err = s.engine.QueryRemoveLiquidity(vault.RemoveLiquidityParams{
		Pool: s.poolAB, Sender: provider, Kind: types.RemoveLiquidityProportional, BptAmount: e18(100),
	})
	s.Require().NoError(err)

	after, err := verifier.Capture(s.store, accounts, tokens, s.poolAB)
	s.Require().NoError(err)

	diff, err := verifier.Diff(before, after)
	s.Require().NoError(err)
	s.Require().NoError(verifier.CompareDiffs(verifier.DiffMap{}, diff, sdkmath.ZeroInt()))
}

func (s *EngineTestSuite) TestBufferWrapUnwrap() {
	s.Require().NoError(s.store.RegisterToken(types.Token{Symbol: "waweth", Decimals: 18}))
	s.Require().NoError(s.store.AddBalance(provider, "waweth", e18(500)))

	two := sdkmath.LegacyNewDec(2)
	s.Require().NoError(s.engine.InitializeBuffer(provider, "waweth", "weth", rate.NewFixed(two), e18(1000), e18(500)))

	wrappedOut, err := s.engine.Wrap(alice, "waweth", e18(100))
	s.Require().NoError(err)
	s.Require().Equal(e18(50), wrappedOut)
	s.Require().Equal(e18(50), s.balance(alice, "waweth"))

	underlying, wrappedBal, err := s.engine.GetBufferBalance("waweth")
	s.Require().NoError(err)
	s.Require().Equal(e18(1100), underlying)
	s.Require().Equal(e18(450), wrappedBal)

	underlyingOut, err := s.engine.Unwrap(alice, "waweth", wrappedOut)
	s.Require().NoError(err)
	s.Require().Equal(e18(100), underlyingOut)
	s.Require().Equal(e18(10_000), s.balance(alice, "weth"))

	underlying, wrappedBal, err = s.engine.GetBufferBalance("waweth")
	s.Require().NoError(err)
	s.Require().Equal(e18(1000), underlying)
	s.Require().Equal(e18(500), wrappedBal)
}

func (s *EngineTestSuite) TestBufferUnknownWrapped() {
	_, err := s.engine.Wrap(alice, "missing", e18(1))
	s.Require().ErrorIs(err, types.ErrBufferNotFound)
}

func (s *EngineTestSuite) TestEventsEmitted() {
	s.events = nil

	_, err := s.engine.Swap(vault.SwapParams{
		Pool: s.poolAB, Sender: alice, Kind: types.SwapExactIn,
		TokenIn: "dai", TokenOut: "weth", AmountGiven: e18(10),
	})
	s.Require().NoError(err)

	_, _, err = s.engine.AddLiquidity(vault.AddLiquidityParams{
		Pool: s.poolAB, Sender: alice, Kind: types.AddLiquidityProportional, BptAmount: e18(10),
	})
	s.Require().NoError(err)

	s.Require().Len(s.events, 2)
	swapEv, ok := s.events[0].(*types.EventSwap)
	s.Require().True(ok)
	s.Require().Equal(alice, swapEv.Sender)
	s.Require().Equal("dai", swapEv.TokenIn)

	addEv, ok := s.events[1].(*types.EventLiquidityAdded)
	s.Require().True(ok)
	s.Require().Equal(e18(10), addEv.BptAmountOut)
}
