// Package vault implements the reference vault engine the verifier is
// exercised against: pool registration and seeding, the four add-liquidity
// and three remove-liquidity kinds, exact-in and exact-out swaps over
// multi-hop paths, ERC4626-style buffers, and non-mutating query variants
// of every operation.
package vault

import (
	sdkmath "cosmossdk.io/math"

	"cosmossdk.io/log"

	"github.com/ammlabs/vaultcheck/rate"
	"github.com/ammlabs/vaultcheck/state"
	"github.com/ammlabs/vaultcheck/types"
)

// VaultAccount is the account that custodies every pool's tokens. Balance
// diffs of a trade show up as the mirror image on this account.
const VaultAccount types.Account = "vault"

// Engine executes operations against a state store. Operations are atomic:
// on error no partial effect is observable.
type Engine struct {
	store  *state.Store
	logger log.Logger
	events func(types.Event)
	rates  map[string]rate.Provider
}

// Option configures an Engine.
type Option func(*Engine)

// WithEventSink routes engine events to the given sink.
func WithEventSink(sink func(types.Event)) Option {
	return func(e *Engine) { e.events = sink }
}

// New creates an engine over the given store. The vault account is
// registered as a side effect.
func New(store *state.Store, logger log.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		logger: logger.With("module", types.ModuleName),
		rates:  make(map[string]rate.Provider),
	}
	for _, opt := range opts {
		opt(e)
	}
	store.RegisterAccount(VaultAccount)
	return e
}

// Store exposes the engine's state store to the test driver.
func (e *Engine) Store() *state.Store { return e.store }

// emit delivers an event to the sink, if one is configured.
func (e *Engine) emit(ev types.Event) {
	if e.events != nil {
		e.events(ev)
	}
}

// RegisterPool registers a pool over the given ordered token list.
func (e *Engine) RegisterPool(tokens []string, swapFee, minInvariantRatio, maxInvariantRatio sdkmath.LegacyDec) (types.PoolID, error) {
	pool, err := e.store.RegisterPool(tokens, swapFee, minInvariantRatio, maxInvariantRatio)
	if err != nil {
		return types.PoolID{}, err
	}
	e.logger.Info("pool registered", "pool", pool.ID, "tokens", tokens, "swap_fee", swapFee)
	e.emit(types.NewEventPoolRegistered(pool.ID, pool.ShareDenom, tokens))
	return pool.ID, nil
}

// InitializePool seeds an empty pool with the given amounts and mints the
// initial share supply, equal to the seeded invariant rounded down.
func (e *Engine) InitializePool(sender types.Account, pool types.PoolID, amounts []sdkmath.Int) (sdkmath.Int, error) {
	p, err := e.store.GetPool(pool)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if !p.TotalSupply.IsZero() {
		return sdkmath.Int{}, types.ErrInvalidRequest.Wrapf("pool %s already initialized", pool)
	}
	if len(amounts) != len(p.Tokens) {
		return sdkmath.Int{}, types.ErrInvalidRequest.Wrapf("expected %d amounts, got %d", len(p.Tokens), len(amounts))
	}
	for i, amount := range amounts {
		if !amount.IsPositive() {
			return sdkmath.Int{}, types.ErrInvalidRequest.Wrapf("seed amount %d must be positive", i)
		}
	}

	bptOut, err := ComputeInvariant(amounts, types.RoundDown)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if bptOut.IsZero() {
		return sdkmath.Int{}, types.ErrInsufficientLiquidity.Wrap("seed amounts too small to mint shares")
	}

	cp := e.store.Checkpoint()
	for i, token := range p.Tokens {
		if err := e.store.Transfer(sender, VaultAccount, token.Symbol, amounts[i]); err != nil {
			e.store.Restore(cp)
			return sdkmath.Int{}, err
		}
		p.Balances[i] = p.Balances[i].Add(amounts[i])
	}
	if err := e.mintShares(p, sender, bptOut); err != nil {
		e.store.Restore(cp)
		return sdkmath.Int{}, err
	}

	e.logger.Info("pool initialized", "pool", pool, "bpt_out", bptOut)
	return bptOut, nil
}

// GetPoolTokenInfo returns the pool's ordered tokens, raw balances, and
// total share supply.
func (e *Engine) GetPoolTokenInfo(pool types.PoolID) ([]types.Token, []sdkmath.Int, sdkmath.Int, error) {
	p, err := e.store.GetPool(pool)
	if err != nil {
		return nil, nil, sdkmath.Int{}, err
	}
	tokens := append([]types.Token(nil), p.Tokens...)
	balances := append([]sdkmath.Int(nil), p.Balances...)
	return tokens, balances, p.TotalSupply, nil
}

// mintShares credits newly minted pool shares to the recipient.
func (e *Engine) mintShares(p *state.Pool, to types.Account, amount sdkmath.Int) error {
	if err := e.store.AddBalance(to, p.ShareDenom, amount); err != nil {
		return err
	}
	p.TotalSupply = p.TotalSupply.Add(amount)
	return nil
}

// burnShares debits pool shares from the holder. A holder without enough
// shares surfaces the store's typed InsufficientBalance error.
func (e *Engine) burnShares(p *state.Pool, from types.Account, amount sdkmath.Int) error {
	if err := e.store.SubBalance(from, p.ShareDenom, amount); err != nil {
		return err
	}
	p.TotalSupply = p.TotalSupply.Sub(amount)
	return nil
}
