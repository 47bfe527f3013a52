package vault

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/ammlabs/vaultcheck/rate"
	"github.com/ammlabs/vaultcheck/state"
	"github.com/ammlabs/vaultcheck/types"
	"github.com/ammlabs/vaultcheck/utils"
)

// BufferAccount returns the account holding a buffer's own liquidity.
func BufferAccount(wrapped string) types.Account {
	return types.Account(fmt.Sprintf("buffer/%s", wrapped))
}

// InitializeBuffer registers a buffer pairing a wrapped token with its
// underlying asset and seeds it from the sender's balances. The provider
// converts between the two sides; conversions always round against the
// caller.
func (e *Engine) InitializeBuffer(sender types.Account, wrapped, underlying string, provider rate.Provider, underlyingSeed, wrappedSeed sdkmath.Int) error {
	buffer, err := e.store.RegisterBuffer(wrapped, underlying)
	if err != nil {
		return err
	}
	if !provider.Rate().IsPositive() {
		return types.ErrInvalidRequest.Wrap("rate must be positive")
	}
	e.rates[wrapped] = provider

	account := BufferAccount(wrapped)
	e.store.RegisterAccount(account)
	if underlyingSeed.IsPositive() {
		if err := e.store.Transfer(sender, account, underlying, underlyingSeed); err != nil {
			return err
		}
		buffer.UnderlyingBalance = buffer.UnderlyingBalance.Add(underlyingSeed)
	}
	if wrappedSeed.IsPositive() {
		if err := e.store.Transfer(sender, account, wrapped, wrappedSeed); err != nil {
			return err
		}
		buffer.WrappedBalance = buffer.WrappedBalance.Add(wrappedSeed)
	}

	e.logger.Info("buffer initialized", "wrapped", wrapped, "underlying", underlying, "rate", provider.Rate())
	return nil
}

// GetBufferBalance returns the buffer's (underlying, wrapped) holdings.
func (e *Engine) GetBufferBalance(wrapped string) (sdkmath.Int, sdkmath.Int, error) {
	buffer, err := e.store.GetBuffer(wrapped)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	return buffer.UnderlyingBalance, buffer.WrappedBalance, nil
}

// Wrap converts the sender's underlying assets into wrapped tokens through
// the buffer: wrappedOut = floor(amount / rate). When the buffer's wrapped
// side is short, it rebalances by depositing its own underlying into the
// wrapper at the same rate.
func (e *Engine) Wrap(sender types.Account, wrapped string, amount sdkmath.Int) (sdkmath.Int, error) {
	buffer, provider, err := e.bufferAndRate(wrapped)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if amount.IsNil() || !amount.IsPositive() {
		return sdkmath.Int{}, types.ErrInvalidRequest.Wrap("wrap amount must be positive")
	}

	r := provider.Rate()
	wrappedOut, err := utils.QuoDec(amount, r, types.RoundDown)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if wrappedOut.IsZero() {
		return sdkmath.Int{}, types.ErrInvalidRequest.Wrapf("amount %s too small to wrap at rate %s", amount, r)
	}

	cp := e.store.Checkpoint()
	account := BufferAccount(wrapped)
	if err := e.store.Transfer(sender, account, buffer.Underlying, amount); err != nil {
		e.store.Restore(cp)
		return sdkmath.Int{}, err
	}
	buffer.UnderlyingBalance = buffer.UnderlyingBalance.Add(amount)

	if buffer.WrappedBalance.LT(wrappedOut) {
		if err := e.rebalanceForWrapped(buffer, account, wrappedOut, r); err != nil {
			e.store.Restore(cp)
			return sdkmath.Int{}, err
		}
	}
	if err := e.store.Transfer(account, sender, wrapped, wrappedOut); err != nil {
		e.store.Restore(cp)
		return sdkmath.Int{}, err
	}
	buffer.WrappedBalance = buffer.WrappedBalance.Sub(wrappedOut)

	e.emit(types.NewEventBufferWrap(wrapped, sender, false, amount, wrappedOut))
	return wrappedOut, nil
}

// Unwrap converts the sender's wrapped tokens back into underlying assets:
// underlyingOut = floor(amount * rate). When the buffer's underlying side
// is short, it rebalances by redeeming its own wrapped tokens at the same
// rate.
func (e *Engine) Unwrap(sender types.Account, wrapped string, amount sdkmath.Int) (sdkmath.Int, error) {
	buffer, provider, err := e.bufferAndRate(wrapped)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if amount.IsNil() || !amount.IsPositive() {
		return sdkmath.Int{}, types.ErrInvalidRequest.Wrap("unwrap amount must be positive")
	}

	r := provider.Rate()
	underlyingOut := utils.MulDec(amount, r, types.RoundDown)
	if underlyingOut.IsZero() {
		return sdkmath.Int{}, types.ErrInvalidRequest.Wrapf("amount %s too small to unwrap at rate %s", amount, r)
	}

	cp := e.store.Checkpoint()
	account := BufferAccount(wrapped)
	if err := e.store.Transfer(sender, account, wrapped, amount); err != nil {
		e.store.Restore(cp)
		return sdkmath.Int{}, err
	}
	buffer.WrappedBalance = buffer.WrappedBalance.Add(amount)

	if buffer.UnderlyingBalance.LT(underlyingOut) {
		if err := e.rebalanceForUnderlying(buffer, account, underlyingOut, r); err != nil {
			e.store.Restore(cp)
			return sdkmath.Int{}, err
		}
	}
	if err := e.store.Transfer(account, sender, buffer.Underlying, underlyingOut); err != nil {
		e.store.Restore(cp)
		return sdkmath.Int{}, err
	}
	buffer.UnderlyingBalance = buffer.UnderlyingBalance.Sub(underlyingOut)

	e.emit(types.NewEventBufferWrap(wrapped, sender, true, amount, underlyingOut))
	return underlyingOut, nil
}

// bufferAndRate resolves a buffer and its rate provider.
func (e *Engine) bufferAndRate(wrapped string) (*state.Buffer, rate.Provider, error) {
	buffer, err := e.store.GetBuffer(wrapped)
	if err != nil {
		return nil, nil, err
	}
	provider, ok := e.rates[wrapped]
	if !ok {
		return nil, nil, types.ErrBufferNotFound.Wrapf("no rate provider for %s", wrapped)
	}
	return buffer, provider, nil
}

// rebalanceForWrapped converts buffer underlying into wrapped tokens so a
// wrap can be served. The conversion charges the buffer the rounded-up
// underlying cost, modeling a deposit into the external wrapper.
func (e *Engine) rebalanceForWrapped(buffer *state.Buffer, account types.Account, wantWrapped sdkmath.Int, r sdkmath.LegacyDec) error {
	shortfall := wantWrapped.Sub(buffer.WrappedBalance)
	cost := utils.MulDec(shortfall, r, types.RoundUp)
	if buffer.UnderlyingBalance.LT(cost) {
		return types.ErrInsufficientLiquidity.Wrapf("buffer for %s cannot cover wrap of %s", buffer.Wrapped, wantWrapped)
	}
	buffer.UnderlyingBalance = buffer.UnderlyingBalance.Sub(cost)
	buffer.WrappedBalance = buffer.WrappedBalance.Add(shortfall)
	// The external wrapper swaps the account's tokens in kind.
	if err := e.store.SubBalance(account, buffer.Underlying, cost); err != nil {
		return err
	}
	return e.store.AddBalance(account, buffer.Wrapped, shortfall)
}

// rebalanceForUnderlying redeems buffer wrapped tokens for underlying so
// an unwrap can be served.
func (e *Engine) rebalanceForUnderlying(buffer *state.Buffer, account types.Account, wantUnderlying sdkmath.Int, r sdkmath.LegacyDec) error {
	shortfall := wantUnderlying.Sub(buffer.UnderlyingBalance)
	cost, err := utils.QuoDec(shortfall, r, types.RoundUp)
	if err != nil {
		return err
	}
	if buffer.WrappedBalance.LT(cost) {
		return types.ErrInsufficientLiquidity.Wrapf("buffer for %s cannot cover unwrap of %s", buffer.Wrapped, wantUnderlying)
	}
	buffer.WrappedBalance = buffer.WrappedBalance.Sub(cost)
	buffer.UnderlyingBalance = buffer.UnderlyingBalance.Add(shortfall)
	if err := e.store.SubBalance(account, buffer.Wrapped, cost); err != nil {
		return err
	}
	return e.store.AddBalance(account, buffer.Underlying, shortfall)
}
