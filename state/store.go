// Package state holds the shared mutable (pool, account-balances) state
// graph of a verification scenario. All mutation goes through the store's
// entry points; there is no ambient or global state. Snapshot-and-revert
// previews are modeled as explicit checkpoints over a deep copy of the
// graph, never as hidden VM state.
package state

import (
	sdkmath "cosmossdk.io/math"

	"github.com/ammlabs/vaultcheck/types"
	"github.com/ammlabs/vaultcheck/utils"
)

// Store owns every account balance, registered token, pool, and buffer in a
// scenario. A Store is not safe for concurrent use; independent scenarios
// run against Clone()d instances.
type Store struct {
	tokens   map[string]types.Token
	accounts map[types.Account]struct{}
	balances map[types.Account]map[string]sdkmath.Int
	native   map[types.Account]sdkmath.Int
	pools    map[types.PoolID]*Pool
	buffers  map[string]*Buffer
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		tokens:   make(map[string]types.Token),
		accounts: make(map[types.Account]struct{}),
		balances: make(map[types.Account]map[string]sdkmath.Int),
		native:   make(map[types.Account]sdkmath.Int),
		pools:    make(map[types.PoolID]*Pool),
		buffers:  make(map[string]*Buffer),
	}
}

// RegisterToken registers a token. Re-registering the same symbol with the
// same decimals is a no-op; changing decimals is rejected because token
// metadata is immutable once registered.
func (s *Store) RegisterToken(token types.Token) error {
	if existing, ok := s.tokens[token.Symbol]; ok {
		if existing.Decimals != token.Decimals {
			return types.ErrInvalidRequest.Wrapf("token %s already registered with %d decimals", token.Symbol, existing.Decimals)
		}
		return nil
	}
	s.tokens[token.Symbol] = token
	return nil
}

// GetToken looks up a registered token.
func (s *Store) GetToken(symbol string) (types.Token, error) {
	token, ok := s.tokens[symbol]
	if !ok {
		return types.Token{}, types.ErrTokenNotFound.Wrap(symbol)
	}
	return token, nil
}

// RegisterAccount registers an account handle. Registering twice is a no-op.
func (s *Store) RegisterAccount(account types.Account) {
	if _, ok := s.accounts[account]; ok {
		return
	}
	s.accounts[account] = struct{}{}
	s.balances[account] = make(map[string]sdkmath.Int)
	s.native[account] = sdkmath.ZeroInt()
}

// HasAccount reports whether the account is registered.
func (s *Store) HasAccount(account types.Account) bool {
	_, ok := s.accounts[account]
	return ok
}

// GetBalance returns the account's balance of the given token. Unknown
// accounts fail with ErrAccountNotFound; a known account simply holds zero
// of any token it has never received.
func (s *Store) GetBalance(account types.Account, token string) (sdkmath.Int, error) {
	if !s.HasAccount(account) {
		return sdkmath.Int{}, types.ErrAccountNotFound.Wrap(string(account))
	}
	balance, ok := s.balances[account][token]
	if !ok {
		return sdkmath.ZeroInt(), nil
	}
	return balance, nil
}

// AddBalance credits the account with the given amount.
func (s *Store) AddBalance(account types.Account, token string, amount sdkmath.Int) error {
	if !s.HasAccount(account) {
		return types.ErrAccountNotFound.Wrap(string(account))
	}
	current, err := s.GetBalance(account, token)
	if err != nil {
		return err
	}
	next, err := utils.CheckedAdd(current, amount)
	if err != nil {
		return err
	}
	s.balances[account][token] = next
	return nil
}

// SubBalance debits the account, failing with a typed InsufficientBalance
// error carrying the account, the held amount, and the needed amount.
func (s *Store) SubBalance(account types.Account, token string, amount sdkmath.Int) error {
	current, err := s.GetBalance(account, token)
	if err != nil {
		return err
	}
	if current.LT(amount) {
		return &types.InsufficientBalanceError{Account: account, Token: token, Have: current, Need: amount}
	}
	s.balances[account][token] = current.Sub(amount)
	return nil
}

// Transfer moves an amount between two registered accounts.
func (s *Store) Transfer(from, to types.Account, token string, amount sdkmath.Int) error {
	if err := s.SubBalance(from, token, amount); err != nil {
		return err
	}
	return s.AddBalance(to, token, amount)
}

// GetNativeBalance returns the account's native balance.
func (s *Store) GetNativeBalance(account types.Account) (sdkmath.Int, error) {
	if !s.HasAccount(account) {
		return sdkmath.Int{}, types.ErrAccountNotFound.Wrap(string(account))
	}
	return s.native[account], nil
}

// SetNativeBalance sets the account's native balance.
func (s *Store) SetNativeBalance(account types.Account, amount sdkmath.Int) error {
	if !s.HasAccount(account) {
		return types.ErrAccountNotFound.Wrap(string(account))
	}
	s.native[account] = amount
	return nil
}
