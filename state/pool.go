package state

import (
	"fmt"
	"slices"

	sdkmath "cosmossdk.io/math"

	"github.com/ammlabs/vaultcheck/types"
	"github.com/ammlabs/vaultcheck/utils"
)

// PoolTokenCount is the number of constituent tokens every pool carries.
const PoolTokenCount = 2

// Pool is the stored state of one two-token pool: its ordered token list,
// raw balances per token (order matching Tokens), the total supply of its
// share token, and its fee and invariant-ratio limits.
type Pool struct {
	ID         types.PoolID
	ShareDenom string
	Tokens     []types.Token
	Balances   []sdkmath.Int
	// TotalSupply is the outstanding amount of the pool's share token (BPT).
	TotalSupply sdkmath.Int
	SwapFee     sdkmath.LegacyDec
	// MinInvariantRatio and MaxInvariantRatio bound how far a single
	// liquidity operation may move the invariant relative to its prior
	// value.
	MinInvariantRatio sdkmath.LegacyDec
	MaxInvariantRatio sdkmath.LegacyDec
}

// TokenIndex returns the index of the given token symbol in the pool's
// ordered token list.
func (p *Pool) TokenIndex(symbol string) (int, error) {
	for i, t := range p.Tokens {
		if t.Symbol == symbol {
			return i, nil
		}
	}
	return 0, types.ErrTokenNotFound.Wrapf("token %s not in pool %s", symbol, p.ID)
}

// TokenSymbols returns the ordered token symbols of the pool.
func (p *Pool) TokenSymbols() []string {
	return slices.Collect(utils.Map(p.Tokens, func(t types.Token) string { return t.Symbol }))
}

// clone deep-copies the pool.
func (p *Pool) clone() *Pool {
	cp := *p
	cp.Tokens = append([]types.Token(nil), p.Tokens...)
	cp.Balances = append([]sdkmath.Int(nil), p.Balances...)
	return &cp
}

// RegisterPool registers a pool over the given ordered token list. All
// tokens must already be registered and distinct; the pool starts empty
// and must be seeded through the vault engine before it can trade.
// The pool's ID is derived from its token list.
func (s *Store) RegisterPool(tokens []string, swapFee, minInvariantRatio, maxInvariantRatio sdkmath.LegacyDec) (*Pool, error) {
	if len(tokens) != PoolTokenCount {
		return nil, types.ErrInvalidPool.Wrapf("pools hold exactly %d tokens, got %d", PoolTokenCount, len(tokens))
	}
	if tokens[0] == tokens[1] {
		return nil, types.ErrInvalidPool.Wrap("pool tokens must be distinct")
	}
	if swapFee.IsNegative() || swapFee.GTE(sdkmath.LegacyOneDec()) {
		return nil, types.ErrInvalidPool.Wrapf("swap fee %s outside [0, 1)", swapFee)
	}

	resolved := make([]types.Token, len(tokens))
	balances := make([]sdkmath.Int, len(tokens))
	for i, sym := range tokens {
		token, err := s.GetToken(sym)
		if err != nil {
			return nil, err
		}
		resolved[i] = token
		balances[i] = sdkmath.ZeroInt()
	}

	id := types.NewPoolID(tokens)
	if _, ok := s.pools[id]; ok {
		return nil, types.ErrPoolExists.Wrap(id.String())
	}

	pool := &Pool{
		ID:                id,
		ShareDenom:        fmt.Sprintf("bpt/%s", id),
		Tokens:            resolved,
		Balances:          balances,
		TotalSupply:       sdkmath.ZeroInt(),
		SwapFee:           swapFee,
		MinInvariantRatio: minInvariantRatio,
		MaxInvariantRatio: maxInvariantRatio,
	}
	s.pools[id] = pool

	// The share token participates in regular balance accounting.
	if err := s.RegisterToken(types.Token{Symbol: pool.ShareDenom, Decimals: 18}); err != nil {
		return nil, err
	}
	return pool, nil
}

// GetPool returns the pool with the given ID.
func (s *Store) GetPool(id types.PoolID) (*Pool, error) {
	pool, ok := s.pools[id]
	if !ok {
		return nil, types.ErrPoolNotFound.Wrap(id.String())
	}
	return pool, nil
}

// Buffer is the stored state of an ERC4626-style buffer pairing a wrapped
// yield-bearing token with its underlying asset. The buffer's internal
// split between the two sides shifts as wrap and unwrap traffic flows
// through it.
type Buffer struct {
	Wrapped    string
	Underlying string
	// WrappedBalance and UnderlyingBalance are the buffer's own holdings.
	WrappedBalance    sdkmath.Int
	UnderlyingBalance sdkmath.Int
}

// clone deep-copies the buffer.
func (b *Buffer) clone() *Buffer {
	cp := *b
	return &cp
}

// RegisterBuffer registers a buffer for the given wrapped token. Both
// tokens must already be registered.
func (s *Store) RegisterBuffer(wrapped, underlying string) (*Buffer, error) {
	if _, err := s.GetToken(wrapped); err != nil {
		return nil, err
	}
	if _, err := s.GetToken(underlying); err != nil {
		return nil, err
	}
	if _, ok := s.buffers[wrapped]; ok {
		return nil, types.ErrInvalidRequest.Wrapf("buffer for %s already registered", wrapped)
	}
	buffer := &Buffer{
		Wrapped:           wrapped,
		Underlying:        underlying,
		WrappedBalance:    sdkmath.ZeroInt(),
		UnderlyingBalance: sdkmath.ZeroInt(),
	}
	s.buffers[wrapped] = buffer
	return buffer, nil
}

// GetBuffer returns the buffer for the given wrapped token.
func (s *Store) GetBuffer(wrapped string) (*Buffer, error) {
	buffer, ok := s.buffers[wrapped]
	if !ok {
		return nil, types.ErrBufferNotFound.Wrap(wrapped)
	}
	return buffer, nil
}
