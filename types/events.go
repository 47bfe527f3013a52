package types

import (
	sdkmath "cosmossdk.io/math"
)

// Event is implemented by every engine event. Events are delivered to an
// optional sink so scenarios can assert on operation outcomes without
// re-reading state.
type Event interface {
	EventType() string
}

// EventPoolRegistered is emitted when a pool is registered and seeded.
type EventPoolRegistered struct {
	Pool       PoolID
	ShareDenom string
	Tokens     []string
}

func (EventPoolRegistered) EventType() string { return "pool_registered" }

// NewEventPoolRegistered creates a new EventPoolRegistered event.
func NewEventPoolRegistered(pool PoolID, shareDenom string, tokens []string) *EventPoolRegistered {
	return &EventPoolRegistered{Pool: pool, ShareDenom: shareDenom, Tokens: tokens}
}

// EventLiquidityAdded is emitted after a successful add-liquidity operation.
type EventLiquidityAdded struct {
	Pool         PoolID
	Sender       Account
	Kind         AddLiquidityKind
	AmountsIn    []sdkmath.Int
	BptAmountOut sdkmath.Int
}

func (EventLiquidityAdded) EventType() string { return "liquidity_added" }

// NewEventLiquidityAdded creates a new EventLiquidityAdded event.
func NewEventLiquidityAdded(pool PoolID, sender Account, kind AddLiquidityKind, amountsIn []sdkmath.Int, bptOut sdkmath.Int) *EventLiquidityAdded {
	return &EventLiquidityAdded{Pool: pool, Sender: sender, Kind: kind, AmountsIn: amountsIn, BptAmountOut: bptOut}
}

// EventLiquidityRemoved is emitted after a successful remove-liquidity operation.
type EventLiquidityRemoved struct {
	Pool        PoolID
	Sender      Account
	Kind        RemoveLiquidityKind
	BptAmountIn sdkmath.Int
	AmountsOut  []sdkmath.Int
}

func (EventLiquidityRemoved) EventType() string { return "liquidity_removed" }

// NewEventLiquidityRemoved creates a new EventLiquidityRemoved event.
func NewEventLiquidityRemoved(pool PoolID, sender Account, kind RemoveLiquidityKind, bptIn sdkmath.Int, amountsOut []sdkmath.Int) *EventLiquidityRemoved {
	return &EventLiquidityRemoved{Pool: pool, Sender: sender, Kind: kind, BptAmountIn: bptIn, AmountsOut: amountsOut}
}

// EventSwap is emitted after a successful single-hop swap.
type EventSwap struct {
	Pool      PoolID
	Sender    Account
	Kind      SwapKind
	TokenIn   string
	TokenOut  string
	AmountIn  sdkmath.Int
	AmountOut sdkmath.Int
	Fee       sdkmath.Int
}

func (EventSwap) EventType() string { return "swap" }

// NewEventSwap creates a new EventSwap event.
func NewEventSwap(pool PoolID, sender Account, kind SwapKind, tokenIn, tokenOut string, amountIn, amountOut, fee sdkmath.Int) *EventSwap {
	return &EventSwap{
		Pool:      pool,
		Sender:    sender,
		Kind:      kind,
		TokenIn:   tokenIn,
		TokenOut:  tokenOut,
		AmountIn:  amountIn,
		AmountOut: amountOut,
		Fee:       fee,
	}
}

// EventBufferWrap is emitted after a buffer wrap or unwrap.
type EventBufferWrap struct {
	Wrapped    string
	Sender     Account
	Unwrapping bool
	AmountIn   sdkmath.Int
	AmountOut  sdkmath.Int
}

func (EventBufferWrap) EventType() string { return "buffer_wrap" }

// NewEventBufferWrap creates a new EventBufferWrap event.
func NewEventBufferWrap(wrapped string, sender Account, unwrapping bool, amountIn, amountOut sdkmath.Int) *EventBufferWrap {
	return &EventBufferWrap{Wrapped: wrapped, Sender: sender, Unwrapping: unwrapping, AmountIn: amountIn, AmountOut: amountOut}
}
