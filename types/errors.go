package types

import (
	"fmt"

	"cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
)

var (
	ErrInvalidRequest = errors.Register(ModuleName, 2, "invalid request")

	// Ledger arithmetic.
	ErrOverflow  = errors.Register(ModuleName, 3, "arithmetic overflow")
	ErrUnderflow = errors.Register(ModuleName, 4, "arithmetic underflow")

	// Snapshot engine.
	ErrStateRead        = errors.Register(ModuleName, 5, "state read failure")
	ErrSnapshotMismatch = errors.Register(ModuleName, 6, "snapshots cover different entity sets")

	// Expected-outcome accumulator.
	ErrEmptyPath = errors.Register(ModuleName, 7, "swap path has no steps")

	// Invariant checker.
	ErrNestedInvariantCheck = errors.Register(ModuleName, 8, "an invariant check is already armed")
	ErrInvariantDecreased   = errors.Register(ModuleName, 9, "pool invariant decreased")

	// Fuzz input bounding.
	ErrUnboundableInput = errors.Register(ModuleName, 10, "input cannot be bounded: min exceeds max")

	// State store.
	ErrInsufficientBalance = errors.Register(ModuleName, 11, "insufficient balance")
	ErrPoolNotFound        = errors.Register(ModuleName, 12, "pool not found")
	ErrTokenNotFound       = errors.Register(ModuleName, 13, "token not registered")
	ErrAccountNotFound     = errors.Register(ModuleName, 14, "account not registered")
	ErrPoolExists          = errors.Register(ModuleName, 15, "pool already registered")
	ErrInvalidPool         = errors.Register(ModuleName, 16, "invalid pool definition")

	// Vault engine.
	ErrAmountInAboveMax      = errors.Register(ModuleName, 17, "required amount in exceeds limit")
	ErrAmountOutBelowMin     = errors.Register(ModuleName, 18, "calculated amount out below limit")
	ErrBptAmountOutBelowMin  = errors.Register(ModuleName, 19, "calculated BPT out below limit")
	ErrBptAmountInAboveMax   = errors.Register(ModuleName, 20, "required BPT in exceeds limit")
	ErrInsufficientLiquidity = errors.Register(ModuleName, 21, "insufficient pool liquidity")
	ErrInvariantRatioBelow   = errors.Register(ModuleName, 22, "invariant ratio below pool minimum")
	ErrInvariantRatioAbove   = errors.Register(ModuleName, 23, "invariant ratio above pool maximum")
	ErrBufferNotFound        = errors.Register(ModuleName, 24, "buffer not initialized for wrapped token")
	ErrInvalidSwap           = errors.Register(ModuleName, 25, "invalid swap request")
)

// InsufficientBalanceError carries the account and amounts involved in a
// failed debit so scenarios can assert the predicted shortfall instead of
// just matching an error class.
type InsufficientBalanceError struct {
	Account Account
	Token   string
	Have    sdkmath.Int
	Need    sdkmath.Int
}

// Error implements the error interface.
func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: account %s has %s %s, needs %s", e.Account, e.Have, e.Token, e.Need)
}

// Unwrap ties the typed error to the registered sentinel so errors.Is works.
func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// InvariantDecreasedError reports the before and after invariant values of a
// failed monotonicity check. It is always a fatal assertion for the scenario.
type InvariantDecreasedError struct {
	Before sdkmath.Int
	After  sdkmath.Int
}

// Error implements the error interface.
func (e *InvariantDecreasedError) Error() string {
	return fmt.Sprintf("pool invariant decreased: before %s, after %s", e.Before, e.After)
}

// Unwrap ties the typed error to the registered sentinel so errors.Is works.
func (e *InvariantDecreasedError) Unwrap() error { return ErrInvariantDecreased }
