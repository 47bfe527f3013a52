package types

import (
	sdkmath "cosmossdk.io/math"
)

// SwapPathStep is one hop of a swap path: the pool to trade against and the
// token the step produces. The step's input token is the previous step's
// output token (or the path's TokenIn for the first step).
type SwapPathStep struct {
	Pool     PoolID
	TokenOut string
}

// SwapPath is one planned multi-hop swap. For ExactIn, ExactAmount is the
// given input and Limit the minimum acceptable output; for ExactOut,
// ExactAmount is the given output and Limit the maximum acceptable input.
// The settlement token of a path is the last step's TokenOut.
type SwapPath struct {
	TokenIn     string
	Steps       []SwapPathStep
	ExactAmount sdkmath.Int
	Limit       sdkmath.Int
}

// SettlementToken returns the token the path ultimately pays out, or an
// ErrEmptyPath error for a path with no steps.
func (p SwapPath) SettlementToken() (string, error) {
	if len(p.Steps) == 0 {
		return "", ErrEmptyPath
	}
	return p.Steps[len(p.Steps)-1].TokenOut, nil
}

// Validate rejects structurally invalid paths.
func (p SwapPath) Validate() error {
	if len(p.Steps) == 0 {
		return ErrEmptyPath
	}
	if p.TokenIn == "" {
		return ErrInvalidSwap.Wrap("path has no input token")
	}
	if p.ExactAmount.IsNil() || !p.ExactAmount.IsPositive() {
		return ErrInvalidSwap.Wrap("path amount must be positive")
	}
	if p.Limit.IsNil() || p.Limit.IsNegative() {
		return ErrInvalidSwap.Wrap("path limit must be non-negative")
	}
	return nil
}
