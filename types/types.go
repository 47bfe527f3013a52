package types

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

const (
	// ModuleName defines the library's error codespace and logger name.
	ModuleName = "vaultcheck"
)

// Account is an opaque account handle. Accounts must be registered with the
// state store before they can hold balances.
type Account string

// Token describes a registered token. Amounts are unsigned integers in the
// token's minor units; Decimals is informational and immutable.
type Token struct {
	Symbol   string
	Decimals uint8
}

// PoolID uniquely identifies a pool. It is derived from the pool's ordered
// token list, so registering the same token pair twice yields the same ID.
type PoolID [32]byte

// NewPoolID derives a pool ID from the ordered list of constituent token
// symbols. Order is significant: token indices are used throughout.
func NewPoolID(tokenSymbols []string) PoolID {
	h := blake3.New()
	for _, sym := range tokenSymbols {
		h.Write([]byte(sym))
		h.Write([]byte{0})
	}
	var id PoolID
	copy(id[:], h.Sum(nil))
	return id
}

// String returns a short hex form for logs and error messages.
func (id PoolID) String() string {
	return hex.EncodeToString(id[:8])
}

// Rounding selects the direction applied to a fixed-point division, chosen
// to bias in favor of the pool at a boundary.
type Rounding uint8

const (
	RoundDown Rounding = iota
	RoundUp
)

// AddLiquidityKind is the closed enumeration of add-liquidity operations.
type AddLiquidityKind uint8

const (
	AddLiquidityProportional AddLiquidityKind = iota
	AddLiquidityUnbalanced
	AddLiquiditySingleTokenExactIn
	AddLiquiditySingleTokenExactOut
)

// String returns a human-readable kind name.
func (k AddLiquidityKind) String() string {
	switch k {
	case AddLiquidityProportional:
		return "proportional"
	case AddLiquidityUnbalanced:
		return "unbalanced"
	case AddLiquiditySingleTokenExactIn:
		return "single-token-exact-in"
	case AddLiquiditySingleTokenExactOut:
		return "single-token-exact-out"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// RemoveLiquidityKind is the closed enumeration of remove-liquidity operations.
type RemoveLiquidityKind uint8

const (
	RemoveLiquidityProportional RemoveLiquidityKind = iota
	RemoveLiquiditySingleTokenExactIn
	RemoveLiquiditySingleTokenExactOut
)

// String returns a human-readable kind name.
func (k RemoveLiquidityKind) String() string {
	switch k {
	case RemoveLiquidityProportional:
		return "proportional"
	case RemoveLiquiditySingleTokenExactIn:
		return "single-token-exact-in"
	case RemoveLiquiditySingleTokenExactOut:
		return "single-token-exact-out"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// SwapKind selects whether the given amount fixes the input or the output leg.
type SwapKind uint8

const (
	SwapExactIn SwapKind = iota
	SwapExactOut
)

// String returns a human-readable kind name.
func (k SwapKind) String() string {
	switch k {
	case SwapExactIn:
		return "exact-in"
	case SwapExactOut:
		return "exact-out"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}
