// Package rate provides the wrapped-token rate providers used by ERC4626
// buffers: a fixed rate and a deterministic exponentially accruing rate.
package rate

import (
	sdkmath "cosmossdk.io/math"
)

const (
	SecondsPerYear = 31_536_000
	SecondsPerHour = 3_600

	// EulerPrecision is the number of Maclaurin series terms used for e^x.
	EulerPrecision = 18
)

// Provider reports how many underlying base units one base unit of the
// wrapped token is worth, as an 18-decimal fixed-point value. Providers are
// deterministic: the rate only moves through explicit Advance calls.
type Provider interface {
	// Rate returns the current wrapped:underlying rate. Must be positive.
	Rate() sdkmath.LegacyDec
}

// Fixed is a Provider with a constant rate.
type Fixed struct {
	rate sdkmath.LegacyDec
}

// NewFixed returns a constant-rate provider.
func NewFixed(r sdkmath.LegacyDec) *Fixed {
	return &Fixed{rate: r}
}

// Rate implements Provider.
func (f *Fixed) Rate() sdkmath.LegacyDec { return f.rate }

// Accruing is a Provider whose rate compounds continuously at an annual
// rate over explicitly advanced time. It never consults a wall clock, so
// two runs that advance the same seconds see the same rates.
type Accruing struct {
	base    sdkmath.LegacyDec
	annual  sdkmath.LegacyDec
	elapsed int64
}

// NewAccruing returns a provider starting at base and compounding at the
// given annual rate.
func NewAccruing(base, annual sdkmath.LegacyDec) *Accruing {
	return &Accruing{base: base, annual: annual}
}

// Advance moves the provider's clock forward by the given seconds.
func (a *Accruing) Advance(seconds int64) {
	a.elapsed += seconds
}

// Rate implements Provider.
//
//	rate = base * e^(annual * t)   with t = elapsed / SecondsPerYear
func (a *Accruing) Rate() sdkmath.LegacyDec {
	t := sdkmath.LegacyNewDec(a.elapsed).QuoInt64(SecondsPerYear)
	return a.base.Mul(ExpDec(a.annual.Mul(t), EulerPrecision))
}

// ExpDec calculates e^x using the Maclaurin series expansion up to `terms`
// terms. Fully deterministic; higher `terms` -> greater accuracy.
//
//	e^x = 1 + x + x^2/2! + x^3/3! + ... + x^n/n!
func ExpDec(x sdkmath.LegacyDec, terms int) sdkmath.LegacyDec {
	result := sdkmath.LegacyOneDec()
	power := sdkmath.LegacyOneDec()
	factorial := sdkmath.LegacyOneDec()

	for i := 1; i <= terms; i++ {
		power = power.Mul(x)
		factorial = factorial.MulInt64(int64(i))
		term := power.Quo(factorial)
		result = result.Add(term)
	}

	return result
}
