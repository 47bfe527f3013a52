package harness

import (
	"fmt"
	"math/rand"
	"os"

	sdkmath "cosmossdk.io/math"
	"gopkg.in/yaml.v2"

	"github.com/ammlabs/vaultcheck/types"
)

// Campaign configures a repeated verification run: how many iterations,
// the seed that makes them reproducible, and the numeric ranges the
// bounded generators draw from.
type Campaign struct {
	Name       string        `yaml:"name"`
	Seed       int64         `yaml:"seed"`
	Iterations int           `yaml:"iterations"`
	Tolerance  string        `yaml:"tolerance"`
	Bounds     CampaignBound `yaml:"bounds"`
}

// CampaignBound holds the inclusive ranges for generated pool balances,
// trade amounts, and swap fees. Amounts are decimal strings so 18-decimal
// values survive YAML round-trips; fees are fixed-point decimal strings.
type CampaignBound struct {
	MinBalance string `yaml:"min_balance"`
	MaxBalance string `yaml:"max_balance"`
	MinAmount  string `yaml:"min_amount"`
	MaxAmount  string `yaml:"max_amount"`
	MinFee     string `yaml:"min_fee"`
	MaxFee     string `yaml:"max_fee"`
}

// DefaultCampaign returns a campaign with the ranges most scenarios use:
// balances up to 1e30 base units, a zero-to-ten-percent fee range, and a
// tolerance wide enough for buffer rate rounding.
func DefaultCampaign() Campaign {
	return Campaign{
		Name:       "default",
		Seed:       1,
		Iterations: 100,
		Tolerance:  "40000",
		Bounds: CampaignBound{
			MinBalance: "1000000",
			MaxBalance: "1000000000000000000000000000000",
			MinAmount:  "1",
			MaxAmount:  "1000000000000000000000000000",
			MinFee:     "0",
			MaxFee:     "0.10",
		},
	}
}

// RunCampaign executes fn once per campaign iteration, each inside its
// own checkpointed scenario. Draws come from a source seeded with the
// campaign seed, so the same campaign always replays the same inputs.
// The first failing iteration stops the campaign and is returned wrapped
// in its scenario name.
func (h *Harness) RunCampaign(c Campaign, fn func(*ScenarioContext, *rand.Rand) error) error {
	if err := c.Validate(); err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(c.Seed))
	for i := 0; i < c.Iterations; i++ {
		err := h.Run(fmt.Sprintf("%s/%d", c.Name, i), func(ctx *ScenarioContext) error {
			return fn(ctx, rng)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// LoadCampaign reads a campaign from a YAML file and validates it.
func LoadCampaign(path string) (Campaign, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Campaign{}, fmt.Errorf("failed to read campaign file: %w", err)
	}
	var c Campaign
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Campaign{}, fmt.Errorf("failed to parse campaign file: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Campaign{}, err
	}
	return c, nil
}

// Validate checks the campaign's ranges parse and are ordered.
func (c Campaign) Validate() error {
	if c.Iterations <= 0 {
		return types.ErrInvalidRequest.Wrapf("iterations must be positive, got %d", c.Iterations)
	}
	if _, err := c.ToleranceInt(); err != nil {
		return err
	}
	pairs := []struct {
		name     string
		min, max string
	}{
		{"balance", c.Bounds.MinBalance, c.Bounds.MaxBalance},
		{"amount", c.Bounds.MinAmount, c.Bounds.MaxAmount},
	}
	for _, p := range pairs {
		min, ok := sdkmath.NewIntFromString(p.min)
		if !ok {
			return types.ErrInvalidRequest.Wrapf("invalid min %s %q", p.name, p.min)
		}
		max, ok := sdkmath.NewIntFromString(p.max)
		if !ok {
			return types.ErrInvalidRequest.Wrapf("invalid max %s %q", p.name, p.max)
		}
		if min.GT(max) {
			return types.ErrInvalidRequest.Wrapf("%s range inverted: %s > %s", p.name, min, max)
		}
	}
	minFee, maxFee, err := c.FeeBounds()
	if err != nil {
		return err
	}
	if minFee.GT(maxFee) {
		return types.ErrInvalidRequest.Wrapf("fee range inverted: %s > %s", minFee, maxFee)
	}
	return nil
}

// ToleranceInt parses the campaign tolerance.
func (c Campaign) ToleranceInt() (sdkmath.Int, error) {
	tol, ok := sdkmath.NewIntFromString(c.Tolerance)
	if !ok || tol.IsNegative() {
		return sdkmath.Int{}, types.ErrInvalidRequest.Wrapf("invalid tolerance %q", c.Tolerance)
	}
	return tol, nil
}

// BalanceBounds parses the balance range. Validate must have passed.
func (c Campaign) BalanceBounds() (min, max sdkmath.Int) {
	min, _ = sdkmath.NewIntFromString(c.Bounds.MinBalance)
	max, _ = sdkmath.NewIntFromString(c.Bounds.MaxBalance)
	return min, max
}

// AmountBounds parses the trade amount range. Validate must have passed.
func (c Campaign) AmountBounds() (min, max sdkmath.Int) {
	min, _ = sdkmath.NewIntFromString(c.Bounds.MinAmount)
	max, _ = sdkmath.NewIntFromString(c.Bounds.MaxAmount)
	return min, max
}

// FeeBounds parses the swap fee range.
func (c Campaign) FeeBounds() (min, max sdkmath.LegacyDec, err error) {
	min, err = sdkmath.LegacyNewDecFromStr(c.Bounds.MinFee)
	if err != nil {
		return sdkmath.LegacyDec{}, sdkmath.LegacyDec{}, types.ErrInvalidRequest.Wrapf("invalid min fee %q: %v", c.Bounds.MinFee, err)
	}
	max, err = sdkmath.LegacyNewDecFromStr(c.Bounds.MaxFee)
	if err != nil {
		return sdkmath.LegacyDec{}, sdkmath.LegacyDec{}, types.ErrInvalidRequest.Wrapf("invalid max fee %q: %v", c.Bounds.MaxFee, err)
	}
	return min, max, nil
}
