// Package harness wires a store, a vault engine, and an invariant
// checker into a single test fixture. All state lives on the Harness;
// scenarios run against a checkpoint and restore it afterwards, so one
// fixture serves many independent cases.
package harness

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"cosmossdk.io/log"
	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ammlabs/vaultcheck/state"
	"github.com/ammlabs/vaultcheck/types"
	"github.com/ammlabs/vaultcheck/utils"
	"github.com/ammlabs/vaultcheck/vault"
	"github.com/ammlabs/vaultcheck/verifier"
)

// Harness bundles the components a verification scenario needs. Create
// one with New; the zero value is not usable.
type Harness struct {
	Logger    log.Logger
	Store     *state.Store
	Vault     *vault.Engine
	Checker   *verifier.Checker
	Tolerance sdkmath.Int

	events []types.Event
}

// Option configures a Harness during New.
type Option func(*Harness)

// WithTolerance sets the absolute tolerance used by comparison helpers.
func WithTolerance(tol sdkmath.Int) Option {
	return func(h *Harness) { h.Tolerance = tol }
}

// WithLogger replaces the default no-op logger.
func WithLogger(logger log.Logger) Option {
	return func(h *Harness) { h.Logger = logger }
}

// New builds a harness around a fresh store. The vault engine records
// its events on the harness for later inspection.
func New(opts ...Option) *Harness {
	h := &Harness{
		Logger:    log.NewNopLogger(),
		Tolerance: sdkmath.ZeroInt(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.Store = state.NewStore()
	h.Vault = vault.New(h.Store, h.Logger, vault.WithEventSink(func(ev types.Event) {
		h.events = append(h.events, ev)
	}))
	h.Checker = verifier.NewChecker(vault.ComputeInvariant)
	return h
}

// Events returns the events emitted since the last reset, oldest first.
func (h *Harness) Events() []types.Event {
	return h.events
}

// ScenarioContext is passed to every scenario function. The run ID ties
// log lines from one scenario together.
type ScenarioContext struct {
	RunID   string
	Name    string
	Harness *Harness
}

// Run executes fn against a checkpoint of the harness state and restores
// it afterwards, whether fn succeeds or fails. Events emitted during the
// scenario are discarded on exit.
func (h *Harness) Run(name string, fn func(*ScenarioContext) error) error {
	cp := h.Store.Checkpoint()
	savedEvents := len(h.events)
	defer func() {
		h.Store.Restore(cp)
		h.events = h.events[:savedEvents]
	}()

	ctx := &ScenarioContext{
		RunID:   uuid.NewString(),
		Name:    name,
		Harness: h,
	}
	h.Logger.Debug("scenario start", "name", name, "run_id", ctx.RunID)
	if err := fn(ctx); err != nil {
		h.Logger.Error("scenario failed", "name", name, "run_id", ctx.RunID, "error", err)
		return fmt.Errorf("scenario %q: %w", name, err)
	}
	h.Logger.Debug("scenario done", "name", name, "run_id", ctx.RunID)
	return nil
}

// RunParallel executes each scenario against its own clone of the
// harness state, so concurrent scenarios cannot observe each other. The
// first error cancels nothing; all scenarios run to completion and the
// first failure is returned.
func (h *Harness) RunParallel(scenarios map[string]func(*ScenarioContext) error) error {
	var g errgroup.Group
	for name, fn := range scenarios {
		clone := h.clone()
		name, fn := name, fn
		g.Go(func() error {
			return clone.Run(name, fn)
		})
	}
	return g.Wait()
}

// clone builds an independent harness over a deep copy of the store.
func (h *Harness) clone() *Harness {
	c := &Harness{
		Logger:    h.Logger,
		Store:     h.Store.Clone(),
		Tolerance: h.Tolerance,
	}
	c.Vault = vault.New(c.Store, c.Logger, vault.WithEventSink(func(ev types.Event) {
		c.events = append(c.events, ev)
	}))
	c.Checker = verifier.NewChecker(vault.ComputeInvariant)
	return c
}

// ExpectFailure checks that err wraps the given sentinel. A nil err or a
// different failure is reported as an error so callers can require it.
func ExpectFailure(err, sentinel error) error {
	if err == nil {
		return fmt.Errorf("expected failure %v, got success", sentinel)
	}
	if !errors.Is(err, sentinel) {
		return fmt.Errorf("expected failure %v, got: %w", sentinel, err)
	}
	return nil
}

// UserAccounts returns all registered accounts except the vault's own
// account and buffer accounts, the set snapshot captures usually cover.
func (h *Harness) UserAccounts() []types.Account {
	return slices.Collect(utils.Filter(h.Store.Accounts(), func(a types.Account) bool {
		return a != vault.VaultAccount && !strings.HasPrefix(string(a), "buffer/")
	}))
}

// FundAccount registers the account if needed and credits it with the
// given amount of each token.
func (h *Harness) FundAccount(account types.Account, amounts map[string]sdkmath.Int) error {
	if !h.Store.HasAccount(account) {
		h.Store.RegisterAccount(account)
	}
	for token, amount := range amounts {
		if err := h.Store.AddBalance(account, token, amount); err != nil {
			return err
		}
	}
	return nil
}
