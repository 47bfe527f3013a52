package state

import (
	sdkmath "cosmossdk.io/math"

	"github.com/ammlabs/vaultcheck/types"
)

// Checkpoint is an immutable restore point over the full state graph.
// Acquire one, run a trial operation, and restore unconditionally —
// regardless of whether the trial succeeded.
type Checkpoint struct {
	snapshot *Store
}

// Checkpoint captures a restore point. The checkpoint owns its own deep
// copy, so later mutation of the store never leaks into it.
func (s *Store) Checkpoint() Checkpoint {
	return Checkpoint{snapshot: s.Clone()}
}

// Restore rewinds the store to the given checkpoint. The checkpoint stays
// valid and may be restored again.
func (s *Store) Restore(cp Checkpoint) {
	restored := cp.snapshot.Clone()
	s.tokens = restored.tokens
	s.accounts = restored.accounts
	s.balances = restored.balances
	s.native = restored.native
	s.pools = restored.pools
	s.buffers = restored.buffers
}

// Clone deep-copies the store. Clones share nothing with the original, so
// independent scenarios may run against clones in parallel.
func (s *Store) Clone() *Store {
	clone := NewStore()
	for sym, token := range s.tokens {
		clone.tokens[sym] = token
	}
	for account := range s.accounts {
		clone.accounts[account] = struct{}{}
		balances := make(map[string]sdkmath.Int, len(s.balances[account]))
		for token, amount := range s.balances[account] {
			balances[token] = amount
		}
		clone.balances[account] = balances
		clone.native[account] = s.native[account]
	}
	for id, pool := range s.pools {
		clone.pools[id] = pool.clone()
	}
	for wrapped, buffer := range s.buffers {
		clone.buffers[wrapped] = buffer.clone()
	}
	return clone
}

// Accounts returns the registered account handles in unspecified order.
func (s *Store) Accounts() []types.Account {
	accounts := make([]types.Account, 0, len(s.accounts))
	for account := range s.accounts {
		accounts = append(accounts, account)
	}
	return accounts
}

// Pools returns the registered pool IDs in unspecified order.
func (s *Store) Pools() []types.PoolID {
	ids := make([]types.PoolID, 0, len(s.pools))
	for id := range s.pools {
		ids = append(ids, id)
	}
	return ids
}
