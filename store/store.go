// Package store persists registry and slot snapshots so the daemon can
// restore auction state across restarts.
package store

import (
	"context"

	"github.com/six-thirty/ntvnet/ntv"
)

// Store is the persistence boundary of the daemon. Implementations must
// tolerate being called after every mutation; writes are snapshots, not
// event logs, so replaying the latest state is always sufficient.
type Store interface {
	// SaveRegistry persists the registry-level snapshot (online time,
	// beneficiary, ledger balances, general pool).
	SaveRegistry(ctx context.Context, snap ntv.RegistrySnapshot) error

	// SaveSlot persists one slot's snapshot, keyed by its ordinal.
	SaveSlot(ctx context.Context, snap ntv.SlotSnapshot) error

	// Load retrieves the persisted state. found is false for a fresh
	// database.
	Load(ctx context.Context) (reg ntv.RegistrySnapshot, slots []ntv.SlotSnapshot, found bool, err error)

	// Close releases the underlying resources.
	Close() error
}
