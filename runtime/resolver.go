package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"tab-live/contract"

	"github.com/google/uuid"
)

// Admitter runs the handshake-side admission: on first sight of a user
// it resolves the authoritative group set from the store, then seeds the
// registry. The store call happens before the registry lock is taken.
type Admitter struct {
	log      *slog.Logger
	registry *Registry
	store    contract.GroupStore
}

func NewAdmitter(log *slog.Logger, registry *Registry, store contract.GroupStore) *Admitter {
	return &Admitter{log: log, registry: registry, store: store}
}

// Admit resolves and registers one authenticated connection. A store
// failure refuses the connection: admitting with an empty topology would
// silently cut the user off from every group until reconnect.
func (a *Admitter) Admit(ctx context.Context, connID, userID uuid.UUID, handle contract.Conn) error {
	var groups []uuid.UUID
	if !a.registry.HasTopology(userID) {
		resolved, err := a.store.ListGroupsForUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("resolving groups for user %s: %w", userID, err)
		}
		groups = resolved
		a.log.Debug("Seeded topology cache", "user_id", userID, "groups", len(groups))
	}

	a.registry.Admit(connID, userID, handle, groups)
	return nil
}
