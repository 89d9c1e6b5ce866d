package ws

import (
	"log/slog"

	"tab-live/observability"
	"tab-live/runtime"

	"github.com/google/uuid"
)

// Broadcaster fans encoded frames out to the connections the registry
// indexes under a group or a user. Delivery is best effort: the target
// set is snapshotted under a read lock, each send happens outside the
// lock, and one failure never blocks the others. Per-connection order is
// preserved by the connection's own send pump; there is no ordering
// guarantee across connections.
type Broadcaster struct {
	log      *slog.Logger
	registry *runtime.Registry
	monitor  *observability.Monitor
}

func NewBroadcaster(log *slog.Logger, registry *runtime.Registry, monitor *observability.Monitor) *Broadcaster {
	return &Broadcaster{log: log, registry: registry, monitor: monitor}
}

func (b *Broadcaster) BroadcastToGroup(groupID uuid.UUID, frame []byte) {
	handles := b.registry.ConnectionsForGroup(groupID)
	b.monitor.BroadcastSent()

	for _, handle := range handles {
		if err := handle.Send(frame); err != nil {
			b.monitor.SendFailed()
			b.log.Warn("Dropped frame for connection",
				"connection_id", handle.ID(),
				"group_id", groupID,
				"error", err)
			continue
		}
		b.monitor.FrameDelivered()
	}
}

func (b *Broadcaster) SendToUser(userID uuid.UUID, frame []byte) {
	for _, handle := range b.registry.ConnectionsForUser(userID) {
		if err := handle.Send(frame); err != nil {
			b.monitor.SendFailed()
			b.log.Warn("Dropped frame for connection",
				"connection_id", handle.ID(),
				"user_id", userID,
				"error", err)
			continue
		}
		b.monitor.FrameDelivered()
	}
}
