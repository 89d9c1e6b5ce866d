package ws

import (
	"log/slog"

	"tab-live/contract"
	"tab-live/domain/event"
	"tab-live/observability"
	"tab-live/runtime"

	"github.com/google/uuid"
)

// TopologyConsumer reacts to committed domain events: it mutates the
// registry's topology indices and notifies the affected groups. It never
// produces events itself.
type TopologyConsumer struct {
	log         *slog.Logger
	registry    *runtime.Registry
	broadcaster contract.Broadcaster
	monitor     *observability.Monitor
}

func NewTopologyConsumer(log *slog.Logger, registry *runtime.Registry,
	broadcaster contract.Broadcaster, monitor *observability.Monitor) *TopologyConsumer {
	return &TopologyConsumer{log: log, registry: registry, broadcaster: broadcaster, monitor: monitor}
}

// Handle implements event.Handler.
func (c *TopologyConsumer) Handle(e event.DomainEvent) {
	c.monitor.EventConsumed()

	switch evt := e.(type) {
	case event.GroupCreated:
		c.registry.MergeTopology(evt.GroupID, evt.ParticipantIDs)

	case event.ParticipantJoined:
		c.registry.ApplyMembershipDelta(evt.GroupID, evt.UserIDs, true)
		c.notifyParticipantsChanged(evt.GroupID)

	case event.ParticipantLeft:
		c.registry.ApplyMembershipDelta(evt.GroupID, []uuid.UUID{evt.UserID}, false)
		c.notifyParticipantsChanged(evt.GroupID)

	case event.TabEntryDeleted:
		frame, err := EncodeFrame(TypeTabEntryDeleted, TabEntryDeletedPayload{
			GroupID:    evt.GroupID,
			TabEntryID: evt.TabEntryID,
		})
		if err != nil {
			c.log.Error("Could not encode tab entry deletion", "error", err)
			return
		}
		c.broadcaster.BroadcastToGroup(evt.GroupID, frame)

	case event.GroupDeleted:
		// Notify members while they are still indexed, then detach the
		// group from every topology so stale entries cannot accumulate.
		c.notifyParticipantsChanged(evt.GroupID)
		c.registry.DropGroup(evt.GroupID)

	default:
		c.log.Debug("Ignoring domain event", "event", e.Name())
	}
}

func (c *TopologyConsumer) notifyParticipantsChanged(groupID uuid.UUID) {
	frame, err := EncodeFrame(TypeGroupParticipantsChanged, GroupParticipantsChangedPayload{GroupID: groupID})
	if err != nil {
		c.log.Error("Could not encode participants change", "error", err)
		return
	}
	c.broadcaster.BroadcastToGroup(groupID, frame)
}
