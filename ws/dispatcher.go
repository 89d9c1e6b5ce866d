package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"tab-live/contract"
	"tab-live/domain"
	"tab-live/observability"
	"tab-live/runtime"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Dispatcher decodes inbound frames and routes recognized commands to
// the ledger handler, then hands the persisted result to the broadcaster.
//
// Error policy, in order of checks:
//   - malformed JSON or unknown type: one ERROR frame to the sender,
//     connection stays open
//   - target group outside the sender's cached topology: silent drop
//     (authorization boundary, not a protocol error)
//   - update without an entry id: ERROR frame, no mutation
//   - ledger rejection: ERROR frame with the domain message
type Dispatcher struct {
	log         *slog.Logger
	registry    *runtime.Registry
	ledger      contract.LedgerCommands
	broadcaster contract.Broadcaster
	monitor     *observability.Monitor
	validate    *validator.Validate
}

func NewDispatcher(log *slog.Logger, registry *runtime.Registry, ledger contract.LedgerCommands,
	broadcaster contract.Broadcaster, monitor *observability.Monitor) *Dispatcher {
	return &Dispatcher{
		log:         log,
		registry:    registry,
		ledger:      ledger,
		broadcaster: broadcaster,
		monitor:     monitor,
		validate:    validator.New(),
	}
}

// Dispatch processes one raw inbound frame from the given sender.
func (d *Dispatcher) Dispatch(ctx context.Context, sender contract.Conn, senderID uuid.UUID, raw []byte) {
	d.monitor.FrameReceived()

	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		d.log.Warn(fmt.Sprintf("Could not parse frame from connection %s", sender.ID()), "error", err)
		d.sendError(sender, CodeInvalidJSON, "Incoming JSON or UUID is invalid")
		return
	}

	switch envelope.Type {
	case TypeNewTabEntry:
		d.handleTabEntry(ctx, sender, senderID, envelope.Payload, false)
	case TypeUpdatedTabEntry:
		d.handleTabEntry(ctx, sender, senderID, envelope.Payload, true)
	default:
		d.log.Warn("Unknown inbound message type",
			"connection_id", sender.ID(),
			"type", envelope.Type)
		d.sendError(sender, CodeInvalidJSON, "Incoming JSON or UUID is invalid")
	}
}

func (d *Dispatcher) handleTabEntry(ctx context.Context, sender contract.Conn, senderID uuid.UUID,
	rawPayload string, isUpdate bool) {

	var payload TabEntryPayload
	if err := json.Unmarshal([]byte(rawPayload), &payload); err != nil {
		d.log.Warn("Could not parse tab entry payload",
			"connection_id", sender.ID(),
			"error", err)
		d.sendError(sender, CodeInvalidJSON, "Incoming JSON or UUID is invalid")
		return
	}
	if err := d.validate.Struct(payload); err != nil {
		d.log.Warn("Tab entry payload failed validation",
			"connection_id", sender.ID(),
			"error", err)
		d.sendError(sender, CodeInvalidJSON, "Incoming JSON or UUID is invalid")
		return
	}

	// Authorization boundary: a command for a group the sender does not
	// belong to is dropped without any reply frame.
	groups, ok := d.registry.GroupsForUser(senderID)
	if !ok || !groups.Contains(payload.GroupID) {
		d.monitor.CommandDropped()
		d.log.Debug("Dropped command for group outside sender topology",
			"user_id", senderID,
			"group_id", payload.GroupID)
		return
	}

	if isUpdate && payload.ID == nil {
		d.log.Warn("Received tab entry update without id", "user_id", senderID)
		d.sendError(sender, CodeInvalidJSON, "Incoming JSON or UUID is invalid")
		return
	}

	command := payload.ToCommand(senderID)

	var (
		entry    domain.TabEntry
		err      error
		outbound MessageType
	)
	if isUpdate {
		entry, err = d.ledger.Update(ctx, command)
		outbound = TypeUpdatedTabEntry
	} else {
		entry, err = d.ledger.Create(ctx, command)
		outbound = TypeNewTabEntry
	}
	if err != nil {
		d.log.Warn("Ledger rejected command",
			"user_id", senderID,
			"group_id", payload.GroupID,
			"error", err)
		d.sendError(sender, CodeCommandFailed, err.Error())
		return
	}

	d.monitor.CommandDispatched()

	frame, err := EncodeFrame(outbound, entry)
	if err != nil {
		d.log.Error("Could not encode outbound tab entry", "error", err)
		return
	}
	d.broadcaster.BroadcastToGroup(payload.GroupID, frame)
}

func (d *Dispatcher) sendError(sender contract.Conn, code, message string) {
	frame, err := EncodeFrame(TypeError, ErrorPayload{Code: code, Message: message})
	if err != nil {
		d.log.Error("Could not encode error frame", "error", err)
		return
	}
	if err := sender.Send(frame); err != nil {
		d.log.Warn("Could not deliver error frame",
			"connection_id", sender.ID(),
			"error", err)
	}
}
