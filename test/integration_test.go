package test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"tab-live/domain"
	"tab-live/domain/event"
	"tab-live/observability"
	"tab-live/repositories"
	"tab-live/runtime"
	"tab-live/runtime/workers"
	"tab-live/services"
	"tab-live/ws"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type recordedConn struct {
	id     uuid.UUID
	mu     sync.Mutex
	frames [][]byte
}

func (c *recordedConn) ID() uuid.UUID { return c.id }

func (c *recordedConn) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, frame)
	return nil
}

func (c *recordedConn) Ping() error { return nil }

func (c *recordedConn) Close(code int, reason string) error { return nil }

func (c *recordedConn) framesOfType(t ws.MessageType) [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	var matched [][]byte
	for _, frame := range c.frames {
		var envelope ws.Envelope
		if err := json.Unmarshal(frame, &envelope); err != nil {
			continue
		}
		if envelope.Type == t {
			matched = append(matched, frame)
		}
	}
	return matched
}

// Test_Scenario exercises the whole live session pipeline: persisted
// group state, after-commit events flowing through the fanout worker,
// topology convergence in the registry and frames reaching every
// connected member.
func Test_Scenario(t *testing.T) {
	ctx := context.Background()
	req := require.New(t)
	// Reduced to 16 Mo for testing (avoid 20 Go of storage)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	log := logs.GetLoggerFromLevel(slog.LevelError)
	bus := event.NewBus(log, 16)
	groupRepo := repositories.NewGroupRepository(db, log)
	entryRepo := repositories.NewTabEntryRepository(db, log)
	groupService := services.NewGroupService(log, groupRepo, bus)
	ledger := services.NewTabEntryService(log, groupRepo, entryRepo, bus)

	registry := runtime.NewRegistry()
	monitor := observability.NewMonitor()
	broadcaster := ws.NewBroadcaster(log, registry, monitor)
	bus.Subscribe(ws.NewTopologyConsumer(log, registry, broadcaster, monitor))
	admitter := runtime.NewAdmitter(log, registry, groupService)
	dispatcher := ws.NewDispatcher(log, registry, ledger, broadcaster, monitor)

	supervisor := workers.NewSupervisor(log)
	supervisor.Add(workers.NewEventFanout(log, bus))
	supCtx, supCancel := context.WithCancel(ctx)
	go supervisor.Run(supCtx)
	t.Cleanup(func() {
		supCancel()
	})

	// Given two registered participants, one of them connected
	alice := domain.GroupParticipant{UserID: uuid.New(), Username: "alice", UserType: domain.UserRegistered}
	bob := domain.GroupParticipant{UserID: uuid.New(), Username: "bob", UserType: domain.UserRegistered}
	req.NoError(groupService.RegisterParticipant(alice))
	req.NoError(groupService.RegisterParticipant(bob))

	aliceConn := &recordedConn{id: uuid.New()}
	req.NoError(admitter.Admit(ctx, aliceConn.id, alice.UserID, aliceConn))

	// When a group with both of them is committed
	group, err := groupService.CreateGroup(ctx, "Road trip", "EUR",
		alice.UserID, []uuid.UUID{alice.UserID, bob.UserID})
	req.NoError(err)

	// Then the fanout converges alice's live topology onto the new group
	req.Eventually(func() bool {
		return len(registry.ConnectionsForGroup(group.ID)) == 1
	}, 2*time.Second, 10*time.Millisecond, "topology never converged")

	// When alice posts a new entry over the wire protocol
	payload := fmt.Sprintf(`{"groupId":%q,"paidByUserId":%q,"title":"Fuel","amount":"80.00","currency":"EUR",`+
		`"splits":[{"participantId":%q,"split":{"type":"EQUAL"},"resolvedAmount":"40.00"},`+
		`{"participantId":%q,"split":{"type":"EQUAL"},"resolvedAmount":"40.00"}]}`,
		group.ID, bob.UserID, alice.UserID, bob.UserID)
	frame, err := json.Marshal(ws.Envelope{Type: ws.TypeNewTabEntry, Payload: payload})
	req.NoError(err)
	dispatcher.Dispatch(ctx, aliceConn, alice.UserID, frame)

	// Then the persisted entry comes back to every group connection
	created := aliceConn.framesOfType(ws.TypeNewTabEntry)
	req.Len(created, 1)

	var envelope ws.Envelope
	req.NoError(json.Unmarshal(created[0], &envelope))
	var entry domain.TabEntry
	req.NoError(json.Unmarshal([]byte(envelope.Payload), &entry))
	req.Equal("Fuel", entry.Title)
	req.True(entry.Amount.Equal(decimal.RequireFromString("80.00")))
	req.Equal("alice", entry.Creator.Username)

	// When the entry is deleted through the service layer
	req.NoError(ledger.Delete(ctx, entry.ID, bob.UserID))

	// Then the deletion reaches alice through the after-commit event path
	req.Eventually(func() bool {
		return len(aliceConn.framesOfType(ws.TypeTabEntryDeleted)) == 1
	}, 2*time.Second, 10*time.Millisecond, "deletion frame never arrived")

	// And the audit trail recorded both mutations
	rows, err := entryRepo.ListHistory(entry.ID)
	req.NoError(err)
	req.Len(rows, 2)
	req.Equal(domain.ChangeCreated, rows[0].ChangeType)
	req.Equal(domain.ChangeDeleted, rows[1].ChangeType)
}
