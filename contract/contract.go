//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"tab-live/domain"

	"github.com/google/uuid"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Conn is the transport handle of one live client connection.
// It is owned by the transport layer and only borrowed by the registry:
// the registry may send, ping and close through it, never recreate it.
type Conn interface {
	ID() uuid.UUID
	// Send queues one already-encoded frame. Frames queued on the same
	// connection are delivered in order.
	Send(frame []byte) error
	// Ping sends a transport-level ping control frame.
	Ping() error
	// Close sends a close frame with the given status code and reason,
	// then tears the connection down. Closing twice is a no-op.
	Close(code int, reason string) error
}

// TokenValidator resolves the Authorization header of the handshake
// into the authenticated user id.
type TokenValidator interface {
	Validate(authHeader string) (uuid.UUID, error)
}

// GroupStore is the authoritative source of group membership, consulted
// once per user to seed the registry's topology cache.
type GroupStore interface {
	ListGroupsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// LedgerCommands persists live-edit commands and returns the fully
// resolved entry that gets broadcast to the group.
type LedgerCommands interface {
	Create(ctx context.Context, cmd domain.TabEntryCommand) (domain.TabEntry, error)
	Update(ctx context.Context, cmd domain.TabEntryCommand) (domain.TabEntry, error)
}

// Broadcaster fans one encoded frame out to a group or to every live
// connection of one user. Delivery is best effort.
type Broadcaster interface {
	BroadcastToGroup(groupID uuid.UUID, frame []byte)
	SendToUser(userID uuid.UUID, frame []byte)
}
