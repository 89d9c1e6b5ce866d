package ws

import (
	"encoding/json"
	"sync"
	"testing"

	"tab-live/errors"
	"tab-live/observability"
	"tab-live/runtime"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

// fakeConn records everything sent through it, standing in for a live
// socket in registry, broadcast and dispatch tests.
type fakeConn struct {
	id       uuid.UUID
	mu       sync.Mutex
	frames   [][]byte
	failSend bool
	failPing bool
	pings    int
	closed   bool
	code     int
	reason   string
}

func newFakeConn() *fakeConn {
	return &fakeConn{id: uuid.New()}
}

func (c *fakeConn) ID() uuid.UUID { return c.id }

func (c *fakeConn) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSend {
		return errors.ErrConnectionClosed
	}
	c.frames = append(c.frames, frame)
	return nil
}

func (c *fakeConn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pings++
	if c.failPing {
		return errors.ErrConnectionClosed
	}
	return nil
}

func (c *fakeConn) Close(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.code = code
	c.reason = reason
	return nil
}

func (c *fakeConn) sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	frames := make([][]byte, len(c.frames))
	copy(frames, c.frames)
	return frames
}

func (c *fakeConn) envelopes(t *testing.T) []Envelope {
	t.Helper()
	var envelopes []Envelope
	for _, frame := range c.sent() {
		var envelope Envelope
		require.NoError(t, json.Unmarshal(frame, &envelope))
		envelopes = append(envelopes, envelope)
	}
	return envelopes
}

func admit(r *runtime.Registry, userID uuid.UUID, conn *fakeConn, groups ...uuid.UUID) {
	r.Admit(conn.id, userID, conn, groups)
}

func TestBroadcaster_Delivers_To_Every_Group_Connection(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromString("ERROR")
	registry := runtime.NewRegistry()
	broadcaster := NewBroadcaster(log, registry, observability.NewMonitor())
	group := uuid.New()

	// Given user A on two devices and user B on one, all members of the group
	userA := uuid.New()
	userB := uuid.New()
	c1, c2, c3 := newFakeConn(), newFakeConn(), newFakeConn()
	admit(registry, userA, c1, group)
	admit(registry, userA, c2)
	admit(registry, userB, c3, group)

	// When a frame is broadcast to the group
	broadcaster.BroadcastToGroup(group, []byte(`{"type":"NEW_TAB_ENTRY","payload":"{}"}`))

	// Then each connection receives it exactly once
	req.Len(c1.sent(), 1)
	req.Len(c2.sent(), 1)
	req.Len(c3.sent(), 1)
}

func TestBroadcaster_One_Failure_Does_Not_Stop_The_Others(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromString("ERROR")
	registry := runtime.NewRegistry()
	monitor := observability.NewMonitor()
	broadcaster := NewBroadcaster(log, registry, monitor)
	group := uuid.New()

	healthy := newFakeConn()
	broken := newFakeConn()
	broken.failSend = true
	admit(registry, uuid.New(), healthy, group)
	admit(registry, uuid.New(), broken, group)

	broadcaster.BroadcastToGroup(group, []byte(`{}`))

	req.Len(healthy.sent(), 1)
	req.Empty(broken.sent())
	req.Equal(uint64(1), monitor.Snapshot(registry.Len()).SendFailures)
}

func TestBroadcaster_SendToUser_Targets_All_Devices_Of_One_User(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromString("ERROR")
	registry := runtime.NewRegistry()
	broadcaster := NewBroadcaster(log, registry, observability.NewMonitor())

	target := uuid.New()
	bystander := uuid.New()
	c1, c2, c3 := newFakeConn(), newFakeConn(), newFakeConn()
	admit(registry, target, c1)
	admit(registry, target, c2)
	admit(registry, bystander, c3)

	broadcaster.SendToUser(target, []byte(`{}`))

	req.Len(c1.sent(), 1)
	req.Len(c2.sent(), 1)
	req.Empty(c3.sent())
}
