package workers

import (
	"context"
	"sync"
	"testing"
	"time"

	"tab-live/domain/event"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu     sync.Mutex
	events []event.DomainEvent
	seen   chan struct{}
}

func (h *recordingHandler) Handle(e event.DomainEvent) {
	h.mu.Lock()
	h.events = append(h.events, e)
	h.mu.Unlock()
	h.seen <- struct{}{}
}

func (h *recordingHandler) recorded() []event.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	events := make([]event.DomainEvent, len(h.events))
	copy(events, h.events)
	return events
}

func TestEventFanout_Delivers_To_Every_Subscriber_In_Order(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromString("ERROR")
	bus := event.NewBus(log, 8)

	// Given two subscribed handlers
	first := &recordingHandler{seen: make(chan struct{}, 8)}
	second := &recordingHandler{seen: make(chan struct{}, 8)}
	bus.Subscribe(first)
	bus.Subscribe(second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fanout := NewEventFanout(log, bus)
	go fanout.Run(ctx)

	// When two committed events are published
	groupID := uuid.New()
	bus.Publish(event.GroupCreated{GroupID: groupID, ParticipantIDs: []uuid.UUID{uuid.New()}})
	bus.Publish(event.GroupDeleted{GroupID: groupID})

	for range 2 {
		select {
		case <-first.seen:
		case <-time.After(time.Second):
			req.Fail("first handler never saw the event")
		}
		select {
		case <-second.seen:
		case <-time.After(time.Second):
			req.Fail("second handler never saw the event")
		}
	}

	// Then both handlers saw both events in publication order
	for _, handler := range []*recordingHandler{first, second} {
		events := handler.recorded()
		req.Len(events, 2)
		req.Equal("GROUP_CREATED", events[0].Name())
		req.Equal("GROUP_DELETED", events[1].Name())
	}
}

func TestEventFanout_Stops_On_Context_Cancel(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromString("ERROR")
	bus := event.NewBus(log, 8)

	ctx, cancel := context.WithCancel(context.Background())
	fanout := NewEventFanout(log, bus)

	done := make(chan error, 1)
	go func() { done <- fanout.Run(ctx) }()

	// When the context is canceled
	cancel()

	// Then Run returns cleanly
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(time.Second):
		req.Fail("fanout should have stopped")
	}
}
