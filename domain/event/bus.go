package event

import (
	"log/slog"
	"sync"
)

// Bus decouples event producers from the consumers that react to them.
//
// Contract: Publish must only be called after the producing transaction
// has committed. The bus itself adds buffering and asynchrony on top,
// so consumers must not assume delivery is synchronous with the write.
type Bus struct {
	mu       sync.RWMutex
	log      *slog.Logger
	events   chan DomainEvent
	handlers []Handler
}

func NewBus(log *slog.Logger, bufferSize int) *Bus {
	return &Bus{
		log:    log,
		events: make(chan DomainEvent, bufferSize),
	}
}

// Subscribe registers a handler for every event type.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish enqueues one committed event. It blocks when the buffer is
// full rather than dropping: topology events must not be lost.
func (b *Bus) Publish(e DomainEvent) {
	b.events <- e
}

// Events exposes the queue to the draining worker.
func (b *Bus) Events() <-chan DomainEvent {
	return b.events
}

// Dispatch hands one event to every registered handler, in order.
func (b *Bus) Dispatch(e DomainEvent) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		h.Handle(e)
	}
}
