package workers

import (
	"context"
	"log/slog"

	"tab-live/domain/event"
)

// EventFanout drains the committed-event queue and delivers each event
// to every subscribed handler.
//
// It provides best-effort fan-out with no guarantees regarding delivery,
// ordering across handlers, durability, or retries. EventFanout is not a
// message broker: producers only see the bus, consumers only see events
// that were already committed.
//
// EventFanout is safe for concurrent use by multiple goroutines.
type EventFanout struct {
	Log *slog.Logger
	bus *event.Bus
}

func NewEventFanout(log *slog.Logger, bus *event.Bus) *EventFanout {
	return &EventFanout{Log: log, bus: bus}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt := <-w.bus.Events():
			w.Log.Debug("Fanning out domain event", "event", evt.Name())
			w.bus.Dispatch(evt)
		case <-ctx.Done():
			w.Log.Debug("Context done, stopping event fanout")
			return nil
		}
	}
}
