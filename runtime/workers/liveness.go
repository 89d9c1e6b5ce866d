package workers

import (
	"context"
	"log/slog"
	"time"

	"tab-live/observability"
	"tab-live/runtime"

	"github.com/gorilla/websocket"
)

// LivenessWorker detects and reaps dead connections. Every pingInterval
// it scans a snapshot of the open connections: a connection whose last
// pong is older than pongTimeout is closed with a "going away" status,
// everything else gets a fresh ping. A ping that fails at the transport
// level is treated exactly like a timeout.
//
// Closing is asynchronous relative to the scan: the close travels the
// connection's own close path, which is where registry removal happens.
// The scan never mutates the registry while holding its snapshot.
type LivenessWorker struct {
	log          *slog.Logger
	registry     *runtime.Registry
	monitor      *observability.Monitor
	pingInterval time.Duration
	pongTimeout  time.Duration
	now          func() time.Time
}

func NewLivenessWorker(log *slog.Logger, registry *runtime.Registry, monitor *observability.Monitor,
	pingInterval, pongTimeout time.Duration) *LivenessWorker {
	return &LivenessWorker{
		log:          log,
		registry:     registry,
		monitor:      monitor,
		pingInterval: pingInterval,
		pongTimeout:  pongTimeout,
		now:          time.Now,
	}
}

func (w *LivenessWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.Scan()
		}
	}
}

// Scan performs one ping/reap pass over a snapshot of the registry.
func (w *LivenessWorker) Scan() {
	now := w.now()
	var stale []runtime.Connection

	for _, conn := range w.registry.Snapshot() {
		if now.Sub(conn.LastPong) > w.pongTimeout {
			w.log.Warn("Connection timed out waiting for pong",
				"connection_id", conn.ID,
				"user_id", conn.UserID)
			stale = append(stale, conn)
			continue
		}
		if err := conn.Handle.Ping(); err != nil {
			w.log.Warn("Could not ping connection",
				"connection_id", conn.ID,
				"error", err)
			stale = append(stale, conn)
			continue
		}
		w.log.Debug("Sent ping", "connection_id", conn.ID)
	}

	for _, conn := range stale {
		w.monitor.LivenessEviction()
		if err := conn.Handle.Close(websocket.CloseGoingAway, "Ping timeout"); err != nil {
			w.log.Error("Could not close timed out connection",
				"connection_id", conn.ID,
				"error", err)
		}
	}
}
