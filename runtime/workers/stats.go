package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"tab-live/observability"
	"tab-live/runtime"

	"github.com/shirou/gopsutil/process"
)

// StatsWorker periodically logs the session-layer counters together
// with process-level resource usage.
type StatsWorker struct {
	log      *slog.Logger
	registry *runtime.Registry
	monitor  *observability.Monitor
	interval time.Duration
}

func NewStatsWorker(log *slog.Logger, registry *runtime.Registry,
	monitor *observability.Monitor, interval time.Duration) *StatsWorker {
	return &StatsWorker{log: log, registry: registry, monitor: monitor, interval: interval}
}

func (w *StatsWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			stats := w.monitor.Snapshot(w.registry.Len())

			rss, cpu, err := selfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}

			w.log.Info("Session layer stats",
				"open_connections", stats.OpenConnections,
				"connections_admitted", stats.ConnectionsAdmitted,
				"frames_received", stats.FramesReceived,
				"commands_dispatched", stats.CommandsDispatched,
				"commands_dropped", stats.CommandsDropped,
				"broadcasts_sent", stats.BroadcastsSent,
				"frames_delivered", stats.FramesDelivered,
				"send_failures", stats.SendFailures,
				"liveness_evictions", stats.LivenessEvictions,
				"events_consumed", stats.EventsConsumed,
				"rss_bytes", rss,
				"cpu_percent", cpu,
			)
		}
	}
}

// selfStats retrieves memory and CPU usage for the given process.
func selfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
