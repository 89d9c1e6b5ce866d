package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tab-live/auth"
	"tab-live/domain/event"
	"tab-live/internal"
	"tab-live/observability"
	"tab-live/projection"
	"tab-live/repositories"
	"tab-live/runtime"
	"tab-live/runtime/workers"
	"tab-live/services"
	"tab-live/ws"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for the HTTP server and background workers.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)
	color.Green.Println("tab-live — real-time group session service")

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Persistence, services and the after-commit event bus
	bus := event.NewBus(log, config.EventBufferSize)
	groupRepository := repositories.NewGroupRepository(db, log)
	entryRepository := repositories.NewTabEntryRepository(db, log)
	groupService := services.NewGroupService(log, groupRepository, bus)
	tabEntryService := services.NewTabEntryService(log, groupRepository, entryRepository, bus)

	// 4. Live session layer
	var registryOpts []runtime.Option
	if config.EvictTopology {
		registryOpts = append(registryOpts, runtime.WithTopologyEviction())
	}
	registry := runtime.NewRegistry(registryOpts...)
	monitor := observability.NewMonitor()
	admitter := runtime.NewAdmitter(log, registry, groupService)
	broadcaster := ws.NewBroadcaster(log, registry, monitor)
	dispatcher := ws.NewDispatcher(log, registry, tabEntryService, broadcaster, monitor)
	bus.Subscribe(ws.NewTopologyConsumer(log, registry, broadcaster, monitor))
	activity := projection.NewActivityFeed(config.ActivityFeedSize)
	bus.Subscribe(activity)

	tokens := auth.NewTokenService(config.JwtSecret, config.JwtIssuer)
	handler := ws.NewHandler(log, auth.NewBearerValidator(tokens), admitter,
		registry, dispatcher, monitor, config.ConnectionBufferSize)

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Supervised background workers
	sup := workers.NewSupervisor(log)
	sup.Add(workers.NewEventFanout(log, bus))
	sup.Add(workers.NewLivenessWorker(log, registry, monitor, config.PingInterval, config.PongTimeout))
	sup.Add(workers.NewStatsWorker(log, registry, monitor, config.StatsInterval))
	supDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supDone)
	}()

	if config.DebugPort > 0 {
		internal.StartDebugServer(db, config.DebugPort, nil, func() map[string]any {
			stats := map[string]any{"open_connections": registry.Len()}
			for _, row := range activity.Recent() {
				key := fmt.Sprintf("last_%s", row.Kind)
				stats[key] = row.At.Format(time.RFC3339)
			}
			return stats
		})
		log.Info("Debug inspect endpoint enabled", "port", config.DebugPort)
	}

	// 7. HTTP server with the WebSocket endpoint
	mux := http.NewServeMux()
	mux.Handle("/ws/groups", handler)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: mux}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "error", err)
	}

	sup.Stop()
	<-supDone
	log.Info("All workers stopped")
	return nil
}
