// Package main is the entry point for the STR access server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/str-access/backend/internal/agent"
	"github.com/str-access/backend/internal/api"
	"github.com/str-access/backend/internal/api/handlers"
	"github.com/str-access/backend/internal/config"
	"github.com/str-access/backend/internal/logger"
	"github.com/str-access/backend/internal/observe"
	"github.com/str-access/backend/internal/property"
	"github.com/str-access/backend/internal/reservation"
	"github.com/str-access/backend/internal/scheduler"
	"github.com/str-access/backend/internal/storage"
	"github.com/str-access/backend/internal/unlock"
	"github.com/str-access/backend/internal/webhook"
	"github.com/str-access/backend/internal/websocket"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
// Defaults to "dev" when not provided.
var version = "dev"

func main() {
	addr := flag.String("addr", "", "HTTP server address (overrides PORT)")
	healthCheck := flag.Bool("health-check", false, "Run health check and exit")
	flag.Parse()

	cfg, err := config.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *addr == "" {
		*addr = cfg.HTTPAddr()
	}

	// Health check mode for Docker HEALTHCHECK
	if *healthCheck {
		if err := runHealthCheck(*addr); err != nil {
			fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if envVer := os.Getenv("VERSION"); envVer != "" {
		version = envVer
	}

	log := logger.New("str-access", cfg.LogLevel)
	log.Info().Str("version", version).Msg("Starting STR access server")
	cfg.Log(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open reservation store")
	}
	defer closeStore()

	// Live events
	hub := websocket.NewHub(log)
	go hub.Run(ctx)
	events := websocket.NewEventBroadcaster(hub, log)

	// Core services
	properties := property.NewResolver(property.NewFileSource(cfg.PropertiesFile), log)
	reservations := reservation.NewResolver(store, properties, log)
	unlocks := observe.NewSlot[unlock.Attempt]()

	authorizer := unlock.NewAuthorizer(unlock.Deps{
		Reservations: reservations,
		Config:       properties,
		Dispatcher:   agent.NewClient(unlock.DispatchTimeout),
		Sink:         unlocks,
		Publisher:    events,
		Logger:       log,
	})

	phaseScheduler := scheduler.NewPhaseScheduler(cfg.PhaseScanSchedule, store, events, log)
	if err := phaseScheduler.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start phase scheduler")
	}

	router := api.NewRouter(api.Deps{
		Store:          store,
		Reservations:   reservations,
		Properties:     properties,
		Authorizer:     authorizer,
		Verifier:       webhook.NewVerifier(cfg.WebhookSecret),
		Webhooks:       observe.NewSlot[handlers.WebhookDelivery](),
		Unlocks:        unlocks,
		Hub:            hub,
		Events:         events,
		AllowedOrigins: cfg.FrontendOrigins,
		DebugEndpoints: cfg.DebugEndpoints,
		StaticDir:      cfg.StaticDir,
		Logger:         log,
	})

	server := &http.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", *addr).Msg("Server listening")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	phaseScheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}
	cancel()

	log.Info().Msg("Server stopped")
}

// openStore opens the configured reservation store and returns its closer.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storage.ReservationStore, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreDriverSQLite:
		db, err := storage.NewDB(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := storage.RunMigrations(ctx, db, log); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		return storage.NewReservationRepository(db), func() { db.Close() }, nil

	default:
		fs, err := storage.NewFileStore(cfg.ReservationsFile, log)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil
	}
}

// healthCheckURL points at the local server's health endpoint. Only the port
// of addr is used, so listen hosts like 0.0.0.0 still resolve.
func healthCheckURL(addr string) (string, error) {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("invalid address %q: %w", addr, err)
	}
	return "http://" + net.JoinHostPort("localhost", port) + "/api/health", nil
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(addr string) error {
	url, err := healthCheckURL(addr)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
