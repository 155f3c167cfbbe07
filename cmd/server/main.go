// Package main is the entry point for the lab equipment scheduling server.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/lab-scheduler/backend/internal/access"
	"github.com/lab-scheduler/backend/internal/api"
	"github.com/lab-scheduler/backend/internal/booking"
	"github.com/lab-scheduler/backend/internal/cache"
	"github.com/lab-scheduler/backend/internal/calendar"
	"github.com/lab-scheduler/backend/internal/catalog"
	"github.com/lab-scheduler/backend/internal/config"
	"github.com/lab-scheduler/backend/internal/storage"
	"github.com/lab-scheduler/backend/internal/websocket"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
// Defaults to "dev" when not provided.
var version = "dev"

func main() {
	healthCheck := flag.Bool("health-check", false, "Run health check and exit")
	flag.Parse()

	cfg := config.Load()

	// Health check mode for Docker HEALTHCHECK
	if *healthCheck {
		if err := runHealthCheck(cfg.Addr); err != nil {
			os.Exit(1)
		}
		os.Exit(0)
	}

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Info("starting lab scheduler", zap.String("version", version))

	// Initialize database
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatal("failed to create data directory", zap.String("dir", cfg.DataDir), zap.Error(err))
	}
	db, err := storage.NewDB(cfg.DataDir + "/lab-scheduler.db")
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	if err := storage.RunMigrations(db, log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis backs the catalog mapping cache
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()

	// Initialize WebSocket hub
	hub := websocket.NewHub(log)
	go hub.Run()
	broadcaster := websocket.NewEventBroadcaster(hub, log)

	// Initialize repositories
	ledger := storage.NewReservationRepository(db)
	catalogStore := storage.NewCatalogRepository(db)
	directory := storage.NewEquipmentDirectory(db)
	aclStore := storage.NewACLRepository(db)

	gate := access.NewGate(aclStore, cfg.SiteAdmins, log)
	mappings := cache.NewMappings(rdb, catalogStore, cfg.CacheTTL, log)
	catalogSvc := catalog.NewService(catalogStore, mappings, log)

	// The external calendar is optional; without a base URL bookings are
	// still made, just never mirrored.
	var sink booking.CalendarSink
	var scheduler *calendar.Scheduler
	if cfg.CalendarBaseURL != "" {
		client := calendar.NewClient(cfg.CalendarBaseURL, cfg.CalendarToken, log)
		sink = client

		reconciler := calendar.NewReconciler(ledger, directory, client, log)
		scheduler = calendar.NewScheduler(reconciler, cfg.ReconcileEvery, log)
		if err := scheduler.Start(); err != nil {
			log.Warn("failed to start calendar reconciler", zap.Error(err))
		}
	} else {
		log.Warn("no external calendar configured, bookings will not be mirrored")
	}

	bookingSvc := booking.NewService(ledger, directory, gate, sink, broadcaster, booking.UTCClock{}, log)

	router := api.NewRouter(api.Deps{
		DB:        db,
		Bookings:  bookingSvc,
		Catalog:   catalogSvc,
		Gate:      gate,
		Mappings:  mappings,
		Hub:       hub,
		StaticDir: cfg.StaticDir,
		Log:       log,
	})

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		log.Info("server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	if scheduler != nil {
		scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("server shutdown error", zap.Error(err))
	}

	log.Info("server stopped")
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(addr string) error {
	url := "http://localhost" + addr + "/api/health"
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return http.ErrAbortHandler
	}
	return nil
}
