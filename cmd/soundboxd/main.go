package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"github.com/dewasatria11/Device-Qris-Admin-CRUD/config"
	"github.com/dewasatria11/Device-Qris-Admin-CRUD/internal/alert"
	"github.com/dewasatria11/Device-Qris-Admin-CRUD/internal/api"
	"github.com/dewasatria11/Device-Qris-Admin-CRUD/internal/db"
	"github.com/dewasatria11/Device-Qris-Admin-CRUD/internal/schema"
	"github.com/dewasatria11/Device-Qris-Admin-CRUD/internal/store"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "soundboxd ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	if cfg.Auth.APIKey == "" {
		logger.Fatalf("auth.api_key must be configured; the cashier and admin surface cannot run without it")
	}

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	// Offline alerting needs a push channel; without keys it stays off.
	if cfg.Offline.Enabled && (cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "") {
		logger.Println("VAPID keys are not configured; disabling offline alerting")
		cfg.Offline.Enabled = false
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The resolver inspects the heartbeat table once and caches the result
	// for the life of the process.
	resolver := schema.NewResolver(gormDB)

	appStore := store.NewGormStore(gormDB, resolver, cfg.Dispatch.ClaimAttempts)
	logger.Println("data store initialized")

	// Run the offline alert scheduler in the background.
	pool := alert.NewWorkerPool(cfg.WorkerPool.Size, gormDB, &webpushOptions)
	scheduler := alert.NewScheduler(cfg, appStore, resolver, pool)
	go scheduler.Run(ctx)

	// Initialize router
	router := api.NewRouter(appStore, cfg, &webpushOptions)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
