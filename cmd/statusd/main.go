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

	"staff-status-backend/config"
	"staff-status-backend/internal/api"
	"staff-status-backend/internal/db"
	"staff-status-backend/internal/manager"
	"staff-status-backend/internal/model"
	"staff-status-backend/internal/notification"
	"staff-status-backend/internal/store"
	statussync "staff-status-backend/internal/sync"

	"github.com/SherClockHolmes/webpush-go"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "status-backend ", log.LstdFlags)

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

	// Check for VAPID keys
	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		logger.Fatalf("VAPID keys must be configured. Please generate them and add them to your config file.")
	}

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	// All status resolution happens in the configured business timezone.
	loc, err := time.LoadLocation(cfg.Sync.Timezone)
	if err != nil {
		logger.Fatalf("invalid timezone %q: %v", cfg.Sync.Timezone, err)
	}
	clock := func() time.Time { return time.Now().In(loc) }

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create the store layer instance
	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	// Provision users from configuration
	for _, seed := range cfg.Users {
		user := model.User{
			ID:         seed.ID,
			Name:       seed.Name,
			Department: seed.Department,
			Tag:        seed.Tag,
			CustomTags: seed.CustomTags,
			WorkStart:  seed.WorkStart,
			WorkEnd:    seed.WorkEnd,
		}
		if err := appStore.CreateUser(ctx, &user); err != nil {
			logger.Fatalf("failed to provision user %s: %v", seed.ID, err)
		}
	}
	logger.Printf("%d users provisioned", len(cfg.Users))

	// Status manager with a notification worker pool behind it
	statusManager := manager.New(appStore, clock)

	pool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, &webpushOptions)
	pool.Start(ctx)
	statusManager.SetNotifier(pool)

	// Initialize and run the synchronizer in the background
	source := statussync.NewSimulatedSource(cfg.Sync.Seed)
	synchronizer := statussync.New(&cfg.Sync, appStore, statusManager, source, clock)
	go synchronizer.Run(ctx)

	// Initialize router
	router := api.NewRouter(appStore, statusManager, synchronizer, cfg.Server, &webpushOptions)
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
