package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cesargomez89/xcc-relay/internal/apns"
	"github.com/cesargomez89/xcc-relay/internal/config"
	httpapp "github.com/cesargomez89/xcc-relay/internal/http"
	"github.com/cesargomez89/xcc-relay/internal/logger"
	"github.com/cesargomez89/xcc-relay/internal/push"
	"github.com/cesargomez89/xcc-relay/internal/store"
)

func main() {
	cfg := config.Load()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Initialize Logger
	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	// Initialize DB
	var db *store.DB
	var err error
	switch cfg.DBDriver {
	case "sqlite":
		db, err = store.NewSQLiteDB(cfg.DBPath)
	default:
		db, err = store.NewMySQLDB(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPass, cfg.DBName)
	}
	if err != nil {
		appLogger.Error("Failed to init DB", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize APNs client; missing credentials disable push dispatch.
	var apnsClient *apns.Client
	creds, err := apns.LoadCredentials(cfg)
	if err != nil {
		appLogger.Error("Failed to load APNs credentials", "error", err)
		os.Exit(1)
	}
	if creds == nil {
		appLogger.Warn("APNs credentials not configured, push dispatch disabled")
	} else {
		apnsClient, err = apns.NewClient(creds, nil)
		if err != nil {
			appLogger.Error("Failed to init APNs client", "error", err)
			os.Exit(1)
		}
	}

	dispatcher := push.NewDispatcher(db, apnsClient, appLogger)

	if cfg.WebhookSecret == "" {
		appLogger.Warn("XCC_WEBHOOK_SECRET not set, webhook signature verification disabled")
	}

	// Initialize Router
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Routes
	h := httpapp.NewHandler(db, dispatcher, cfg.WebhookSecret, appLogger)
	h.RegisterRoutes(r)

	// Start Server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
