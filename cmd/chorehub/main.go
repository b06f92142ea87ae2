package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/chorehub/internal/database"
	"github.com/dukerupert/chorehub/internal/logging"
	"github.com/dukerupert/chorehub/internal/server"
)

func main() {
	port := os.Getenv("CHOREHUB_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("CHOREHUB_DB_PATH")
	if dbPath == "" {
		dbPath = "chorehub.db"
	}

	logger := logging.Setup(os.Getenv("CHOREHUB_LOG_LEVEL"), os.Getenv("CHOREHUB_LOG_FORMAT"))

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	cfg := server.Config{
		GatewayURL:       os.Getenv("CHOREHUB_GATEWAY_URL"),
		GatewayKeyID:     os.Getenv("CHOREHUB_GATEWAY_KEY_ID"),
		GatewayKeySecret: os.Getenv("CHOREHUB_GATEWAY_SECRET"),
		StripeKey:        os.Getenv("CHOREHUB_STRIPE_KEY"),
		NotifyURL:        os.Getenv("CHOREHUB_NOTIFY_URL"),
		NotifyAPIKey:     os.Getenv("CHOREHUB_NOTIFY_API_KEY"),
	}

	srv := server.New(db, cfg, logger)

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Periodic cleanup of expired sessions and stale rate-limit entries.
	cleanupDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := srv.SessionStore().DeleteExpired(); err != nil {
					logger.Error("session cleanup", "error", err)
				}
				srv.RateLimiter().Cleanup()
			case <-cleanupDone:
				return
			}
		}
	}()

	go func() {
		logger.Info("chorehub listening", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	close(cleanupDone)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}

	// Let in-flight payout and notification tasks finish.
	srv.Runner().Wait()
}
