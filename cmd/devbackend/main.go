// Command devbackend serves the GuestReport REST endpoints the client consumes,
// backed by sqlite or postgres, for local development and end-to-end tests.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"guestreport_client/internal/config"
	"guestreport_client/internal/platform/logger"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	server, cleanup, err := initializeServer(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize server: %v", err)
	}
	defer cleanup()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Printf("INFO: Received signal '%s'. Shutting down server...", sig)
	case err := <-serverErr:
		if err != nil {
			log.Printf("ERROR: Server failed: %v", err)
		}
		return
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ServerTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Server forced to shutdown due to error: %v", err)
	} else {
		log.Println("INFO: Server shutdown complete.")
	}
}

// provideLogger builds the zap logger and flushes it on cleanup.
func provideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	l, err := logger.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return l, func() { _ = l.Sync() }, nil
}
