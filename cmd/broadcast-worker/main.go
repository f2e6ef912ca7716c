package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/samparkhq/sampark/internal/config"
	broadcastworker "github.com/samparkhq/sampark/internal/worker/broadcast"
	"github.com/samparkhq/sampark/pkg/logging"
)

func main() {
	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel).WithComponent("broadcast-worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- broadcastworker.Run(ctx, cfg, logger)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down broadcast worker...")
		cancel()
		if err := <-errCh; err != nil {
			logger.Error("broadcast worker exited with error", "error", err)
			os.Exit(1)
		}
	case err := <-errCh:
		if err != nil {
			logger.Error("broadcast worker failed to start", "error", err)
			os.Exit(1)
		}
	}
}
