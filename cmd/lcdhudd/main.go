package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/lcdhud/lcdhud/internal/config"
	"github.com/lcdhud/lcdhud/internal/controller"
	"github.com/lcdhud/lcdhud/internal/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// An explicit argument overrides the configuration directory, for
	// previewing a theme without installing it
	if len(os.Args) > 1 {
		cfg.ConfigDir = os.Args[1]
	}

	// Shut down on SIGINT/SIGTERM; the in-flight frame completes first
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dev, err := controller.Discover(ctx, cfg.Discovery.Attempts, cfg.Discovery.Backoff, logger)
	if err != nil {
		logger.Fatal("No usable panel", zap.Error(err))
	}

	logger.Info("Panel connected",
		zap.String("device", dev.Descriptor().String()),
		zap.String("config_dir", cfg.ConfigDir))

	ctrl, err := controller.New(cfg, dev, metrics.DefaultRegistry(logger), logger)
	if err != nil {
		dev.Close()
		logger.Fatal("Failed to load panel configuration", zap.Error(err))
	}

	err = ctrl.Run(ctx)

	// Close before exiting so the panel gets its end-of-stream signal
	if cerr := dev.Close(); cerr != nil {
		logger.Warn("Device close failed", zap.Error(cerr))
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("Streaming stopped", zap.Error(err))
	}

	logger.Info("Shutdown complete")
}

// newLogger builds a production logger at the configured level.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = lvl
	return zcfg.Build()
}
