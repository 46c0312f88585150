package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"rewe/crawler/internal/config"
	"rewe/crawler/internal/container"

	log "github.com/sirupsen/logrus"
)

func main() {
	log.Info("Starting REWE crawler...")

	if level, err := log.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Application exited with error: %v", err)
	}

	log.Info("Application finished successfully")
}

type application interface {
	Run(ctx context.Context) error
	Close() error
}

var newApplication = func(ctx context.Context, cfg *config.Config) (application, error) {
	app, err := container.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return app, nil
}

// run owns the container; it is closed on every return path, panics included.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log.Info("Configuration loaded successfully")

	app, err := newApplication(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	defer app.Close()

	return app.Run(ctx)
}
