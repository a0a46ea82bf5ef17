package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"reelscribe/internal/config"
	"reelscribe/internal/daemon"
	"reelscribe/internal/logging"
)

func main() {
	if err := run(); err != nil {
		log.Printf("reelscribed: %v", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return err
	}

	d, err := daemon.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer d.Close(context.Background())

	return d.Run(ctx)
}
