package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"psfd/internal/config"
	"psfd/internal/daemon"
	"psfd/internal/jobs"
	"psfd/internal/logging"
	"psfd/internal/pipeline"
	"psfd/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open store", logging.Error(err))
		os.Exit(1)
	}

	registry := pipeline.NewRegistry(st, logger)
	queue := jobs.NewQueue(cfg, st, logger)
	runner := jobs.NewRunner(cfg, st, registry, queue, logger)

	d, err := daemon.New(cfg, st, queue, runner, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		os.Exit(1)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("psfd shutting down")
}
