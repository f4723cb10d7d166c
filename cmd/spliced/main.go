package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"splice/internal/config"
	"splice/internal/daemon"
	"splice/internal/jobs"
	"splice/internal/logging"
	"splice/internal/scheduler"
	"splice/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to the config file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := jobs.Open(cfg)
	if err != nil {
		logger.Error("open jobs store", logging.Error(err))
		os.Exit(1)
	}

	content, err := storage.NewFSStore(cfg.Paths.DataDir)
	if err != nil {
		logger.Error("open content store", logging.Error(err))
		_ = store.Close()
		os.Exit(1)
	}

	sched := scheduler.New(cfg, store, content, logger)

	d, err := daemon.New(cfg, store, sched, content, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		_ = store.Close()
		os.Exit(1)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("spliced shutting down")
}
