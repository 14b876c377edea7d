package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vulnera/config"
	"vulnera/observability/logging"
	"vulnera/services/reconciler"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the configuration file")
	nodeURL := flag.String("node", "http://localhost:8545", "node RPC base URL")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		os.Stderr.WriteString("load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger := logging.Setup("reconcilerd", cfg.Environment)

	store, err := reconciler.NewStore(cfg.ReconcilerDBPath)
	if err != nil {
		logger.Error("open reconciler store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	node := reconciler.NewHTTPNodeClient(*nodeURL)
	watcher := reconciler.NewEventWatcher(node, store, logger)
	if cfg.ReconcilerPollSecs > 0 {
		watcher.SetPollInterval(time.Duration(cfg.ReconcilerPollSecs) * time.Second)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go watcher.Run(ctx)
	logger.Info("reconciler watching", "node", *nodeURL, "db", cfg.ReconcilerDBPath)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")
	cancel()
}
