package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"vulnera/config"
	"vulnera/core"
	"vulnera/core/state"
	"vulnera/native/bounty"
	"vulnera/observability/logging"
	"vulnera/rpc"
	"vulnera/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "config.toml", "path to the node configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		os.Stderr.WriteString("load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger := logging.Setup("vulnerad", cfg.Environment)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error("create data dir", "error", err)
		os.Exit(1)
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
	if err != nil {
		logger.Error("open ledger database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	runtime := core.NewRuntime(state.NewManager(db), logger)
	runtime.RegisterProgram(bounty.ProgramID, bounty.NewEngine())

	server := rpc.NewServer(runtime, logger)
	srv := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("rpc listening", "address", cfg.ListenAddress)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen", "error", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
