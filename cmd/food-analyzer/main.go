// cmd/food-analyzer/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"food-analyzer/internal/config"
	"food-analyzer/internal/logging"
	"food-analyzer/internal/server"
)

var (
	envFile = flag.String("env-file", ".env", "Optional .env file loaded before the environment")
	port    = flag.Int("port", 0, "Port for HTTP transport (overrides PORT)")
	host    = flag.String("host", "", "Host address (overrides HOST)")
	debug   = flag.Bool("debug", false, "Verbose logging (same as DEBUG_MODE=true)")
	version = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("food-analyzer version %s\n", server.Version)
		os.Exit(0)
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *host != "" {
		cfg.Host = *host
	}
	if *debug {
		cfg.Debug = true
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	srv, err := server.NewFoodAnalyzerServer(cfg, server.NewAnalyzer(cfg, logger), logger)
	if err != nil {
		logger.Fatal("failed to create server", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(ctx); err != nil {
			errCh <- err
		}
	}()

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	logger.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	cancel()
	stopCtx, stop := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer stop()
	if err := srv.Stop(stopCtx); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}
}
