// Command lastmile runs the WebSocket pub/sub broker described in
// SPEC_FULL.md, grounded in go-server-3/cmd/odin-ws/main.go's
// config/logger/signal wiring, extended with the --config-dir,
// --log-level and --log-format flags SPEC_FULL.md §6 adds.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "go.uber.org/automaxprocs" // sets GOMAXPROCS from the container cgroup quota
	"go.uber.org/zap"

	"github.com/adred-codev/lastmile/internal/config"
	"github.com/adred-codev/lastmile/internal/logging"
	"github.com/adred-codev/lastmile/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configDir := flag.String("config-dir", ".", "directory containing the lastmile config document")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	logFormat := flag.String("log-format", "json", "log format: json, console")
	flag.Parse()

	logger, err := logging.New(*logLevel, *logFormat)
	if err != nil {
		return fmt.Errorf("lastmile: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	cfg, err := config.Load(*configDir)
	if err != nil {
		return fmt.Errorf("lastmile: %w", err)
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("lastmile: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("lastmile starting", zap.Int("listeners", len(cfg.Listeners)))
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("lastmile: %w", err)
	}
	logger.Info("lastmile stopped")
	return nil
}
