// Package server owns the broker's hub and the set of listeners built
// from a loaded configuration, grounded in go-server-3/cmd/odin-ws's
// main()-level wiring generalized into a reusable type, with listener
// task coordination moved from that file's single-server sync.WaitGroup
// onto golang.org/x/sync/errgroup per SPEC_FULL.md §5 — the errgroup's
// first non-nil error cancels the shared context, tearing down every
// other listener immediately instead of waiting for each in turn.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/adred-codev/lastmile/internal/broker"
	"github.com/adred-codev/lastmile/internal/config"
	"github.com/adred-codev/lastmile/internal/metrics"
	"github.com/adred-codev/lastmile/internal/transport"
)

// Server owns the broker hub, the configured listeners and the
// optional metrics endpoint for one process.
type Server struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Registry
	hub     *broker.Hub

	listeners []*transport.Listener
}

// New builds a Server and its Listeners from cfg. It does not bind any
// sockets; call Run to start serving.
func New(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	reg := metrics.NewRegistry()
	hub := broker.NewHub()
	hub.SetObserver(reg)

	s := &Server{cfg: cfg, logger: logger, metrics: reg, hub: hub}

	for name, lcfg := range cfg.Listeners {
		l, err := transport.New(name, lcfg, hub, reg, logger)
		if err != nil {
			return nil, fmt.Errorf("server: %w", err)
		}
		s.listeners = append(s.listeners, l)
	}

	return s, nil
}

// Hub returns the broker hub backing every listener, primarily for
// tests that want to drive the directory directly.
func (s *Server) Hub() *broker.Hub {
	return s.hub
}

// Run starts every configured listener plus the optional metrics HTTP
// endpoint and blocks until ctx is cancelled or one of them fails. On
// return every listener has stopped accepting connections; connections
// already upgraded to WebSocket are not waited for.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, l := range s.listeners {
		l := l
		g.Go(func() error {
			return l.Run(gctx)
		})
	}

	if s.cfg.Metrics.Enabled {
		g.Go(func() error {
			return s.runMetricsServer(gctx)
		})
		g.Go(func() error {
			s.reportDirectorySize(gctx)
			return nil
		})
	}

	return g.Wait()
}

// reportDirectorySize polls the hub's directory and sets the
// endpoints-active/channels-total gauges, the way go-server-2/server.go's
// collectMetrics ticker polls process stats for its dashboard. Counting
// these incrementally on every register/unregister would mean threading
// the observer through paths (endpoint unregister, channel creation) that
// don't otherwise need it; polling a point-in-time count is simpler and
// matches what a gauge already models.
func (s *Server) reportDirectorySize(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dir := s.hub.Directory()
			s.metrics.EndpointsActive.Set(float64(dir.EndpointCount()))
			s.metrics.ChannelsTotal.Set(float64(dir.ChannelCount()))
		}
	}
}

func (s *Server) runMetricsServer(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(s.cfg.Metrics.Endpoint, s.metrics.Handler())

	httpServer := &http.Server{
		Addr:         s.cfg.Metrics.ListenAddr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("metrics server starting", zap.String("addr", s.cfg.Metrics.ListenAddr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("metrics server shutdown error", zap.Error(err))
		}
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server: metrics server: %w", err)
		}
		return nil
	}
}
