package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/adred-codev/lastmile/internal/broker"
	"github.com/adred-codev/lastmile/internal/config"
	"github.com/adred-codev/lastmile/internal/metrics"
	"github.com/adred-codev/lastmile/internal/resource"
)

// Listener binds one configured address, performs admission and auth
// checks on each incoming request, upgrades it to a WebSocket
// connection and hands the resulting endpoint to its own read/write
// pumps. Grounded in go-server-3/internal/transport.Server, split one
// instance per configured listener rather than a single process-wide
// server since spec.md §4 gives each listener its own permission set,
// token list and limits.
type Listener struct {
	name     string
	cfg      config.Listener
	perms    broker.PermissionSet
	hub      *broker.Hub
	metrics  *metrics.Registry
	logger   *zap.Logger
	guard    *resource.Guard
	upgrader websocket.Upgrader

	counter *broker.ConnectionCounter

	httpServer  *http.Server
	netListener net.Listener
}

// New builds a Listener from its configuration. It returns an error if
// the configured permission tags are invalid, which Validate already
// guards against for values loaded via config.Load but not for values
// constructed directly (e.g. in tests).
func New(name string, cfg config.Listener, hub *broker.Hub, reg *metrics.Registry, logger *zap.Logger) (*Listener, error) {
	perms, err := parsePermissions(cfg.DefaultEndpointPermissions)
	if err != nil {
		return nil, fmt.Errorf("transport: listener %q: %w", name, err)
	}

	var guard *resource.Guard
	if cfg.MaxProcessCPUPercent > 0 || cfg.MaxProcessMemoryBytes > 0 {
		guard, err = resource.NewGuard(cfg.MaxProcessCPUPercent, cfg.MaxProcessMemoryBytes)
		if err != nil {
			return nil, fmt.Errorf("transport: listener %q: resource guard: %w", name, err)
		}
	}

	return &Listener{
		name:    name,
		cfg:     cfg,
		perms:   perms,
		hub:     hub,
		metrics: reg,
		logger:  logger.With(zap.String("listener", name)),
		guard:   guard,
		upgrader: websocket.Upgrader{
			// max_message_size sizes the I/O buffers the upgrader hands
			// each connection; it is a memory/performance knob here, not
			// a hard reject threshold — that bound is enforced separately
			// in the connection handler per spec.md §4.9/§8.
			ReadBufferSize:  cfg.MaxMessageSize,
			WriteBufferSize: cfg.MaxMessageSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		counter: broker.NewConnectionCounter(cfg.MaxConnections),
	}, nil
}

func parsePermissions(tags []string) (broker.PermissionSet, error) {
	perms := make([]broker.Permission, 0, len(tags))
	for _, tag := range tags {
		p, ok := broker.ParsePermission(tag)
		if !ok {
			return nil, fmt.Errorf("unknown permission %q", tag)
		}
		perms = append(perms, p)
	}
	return broker.NewPermissionSet(perms...), nil
}

// Run binds the listener's address and serves upgrade requests until
// ctx is cancelled, then shuts the HTTP server down and returns. The
// shutdown stops accepting new connections; it does not wait for
// connections already upgraded to WebSocket, whose handlers keep running
// until their own connection closes. It is meant to run inside an
// errgroup goroutine, following SPEC_FULL.md §5's task-per-listener
// coordination.
func (l *Listener) Run(ctx context.Context) error {
	if l.guard != nil {
		go l.guard.Run(ctx, 2*time.Second)
	}

	ln, err := net.Listen("tcp", l.cfg.Addr())
	if err != nil {
		return fmt.Errorf("transport: listener %q: listen: %w", l.name, err)
	}
	l.netListener = ln
	l.logger.Info("listener bound", zap.String("addr", l.cfg.Addr()))

	mux := http.NewServeMux()
	mux.HandleFunc("/", l.handleUpgrade)

	l.httpServer = &http.Server{Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- l.httpServer.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.httpServer.Shutdown(shutdownCtx); err != nil {
			l.logger.Warn("listener shutdown error", zap.Error(err))
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("transport: listener %q: serve: %w", l.name, err)
		}
		return nil
	}
}

func (l *Listener) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if l.guard != nil && !l.guard.Admit() {
		l.refuse(w, "resource_limit")
		return
	}
	if !l.counter.TryIncrement() {
		l.refuse(w, "connection_limit")
		return
	}

	if err := checkAuth(r, l.cfg.AuthTokens); err != nil {
		l.counter.Decrement()
		if l.metrics != nil {
			l.metrics.ConnectionsRefused.WithLabelValues(l.name, "auth").Inc()
		}
		l.logger.Warn("connection refused", zap.String("reason", "auth"), zap.Error(err))
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.counter.Decrement()
		l.logger.Debug("upgrade failed", zap.Error(err))
		return
	}

	if l.metrics != nil {
		l.metrics.ConnectionsTotal.WithLabelValues(l.name).Inc()
		l.metrics.ConnectionsActive.WithLabelValues(l.name).Inc()
	}

	endpoint, brokerErr := l.hub.CreateEndpoint(broker.EndpointSettings{
		Permissions:       l.perms,
		ChannelBufferSize: l.cfg.ChannelBufferSize,
		ListenerName:      l.name,
	})
	if brokerErr != nil {
		l.logger.Error("endpoint creation failed", zap.Error(brokerErr))
		conn.Close()
		l.counter.Decrement()
		if l.metrics != nil {
			l.metrics.ConnectionsActive.WithLabelValues(l.name).Dec()
		}
		return
	}

	h := newConnHandler(l, conn, endpoint, broker.NewRateLimiter(l.cfg.RateLimitPerSecond))
	h.run()

	endpoint.Unregister()
	l.counter.Decrement()
	if l.metrics != nil {
		l.metrics.ConnectionsActive.WithLabelValues(l.name).Dec()
	}
}

func (l *Listener) refuse(w http.ResponseWriter, reason string) {
	if l.metrics != nil {
		l.metrics.ConnectionsRefused.WithLabelValues(l.name, reason).Inc()
	}
	l.logger.Warn("connection refused", zap.String("reason", reason))
	http.Error(w, "server at capacity", http.StatusServiceUnavailable)
}
