package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/adred-codev/lastmile/internal/broker"
	"github.com/adred-codev/lastmile/internal/protocol"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// hardMaxMessageBytes is the fixed 1 MiB bound spec.md §4.9 and §8
	// place on decoded text length. Unlike max_message_size/max_frame_size
	// (both operator-configurable), this bound is not configurable: a
	// text message of exactly this size passes the check, one byte more
	// gets a "Message too large" error. The connection's read limit
	// (max_frame_size, set in run) applies first: a message larger than
	// max_frame_size ends the connection before this check is reached.
	hardMaxMessageBytes = 1 << 20
)

// connHandler owns one upgraded connection's read and write pumps,
// grounded in go-server/pkg/websocket.Client's pump split and
// go-server-3/internal/transport.Server's connCtx/done-channel
// shutdown coordination: either pump exiting tears down the other and
// the connection as a whole.
type connHandler struct {
	listener *Listener
	conn     *websocket.Conn
	endpoint *broker.Endpoint
	limiter  *broker.RateLimiter
	logger   *zap.Logger
}

// newConnHandler mints a correlation ID for the connection so every log
// line a pump emits for it can be grepped together, the way a request
// ID threads through an HTTP middleware stack.
func newConnHandler(l *Listener, conn *websocket.Conn, endpoint *broker.Endpoint, limiter *broker.RateLimiter) *connHandler {
	return &connHandler{
		listener: l,
		conn:     conn,
		endpoint: endpoint,
		limiter:  limiter,
		logger:   l.logger.With(zap.String("conn_id", uuid.NewString()), zap.Uint64("endpoint_id", uint64(endpoint.ID()))),
	}
}

// run drives both pumps and blocks until the connection closes.
func (h *connHandler) run() {
	h.conn.SetReadLimit(h.listener.cfg.MaxFrameSize)
	h.conn.SetReadDeadline(time.Now().Add(pongWait))
	h.conn.SetPongHandler(func(string) error {
		h.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	h.logger.Debug("connection opened")
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writePump()
	}()

	h.readPump()
	h.endpoint.Outbox().Close()
	<-done
	h.logger.Debug("connection closed")
}

func (h *connHandler) readPump() {
	logger := h.logger
	for {
		msgType, data, err := h.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debug("read error", zap.Error(err))
			}
			return
		}
		switch msgType {
		case websocket.BinaryMessage:
			h.sendErrorFrame("Binary messages not supported")
			continue
		case websocket.TextMessage:
			// handled below
		default:
			continue
		}

		if len(data) > hardMaxMessageBytes {
			h.sendErrorFrame("Message too large")
			continue
		}

		if h.limiter != nil && !h.limiter.Check() {
			if h.listener.metrics != nil {
				h.listener.metrics.RateLimitRejected.WithLabelValues(h.listener.name).Inc()
			}
			h.sendErrorFrame("rate limit exceeded")
			continue
		}

		cmd, err := protocol.DecodeCommand(data)
		if err != nil {
			h.sendErrorFrame("malformed command: " + err.Error())
			continue
		}

		h.endpoint.OnCommand(cmd)
	}
}

func (h *connHandler) writePump() {
	// Closing the connection on exit makes a blocked ReadMessage in
	// readPump fail, so a write failure also ends the read side.
	defer h.conn.Close()
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	// A single goroutine owns the blocking Recv call for this outbox's
	// lifetime and feeds events into a channel writePump can select on
	// alongside the ping ticker; calling Recv from more than one
	// goroutine at a time is not part of the Outbox contract. stop lets
	// the feeder goroutine abandon a pending send if writePump exits
	// first, so it never leaks blocked on an unread channel.
	events := make(chan recvResult)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		outbox := h.endpoint.Outbox()
		for {
			event, ok := outbox.Recv()
			select {
			case events <- recvResult{event, ok}:
			case <-stop:
				return
			}
			if !ok {
				return
			}
		}
	}()

	for {
		select {
		case res := <-events:
			if !res.ok {
				h.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = h.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := protocol.Encode(res.event)
			if err != nil {
				h.logger.Error("event encode failed", zap.Error(err))
				continue
			}
			h.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := h.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			h.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := h.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *connHandler) sendErrorFrame(msg string) {
	data, err := protocol.Encode(protocol.NewErrorEvent(msg))
	if err != nil {
		return
	}
	h.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = h.conn.WriteMessage(websocket.TextMessage, data)
}

type recvResult struct {
	event protocol.Event
	ok    bool
}
