package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/adred-codev/lastmile/internal/config"
	"github.com/adred-codev/lastmile/internal/protocol"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func dialRetry(t *testing.T, u string) *websocket.Conn {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, _, err := websocket.DefaultDialer.Dial(u, nil)
		if err == nil {
			return conn
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("could not dial %s", u)
	return nil
}

func TestServerEndToEndPublishSubscribe(t *testing.T) {
	port := freePort(t)
	cfg := &config.Config{
		Listeners: map[string]config.Listener{
			"public": {
				IP:                         "127.0.0.1",
				Port:                       uint16(port),
				DefaultEndpointPermissions: []string{"Subscribe", "CreateChannel", "NotifyChannel"},
				MaxMessageSize:             64 * 1024,
				MaxFrameSize:               1 << 20,
			},
		},
	}

	logger := zap.NewNop()
	srv, err := New(cfg, logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	u := url.URL{Scheme: "ws", Host: fmt.Sprintf("127.0.0.1:%d", port), Path: "/"}

	publisher := dialRetry(t, u.String())
	defer publisher.Close()
	subscriber := dialRetry(t, u.String())
	defer subscriber.Close()

	send := func(conn *websocket.Conn, cmd protocol.Command) {
		data, err := json.Marshal(cmd)
		if err != nil {
			t.Fatalf("marshal command: %v", err)
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			t.Fatalf("write command: %v", err)
		}
	}

	readEvent := func(conn *websocket.Conn) protocol.Event {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read event: %v", err)
		}
		var ev protocol.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		return ev
	}

	send(publisher, protocol.NewCreateChannel("quotes"))
	if ack := readEvent(publisher); ack.Kind != protocol.EventSuccess {
		t.Fatalf("expected success ack for CreateChannel, got %+v", ack)
	}

	send(subscriber, protocol.NewSubscribe("quotes"))
	if ack := readEvent(subscriber); ack.Kind != protocol.EventSuccess {
		t.Fatalf("expected success ack for Subscribe, got %+v", ack)
	}

	send(publisher, protocol.NewNotifyChannel("quotes", protocol.NewTextMessage("hello")))
	if ack := readEvent(publisher); ack.Kind != protocol.EventSuccess {
		t.Fatalf("expected success ack for NotifyChannel, got %+v", ack)
	}

	delivered := readEvent(subscriber)
	if delivered.Kind != protocol.EventChannelMessage {
		t.Fatalf("expected ChannelMessage event, got %+v", delivered)
	}
	if delivered.ChannelID != "quotes" {
		t.Fatalf("ChannelID = %q, want quotes", delivered.ChannelID)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down in time")
	}
}
