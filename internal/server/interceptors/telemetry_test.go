package interceptors

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"tokengate/internal/auth"
	"tokengate/internal/telemetry"
)

// chanEmitter implements telemetry.EventEmitter and forwards events on a channel.
type chanEmitter struct {
	events chan *telemetry.Event
}

func (e *chanEmitter) Emit(_ context.Context, event *telemetry.Event) error {
	e.events <- event
	return nil
}

func (e *chanEmitter) next(t *testing.T) *telemetry.Event {
	t.Helper()
	select {
	case ev := <-e.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event emitted")
		return nil
	}
}

func TestTelemetryUnary_EmitsRequestEvent(t *testing.T) {
	em := &chanEmitter{events: make(chan *telemetry.Event, 1)}
	ic := TelemetryUnary(em, nil)
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-forwarded-for", "203.0.113.7"))
	ctx = auth.WithIdentity(ctx, &auth.Identity{UserID: "user-1", SessionIDHash: "abc"})

	_, err := ic(ctx, "request", &grpc.UnaryServerInfo{FullMethod: protectedMethod},
		func(ctx context.Context, req interface{}) (interface{}, error) {
			return nil, status.Error(codes.NotFound, "missing")
		})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("handler error not propagated: %v", err)
	}

	ev := em.next(t)
	if ev.Type != telemetry.EventGRPCRequest || ev.Source != "grpc" {
		t.Errorf("event = %+v", ev)
	}
	if ev.UserID != "user-1" || ev.SessionIDHash != "abc" {
		t.Errorf("identity not copied: %+v", ev)
	}
	var meta grpcRequestMetadata
	if err := json.Unmarshal(ev.Metadata, &meta); err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if meta.FullMethod != protectedMethod || meta.StatusCode != "NotFound" || meta.ClientIP != "203.0.113.7" {
		t.Errorf("metadata = %+v", meta)
	}
}

func TestTelemetryUnary_SkipAndNil(t *testing.T) {
	em := &chanEmitter{events: make(chan *telemetry.Event, 1)}
	ic := TelemetryUnary(em, map[string]bool{publicMethod: true})
	if _, err := ic(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: publicMethod}, okHandler); err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	select {
	case ev := <-em.events:
		t.Errorf("skipped method emitted %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}

	resp, err := TelemetryUnary(nil, nil)(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: protectedMethod},
		func(context.Context, interface{}) (interface{}, error) { return "ok", errors.New("boom") })
	if resp != "ok" || err == nil {
		t.Errorf("nil emitter changed result: %v, %v", resp, err)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{"x-forwarded-for", metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-forwarded-for", "192.168.1.1")), "192.168.1.1"},
		{"x-forwarded-for list", metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-forwarded-for", "192.168.1.1, 10.0.0.1")), "192.168.1.1"},
		{"x-real-ip", metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-real-ip", "10.0.0.2")), "10.0.0.2"},
		{"forwarded wins", metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-forwarded-for", "1.1.1.1", "x-real-ip", "2.2.2.2")), "1.1.1.1"},
		{"whitespace", metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-real-ip", "  10.0.0.3  ")), "10.0.0.3"},
		{"peer", peer.NewContext(context.Background(), &peer.Peer{Addr: &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 5000}}), "127.0.0.1"},
		{"unknown", context.Background(), "unknown"},
	}
	for _, tt := range tests {
		if got := ClientIP(tt.ctx); got != tt.want {
			t.Errorf("%s: ClientIP = %q, want %q", tt.name, got, tt.want)
		}
	}
}
