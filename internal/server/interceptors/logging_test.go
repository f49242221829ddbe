package interceptors

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"strings"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"projectbeheer/backend/internal/logging"
)

func TestLoggingUnary_WritesLine(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	interceptor := LoggingUnary(logger, nil)

	ctx := WithIdentity(context.Background(), Identity{UserID: "u1"})
	_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/test.Service/M"},
		func(ctx context.Context, req interface{}) (interface{}, error) {
			if logging.FromContext(ctx) == slog.Default() {
				t.Error("handler should get a request-scoped logger")
			}
			return nil, status.Error(codes.Aborted, "version conflict")
		})
	if status.Code(err) != codes.Aborted {
		t.Fatalf("err = %v, want Aborted passthrough", err)
	}

	out := buf.String()
	for _, want := range []string{"method=/test.Service/M", "user_id=u1", "code=Aborted", "level=WARN"} {
		if !strings.Contains(out, want) {
			t.Errorf("log line %q missing %q", out, want)
		}
	}
}

func TestLoggingUnary_SkipMethod(t *testing.T) {
	var buf bytes.Buffer
	interceptor := LoggingUnary(slog.New(slog.NewTextHandler(&buf, nil)), map[string]bool{"/grpc.health.v1.Health/Check": true})

	_, _ = interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"},
		func(ctx context.Context, req interface{}) (interface{}, error) { return nil, nil })
	if buf.Len() != 0 {
		t.Errorf("skipped method logged %q", buf.String())
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name string
		md   map[string]string
		want string
	}{
		{"forwarded", map[string]string{"x-forwarded-for": "192.168.1.1"}, "192.168.1.1"},
		{"forwarded list", map[string]string{"x-forwarded-for": "192.168.1.1, 10.0.0.1"}, "192.168.1.1"},
		{"forwarded whitespace", map[string]string{"x-forwarded-for": "  192.168.1.1  "}, "192.168.1.1"},
		{"real ip", map[string]string{"x-real-ip": "192.168.1.2"}, "192.168.1.2"},
		{"forwarded wins", map[string]string{"x-forwarded-for": "192.168.1.1", "x-real-ip": "192.168.1.2"}, "192.168.1.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := metadata.NewIncomingContext(context.Background(), metadata.New(tt.md))
			if ip := ClientIP(ctx); ip != tt.want {
				t.Errorf("ip = %q, want %q", ip, tt.want)
			}
		})
	}
}

func TestClientIP_Peer(t *testing.T) {
	ctx := peer.NewContext(context.Background(), &peer.Peer{
		Addr: &net.TCPAddr{IP: net.ParseIP("192.168.1.3"), Port: 12345},
	})
	if ip := ClientIP(ctx); ip != "192.168.1.3" {
		t.Errorf("ip = %q, want %q", ip, "192.168.1.3")
	}
	if ip := ClientIP(context.Background()); ip != "unknown" {
		t.Errorf("ip = %q, want unknown", ip)
	}
}
