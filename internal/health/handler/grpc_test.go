package handler

import (
	"context"
	"errors"
	"testing"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// mockPinger implements Pinger for tests.
type mockPinger struct {
	pingErr error
}

func (m *mockPinger) Ping(context.Context) error {
	return m.pingErr
}

func check(t *testing.T, srv *Server, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := srv.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("Check(%q): %v", service, err)
	}
	return resp.GetStatus()
}

func TestCheck_NilPinger(t *testing.T) {
	srv := NewServer(nil)
	if got := check(t, srv, ""); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status = %v, want SERVING", got)
	}
}

func TestCheck_PingerSuccess(t *testing.T) {
	srv := NewServer(&mockPinger{}, "projectbeheer.phase.v1.PhaseService")
	if got := check(t, srv, "projectbeheer.phase.v1.PhaseService"); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status = %v, want SERVING", got)
	}
}

func TestCheck_PingerFailure(t *testing.T) {
	pinger := &mockPinger{pingErr: errors.New("connection refused")}
	srv := NewServer(pinger, "projectbeheer.phase.v1.PhaseService")
	if got := check(t, srv, ""); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status = %v, want NOT_SERVING", got)
	}
	if got := check(t, srv, "projectbeheer.phase.v1.PhaseService"); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("service status = %v, want NOT_SERVING", got)
	}

	pinger.pingErr = nil
	if got := check(t, srv, ""); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status after recovery = %v, want SERVING", got)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	srv := NewServer(&mockPinger{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	go func() {
		srv.Run(ctx, 1)
		close(done)
	}()
	<-done
}
