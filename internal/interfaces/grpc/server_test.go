package grpc

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/ClairePA/ChemistryToolkit/internal/testutil"
)

type flipChecker struct{ down atomic.Bool }

func (f *flipChecker) Name() string { return "postgres" }

func (f *flipChecker) Check(ctx context.Context) error {
	if f.down.Load() {
		return fmt.Errorf("connection refused")
	}
	return nil
}

func startServer(t *testing.T, s *Server) healthpb.HealthClient {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = s.Serve(l) }()
	t.Cleanup(func() { s.Stop(context.Background()) })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := grpc.DialContext(ctx, l.Addr().String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()), grpc.WithBlock())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func TestServer_HealthServing(t *testing.T) {
	client := startServer(t, NewServer(WithLogger(testutil.NewMockLogger())))

	for _, svc := range []string{"", ServiceName} {
		resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: svc})
		require.NoError(t, err)
		assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
	}
}

func TestServer_CheckFlipsStatus(t *testing.T) {
	log := testutil.NewMockLogger()
	s := NewServer(WithLogger(log))
	client := startServer(t, s)
	checker := &flipChecker{}

	checker.down.Store(true)
	s.checkAll(context.Background(), []Checker{checker})
	resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)
	assert.True(t, log.HasMessage("warn", "backend unhealthy"))

	checker.down.Store(false)
	s.checkAll(context.Background(), []Checker{checker})
	resp, err = client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}

func TestServer_WatchHealthStopsWithContext(t *testing.T) {
	s := NewServer()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.WatchHealth(ctx, 10*time.Millisecond, &flipChecker{})
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WatchHealth did not return after cancel")
	}
}

func TestServer_ServeTwice(t *testing.T) {
	s := NewServer()
	l1, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = s.Serve(l1) }()
	defer s.Stop(context.Background())

	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.listener != nil
	}, time.Second, 5*time.Millisecond)

	l2, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l2.Close()
	assert.Error(t, s.Serve(l2))
}

func TestRecoveryInterceptor(t *testing.T) {
	log := testutil.NewMockLogger()
	intercept := recoveryUnaryInterceptor(log)
	_, err := intercept(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/ctk.v1.Toolkit/Merge"},
		func(ctx context.Context, req interface{}) (interface{}, error) { panic("boom") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "internal server error")
	assert.True(t, log.HasMessage("error", "grpc panic recovered"))
}
