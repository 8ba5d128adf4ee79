package grpcserver_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"jobmate/harvester-service/internal/grpcserver"
	"jobmate/harvester-service/internal/scheduler"
)

type statusFunc func() scheduler.Status

func (f statusFunc) Status() scheduler.Status { return f() }

func dial(t *testing.T, srv *grpcserver.Server) healthpb.HealthClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func check(t *testing.T, c healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealthFollowsLastRun(t *testing.T) {
	st := scheduler.Status{}
	srv := grpcserver.NewServer(statusFunc(func() scheduler.Status { return st }), nil)
	c := dial(t, srv)

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, c, grpcserver.ServiceName))

	st = scheduler.Status{Runs: 1}
	srv.Refresh()
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, c, grpcserver.ServiceName))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, c, ""))

	st = scheduler.Status{Runs: 2, Failures: 1, LastErr: errors.New("store down")}
	srv.Refresh()
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, c, grpcserver.ServiceName))
}

func TestUnknownService(t *testing.T) {
	c := dial(t, grpcserver.NewServer(nil, nil))

	_, err := c.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "other"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestWatchStopsWithContext(t *testing.T) {
	srv := grpcserver.NewServer(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.Watch(ctx, 10*time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watch did not return")
	}
}
