package grpc

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

type fakeStore struct {
	down atomic.Bool
}

func (f *fakeStore) PingContext(ctx context.Context) error {
	if f.down.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func TestProbe(t *testing.T) {
	store := &fakeStore{}
	hs := NewHealthServer(store, time.Second)
	ctx := context.Background()

	st, err := hs.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, st)

	hs.Probe(ctx)
	st, _ = hs.Check(ctx)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, st)

	store.down.Store(true)
	hs.Probe(ctx)
	st, _ = hs.Check(ctx)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, st)
}

func TestHealthOverTheWire(t *testing.T) {
	hs := NewHealthServer(&fakeStore{}, time.Second)
	hs.Probe(context.Background())

	lis := bufconn.Listen(1 << 20)
	go func() { _ = hs.Serve(lis) }()
	defer hs.GracefulStop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestWatchStopsOnCancel(t *testing.T) {
	hs := NewHealthServer(&fakeStore{}, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		hs.Watch(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		st, _ := hs.Check(context.Background())
		return st == healthpb.HealthCheckResponse_SERVING
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watch did not return")
	}
	st, _ := hs.Check(context.Background())
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, st)
}
