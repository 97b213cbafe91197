package visualiser

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

var errEnough = errors.New("enough")

func startBufconn(t *testing.T, pub *Publisher) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewRenderServer(pub, DefaultConfig())
	srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestRenderServer_StreamsCurrentAndUpdates(t *testing.T) {
	pub := NewPublisher(DefaultConfig())
	pub.Publish(testBuffer(3), IdentityPose())
	conn := startBufconn(t, pub)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var got []*Geometry
	err := StreamGeometry(ctx, conn, func(g *Geometry) error {
		got = append(got, g)
		if len(got) == 1 {
			// Subscribed: publish the next version.
			pub.Publish(testBuffer(5), IdentityPose())
			return nil
		}
		return errEnough
	})
	require.ErrorIs(t, err, errEnough)
	require.Len(t, got, 2)

	assert.Equal(t, 3, got[0].PointCount())
	assert.Equal(t, uint64(1), got[0].Version)
	assert.Equal(t, 5, got[1].PointCount())
	assert.Equal(t, []uint32{0, 1, 2, 3, 4}, got[1].Indices)
	assert.Equal(t, "/camera/points", got[1].Topic)
}

func TestRenderServer_ClientCancelUnsubscribes(t *testing.T) {
	pub := NewPublisher(DefaultConfig())
	conn := startBufconn(t, pub)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- StreamGeometry(ctx, conn, func(*Geometry) error {
			cancel()
			return nil
		})
	}()

	select {
	case err := <-errCh:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not end after cancel")
	}

	require.Eventually(t, func() bool { return pub.Stats().Clients == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestRenderServer_StartStop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ListenAddr = "localhost:0"
	srv := NewRenderServer(NewPublisher(cfg), cfg)

	assert.Nil(t, srv.Addr())
	require.NoError(t, srv.Start())
	assert.NotNil(t, srv.Addr())
	assert.Error(t, srv.Start(), "second start must fail")

	srv.Stop()
	srv.Stop()
}
