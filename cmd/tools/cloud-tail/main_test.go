package main

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/Lab-CORO/VR-Robotic-Manipulation/internal/cloud/l2frames"
	"github.com/Lab-CORO/VR-Robotic-Manipulation/internal/cloud/visualiser"
)

func TestTail_PrintsUntilLimit(t *testing.T) {
	pub := visualiser.NewPublisher(visualiser.DefaultConfig())
	pub.Publish(&l2frames.FrameBuffer{
		Topic:     "/camera/points",
		Sequence:  3,
		Positions: []l2frames.Vector3{{X: -1, Y: 0, Z: 2}, {X: 1, Y: 1, Z: 3}},
		Colors:    []l2frames.Color{l2frames.White, l2frames.White},
	}, visualiser.PoseFromArrays([3]float64{10, 0, 0}, [4]float64{1, 0, 0, 0}))

	lis := bufconn.Listen(1 << 20)
	srv := visualiser.NewRenderServer(pub, visualiser.DefaultConfig())
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out bytes.Buffer
	require.NoError(t, tail(ctx, conn, &out, 1))

	line := strings.TrimSpace(out.String())
	assert.Contains(t, line, "topic=/camera/points")
	assert.Contains(t, line, "seq=3")
	assert.Contains(t, line, "points=2")
	assert.Contains(t, line, "bounds=[-1.00 0.00 2.00]..[1.00 1.00 3.00]")
	assert.Contains(t, line, "world=[9.00 0.00 2.00]..[11.00 1.00 3.00]")
	assert.Contains(t, line, "anchor=(10.00 0.00 0.00)")
}

func TestWorldBounds_Empty(t *testing.T) {
	assert.Equal(t, r3.Box{}, worldBounds(nil))
}
