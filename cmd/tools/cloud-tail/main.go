// Command cloud-tail connects to a cloudbridge render stream and prints a
// line per received geometry. Useful for checking a bridge end to end
// without a headset.
//
// Usage:
//
//	go run ./cmd/tools/cloud-tail [-addr localhost:50061] [-n 0]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"

	"gonum.org/v1/gonum/spatial/r3"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/Lab-CORO/VR-Robotic-Manipulation/internal/cloud/visualiser"
)

var errDone = errors.New("done")

func main() {
	addr := flag.String("addr", "localhost:50061", "Render stream address")
	limit := flag.Int("n", 0, "Exit after this many geometries (0 = unlimited)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("failed to create client: %v", err)
	}
	defer conn.Close()

	if err := tail(ctx, conn, os.Stdout, *limit); err != nil && ctx.Err() == nil {
		log.Fatalf("render stream ended: %v", err)
	}
}

// tail prints one summary line per geometry until limit is reached.
func tail(ctx context.Context, cc grpc.ClientConnInterface, out io.Writer, limit int) error {
	received := 0
	err := visualiser.StreamGeometry(ctx, cc, func(g *visualiser.Geometry) error {
		received++
		fmt.Fprintln(out, summarize(g))
		if limit > 0 && received >= limit {
			return errDone
		}
		return nil
	})
	if errors.Is(err, errDone) {
		return nil
	}
	return err
}

func summarize(g *visualiser.Geometry) string {
	world := worldBounds(g.WorldPositions())
	return fmt.Sprintf("v=%d topic=%s seq=%d points=%d visible=%v bounds=[%.2f %.2f %.2f]..[%.2f %.2f %.2f] world=[%.2f %.2f %.2f]..[%.2f %.2f %.2f] anchor=(%.2f %.2f %.2f)",
		g.Version, g.Topic, g.Sequence, g.PointCount(), g.Visible,
		g.Bounds.Min.X, g.Bounds.Min.Y, g.Bounds.Min.Z,
		g.Bounds.Max.X, g.Bounds.Max.Y, g.Bounds.Max.Z,
		world.Min.X, world.Min.Y, world.Min.Z,
		world.Max.X, world.Max.Y, world.Max.Z,
		g.Pose.Position.X, g.Pose.Position.Y, g.Pose.Position.Z)
}

// worldBounds is the axis-aligned box around anchored points. An empty set
// yields the zero box.
func worldBounds(points []r3.Vec) r3.Box {
	if len(points) == 0 {
		return r3.Box{}
	}
	box := r3.Box{
		Min: r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)},
		Max: r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)},
	}
	for _, p := range points {
		box.Min = r3.Vec{X: math.Min(box.Min.X, p.X), Y: math.Min(box.Min.Y, p.Y), Z: math.Min(box.Min.Z, p.Z)}
		box.Max = r3.Vec{X: math.Max(box.Max.X, p.X), Y: math.Max(box.Max.Y, p.Y), Z: math.Max(box.Max.Z, p.Z)}
	}
	return box
}
