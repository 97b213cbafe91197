package visualiser

import (
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Lab-CORO/VR-Robotic-Manipulation/internal/cloud/l2frames"
)

// Geometry is one immutable published point set. Renderers draw it with a
// point topology using Indices.
type Geometry struct {
	Version     uint64
	Topic       string
	Sequence    uint32
	PublishedAt time.Time
	Visible     bool

	Positions []l2frames.Vector3
	Colors    []l2frames.Color
	Indices   []uint32

	// Bounds is the axis-aligned box of Positions in local coordinates.
	Bounds r3.Box
	Pose   AnchorPose
}

// PointCount returns the number of points.
func (g *Geometry) PointCount() int {
	if g == nil {
		return 0
	}
	return len(g.Positions)
}

// WorldPositions returns Positions transformed by Pose, for renderers that
// cannot apply a model transform themselves.
func (g *Geometry) WorldPositions() []r3.Vec {
	out := make([]r3.Vec, len(g.Positions))
	for i, p := range g.Positions {
		out[i] = g.Pose.Apply(r3.Vec{X: float64(p.X), Y: float64(p.Y), Z: float64(p.Z)})
	}
	return out
}

// pointIndices builds the one-index-per-point topology.
func pointIndices(n int) []uint32 {
	idx := make([]uint32, n)
	for i := range idx {
		idx[i] = uint32(i)
	}
	return idx
}

// computeBounds returns the bounding box of positions. An empty set yields
// the zero box.
func computeBounds(positions []l2frames.Vector3) r3.Box {
	if len(positions) == 0 {
		return r3.Box{}
	}
	lo := r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	hi := r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, p := range positions {
		x, y, z := float64(p.X), float64(p.Y), float64(p.Z)
		lo.X = math.Min(lo.X, x)
		lo.Y = math.Min(lo.Y, y)
		lo.Z = math.Min(lo.Z, z)
		hi.X = math.Max(hi.X, x)
		hi.Y = math.Max(hi.Y, y)
		hi.Z = math.Max(hi.Z, z)
	}
	return r3.Box{Min: lo, Max: hi}
}
