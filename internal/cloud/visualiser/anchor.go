// Package visualiser publishes assembled point clouds as renderable geometry
// anchored to an externally tracked pose, and streams that geometry to
// remote renderers over gRPC.
package visualiser

import (
	"fmt"
	"sync/atomic"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// AnchorPose places the whole point set in the scene.
type AnchorPose struct {
	Position    r3.Vec
	Orientation quat.Number
}

// IdentityPose is the origin with no rotation.
func IdentityPose() AnchorPose {
	return AnchorPose{Orientation: quat.Number{Real: 1}}
}

// PoseFromArrays builds a pose from a position x, y, z and an orientation
// quaternion w, x, y, z as they appear in configuration and JSON bodies.
func PoseFromArrays(position [3]float64, orientation [4]float64) AnchorPose {
	return AnchorPose{
		Position: r3.Vec{X: position[0], Y: position[1], Z: position[2]},
		Orientation: quat.Number{
			Real: orientation[0],
			Imag: orientation[1],
			Jmag: orientation[2],
			Kmag: orientation[3],
		},
	}.Normalized()
}

// Normalized returns p with a unit orientation. A zero quaternion is
// treated as identity.
func (p AnchorPose) Normalized() AnchorPose {
	n := quat.Abs(p.Orientation)
	if n == 0 {
		p.Orientation = quat.Number{Real: 1}
		return p
	}
	p.Orientation = quat.Scale(1/n, p.Orientation)
	return p
}

// Apply maps a local point into the anchor's parent frame.
func (p AnchorPose) Apply(v r3.Vec) r3.Vec {
	rot := r3.Rotation(p.Normalized().Orientation)
	return r3.Add(rot.Rotate(v), p.Position)
}

// AnchorProvider supplies the pose at publish time.
type AnchorProvider interface {
	Anchor() AnchorPose
}

// Anchor modes accepted by NewAnchorProvider.
const (
	AnchorModeStatic  = "static"
	AnchorModeTracked = "tracked"
)

// NewAnchorProvider selects the provider variant once at start-up.
func NewAnchorProvider(mode string, initial AnchorPose) (AnchorProvider, error) {
	switch mode {
	case "", AnchorModeStatic:
		return NewStaticAnchor(initial), nil
	case AnchorModeTracked:
		return NewTrackedAnchor(initial), nil
	default:
		return nil, fmt.Errorf("unknown anchor mode %q", mode)
	}
}

// StaticAnchor always returns the same pose.
type StaticAnchor struct {
	pose AnchorPose
}

// NewStaticAnchor creates a StaticAnchor.
func NewStaticAnchor(p AnchorPose) *StaticAnchor {
	return &StaticAnchor{pose: p.Normalized()}
}

func (a *StaticAnchor) Anchor() AnchorPose { return a.pose }

// TrackedAnchor holds the latest pose reported by a tracking source.
// Update may be called from any goroutine.
type TrackedAnchor struct {
	pose atomic.Pointer[AnchorPose]
}

// NewTrackedAnchor creates a TrackedAnchor seeded with initial.
func NewTrackedAnchor(initial AnchorPose) *TrackedAnchor {
	a := &TrackedAnchor{}
	a.Update(initial)
	return a
}

// Update replaces the current pose.
func (a *TrackedAnchor) Update(p AnchorPose) {
	n := p.Normalized()
	a.pose.Store(&n)
}

func (a *TrackedAnchor) Anchor() AnchorPose {
	return *a.pose.Load()
}
