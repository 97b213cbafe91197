package visualiser

import (
	"math"
	"sync"
	"testing"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

func approx(a, b r3.Vec) bool {
	const eps = 1e-9
	return math.Abs(a.X-b.X) < eps && math.Abs(a.Y-b.Y) < eps && math.Abs(a.Z-b.Z) < eps
}

func TestAnchorPose_NormalizedZeroIsIdentity(t *testing.T) {
	p := AnchorPose{}.Normalized()
	if p.Orientation != (quat.Number{Real: 1}) {
		t.Errorf("expected identity orientation, got %+v", p.Orientation)
	}
}

func TestAnchorPose_NormalizedScalesToUnit(t *testing.T) {
	p := AnchorPose{Orientation: quat.Number{Real: 2}}.Normalized()
	if math.Abs(quat.Abs(p.Orientation)-1) > 1e-12 {
		t.Errorf("expected unit quaternion, got |q|=%v", quat.Abs(p.Orientation))
	}
}

func TestAnchorPose_Apply(t *testing.T) {
	// 90° about +Y maps +Z onto +X.
	half := math.Pi / 4
	pose := AnchorPose{
		Position:    r3.Vec{X: 1, Y: 2, Z: 3},
		Orientation: quat.Number{Real: math.Cos(half), Jmag: math.Sin(half)},
	}

	got := pose.Apply(r3.Vec{Z: 1})
	want := r3.Vec{X: 2, Y: 2, Z: 3}
	if !approx(got, want) {
		t.Errorf("expected %+v, got %+v", want, got)
	}

	if got := IdentityPose().Apply(r3.Vec{X: 5, Y: -1}); !approx(got, r3.Vec{X: 5, Y: -1}) {
		t.Errorf("identity pose moved the point: %+v", got)
	}
}

func TestNewAnchorProvider(t *testing.T) {
	initial := AnchorPose{Position: r3.Vec{X: 1}, Orientation: quat.Number{Real: 1}}

	for _, mode := range []string{"", AnchorModeStatic} {
		p, err := NewAnchorProvider(mode, initial)
		if err != nil {
			t.Fatalf("mode %q: %v", mode, err)
		}
		if _, ok := p.(*StaticAnchor); !ok {
			t.Errorf("mode %q: expected *StaticAnchor, got %T", mode, p)
		}
		if p.Anchor().Position.X != 1 {
			t.Errorf("mode %q: unexpected pose %+v", mode, p.Anchor())
		}
	}

	p, err := NewAnchorProvider(AnchorModeTracked, initial)
	if err != nil {
		t.Fatalf("tracked: %v", err)
	}
	if _, ok := p.(*TrackedAnchor); !ok {
		t.Errorf("expected *TrackedAnchor, got %T", p)
	}

	if _, err := NewAnchorProvider("controller", initial); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestTrackedAnchor_ConcurrentUpdate(t *testing.T) {
	a := NewTrackedAnchor(IdentityPose())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				a.Update(AnchorPose{Position: r3.Vec{X: float64(i)}, Orientation: quat.Number{Real: 1}})
				_ = a.Anchor()
			}
		}(i)
	}
	wg.Wait()

	got := a.Anchor()
	if got.Position.X < 0 || got.Position.X > 3 {
		t.Errorf("unexpected final pose %+v", got)
	}
}

func TestPoseFromArrays(t *testing.T) {
	p := PoseFromArrays([3]float64{1, 2, 3}, [4]float64{2, 0, 0, 0})
	if p.Position != (r3.Vec{X: 1, Y: 2, Z: 3}) {
		t.Errorf("position = %+v", p.Position)
	}
	if p.Orientation != (quat.Number{Real: 1}) {
		t.Errorf("orientation not normalised: %+v", p.Orientation)
	}

	// 90 degrees about z: w = cos(45), z = sin(45).
	h := math.Sqrt2 / 2
	p = PoseFromArrays([3]float64{}, [4]float64{h, 0, 0, h})
	if got := p.Apply(r3.Vec{X: 1}); !approx(got, r3.Vec{Y: 1}) {
		t.Errorf("Apply = %+v, want (0,1,0)", got)
	}
}
