// Package gate implements the single-slot admission gate that sits between
// an unbounded frame producer and a periodic consumer.
//
// At most one item occupies the gate. Arrivals while the gate is busy or
// disabled are dropped, never queued. The gate state and the enabled flag
// share one atomic word so that admission is a single compare-and-swap.
package gate

import "sync/atomic"

// State is the admission state of the slot.
type State int32

const (
	Idle State = iota
	Decoding
	ReadyToPublish
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Decoding:
		return "decoding"
	case ReadyToPublish:
		return "ready"
	default:
		return "unknown"
	}
}

const (
	stateMask   int32 = 0x3
	enabledFlag int32 = 0x4
)

// Gate guards one slot of type T. Any number of producers may call TryAdmit,
// Complete and Abort; a single consumer calls Take and Release.
type Gate[T any] struct {
	word atomic.Int32
	slot T

	accepted        atomic.Uint64
	droppedBusy     atomic.Uint64
	droppedDisabled atomic.Uint64
	rejected        atomic.Uint64
	published       atomic.Uint64
}

// New returns an Idle, disabled gate.
func New[T any]() *Gate[T] {
	return &Gate[T]{}
}

// SetEnabled toggles the consumer-enabled flag. Disabling rejects new
// arrivals immediately but leaves an in-flight item alone.
func (g *Gate[T]) SetEnabled(enabled bool) {
	for {
		w := g.word.Load()
		nw := w &^ enabledFlag
		if enabled {
			nw = w | enabledFlag
		}
		if w == nw || g.word.CompareAndSwap(w, nw) {
			return
		}
	}
}

// Enabled reports the consumer-enabled flag.
func (g *Gate[T]) Enabled() bool {
	return g.word.Load()&enabledFlag != 0
}

// State returns the current slot state.
func (g *Gate[T]) State() State {
	return State(g.word.Load() & stateMask)
}

// TryAdmit moves the gate from Idle to Decoding. It returns false, and counts
// the drop, when the gate is disabled or busy. On true the caller owns the
// slot and must call exactly one of Complete or Abort.
func (g *Gate[T]) TryAdmit() bool {
	for {
		w := g.word.Load()
		if w&enabledFlag == 0 {
			g.droppedDisabled.Add(1)
			return false
		}
		if State(w&stateMask) != Idle {
			g.droppedBusy.Add(1)
			return false
		}
		if g.word.CompareAndSwap(w, (w&^stateMask)|int32(Decoding)) {
			g.accepted.Add(1)
			return true
		}
	}
}

// Complete stores v and moves the gate from Decoding to ReadyToPublish.
// The store happens before the state change so a consumer that observes
// ReadyToPublish sees the whole value.
func (g *Gate[T]) Complete(v T) bool {
	if g.State() != Decoding {
		return false
	}
	g.slot = v
	return g.transition(Decoding, ReadyToPublish)
}

// Abort returns a Decoding gate to Idle without publishing.
func (g *Gate[T]) Abort() bool {
	if !g.transition(Decoding, Idle) {
		return false
	}
	g.rejected.Add(1)
	return true
}

// Take returns the ready value without changing state, so arrivals keep
// being dropped until Release. It returns false when nothing is ready or the
// gate is disabled; a ready value is then held until the gate is re-enabled.
func (g *Gate[T]) Take() (T, bool) {
	var zero T
	w := g.word.Load()
	if w&enabledFlag == 0 || State(w&stateMask) != ReadyToPublish {
		return zero, false
	}
	return g.slot, true
}

// Release clears the slot and returns the gate to Idle after the consumer
// has finished with the value from Take.
func (g *Gate[T]) Release() bool {
	if g.State() != ReadyToPublish {
		return false
	}
	var zero T
	g.slot = zero
	// Counted first so that Published is current once Idle is observable.
	g.published.Add(1)
	return g.transition(ReadyToPublish, Idle)
}

func (g *Gate[T]) transition(from, to State) bool {
	for {
		w := g.word.Load()
		if State(w&stateMask) != from {
			return false
		}
		if g.word.CompareAndSwap(w, (w&^stateMask)|int32(to)) {
			return true
		}
	}
}

// Stats is a point-in-time copy of the gate counters.
type Stats struct {
	State           State
	Enabled         bool
	Accepted        uint64
	DroppedBusy     uint64
	DroppedDisabled uint64
	Rejected        uint64
	Published       uint64
}

// Dropped returns all drops regardless of cause.
func (s Stats) Dropped() uint64 {
	return s.DroppedBusy + s.DroppedDisabled
}

// Stats returns the current counters.
func (g *Gate[T]) Stats() Stats {
	w := g.word.Load()
	return Stats{
		State:           State(w & stateMask),
		Enabled:         w&enabledFlag != 0,
		Accepted:        g.accepted.Load(),
		DroppedBusy:     g.droppedBusy.Load(),
		DroppedDisabled: g.droppedDisabled.Load(),
		Rejected:        g.rejected.Load(),
		Published:       g.published.Load(),
	}
}
