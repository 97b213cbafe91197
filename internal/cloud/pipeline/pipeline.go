package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Lab-CORO/VR-Robotic-Manipulation/internal/cloud/gate"
	"github.com/Lab-CORO/VR-Robotic-Manipulation/internal/cloud/l2frames"
	"github.com/Lab-CORO/VR-Robotic-Manipulation/internal/cloud/visualiser"
	"github.com/Lab-CORO/VR-Robotic-Manipulation/internal/monitoring"
)

// Config holds pipeline options.
type Config struct {
	// DefaultColor replaces missing rgb fields. Zero selects opaque white.
	DefaultColor l2frames.Color

	// UsePool reuses assembly buffers between frames.
	UsePool bool

	// TickInterval is the consumer cadence used by Run.
	TickInterval time.Duration

	// StatsInterval controls periodic stats logging in Run. Zero disables it.
	StatsInterval time.Duration

	// StartEnabled opens the consumer immediately.
	StartEnabled bool
}

// DefaultConfig returns a configuration ticking at roughly 60 Hz.
func DefaultConfig() Config {
	return Config{
		DefaultColor:  l2frames.White,
		TickInterval:  16 * time.Millisecond,
		StatsInterval: 30 * time.Second,
	}
}

// Pipeline connects the frame source, admission gate, assembler and publisher.
type Pipeline struct {
	config    Config
	gate      *gate.Gate[*l2frames.FrameBuffer]
	assembler *l2frames.Assembler
	publisher *visualiser.Publisher
	anchor    visualiser.AnchorProvider

	// enableMu keeps the gate flag and publisher visibility in step.
	enableMu sync.Mutex

	rejectLog *monitoring.Limiter

	truncated      atomic.Uint64
	colorDefaulted atomic.Uint64
	pointsDecoded  atomic.Uint64
	lastError      atomic.Pointer[string]
}

// New creates a pipeline publishing into publisher at the pose from anchor.
func New(cfg Config, publisher *visualiser.Publisher, anchor visualiser.AnchorProvider) *Pipeline {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultConfig().TickInterval
	}
	if anchor == nil {
		anchor = visualiser.NewStaticAnchor(visualiser.IdentityPose())
	}
	p := &Pipeline{
		config: cfg,
		gate:   gate.New[*l2frames.FrameBuffer](),
		assembler: l2frames.NewAssembler(l2frames.AssemblerOptions{
			DefaultColor: cfg.DefaultColor,
			UsePool:      cfg.UsePool,
		}),
		publisher: publisher,
		anchor:    anchor,
		rejectLog: monitoring.NewLimiter(5 * time.Second),
	}
	p.SetEnabled(cfg.StartEnabled)
	return p
}

// HandleFrame is the subscription callback for arriving frames. Frames that
// arrive while the consumer is disabled or busy are dropped and counted.
func (p *Pipeline) HandleFrame(frame *l2frames.Frame) {
	if !p.gate.TryAdmit() {
		return
	}

	buf, err := p.assembler.Assemble(frame)
	if err != nil {
		msg := err.Error()
		p.lastError.Store(&msg)
		p.rejectLog.Logf("[Pipeline] rejected frame: %v", err)
		p.gate.Abort()
		return
	}

	if buf.TruncatedBytes > 0 {
		p.truncated.Add(1)
	}
	if buf.ColorDefaulted {
		p.colorDefaulted.Add(1)
	}
	p.pointsDecoded.Add(uint64(buf.Len()))
	p.complete(buf)
}

// complete hands buf to the gate. A buffer the gate refuses is released
// here since nothing else will own it.
func (p *Pipeline) complete(buf *l2frames.FrameBuffer) bool {
	if p.gate.Complete(buf) {
		return true
	}
	monitoring.Logf("[Pipeline] gate refused frame %d in state %s", buf.Sequence, p.gate.State())
	buf.Release()
	return false
}

// Tick publishes a ready frame, if any, and reopens the gate. It reports
// whether a frame was published. Tick must only be called from one goroutine.
func (p *Pipeline) Tick() bool {
	buf, ok := p.gate.Take()
	if !ok {
		return false
	}
	p.publisher.Publish(buf, p.anchor.Anchor())
	buf.Release()
	p.gate.Release()
	return true
}

// SetEnabled opens or closes the consumer. Closing hides the point set and
// rejects new frames; a frame already being decoded is kept and published
// after the consumer is reopened.
func (p *Pipeline) SetEnabled(enabled bool) {
	p.enableMu.Lock()
	defer p.enableMu.Unlock()
	p.gate.SetEnabled(enabled)
	p.publisher.SetVisible(enabled)
}

// Enabled reports whether the consumer is open.
func (p *Pipeline) Enabled() bool {
	return p.gate.Enabled()
}

// Publisher returns the geometry publisher.
func (p *Pipeline) Publisher() *visualiser.Publisher {
	return p.publisher
}

// Run ticks the consumer until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.config.TickInterval)
	defer ticker.Stop()

	var statsC <-chan time.Time
	if p.config.StatsInterval > 0 {
		st := time.NewTicker(p.config.StatsInterval)
		defer st.Stop()
		statsC = st.C
	}

	monitoring.Logf("[Pipeline] consumer running every %v (enabled=%v default_color=%+v)",
		p.config.TickInterval, p.Enabled(), p.assembler.DefaultColor())
	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("[Pipeline] consumer stopped")
			return ctx.Err()
		case <-ticker.C:
			p.Tick()
		case <-statsC:
			p.logStats()
		}
	}
}

func (p *Pipeline) logStats() {
	s := p.Stats()
	monitoring.Logf("[Pipeline] Stats: state=%s enabled=%v accepted=%d published=%d dropped_busy=%d dropped_disabled=%d rejected=%d truncated=%d default_color=%d last_points=%d",
		s.Gate.State, s.Gate.Enabled, s.Gate.Accepted, s.Gate.Published, s.Gate.DroppedBusy,
		s.Gate.DroppedDisabled, s.Gate.Rejected, s.Truncated, s.ColorDefaulted, s.Publisher.LastPoints)
}

// Stats is a snapshot of pipeline counters.
type Stats struct {
	Gate           gate.Stats
	Publisher      visualiser.PublisherStats
	Truncated      uint64
	ColorDefaulted uint64
	PointsDecoded  uint64
	LastError      string
}

// Stats returns the current counters.
func (p *Pipeline) Stats() Stats {
	s := Stats{
		Gate:           p.gate.Stats(),
		Publisher:      p.publisher.Stats(),
		Truncated:      p.truncated.Load(),
		ColorDefaulted: p.colorDefaulted.Load(),
		PointsDecoded:  p.pointsDecoded.Load(),
	}
	if e := p.lastError.Load(); e != nil {
		s.LastError = *e
	}
	return s
}
