package visualiser

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Lab-CORO/VR-Robotic-Manipulation/internal/cloud/l2frames"
)

// Config holds configuration for the geometry publisher and render stream.
type Config struct {
	// ListenAddr is the gRPC render stream address (e.g., "localhost:50061").
	ListenAddr string

	// ClientBuffer is the per-subscriber channel depth. Slow subscribers
	// lose intermediate geometry rather than stalling the publisher.
	ClientBuffer int

	// StartVisible sets the visibility of the initial empty geometry.
	StartVisible bool
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		ListenAddr:   "localhost:50061",
		ClientBuffer: 4,
	}
}

// Renderer is an in-process consumer of published geometry. Render is
// called on the consumer goroutine and must not retain mutable state
// beyond the immutable *Geometry it receives.
type Renderer interface {
	Render(g *Geometry)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(g *Geometry)

func (f RendererFunc) Render(g *Geometry) { f(g) }

// Publisher owns the current renderable point set. Each Publish builds a
// complete Geometry and swaps it in atomically; readers never see a
// partially built set.
type Publisher struct {
	config  Config
	current atomic.Pointer[Geometry]
	version atomic.Uint64

	// publishMu serialises writers of current (Publish and SetVisible).
	publishMu sync.Mutex

	renderers []Renderer

	clients   map[string]chan *Geometry
	clientsMu sync.RWMutex

	publishCount  atomic.Uint64
	droppedSends  atomic.Uint64
	lastPointSize atomic.Int64
}

// NewPublisher creates a Publisher holding an empty geometry at the identity pose.
func NewPublisher(cfg Config) *Publisher {
	if cfg.ClientBuffer <= 0 {
		cfg.ClientBuffer = DefaultConfig().ClientBuffer
	}
	p := &Publisher{
		config:  cfg,
		clients: make(map[string]chan *Geometry),
	}
	p.current.Store(&Geometry{
		Visible: cfg.StartVisible,
		Indices: []uint32{},
		Pose:    IdentityPose(),
	})
	return p
}

// Attach registers an in-process renderer. It must be called before the
// consumer loop starts.
func (p *Publisher) Attach(r Renderer) {
	p.renderers = append(p.renderers, r)
}

// Current returns the latest geometry. The result is immutable.
func (p *Publisher) Current() *Geometry {
	return p.current.Load()
}

// Publish replaces the point set with buf placed at anchor. The arrays are
// copied so the caller may release buf as soon as Publish returns.
func (p *Publisher) Publish(buf *l2frames.FrameBuffer, anchor AnchorPose) *Geometry {
	n := buf.Len()
	positions := make([]l2frames.Vector3, n)
	colors := make([]l2frames.Color, n)
	copy(positions, buf.Positions)
	copy(colors, buf.Colors)

	p.publishMu.Lock()
	g := &Geometry{
		Version:     p.version.Add(1),
		Topic:       buf.Topic,
		Sequence:    buf.Sequence,
		PublishedAt: time.Now(),
		Visible:     p.current.Load().Visible,
		Positions:   positions,
		Colors:      colors,
		Indices:     pointIndices(n),
		Bounds:      computeBounds(positions),
		Pose:        anchor.Normalized(),
	}
	p.current.Store(g)
	p.publishMu.Unlock()

	p.publishCount.Add(1)
	p.lastPointSize.Store(int64(n))
	p.fanOut(g)
	return g
}

// SetVisible shows or hides the point set without touching its contents.
func (p *Publisher) SetVisible(visible bool) {
	p.publishMu.Lock()
	cur := p.current.Load()
	if cur.Visible == visible {
		p.publishMu.Unlock()
		return
	}
	next := *cur
	next.Version = p.version.Add(1)
	next.Visible = visible
	p.current.Store(&next)
	p.publishMu.Unlock()

	log.Printf("[Visualiser] point set visible=%v", visible)
	p.fanOut(&next)
}

func (p *Publisher) fanOut(g *Geometry) {
	for _, r := range p.renderers {
		r.Render(g)
	}

	p.clientsMu.RLock()
	defer p.clientsMu.RUnlock()
	for _, ch := range p.clients {
		select {
		case ch <- g:
		default:
			// Slow subscriber; it will catch up with a later version.
			p.droppedSends.Add(1)
		}
	}
}

// Subscribe registers a geometry subscriber. The channel first receives the
// current geometry.
func (p *Publisher) Subscribe() (string, <-chan *Geometry) {
	id := uuid.NewString()
	ch := make(chan *Geometry, p.config.ClientBuffer)

	p.clientsMu.Lock()
	ch <- p.current.Load()
	p.clients[id] = ch
	count := len(p.clients)
	p.clientsMu.Unlock()

	log.Printf("[Visualiser] Subscriber connected: %s (total: %d)", id, count)
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (p *Publisher) Unsubscribe(id string) {
	p.clientsMu.Lock()
	ch, ok := p.clients[id]
	if ok {
		delete(p.clients, id)
		close(ch)
	}
	count := len(p.clients)
	p.clientsMu.Unlock()

	if ok {
		log.Printf("[Visualiser] Subscriber disconnected: %s (remaining: %d)", id, count)
	}
}

// Stats returns current publisher statistics.
func (p *Publisher) Stats() PublisherStats {
	p.clientsMu.RLock()
	clients := len(p.clients)
	p.clientsMu.RUnlock()
	return PublisherStats{
		PublishCount: p.publishCount.Load(),
		DroppedSends: p.droppedSends.Load(),
		LastPoints:   int(p.lastPointSize.Load()),
		Clients:      clients,
		Visible:      p.current.Load().Visible,
	}
}

// PublisherStats contains publisher statistics.
type PublisherStats struct {
	PublishCount uint64
	DroppedSends uint64
	LastPoints   int
	Clients      int
	Visible      bool
}
