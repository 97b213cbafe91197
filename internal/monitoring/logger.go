// Package monitoring holds the swappable diagnostic logger shared by the
// point cloud pipeline packages.
package monitoring

import (
	"log"
	"sync"
	"time"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Limiter forwards at most one message per interval to Logf and reports how
// many were suppressed in between. A producer that rejects every frame would
// otherwise flood the log at the frame rate.
type Limiter struct {
	interval time.Duration
	now      func() time.Time

	mu         sync.Mutex
	last       time.Time
	suppressed int
}

// NewLimiter creates a Limiter.
func NewLimiter(interval time.Duration) *Limiter {
	return &Limiter{interval: interval, now: time.Now}
}

// Logf logs through the package logger unless a message was emitted less
// than interval ago. It reports whether the message was emitted.
func (l *Limiter) Logf(format string, v ...interface{}) bool {
	l.mu.Lock()
	now := l.now()
	if !l.last.IsZero() && now.Sub(l.last) < l.interval {
		l.suppressed++
		l.mu.Unlock()
		return false
	}
	suppressed := l.suppressed
	l.suppressed = 0
	l.last = now
	l.mu.Unlock()

	if suppressed > 0 {
		Logf(format+" (%d similar suppressed)", append(v, suppressed)...)
	} else {
		Logf(format, v...)
	}
	return true
}
