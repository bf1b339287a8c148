package meta

import "sync"

// Guarded serializes every access to a Meta. The synchronous call path and
// the notification goroutine both go through Do; a function passed to Do
// runs to completion, channel round trip included, before the next one
// starts.
type Guarded struct {
	mu sync.Mutex
	m  *Meta
}

// NewGuarded takes ownership of m.
func NewGuarded(m *Meta) *Guarded {
	return &Guarded{m: m}
}

// Do runs fn with exclusive access to the Meta.
func (g *Guarded) Do(fn func(m *Meta) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn(g.m)
}
