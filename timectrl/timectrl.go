package timectrl

import (
	"context"
	"slices"
	"sync"
	"time"
)

// Playback drives a Cursor forward on a wall-clock ticker and notifies
// registered listeners with every timestamp it lands on.
type Playback struct {
	mu     sync.RWMutex
	Tick   time.Duration
	cursor *Cursor

	listeners []func(float64)
}

// NewPlayback constructs a playback over cursor.
func NewPlayback(cursor *Cursor, tick time.Duration) *Playback {
	if tick <= 0 {
		tick = time.Second
	}
	return &Playback{Tick: tick, cursor: cursor}
}

// Now returns the timestamp under the cursor.
func (p *Playback) Now() (float64, bool) {
	return p.cursor.Current()
}

// AddListener registers a callback invoked on every step.
func (p *Playback) AddListener(fn func(float64)) {
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	p.mu.Unlock()
}

func (p *Playback) notify(ts float64) {
	p.mu.RLock()
	listeners := slices.Clone(p.listeners)
	p.mu.RUnlock()
	for _, fn := range listeners {
		fn(ts)
	}
}

// Start emits the current timestamp, then advances once per Tick until the
// last timestamp is reached or ctx is cancelled. The returned channel is
// closed when playback finishes.
func (p *Playback) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		ts, ok := p.cursor.Current()
		if !ok {
			return
		}
		p.notify(ts)

		ticker := time.NewTicker(p.Tick)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			next, moved, err := p.cursor.Advance(Next)
			if err != nil || !moved {
				return
			}
			p.notify(next)
		}
	}()
	return done
}
