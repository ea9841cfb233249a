package timectrl

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"
)

func TestStep(t *testing.T) {
	ts := []float64{10, 20, 30}
	cases := []struct {
		current float64
		dir     Direction
		want    float64
	}{
		{10, Next, 20},
		{20, Previous, 10},
		{10, Previous, 10},
		{30, Next, 30},
		{15, Next, 10},
		{99, Previous, 10},
	}
	for _, tc := range cases {
		got, err := Step(ts, tc.current, tc.dir)
		if err != nil {
			t.Fatalf("Step(%g, %s): %v", tc.current, tc.dir, err)
		}
		if got != tc.want {
			t.Errorf("Step(%g, %s) = %g, want %g", tc.current, tc.dir, got, tc.want)
		}
	}

	if _, err := Step(nil, 0, Next); !errors.Is(err, ErrNoTimestamps) {
		t.Fatalf("expected ErrNoTimestamps, got %v", err)
	}
	if _, err := Step(ts, 10, "sideways"); !errors.Is(err, ErrInvalidDirection) {
		t.Fatalf("expected ErrInvalidDirection, got %v", err)
	}
	if _, err := ParseDirection("back"); !errors.Is(err, ErrInvalidDirection) {
		t.Fatalf("expected ErrInvalidDirection, got %v", err)
	}
}

func TestCursor(t *testing.T) {
	c := NewCursor([]float64{1, 2, 3})
	if ts, ok := c.Current(); !ok || ts != 1 {
		t.Fatalf("Current() = %g,%v", ts, ok)
	}
	if !c.Seek(3) {
		t.Fatalf("Seek(3) failed")
	}
	if _, moved, _ := c.Advance(Next); moved {
		t.Fatalf("cursor should clamp at the last timestamp")
	}
	if ts, moved, _ := c.Advance(Previous); !moved || ts != 2 {
		t.Fatalf("Advance(Previous) = %g,%v", ts, moved)
	}
	if c.Seek(2.5) {
		t.Fatalf("Seek must only accept indexed timestamps")
	}

	c.Reset(nil)
	if _, ok := c.Current(); ok {
		t.Fatalf("empty cursor should have no current timestamp")
	}
	if _, _, err := c.Advance(Next); !errors.Is(err, ErrNoTimestamps) {
		t.Fatalf("expected ErrNoTimestamps, got %v", err)
	}
}

func TestPlaybackVisitsEveryTimestamp(t *testing.T) {
	p := NewPlayback(NewCursor([]float64{1, 2, 3}), time.Millisecond)

	var mu sync.Mutex
	var seen []float64
	p.AddListener(func(ts float64) {
		mu.Lock()
		seen = append(seen, ts)
		mu.Unlock()
	})

	select {
	case <-p.Start(context.Background()):
	case <-time.After(2 * time.Second):
		t.Fatalf("playback did not finish")
	}

	mu.Lock()
	defer mu.Unlock()
	if !slices.Equal(seen, []float64{1, 2, 3}) {
		t.Fatalf("listener saw %v", seen)
	}
	if ts, _ := p.Now(); ts != 3 {
		t.Fatalf("Now() = %g, want 3", ts)
	}
}

func TestPlaybackStopsOnCancel(t *testing.T) {
	p := NewPlayback(NewCursor([]float64{1, 2, 3}), time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	done := p.Start(ctx)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("playback ignored cancellation")
	}
	if ts, _ := p.Now(); ts != 1 {
		t.Fatalf("cancelled playback advanced to %g", ts)
	}
}

func TestPlaybackNotifiesListenerSnapshot(t *testing.T) {
	p := NewPlayback(NewCursor([]float64{5, 6}), time.Millisecond)

	var mu sync.Mutex
	var first, late []float64
	p.AddListener(func(ts float64) {
		mu.Lock()
		first = append(first, ts)
		registered := len(first) == 1
		mu.Unlock()
		if registered {
			p.AddListener(func(ts float64) {
				mu.Lock()
				late = append(late, ts)
				mu.Unlock()
			})
		}
	})

	select {
	case <-p.Start(context.Background()):
	case <-time.After(2 * time.Second):
		t.Fatalf("playback did not finish")
	}

	mu.Lock()
	defer mu.Unlock()
	if !slices.Equal(first, []float64{5, 6}) {
		t.Fatalf("first listener saw %v", first)
	}
	if !slices.Equal(late, []float64{6}) {
		t.Fatalf("listener added mid-step saw %v, want [6]", late)
	}
}
