package timectrl

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

var (
	// ErrNoTimestamps is returned when stepping over an empty index.
	ErrNoTimestamps = errors.New("no timestamps")
	// ErrInvalidDirection is returned for unknown step directions.
	ErrInvalidDirection = errors.New("invalid step direction")
)

// Direction is a step through the timestamp index.
type Direction string

const (
	Previous Direction = "previous"
	Next     Direction = "next"
)

// ParseDirection validates a step direction name.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case Previous, Next:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// Step moves one position from current through the sorted timestamp index,
// clamping at both ends. A current value that is not in the index starts
// over at the first timestamp.
func Step(timestamps []float64, current float64, dir Direction) (float64, error) {
	if len(timestamps) == 0 {
		return 0, ErrNoTimestamps
	}
	if dir != Previous && dir != Next {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDirection, string(dir))
	}
	i, ok := slices.BinarySearch(timestamps, current)
	if !ok {
		return timestamps[0], nil
	}
	switch dir {
	case Previous:
		i = max(i-1, 0)
	case Next:
		i = min(i+1, len(timestamps)-1)
	}
	return timestamps[i], nil
}

// Cursor is a position in a sorted timestamp index. It is safe for
// concurrent use.
type Cursor struct {
	mu         sync.RWMutex
	timestamps []float64
	idx        int
}

// NewCursor positions a cursor at the first of the given sorted timestamps.
func NewCursor(timestamps []float64) *Cursor {
	return &Cursor{timestamps: slices.Clone(timestamps)}
}

// Reset replaces the index and rewinds to the first timestamp.
func (c *Cursor) Reset(timestamps []float64) {
	c.mu.Lock()
	c.timestamps = slices.Clone(timestamps)
	c.idx = 0
	c.mu.Unlock()
}

// Len returns the number of timestamps.
func (c *Cursor) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.timestamps)
}

// Current returns the timestamp under the cursor.
func (c *Cursor) Current() (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.timestamps) == 0 {
		return 0, false
	}
	return c.timestamps[c.idx], true
}

// Seek moves to ts if it is in the index.
func (c *Cursor) Seek(ts float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := slices.BinarySearch(c.timestamps, ts)
	if ok {
		c.idx = i
	}
	return ok
}

// Advance steps the cursor and returns the new timestamp. moved is false when
// the cursor was already clamped at that end.
func (c *Cursor) Advance(dir Direction) (ts float64, moved bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.timestamps) == 0 {
		return 0, false, ErrNoTimestamps
	}
	next, err := Step(c.timestamps, c.timestamps[c.idx], dir)
	if err != nil {
		return 0, false, err
	}
	i, _ := slices.BinarySearch(c.timestamps, next)
	moved = i != c.idx
	c.idx = i
	return next, moved, nil
}
