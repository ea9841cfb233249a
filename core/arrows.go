package core

import (
	"fmt"
	"math"
	"sort"
)

// RenderMode selects between the two globe rendering paths.
type RenderMode string

const (
	ModePlotly RenderMode = "plotly"
	ModeCesium RenderMode = "cesium"
)

// ParseRenderMode validates a render mode name. An empty name selects plotly.
func ParseRenderMode(s string) (RenderMode, error) {
	switch RenderMode(s) {
	case "", ModePlotly:
		return ModePlotly, nil
	case ModeCesium:
		return ModeCesium, nil
	}
	return "", fmt.Errorf("%w: render mode %q", ErrInvalidArgument, s)
}

// ArrowStep is the arrow policy for one distance bucket. A zero Interval means
// the bucket draws no arrows.
type ArrowStep struct {
	Interval float64 `json:"interval"`
	Scaling  float64 `json:"scaling"`
}

// ArrowTable maps sender-to-receiver ranges onto arrow spacing. Buckets are
// half-open (previous bound, bound]; bounds must be ascending.
type ArrowTable struct {
	bounds []float64
	steps  []ArrowStep
}

var arrowBounds = []float64{1000, 10000, 50000, 100000, 500000, 1e6, 5e6, 1e7, 5e7, math.Inf(1)}

var plotlyArrows = ArrowTable{
	bounds: arrowBounds,
	steps: []ArrowStep{
		{},
		{Interval: 100, Scaling: 0.8},
		{Interval: 1000, Scaling: 0.77},
		{Interval: 5000, Scaling: 0.74},
		{Interval: 10000, Scaling: 0.71},
		{Interval: 50000, Scaling: 0.68},
		{Interval: 100000, Scaling: 0.65},
		{Interval: 500000, Scaling: 0.4},
		{Interval: 1000000, Scaling: 0.35},
		{Interval: 5000000, Scaling: 0.3},
	},
}

// The Cesium viewer sizes its own glyphs, so only intervals are carried.
var cesiumArrows = ArrowTable{
	bounds: arrowBounds,
	steps: []ArrowStep{
		{Interval: 50},
		{Interval: 500},
		{Interval: 2500},
		{Interval: 5000},
		{Interval: 25000},
		{Interval: 50000},
		{Interval: 250000},
		{Interval: 500000},
		{Interval: 2500000},
		{Interval: 5000000},
	},
}

// ArrowTableFor returns the arrow table used by the given render mode.
func ArrowTableFor(mode RenderMode) ArrowTable {
	if mode == ModeCesium {
		return cesiumArrows
	}
	return plotlyArrows
}

// Lookup returns the step for rng. ok is false when rng falls outside every
// bucket or the bucket carries no interval.
func (t ArrowTable) Lookup(rng float64) (step ArrowStep, ok bool) {
	if rng <= 0 || math.IsNaN(rng) || math.IsInf(rng, 0) {
		return ArrowStep{}, false
	}
	i := sort.SearchFloat64s(t.bounds, rng)
	if i >= len(t.steps) {
		return ArrowStep{}, false
	}
	step = t.steps[i]
	return step, step.Interval > 0
}
