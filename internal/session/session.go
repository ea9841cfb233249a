// Package session holds the per-viewer state of the inspector: the filter
// selection, the filtered view derived from it, the timestamp cursor and a
// cache of rendered frames.
package session

import (
	"context"
	"sync"
	"time"

	geojson "github.com/paulmach/go.geojson"
	"go.opentelemetry.io/otel/attribute"

	"github.com/signalsfoundry/comms-inspector/core"
	"github.com/signalsfoundry/comms-inspector/dataset"
	"github.com/signalsfoundry/comms-inspector/internal/charts"
	"github.com/signalsfoundry/comms-inspector/internal/filter"
	"github.com/signalsfoundry/comms-inspector/internal/geo"
	"github.com/signalsfoundry/comms-inspector/internal/logging"
	"github.com/signalsfoundry/comms-inspector/internal/observability"
	"github.com/signalsfoundry/comms-inspector/model"
	"github.com/signalsfoundry/comms-inspector/timectrl"
)

// UntiedLabel titles aggregate charts built over the whole filtered view.
const UntiedLabel = "Bar Plots not tied to time!"

// RenderObserver receives frame rendering measurements.
type RenderObserver interface {
	ObserveFrame(mode string, d time.Duration, groups, arrows int)
	SetFrameCacheHitRatio(ratio float64)
}

// Options configures new sessions.
type Options struct {
	Mode     core.RenderMode
	CacheTTL time.Duration
	Observer RenderObserver
	Logger   logging.Logger
}

// Session is one viewer's state over a shared dataset. It is safe for
// concurrent use.
type Session struct {
	ID      string
	Created time.Time

	data      *dataset.Dataset
	axisRange float64
	opts      Options
	cursor    *timectrl.Cursor
	cache     *FrameCache

	mu         sync.RWMutex
	selection  filter.Selection
	view       []*model.EventRow
	timestamps []float64
}

// New creates a session with an empty selection over data.
func New(id string, data *dataset.Dataset, opts Options) *Session {
	if opts.Mode == "" {
		opts.Mode = core.ModePlotly
	}
	if opts.Logger == nil {
		opts.Logger = logging.Noop()
	}
	rows := data.Rows()
	s := &Session{
		ID:         id,
		Created:    time.Now(),
		data:       data,
		axisRange:  core.AxisRange(rows),
		opts:       opts,
		cache:      NewFrameCache(opts.CacheTTL),
		view:       rows,
		timestamps: data.Timestamps(),
	}
	s.cursor = timectrl.NewCursor(s.timestamps)
	return s
}

// Mode returns the session's default render mode.
func (s *Session) Mode() core.RenderMode { return s.opts.Mode }

// AxisRange returns the scene half-width derived from the whole dataset.
func (s *Session) AxisRange() float64 { return s.axisRange }

// Selection returns a copy of the active selection.
func (s *Session) Selection() filter.Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection.Clone()
}

// SetSelection replaces the selection and recomputes the filtered view and
// its timestamp index. The cursor stays put when its timestamp survives,
// otherwise it rewinds to the first remaining timestamp.
func (s *Session) SetSelection(ctx context.Context, sel filter.Selection) {
	view := filter.Apply(s.data.Rows(), sel)
	timestamps := dataset.Timestamps(view)

	s.mu.Lock()
	s.selection = sel.Clone()
	s.view = view
	s.timestamps = timestamps
	s.cache.InvalidateAll()
	s.mu.Unlock()

	current, ok := s.cursor.Current()
	s.cursor.Reset(timestamps)
	if ok {
		s.cursor.Seek(current)
	}

	s.opts.Logger.Debug(ctx, "selection updated",
		logging.String("session", s.ID),
		logging.Bool("filtered", len(sel.Fields()) > 0),
		logging.Int("fields", len(sel.Fields())),
		logging.Int("rows", len(view)),
		logging.Int("timestamps", len(timestamps)),
	)
}

// ClearSelection restores the unfiltered view.
func (s *Session) ClearSelection(ctx context.Context) {
	s.SetSelection(ctx, filter.Selection{})
}

// View returns the filtered rows. Callers must not modify them.
func (s *Session) View() []*model.EventRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Timestamps returns the sorted distinct timestamps of the filtered view.
func (s *Session) Timestamps() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timestamps
}

// FilterOptions returns the choices for every filterable field, drawn from
// the filtered view.
func (s *Session) FilterOptions() map[string][]string {
	return filter.AllOptions(s.View())
}

// Current returns the timestamp under the session cursor.
func (s *Session) Current() (float64, bool) {
	return s.cursor.Current()
}

// Step moves one timestamp from current and leaves the cursor there.
func (s *Session) Step(current float64, dir timectrl.Direction) (float64, error) {
	next, err := timectrl.Step(s.Timestamps(), current, dir)
	if err != nil {
		return 0, err
	}
	s.cursor.Seek(next)
	return next, nil
}

// Seek moves the cursor to ts if it is an indexed timestamp.
func (s *Session) Seek(ts float64) bool {
	return s.cursor.Seek(ts)
}

// Frame renders the time slice at ts. An empty mode uses the session default.
func (s *Session) Frame(ctx context.Context, ts float64, mode core.RenderMode) core.Frame {
	if mode == "" {
		mode = s.opts.Mode
	}
	if f, ok := s.cache.Get(mode, ts); ok {
		s.reportCache()
		return f
	}

	_, span := observability.StartRenderSpan(ctx, "BuildFrame",
		observability.TimestampAttr(ts),
		attribute.String("render.mode", string(mode)))
	defer span.End()

	s.mu.RLock()
	view, gen := s.view, s.cache.Generation()
	s.mu.RUnlock()

	start := time.Now()
	slice := filter.TimeSlice(view, ts)
	f := core.NewAggregator(mode, s.axisRange).BuildFrame(slice, ts)
	elapsed := time.Since(start)

	span.SetAttributes(
		attribute.Int("frame.rows", len(slice)),
		attribute.Int("frame.transmissions", len(f.Transmissions)),
		attribute.Int("frame.arrows", f.ArrowCount()),
	)
	if s.opts.Observer != nil {
		s.opts.Observer.ObserveFrame(string(mode), elapsed, len(f.Transmissions), f.ArrowCount())
	}
	s.cache.Put(f, gen)
	s.reportCache()
	s.opts.Logger.Debug(ctx, "frame rendered",
		logging.Timestamp(ts),
		logging.String("mode", string(mode)),
		logging.Int("rows", len(slice)),
		logging.Duration("elapsed", elapsed),
	)
	return f
}

func (s *Session) reportCache() {
	if s.opts.Observer != nil {
		s.opts.Observer.SetFrameCacheHitRatio(s.cache.HitRatio())
	}
}

// CacheStats returns the frame cache counters.
func (s *Session) CacheStats() (hits, misses, invalids int64) {
	return s.cache.Stats()
}

// GeoJSON exports the frame at ts.
func (s *Session) GeoJSON(ctx context.Context, ts float64, mode core.RenderMode) *geojson.FeatureCollection {
	return geo.FrameCollection(s.Frame(ctx, ts, mode))
}

// chartRows returns the rows an aggregate chart is built over and its label.
func (s *Session) chartRows(ts float64, tied bool) ([]*model.EventRow, string) {
	if !tied {
		return s.View(), UntiedLabel
	}
	return filter.TimeSlice(s.View(), ts), "Current Time: " + model.FormatClock(ts)
}

// BarsResult is a labelled bar grid.
type BarsResult struct {
	Label string          `json:"label"`
	Chart charts.BarChart `json:"chart"`
}

// Bars aggregates the slice at ts, or the whole view when tied is false.
func (s *Session) Bars(ts float64, tied bool, subplot, category, stack string) (BarsResult, error) {
	rows, label := s.chartRows(ts, tied)
	bc, err := charts.BuildBars(rows, subplot, category, stack)
	if err != nil {
		return BarsResult{}, err
	}
	return BarsResult{Label: label, Chart: bc}, nil
}

// NetworkResult is a labelled network graph.
type NetworkResult struct {
	Label   string         `json:"label"`
	Network charts.Network `json:"network"`
}

// Network builds the sender/receiver graph over the slice at ts, or the
// whole view when tied is false.
func (s *Session) Network(ctx context.Context, ts float64, tied bool, layout charts.Layout, seed uint64) NetworkResult {
	_, span := observability.StartRenderSpan(ctx, "BuildNetwork",
		observability.TimestampAttr(ts),
		attribute.String("network.layout", string(layout)),
		attribute.Bool("network.tied", tied))
	defer span.End()

	rows, label := s.chartRows(ts, tied)
	return NetworkResult{Label: label, Network: charts.BuildNetwork(rows, layout, seed)}
}

// Playback returns a playback clock over the filtered timestamps, starting
// at the session cursor.
func (s *Session) Playback(tick time.Duration) *timectrl.Playback {
	cursor := timectrl.NewCursor(s.Timestamps())
	if ts, ok := s.cursor.Current(); ok {
		cursor.Seek(ts)
	}
	return timectrl.NewPlayback(cursor, tick)
}
