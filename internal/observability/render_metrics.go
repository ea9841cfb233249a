package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RenderCollector exposes frame rendering Prometheus metrics.
type RenderCollector struct {
	gatherer prometheus.Gatherer

	FrameRenderDuration *prometheus.HistogramVec
	FrameCacheHitRatio  prometheus.Gauge
	TransmissionGroups  prometheus.Histogram
	ArrowsPerFrame      prometheus.Histogram
	FramesRendered      prometheus.Counter
}

// NewRenderCollector registers render metrics against the provided registerer.
func NewRenderCollector(reg prometheus.Registerer) (*RenderCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	renderHistogram := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inspector_frame_render_duration_seconds",
		Help:    "Duration of globe frame aggregation, labeled by render mode.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"mode"})
	renderHistogram, err := registerHistogramVec(reg, renderHistogram, "inspector_frame_render_duration_seconds")
	if err != nil {
		return nil, err
	}

	cacheRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "inspector_frame_cache_hit_ratio",
		Help: "Hit ratio for the per-session frame cache.",
	})
	cacheRatio, err = registerGauge(reg, cacheRatio, "inspector_frame_cache_hit_ratio")
	if err != nil {
		return nil, err
	}

	groups := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "inspector_frame_transmission_groups",
		Help:    "Transmission groups drawn per rendered frame.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})
	groups, err = registerHistogram(reg, groups, "inspector_frame_transmission_groups")
	if err != nil {
		return nil, err
	}

	arrows := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "inspector_frame_arrows",
		Help:    "Direction glyphs drawn per rendered frame.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	})
	arrows, err = registerHistogram(reg, arrows, "inspector_frame_arrows")
	if err != nil {
		return nil, err
	}

	rendered := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inspector_frames_rendered_total",
		Help: "Cumulative number of frames aggregated (cache misses).",
	})
	rendered, err = registerCounter(reg, rendered, "inspector_frames_rendered_total")
	if err != nil {
		return nil, err
	}

	return &RenderCollector{
		gatherer:            gatherer,
		FrameRenderDuration: renderHistogram,
		FrameCacheHitRatio:  cacheRatio,
		TransmissionGroups:  groups,
		ArrowsPerFrame:      arrows,
		FramesRendered:      rendered,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *RenderCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveFrame records one frame aggregation.
func (c *RenderCollector) ObserveFrame(mode string, d time.Duration, groups, arrows int) {
	if c == nil {
		return
	}
	if c.FrameRenderDuration != nil {
		c.FrameRenderDuration.WithLabelValues(mode).Observe(d.Seconds())
	}
	if c.TransmissionGroups != nil {
		c.TransmissionGroups.Observe(float64(groups))
	}
	if c.ArrowsPerFrame != nil {
		c.ArrowsPerFrame.Observe(float64(arrows))
	}
	if c.FramesRendered != nil {
		c.FramesRendered.Inc()
	}
}

// SetFrameCacheHitRatio sets the frame cache hit ratio.
func (c *RenderCollector) SetFrameCacheHitRatio(ratio float64) {
	if c == nil || c.FrameCacheHitRatio == nil {
		return
	}
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	c.FrameCacheHitRatio.Set(ratio)
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
