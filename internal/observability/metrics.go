package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPCollector bundles Prometheus metrics for the HTTP API and provides
// middleware to record them.
type HTTPCollector struct {
	gatherer prometheus.Gatherer

	Requests  *prometheus.CounterVec
	Durations *prometheus.HistogramVec

	DatasetRows       prometheus.Gauge
	DatasetTimestamps prometheus.Gauge
	PlaybackClients   prometheus.Gauge
}

// NewHTTPCollector registers API Prometheus metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewHTTPCollector(reg prometheus.Registerer) (*HTTPCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inspector_http_requests_total",
		Help: "Total number of handled API requests, labeled by route, method, and status code.",
	}, []string{"route", "method", "code"})
	requests, err := registerCounterVec(reg, requests, "inspector_http_requests_total")
	if err != nil {
		return nil, err
	}

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inspector_http_request_duration_seconds",
		Help:    "API request latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"route", "method"})
	durations, err = registerHistogramVec(reg, durations, "inspector_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	rows, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "inspector_dataset_rows",
		Help: "Number of event rows in the loaded dataset.",
	}), "inspector_dataset_rows")
	if err != nil {
		return nil, err
	}
	timestamps, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "inspector_dataset_timestamps",
		Help: "Number of distinct timestamps in the loaded dataset.",
	}), "inspector_dataset_timestamps")
	if err != nil {
		return nil, err
	}
	clients, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "inspector_playback_clients",
		Help: "Number of connected playback stream clients.",
	}), "inspector_playback_clients")
	if err != nil {
		return nil, err
	}

	return &HTTPCollector{
		gatherer:          gatherer,
		Requests:          requests,
		Durations:         durations,
		DatasetRows:       rows,
		DatasetTimestamps: timestamps,
		PlaybackClients:   clients,
	}, nil
}

// Middleware records request counts and durations, labeled by the matched
// chi route pattern.
func (c *HTTPCollector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		if c == nil {
			return
		}
		route := RoutePattern(r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if c.Requests != nil {
			c.Requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		}
		if c.Durations != nil {
			c.Durations.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
		}
	})
}

// Handler exposes a ready-to-use /metrics handler.
func (c *HTTPCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetDatasetCounts updates the dataset gauges.
func (c *HTTPCollector) SetDatasetCounts(rows, timestamps int) {
	if c == nil {
		return
	}
	if c.DatasetRows != nil {
		c.DatasetRows.Set(float64(rows))
	}
	if c.DatasetTimestamps != nil {
		c.DatasetTimestamps.Set(float64(timestamps))
	}
}

// PlaybackClientDelta adjusts the connected playback client gauge.
func (c *HTTPCollector) PlaybackClientDelta(delta int) {
	if c == nil || c.PlaybackClients == nil {
		return
	}
	c.PlaybackClients.Add(float64(delta))
}

// RoutePattern returns the chi route pattern matched for r, or "unknown"
// when the request did not match a route.
func RoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unknown"
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
