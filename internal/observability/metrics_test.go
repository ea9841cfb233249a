package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestMiddlewareRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewHTTPCollector(reg)
	if err != nil {
		t.Fatalf("NewHTTPCollector: %v", err)
	}

	r := chi.NewRouter()
	r.Use(collector.Middleware)
	r.Get("/api/v1/globe", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/api/v1/bars", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad field", http.StatusBadRequest)
	})

	for _, path := range []string{"/api/v1/globe", "/api/v1/bars"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(collector.Requests.WithLabelValues("/api/v1/globe", "GET", "200")); got != 1 {
		t.Fatalf("inspector_http_requests_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.Requests.WithLabelValues("/api/v1/bars", "GET", "400")); got != 1 {
		t.Fatalf("inspector_http_requests_total error label = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "inspector_http_request_duration_seconds", map[string]string{
		"route":  "/api/v1/globe",
		"method": "GET",
	}); count != 1 {
		t.Fatalf("inspector_http_request_duration_seconds sample_count = %d, want 1", count)
	}
}

func TestMetricsHandlerExposesDatasetGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewHTTPCollector(reg)
	if err != nil {
		t.Fatalf("NewHTTPCollector: %v", err)
	}
	collector.SetDatasetCounts(1200, 37)
	collector.PlaybackClientDelta(2)
	collector.PlaybackClientDelta(-1)
	collector.Requests.WithLabelValues("/x", "GET", "200").Inc()
	collector.Durations.WithLabelValues("/x", "GET").Observe(0.01)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"inspector_http_requests_total",
		"inspector_http_request_duration_seconds",
		"inspector_dataset_rows 1200",
		"inspector_dataset_timestamps 37",
		"inspector_playback_clients 1",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in /metrics output", want)
		}
	}
}

func TestCollectorsReuseRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewHTTPCollector(reg)
	if err != nil {
		t.Fatalf("NewHTTPCollector: %v", err)
	}
	second, err := NewHTTPCollector(reg)
	if err != nil {
		t.Fatalf("second NewHTTPCollector: %v", err)
	}
	first.SetDatasetCounts(5, 1)
	if got := testutil.ToFloat64(second.DatasetRows); got != 5 {
		t.Fatalf("collectors should share gauges, got %v", got)
	}

	if _, err := NewRenderCollector(reg); err != nil {
		t.Fatalf("NewRenderCollector: %v", err)
	}
	if _, err := NewRenderCollector(reg); err != nil {
		t.Fatalf("second NewRenderCollector: %v", err)
	}
}

func TestRenderCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewRenderCollector(reg)
	if err != nil {
		t.Fatalf("NewRenderCollector: %v", err)
	}
	c.ObserveFrame("plotly", 2*time.Millisecond, 4, 120)
	c.SetFrameCacheHitRatio(1.5)

	if got := testutil.ToFloat64(c.FrameCacheHitRatio); got != 1 {
		t.Fatalf("hit ratio should clamp to 1, got %v", got)
	}
	if got := testutil.ToFloat64(c.FramesRendered); got != 1 {
		t.Fatalf("frames rendered = %v, want 1", got)
	}
	if count := histogramSampleCount(t, c.Gatherer(), "inspector_frame_render_duration_seconds", map[string]string{"mode": "plotly"}); count != 1 {
		t.Fatalf("render duration sample_count = %d, want 1", count)
	}

	var nilCollector *RenderCollector
	nilCollector.ObserveFrame("plotly", time.Millisecond, 1, 1)
	nilCollector.SetFrameCacheHitRatio(0.5)
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
