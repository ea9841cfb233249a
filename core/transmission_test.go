package core

import (
	"math"
	"strings"
	"testing"

	"github.com/signalsfoundry/comms-inspector/model"
)

func externalRow(sender, receiver model.Position, rng float64) *model.EventRow {
	return &model.EventRow{
		EventType:    model.EventMessageReceived,
		Timestamp:    3600,
		Message:      model.Message{SerialNumber: 7, Originator: "ops", Type: "TRACK"},
		Sender:       model.Endpoint{Name: "sat-1", PartName: "tx"},
		Receiver:     model.Endpoint{Name: "gs-1", PartName: "rx"},
		FailedStatus: model.DoesNotExist,
		SenderPos:    sender,
		ReceiverPos:  receiver,
		Range:        rng,
	}
}

func pos(x, y, z float64) model.Position {
	return model.Position{X: x, Y: y, Z: z, Valid: true}
}

func TestArrowTableLookup(t *testing.T) {
	cases := []struct {
		rng      float64
		ok       bool
		interval float64
		scaling  float64
	}{
		{0, false, 0, 0},
		{500, false, 0, 0},
		{1000, false, 0, 0},
		{1000.5, true, 100, 0.8},
		{10000, true, 100, 0.8},
		{75000, true, 5000, 0.74},
		{7e6, true, 500000, 0.4},
		{1e9, true, 5000000, 0.3},
		{math.Inf(1), false, 0, 0},
		{math.NaN(), false, 0, 0},
	}
	table := ArrowTableFor(ModePlotly)
	for _, tc := range cases {
		step, ok := table.Lookup(tc.rng)
		if ok != tc.ok || step.Interval != tc.interval || step.Scaling != tc.scaling {
			t.Errorf("Lookup(%g) = %+v,%v; want interval %g scaling %g ok %v", tc.rng, step, ok, tc.interval, tc.scaling, tc.ok)
		}
	}

	cesium := ArrowTableFor(ModeCesium)
	if step, ok := cesium.Lookup(500); !ok || step.Interval != 50 {
		t.Errorf("cesium Lookup(500) = %+v,%v", step, ok)
	}
	if step, ok := cesium.Lookup(2e6); !ok || step.Interval != 250000 {
		t.Errorf("cesium Lookup(2e6) = %+v,%v", step, ok)
	}
}

func TestRenderTransmission_ShortRangeFallback(t *testing.T) {
	row := externalRow(pos(EquatorRadius, 0, 0), pos(0, EquatorRadius, 0), 500)

	tx, ok := RenderTransmission([]*model.EventRow{row}, row.Timestamp, ArrowTableFor(ModePlotly))
	if !ok {
		t.Fatalf("expected transmission to render")
	}
	if tx.Outcome != OutcomeSuccess || tx.Color != "mediumturquoise" {
		t.Fatalf("expected Success/mediumturquoise, got %s/%s", tx.Outcome, tx.Color)
	}
	if tx.Segments != DefaultSegments {
		t.Fatalf("expected %d segments, got %d", DefaultSegments, tx.Segments)
	}
	if got := len(tx.Samples()); got != DefaultSegments+1 {
		t.Fatalf("expected %d samples, got %d", DefaultSegments+1, got)
	}
	if len(tx.Line) != DefaultSegments+3 {
		t.Fatalf("expected line of %d points, got %d", DefaultSegments+3, len(tx.Line))
	}
	if len(tx.Arrows) != 0 {
		t.Fatalf("expected no arrows, got %d", len(tx.Arrows))
	}
	if !tx.Curved {
		t.Fatalf("quarter-globe transmission should hug the surface")
	}
	samples := tx.Samples()
	if !approxVec(samples[0], FromPosition(row.SenderPos), 1e-3) ||
		!approxVec(samples[len(samples)-1], FromPosition(row.ReceiverPos), 1e-3) {
		t.Fatalf("samples must span the full path without inset")
	}

	if len(tx.MarkerColors) != len(tx.Line) {
		t.Fatalf("expected one marker colour per point")
	}
	if tx.MarkerColors[0] != "rgba(72, 209, 204, 1)" || tx.MarkerColors[len(tx.MarkerColors)-1] != "rgba(72, 209, 204, 1)" {
		t.Errorf("endpoint markers must be opaque: %v", tx.MarkerColors)
	}
	for _, c := range tx.MarkerColors[1 : len(tx.MarkerColors)-1] {
		if c != "rgba(72, 209, 204, 0)" {
			t.Fatalf("interior marker not transparent: %q", c)
		}
	}
}

func TestRenderTransmission_ArrowSpacing(t *testing.T) {
	row := externalRow(pos(7e6, 0, 0), pos(7e6, 5050, 0), 5050)

	tx, ok := RenderTransmission([]*model.EventRow{row}, 0, ArrowTableFor(ModePlotly))
	if !ok {
		t.Fatalf("expected transmission to render")
	}
	if tx.Curved {
		t.Fatalf("short high-altitude hop should be straight")
	}
	if tx.Segments != 50 || len(tx.Arrows) != 50 {
		t.Fatalf("expected 50 segments and arrows, got %d/%d", tx.Segments, len(tx.Arrows))
	}
	if tx.Scaling != 0.8 {
		t.Fatalf("expected scaling 0.8, got %g", tx.Scaling)
	}

	samples := tx.Samples()
	if math.Abs(samples[0].Y-25) > 1e-6 || math.Abs(samples[len(samples)-1].Y-5025) > 1e-6 {
		t.Fatalf("expected symmetric 25m inset, got %g..%g", samples[0].Y, samples[len(samples)-1].Y)
	}

	first := tx.Arrows[0]
	if math.Abs(first.Anchor.Y-75) > 1e-6 || math.Abs(first.Direction.Y-100) > 1e-6 {
		t.Fatalf("unexpected first arrow %+v", first)
	}
}

func TestRenderTransmission_FailureHover(t *testing.T) {
	ok1 := externalRow(pos(7e6, 0, 0), pos(7e6, 2000, 0), 2000)
	failed := externalRow(pos(7e6, 0, 0), pos(7e6, 2000, 0), 2000)
	failed.EventType = model.EventMessageDeliveryAttempt
	failed.FailedStatus = "LINK_DOWN"

	tx, ok := RenderTransmission([]*model.EventRow{ok1, failed}, 3600, ArrowTableFor(ModePlotly))
	if !ok {
		t.Fatalf("expected transmission to render")
	}
	if tx.Outcome != OutcomeFail || tx.Color != "darkred" {
		t.Fatalf("expected Fail/darkred, got %s/%s", tx.Outcome, tx.Color)
	}

	wantPrefix := "Time (H:M:S): 01:00:00.000<br>Sender: sat-1 >> Receiver: gs-1<br>"
	if !strings.HasPrefix(tx.Hover, wantPrefix) {
		t.Fatalf("hover prefix mismatch: %q", tx.Hover)
	}
	for _, want := range []string{
		"<b>1. Event Type: MESSAGE_RECEIVED</b><br>",
		"<b>2. Event Type: MESSAGE_DELIVERY_ATTEMPT</b><br>",
		"    Platform Parts: tx >> rx<br>",
		"    Message Number: 7<br>",
		"    Failure Reason: LINK_DOWN<br>",
	} {
		if !strings.Contains(tx.Hover, want) {
			t.Errorf("hover missing %q", want)
		}
	}
	if strings.Count(tx.Hover, "Failure Reason") != 1 {
		t.Errorf("only the failed row should carry a failure line")
	}
	if !strings.HasSuffix(tx.Hover, "<extra></extra>") {
		t.Errorf("hover must end with <extra></extra>")
	}
}

func TestRenderTransmission_InvalidPositions(t *testing.T) {
	row := externalRow(pos(1, 0, 0), model.Position{}, 10)
	if _, ok := RenderTransmission([]*model.EventRow{row}, 0, ArrowTableFor(ModePlotly)); ok {
		t.Fatalf("expected rows without a receiver position to be skipped")
	}
	if _, ok := RenderTransmission(nil, 0, ArrowTableFor(ModePlotly)); ok {
		t.Fatalf("expected empty group to be skipped")
	}
}

func TestRenderTransmission_UnboundedRange(t *testing.T) {
	for _, rng := range []float64{math.Inf(1), 1e30} {
		row := externalRow(pos(7e6, 0, 0), pos(7e6, 5050, 0), rng)

		tx, ok := RenderTransmission([]*model.EventRow{row}, 0, ArrowTableFor(ModePlotly))
		if !ok {
			t.Fatalf("range %g: expected transmission to render", rng)
		}
		if tx.Segments != DefaultSegments || len(tx.Arrows) != 0 {
			t.Fatalf("range %g: expected %d segments and no arrows, got %d/%d", rng, DefaultSegments, tx.Segments, len(tx.Arrows))
		}
		if tx.Scaling != 0 {
			t.Fatalf("range %g: expected no arrow scaling, got %g", rng, tx.Scaling)
		}
		samples := tx.Samples()
		if math.Abs(samples[0].Y) > 1e-6 || math.Abs(samples[len(samples)-1].Y-5050) > 1e-6 {
			t.Fatalf("range %g: expected no inset, got %g..%g", rng, samples[0].Y, samples[len(samples)-1].Y)
		}
	}
}
