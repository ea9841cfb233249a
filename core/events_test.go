package core

import (
	"math"
	"strings"
	"testing"

	"github.com/signalsfoundry/comms-inspector/model"
)

func internalRow(sender, eventType string, p model.Position) *model.EventRow {
	return &model.EventRow{
		EventType: eventType,
		Sender:    model.Endpoint{Name: sender, PartName: "router"},
		Receiver:  model.Endpoint{Name: model.DoesNotExist, PartName: "radio"},
		SenderPos: p,
	}
}

func TestInternalEvents_Categories(t *testing.T) {
	p := pos(EquatorRadius, 0, 0)
	rows := []*model.EventRow{
		internalRow("b-both", model.EventMessageOutgoing, p),
		internalRow("b-both", model.EventMessageIncoming, p),
		internalRow("c-out", model.EventMessageOutgoing, p),
		internalRow("d-in", model.EventMessageIncoming, p),
		internalRow("a-none", model.EventMessageInternal, p),
	}

	points := InternalEvents(rows, 0)
	want := []struct {
		sender string
		cat    InternalCategory
		color  string
	}{
		{"a-none", CategoryNeither, "salmon"},
		{"b-both", CategoryBoth, "goldenrod"},
		{"c-out", CategoryOutgoingOnly, "cornflowerblue"},
		{"d-in", CategoryIncomingOnly, "mediumspringgreen"},
	}
	if len(points) != len(want) {
		t.Fatalf("expected %d points, got %d", len(want), len(points))
	}
	for i, w := range want {
		got := points[i]
		if got.Sender != w.sender || got.Category != w.cat || got.Color != w.color {
			t.Errorf("point %d = %s/%s/%s, want %s/%s/%s", i, got.Sender, got.Category, got.Color, w.sender, w.cat, w.color)
		}
	}

	both := points[1].Hover
	if !strings.HasPrefix(both, "Time (H:M:S): ") ||
		!strings.Contains(both, "<br>Platform: b-both<br>") ||
		strings.Contains(both, "<b>") ||
		!strings.Contains(both, "1. Event Type: MESSAGE_OUTGOING<br>") ||
		!strings.Contains(both, "2. Event Type: MESSAGE_INCOMING<br>") ||
		!strings.Contains(both, "    Platform Parts: router >> radio<br>") {
		t.Fatalf("unexpected internal hover %q", both)
	}
}

func TestExternalEvents_GroupsSortedByKey(t *testing.T) {
	a := externalRow(pos(7e6, 0, 0), pos(7e6, 2000, 0), 2000)
	b := externalRow(pos(7e6, 0, 0), pos(7e6, 2000, 0), 2000)
	b.Sender.Name = "alpha"
	c := externalRow(pos(7e6, 0, 0), pos(7e6, 2000, 0), 2000)

	txs := ExternalEvents([]*model.EventRow{a, b, c}, 0, ArrowTableFor(ModePlotly))
	if len(txs) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(txs))
	}
	if txs[0].Sender != "alpha" || txs[1].Sender != "sat-1" {
		t.Fatalf("groups not in key order: %s, %s", txs[0].Sender, txs[1].Sender)
	}
	if strings.Count(txs[1].Hover, "Event Type") != 2 {
		t.Fatalf("expected both sat-1 rows in one hover block")
	}
}

func TestBuildFrame_EmptySlice(t *testing.T) {
	for _, mode := range []RenderMode{ModePlotly, ModeCesium} {
		agg := NewAggregator(mode, EquatorRadius)
		frame := agg.BuildFrame(nil, 0)
		if len(frame.Transmissions) != 0 || len(frame.Internal) != 0 || frame.ArrowCount() != 0 {
			t.Fatalf("%s: expected empty frame, got %+v", mode, frame)
		}
		if frame.Camera != DefaultCamera(mode) {
			t.Fatalf("%s: expected default camera, got %+v", mode, frame.Camera)
		}
	}
}

func TestBuildFrame_SplitsInternalAndExternal(t *testing.T) {
	rows := []*model.EventRow{
		internalRow("sat-1", model.EventMessageOutgoing, pos(7e6, 0, 0)),
		externalRow(pos(7e6, 0, 0), pos(7e6, 2000, 0), 2000),
		{EventType: "MESSAGE_QUEUED", SenderPos: pos(1, 1, 1)},
	}
	frame := NewAggregator(ModePlotly, 0).BuildFrame(rows, 0)
	if len(frame.Internal) != 1 || len(frame.Transmissions) != 1 {
		t.Fatalf("expected 1 internal and 1 external, got %d/%d", len(frame.Internal), len(frame.Transmissions))
	}
	if frame.ArrowCount() != 20 {
		t.Fatalf("expected 20 arrows, got %d", frame.ArrowCount())
	}
}

func TestFrameCamera(t *testing.T) {
	internal := []*model.EventRow{internalRow("sat-1", model.EventMessageOutgoing, pos(2*EquatorRadius, 0, 0))}
	external := []*model.EventRow{externalRow(pos(2*EquatorRadius, 0, 0), pos(0, 2*EquatorRadius, 0), 1)}

	cam := FrameCamera(internal, external, ModeCesium, 0)
	// Centroid of the two distinct points lies on the X=Y diagonal.
	dist := 4 * EquatorRadius
	want := Vec3{X: dist / math.Sqrt2, Y: dist / math.Sqrt2}
	if !approxVec(cam.Eye, want, 1e-3) {
		t.Fatalf("cesium eye = %+v, want %+v", cam.Eye, want)
	}

	plotly := FrameCamera(internal, external, ModePlotly, 2*EquatorRadius)
	if math.Abs(plotly.Eye.Norm()-2) > 1e-9 {
		t.Fatalf("plotly eye should be normalised by axis range, got |eye|=%g", plotly.Eye.Norm())
	}
}

func TestFrameCamera_Degenerate(t *testing.T) {
	// Two antipodal platforms cancel out to a zero centroid.
	external := []*model.EventRow{externalRow(pos(7e6, 0, 0), pos(-7e6, 0, 0), 1.4e7)}
	if cam := FrameCamera(nil, external, ModePlotly, EquatorRadius); cam != DefaultCamera(ModePlotly) {
		t.Fatalf("expected default camera, got %+v", cam)
	}

	invalid := []*model.EventRow{internalRow("x", model.EventMessageInternal, model.Position{})}
	if cam := FrameCamera(invalid, nil, ModeCesium, 0); cam != DefaultCamera(ModeCesium) {
		t.Fatalf("expected default cesium camera, got %+v", cam)
	}
}

func TestAxisRangeAndSurface(t *testing.T) {
	rows := []*model.EventRow{externalRow(pos(1, -9e6, 0), pos(0, 0, 4e6), 1)}
	if got := AxisRange(rows); got != 9e6 {
		t.Fatalf("AxisRange = %g, want 9e6", got)
	}
	if got := AxisRange(nil); got != EquatorRadius {
		t.Fatalf("AxisRange(nil) = %g, want equator radius", got)
	}

	s, err := BuildSurface(ResolutionLow, "green", "blue")
	if err != nil {
		t.Fatalf("BuildSurface: %v", err)
	}
	if len(s.Grid.X) != 25 || len(s.Grid.X[0]) != 50 {
		t.Fatalf("unexpected low-res grid %dx%d", len(s.Grid.X), len(s.Grid.X[0]))
	}
	if _, err := BuildSurface("ultra", "", ""); err == nil {
		t.Fatalf("expected error for unknown resolution")
	}
}
