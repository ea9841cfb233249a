package core

import (
	"slices"
	"strconv"
	"strings"

	"github.com/signalsfoundry/comms-inspector/model"
)

// InternalPoint is one platform's internal activity in a time slice.
type InternalPoint struct {
	Sender   string           `json:"sender"`
	Position Vec3             `json:"position"`
	Category InternalCategory `json:"category"`
	Color    string           `json:"color"`
	Hover    string           `json:"hover"`
}

// Frame is everything drawn on the globe for one timestamp.
type Frame struct {
	Timestamp     float64         `json:"timestamp"`
	TimeLabel     string          `json:"time_label"`
	Mode          RenderMode      `json:"mode"`
	Transmissions []Transmission  `json:"transmissions"`
	Internal      []InternalPoint `json:"internal"`
	Camera        Camera          `json:"camera"`
}

// ArrowCount returns the number of direction glyphs in the frame.
func (f Frame) ArrowCount() int {
	n := 0
	for _, tx := range f.Transmissions {
		n += len(tx.Arrows)
	}
	return n
}

// Aggregator turns time slices into frames. The zero value renders in
// plotly mode against the equatorial radius.
type Aggregator struct {
	Mode      RenderMode
	AxisRange float64
}

// NewAggregator returns an aggregator for the given mode and axis range.
func NewAggregator(mode RenderMode, axisRange float64) *Aggregator {
	return &Aggregator{Mode: mode, AxisRange: axisRange}
}

// BuildFrame renders one time slice. An empty slice yields an empty frame
// with the default camera.
func (a *Aggregator) BuildFrame(slice []*model.EventRow, at float64) Frame {
	mode := a.Mode
	if mode == "" {
		mode = ModePlotly
	}

	var internal, external []*model.EventRow
	for _, r := range slice {
		switch {
		case model.IsInternal(r.EventType):
			internal = append(internal, r)
		case model.IsExternal(r.EventType):
			external = append(external, r)
		}
	}

	return Frame{
		Timestamp:     at,
		TimeLabel:     model.FormatClock(at),
		Mode:          mode,
		Transmissions: ExternalEvents(external, at, ArrowTableFor(mode)),
		Internal:      InternalEvents(internal, at),
		Camera:        FrameCamera(internal, external, mode, a.AxisRange),
	}
}

// ExternalEvents groups rows by sender/receiver part pair, in key order, and
// renders each group.
func ExternalEvents(rows []*model.EventRow, at float64, table ArrowTable) []Transmission {
	groups := groupBy(rows, KeyOf, GroupKey.compare)
	out := make([]Transmission, 0, len(groups))
	for _, g := range groups {
		if tx, ok := RenderTransmission(g.rows, at, table); ok {
			out = append(out, tx)
		}
	}
	return out
}

// InternalEvents groups rows by sender, in name order, producing one point
// per platform at the position of its first row.
func InternalEvents(rows []*model.EventRow, at float64) []InternalPoint {
	senderOf := func(r *model.EventRow) string { return r.Sender.Name }
	groups := groupBy(rows, senderOf, strings.Compare)

	out := make([]InternalPoint, 0, len(groups))
	for _, g := range groups {
		first := g.rows[0]
		if !first.SenderPos.Valid {
			continue
		}
		cat := classifyInternal(g.rows)
		out = append(out, InternalPoint{
			Sender:   g.key,
			Position: FromPosition(first.SenderPos),
			Category: cat,
			Color:    cat.Color().Name,
			Hover:    internalHover(g.key, g.rows, at),
		})
	}
	return out
}

func classifyInternal(rows []*model.EventRow) InternalCategory {
	var outgoing, incoming bool
	for _, r := range rows {
		switch r.EventType {
		case model.EventMessageOutgoing:
			outgoing = true
		case model.EventMessageIncoming:
			incoming = true
		}
	}
	switch {
	case outgoing && incoming:
		return CategoryBoth
	case outgoing:
		return CategoryOutgoingOnly
	case incoming:
		return CategoryIncomingOnly
	}
	return CategoryNeither
}

func internalHover(sender string, rows []*model.EventRow, at float64) string {
	var b strings.Builder
	b.WriteString("Time (H:M:S): " + model.FormatClock(at) + "<br>")
	b.WriteString("Platform: " + sender + "<br>")
	for i, r := range rows {
		b.WriteString(strconv.Itoa(i+1) + ". Event Type: " + r.EventType + "<br>")
		writeMessageLines(&b, r.Sender.PartName, r.Receiver.PartName, r)
	}
	b.WriteString("<extra></extra>")
	return b.String()
}

type rowGroup[K any] struct {
	key  K
	rows []*model.EventRow
}

// groupBy partitions rows by key, keeping row order inside each group and
// sorting groups by key.
func groupBy[K comparable](rows []*model.EventRow, keyOf func(*model.EventRow) K, cmp func(a, b K) int) []rowGroup[K] {
	index := make(map[K]int)
	var groups []rowGroup[K]
	for _, r := range rows {
		k := keyOf(r)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, rowGroup[K]{key: k})
		}
		groups[i].rows = append(groups[i].rows, r)
	}
	slices.SortFunc(groups, func(a, b rowGroup[K]) int { return cmp(a.key, b.key) })
	return groups
}
