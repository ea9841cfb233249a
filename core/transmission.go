package core

import (
	"iter"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/signalsfoundry/comms-inspector/model"
)

// DefaultSegments is the number of curve segments drawn when a transmission
// is too short for any arrows.
const DefaultSegments = 10

// MaxArrows bounds the arrows on one transmission. Longer paths are drawn
// like short ones, with DefaultSegments and no arrows.
const MaxArrows = 1000

// Arrow is a direction glyph anchored at the midpoint of two samples.
type Arrow struct {
	Anchor    Vec3 `json:"anchor"`
	Direction Vec3 `json:"direction"`
}

// Transmission is the drawable form of one transmission group.
type Transmission struct {
	Sender       string   `json:"sender"`
	SenderPart   string   `json:"sender_part"`
	Receiver     string   `json:"receiver"`
	ReceiverPart string   `json:"receiver_part"`
	Outcome      Outcome  `json:"outcome"`
	Color        string   `json:"color"`
	Curved       bool     `json:"curved"`
	Segments     int      `json:"segments"`
	Line         []Vec3   `json:"line"`
	MarkerColors []string `json:"marker_colors"`
	Arrows       []Arrow  `json:"arrows"`
	Scaling      float64  `json:"scaling"`
	Hover        string   `json:"hover"`
}

// Samples returns the interpolated points between the two endpoint markers.
func (t Transmission) Samples() []Vec3 {
	if len(t.Line) < 2 {
		return nil
	}
	return t.Line[1 : len(t.Line)-1]
}

// GroupKey identifies a transmission group.
type GroupKey struct {
	Sender       string
	SenderPart   string
	Receiver     string
	ReceiverPart string
}

func (k GroupKey) compare(o GroupKey) int {
	if c := strings.Compare(k.Sender, o.Sender); c != 0 {
		return c
	}
	if c := strings.Compare(k.SenderPart, o.SenderPart); c != 0 {
		return c
	}
	if c := strings.Compare(k.Receiver, o.Receiver); c != 0 {
		return c
	}
	return strings.Compare(k.ReceiverPart, o.ReceiverPart)
}

// KeyOf returns the transmission group key of a row.
func KeyOf(r *model.EventRow) GroupKey {
	return GroupKey{
		Sender:       r.Sender.Name,
		SenderPart:   r.Sender.PartName,
		Receiver:     r.Receiver.Name,
		ReceiverPart: r.Receiver.PartName,
	}
}

// RenderTransmission builds the line, arrows, marker colours and hover text
// for one group. The first row supplies the endpoint positions and range.
// ok is false when the group is empty or lacks valid positions.
func RenderTransmission(group []*model.EventRow, at float64, table ArrowTable) (tx Transmission, ok bool) {
	if len(group) == 0 {
		return Transmission{}, false
	}
	first := group[0]
	if !first.SenderPos.Valid || !first.ReceiverPos.Valid {
		return Transmission{}, false
	}
	sender := FromPosition(first.SenderPos)
	receiver := FromPosition(first.ReceiverPos)

	key := KeyOf(first)
	hover, outcome := transmissionHover(key, group, at)

	rng := first.Range
	numArrows := 0
	var inset Vec3
	step, hasStep := table.Lookup(rng)
	if hasStep && math.Floor(rng/step.Interval) > MaxArrows {
		step, hasStep = ArrowStep{}, false
	}
	if hasStep {
		numArrows = int(math.Floor(rng / step.Interval))
		remainder := math.Mod(rng, step.Interval)
		inset = receiver.Sub(sender).Scale(0.5 * remainder / rng)
	}

	segments := numArrows
	if segments == 0 {
		segments = DefaultSegments
	}

	start, end := sender.Add(inset), receiver.Sub(inset)
	curved := LineOfSightBlocked(sender, receiver, EquatorRadius)
	var samples iter.Seq[Vec3]
	if curved {
		samples = GreatCirclePoints(start, end, segments)
	} else {
		samples = SegmentPoints(start, end, segments)
	}

	line := make([]Vec3, 0, segments+3)
	line = append(line, sender)
	line = slices.AppendSeq(line, samples)
	line = append(line, receiver)

	color := outcome.Color()
	tx = Transmission{
		Sender:       key.Sender,
		SenderPart:   key.SenderPart,
		Receiver:     key.Receiver,
		ReceiverPart: key.ReceiverPart,
		Outcome:      outcome,
		Color:        color.Name,
		Curved:       curved,
		Segments:     segments,
		Line:         line,
		MarkerColors: markerColors(color, len(line)),
		Scaling:      step.Scaling,
		Hover:        hover,
	}

	if numArrows > 0 {
		pts := tx.Samples()
		tx.Arrows = make([]Arrow, 0, numArrows)
		for i := 0; i < numArrows && i+1 < len(pts); i++ {
			tx.Arrows = append(tx.Arrows, Arrow{
				Anchor:    pts[i].Midpoint(pts[i+1]),
				Direction: pts[i+1].Sub(pts[i]),
			})
		}
	}
	return tx, true
}

// markerColors fades interior markers out so only the endpoints are visible.
func markerColors(c Color, n int) []string {
	if n <= 0 {
		return nil
	}
	out := make([]string, n)
	opaque, hidden := c.RGBA(1), c.RGBA(0)
	for i := range out {
		out[i] = hidden
	}
	out[0] = opaque
	out[n-1] = opaque
	return out
}

func transmissionHover(key GroupKey, group []*model.EventRow, at float64) (string, Outcome) {
	var b strings.Builder
	b.WriteString("Time (H:M:S): " + model.FormatClock(at) + "<br>")
	b.WriteString("Sender: " + key.Sender + " >> Receiver: " + key.Receiver + "<br>")

	outcome := OutcomeSuccess
	for i, r := range group {
		b.WriteString("<b>" + strconv.Itoa(i+1) + ". Event Type: " + r.EventType + "</b><br>")
		writeMessageLines(&b, key.SenderPart, key.ReceiverPart, r)
		if r.HasFailure() {
			outcome = OutcomeFail
			b.WriteString("    Failure Reason: " + r.FailedStatus + "<br>")
		}
	}
	b.WriteString("<extra></extra>")
	return b.String(), outcome
}

func writeMessageLines(b *strings.Builder, senderPart, receiverPart string, r *model.EventRow) {
	b.WriteString("    Platform Parts: " + senderPart + " >> " + receiverPart + "<br>")
	b.WriteString("    Message Type: " + r.Message.Type + "<br>")
	b.WriteString("    Message Number: " + model.FormatNumber(r.Message.SerialNumber) + "<br>")
	b.WriteString("    Message Originator: " + r.Message.Originator + "<br>")
}
