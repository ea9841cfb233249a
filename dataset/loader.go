package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/signalsfoundry/comms-inspector/model"
)

var (
	// ErrMissingColumns is returned when the CSV header lacks required columns.
	ErrMissingColumns = errors.New("missing required columns")
	// ErrMalformedRow is returned for rows that cannot be normalized.
	ErrMalformedRow = errors.New("malformed row")
)

// Position and range columns. Categorical columns come from model.Fields.
const (
	colSenderX   = "SenderLocation_X"
	colSenderY   = "SenderLocation_Y"
	colSenderZ   = "SenderLocation_Z"
	colReceiverX = "ReceiverLocation_X"
	colReceiverY = "ReceiverLocation_Y"
	colReceiverZ = "ReceiverLocation_Z"
	colRange     = "SenderToRcvr_Range"
)

// RequiredColumns lists every header the loader expects.
func RequiredColumns() []string {
	cols := make([]string, 0, 37)
	for _, f := range model.Fields() {
		cols = append(cols, f.Name)
	}
	return append(cols, colSenderX, colSenderY, colSenderZ, colReceiverX, colReceiverY, colReceiverZ, colRange)
}

// stringDefaults are substituted for empty text cells.
var stringDefaults = map[string]string{
	"Message_Originator":           model.Unknown,
	"Message_Type":                 model.Unknown,
	"OldMessage_Originator":        model.Unknown,
	"OldMessage_Type":              model.DoesNotExist,
	"Sender_Name":                  model.Unknown,
	"Sender_Type":                  model.Unknown,
	"Sender_BaseType":              model.Unknown,
	"SenderPart_Name":              model.Unknown,
	"SenderPart_Type":              model.Unknown,
	"SenderPart_BaseType":          model.Unknown,
	"Receiver_Name":                model.DoesNotExist,
	"Receiver_Type":                model.Unknown,
	"Receiver_BaseType":            model.Unknown,
	"ReceiverPart_Name":            model.DoesNotExist,
	"ReceiverPart_Type":            model.Unknown,
	"ReceiverPart_BaseType":        model.Unknown,
	"CommInteraction_FailedStatus": model.DoesNotExist,
}

// LoadFile reads a simulator CSV from disk.
func LoadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("LoadFile: %w", err)
	}
	defer f.Close()

	ds, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("LoadFile %s: %w", path, err)
	}
	return ds, nil
}

// Load parses a simulator CSV, validates its header and normalizes missing
// cells to sentinels. Any schema or row error aborts the load.
func Load(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty input", ErrMissingColumns)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	var missing []string
	for _, name := range RequiredColumns() {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	var rows []*model.EventRow
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedRow, line, err)
		}
		row, err := parseRecord(record{index: index, values: rec})
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedRow, line, err)
		}
		rows = append(rows, row)
	}
	return New(rows), nil
}

type record struct {
	index  map[string]int
	values []string
}

func (r record) raw(col string) string {
	i, ok := r.index[col]
	if !ok || i >= len(r.values) {
		return ""
	}
	return strings.TrimSpace(r.values[i])
}

func (r record) text(col string) string {
	if v := r.raw(col); v != "" {
		return v
	}
	if d, ok := stringDefaults[col]; ok {
		return d
	}
	return model.Unknown
}

func (r record) number(col string) (float64, error) {
	v := r.raw(col)
	if v == "" {
		return model.MissingNumber, nil
	}
	return parseFinite(col, v)
}

// parseFinite rejects NaN and infinities along with unparsable text.
func parseFinite(col, v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", col, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("column %s: non-finite value %q", col, v)
	}
	return f, nil
}

func (r record) position(x, y, z string) (model.Position, error) {
	vals := [3]float64{}
	for i, col := range [3]string{x, y, z} {
		v := r.raw(col)
		if v == "" {
			return model.Position{}, nil
		}
		f, err := parseFinite(col, v)
		if err != nil {
			return model.Position{}, err
		}
		vals[i] = f
	}
	return model.Position{X: vals[0], Y: vals[1], Z: vals[2], Valid: true}, nil
}

func parseRecord(r record) (*model.EventRow, error) {
	row := &model.EventRow{
		EventType: r.raw("Event_Type"),
		ISODate:   r.raw("ISODate"),
	}
	if row.EventType == "" {
		return nil, errors.New("empty Event_Type")
	}
	ts, err := ParseISODate(row.ISODate)
	if err != nil {
		return nil, err
	}
	row.Timestamp = ts

	row.Message.Originator = r.text("Message_Originator")
	row.Message.Type = r.text("Message_Type")
	row.OldMessage.Originator = r.text("OldMessage_Originator")
	row.OldMessage.Type = r.text("OldMessage_Type")
	row.Sender = model.Endpoint{
		Name:         r.text("Sender_Name"),
		Type:         r.text("Sender_Type"),
		BaseType:     r.text("Sender_BaseType"),
		PartName:     r.text("SenderPart_Name"),
		PartType:     r.text("SenderPart_Type"),
		PartBaseType: r.text("SenderPart_BaseType"),
	}
	row.Receiver = model.Endpoint{
		Name:         r.text("Receiver_Name"),
		Type:         r.text("Receiver_Type"),
		BaseType:     r.text("Receiver_BaseType"),
		PartName:     r.text("ReceiverPart_Name"),
		PartType:     r.text("ReceiverPart_Type"),
		PartBaseType: r.text("ReceiverPart_BaseType"),
	}
	row.FailedStatus = r.text("CommInteraction_FailedStatus")

	numbers := []struct {
		col string
		dst *float64
	}{
		{"Message_SerialNumber", &row.Message.SerialNumber},
		{"Message_Size", &row.Message.Size},
		{"Message_Priority", &row.Message.Priority},
		{"Message_DataTag", &row.Message.DataTag},
		{"OldMessage_SerialNumber", &row.OldMessage.SerialNumber},
		{"OldMessage_Size", &row.OldMessage.Size},
		{"OldMessage_Priority", &row.OldMessage.Priority},
		{"OldMessage_DataTag", &row.OldMessage.DataTag},
		{"CommInteraction_Succeeded", &row.Succeeded},
		{"CommInteraction_Failed", &row.Failed},
		{"Queue_Size", &row.QueueSize},
	}
	for _, n := range numbers {
		v, err := r.number(n.col)
		if err != nil {
			return nil, err
		}
		*n.dst = v
	}

	if row.SenderPos, err = r.position(colSenderX, colSenderY, colSenderZ); err != nil {
		return nil, err
	}
	if row.ReceiverPos, err = r.position(colReceiverX, colReceiverY, colReceiverZ); err != nil {
		return nil, err
	}

	if v := r.raw(colRange); v != "" {
		if row.Range, err = parseFinite(colRange, v); err != nil {
			return nil, err
		}
	} else if row.SenderPos.Valid && row.ReceiverPos.Valid {
		dx := row.SenderPos.X - row.ReceiverPos.X
		dy := row.SenderPos.Y - row.ReceiverPos.Y
		dz := row.SenderPos.Z - row.ReceiverPos.Z
		row.Range = math.Sqrt(dx*dx + dy*dy + dz*dz)
	}
	return row, nil
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// ParseISODate parses an ISO-8601 date-time into fractional Unix seconds.
// Times without a zone are taken as UTC.
func ParseISODate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty ISODate")
	}
	for _, layout := range isoLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return float64(t.Unix()) + float64(t.Nanosecond())/1e9, nil
		}
	}
	return 0, fmt.Errorf("unparsable ISODate %q", s)
}
