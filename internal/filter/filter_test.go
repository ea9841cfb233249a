package filter

import (
	"errors"
	"slices"
	"testing"

	"github.com/signalsfoundry/comms-inspector/model"
)

func sampleRows() []*model.EventRow {
	mk := func(ts float64, ev, sender, receiver, msgType string) *model.EventRow {
		return &model.EventRow{
			Timestamp: ts,
			EventType: ev,
			Sender:    model.Endpoint{Name: sender},
			Receiver:  model.Endpoint{Name: receiver},
			Message:   model.Message{Type: msgType, SerialNumber: ts},
		}
	}
	return []*model.EventRow{
		mk(1, model.EventMessageReceived, "sat-1", "gs-1", "TRACK"),
		mk(1, model.EventMessageOutgoing, "sat-2", model.DoesNotExist, "TRACK"),
		mk(2, model.EventMessageReceived, "sat-2", "gs-1", "STATUS"),
		mk(3, model.EventMessageDeliveryAttempt, "sat-1", "gs-2", "STATUS"),
	}
}

func names(rows []*model.EventRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Sender.Name + ">" + r.Receiver.Name
	}
	return out
}

func TestApply_ConjunctionAcrossFields(t *testing.T) {
	sel, err := NewSelection(map[string][]string{
		"Sender_Name":  {"sat-1", "sat-2"},
		"Message_Type": {"STATUS"},
	})
	if err != nil {
		t.Fatalf("NewSelection: %v", err)
	}

	got := names(Apply(sampleRows(), sel))
	want := []string{"sat-2>gs-1", "sat-1>gs-2"}
	if !slices.Equal(got, want) {
		t.Fatalf("Apply = %v, want %v", got, want)
	}
}

func TestApply_Idempotent(t *testing.T) {
	sel, _ := NewSelection(map[string][]string{"Receiver_Name": {"gs-1"}})
	once := Apply(sampleRows(), sel)
	twice := Apply(once, sel)
	if !slices.Equal(once, twice) {
		t.Fatalf("filtering twice changed the view: %v vs %v", names(once), names(twice))
	}
}

func TestApply_FullValueSetRoundTrip(t *testing.T) {
	rows := sampleRows()
	for _, f := range model.FilterFields() {
		all, err := Options(rows, f.Name)
		if err != nil {
			t.Fatalf("Options(%s): %v", f.Name, err)
		}
		sel, err := NewSelection(map[string][]string{f.Name: all})
		if err != nil {
			t.Fatalf("NewSelection(%s): %v", f.Name, err)
		}
		if got := Apply(rows, sel); !slices.Equal(got, rows) {
			t.Errorf("%s: selecting every value should keep all rows, got %v", f.Name, names(got))
		}
	}
}

func TestApply_EmptySelection(t *testing.T) {
	rows := sampleRows()
	if got := Apply(rows, Selection{}); !slices.Equal(got, rows) {
		t.Fatalf("empty selection must not filter")
	}
	if got := Apply(nil, Selection{}); len(got) != 0 {
		t.Fatalf("expected empty result for empty input")
	}
}

func TestSelection_SetAndClear(t *testing.T) {
	var sel Selection
	if err := sel.Set("SenderLocation_X", []string{"1"}); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	if err := sel.Set("Queue_Size", []string{"1"}); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("non-filterable column accepted: %v", err)
	}

	if err := sel.Set("Event_Type", []string{"A", "B", "A"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := sel.Values("Event_Type"); !slices.Equal(got, []string{"A", "B"}) {
		t.Fatalf("duplicates not dropped: %v", got)
	}

	clone := sel.Clone()
	_ = sel.Set("Event_Type", nil)
	if !sel.IsEmpty() {
		t.Fatalf("empty value list should clear the field")
	}
	if clone.IsEmpty() {
		t.Fatalf("clone shares state with original")
	}
	clone.Clear()
	if !clone.IsEmpty() {
		t.Fatalf("Clear left restrictions behind")
	}
}

func TestTimeSlice(t *testing.T) {
	rows := sampleRows()
	if got := TimeSlice(rows, 1); len(got) != 2 {
		t.Fatalf("expected 2 rows at t=1, got %d", len(got))
	}
	if got := TimeSlice(rows, 1.5); len(got) != 0 {
		t.Fatalf("time slice must be an exact match, got %d rows", len(got))
	}
}

func TestOptions_UseFilteredView(t *testing.T) {
	rows := sampleRows()
	sel, _ := NewSelection(map[string][]string{"Message_Type": {"STATUS"}})
	view := Apply(rows, sel)

	got, err := Options(view, "Receiver_Name")
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	if !slices.Equal(got, []string{"gs-1", "gs-2"}) {
		t.Fatalf("Options = %v", got)
	}

	all := AllOptions(view)
	if len(all) != len(model.FilterFields()) {
		t.Fatalf("expected options for every filter field, got %d", len(all))
	}
	if !slices.Equal(all["Message_SerialNumber"], []string{"2", "3"}) {
		t.Fatalf("serial options = %v", all["Message_SerialNumber"])
	}

	if _, err := Options(view, "bogus"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}
