package model

import "testing"

func TestFieldTableCounts(t *testing.T) {
	if got := len(Fields()); got != 30 {
		t.Fatalf("expected 30 chartable fields, got %d", got)
	}
	if got := len(FilterFields()); got != 16 {
		t.Fatalf("expected 16 filterable fields, got %d", got)
	}
}

func TestFieldValues(t *testing.T) {
	row := &EventRow{
		EventType: EventMessageReceived,
		Message:   Message{SerialNumber: 12, Type: "TRACK"},
		Sender:    Endpoint{Name: "sat-1", PartName: "radio"},
		Receiver:  Endpoint{Name: DoesNotExist},
		QueueSize: MissingNumber,
	}

	cases := map[string]string{
		"Event_Type":           EventMessageReceived,
		"Message_SerialNumber": "12",
		"Message_Type":         "TRACK",
		"Sender_Name":          "sat-1",
		"SenderPart_Name":      "radio",
		"Receiver_Name":        DoesNotExist,
		"Queue_Size":           "-1",
	}
	for name, want := range cases {
		f, ok := LookupField(name)
		if !ok {
			t.Fatalf("field %q missing from table", name)
		}
		if got := f.Value(row); got != want {
			t.Errorf("%s: got %q, want %q", name, got, want)
		}
	}

	if _, ok := LookupField("SenderLocation_X"); ok {
		t.Fatalf("positions must not be categorical fields")
	}
}

func TestHasFailure(t *testing.T) {
	if (EventRow{FailedStatus: DoesNotExist}).HasFailure() {
		t.Fatalf("sentinel failure status must not count as failure")
	}
	if !(EventRow{FailedStatus: "NO_ROUTE"}).HasFailure() {
		t.Fatalf("expected failure for NO_ROUTE")
	}
}

func TestFormatClock(t *testing.T) {
	// 2024-01-01T12:34:56.250Z
	ts := 1704112496.25
	if got := FormatClock(ts); got != "12:34:56.250" {
		t.Fatalf("FormatClock = %q", got)
	}
}
