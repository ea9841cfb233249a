package model

import "strconv"

// Field describes one categorical column of the event table. The table drives
// the filter dropdowns and the bar-chart selectors.
type Field struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Placeholder string `json:"placeholder,omitempty"`
	Filterable  bool   `json:"filterable"`

	value func(*EventRow) string
}

// Value returns the row's value for the field as a grouping key.
func (f Field) Value(r *EventRow) string {
	if f.value == nil || r == nil {
		return ""
	}
	return f.value(r)
}

// FormatNumber renders numeric cells the way they appear as category keys.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func num(get func(*EventRow) float64) func(*EventRow) string {
	return func(r *EventRow) string { return FormatNumber(get(r)) }
}

func filterable(name, label, placeholder string, get func(*EventRow) string) Field {
	return Field{Name: name, Label: label, Placeholder: placeholder, Filterable: true, value: get}
}

func column(name, label string, get func(*EventRow) string) Field {
	return Field{Name: name, Label: label, value: get}
}

var fieldTable = []Field{
	column("ISODate", "ISO Date", func(r *EventRow) string { return r.ISODate }),
	filterable("Event_Type", "Event Type", "All Events", func(r *EventRow) string { return r.EventType }),
	filterable("Message_SerialNumber", "Message Serial Number", "All Serial Numbers", num(func(r *EventRow) float64 { return r.Message.SerialNumber })),
	filterable("Message_Originator", "Message Originator", "All Originators", func(r *EventRow) string { return r.Message.Originator }),
	filterable("Message_Type", "Message Type", "All Message Types", func(r *EventRow) string { return r.Message.Type }),
	column("Message_Size", "Message Size", num(func(r *EventRow) float64 { return r.Message.Size })),
	column("Message_Priority", "Message Priority", num(func(r *EventRow) float64 { return r.Message.Priority })),
	column("Message_DataTag", "Message Data Tag", num(func(r *EventRow) float64 { return r.Message.DataTag })),
	column("OldMessage_SerialNumber", "Old Message Serial Number", num(func(r *EventRow) float64 { return r.OldMessage.SerialNumber })),
	column("OldMessage_Originator", "Old Message Originator", func(r *EventRow) string { return r.OldMessage.Originator }),
	column("OldMessage_Type", "Old Message Type", func(r *EventRow) string { return r.OldMessage.Type }),
	column("OldMessage_Size", "Old Message Size", num(func(r *EventRow) float64 { return r.OldMessage.Size })),
	column("OldMessage_Priority", "Old Message Priority", num(func(r *EventRow) float64 { return r.OldMessage.Priority })),
	column("OldMessage_DataTag", "Old Message Data Tag", num(func(r *EventRow) float64 { return r.OldMessage.DataTag })),
	filterable("Sender_Name", "Sender", "All Senders", func(r *EventRow) string { return r.Sender.Name }),
	filterable("Sender_Type", "Sender Type", "All Sender Types", func(r *EventRow) string { return r.Sender.Type }),
	filterable("Sender_BaseType", "Sender BaseType", "All Sender BaseTypes", func(r *EventRow) string { return r.Sender.BaseType }),
	filterable("SenderPart_Name", "Sender Part", "All Sender Parts", func(r *EventRow) string { return r.Sender.PartName }),
	filterable("SenderPart_Type", "Sender Part Type", "All Sender Part Types", func(r *EventRow) string { return r.Sender.PartType }),
	filterable("SenderPart_BaseType", "Sender Part BaseType", "All Sender Part BaseTypes", func(r *EventRow) string { return r.Sender.PartBaseType }),
	filterable("Receiver_Name", "Receiver", "All Receivers", func(r *EventRow) string { return r.Receiver.Name }),
	filterable("Receiver_Type", "Receiver Type", "All Receiver Types", func(r *EventRow) string { return r.Receiver.Type }),
	filterable("Receiver_BaseType", "Receiver BaseType", "All Receiver BaseTypes", func(r *EventRow) string { return r.Receiver.BaseType }),
	filterable("ReceiverPart_Name", "Receiver Part", "All Receiver Parts", func(r *EventRow) string { return r.Receiver.PartName }),
	filterable("ReceiverPart_Type", "Receiver Part Type", "All Receiver Part Types", func(r *EventRow) string { return r.Receiver.PartType }),
	filterable("ReceiverPart_BaseType", "Receiver Part BaseType", "All Receiver Part BaseTypes", func(r *EventRow) string { return r.Receiver.PartBaseType }),
	column("CommInteraction_Succeeded", "Comm Interaction Succeeded", num(func(r *EventRow) float64 { return r.Succeeded })),
	column("CommInteraction_Failed", "Comm Interaction Failed", num(func(r *EventRow) float64 { return r.Failed })),
	column("CommInteraction_FailedStatus", "Failure Reason", func(r *EventRow) string { return r.FailedStatus }),
	column("Queue_Size", "Queue Size", num(func(r *EventRow) float64 { return r.QueueSize })),
}

var fieldIndex = func() map[string]int {
	idx := make(map[string]int, len(fieldTable))
	for i, f := range fieldTable {
		idx[f.Name] = i
	}
	return idx
}()

// Fields returns every categorical column in table order.
func Fields() []Field {
	out := make([]Field, len(fieldTable))
	copy(out, fieldTable)
	return out
}

// FilterFields returns the columns offered as filter dropdowns.
func FilterFields() []Field {
	var out []Field
	for _, f := range fieldTable {
		if f.Filterable {
			out = append(out, f)
		}
	}
	return out
}

// LookupField returns the field with the given column name.
func LookupField(name string) (Field, bool) {
	i, ok := fieldIndex[name]
	if !ok {
		return Field{}, false
	}
	return fieldTable[i], true
}
