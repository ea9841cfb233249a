package model

import (
	"math"
	"time"
)

// Sentinel values substituted for missing CSV cells so that grouping and
// filtering never operate on empty values.
const (
	Unknown       = "unknown"
	DoesNotExist  = "Does Not Exist"
	MissingNumber = -1.0
)

// Event types emitted by the simulator observer.
const (
	EventMessageInternal        = "MESSAGE_INTERNAL"
	EventMessageIncoming        = "MESSAGE_INCOMING"
	EventMessageOutgoing        = "MESSAGE_OUTGOING"
	EventMessageDeliveryAttempt = "MESSAGE_DELIVERY_ATTEMPT"
	EventMessageReceived        = "MESSAGE_RECEIVED"
)

// IsInternal reports whether the event type describes intra-platform routing.
func IsInternal(eventType string) bool {
	switch eventType {
	case EventMessageInternal, EventMessageIncoming, EventMessageOutgoing:
		return true
	}
	return false
}

// IsExternal reports whether the event type describes a transmission between
// two platforms.
func IsExternal(eventType string) bool {
	switch eventType {
	case EventMessageDeliveryAttempt, EventMessageReceived:
		return true
	}
	return false
}

// Position is an ECEF position in metres. Valid is false when the source row
// carried no coordinates.
type Position struct {
	X, Y, Z float64
	Valid   bool
}

// Message describes either the current or the superseded message of an event.
type Message struct {
	SerialNumber float64
	Originator   string
	Type         string
	Size         float64
	Priority     float64
	DataTag      float64
}

// Endpoint identifies one side of a communication: the platform and the
// platform part (comm device, router) that handled the message.
type Endpoint struct {
	Name         string
	Type         string
	BaseType     string
	PartName     string
	PartType     string
	PartBaseType string
}

// EventRow is one simulated communications event.
type EventRow struct {
	EventType string
	ISODate   string
	// Timestamp is ISODate expressed as fractional Unix seconds.
	Timestamp float64

	Message    Message
	OldMessage Message

	Sender   Endpoint
	Receiver Endpoint

	Succeeded    float64
	Failed       float64
	FailedStatus string
	QueueSize    float64

	SenderPos   Position
	ReceiverPos Position
	// Range is the sender-to-receiver distance in metres.
	Range float64
}

// HasFailure reports whether the row carries a failure reason.
func (r EventRow) HasFailure() bool {
	return r.FailedStatus != "" && r.FailedStatus != DoesNotExist
}

// Time returns the row timestamp as a UTC time.
func (r EventRow) Time() time.Time {
	return TimeFromSeconds(r.Timestamp)
}

// TimeFromSeconds converts fractional Unix seconds to a UTC time, rounded to
// the microsecond since float64 seconds carry no finer precision.
func TimeFromSeconds(ts float64) time.Time {
	sec := math.Floor(ts)
	usec := math.Round((ts - sec) * 1e6)
	return time.Unix(int64(sec), int64(usec)*int64(time.Microsecond)).UTC()
}

// ClockLayout is the simulated-time display format.
const ClockLayout = "15:04:05.000"

// FormatClock renders a timestamp as H:M:S with milliseconds.
func FormatClock(ts float64) string {
	return TimeFromSeconds(ts).Format(ClockLayout)
}
