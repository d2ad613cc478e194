package core

import "time"

// EventKind is a lifecycle notification the hub emits for operators.
type EventKind string

const (
	// EventConnected is emitted when a connection starts being watched.
	EventConnected EventKind = "connected"
	// EventJoined is emitted when a Join binds an identity.
	EventJoined EventKind = "joined"
	// EventJoinRejected is emitted when a Join fails.
	EventJoinRejected EventKind = "join_rejected"
	// EventDelivered is emitted when a Data message reached all its recipients.
	EventDelivered EventKind = "delivered"
	// EventDataRejected is emitted when a Data message fails a protocol check.
	EventDataRejected EventKind = "data_rejected"
	// EventLeft is emitted when a Leave releases an identity.
	EventLeft EventKind = "left"
	// EventLeaveRejected is emitted when a Leave names an unregistered identity.
	EventLeaveRejected EventKind = "leave_rejected"
	// EventDropped is emitted when a connection is closed because of an error.
	EventDropped EventKind = "dropped"
	// EventClosed is emitted when a connection is closed after a Leave or on shutdown.
	EventClosed EventKind = "closed"
)

// Event describes what happened to one connection. Payloads are never included.
type Event struct {
	Kind        EventKind
	ConnID      string
	Remote      string
	Identity    Identity
	Destination Identity
	Recipients  int
	Code        string
	At          time.Time
}

// EventSink receives hub events. Publish runs on the hub goroutine and must not block.
type EventSink interface {
	Publish(Event)
}

type nopSink struct{}

func (nopSink) Publish(Event) {}
