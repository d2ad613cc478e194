package core

import "strconv"

// MessageType is the protocol verb carried by a message.
type MessageType uint8

const (
	// TypeJoin registers the origin identity to the sending connection.
	TypeJoin MessageType = 1
	// TypeData carries a payload from a sender to one reader or all readers.
	TypeData MessageType = 2
	// TypeLeave deregisters the origin identity.
	TypeLeave MessageType = 3
)

func (t MessageType) String() string {
	switch t {
	case TypeJoin:
		return "join"
	case TypeData:
		return "data"
	case TypeLeave:
		return "leave"
	default:
		return "unknown(" + strconv.Itoa(int(t)) + ")"
	}
}

// Known reports whether t is one of the protocol verbs.
func (t MessageType) Known() bool {
	return t == TypeJoin || t == TypeData || t == TypeLeave
}

// Message is the domain model for one relay message.
// Destination is only meaningful for TypeData.
type Message struct {
	Type        MessageType
	Origin      Identity
	Destination Identity
	Payload     []byte
}
