package proto

// Wire type values. Anything else is carried through so the server can reject it.
const (
	TypeJoin  uint8 = 1
	TypeData  uint8 = 2
	TypeLeave uint8 = 3
)

// Type names used by the JSON envelope.
const (
	TypeNameJoin  = "join"
	TypeNameData  = "data"
	TypeNameLeave = "leave"
)

// Frame is one relay message on the wire.
type Frame struct {
	Type        uint8
	Origin      int32
	Destination int32
	Payload     []byte
}

// Envelope is the JSON form of a Frame used by the WebSocket transport.
// Payload is base64 encoded by encoding/json.
type Envelope struct {
	Type        string `json:"type"`
	Origin      int32  `json:"origin"`
	Destination int32  `json:"destination"`
	Payload     []byte `json:"payload,omitempty"`
}

// TypeName returns the envelope name of a wire type, or "" if it has none.
func TypeName(t uint8) string {
	switch t {
	case TypeJoin:
		return TypeNameJoin
	case TypeData:
		return TypeNameData
	case TypeLeave:
		return TypeNameLeave
	default:
		return ""
	}
}

// TypeFromName maps an envelope name to a wire type. Unknown names map to 0.
func TypeFromName(name string) uint8 {
	switch name {
	case TypeNameJoin:
		return TypeJoin
	case TypeNameData:
		return TypeData
	case TypeNameLeave:
		return TypeLeave
	default:
		return 0
	}
}

// ToEnvelope converts f to its JSON form.
func ToEnvelope(f Frame) Envelope {
	return Envelope{
		Type:        TypeName(f.Type),
		Origin:      f.Origin,
		Destination: f.Destination,
		Payload:     f.Payload,
	}
}

// FromEnvelope converts a JSON envelope to a Frame.
func FromEnvelope(e Envelope) Frame {
	return Frame{
		Type:        TypeFromName(e.Type),
		Origin:      e.Origin,
		Destination: e.Destination,
		Payload:     e.Payload,
	}
}
