// Package transport holds what the TCP and WebSocket transports share.
package transport

import (
	"github.com/vovakirdan/wirerelay/internal/core"
	"github.com/vovakirdan/wirerelay/internal/proto"
)

// FrameToMessage converts a decoded wire frame into a core message.
func FrameToMessage(f proto.Frame) core.Message {
	return core.Message{
		Type:        core.MessageType(f.Type),
		Origin:      core.Identity(f.Origin),
		Destination: core.Identity(f.Destination),
		Payload:     f.Payload,
	}
}

// MessageToFrame converts a core message into a wire frame.
func MessageToFrame(m core.Message) proto.Frame {
	return proto.Frame{
		Type:        uint8(m.Type),
		Origin:      int32(m.Origin),
		Destination: int32(m.Destination),
		Payload:     m.Payload,
	}
}
