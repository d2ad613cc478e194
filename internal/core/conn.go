package core

import "context"

// Conn is one open client channel as seen by the core layer.
// Receive is only called from the connection's reader goroutine; Send and Close
// are only called from the hub goroutine.
type Conn interface {
	ID() string
	RemoteAddr() string
	// Receive blocks until one complete message is available.
	Receive(ctx context.Context) (Message, error)
	// Send writes one message. Implementations bound the write with a timeout.
	Send(msg Message) error
	Close() error
}
