package core

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"
)

var errSendFailed = errors.New("send failed")

// fakeConn is an in-memory Conn. Tests push inbound messages with deliver and
// inspect what the hub sent with sent.
type fakeConn struct {
	id string

	in     chan Message
	fail   chan error
	closed chan struct{}
	once   sync.Once

	mu      sync.Mutex
	out     []Message
	sendErr error
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{
		id:     id,
		in:     make(chan Message, 16),
		fail:   make(chan error, 1),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ID() string         { return c.id }
func (c *fakeConn) RemoteAddr() string { return "fake:" + c.id }

func (c *fakeConn) Receive(ctx context.Context) (Message, error) {
	select {
	case msg := <-c.in:
		return msg, nil
	case err := <-c.fail:
		return Message{}, err
	case <-c.closed:
		return Message{}, io.EOF
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

func (c *fakeConn) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.out = append(c.out, msg)
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) deliver(msg Message) { c.in <- msg }

func (c *fakeConn) failWith(err error) { c.fail <- err }

func (c *fakeConn) failSends(err error) {
	c.mu.Lock()
	c.sendErr = err
	c.mu.Unlock()
}

func (c *fakeConn) sent() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.out...)
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func waitStats(t *testing.T, hub *Hub, what string, cond func(Stats) bool) Stats {
	t.Helper()

	var last Stats
	waitFor(t, what, func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s, err := hub.Stats(ctx)
		if err != nil {
			return false
		}
		last = s
		return cond(s)
	})
	return last
}

func joinMsg(id Identity) Message  { return Message{Type: TypeJoin, Origin: id} }
func leaveMsg(id Identity) Message { return Message{Type: TypeLeave, Origin: id} }

func dataMsg(from, to Identity, payload string) Message {
	return Message{Type: TypeData, Origin: from, Destination: to, Payload: []byte(payload)}
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Publish(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *recordingSink) kinds() []EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]EventKind, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.Kind)
	}
	return out
}

func (s *recordingSink) has(kind EventKind, code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range s.events {
		if ev.Kind == kind && ev.Code == code {
			return true
		}
	}
	return false
}
