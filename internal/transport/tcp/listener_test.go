package tcp

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirerelay/internal/core"
)

type relay struct {
	hub  *core.Hub
	addr string
	done chan error
}

func startRelay(t *testing.T, opts Options) *relay {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())

	hub := core.NewHub(nil, nil)
	go hub.Run(ctx)

	ln, err := Listen(ctx, "127.0.0.1:0", opts, nil)
	require.NoError(t, err)

	r := &relay{hub: hub, addr: ln.Addr().String(), done: make(chan error, 1)}
	go func() { r.done <- ln.Serve(ctx, hub) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-r.done:
			assert.NoError(t, err)
		case <-time.After(3 * time.Second):
			t.Error("listener did not stop")
		}
	})
	return r
}

func (r *relay) dial(t *testing.T) *Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := Dial(ctx, r.addr, Options{WriteTimeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func (r *relay) waitStats(t *testing.T, cond func(core.Stats) bool) core.Stats {
	t.Helper()

	var last core.Stats
	require.Eventually(t, func() bool {
		s, err := r.hub.Stats(context.Background())
		if err != nil {
			return false
		}
		last = s
		return cond(s)
	}, 2*time.Second, 10*time.Millisecond)
	return last
}

type received struct {
	msg core.Message
	err error
}

func receiveAsync(c *Conn) <-chan received {
	ch := make(chan received, 1)
	go func() {
		msg, err := c.Receive(context.Background())
		ch <- received{msg: msg, err: err}
	}()
	return ch
}

func send(t *testing.T, c *Conn, msg core.Message) {
	t.Helper()
	require.NoError(t, c.Send(msg))
}

func TestRelayUnicastOverTCP(t *testing.T) {
	r := startRelay(t, Options{WriteTimeout: time.Second, Linger: time.Second})

	sender, r42, r43 := r.dial(t), r.dial(t), r.dial(t)
	send(t, sender, core.Message{Type: core.TypeJoin, Origin: 1500})
	send(t, r42, core.Message{Type: core.TypeJoin, Origin: 42})
	send(t, r43, core.Message{Type: core.TypeJoin, Origin: 43})
	r.waitStats(t, func(s core.Stats) bool { return s.Readers == 2 && s.Senders == 1 })

	got42, got43 := receiveAsync(r42), receiveAsync(r43)
	send(t, sender, core.Message{Type: core.TypeData, Origin: 1500, Destination: 42, Payload: []byte("hi")})

	select {
	case rcv := <-got42:
		require.NoError(t, rcv.err)
		assert.Equal(t, core.Message{Type: core.TypeData, Origin: 1500, Destination: 42, Payload: []byte("hi")}, rcv.msg)
	case <-time.After(2 * time.Second):
		t.Fatal("reader 42 received nothing")
	}

	select {
	case rcv := <-got43:
		t.Fatalf("reader 43 must not receive anything, got %+v", rcv)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestRelayBroadcastOverTCP(t *testing.T) {
	r := startRelay(t, Options{WriteTimeout: time.Second})

	sender, r42, r43 := r.dial(t), r.dial(t), r.dial(t)
	send(t, r42, core.Message{Type: core.TypeJoin, Origin: 42})
	send(t, r43, core.Message{Type: core.TypeJoin, Origin: 43})
	send(t, sender, core.Message{Type: core.TypeJoin, Origin: 1500})
	r.waitStats(t, func(s core.Stats) bool { return s.Readers == 2 && s.Senders == 1 })

	got42, got43, gotSender := receiveAsync(r42), receiveAsync(r43), receiveAsync(sender)
	send(t, sender, core.Message{Type: core.TypeData, Origin: 1500, Destination: core.Broadcast, Payload: []byte("all")})

	for _, ch := range []<-chan received{got42, got43} {
		select {
		case rcv := <-ch:
			require.NoError(t, rcv.err)
			assert.Equal(t, "all", string(rcv.msg.Payload))
		case <-time.After(2 * time.Second):
			t.Fatal("reader missed the broadcast")
		}
	}

	select {
	case rcv := <-gotSender:
		t.Fatalf("sender received its own broadcast: %+v", rcv)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestRelayClosesConnectionOnUnknownType(t *testing.T) {
	r := startRelay(t, Options{})

	bad, good := r.dial(t), r.dial(t)
	send(t, good, core.Message{Type: core.TypeJoin, Origin: 42})
	r.waitStats(t, func(s core.Stats) bool { return s.Watched == 2 && s.Readers == 1 })

	closed := receiveAsync(bad)
	send(t, bad, core.Message{Type: core.MessageType(9), Origin: 43})

	select {
	case rcv := <-closed:
		assert.Error(t, rcv.err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not close the connection")
	}
	s := r.waitStats(t, func(s core.Stats) bool { return s.Watched == 1 })
	assert.Equal(t, 1, s.Readers)
}

func TestRelayDropsOversizedFrame(t *testing.T) {
	r := startRelay(t, Options{MaxPayload: 8})

	c := r.dial(t)
	r.waitStats(t, func(s core.Stats) bool { return s.Watched == 1 })

	// Header declaring a payload larger than the server accepts.
	hdr := make([]byte, 13)
	binary.BigEndian.PutUint32(hdr[0:4], 1024)
	hdr[4] = 2
	_, err := c.nc.Write(hdr)
	require.NoError(t, err)

	r.waitStats(t, func(s core.Stats) bool { return s.Watched == 0 })
}

func TestRelayClientDisconnectReleasesSlot(t *testing.T) {
	r := startRelay(t, Options{})

	c := r.dial(t)
	send(t, c, core.Message{Type: core.TypeJoin, Origin: core.SenderMax})
	r.waitStats(t, func(s core.Stats) bool { return s.Senders == 1 })

	require.NoError(t, c.Close())
	s := r.waitStats(t, func(s core.Stats) bool { return s.Watched == 0 })
	assert.Zero(t, s.Senders)
}

func TestServeAcceptFailureClosesConnections(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := core.NewHub(nil, nil)
	go hub.Run(ctx)

	ln, err := Listen(ctx, "127.0.0.1:0", Options{}, nil)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- ln.Serve(ctx, hub) }()

	r := &relay{hub: hub, addr: ln.Addr().String()}
	c := r.dial(t)
	r.waitStats(t, func(s core.Stats) bool { return s.Watched == 1 })

	closed := receiveAsync(c)
	// Closing the socket under a live context makes Accept fail.
	require.NoError(t, ln.Close())

	select {
	case err := <-done:
		assert.ErrorContains(t, err, "accept")
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after accept failed")
	}

	select {
	case rcv := <-closed:
		assert.Error(t, rcv.err)
	case <-time.After(2 * time.Second):
		t.Fatal("accepted connection was left open")
	}
}
