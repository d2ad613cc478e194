package tcp

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/vovakirdan/wirerelay/internal/core"
	"github.com/vovakirdan/wirerelay/internal/proto"
	"github.com/vovakirdan/wirerelay/internal/transport"
	"github.com/vovakirdan/wirerelay/internal/utils"
)

// Options configures accepted and dialed connections.
type Options struct {
	// Linger is applied with SO_LINGER; zero keeps the OS default.
	Linger time.Duration
	// WriteTimeout bounds each Send; zero means no deadline.
	WriteTimeout time.Duration
	// MaxPayload bounds inbound and outbound frames.
	MaxPayload int
}

// Conn is a framed relay connection over TCP. It implements core.Conn.
type Conn struct {
	id           string
	nc           net.Conn
	r            *bufio.Reader
	codec        proto.Codec
	writeTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

func newConn(nc net.Conn, opts Options) (*Conn, error) {
	c := &Conn{
		id:           utils.NewID(),
		nc:           nc,
		r:            bufio.NewReader(nc),
		codec:        proto.Codec{MaxPayload: opts.MaxPayload},
		writeTimeout: opts.WriteTimeout,
	}

	if tc, ok := nc.(*net.TCPConn); ok && opts.Linger > 0 {
		if err := tc.SetLinger(int(opts.Linger / time.Second)); err != nil {
			return c, fmt.Errorf("set linger: %w", err)
		}
	}
	return c, nil
}

// Dial connects to a relay server.
func Dial(ctx context.Context, addr string, opts Options) (*Conn, error) {
	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	c, err := newConn(nc, opts)
	if err != nil {
		_ = nc.Close()
		return nil, err
	}
	return c, nil
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) RemoteAddr() string { return c.nc.RemoteAddr().String() }

// Receive reads one frame. The read is not interrupted by ctx; closing the
// connection is what unblocks it.
func (c *Conn) Receive(_ context.Context) (core.Message, error) {
	f, err := c.codec.Decode(c.r)
	if err != nil {
		return core.Message{}, err
	}
	return transport.FrameToMessage(f), nil
}

// Send writes one frame within the write timeout.
func (c *Conn) Send(msg core.Message) error {
	if c.writeTimeout > 0 {
		if err := c.nc.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	return c.codec.Encode(c.nc, transport.MessageToFrame(msg))
}

// Close closes the socket once; later calls return the first result.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.nc.Close()
	})
	return c.closeErr
}

var _ core.Conn = (*Conn)(nil)
