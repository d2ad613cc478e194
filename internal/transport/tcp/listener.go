package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirerelay/internal/core"
)

// ConnServer takes ownership of an accepted connection. *core.Hub implements it.
type ConnServer interface {
	ServeConn(ctx context.Context, conn core.Conn) error
}

// Listener accepts relay clients on a TCP socket.
type Listener struct {
	ln   net.Listener
	opts Options
	log  *zerolog.Logger
	wg   sync.WaitGroup
}

// Listen binds addr. Failures here are startup errors.
func Listen(ctx context.Context, addr string, opts Options, logger *zerolog.Logger) (*Listener, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	logger.Info().Str("addr", ln.Addr().String()).Msg("listening")
	return &Listener{ln: ln, opts: opts, log: logger}, nil
}

// Addr is the bound address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Serve accepts connections and hands each to srv on its own goroutine until ctx
// is cancelled. An accept failure while ctx is live is returned after the
// listener and every accepted connection are closed: the listening socket is the
// one resource whose failure stops the server.
func (l *Listener) Serve(ctx context.Context, srv ConnServer) error {
	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := context.AfterFunc(ctx, func() { _ = l.ln.Close() })
	defer stop()

	for {
		nc, err := l.ln.Accept()
		if err != nil {
			if parent.Err() != nil {
				l.wg.Wait()
				return nil
			}
			l.log.Error().Err(err).Msg("failed to accept a connection")
			cancel()
			l.wg.Wait()
			return fmt.Errorf("accept: %w", err)
		}

		conn, err := newConn(nc, l.opts)
		if err != nil {
			l.log.Warn().Err(err).Str("remote", nc.RemoteAddr().String()).Msg("failed to configure connection")
		}

		l.wg.Add(1)
		go l.serveConn(ctx, srv, conn)
	}
}

func (l *Listener) serveConn(ctx context.Context, srv ConnServer, conn *Conn) {
	defer l.wg.Done()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	err := srv.ServeConn(ctx, conn)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) && ctx.Err() == nil {
		l.log.Debug().Err(err).Str("conn_id", conn.ID()).Msg("connection reader stopped")
	}
}

// Close stops accepting. Serve returns once ctx is cancelled or accept fails.
func (l *Listener) Close() error {
	return l.ln.Close()
}
