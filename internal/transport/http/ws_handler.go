package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirerelay/internal/config"
	"github.com/vovakirdan/wirerelay/internal/core"
	"github.com/vovakirdan/wirerelay/internal/proto"
	"github.com/vovakirdan/wirerelay/internal/transport"
	"github.com/vovakirdan/wirerelay/internal/utils"
)

var errRateLimited = errors.New("inbound rate limit exceeded")

// WSHandler upgrades HTTP connections and hands them to the relay as core.Conn.
type WSHandler struct {
	relay        Relay
	writeTimeout time.Duration
	readLimit    int64
	rateLimit    int
	log          *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(relay Relay, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	maxPayload := cfg.MaxPayloadBytes
	if maxPayload <= 0 {
		maxPayload = proto.DefaultMaxPayload
	}
	return &WSHandler{
		relay:        relay,
		writeTimeout: cfg.WriteTimeout,
		// base64 payload plus the envelope fields
		readLimit: int64(maxPayload/3*4 + 512),
		rateLimit: cfg.WSRateLimit,
		log:       logger,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	ws.SetReadLimit(h.readLimit)

	conn := &wsConn{
		id:           utils.NewID(),
		ws:           ws,
		remote:       r.RemoteAddr,
		writeTimeout: h.writeTimeout,
		limiter:      newRateLimiter(h.rateLimit),
	}
	defer conn.Close()

	err = h.relay.ServeConn(r.Context(), conn)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) && websocket.CloseStatus(err) == -1 {
		h.log.Debug().Err(err).Str("conn_id", conn.id).Msg("ws reader stopped")
	}
}

// wsConn carries relay messages as JSON envelopes, one per WebSocket message.
type wsConn struct {
	id           string
	ws           *websocket.Conn
	remote       string
	writeTimeout time.Duration
	limiter      *rateLimiter

	closeOnce sync.Once
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) RemoteAddr() string { return c.remote }

func (c *wsConn) Receive(ctx context.Context) (core.Message, error) {
	var env proto.Envelope
	if err := wsjson.Read(ctx, c.ws, &env); err != nil {
		return core.Message{}, err
	}
	if !c.limiter.allow() {
		return core.Message{}, errRateLimited
	}
	return transport.FrameToMessage(proto.FromEnvelope(env)), nil
}

func (c *wsConn) Send(msg core.Message) error {
	ctx := context.Background()
	if c.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.writeTimeout)
		defer cancel()
	}
	return wsjson.Write(ctx, c.ws, proto.ToEnvelope(transport.MessageToFrame(msg)))
}

// Close drops the connection without waiting for the close handshake so the hub
// goroutine never blocks on a slow peer.
func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.ws.CloseNow()
	})
	return err
}

var _ core.Conn = (*wsConn)(nil)
