package core

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Hub is the relay event loop. Its Run goroutine is the only owner of the
// registry and the watched connection set; transports feed it through ServeConn.
type Hub struct {
	registry   *Registry
	dispatcher *Dispatcher
	watched    map[Conn]struct{}

	inbound chan inbound
	stats   chan chan Stats
	done    chan struct{}

	sink EventSink
	log  *zerolog.Logger
	now  func() time.Time
}

// inbound is either a new connection (attach) or the result of one Receive.
type inbound struct {
	conn   Conn
	attach bool
	msg    Message
	err    error
}

// Stats is a point-in-time view of the hub state.
type Stats struct {
	Watched  int       `json:"watched"`
	Readers  int       `json:"readers"`
	Senders  int       `json:"senders"`
	Bindings []Binding `json:"bindings"`
}

// ErrHubStopped is returned to transports once Run has returned.
var ErrHubStopped = errors.New("hub stopped")

// NewHub creates a hub with an empty registry. A nil logger or sink disables that output.
func NewHub(logger *zerolog.Logger, sink EventSink) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if sink == nil {
		sink = nopSink{}
	}
	reg := NewRegistry()
	return &Hub{
		registry:   reg,
		dispatcher: NewDispatcher(reg),
		watched:    make(map[Conn]struct{}),
		inbound:    make(chan inbound, 64),
		stats:      make(chan chan Stats),
		done:       make(chan struct{}),
		sink:       sink,
		log:        logger,
		now:        time.Now,
	}
}

// Run processes connection events until ctx is cancelled, then closes every
// watched connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case in := <-h.inbound:
			h.handle(in)
		case reply := <-h.stats:
			reply <- h.snapshot()
		}
	}
}

// ServeConn watches conn and feeds its messages to the hub until receiving fails
// or the hub stops. It blocks; transports call it from the connection goroutine.
func (h *Hub) ServeConn(ctx context.Context, conn Conn) error {
	if err := h.push(ctx, inbound{conn: conn, attach: true}); err != nil {
		_ = conn.Close()
		return err
	}

	for {
		msg, err := conn.Receive(ctx)
		if pushErr := h.push(ctx, inbound{conn: conn, msg: msg, err: err}); pushErr != nil {
			return pushErr
		}
		if err != nil {
			return err
		}
	}
}

// Stats asks the hub goroutine for a snapshot.
func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	select {
	case h.stats <- reply:
	case <-h.done:
		return Stats{}, ErrHubStopped
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}

func (h *Hub) push(ctx context.Context, in inbound) error {
	select {
	case h.inbound <- in:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) handle(in inbound) {
	if in.attach {
		h.watched[in.conn] = struct{}{}
		h.log.Info().Str("conn_id", in.conn.ID()).Str("remote", in.conn.RemoteAddr()).Msg("connection accepted")
		h.publish(Event{Kind: EventConnected, ConnID: in.conn.ID(), Remote: in.conn.RemoteAddr()})
		return
	}

	if _, ok := h.watched[in.conn]; !ok {
		// Already dropped; the reader goroutine is just reporting the close.
		return
	}

	if in.err != nil {
		h.drop(in.conn, in.err)
		return
	}

	if !in.msg.Type.Known() {
		h.log.Warn().
			Str("conn_id", in.conn.ID()).
			Str("type", in.msg.Type.String()).
			Msg("invalid message type, closing connection")
		h.drop(in.conn, ErrUnknownType)
		return
	}

	switch in.msg.Type {
	case TypeJoin:
		h.handleJoin(in.conn, in.msg)
	case TypeData:
		h.handleData(in.conn, in.msg)
	case TypeLeave:
		h.handleLeave(in.conn, in.msg)
	}
}

func (h *Hub) handleJoin(conn Conn, msg Message) {
	if err := h.dispatcher.Join(msg, conn); err != nil {
		h.log.Warn().Err(err).
			Str("conn_id", conn.ID()).
			Stringer("identity", msg.Origin).
			Str("code", CodeOf(err)).
			Msg("join rejected")
		h.publish(Event{Kind: EventJoinRejected, ConnID: conn.ID(), Identity: msg.Origin, Code: CodeOf(err)})
		return
	}

	h.log.Info().
		Str("conn_id", conn.ID()).
		Stringer("identity", msg.Origin).
		Stringer("role", Classify(msg.Origin)).
		Msg("client joined")
	h.publish(Event{Kind: EventJoined, ConnID: conn.ID(), Identity: msg.Origin})
}

func (h *Hub) handleData(conn Conn, msg Message) {
	recipients := 1
	if msg.Destination == Broadcast {
		recipients = h.registry.Count(RoleReader)
	}

	err := h.dispatcher.Data(msg, conn)
	if err == nil {
		h.log.Debug().
			Stringer("origin", msg.Origin).
			Stringer("destination", msg.Destination).
			Int("recipients", recipients).
			Int("bytes", len(msg.Payload)).
			Msg("data relayed")
		h.publish(Event{
			Kind:        EventDelivered,
			ConnID:      conn.ID(),
			Identity:    msg.Origin,
			Destination: msg.Destination,
			Recipients:  recipients,
		})
		return
	}

	h.log.Warn().Err(err).
		Str("conn_id", conn.ID()).
		Stringer("origin", msg.Origin).
		Stringer("destination", msg.Destination).
		Str("code", CodeOf(err)).
		Msg("data rejected")
	h.publish(Event{
		Kind:        EventDataRejected,
		ConnID:      conn.ID(),
		Identity:    msg.Origin,
		Destination: msg.Destination,
		Code:        CodeOf(err),
	})

	var de *DeliveryError
	if errors.As(err, &de) {
		h.drop(de.Conn, de.Err)
	}
}

func (h *Hub) handleLeave(conn Conn, msg Message) {
	held, err := h.dispatcher.Leave(msg, conn)
	if err != nil {
		h.log.Warn().Err(err).
			Str("conn_id", conn.ID()).
			Stringer("identity", msg.Origin).
			Str("code", CodeOf(err)).
			Msg("leave rejected")
		h.publish(Event{Kind: EventLeaveRejected, ConnID: conn.ID(), Identity: msg.Origin, Code: CodeOf(err)})
		return
	}

	h.log.Info().Str("conn_id", held.ID()).Stringer("identity", msg.Origin).Msg("client left")
	h.publish(Event{Kind: EventLeft, ConnID: held.ID(), Identity: msg.Origin})
	h.close(held, EventClosed, "")
}

// drop releases conn's slot and closes it after an error.
func (h *Hub) drop(conn Conn, cause error) {
	ev := h.log.Warn()
	if errors.Is(cause, io.EOF) {
		ev = h.log.Info()
	}
	ev.Err(cause).Str("conn_id", conn.ID()).Msg("dropping connection")

	code := CodeOf(cause)
	if code == ErrCodeInternal {
		code = ErrCodeTransport
	}
	h.close(conn, EventDropped, code)
}

func (h *Hub) close(conn Conn, kind EventKind, code string) {
	id, bound := h.registry.Release(conn)
	delete(h.watched, conn)

	if err := conn.Close(); err != nil {
		h.log.Debug().Err(err).Str("conn_id", conn.ID()).Msg("close connection")
	}

	ev := Event{Kind: kind, ConnID: conn.ID(), Remote: conn.RemoteAddr(), Code: code}
	if bound {
		ev.Identity = id
	}
	h.publish(ev)
}

func (h *Hub) shutdown() {
	for conn := range h.watched {
		h.close(conn, EventClosed, "")
	}
	h.log.Info().Msg("hub stopped")
}

func (h *Hub) snapshot() Stats {
	return Stats{
		Watched:  len(h.watched),
		Readers:  h.registry.Count(RoleReader),
		Senders:  h.registry.Count(RoleSender),
		Bindings: h.registry.Snapshot(),
	}
}

func (h *Hub) publish(ev Event) {
	ev.At = h.now()
	h.sink.Publish(ev)
}
