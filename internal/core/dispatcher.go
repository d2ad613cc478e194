package core

// Dispatcher applies Join, Data and Leave to a registry.
// It holds no state of its own and never blocks beyond Conn.Send.
type Dispatcher struct {
	registry *Registry
}

// NewDispatcher builds a dispatcher over reg.
func NewDispatcher(reg *Registry) *Dispatcher {
	return &Dispatcher{registry: reg}
}

// Join binds msg.Origin to conn. Any earlier binding of conn is dropped first, so
// a failed Join leaves conn unbound.
func (d *Dispatcher) Join(msg Message, conn Conn) error {
	if prev, ok := d.registry.IdentityOf(conn); ok {
		if prev == msg.Origin {
			return nil
		}
		d.registry.Release(conn)
	}
	return d.registry.Register(msg.Origin, conn)
}

// Data routes msg from a registered sender to one reader or, for the Broadcast
// destination, to every registered reader. from must be the connection bound to
// msg.Origin. Broadcast stops at the first failed send and reports it as a
// *DeliveryError.
func (d *Dispatcher) Data(msg Message, from Conn) error {
	if !d.registry.IsRegisteredSender(msg.Origin) || !d.holds(from, msg.Origin) {
		return ErrUnauthorized
	}

	switch {
	case msg.Destination == Broadcast:
		for _, conn := range d.registry.Readers() {
			if err := conn.Send(msg); err != nil {
				return &DeliveryError{Conn: conn, Err: err}
			}
		}
		return nil
	case addressable(msg.Destination):
		conn, ok := d.registry.LookupReader(msg.Destination)
		if !ok {
			return ErrUnknownDestination
		}
		if err := conn.Send(msg); err != nil {
			return &DeliveryError{Conn: conn, Err: err}
		}
		return nil
	default:
		return ErrInvalidDestination
	}
}

// Leave clears the binding of msg.Origin and returns the connection that held it.
// Only the holder may leave; another connection gets ErrUnauthorized and nothing
// changes.
func (d *Dispatcher) Leave(msg Message, from Conn) (Conn, error) {
	if !d.holds(from, msg.Origin) {
		if d.bound(msg.Origin) {
			return nil, ErrUnauthorized
		}
		return nil, ErrNotFound
	}
	return d.registry.Unregister(msg.Origin)
}

func (d *Dispatcher) holds(conn Conn, id Identity) bool {
	held, ok := d.registry.IdentityOf(conn)
	return ok && held == id
}

func (d *Dispatcher) bound(id Identity) bool {
	switch Classify(id) {
	case RoleReader:
		_, ok := d.registry.LookupReader(id)
		return ok
	case RoleSender:
		return d.registry.IsRegisteredSender(id)
	default:
		return false
	}
}
