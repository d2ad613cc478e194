package core

// PoolCapacity is the number of slots in each role pool.
const PoolCapacity = 10

type slot struct {
	identity Identity
	bound    bool
	conn     Conn
}

func (s *slot) reset() {
	*s = slot{}
}

// Registry is the fixed-capacity client table, split into a reader pool and a
// sender pool. Lookups are linear scans in slot order.
//
// Registry is not safe for concurrent use; the hub goroutine owns it.
type Registry struct {
	readers [PoolCapacity]slot
	senders [PoolCapacity]slot
}

// NewRegistry returns a registry with every slot free.
func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) pool(role Role) []slot {
	switch role {
	case RoleReader:
		return r.readers[:]
	case RoleSender:
		return r.senders[:]
	default:
		return nil
	}
}

// Register binds id to conn in the first free slot of the pool id belongs to.
// Nothing changes when it fails.
func (r *Registry) Register(id Identity, conn Conn) error {
	pool := r.pool(Classify(id))
	if pool == nil {
		return ErrInvalidIdentity
	}

	free := -1
	for i := range pool {
		if !pool[i].bound {
			if free < 0 {
				free = i
			}
			continue
		}
		if pool[i].identity == id {
			return ErrIdentityTaken
		}
	}
	if free < 0 {
		return ErrFull
	}

	pool[free] = slot{identity: id, bound: true, conn: conn}
	return nil
}

// Unregister clears the slot bound to id and returns the connection it held.
func (r *Registry) Unregister(id Identity) (Conn, error) {
	pool := r.pool(Classify(id))
	for i := range pool {
		if pool[i].bound && pool[i].identity == id {
			conn := pool[i].conn
			pool[i].reset()
			return conn, nil
		}
	}
	return nil, ErrNotFound
}

// LookupReader returns the connection bound to reader id.
func (r *Registry) LookupReader(id Identity) (Conn, bool) {
	for i := range r.readers {
		if r.readers[i].bound && r.readers[i].identity == id {
			return r.readers[i].conn, true
		}
	}
	return nil, false
}

// IsRegisteredSender reports whether id is bound in the sender pool.
func (r *Registry) IsRegisteredSender(id Identity) bool {
	for i := range r.senders {
		if r.senders[i].bound && r.senders[i].identity == id {
			return true
		}
	}
	return false
}

// Readers returns the connections of all bound readers in slot order.
func (r *Registry) Readers() []Conn {
	out := make([]Conn, 0, PoolCapacity)
	for i := range r.readers {
		if r.readers[i].bound {
			out = append(out, r.readers[i].conn)
		}
	}
	return out
}

// IdentityOf returns the identity conn is bound to, if any.
func (r *Registry) IdentityOf(conn Conn) (Identity, bool) {
	for _, pool := range [][]slot{r.readers[:], r.senders[:]} {
		for i := range pool {
			if pool[i].bound && pool[i].conn == conn {
				return pool[i].identity, true
			}
		}
	}
	return 0, false
}

// Release clears whatever slot conn holds. Used when a connection breaks.
func (r *Registry) Release(conn Conn) (Identity, bool) {
	for _, pool := range [][]slot{r.readers[:], r.senders[:]} {
		for i := range pool {
			if pool[i].bound && pool[i].conn == conn {
				id := pool[i].identity
				pool[i].reset()
				return id, true
			}
		}
	}
	return 0, false
}

// Count returns the number of bound slots for role.
func (r *Registry) Count(role Role) int {
	n := 0
	for _, s := range r.pool(role) {
		if s.bound {
			n++
		}
	}
	return n
}

// Binding is one bound slot as reported by Snapshot.
type Binding struct {
	Slot     int      `json:"slot"`
	Identity Identity `json:"identity"`
	Role     string   `json:"role"`
	ConnID   string   `json:"conn_id"`
}

// Snapshot lists bound slots, readers first, in slot order.
func (r *Registry) Snapshot() []Binding {
	out := make([]Binding, 0, 2*PoolCapacity)
	for _, role := range []Role{RoleReader, RoleSender} {
		for i, s := range r.pool(role) {
			if !s.bound {
				continue
			}
			out = append(out, Binding{
				Slot:     i,
				Identity: s.identity,
				Role:     role.String(),
				ConnID:   s.conn.ID(),
			})
		}
	}
	return out
}
