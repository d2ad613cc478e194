package core

import (
	"errors"
	"reflect"
	"testing"
)

func TestRegistryJoinLeaveRoundTrip(t *testing.T) {
	reg := NewRegistry()
	anchor := newFakeConn("anchor")
	if err := reg.Register(7, anchor); err != nil {
		t.Fatalf("register anchor: %v", err)
	}
	before := reg.Snapshot()

	conn := newFakeConn("c")
	for id := ReaderMin; id <= SenderMax; id++ {
		if id == 7 {
			continue
		}
		if err := reg.Register(id, conn); err != nil {
			t.Fatalf("register %d: %v", id, err)
		}
		held, err := reg.Unregister(id)
		if err != nil {
			t.Fatalf("unregister %d: %v", id, err)
		}
		if held != conn {
			t.Fatalf("unregister %d returned wrong conn", id)
		}
		if after := reg.Snapshot(); !reflect.DeepEqual(before, after) {
			t.Fatalf("state changed after round trip of %d: %+v", id, after)
		}
	}
}

func TestRegistryFullPool(t *testing.T) {
	for _, base := range []Identity{1, 1000} {
		reg := NewRegistry()
		for i := Identity(0); i < PoolCapacity; i++ {
			if err := reg.Register(base+i, newFakeConn("c")); err != nil {
				t.Fatalf("register %d: %v", base+i, err)
			}
		}
		before := reg.Snapshot()

		if err := reg.Register(base+PoolCapacity, newFakeConn("extra")); !errors.Is(err, ErrFull) {
			t.Fatalf("expected ErrFull for %d, got %v", base+PoolCapacity, err)
		}
		if !reflect.DeepEqual(before, reg.Snapshot()) {
			t.Fatal("failed register changed bindings")
		}
	}
}

func TestRegistryPoolsAreIndependent(t *testing.T) {
	reg := NewRegistry()
	for i := Identity(1); i <= PoolCapacity; i++ {
		if err := reg.Register(i, newFakeConn("r")); err != nil {
			t.Fatalf("register reader %d: %v", i, err)
		}
	}
	if err := reg.Register(1500, newFakeConn("s")); err != nil {
		t.Fatalf("sender pool should be unaffected by a full reader pool: %v", err)
	}
	if reg.Count(RoleReader) != PoolCapacity || reg.Count(RoleSender) != 1 {
		t.Fatalf("unexpected counts: readers=%d senders=%d", reg.Count(RoleReader), reg.Count(RoleSender))
	}
}

func TestRegistryRejectsInvalidIdentity(t *testing.T) {
	reg := NewRegistry()
	for _, id := range []Identity{-5, 0, 1999, 2000} {
		if err := reg.Register(id, newFakeConn("c")); !errors.Is(err, ErrInvalidIdentity) {
			t.Fatalf("register %d: expected ErrInvalidIdentity, got %v", id, err)
		}
	}
	if len(reg.Snapshot()) != 0 {
		t.Fatal("invalid registrations consumed a slot")
	}
}

func TestRegistryRejectsDuplicateIdentity(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(42, newFakeConn("a")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register(42, newFakeConn("b")); !errors.Is(err, ErrIdentityTaken) {
		t.Fatalf("expected ErrIdentityTaken, got %v", err)
	}
	if reg.Count(RoleReader) != 1 {
		t.Fatalf("expected one reader, got %d", reg.Count(RoleReader))
	}
}

func TestRegistryUnregisterNotFound(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Unregister(42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := reg.Unregister(2000); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for invalid identity, got %v", err)
	}
}

func TestRegistryFirstFreeSlotIsReused(t *testing.T) {
	reg := NewRegistry()
	a, b, c := newFakeConn("a"), newFakeConn("b"), newFakeConn("c")
	_ = reg.Register(1, a)
	_ = reg.Register(2, b)
	if _, err := reg.Unregister(1); err != nil {
		t.Fatalf("unregister: %v", err)
	}
	if err := reg.Register(3, c); err != nil {
		t.Fatalf("register: %v", err)
	}

	got := reg.Readers()
	if len(got) != 2 || got[0] != c || got[1] != b {
		t.Fatalf("expected [c b] in slot order, got %v", got)
	}
	snap := reg.Snapshot()
	if snap[0].Slot != 0 || snap[0].Identity != 3 {
		t.Fatalf("identity 3 should occupy slot 0: %+v", snap)
	}
}

func TestRegistryLookups(t *testing.T) {
	reg := NewRegistry()
	reader, sender := newFakeConn("r"), newFakeConn("s")
	_ = reg.Register(42, reader)
	_ = reg.Register(1500, sender)

	if conn, ok := reg.LookupReader(42); !ok || conn != reader {
		t.Fatal("reader 42 not found")
	}
	if _, ok := reg.LookupReader(1500); ok {
		t.Fatal("senders must not resolve as readers")
	}
	if !reg.IsRegisteredSender(1500) {
		t.Fatal("sender 1500 not found")
	}
	if reg.IsRegisteredSender(42) {
		t.Fatal("readers must not count as senders")
	}
	if id, ok := reg.IdentityOf(sender); !ok || id != 1500 {
		t.Fatalf("IdentityOf(sender) = %d, %v", id, ok)
	}
}

func TestRegistryRelease(t *testing.T) {
	reg := NewRegistry()
	conn := newFakeConn("c")
	_ = reg.Register(1200, conn)

	id, ok := reg.Release(conn)
	if !ok || id != 1200 {
		t.Fatalf("Release = %d, %v", id, ok)
	}
	if reg.IsRegisteredSender(1200) {
		t.Fatal("released identity still registered")
	}
	if _, ok := reg.Release(conn); ok {
		t.Fatal("second release should find nothing")
	}
}
