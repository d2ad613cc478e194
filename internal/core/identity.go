package core

import "strconv"

// Identity is the numeric id a client registers with. Its range decides the role.
type Identity int32

// Identity ranges and the broadcast destination.
const (
	ReaderMin Identity = 1
	ReaderMax Identity = 999
	SenderMin Identity = 1000
	SenderMax Identity = 1998

	// Broadcast as a Data destination addresses every registered reader.
	Broadcast Identity = 0
)

func (id Identity) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Role is what an identity is allowed to do.
type Role int

const (
	// RoleInvalid marks identities outside both ranges.
	RoleInvalid Role = iota
	// RoleReader receives Data messages.
	RoleReader
	// RoleSender originates Data messages.
	RoleSender
)

func (r Role) String() string {
	switch r {
	case RoleReader:
		return "reader"
	case RoleSender:
		return "sender"
	default:
		return "invalid"
	}
}

// Classify maps an identity to its role.
func Classify(id Identity) Role {
	switch {
	case id >= ReaderMin && id <= ReaderMax:
		return RoleReader
	case id >= SenderMin && id <= SenderMax:
		return RoleSender
	default:
		return RoleInvalid
	}
}

// addressable reports whether id may appear as a unicast Data destination.
func addressable(id Identity) bool {
	return id >= ReaderMin && id <= SenderMax
}
