package store

import (
	"context"
	"time"
)

// Entry is one audited connection lifecycle event.
// Payloads of relayed messages are never stored.
type Entry struct {
	ID          int64     `json:"id"`
	Kind        string    `json:"kind"`
	ConnID      string    `json:"conn_id"`
	Remote      string    `json:"remote,omitempty"`
	Identity    int32     `json:"identity,omitempty"`
	Destination int32     `json:"destination,omitempty"`
	Recipients  int       `json:"recipients,omitempty"`
	Code        string    `json:"code,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Journal persists audit entries for operators.
type Journal interface {
	// Append stores one entry.
	Append(ctx context.Context, e Entry) error
	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}
