package core

import (
	"errors"
	"fmt"
)

// Error codes for protocol errors.
const (
	ErrCodeInvalidIdentity    = "invalid_identity"
	ErrCodeFull               = "registry_full"
	ErrCodeIdentityTaken      = "identity_taken"
	ErrCodeUnauthorized       = "unauthorized"
	ErrCodeUnknownDestination = "unknown_destination"
	ErrCodeInvalidDestination = "invalid_destination"
	ErrCodeNotFound           = "not_found"
	ErrCodeUnknownType        = "unknown_type"
	ErrCodeDelivery           = "delivery_failed"
	ErrCodeTransport          = "transport"
	ErrCodeInternal           = "internal"
)

var (
	ErrInvalidIdentity    = coreError(ErrCodeInvalidIdentity, "identity outside reader and sender ranges")
	ErrFull               = coreError(ErrCodeFull, "no free slot in pool")
	ErrIdentityTaken      = coreError(ErrCodeIdentityTaken, "identity already registered")
	ErrUnauthorized       = coreError(ErrCodeUnauthorized, "origin is not a registered sender")
	ErrUnknownDestination = coreError(ErrCodeUnknownDestination, "destination reader not registered")
	ErrInvalidDestination = coreError(ErrCodeInvalidDestination, "destination out of range")
	ErrNotFound           = coreError(ErrCodeNotFound, "identity not registered")
	ErrUnknownType        = coreError(ErrCodeUnknownType, "unrecognized message type")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// DeliveryError reports a failed send to one connection during Data dispatch.
// The loop drops Conn; the rest of a broadcast is not attempted.
type DeliveryError struct {
	Conn Conn
	Err  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to %s: %v", e.Conn.ID(), e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// CodeOf returns the stable code for err, or ErrCodeInternal.
func CodeOf(err error) string {
	var de *DeliveryError
	if errors.As(err, &de) {
		return ErrCodeDelivery
	}
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrCodeInternal
}
