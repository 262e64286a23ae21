package live

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyConnected is returned by Connect when the session is
	// already connecting or open.
	ErrAlreadyConnected = errors.New("live: already connected")

	// ErrNotConnected is returned by send operations when the session
	// has never been opened or is already closed.
	ErrNotConnected = errors.New("live: not connected")

	// ErrSessionClosed is returned by Connect when Disconnect aborts an
	// in-flight handshake.
	ErrSessionClosed = errors.New("live: session closed")
)

// ErrorKind classifies connection failures.
type ErrorKind string

const (
	KindNetwork   ErrorKind = "network"
	KindAuth      ErrorKind = "auth"
	KindHandshake ErrorKind = "handshake"
	KindTimeout   ErrorKind = "timeout"
)

// ConnectError reports why establishing a session failed.
type ConnectError struct {
	// Kind is the failure class.
	Kind ErrorKind

	// HTTPStatus is the handshake HTTP status, when the server answered
	// with one.
	HTTPStatus int

	// Err is the underlying cause.
	Err error
}

func (e *ConnectError) Error() string {
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("live: connect failed (%s, status %d): %v", e.Kind, e.HTTPStatus, e.Err)
	}
	return fmt.Sprintf("live: connect failed (%s): %v", e.Kind, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

func connectError(kind ErrorKind, err error) *ConnectError {
	return &ConnectError{Kind: kind, Err: err}
}
