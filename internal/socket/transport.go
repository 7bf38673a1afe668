// Package socket owns the single connection to the messaging server.
//
// Manager tracks connection state and exposes an idempotent Connect;
// Transport abstracts the underlying Socket.IO connection so the rest of the
// core (and tests) never touch the wire library directly.
package socket

import (
	"errors"
	"time"
)

// ErrNotConnected is returned when an operation requires an established
// connection and none exists.
var ErrNotConnected = errors.New("not connected")

// ErrConnectionFailed is returned when the transport could not be
// established or dropped during establishment.
var ErrConnectionFailed = errors.New("connection failed")

// ErrAckTimeout is returned when the server did not acknowledge a send in
// time.
var ErrAckTimeout = errors.New("ack timeout")

// State is the connection lifecycle state.
type State int

const (
	// Disconnected means no connection exists and none is being established.
	Disconnected State = iota
	// Connecting means a connection attempt is in flight.
	Connecting
	// Connected means the connection is established and usable.
	Connected
	// Errored means the last connection attempt or connection failed.
	Errored
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// Handler receives the raw JSON payload of a frame delivered on a topic.
//
// Handlers are invoked in the order frames arrive on the transport for that
// topic; the core performs no reordering.
type Handler func(payload []byte)

// Transport is the underlying bidirectional connection.
//
// Implementations must deliver lifecycle callbacks from a single goroutine at
// a time and must not call them after Close returns.
type Transport interface {
	// Dial establishes the connection. Lifecycle changes are reported through
	// the callbacks: onConnect once the session is usable, onDisconnect when
	// it drops, onError for transport-level failures. Dial itself only fails
	// on immediate, local errors (bad URL, handshake refused synchronously).
	Dial(onConnect func(), onDisconnect func(reason string), onError func(err error)) error

	// Close tears down the connection. Safe to call multiple times.
	Close()

	// Subscribe starts delivering frames for topic to h.
	Subscribe(topic string, h Handler) error

	// Unsubscribe stops delivery for topic.
	Unsubscribe(topic string) error

	// Send dispatches a payload to an application destination without
	// waiting for acknowledgement.
	Send(destination string, payload any) error

	// SendWithAck dispatches a payload and waits for the server's
	// acknowledgement, or ErrAckTimeout.
	SendWithAck(destination string, payload any, timeout time.Duration) error
}
