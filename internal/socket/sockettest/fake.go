// Package sockettest provides a controllable in-memory Transport for tests.
package sockettest

import (
	"sync"
	"time"

	"github.com/ManDuong25/facebook-sub000/internal/socket"
)

// Frame is one recorded outbound send.
type Frame struct {
	// Destination is the application destination the payload was sent to.
	Destination string
	// Payload is the payload as passed to Send/SendWithAck.
	Payload any
}

// FakeTransport implements socket.Transport with test controls.
//
// By default Dial succeeds and reports connected synchronously; set
// ConnectOnDial to false to drive the handshake manually with FireConnect.
type FakeTransport struct {
	// DialErr, when set, makes Dial fail synchronously.
	DialErr error
	// ConnectOnDial makes Dial invoke onConnect before returning.
	ConnectOnDial bool
	// AckErr, when set, is returned by SendWithAck.
	AckErr error

	mu           sync.Mutex
	dials        int
	closes       int
	onConnect    func()
	onDisconnect func(reason string)
	onError      func(err error)
	handlers     map[string]socket.Handler
	subscribed   []string
	unsubscribed []string
	sent         []Frame
}

// New creates a FakeTransport that connects synchronously on Dial.
func New() *FakeTransport {
	return &FakeTransport{
		ConnectOnDial: true,
		handlers:      make(map[string]socket.Handler),
	}
}

// Dial implements socket.Transport.
func (t *FakeTransport) Dial(onConnect func(), onDisconnect func(reason string), onError func(err error)) error {
	t.mu.Lock()
	t.dials++
	if t.DialErr != nil {
		err := t.DialErr
		t.mu.Unlock()
		return err
	}
	t.onConnect = onConnect
	t.onDisconnect = onDisconnect
	t.onError = onError
	connect := t.ConnectOnDial
	t.mu.Unlock()

	if connect {
		onConnect()
	}
	return nil
}

// Close implements socket.Transport.
func (t *FakeTransport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closes++
	t.handlers = make(map[string]socket.Handler)
}

// Subscribe implements socket.Transport.
func (t *FakeTransport) Subscribe(topic string, h socket.Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[topic] = h
	t.subscribed = append(t.subscribed, topic)
	return nil
}

// Unsubscribe implements socket.Transport.
func (t *FakeTransport) Unsubscribe(topic string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.handlers, topic)
	t.unsubscribed = append(t.unsubscribed, topic)
	return nil
}

// Send implements socket.Transport.
func (t *FakeTransport) Send(destination string, payload any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, Frame{Destination: destination, Payload: payload})
	return nil
}

// SendWithAck implements socket.Transport.
func (t *FakeTransport) SendWithAck(destination string, payload any, timeout time.Duration) error {
	t.mu.Lock()
	t.sent = append(t.sent, Frame{Destination: destination, Payload: payload})
	err := t.AckErr
	t.mu.Unlock()
	return err
}

// FireConnect reports the handshake as complete.
func (t *FakeTransport) FireConnect() {
	t.mu.Lock()
	fn := t.onConnect
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// FireDisconnect reports a connection drop.
func (t *FakeTransport) FireDisconnect(reason string) {
	t.mu.Lock()
	fn := t.onDisconnect
	t.mu.Unlock()
	if fn != nil {
		fn(reason)
	}
}

// FireError reports a transport-level error.
func (t *FakeTransport) FireError(err error) {
	t.mu.Lock()
	fn := t.onError
	t.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

// Deliver invokes the handler subscribed to topic with payload. It reports
// whether a handler was registered.
func (t *FakeTransport) Deliver(topic string, payload []byte) bool {
	t.mu.Lock()
	h, ok := t.handlers[topic]
	t.mu.Unlock()
	if !ok {
		return false
	}
	h(payload)
	return true
}

// Dials returns how many times Dial was called.
func (t *FakeTransport) Dials() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dials
}

// Closes returns how many times Close was called.
func (t *FakeTransport) Closes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closes
}

// HasHandler reports whether topic currently has a registered handler.
func (t *FakeTransport) HasHandler(topic string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.handlers[topic]
	return ok
}

// Subscribed returns the topics subscribed so far, in order.
func (t *FakeTransport) Subscribed() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.subscribed...)
}

// Unsubscribed returns the topics unsubscribed so far, in order.
func (t *FakeTransport) Unsubscribed() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.unsubscribed...)
}

// Sent returns the frames sent so far, in order.
func (t *FakeTransport) Sent() []Frame {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Frame(nil), t.sent...)
}
