package socket

import (
	"context"
	"fmt"
	"sync"

	"github.com/ManDuong25/facebook-sub000/pkg/logger"
)

// Manager owns the connection lifecycle.
//
// Connect is idempotent: calling it while Connected resolves immediately, and
// calling it while an attempt is in flight joins that attempt's outcome
// instead of dialing a second time. The manager never reconnects on its own;
// after a drop the caller decides when (and whether) to call Connect again,
// which keeps backoff policy out of the core.
type Manager struct {
	transport Transport

	mu      sync.Mutex
	state   State
	waiters []chan error

	onConnected    []func()
	onDisconnected []func(reason string)
	onError        []func(err error)
}

// NewManager creates a Manager over the given transport.
func NewManager(t Transport) *Manager {
	return &Manager{
		transport: t,
		state:     Disconnected,
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// OnConnected registers a hook invoked after each successful connect.
//
// Hooks must be registered before Connect is first called.
func (m *Manager) OnConnected(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onConnected = append(m.onConnected, fn)
}

// OnDisconnected registers a hook invoked when the connection drops.
func (m *Manager) OnDisconnected(fn func(reason string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDisconnected = append(m.onDisconnected, fn)
}

// OnError registers a hook invoked on transport-level failures.
func (m *Manager) OnError(fn func(err error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onError = append(m.onError, fn)
}

// Connect establishes the connection, or joins the in-flight attempt.
//
// It returns once the connection is usable, the attempt fails, or ctx is
// done. A ctx expiry abandons the wait but does not cancel the underlying
// attempt; a later Connect call observes its outcome.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case Connected:
		m.mu.Unlock()
		return nil
	case Connecting:
		done := make(chan error, 1)
		m.waiters = append(m.waiters, done)
		m.mu.Unlock()
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	// Disconnected or Errored: start a fresh attempt.
	m.state = Connecting
	done := make(chan error, 1)
	m.waiters = append(m.waiters, done)
	m.mu.Unlock()

	logger.Debugf("socket: dialing")
	err := m.transport.Dial(m.handleConnect, m.handleDisconnect, m.handleError)
	if err != nil {
		m.failAttempt(fmt.Errorf("%w: %v", ErrConnectionFailed, err))
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Disconnect tears down the connection. Safe to call in any state.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	wasConnected := m.state == Connected
	m.state = Disconnected
	m.mu.Unlock()

	m.transport.Close()
	if wasConnected {
		logger.Infof("socket: disconnected by caller")
	}
}

// Send dispatches a payload if connected.
func (m *Manager) Send(destination string, payload any) error {
	if m.State() != Connected {
		return ErrNotConnected
	}
	return m.transport.Send(destination, payload)
}

// Transport exposes the underlying transport for subscription wiring.
func (m *Manager) Transport() Transport { return m.transport }

func (m *Manager) handleConnect() {
	m.mu.Lock()
	m.state = Connected
	waiters := m.waiters
	m.waiters = nil
	hooks := append([]func(){}, m.onConnected...)
	m.mu.Unlock()

	logger.Infof("socket: connected")
	for _, done := range waiters {
		done <- nil
	}
	for _, fn := range hooks {
		fn()
	}
}

func (m *Manager) handleDisconnect(reason string) {
	m.mu.Lock()
	// A disconnect during establishment fails the attempt; afterwards it is
	// a drop of an established connection.
	wasConnecting := m.state == Connecting
	if m.state != Disconnected {
		m.state = Errored
	}
	hooks := append([]func(reason string){}, m.onDisconnected...)
	m.mu.Unlock()

	if wasConnecting {
		m.failAttempt(fmt.Errorf("%w: disconnected during handshake: %s", ErrConnectionFailed, reason))
		return
	}

	logger.Warnf("socket: connection dropped: %s", reason)
	for _, fn := range hooks {
		fn(reason)
	}
}

func (m *Manager) handleError(err error) {
	m.mu.Lock()
	connecting := m.state == Connecting
	hooks := append([]func(err error){}, m.onError...)
	m.mu.Unlock()

	if connecting {
		m.failAttempt(fmt.Errorf("%w: %v", ErrConnectionFailed, err))
	} else {
		logger.Errorf("socket: transport error: %v", err)
	}
	for _, fn := range hooks {
		fn(err)
	}
}

// failAttempt moves an in-flight attempt to Errored and resolves its waiters.
func (m *Manager) failAttempt(err error) {
	m.mu.Lock()
	if m.state != Connecting {
		m.mu.Unlock()
		return
	}
	m.state = Errored
	waiters := m.waiters
	m.waiters = nil
	m.mu.Unlock()

	logger.Errorf("socket: connect failed: %v", err)
	for _, done := range waiters {
		done <- err
	}
}
