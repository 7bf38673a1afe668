// Package subs multiplexes per-topic subscriptions over the single server
// connection.
//
// UI components subscribe optimistically: a subscribe issued while the
// connection is still negotiating is queued and flushed once the connection
// is up, in request order. The registry guarantees at most one active
// subscription per topic.
package subs

import (
	"sync"
	"time"

	"github.com/ManDuong25/facebook-sub000/internal/socket"
	"github.com/ManDuong25/facebook-sub000/pkg/logger"
)

// defaultFlushDelay is the scheduling delay between the connection coming up
// and pending subscriptions being flushed. It gives the transport a beat to
// finish registering the session server-side before the first frame arrives.
const defaultFlushDelay = 50 * time.Millisecond

// Status is the lifecycle state of a subscription.
type Status int

const (
	// Pending means the subscription was requested while disconnected and
	// will be activated on the next flush.
	Pending Status = iota
	// Active means frames for the topic are being delivered.
	Active
	// Disposed means the subscription has been released, either explicitly
	// or by a connection drop.
	Disposed
)

// Subscription is the handle returned by Registry.Subscribe.
//
// Dispose is the only way to release a subscription; it is safe to call any
// number of times, in any state.
type Subscription struct {
	topic   string
	handler socket.Handler
	reg     *Registry
	status  Status
}

// Topic returns the subscribed topic.
func (s *Subscription) Topic() string { return s.topic }

// Active reports whether frames are currently being delivered.
func (s *Subscription) Active() bool {
	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()
	return s.status == Active
}

// Dispose releases the subscription.
func (s *Subscription) Dispose() {
	s.reg.dispose(s)
}

// Registry tracks pending and active subscriptions for one connection.
type Registry struct {
	conn       *socket.Manager
	flushDelay time.Duration

	mu      sync.Mutex
	pending []*Subscription
	active  map[string]*Subscription
}

// Option configures a Registry.
type Option func(*Registry)

// WithFlushDelay overrides the post-connect flush delay. Zero flushes
// synchronously from the connect hook (used by tests).
func WithFlushDelay(d time.Duration) Option {
	return func(r *Registry) { r.flushDelay = d }
}

// NewRegistry creates a registry bound to the connection manager.
//
// The registry hooks the manager's lifecycle: pending subscriptions are
// flushed after each connect, and active ones are marked lost on disconnect.
func NewRegistry(conn *socket.Manager, opts ...Option) *Registry {
	r := &Registry{
		conn:       conn,
		flushDelay: defaultFlushDelay,
		active:     make(map[string]*Subscription),
	}
	for _, opt := range opts {
		opt(r)
	}
	conn.OnConnected(r.scheduleFlush)
	conn.OnDisconnected(r.handleDisconnect)
	return r
}

// Subscribe requests frame delivery for topic.
//
// If the connection is not up yet the request is queued (no error) and
// activated on the next connect. Subscribing to a topic that already has a
// live or queued subscription returns the existing handle; the callback is
// not replaced. Delivery is not guaranteed to be synchronous with Subscribe
// returning.
func (r *Registry) Subscribe(topic string, h socket.Handler) *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sub, ok := r.active[topic]; ok {
		return sub
	}
	for _, sub := range r.pending {
		if sub.topic == topic {
			return sub
		}
	}

	sub := &Subscription{topic: topic, handler: h, reg: r}
	if r.conn.State() != socket.Connected {
		sub.status = Pending
		r.pending = append(r.pending, sub)
		logger.Debugf("subs: queued %s (not connected)", topic)
		return sub
	}

	r.activateLocked(sub)
	return sub
}

// Unsubscribe releases the subscription for topic, if any.
//
// Unknown topics are a no-op, not an error: UI components may unmount and
// remount without tracking whether their subscription still exists.
func (r *Registry) Unsubscribe(topic string) {
	r.mu.Lock()
	var sub *Subscription
	if s, ok := r.active[topic]; ok {
		sub = s
	} else {
		for _, s := range r.pending {
			if s.topic == topic {
				sub = s
				break
			}
		}
	}
	r.mu.Unlock()

	if sub != nil {
		r.dispose(sub)
	}
}

// IsSubscribed reports whether topic has an active subscription.
func (r *Registry) IsSubscribed(topic string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[topic]
	return ok
}

// PendingCount returns the number of queued subscriptions.
func (r *Registry) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// activateLocked subscribes on the transport and records the subscription.
// Callers hold r.mu.
func (r *Registry) activateLocked(sub *Subscription) {
	if err := r.conn.Transport().Subscribe(sub.topic, sub.handler); err != nil {
		// The connection raced away between the state check and the
		// transport call; keep the request queued for the next connect.
		sub.status = Pending
		r.pending = append(r.pending, sub)
		logger.Debugf("subs: re-queued %s: %v", sub.topic, err)
		return
	}
	sub.status = Active
	r.active[sub.topic] = sub
	logger.Debugf("subs: active %s", sub.topic)
}

// scheduleFlush drains the pending queue shortly after a connect.
func (r *Registry) scheduleFlush() {
	if r.flushDelay <= 0 {
		r.flush()
		return
	}
	time.AfterFunc(r.flushDelay, r.flush)
}

func (r *Registry) flush() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn.State() != socket.Connected {
		// Connection dropped again before the flush fired; the queue stays
		// intact for the next connect.
		return
	}

	queued := r.pending
	r.pending = nil
	if len(queued) > 0 {
		logger.Infof("subs: flushing %d pending subscription(s)", len(queued))
	}
	for _, sub := range queued {
		if sub.status != Pending {
			continue
		}
		if _, ok := r.active[sub.topic]; ok {
			sub.status = Disposed
			continue
		}
		r.activateLocked(sub)
	}
}

// handleDisconnect marks every active subscription lost.
//
// Callbacks are not retained: a caller that still cares re-subscribes after
// the next connect, which re-enters its topic into the pending queue.
func (r *Registry) handleDisconnect(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.active) > 0 {
		logger.Warnf("subs: %d subscription(s) lost: %s", len(r.active), reason)
	}
	for _, sub := range r.active {
		sub.status = Disposed
	}
	r.active = make(map[string]*Subscription)
}

func (r *Registry) dispose(sub *Subscription) {
	r.mu.Lock()
	switch sub.status {
	case Disposed:
		r.mu.Unlock()
		return
	case Pending:
		sub.status = Disposed
		for i, s := range r.pending {
			if s == sub {
				r.pending = append(r.pending[:i], r.pending[i+1:]...)
				break
			}
		}
		r.mu.Unlock()
		return
	}

	// Active.
	sub.status = Disposed
	delete(r.active, sub.topic)
	connected := r.conn.State() == socket.Connected
	r.mu.Unlock()

	if connected {
		if err := r.conn.Transport().Unsubscribe(sub.topic); err != nil {
			logger.Debugf("subs: unsubscribe %s: %v", sub.topic, err)
		}
	}
}
