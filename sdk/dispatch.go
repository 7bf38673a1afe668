package sdk

import (
	"errors"
	"fmt"
	"sync"
)

// errDispatcherStopped is returned by do/call after stop; operations raced
// against Shutdown land here instead of on a dead loop.
var errDispatcherStopped = errors.New("dispatcher stopped")

type dispatchResult struct {
	value interface{}
	err   error
}

// dispatcher serializes all chat-core work onto a single goroutine.
//
// UI layers call the SDK from arbitrary goroutines and the transport delivers
// frames from its own; funneling every state mutation through one loop keeps
// the window/timeline state free of locks.
type dispatcher struct {
	mu      sync.Mutex
	stopped bool
	q       chan func()
}

func newDispatcher(queueSize int) *dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	d := &dispatcher{
		q: make(chan func(), queueSize),
	}
	go func() {
		for fn := range d.q {
			if fn != nil {
				fn()
			}
		}
	}()
	return d
}

// do enqueues fn without waiting for it to run.
func (d *dispatcher) do(fn func()) error {
	if d == nil {
		return fmt.Errorf("dispatcher not initialized")
	}
	if fn == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return errDispatcherStopped
	}
	d.q <- fn
	return nil
}

// call enqueues fn and waits for its result.
func (d *dispatcher) call(fn func() (interface{}, error)) (interface{}, error) {
	if d == nil {
		return nil, fmt.Errorf("dispatcher not initialized")
	}
	if fn == nil {
		return nil, nil
	}
	done := make(chan dispatchResult, 1)
	wrapped := func() {
		value, err := fn()
		done <- dispatchResult{value: value, err: err}
	}

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil, errDispatcherStopped
	}
	d.q <- wrapped
	d.mu.Unlock()

	res := <-done
	return res.value, res.err
}

// stop drains queued work and exits the loop goroutine. Idempotent; do and
// call fail with errDispatcherStopped afterwards.
func (d *dispatcher) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	close(d.q)
}
