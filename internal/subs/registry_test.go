package subs_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ManDuong25/facebook-sub000/internal/socket"
	"github.com/ManDuong25/facebook-sub000/internal/socket/sockettest"
	"github.com/ManDuong25/facebook-sub000/internal/subs"
)

func newConnected(t *testing.T) (*socket.Manager, *sockettest.FakeTransport, *subs.Registry) {
	t.Helper()
	tr := sockettest.New()
	m := socket.NewManager(tr)
	r := subs.NewRegistry(m, subs.WithFlushDelay(0))
	require.NoError(t, m.Connect(context.Background()))
	return m, tr, r
}

func TestRegistry_SubscribeWhileConnected(t *testing.T) {
	t.Parallel()

	_, tr, r := newConnected(t)

	var frames []string
	sub := r.Subscribe("/topic/messages/u1", func(payload []byte) {
		frames = append(frames, string(payload))
	})
	require.True(t, sub.Active())
	require.True(t, r.IsSubscribed("/topic/messages/u1"))

	require.True(t, tr.Deliver("/topic/messages/u1", []byte(`{"a":1}`)))
	require.Equal(t, []string{`{"a":1}`}, frames)
}

func TestRegistry_SubscribeIsIdempotent(t *testing.T) {
	t.Parallel()

	_, tr, r := newConnected(t)

	calls := 0
	first := r.Subscribe("/topic/messages/u1", func([]byte) { calls++ })
	second := r.Subscribe("/topic/messages/u1", func([]byte) { calls += 100 })

	// The second subscribe is a no-op returning the existing handle; the
	// original callback stays in place.
	require.Same(t, first, second)
	require.Len(t, tr.Subscribed(), 1)

	tr.Deliver("/topic/messages/u1", []byte(`{}`))
	require.Equal(t, 1, calls)
}

func TestRegistry_QueuedThenFlushedOnConnect(t *testing.T) {
	t.Parallel()

	tr := sockettest.New()
	tr.ConnectOnDial = false
	m := socket.NewManager(tr)
	r := subs.NewRegistry(m, subs.WithFlushDelay(0))

	// Subscribing before the connection is up queues silently, and repeated
	// requests for the same topic collapse onto one entry.
	r.Subscribe("/topic/messages/u1", func([]byte) {})
	r.Subscribe("/topic/messages/u1", func([]byte) {})
	r.Subscribe("/topic/chat-rooms/r1", func([]byte) {})
	require.Equal(t, 2, r.PendingCount())
	require.False(t, r.IsSubscribed("/topic/messages/u1"))

	done := make(chan error, 1)
	go func() { done <- m.Connect(context.Background()) }()
	require.Eventually(t, func() bool {
		return m.State() == socket.Connecting
	}, time.Second, time.Millisecond)
	tr.FireConnect()
	require.NoError(t, <-done)

	// Flushed in request order, exactly once per topic.
	require.Equal(t, []string{"/topic/messages/u1", "/topic/chat-rooms/r1"}, tr.Subscribed())
	require.True(t, r.IsSubscribed("/topic/messages/u1"))
	require.True(t, r.IsSubscribed("/topic/chat-rooms/r1"))
	require.Equal(t, 0, r.PendingCount())
}

func TestRegistry_FlushDelayIsBoundedNotSynchronous(t *testing.T) {
	t.Parallel()

	tr := sockettest.New()
	tr.ConnectOnDial = false
	m := socket.NewManager(tr)
	r := subs.NewRegistry(m, subs.WithFlushDelay(10*time.Millisecond))

	r.Subscribe("/topic/messages/u1", func([]byte) {})

	done := make(chan error, 1)
	go func() { done <- m.Connect(context.Background()) }()
	require.Eventually(t, func() bool {
		return m.State() == socket.Connecting
	}, time.Second, time.Millisecond)
	tr.FireConnect()
	require.NoError(t, <-done)

	// Activation happens shortly after connect, not synchronously with it.
	require.Eventually(t, func() bool {
		return r.IsSubscribed("/topic/messages/u1")
	}, time.Second, time.Millisecond)
}

func TestRegistry_DisposeReleasesSubscription(t *testing.T) {
	t.Parallel()

	_, tr, r := newConnected(t)

	sub := r.Subscribe("/topic/chat-rooms/r1", func([]byte) {})
	sub.Dispose()

	require.False(t, r.IsSubscribed("/topic/chat-rooms/r1"))
	require.Equal(t, []string{"/topic/chat-rooms/r1"}, tr.Unsubscribed())

	// Dispose is idempotent.
	sub.Dispose()
	require.Len(t, tr.Unsubscribed(), 1)
}

func TestRegistry_DisposePendingRemovesFromQueue(t *testing.T) {
	t.Parallel()

	tr := sockettest.New()
	tr.ConnectOnDial = false
	m := socket.NewManager(tr)
	r := subs.NewRegistry(m, subs.WithFlushDelay(0))

	sub := r.Subscribe("/topic/messages/u1", func([]byte) {})
	sub.Dispose()
	require.Equal(t, 0, r.PendingCount())

	done := make(chan error, 1)
	go func() { done <- m.Connect(context.Background()) }()
	require.Eventually(t, func() bool {
		return m.State() == socket.Connecting
	}, time.Second, time.Millisecond)
	tr.FireConnect()
	require.NoError(t, <-done)

	require.Empty(t, tr.Subscribed())
}

func TestRegistry_UnsubscribeUnknownTopicIsNoOp(t *testing.T) {
	t.Parallel()

	_, tr, r := newConnected(t)

	// UI components may unmount without knowing whether they subscribed.
	r.Unsubscribe("/topic/messages/never-subscribed")
	require.Empty(t, tr.Unsubscribed())
}

func TestRegistry_DisconnectClearsActiveWithoutResubscribing(t *testing.T) {
	t.Parallel()

	m, tr, r := newConnected(t)

	sub := r.Subscribe("/topic/messages/u1", func([]byte) {})
	require.True(t, sub.Active())

	tr.FireDisconnect("broken pipe")
	require.False(t, sub.Active())
	require.False(t, r.IsSubscribed("/topic/messages/u1"))

	// Reconnecting alone restores nothing; interest must be re-declared.
	require.NoError(t, m.Connect(context.Background()))
	require.False(t, r.IsSubscribed("/topic/messages/u1"))

	fresh := r.Subscribe("/topic/messages/u1", func([]byte) {})
	require.True(t, fresh.Active())
	require.NotSame(t, sub, fresh)
}
