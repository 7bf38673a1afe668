// Package sdk is the chat core consumed by UI layers.
//
// Client ties the connection manager, subscription registry, history pager,
// and window manager together behind a small surface: select/close
// conversations, send messages, load older history, and observe changes via
// a Listener. All state mutation is serialized on a single dispatch
// goroutine; UI layers may call the SDK from any goroutine.
package sdk

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ManDuong25/facebook-sub000/internal/config"
	"github.com/ManDuong25/facebook-sub000/internal/history"
	"github.com/ManDuong25/facebook-sub000/internal/identity"
	"github.com/ManDuong25/facebook-sub000/internal/socket"
	"github.com/ManDuong25/facebook-sub000/internal/storage"
	"github.com/ManDuong25/facebook-sub000/internal/subs"
	"github.com/ManDuong25/facebook-sub000/internal/timeline"
	"github.com/ManDuong25/facebook-sub000/internal/windows"
	"github.com/ManDuong25/facebook-sub000/internal/wire"
	"github.com/ManDuong25/facebook-sub000/pkg/logger"
)

// Conversation identifies a chat partner or room.
type Conversation = windows.Conversation

// Kind distinguishes direct conversations from rooms.
type Kind = windows.Kind

// Conversation kinds.
const (
	Direct = windows.Direct
	Room   = windows.Room
)

// ErrConversationNotOpen is returned by operations that require an open chat
// window for the conversation.
var ErrConversationNotOpen = errors.New("conversation not open")

// defaultDispatcherQueueSize is the mailbox size used by the dispatchers.
const defaultDispatcherQueueSize = 256

// Listener receives chat-core events. Methods are invoked from a dedicated
// callback goroutine, never from the caller's.
type Listener interface {
	// OnConnected is called after the connection is established.
	OnConnected()
	// OnDisconnected is called after the connection drops. Pending messages
	// stay visible as "sending" so they are not mistaken for delivered ones.
	OnDisconnected(reason string)
	// OnWindowsChanged is called whenever the open-window set changes, with
	// the new set oldest-activated first.
	OnWindowsChanged(open []Conversation)
	// OnConversationUpdated is called when a conversation's message list
	// changed (new message, confirmation, failure, history merge).
	OnConversationUpdated(conversationID string)
	// OnNotification delivers a server-pushed notification.
	OnNotification(n wire.Notification)
	// OnFriendshipEvent delivers a friendship state change.
	OnFriendshipEvent(ev wire.FriendshipEvent)
	// OnError delivers non-fatal errors for display/logging.
	OnError(message string)
}

// window is the per-open-conversation state owned by the dispatch loop.
type window struct {
	conv     Conversation
	sub      *subs.Subscription
	tl       *timeline.Timeline
	nextPage int
	hasMore  bool
	loading  bool
}

// Client is the chat core.
type Client struct {
	cfg   *config.Config
	token string
	user  identity.User

	conn     *socket.Manager
	registry *subs.Registry
	pager    *history.Pager
	wins     *windows.Manager

	// windowsByID is owned by the dispatch loop.
	windowsByID map[string]*window

	mu       sync.Mutex
	listener Listener

	dispatch  *dispatcher
	callbacks *dispatcher

	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Client.
type Option func(*clientDeps)

type clientDeps struct {
	transport socket.Transport
	registry  func(*socket.Manager) *subs.Registry
	pager     *history.Pager
}

// WithTransport injects a transport (used by tests).
func WithTransport(t socket.Transport) Option {
	return func(d *clientDeps) { d.transport = t }
}

// WithRegistryOptions forwards options to the subscription registry (used by
// tests to drop the flush delay).
func WithRegistryOptions(opts ...subs.Option) Option {
	return func(d *clientDeps) {
		d.registry = func(m *socket.Manager) *subs.Registry {
			return subs.NewRegistry(m, opts...)
		}
	}
}

// New creates a Client for the given access token.
//
// The open-window set from the previous run is restored (without any network
// activity); subscriptions for restored windows are queued and flushed by the
// first Connect.
func New(cfg *config.Config, token string, opts ...Option) (*Client, error) {
	user, err := identity.CurrentUser(token)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve current user: %w", err)
	}

	deps := &clientDeps{}
	for _, opt := range opts {
		opt(deps)
	}
	if deps.transport == nil {
		deps.transport = socket.NewSocketIOTransport(cfg.ServerURL, cfg.SocketPath, token)
	}
	if deps.pager == nil {
		deps.pager = history.NewPager(cfg.ServerURL, token, cfg.PageSize)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		cfg:         cfg,
		token:       token,
		user:        user,
		conn:        socket.NewManager(deps.transport),
		pager:       deps.pager,
		windowsByID: make(map[string]*window),
		dispatch:    newDispatcher(defaultDispatcherQueueSize),
		callbacks:   newDispatcher(defaultDispatcherQueueSize),
		ctx:         ctx,
		cancel:      cancel,
	}
	if deps.registry != nil {
		c.registry = deps.registry(c.conn)
	} else {
		c.registry = subs.NewRegistry(c.conn)
	}
	c.wins = windows.NewManager(cfg.MaxWindows, windows.WithEvictionHook(c.handleEviction))

	c.conn.OnConnected(func() {
		l := c.getListener()
		if l != nil {
			c.callbacks.do(func() { l.OnConnected() })
		}
	})
	c.conn.OnDisconnected(func(reason string) {
		l := c.getListener()
		if l != nil {
			c.callbacks.do(func() { l.OnDisconnected(reason) })
		}
	})

	c.restoreWindows()
	return c, nil
}

// CurrentUser returns the locally authenticated user.
func (c *Client) CurrentUser() identity.User { return c.user }

// ConnectionState returns the connection state.
func (c *Client) ConnectionState() socket.State { return c.conn.State() }

// SetListener registers the listener for chat-core events.
func (c *Client) SetListener(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listener = l
}

func (c *Client) getListener() Listener {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listener
}

// Connect establishes the server connection.
//
// Subscriptions for the user-scoped topics and every open window are
// (re-)requested first, so they are flushed in order once the transport is
// up. The handshake wait itself happens on the caller's goroutine: the
// dispatch loop stays free to serve reads and frames while the transport
// negotiates. Connect does not retry: after a failure or a drop the caller
// decides when to call it again.
func (c *Client) Connect(ctx context.Context) error {
	if _, err := c.dispatch.call(func() (interface{}, error) {
		c.ensureUserSubscriptionsLocked()
		for _, conv := range c.wins.Open() {
			if w := c.windowsByID[conv.ID]; w != nil {
				c.ensureSubscribedLocked(w)
			}
		}
		return nil, nil
	}); err != nil {
		return err
	}

	if err := c.conn.Connect(ctx); err != nil {
		return err
	}

	// Windows restored or opened while offline have no history yet.
	return c.dispatch.do(func() {
		for _, conv := range c.wins.Open() {
			if w := c.windowsByID[conv.ID]; w != nil && w.tl.Len() == 0 && w.nextPage == 0 {
				c.loadPageLocked(w, 0)
			}
		}
	})
}

// Shutdown persists state, tears down the connection, and stops the
// dispatch goroutines. Safe to call more than once.
func (c *Client) Shutdown() {
	_, _ = c.dispatch.call(func() (interface{}, error) {
		c.persistLocked()
		c.conn.Disconnect()
		c.cancel()
		c.pager.Close()
		return nil, nil
	})
	c.dispatch.stop()
	c.callbacks.stop()
}

// OpenWindows returns the open conversations, oldest-activated first.
// Empty after Shutdown.
func (c *Client) OpenWindows() []Conversation {
	v, _ := c.dispatch.call(func() (interface{}, error) {
		return c.wins.Open(), nil
	})
	open, _ := v.([]Conversation)
	return open
}

// ActiveConversation returns the selected conversation id, or "".
func (c *Client) ActiveConversation() string {
	v, _ := c.dispatch.call(func() (interface{}, error) {
		return c.wins.Active(), nil
	})
	id, _ := v.(string)
	return id
}

// Messages returns the conversation's message list, ascending by time.
//
// The slice is a snapshot; it is not mutated after return.
func (c *Client) Messages(conversationID string) []timeline.Message {
	v, _ := c.dispatch.call(func() (interface{}, error) {
		w := c.windowsByID[conversationID]
		if w == nil {
			return []timeline.Message(nil), nil
		}
		return w.tl.Messages(), nil
	})
	msgs, _ := v.([]timeline.Message)
	return msgs
}

// HasMoreHistory reports whether older pages exist for the conversation.
func (c *Client) HasMoreHistory(conversationID string) bool {
	v, _ := c.dispatch.call(func() (interface{}, error) {
		w := c.windowsByID[conversationID]
		return w != nil && w.hasMore, nil
	})
	more, _ := v.(bool)
	return more
}

// IsSubscribed reports whether topic has an active subscription. Exposed for
// tests and diagnostics.
func (c *Client) IsSubscribed(topic string) bool {
	return c.registry.IsSubscribed(topic)
}

// notifyError forwards a non-fatal error to the listener.
func (c *Client) notifyError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logger.Errorf("sdk: %s", msg)
	l := c.getListener()
	if l != nil {
		c.callbacks.do(func() { l.OnError(msg) })
	}
}

// notifyConversationUpdated signals a message-list change.
func (c *Client) notifyConversationUpdated(conversationID string) {
	l := c.getListener()
	if l != nil {
		c.callbacks.do(func() { l.OnConversationUpdated(conversationID) })
	}
}

// notifyWindowsChanged signals an open-set change and persists it.
func (c *Client) notifyWindowsChangedLocked() {
	c.persistLocked()
	open := c.wins.Open()
	l := c.getListener()
	if l != nil {
		c.callbacks.do(func() { l.OnWindowsChanged(open) })
	}
}

// persistLocked saves the open-window set. Best effort.
func (c *Client) persistLocked() {
	state := storage.WindowState{ActiveID: c.wins.Active()}
	for _, conv := range c.wins.Open() {
		state.Windows = append(state.Windows, storage.WindowEntry{
			ConversationID: conv.ID,
			Kind:           conv.Kind.String(),
			DisplayName:    conv.DisplayName,
			AvatarRef:      conv.AvatarRef,
		})
	}
	if err := storage.SaveWindowState(c.cfg.HomeDir, state); err != nil {
		logger.Warnf("sdk: failed to persist window state: %v", err)
	}
}

// restoreWindows reopens the previous run's windows. Runs during New, before
// any listener or connection exists.
func (c *Client) restoreWindows() {
	state := storage.LoadWindowState(c.cfg.HomeDir)
	for _, entry := range state.Windows {
		kind := Direct
		if entry.Kind == Room.String() {
			kind = Room
		}
		conv := Conversation{
			ID:          entry.ConversationID,
			Kind:        kind,
			DisplayName: entry.DisplayName,
			AvatarRef:   entry.AvatarRef,
		}
		c.wins.Select(conv)
		c.windowsByID[conv.ID] = &window{conv: conv, tl: timeline.New(), hasMore: true}
	}
	c.wins.SetActive(state.ActiveID)
	if n := len(state.Windows); n > 0 {
		logger.Infof("sdk: restored %d chat window(s)", n)
	}
}
