// Package windows governs which conversations are open as chat windows.
//
// The open set is bounded: selecting a conversation beyond the bound evicts
// the least-recently-activated window. The manager holds no message data and
// no rendering concern; it only decides which conversations deserve a live
// subscription and a visible window.
package windows

// Kind distinguishes direct conversations from rooms.
type Kind int

const (
	// Direct is a one-to-one conversation keyed by the partner's user id.
	Direct Kind = iota
	// Room is a group conversation keyed by room id.
	Room
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	if k == Room {
		return "room"
	}
	return "direct"
}

// Conversation identifies a chat partner or room.
//
// Conversations are supplied by the surrounding application and are immutable
// for the session lifetime.
type Conversation struct {
	// ID is the partner user id (Direct) or room id (Room).
	ID string
	// Kind is the conversation kind.
	Kind Kind
	// DisplayName is the partner or room display name.
	DisplayName string
	// AvatarRef is an opaque avatar reference.
	AvatarRef string
}

// Manager is the open-window state machine.
//
// Manager is not safe for concurrent use; the SDK serializes all access on
// its dispatch loop.
type Manager struct {
	max     int
	open    []Conversation // oldest-activated first
	active  string
	onEvict func(Conversation)
}

// Option configures a Manager.
type Option func(*Manager)

// WithEvictionHook registers a hook invoked for every evicted window, so the
// owner can release its subscription and message state.
func WithEvictionHook(fn func(Conversation)) Option {
	return func(m *Manager) { m.onEvict = fn }
}

// NewManager creates a manager with the given window bound.
func NewManager(max int, opts ...Option) *Manager {
	if max < 1 {
		max = 1
	}
	m := &Manager{max: max}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Max returns the current window bound.
func (m *Manager) Max() int { return m.max }

// Open returns the open windows, oldest-activated first.
func (m *Manager) Open() []Conversation {
	out := make([]Conversation, len(m.open))
	copy(out, m.open)
	return out
}

// Active returns the selected conversation id, or "" when none is selected.
func (m *Manager) Active() string { return m.active }

// IsOpen reports whether the conversation has an open window.
func (m *Manager) IsOpen(id string) bool {
	return m.indexOf(id) >= 0
}

// Select opens or raises the window for conv and makes it the active one.
//
// An already-open window moves to the most-recent end without resetting any
// state. A new window beyond the bound evicts the least-recently-activated
// one first.
func (m *Manager) Select(conv Conversation) {
	m.active = conv.ID

	if i := m.indexOf(conv.ID); i >= 0 {
		existing := m.open[i]
		m.open = append(m.open[:i], m.open[i+1:]...)
		m.open = append(m.open, existing)
		return
	}

	for len(m.open) >= m.max {
		m.evictFront()
	}
	m.open = append(m.open, conv)
}

// SetActive overrides the selection without reordering the open set.
//
// The id must belong to an open window; anything else clears the selection.
// Used when restoring persisted window state.
func (m *Manager) SetActive(id string) {
	if id != "" && m.indexOf(id) < 0 {
		id = ""
	}
	m.active = id
}

// Close removes the window for id regardless of position.
//
// Closing the active window leaves the selection empty; the caller decides
// what to show next.
func (m *Manager) Close(id string) {
	i := m.indexOf(id)
	if i < 0 {
		return
	}
	m.open = append(m.open[:i], m.open[i+1:]...)
	if m.active == id {
		m.active = ""
	}
}

// SetMax changes the window bound.
//
// Shrinking truncates the open set from the oldest end immediately, evicting
// as many windows as necessary even if none were just selected.
func (m *Manager) SetMax(k int) {
	if k < 1 {
		k = 1
	}
	m.max = k
	for len(m.open) > m.max {
		m.evictFront()
	}
}

func (m *Manager) evictFront() {
	evicted := m.open[0]
	m.open = m.open[1:]
	if m.active == evicted.ID {
		m.active = ""
	}
	if m.onEvict != nil {
		m.onEvict(evicted)
	}
}

func (m *Manager) indexOf(id string) int {
	for i, c := range m.open {
		if c.ID == id {
			return i
		}
	}
	return -1
}
