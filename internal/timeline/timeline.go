// Package timeline maintains the ordered message list of one conversation
// and reconciles optimistic local messages against server-confirmed echoes.
//
// The server echoes a sent message back over the same topic the sender
// listens on, so naive appending would double every outgoing message. The
// protocol does not carry the client-generated id end-to-end; reconciliation
// therefore matches structurally on (sender, content), oldest pending match
// first.
package timeline

import (
	"sort"

	"github.com/ManDuong25/facebook-sub000/pkg/logger"
)

// DeliveryState is the lifecycle state of a message.
type DeliveryState int

const (
	// StatePending means the message was inserted optimistically and the
	// server has not confirmed it yet.
	StatePending DeliveryState = iota
	// StateConfirmed means the server has persisted and echoed the message.
	StateConfirmed
	// StateFailed means the send attempt errored. Failed messages are never
	// matched against later inbound frames.
	StateFailed
)

// String returns the string representation of a DeliveryState.
func (s DeliveryState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Message is one entry in a conversation timeline.
type Message struct {
	// ClientID is the locally generated id, stable for the life of the
	// message.
	ClientID string
	// ServerID is the server-assigned id, empty until confirmed.
	ServerID string
	// SenderID identifies the sending user.
	SenderID string
	// Content is the message body.
	Content string
	// Type is the content kind (TEXT/IMAGE).
	Type string
	// SentAt is the send timestamp in Unix milliseconds. Confirmed entries
	// carry the server's authoritative value.
	SentAt int64
	// State is the delivery state.
	State DeliveryState
}

// Confirmed is the payload of a server-confirmed message frame.
type Confirmed struct {
	ServerID string
	SenderID string
	Content  string
	Type     string
	SentAt   int64
}

// Timeline is the ascending-by-SentAt message list of one conversation.
//
// Timeline is not safe for concurrent use; the SDK serializes all access on
// its dispatch loop.
type Timeline struct {
	msgs      []Message
	serverIDs map[string]struct{}
}

// New creates an empty timeline.
func New() *Timeline {
	return &Timeline{serverIDs: make(map[string]struct{})}
}

// Len returns the number of entries.
func (t *Timeline) Len() int { return len(t.msgs) }

// Messages returns a snapshot of the timeline, ascending by SentAt.
func (t *Timeline) Messages() []Message {
	out := make([]Message, len(t.msgs))
	copy(out, t.msgs)
	return out
}

// AppendPending inserts an optimistic local message at the end of the
// timeline.
func (t *Timeline) AppendPending(m Message) {
	m.State = StatePending
	m.ServerID = ""
	t.msgs = append(t.msgs, m)
	t.restoreOrder()
}

// MarkFailed flips the pending message with clientID to Failed.
//
// It reports whether a pending entry was found. Failed messages stay visible
// so the UI can offer a retry affordance.
func (t *Timeline) MarkFailed(clientID string) bool {
	for i := range t.msgs {
		if t.msgs[i].ClientID == clientID && t.msgs[i].State == StatePending {
			t.msgs[i].State = StateFailed
			return true
		}
	}
	return false
}

// Reconcile merges a server-confirmed frame into the timeline.
//
// The oldest pending message with equal sender and content (and no server id
// yet) is replaced in place: it adopts the server id, the authoritative
// SentAt, and flips to Confirmed. Two identical pending messages in flight
// therefore confirm in FIFO order; content equality alone cannot tell them
// apart. If nothing matches — the message came from another participant, or
// its local counterpart is gone — the frame is appended as a new Confirmed
// entry. Duplicate server ids are dropped.
func (t *Timeline) Reconcile(c Confirmed) {
	if c.ServerID != "" {
		if _, seen := t.serverIDs[c.ServerID]; seen {
			logger.Debugf("timeline: dropping duplicate frame serverId=%s", c.ServerID)
			return
		}
		t.serverIDs[c.ServerID] = struct{}{}
	}

	for i := range t.msgs {
		m := &t.msgs[i]
		if m.State != StatePending || m.ServerID != "" {
			continue
		}
		if m.SenderID != c.SenderID || m.Content != c.Content {
			continue
		}
		m.ServerID = c.ServerID
		m.SentAt = c.SentAt
		m.State = StateConfirmed
		t.restoreOrder()
		logger.Tracef("timeline: confirmed clientId=%s serverId=%s", m.ClientID, c.ServerID)
		return
	}

	t.msgs = append(t.msgs, Message{
		ServerID: c.ServerID,
		SenderID: c.SenderID,
		Content:  c.Content,
		Type:     c.Type,
		SentAt:   c.SentAt,
		State:    StateConfirmed,
	})
	t.restoreOrder()
}

// MergeHistory merges one ascending page of historical messages.
//
// Page 0 replaces the whole timeline; later pages prepend older messages.
// Entries whose server id is already present are skipped, so overlapping
// pages never duplicate a message.
func (t *Timeline) MergeHistory(page []Message, pageIndex int) {
	if pageIndex == 0 {
		t.msgs = nil
		t.serverIDs = make(map[string]struct{})
	}

	added := 0
	for _, m := range page {
		if m.ServerID != "" {
			if _, seen := t.serverIDs[m.ServerID]; seen {
				continue
			}
			t.serverIDs[m.ServerID] = struct{}{}
		}
		m.State = StateConfirmed
		t.msgs = append(t.msgs, m)
		added++
	}
	t.restoreOrder()
	logger.Debugf("timeline: merged history page=%d added=%d total=%d", pageIndex, added, len(t.msgs))
}

// restoreOrder re-establishes ascending SentAt order. The sort is stable so
// entries with equal timestamps keep their arrival order.
func (t *Timeline) restoreOrder() {
	sort.SliceStable(t.msgs, func(i, j int) bool {
		return t.msgs[i].SentAt < t.msgs[j].SentAt
	})
}
