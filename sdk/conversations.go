package sdk

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ManDuong25/facebook-sub000/internal/history"
	"github.com/ManDuong25/facebook-sub000/internal/timeline"
	"github.com/ManDuong25/facebook-sub000/internal/windows"
	"github.com/ManDuong25/facebook-sub000/internal/wire"
	"github.com/ManDuong25/facebook-sub000/pkg/logger"
)

// sendAckTimeout bounds how long an outgoing message waits for the server's
// acknowledgement before it is marked Failed.
const sendAckTimeout = 10 * time.Second

// SelectConversation opens or raises the chat window for conv.
//
// A new window subscribes to its topic (queued if the connection is not up
// yet) and starts loading its newest history page. Re-selecting an open
// window only updates recency; no message state is reset.
func (c *Client) SelectConversation(conv Conversation) {
	_ = c.dispatch.do(func() {
		wasOpen := c.wins.IsOpen(conv.ID)
		c.wins.Select(conv)

		w := c.windowsByID[conv.ID]
		if w == nil {
			w = &window{conv: conv, tl: timeline.New(), hasMore: true}
			c.windowsByID[conv.ID] = w
		}
		c.ensureSubscribedLocked(w)
		if !wasOpen && w.tl.Len() == 0 && w.nextPage == 0 {
			c.loadPageLocked(w, 0)
		}
		c.notifyWindowsChangedLocked()
	})
}

// CloseConversation closes the chat window for the conversation.
//
// If it was the selected window, the selection becomes empty; the caller
// decides what to show next. Closing an unknown conversation is a no-op.
func (c *Client) CloseConversation(conversationID string) {
	_ = c.dispatch.do(func() {
		if !c.wins.IsOpen(conversationID) {
			return
		}
		c.wins.Close(conversationID)
		c.releaseWindowLocked(conversationID)
		c.notifyWindowsChangedLocked()
	})
}

// SetMaxWindows changes the bound on simultaneously open windows.
//
// Shrinking evicts the least-recently-activated windows immediately.
func (c *Client) SetMaxWindows(k int) {
	_ = c.dispatch.do(func() {
		c.wins.SetMax(k)
		c.notifyWindowsChangedLocked()
	})
}

// SendMessage sends content to the conversation and returns the local
// message id.
//
// The message appears immediately as Pending; it flips to Confirmed once the
// server echoes it back over the conversation's topic, or to Failed if the
// send is not acknowledged.
func (c *Client) SendMessage(conversationID, content string) (string, error) {
	v, err := c.dispatch.call(func() (interface{}, error) {
		w := c.windowsByID[conversationID]
		if w == nil {
			return "", ErrConversationNotOpen
		}

		clientID := uuid.NewString()
		now := time.Now().UnixMilli()
		w.tl.AppendPending(timeline.Message{
			ClientID: clientID,
			SenderID: c.user.ID,
			Content:  content,
			Type:     wire.MessageTypeText,
			SentAt:   now,
		})

		var destination string
		var payload any
		switch w.conv.Kind {
		case Room:
			destination = wire.DestinationRoom
			payload = wire.RoomMessage{
				RoomID:   w.conv.ID,
				SenderID: c.user.ID,
				Content:  content,
				Type:     wire.MessageTypeText,
				SentAt:   now,
			}
		default:
			destination = wire.DestinationDirect
			payload = wire.DirectMessage{
				SenderID:   c.user.ID,
				ReceiverID: w.conv.ID,
				Content:    content,
				Type:       wire.MessageTypeText,
				SentAt:     now,
			}
		}

		go c.deliver(conversationID, clientID, destination, payload)

		c.notifyConversationUpdated(conversationID)
		return clientID, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// deliver dispatches one outgoing message and marks it Failed on error.
// Runs off the dispatch loop; the ack wait must not stall other operations.
func (c *Client) deliver(conversationID, clientID, destination string, payload any) {
	err := c.conn.Transport().SendWithAck(destination, payload, sendAckTimeout)
	if err == nil {
		return
	}
	_ = c.dispatch.do(func() {
		w := c.windowsByID[conversationID]
		if w == nil {
			return
		}
		if w.tl.MarkFailed(clientID) {
			c.notifyError("message send failed: %v", err)
			c.notifyConversationUpdated(conversationID)
		}
	})
}

// LoadOlderMessages fetches the next (older) history page for the
// conversation. A no-op when the oldest page was already reached or a fetch
// is in flight.
func (c *Client) LoadOlderMessages(conversationID string) error {
	_, err := c.dispatch.call(func() (interface{}, error) {
		w := c.windowsByID[conversationID]
		if w == nil {
			return nil, ErrConversationNotOpen
		}
		if !w.hasMore || w.loading {
			return nil, nil
		}
		c.loadPageLocked(w, w.nextPage)
		return nil, nil
	})
	return err
}

// loadPageLocked starts an async history fetch for one page.
func (c *Client) loadPageLocked(w *window, page int) {
	if w.loading {
		return
	}
	w.loading = true
	conversationID := w.conv.ID
	go func() {
		p, err := c.pager.FetchPage(c.ctx, conversationID, page)
		_ = c.dispatch.do(func() {
			c.applyHistoryLocked(conversationID, page, p, err)
		})
	}()
}

// applyHistoryLocked merges a fetched page into the window's timeline.
func (c *Client) applyHistoryLocked(conversationID string, page int, p history.Page, err error) {
	w := c.windowsByID[conversationID]
	if w == nil {
		// Window was closed or evicted while the fetch was in flight.
		return
	}
	w.loading = false
	if errors.Is(err, history.ErrStale) {
		return
	}
	if err != nil {
		c.notifyError("history load failed for %s: %v", conversationID, err)
		return
	}
	w.tl.MergeHistory(p.Messages, page)
	w.nextPage = page + 1
	w.hasMore = p.HasMore
	c.notifyConversationUpdated(conversationID)
}

// ensureSubscribedLocked makes sure the window's topic has a live or queued
// subscription. Direct windows share the user's inbox topic; the registry's
// idempotency collapses them onto one subscription.
func (c *Client) ensureSubscribedLocked(w *window) {
	if w.sub != nil && w.sub.Active() {
		return
	}
	switch w.conv.Kind {
	case Room:
		w.sub = c.registry.Subscribe(wire.RoomTopic(w.conv.ID), c.handleRoomFrame)
	default:
		w.sub = c.registry.Subscribe(wire.DirectTopic(c.user.ID), c.handleDirectFrame)
	}
}

// ensureUserSubscriptionsLocked subscribes the session-wide user topics.
func (c *Client) ensureUserSubscriptionsLocked() {
	c.registry.Subscribe(wire.NotificationTopic(c.user.ID), c.handleNotificationFrame)
	c.registry.Subscribe(wire.FriendshipTopic(c.user.ID), c.handleFriendshipFrame)
}

// releaseWindowLocked drops a window's state and its subscription.
//
// The shared direct-inbox subscription survives as long as any direct window
// remains open.
func (c *Client) releaseWindowLocked(conversationID string) {
	w := c.windowsByID[conversationID]
	if w == nil {
		return
	}
	delete(c.windowsByID, conversationID)
	if w.sub == nil {
		return
	}
	if w.conv.Kind == Direct {
		for _, other := range c.windowsByID {
			if other.conv.Kind == Direct {
				return
			}
		}
	}
	w.sub.Dispose()
}

// handleEviction releases the evicted window's state. Invoked by the window
// manager from within Select/SetMax, already on the dispatch loop; the
// caller notifies the listener.
func (c *Client) handleEviction(conv windows.Conversation) {
	logger.Infof("sdk: evicting window %s", conv.ID)
	c.releaseWindowLocked(conv.ID)
}

// handleDirectFrame routes an inbound direct-message frame to the matching
// open window. Invoked from the transport; the mutation is dispatched.
func (c *Client) handleDirectFrame(raw []byte) {
	msg, err := wire.ParseDirectMessage(raw)
	if err != nil {
		logger.Warnf("sdk: rejecting direct frame: %v", err)
		return
	}
	_ = c.dispatch.do(func() {
		counterpart := msg.SenderID
		if counterpart == c.user.ID {
			counterpart = msg.ReceiverID
		}
		w := c.windowsByID[counterpart]
		if w == nil {
			// No open window for this conversation; the user learns about it
			// through the notification topic.
			logger.Tracef("sdk: direct frame for closed conversation %s", counterpart)
			return
		}
		w.tl.Reconcile(timeline.Confirmed{
			ServerID: msg.ID,
			SenderID: msg.SenderID,
			Content:  msg.Content,
			Type:     msg.Type,
			SentAt:   msg.SentAt,
		})
		c.notifyConversationUpdated(counterpart)
	})
}

// handleRoomFrame routes an inbound room-message frame to its room window.
func (c *Client) handleRoomFrame(raw []byte) {
	msg, err := wire.ParseRoomMessage(raw)
	if err != nil {
		logger.Warnf("sdk: rejecting room frame: %v", err)
		return
	}
	_ = c.dispatch.do(func() {
		w := c.windowsByID[msg.RoomID]
		if w == nil {
			logger.Tracef("sdk: room frame for closed room %s", msg.RoomID)
			return
		}
		w.tl.Reconcile(timeline.Confirmed{
			ServerID: msg.ID,
			SenderID: msg.SenderID,
			Content:  msg.Content,
			Type:     msg.Type,
			SentAt:   msg.SentAt,
		})
		c.notifyConversationUpdated(msg.RoomID)
	})
}

// handleNotificationFrame forwards a parsed notification to the listener.
func (c *Client) handleNotificationFrame(raw []byte) {
	n, err := wire.ParseNotification(raw)
	if err != nil {
		logger.Warnf("sdk: rejecting notification frame: %v", err)
		return
	}
	l := c.getListener()
	if l != nil {
		c.callbacks.do(func() { l.OnNotification(n) })
	}
}

// handleFriendshipFrame forwards a parsed friendship event to the listener.
func (c *Client) handleFriendshipFrame(raw []byte) {
	ev, err := wire.ParseFriendshipEvent(raw)
	if err != nil {
		logger.Warnf("sdk: rejecting friendship frame: %v", err)
		return
	}
	l := c.getListener()
	if l != nil {
		c.callbacks.do(func() { l.OnFriendshipEvent(ev) })
	}
}
