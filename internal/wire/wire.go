// Package wire defines the typed payloads exchanged with the messaging
// server, and the topic/destination naming scheme.
//
// Inbound frames are validated here, at the boundary: a frame that fails to
// parse is rejected with ErrMalformedFrame and never propagates half-filled
// values into the core.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedFrame marks an inbound frame that failed boundary validation.
var ErrMalformedFrame = errors.New("malformed frame")

// Message content types carried in the "type" payload field.
const (
	MessageTypeText  = "TEXT"
	MessageTypeImage = "IMAGE"
)

// Outbound send destinations.
const (
	// DestinationDirect is the application-scoped destination for direct
	// messages.
	DestinationDirect = "/app/messages"
	// DestinationRoom is the application-scoped destination for room
	// messages.
	DestinationRoom = "/app/chat-rooms"
)

// DirectTopic returns the per-user topic carrying direct messages.
func DirectTopic(userID string) string {
	return "/topic/messages/" + userID
}

// RoomTopic returns the per-room topic carrying room messages.
func RoomTopic(roomID string) string {
	return "/topic/chat-rooms/" + roomID
}

// NotificationTopic returns the per-user topic carrying notifications.
func NotificationTopic(userID string) string {
	return "/topic/notifications/" + userID
}

// FriendshipTopic returns the per-user topic carrying friendship events.
func FriendshipTopic(userID string) string {
	return "/topic/friendships/" + userID
}

// DirectMessage is a direct (user-to-user) chat message payload.
//
// The same shape is used outbound (send) and inbound (confirmed echo from the
// server). ID is only present inbound, once the server has persisted the
// message.
type DirectMessage struct {
	// ID is the server-assigned message id (inbound only).
	ID string `json:"id,omitempty"`
	// SenderID identifies the sending user.
	SenderID string `json:"senderId"`
	// ReceiverID identifies the receiving user.
	ReceiverID string `json:"receiverId"`
	// Content is the message body.
	Content string `json:"content"`
	// Type is the content kind (TEXT/IMAGE).
	Type string `json:"type"`
	// SentAt is the send timestamp in Unix milliseconds. Inbound values are
	// server-authoritative.
	SentAt int64 `json:"sentAt"`
}

// ParseDirectMessage validates and decodes a direct-message frame.
func ParseDirectMessage(raw []byte) (DirectMessage, error) {
	var msg DirectMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return DirectMessage{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if msg.SenderID == "" {
		return DirectMessage{}, fmt.Errorf("%w: direct message missing senderId", ErrMalformedFrame)
	}
	if msg.Content == "" {
		return DirectMessage{}, fmt.Errorf("%w: direct message missing content", ErrMalformedFrame)
	}
	if msg.Type == "" {
		msg.Type = MessageTypeText
	}
	return msg, nil
}

// RoomMessage is a room (group) chat message payload.
type RoomMessage struct {
	// ID is the server-assigned message id (inbound only).
	ID string `json:"id,omitempty"`
	// RoomID identifies the chat room.
	RoomID string `json:"chatRoomId"`
	// SenderID identifies the sending user.
	SenderID string `json:"senderId"`
	// Content is the message body.
	Content string `json:"content"`
	// Type is the content kind (TEXT/IMAGE).
	Type string `json:"type"`
	// SentAt is the send timestamp in Unix milliseconds.
	SentAt int64 `json:"sentAt"`
}

// ParseRoomMessage validates and decodes a room-message frame.
func ParseRoomMessage(raw []byte) (RoomMessage, error) {
	var msg RoomMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return RoomMessage{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if msg.RoomID == "" {
		return RoomMessage{}, fmt.Errorf("%w: room message missing chatRoomId", ErrMalformedFrame)
	}
	if msg.SenderID == "" {
		return RoomMessage{}, fmt.Errorf("%w: room message missing senderId", ErrMalformedFrame)
	}
	if msg.Content == "" {
		return RoomMessage{}, fmt.Errorf("%w: room message missing content", ErrMalformedFrame)
	}
	if msg.Type == "" {
		msg.Type = MessageTypeText
	}
	return msg, nil
}

// Notification is a server-pushed notification payload.
type Notification struct {
	// ID is the notification id.
	ID string `json:"id"`
	// Kind identifies the notification kind (e.g. "FRIEND_REQUEST", "LIKE").
	Kind string `json:"kind"`
	// ActorID is the user that triggered the notification.
	ActorID string `json:"actorId"`
	// SubjectID references the entity the notification is about.
	SubjectID string `json:"subjectId,omitempty"`
	// CreatedAt is the creation timestamp in Unix milliseconds.
	CreatedAt int64 `json:"createdAt"`
}

// ParseNotification validates and decodes a notification frame.
func ParseNotification(raw []byte) (Notification, error) {
	var n Notification
	if err := json.Unmarshal(raw, &n); err != nil {
		return Notification{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if n.ID == "" || n.Kind == "" {
		return Notification{}, fmt.Errorf("%w: notification missing id or kind", ErrMalformedFrame)
	}
	return n, nil
}

// FriendshipEvent is a server-pushed friendship state change.
type FriendshipEvent struct {
	// RequestID identifies the friend request.
	RequestID string `json:"requestId"`
	// FromUserID is the requesting user.
	FromUserID string `json:"fromUserId"`
	// ToUserID is the receiving user.
	ToUserID string `json:"toUserId"`
	// Status is the new request status (e.g. "PENDING", "ACCEPTED").
	Status string `json:"status"`
}

// ParseFriendshipEvent validates and decodes a friendship-event frame.
func ParseFriendshipEvent(raw []byte) (FriendshipEvent, error) {
	var ev FriendshipEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return FriendshipEvent{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if ev.RequestID == "" || ev.Status == "" {
		return FriendshipEvent{}, fmt.Errorf("%w: friendship event missing requestId or status", ErrMalformedFrame)
	}
	return ev, nil
}

// HistoryMessage is one message in a REST history page.
type HistoryMessage struct {
	// ID is the server-assigned message id.
	ID string `json:"id"`
	// SenderID identifies the sending user.
	SenderID string `json:"senderId"`
	// Content is the message body.
	Content string `json:"content"`
	// Type is the content kind.
	Type string `json:"type"`
	// SentAt is the send timestamp in Unix milliseconds.
	SentAt int64 `json:"sentAt"`
}

// HistoryPage is the REST response for one page of conversation history.
//
// Content is ordered newest-first as received from the server.
type HistoryPage struct {
	// Content holds the page's messages, newest first.
	Content []HistoryMessage `json:"content"`
	// Last reports whether this is the final (oldest) page.
	Last bool `json:"last"`
}
