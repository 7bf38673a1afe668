package socket

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	socketio "github.com/zishang520/socket.io/clients/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"

	"github.com/ManDuong25/facebook-sub000/pkg/logger"
)

// Control events used to negotiate topic routing with the server.
const (
	eventSubscribe   = "subscribe"
	eventUnsubscribe = "unsubscribe"
)

// SocketIOTransport is the production Transport over Socket.IO.
//
// Socket.IO supplies the fallback-capable handshake the server expects: the
// client negotiates HTTP long-polling first and upgrades to WebSocket when
// available. Topics ride over it as event names; a subscribe/unsubscribe
// control event tells the server which topics to route to this connection.
type SocketIOTransport struct {
	serverURL string
	path      string
	token     string

	mu   sync.Mutex
	sock *socketio.Socket
}

var _ Transport = (*SocketIOTransport)(nil)

// NewSocketIOTransport creates a transport for the given server.
//
// path is the Socket.IO handshake path (e.g. "/v1/ws"); token is attached to
// the handshake auth payload.
func NewSocketIOTransport(serverURL, path, token string) *SocketIOTransport {
	return &SocketIOTransport{
		serverURL: serverURL,
		path:      path,
		token:     token,
	}
}

// Dial establishes the Socket.IO connection.
func (t *SocketIOTransport) Dial(onConnect func(), onDisconnect func(reason string), onError func(err error)) error {
	opts := socketio.DefaultOptions()
	opts.SetPath(t.path)
	opts.SetTransports(types.NewSet(socketio.Polling, socketio.WebSocket))
	// Reconnection stays with the caller; the core surfaces drops instead of
	// silently redialing.
	opts.SetReconnection(false)
	opts.SetAuth(map[string]interface{}{
		"token": t.token,
	})

	sock, err := socketio.Connect(t.serverURL, opts)
	if err != nil {
		return fmt.Errorf("socket.io connect: %w", err)
	}

	t.mu.Lock()
	t.sock = sock
	t.mu.Unlock()

	sock.On(types.EventName("connect"), func(args ...any) {
		logger.Debugf("socket.io: connected, id=%s", sock.Id())
		onConnect()
	})
	sock.On(types.EventName("disconnect"), func(args ...any) {
		reason := ""
		if len(args) > 0 {
			if r, ok := args[0].(string); ok {
				reason = r
			}
		}
		onDisconnect(reason)
	})
	sock.On(types.EventName("connect_error"), func(args ...any) {
		if len(args) > 0 {
			onError(fmt.Errorf("socket.io connect_error: %v", args[0]))
			return
		}
		onError(fmt.Errorf("socket.io connect_error"))
	})

	return nil
}

// Close tears down the connection.
func (t *SocketIOTransport) Close() {
	t.mu.Lock()
	sock := t.sock
	t.sock = nil
	t.mu.Unlock()

	if sock != nil {
		sock.Disconnect()
	}
}

// Subscribe registers a frame handler for topic and asks the server to route
// it to this connection.
func (t *SocketIOTransport) Subscribe(topic string, h Handler) error {
	t.mu.Lock()
	sock := t.sock
	t.mu.Unlock()
	if sock == nil {
		return ErrNotConnected
	}

	sock.On(types.EventName(topic), func(args ...any) {
		if len(args) == 0 {
			return
		}
		raw, err := json.Marshal(args[0])
		if err != nil {
			logger.Warnf("socket.io: dropping unmarshalable frame on %s: %v", topic, err)
			return
		}
		h(raw)
	})
	sock.Emit(eventSubscribe, map[string]interface{}{"topic": topic})
	logger.Debugf("socket.io: subscribed %s", topic)
	return nil
}

// Unsubscribe stops delivery for topic.
func (t *SocketIOTransport) Unsubscribe(topic string) error {
	t.mu.Lock()
	sock := t.sock
	t.mu.Unlock()
	if sock == nil {
		return ErrNotConnected
	}

	sock.Emit(eventUnsubscribe, map[string]interface{}{"topic": topic})
	// One listener per topic event; dropping them all is dropping ours.
	sock.RemoveAllListeners(types.EventName(topic))
	logger.Debugf("socket.io: unsubscribed %s", topic)
	return nil
}

// Send dispatches a payload to an application destination.
func (t *SocketIOTransport) Send(destination string, payload any) error {
	t.mu.Lock()
	sock := t.sock
	t.mu.Unlock()
	if sock == nil {
		return ErrNotConnected
	}

	sock.Emit(destination, payload)
	return nil
}

// SendWithAck dispatches a payload and waits for the server's ack.
func (t *SocketIOTransport) SendWithAck(destination string, payload any, timeout time.Duration) error {
	t.mu.Lock()
	sock := t.sock
	t.mu.Unlock()
	if sock == nil {
		return ErrNotConnected
	}

	errCh := make(chan error, 1)
	sock.Emit(destination, payload, func(args []any, err error) {
		if err != nil {
			errCh <- err
			return
		}
		errCh <- ackError(args)
	})

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("send to %s: %w", destination, err)
		}
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("send to %s: %w", destination, ErrAckTimeout)
	}
}

// ackError extracts a server-reported failure from an ack payload,
// if present. Acks look like {"result":"success"} or
// {"result":"error","message":"..."}.
func ackError(args []any) error {
	if len(args) == 0 {
		return nil
	}
	payload, ok := args[0].(map[string]interface{})
	if !ok {
		return nil
	}
	result, _ := payload["result"].(string)
	if result == "" || result == "success" {
		return nil
	}
	if msg, ok := payload["message"].(string); ok && msg != "" {
		return fmt.Errorf("server rejected send: %s", msg)
	}
	return fmt.Errorf("server rejected send: %s", result)
}
