// Package transport wraps one session's binary channel (gorilla/websocket
// in this server, per spec §6) with the readyState and send-failure
// policy of spec §4.5/§7.
package transport

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ReadyState mirrors the browser WebSocket readyState values the spec's
// send policy is phrased in terms of.
type ReadyState int

const (
	StateConnecting ReadyState = iota
	StateOpen
	StateClosing
	StateClosed
)

// ErrClosed is returned by Send when the session is not open.
var ErrClosed = errors.New("transport: session is not open")

// wsConn is the subset of *websocket.Conn the session needs, so tests can
// supply a fake without opening a real socket.
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Session is one connected editor's binary channel, per spec §3.
type Session struct {
	ID          string
	Auth        string
	authActions map[string]struct{}

	conn wsConn

	mu    sync.Mutex
	state ReadyState
}

// New wraps an accepted connection as a session in the "connecting" state.
func New(conn wsConn, auth string, authActions []string) *Session {
	actions := make(map[string]struct{}, len(authActions))
	for _, a := range authActions {
		actions[a] = struct{}{}
	}
	return &Session{
		ID:          uuid.NewString(),
		Auth:        auth,
		authActions: actions,
		conn:        conn,
		state:       StateConnecting,
	}
}

// CanWrite reports whether the session's auth grants the "write" action —
// absence makes it read-only for persistence purposes (spec §3).
func (s *Session) CanWrite() bool {
	_, ok := s.authActions["write"]
	return ok
}

// MarkOpen transitions the session to "open" once the initial exchange of
// spec §4.5 has been sent.
func (s *Session) MarkOpen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateConnecting {
		s.state = StateOpen
	}
}

func (s *Session) readyState() ReadyState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Send frames and writes data, applying the send policy of spec §4.5: a
// session whose readyState is neither connecting nor open is closed
// instead of written to, and any write failure closes it too.
func (s *Session) Send(data []byte) error {
	if state := s.readyState(); state != StateConnecting && state != StateOpen {
		_ = s.Close()
		return ErrClosed
	}
	if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		_ = s.Close()
		return err
	}
	return nil
}

// ReadFrame blocks for the next incoming binary frame.
func (s *Session) ReadFrame() ([]byte, error) {
	messageType, p, err := s.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if messageType != websocket.BinaryMessage {
		return nil, nil
	}
	return p, nil
}

// Close transitions the session to "closed" and closes the transport. It
// is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = StateClosed
	s.mu.Unlock()
	return s.conn.Close()
}
