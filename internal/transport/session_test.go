package transport

import (
	"errors"
	"sync"
	"testing"
)

type fakeConn struct {
	mu       sync.Mutex
	writes   [][]byte
	writeErr error
	closed   bool
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	cp := append([]byte(nil), data...)
	f.writes = append(f.writes, cp)
	return nil
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	return 0, nil, errors.New("fakeConn: no reader configured")
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestSendWritesWhileOpen(t *testing.T) {
	conn := &fakeConn{}
	s := New(conn, "token", []string{"write"})
	s.MarkOpen()

	if err := s.Send([]byte("hello")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(conn.writes) != 1 || string(conn.writes[0]) != "hello" {
		t.Fatalf("unexpected writes: %v", conn.writes)
	}
	if conn.closed {
		t.Fatalf("connection should remain open after a successful send")
	}
}

func TestSendClosesOnFailure(t *testing.T) {
	conn := &fakeConn{writeErr: errors.New("boom")}
	s := New(conn, "token", nil)
	s.MarkOpen()

	if err := s.Send([]byte("hello")); err == nil {
		t.Fatalf("expected send error")
	}
	if !conn.closed {
		t.Fatalf("expected session to close the transport after a failed send")
	}
}

func TestSendRejectsClosedSession(t *testing.T) {
	conn := &fakeConn{}
	s := New(conn, "token", nil)
	s.MarkOpen()
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := s.Send([]byte("hello")); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if len(conn.writes) != 0 {
		t.Fatalf("expected no writes to a closed session")
	}
}

func TestCanWrite(t *testing.T) {
	conn := &fakeConn{}
	ro := New(conn, "token", []string{"read"})
	if ro.CanWrite() {
		t.Fatalf("read-only auth should not grant CanWrite")
	}
	rw := New(conn, "token", []string{"read", "write"})
	if !rw.CanWrite() {
		t.Fatalf("write auth should grant CanWrite")
	}
}
