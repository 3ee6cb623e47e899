package ws

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// newTestServer registers every accepted connection under userID and keeps it
// open until the client goes away.
func newTestServer(t *testing.T, m *Manager, userID uint) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := m.Register(userID, conn)
		defer m.Unregister(userID, c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

func TestManager_SendToUser(t *testing.T) {
	m := NewManager()
	srv := newTestServer(t, m, 7)

	a := dial(t, srv)
	b := dial(t, srv)
	waitFor(t, func() bool { return m.Count() == 2 })

	if err := m.SendToUser(7, []byte(`{"type":"hello"}`)); err != nil {
		t.Fatalf("send: %v", err)
	}
	for _, conn := range []*websocket.Conn{a, b} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if string(msg) != `{"type":"hello"}` {
			t.Fatalf("unexpected message %s", msg)
		}
	}
}

func TestManager_NotConnected(t *testing.T) {
	m := NewManager()
	if err := m.SendToUser(1, []byte("x")); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if m.IsConnected(1) {
		t.Fatalf("unknown user reported connected")
	}
}

func TestManager_UnregisterOnClose(t *testing.T) {
	m := NewManager()
	var mu sync.Mutex
	var totals []int
	m.OnChange(func(total int) {
		mu.Lock()
		totals = append(totals, total)
		mu.Unlock()
	})

	srv := newTestServer(t, m, 3)
	conn := dial(t, srv)
	waitFor(t, func() bool { return m.IsConnected(3) })

	conn.Close()
	waitFor(t, func() bool { return !m.IsConnected(3) })

	mu.Lock()
	defer mu.Unlock()
	if len(totals) < 2 || totals[0] != 1 || totals[len(totals)-1] != 0 {
		t.Fatalf("unexpected OnChange totals: %v", totals)
	}
}

func TestManager_CloseAll(t *testing.T) {
	m := NewManager()
	srv := newTestServer(t, m, 9)
	conn := dial(t, srv)
	waitFor(t, func() bool { return m.Count() == 1 })

	m.CloseAll()
	if m.Count() != 0 {
		t.Fatalf("count after CloseAll = %d", m.Count())
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected read error after server closed the connection")
	}
}
