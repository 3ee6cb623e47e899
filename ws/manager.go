package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// ErrNotConnected is returned when a user has no open connection.
var ErrNotConnected = errors.New("user not connected")

// Conn wraps a websocket connection with a write lock; gorilla allows one writer at a time.
type Conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *Conn) write(messageType int, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(messageType, payload)
}

// Ping sends a ping control frame.
func (c *Conn) Ping() error {
	return c.write(websocket.PingMessage, nil)
}

// Manager keeps track of each user's open websocket connections.
// A user may have several clients open at once.
type Manager struct {
	mu          sync.RWMutex
	connections map[uint]map[*Conn]struct{}
	onChange    func(total int)
}

func NewManager() *Manager {
	return &Manager{connections: make(map[uint]map[*Conn]struct{})}
}

// OnChange registers a callback invoked with the total connection count after
// every register/unregister.
func (m *Manager) OnChange(fn func(total int)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// Register adds a connection for the user.
func (m *Manager) Register(userID uint, conn *websocket.Conn) *Conn {
	c := &Conn{ws: conn}
	m.mu.Lock()
	set, ok := m.connections[userID]
	if !ok {
		set = make(map[*Conn]struct{})
		m.connections[userID] = set
	}
	set[c] = struct{}{}
	total, cb := m.totalLocked(), m.onChange
	m.mu.Unlock()

	if cb != nil {
		cb(total)
	}
	return c
}

// Unregister closes and removes one connection.
func (m *Manager) Unregister(userID uint, c *Conn) {
	m.mu.Lock()
	if set, ok := m.connections[userID]; ok {
		if _, ok := set[c]; ok {
			_ = c.ws.Close()
			delete(set, c)
		}
		if len(set) == 0 {
			delete(m.connections, userID)
		}
	}
	total, cb := m.totalLocked(), m.onChange
	m.mu.Unlock()

	if cb != nil {
		cb(total)
	}
}

// SendToUser writes a text message to every connection of the user. It returns
// ErrNotConnected when there are none and the first write error otherwise.
func (m *Manager) SendToUser(userID uint, payload []byte) error {
	m.mu.RLock()
	conns := make([]*Conn, 0, len(m.connections[userID]))
	for c := range m.connections[userID] {
		conns = append(conns, c)
	}
	m.mu.RUnlock()

	if len(conns) == 0 {
		return ErrNotConnected
	}
	var firstErr error
	for _, c := range conns {
		if err := c.write(websocket.TextMessage, payload); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// IsConnected returns whether the user has at least one open connection.
func (m *Manager) IsConnected(userID uint) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections[userID]) > 0
}

// Count returns the number of open connections across all users.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalLocked()
}

// CloseAll closes every connection; used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	for userID, set := range m.connections {
		for c := range set {
			_ = c.ws.Close()
		}
		delete(m.connections, userID)
	}
	cb := m.onChange
	m.mu.Unlock()

	if cb != nil {
		cb(0)
	}
}

func (m *Manager) totalLocked() int {
	n := 0
	for _, set := range m.connections {
		n += len(set)
	}
	return n
}
