package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// MockServer is an in-process WebSocket endpoint for tests. Inbound frames
// are recorded and handed to an optional handler that can script replies;
// the server can also push frames and drop connections to exercise the
// reconnect path.
type MockServer struct {
	server *httptest.Server
	url    string

	mu          sync.RWMutex
	writeMu     sync.Mutex
	conns       map[*websocket.Conn]bool
	received    [][]byte
	accepted    int
	rejectNext  bool
	onFrame     func(reply func(frame []byte), frame []byte)
	onConnected func(reply func(frame []byte))
}

// NewMockServer starts a mock endpoint on a random local port.
func NewMockServer() *MockServer {
	m := &MockServer{
		conns: make(map[*websocket.Conn]bool),
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	m.url = "ws" + strings.TrimPrefix(m.server.URL, "http")
	return m
}

// URL returns the ws:// address of the endpoint.
func (m *MockServer) URL() string {
	return m.url
}

// Close shuts the endpoint down and drops every connection.
func (m *MockServer) Close() {
	m.DropConnections()
	m.server.Close()
}

// OnFrame installs a handler invoked with every inbound text frame. The
// reply function writes back on the same connection.
func (m *MockServer) OnFrame(handler func(reply func(frame []byte), frame []byte)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onFrame = handler
}

// OnConnected installs a handler invoked once per accepted connection.
func (m *MockServer) OnConnected(handler func(reply func(frame []byte))) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onConnected = handler
}

// RejectNext makes the server refuse the next upgrade attempt with a 403.
func (m *MockServer) RejectNext() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejectNext = true
}

// Push broadcasts one frame to every live connection.
func (m *MockServer) Push(frame []byte) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for conn := range m.conns {
		m.writeConn(conn, frame)
	}
}

// DropConnections closes every live connection without a close frame,
// simulating an abrupt network failure.
func (m *MockServer) DropConnections() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for conn := range m.conns {
		conn.Close()
		delete(m.conns, conn)
	}
}

// ConnectionCount returns the number of live connections.
func (m *MockServer) ConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}

// AcceptedCount returns the number of connections accepted so far,
// including ones already dropped.
func (m *MockServer) AcceptedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accepted
}

// Received returns a copy of every inbound text frame seen so far, in
// arrival order across all connections.
func (m *MockServer) Received() [][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	frames := make([][]byte, len(m.received))
	copy(frames, m.received)
	return frames
}

// writeConn serializes every server-side write through one mutex.
func (m *MockServer) writeConn(conn *websocket.Conn, frame []byte) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	_ = conn.WriteMessage(websocket.TextMessage, frame)
}

func (m *MockServer) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	if m.rejectNext {
		m.rejectNext = false
		m.mu.Unlock()
		w.WriteHeader(http.StatusForbidden)
		return
	}
	m.mu.Unlock()

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	m.mu.Lock()
	m.conns[conn] = true
	m.accepted++
	onConnected := m.onConnected
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.conns, conn)
		m.mu.Unlock()
		conn.Close()
	}()

	reply := func(frame []byte) {
		m.writeConn(conn, frame)
	}

	if onConnected != nil {
		onConnected(reply)
	}

	for {
		messageType, frame, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		m.mu.Lock()
		m.received = append(m.received, frame)
		handler := m.onFrame
		m.mu.Unlock()

		if handler != nil {
			handler(reply, frame)
		}
	}
}
