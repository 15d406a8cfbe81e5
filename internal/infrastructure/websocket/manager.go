package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Event is the envelope pushed to connected clients.
type Event struct {
	Type    string      `json:"type"` // "new_message", "conversation_read"
	Payload interface{} `json:"payload"`
}

// Client represents a WebSocket connection client
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte
}

// Manager manages all active WebSocket connections
type Manager struct {
	clients    map[string]*Client
	Register   chan *Client
	Unregister chan *Client
	mutex      sync.RWMutex
}

// NewManager creates a new WebSocket connection manager
func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Start runs the manager's main loop in a goroutine
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.mutex.Lock()
				if previous, ok := m.clients[client.UserID]; ok {
					// Reconnect under the same id; drop the old connection
					close(previous.Send)
				}
				m.clients[client.UserID] = client
				m.mutex.Unlock()
				log.Printf("Client registered: %s", client.UserID)

			case client := <-m.Unregister:
				m.mutex.Lock()
				// A stale unregister from a replaced or already-dropped
				// connection must not touch the current one.
				if current, ok := m.clients[client.UserID]; ok && current == client {
					delete(m.clients, client.UserID)
					close(client.Send)
				}
				m.mutex.Unlock()
				log.Printf("Client unregistered: %s", client.UserID)

			case <-ctx.Done():
				return
			}
		}
	}()
}

// SendToUser sends a raw message to a specific user if connected. Sends
// happen under the read lock and channels are only closed under the write
// lock, so a concurrent drop can never race a send onto a closed channel.
func (m *Manager) SendToUser(userID string, message []byte) {
	m.mutex.RLock()
	client, ok := m.clients[userID]
	if ok {
		select {
		case client.Send <- message:
			m.mutex.RUnlock()
			return
		default:
		}
	}
	m.mutex.RUnlock()

	if !ok {
		return // User not connected; delivery is best-effort
	}

	// Slow consumer; drop the connection rather than block the sender.
	// Another sender may have dropped it first, or the user may have
	// reconnected under the same id, so only remove this exact client.
	m.mutex.Lock()
	if m.clients[userID] == client {
		delete(m.clients, userID)
		close(client.Send)
	}
	m.mutex.Unlock()
}

// SendEvent marshals and delivers an event to a specific user
func (m *Manager) SendEvent(userID string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal websocket event %s: %v", event.Type, err)
		return
	}
	m.SendToUser(userID, data)
}

// IsConnected reports whether a user has an active connection
func (m *Manager) IsConnected(userID string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	_, ok := m.clients[userID]
	return ok
}
