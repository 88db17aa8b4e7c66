package websocket

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"

	"rentline/pkg/logger"
)

// Client represents one connected user session.
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte

	// ActiveConversation is the conversation the client currently has open,
	// set by join/leave events.
	ActiveConversation string
}

// EventHandler receives client lifecycle and protocol events. It is
// implemented by the API layer so this package stays free of usecase imports.
type EventHandler interface {
	OnConnect(client *Client)
	OnDisconnect(client *Client)
	OnJoinConversation(client *Client, conversationID string)
	OnLeaveConversation(client *Client, conversationID string)
	OnTyping(client *Client, conversationID string, isTyping bool)
	OnMarkRead(client *Client, conversationID string)
}

// Manager tracks connected clients and per-conversation rooms.
type Manager struct {
	clients    map[string]*Client
	rooms      map[string]map[string]*Client
	Register   chan *Client
	Unregister chan *Client
	handler    EventHandler
	mutex      sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// SetEventHandler must be called before Start.
func (m *Manager) SetEventHandler(h EventHandler) {
	m.handler = h
}

// Start runs the manager's registration loop in a goroutine.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.mutex.Lock()
				if old, ok := m.clients[client.UserID]; ok {
					close(old.Send)
					m.removeFromRoomsLocked(old)
				}
				m.clients[client.UserID] = client
				m.mutex.Unlock()
				logger.Info("Client registered: %s", client.UserID)
				if m.handler != nil {
					m.handler.OnConnect(client)
				}

			case client := <-m.Unregister:
				m.mutex.Lock()
				if current, ok := m.clients[client.UserID]; ok && current == client {
					delete(m.clients, client.UserID)
					m.removeFromRoomsLocked(client)
					close(client.Send)
				}
				m.mutex.Unlock()
				logger.Info("Client unregistered: %s", client.UserID)
				if m.handler != nil {
					m.handler.OnDisconnect(client)
				}

			case <-ctx.Done():
				return
			}
		}
	}()
}

func (m *Manager) removeFromRoomsLocked(client *Client) {
	for conversationID, room := range m.rooms {
		if room[client.UserID] == client {
			delete(room, client.UserID)
			if len(room) == 0 {
				delete(m.rooms, conversationID)
			}
		}
	}
}

// JoinConversation adds the client to a conversation room.
func (m *Manager) JoinConversation(conversationID string, client *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	room, ok := m.rooms[conversationID]
	if !ok {
		room = make(map[string]*Client)
		m.rooms[conversationID] = room
	}
	room[client.UserID] = client
	client.ActiveConversation = conversationID
}

// LeaveConversation removes the client from a conversation room.
func (m *Manager) LeaveConversation(conversationID string, client *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if room, ok := m.rooms[conversationID]; ok {
		if room[client.UserID] == client {
			delete(room, client.UserID)
			if len(room) == 0 {
				delete(m.rooms, conversationID)
			}
		}
	}
	if client.ActiveConversation == conversationID {
		client.ActiveConversation = ""
	}
}

// InConversation reports whether the user currently has the conversation open.
func (m *Manager) InConversation(conversationID, userID string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, ok := m.rooms[conversationID]
	if !ok {
		return false
	}
	_, ok = room[userID]
	return ok
}

// SendToUser delivers a payload to one user, dropping the connection if its
// send buffer is full.
func (m *Manager) SendToUser(userID string, payload []byte) {
	m.mutex.RLock()
	client, ok := m.clients[userID]
	m.mutex.RUnlock()

	if !ok {
		return
	}

	select {
	case client.Send <- payload:
	default:
		logger.Warn("Send buffer full for client %s, dropping connection", userID)
		m.mutex.Lock()
		if m.clients[userID] == client {
			delete(m.clients, userID)
			m.removeFromRoomsLocked(client)
			close(client.Send)
		}
		m.mutex.Unlock()
	}
}

// SendToConversation delivers a payload to every client in the conversation
// room except excludeUserID (pass "" to include everyone).
func (m *Manager) SendToConversation(conversationID string, payload []byte, excludeUserID string) {
	m.mutex.RLock()
	room := m.rooms[conversationID]
	recipients := make([]*Client, 0, len(room))
	for userID, client := range room {
		if userID != excludeUserID {
			recipients = append(recipients, client)
		}
	}
	m.mutex.RUnlock()

	for _, client := range recipients {
		m.SendToUser(client.UserID, payload)
	}
}

// ReadPump reads frames from the connection and dispatches protocol events.
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		m.Unregister <- c
		c.Conn.Close()
	}()

	for {
		_, payload, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("Read error for client %s: %v", c.UserID, err)
			}
			break
		}

		m.HandleClientEvent(c, payload)
	}
}

// WritePump writes queued payloads to the connection.
func (c *Client) WritePump() {
	defer c.Conn.Close()

	for {
		payload, ok := <-c.Send
		if !ok {
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			logger.Warn("Write error for client %s: %v", c.UserID, err)
			return
		}
	}
}
