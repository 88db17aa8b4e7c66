package websocket

import (
	"encoding/json"
	"time"

	"rentline/pkg/logger"
)

// Client-initiated event types.
const (
	EventPing              = "ping"
	EventJoinConversation  = "join_conversation"
	EventLeaveConversation = "leave_conversation"
	EventTyping            = "typing"
	EventMarkRead          = "mark_read"
)

// Server-push event types.
const (
	EventPong             = "pong"
	EventMessageSnapshot  = "message_snapshot"
	EventInboxSnapshot    = "inbox_snapshot"
	EventNewMessage       = "new_message"
	EventReadReceipt      = "read_receipt"
	EventTypingIndicator  = "typing_indicator"
	EventError            = "error"
)

// Event is the frame exchanged over the socket in both directions.
type Event struct {
	Type           string      `json:"type"`
	ConversationID string      `json:"conversation_id,omitempty"`
	Data           interface{} `json:"data,omitempty"`
	Timestamp      string      `json:"timestamp"`
}

type typingData struct {
	IsTyping bool `json:"is_typing"`
}

// Marshal builds a wire-ready event payload.
func Marshal(eventType, conversationID string, data interface{}) []byte {
	payload, err := json.Marshal(Event{
		Type:           eventType,
		ConversationID: conversationID,
		Data:           data,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		logger.Error("Failed to marshal %s event: %v", eventType, err)
		return nil
	}
	return payload
}

// HandleClientEvent parses an incoming frame and dispatches it.
func (m *Manager) HandleClientEvent(client *Client, raw []byte) {
	var event Event
	if err := json.Unmarshal(raw, &event); err != nil {
		logger.Warn("Invalid frame from client %s: %v", client.UserID, err)
		m.SendToUser(client.UserID, Marshal(EventError, "", map[string]string{"error": "Invalid event format"}))
		return
	}

	switch event.Type {
	case EventPing:
		m.SendToUser(client.UserID, Marshal(EventPong, "", map[string]string{"status": "alive"}))

	case EventJoinConversation:
		if event.ConversationID == "" {
			m.SendToUser(client.UserID, Marshal(EventError, "", map[string]string{"error": "Missing conversation_id"}))
			return
		}
		if m.handler != nil {
			m.handler.OnJoinConversation(client, event.ConversationID)
		}

	case EventLeaveConversation:
		if event.ConversationID == "" {
			m.SendToUser(client.UserID, Marshal(EventError, "", map[string]string{"error": "Missing conversation_id"}))
			return
		}
		if m.handler != nil {
			m.handler.OnLeaveConversation(client, event.ConversationID)
		}

	case EventTyping:
		if event.ConversationID == "" || m.handler == nil {
			return
		}
		var data typingData
		if rawData, err := json.Marshal(event.Data); err == nil {
			json.Unmarshal(rawData, &data)
		}
		m.handler.OnTyping(client, event.ConversationID, data.IsTyping)

	case EventMarkRead:
		if event.ConversationID == "" || m.handler == nil {
			return
		}
		m.handler.OnMarkRead(client, event.ConversationID)

	default:
		logger.Warn("Unknown event type %q from client %s", event.Type, client.UserID)
		m.SendToUser(client.UserID, Marshal(EventError, "", map[string]string{"error": "Unknown event type"}))
	}
}
