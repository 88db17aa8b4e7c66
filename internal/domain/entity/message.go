package entity

import "time"

const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeFile  = "file"
)

const (
	MessageStatusSent      = "sent"
	MessageStatusDelivered = "delivered"
	MessageStatusRead      = "read"
)

// Message is a single timestamped entry within a Conversation. CreatedAt is
// assigned by the store and is the sole ordering key. ReadBy maps reader uid
// to read time and never holds an entry for the sender; Status is a derived
// convenience, ReadBy is authoritative.
type Message struct {
	ID             string               `json:"id" firestore:"id"`
	ConversationID string               `json:"conversation_id" firestore:"conversationId"`
	SenderID       string               `json:"sender_id" firestore:"senderId"`
	Text           string               `json:"text" firestore:"text"`
	Type           string               `json:"type" firestore:"type"`
	Status         string               `json:"status" firestore:"status"`
	ReadBy         map[string]time.Time `json:"read_by" firestore:"readBy"`
	CreatedAt      time.Time            `json:"created_at" firestore:"createdAt,serverTimestamp"`
}

// ReadByUser reports whether userID has read this message. The sender counts
// as having read their own message even though ReadBy never records them.
func (m *Message) ReadByUser(userID string) bool {
	if userID == m.SenderID {
		return true
	}
	_, ok := m.ReadBy[userID]
	return ok
}
