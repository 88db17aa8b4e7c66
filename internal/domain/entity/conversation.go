package entity

import (
	"sort"
	"strings"
	"time"
)

// Conversation is a two-party messaging thread, optionally tied to a listing.
// Its document ID is derived from the sorted participant pair, so the same
// pair always resolves to the same document regardless of who starts it.
type Conversation struct {
	ID              string         `json:"id" firestore:"id"`
	Participants    []string       `json:"participants" firestore:"participants"`
	ListingID       string         `json:"listing_id,omitempty" firestore:"listingId,omitempty"`
	LastMessageText string         `json:"last_message_text,omitempty" firestore:"lastMessageText,omitempty"`
	LastMessageAt   time.Time      `json:"last_message_at" firestore:"lastMessageAt"`
	UnreadCount     map[string]int `json:"unread_count" firestore:"unreadCount"`
	CreatedAt       time.Time      `json:"created_at" firestore:"createdAt,serverTimestamp"`
	UpdatedAt       time.Time      `json:"updated_at" firestore:"updatedAt,serverTimestamp"`
}

// ConversationID returns the deterministic document ID for a participant pair.
// Sorting makes the key symmetric, which is what closes the duplicate-creation
// race: concurrent starts for the same pair target the same document.
func ConversationID(userA, userB string) string {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return strings.Join(pair, "_")
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the participant that is not userID.
func (c *Conversation) OtherParticipant(userID string) string {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}
