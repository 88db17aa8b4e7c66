package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConversationIDSymmetric(t *testing.T) {
	assert.Equal(t, ConversationID("alice", "bob"), ConversationID("bob", "alice"))
	assert.Equal(t, "alice_bob", ConversationID("bob", "alice"))
}

func TestConversationParticipants(t *testing.T) {
	c := &Conversation{Participants: []string{"alice", "bob"}}

	assert.True(t, c.HasParticipant("alice"))
	assert.False(t, c.HasParticipant("carol"))
	assert.Equal(t, "bob", c.OtherParticipant("alice"))
	assert.Equal(t, "alice", c.OtherParticipant("bob"))
}

func TestMessageReadByUser(t *testing.T) {
	m := &Message{
		SenderID: "alice",
		ReadBy:   map[string]time.Time{"bob": time.Now()},
	}

	assert.True(t, m.ReadByUser("alice"), "sender counts as having read their own message")
	assert.True(t, m.ReadByUser("bob"))
	assert.False(t, m.ReadByUser("carol"))
}
