package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentline/internal/domain/entity"
	"rentline/pkg/errors"
)

func TestSubscribeToMessagesOrdersSnapshots(t *testing.T) {
	uc, messagingRepo, _ := newTestMessagingUseCase(t)
	ctx := context.Background()

	conv, err := uc.StartConversation(ctx, "alice", StartConversationInput{RecipientID: "bob"})
	require.NoError(t, err)
	convID := conv.Conversation.ID

	var snapshots [][]*entity.Message
	unsubscribe, err := uc.SubscribeToMessages(ctx, "bob", convID, func(messages []*entity.Message) {
		snapshots = append(snapshots, messages)
	})
	require.NoError(t, err)
	defer unsubscribe()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Raw snapshot arrives out of order and with a duplicate ID; the stale
	// occurrence is superseded by the later one.
	messagingRepo.emitMessages(convID, []*entity.Message{
		{ID: "m2", ConversationID: convID, SenderID: "alice", Text: "second", CreatedAt: base.Add(2 * time.Second)},
		{ID: "m1", ConversationID: convID, SenderID: "alice", Text: "first (stale)", CreatedAt: base.Add(time.Second)},
		{ID: "m3", ConversationID: convID, SenderID: "bob", Text: "third", CreatedAt: base.Add(3 * time.Second)},
		{ID: "m1", ConversationID: convID, SenderID: "alice", Text: "first", CreatedAt: base.Add(time.Second)},
	})

	require.Len(t, snapshots, 1)
	got := snapshots[0]
	require.Len(t, got, 3)
	assert.Equal(t, "m1", got[0].ID)
	assert.Equal(t, "first", got[0].Text)
	assert.Equal(t, "m2", got[1].ID)
	assert.Equal(t, "m3", got[2].ID)
}

func TestSubscribeToMessagesStableForSameTimestamp(t *testing.T) {
	uc, messagingRepo, _ := newTestMessagingUseCase(t)
	ctx := context.Background()

	conv, err := uc.StartConversation(ctx, "alice", StartConversationInput{RecipientID: "bob"})
	require.NoError(t, err)
	convID := conv.Conversation.ID

	var snapshots [][]*entity.Message
	unsubscribe, err := uc.SubscribeToMessages(ctx, "alice", convID, func(messages []*entity.Message) {
		snapshots = append(snapshots, messages)
	})
	require.NoError(t, err)
	defer unsubscribe()

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	same := []*entity.Message{
		{ID: "a", ConversationID: convID, SenderID: "alice", Text: "tie one", CreatedAt: at},
		{ID: "b", ConversationID: convID, SenderID: "bob", Text: "tie two", CreatedAt: at},
	}

	messagingRepo.emitMessages(convID, same)
	messagingRepo.emitMessages(convID, same)

	require.Len(t, snapshots, 2)
	// Messages sharing a timestamp keep their relative order across snapshots.
	assert.Equal(t, snapshots[0][0].ID, snapshots[1][0].ID)
	assert.Equal(t, snapshots[0][1].ID, snapshots[1][1].ID)
}

func TestSubscribeToMessagesNonParticipantRejected(t *testing.T) {
	uc, _, _ := newTestMessagingUseCase(t)
	ctx := context.Background()

	conv, err := uc.StartConversation(ctx, "alice", StartConversationInput{RecipientID: "bob"})
	require.NoError(t, err)

	_, err = uc.SubscribeToMessages(ctx, "carol", conv.Conversation.ID, func([]*entity.Message) {})
	require.Error(t, err)
	assert.True(t, errors.Is(err, "FORBIDDEN"))
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	uc, messagingRepo, _ := newTestMessagingUseCase(t)
	ctx := context.Background()

	conv, err := uc.StartConversation(ctx, "alice", StartConversationInput{RecipientID: "bob"})
	require.NoError(t, err)
	convID := conv.Conversation.ID

	var calls int
	unsubscribe, err := uc.SubscribeToMessages(ctx, "alice", convID, func([]*entity.Message) {
		calls++
	})
	require.NoError(t, err)

	messagingRepo.emitMessages(convID, []*entity.Message{
		{ID: "m1", ConversationID: convID, SenderID: "bob", Text: "before", CreatedAt: time.Now()},
	})
	require.Equal(t, 1, calls)

	unsubscribe()

	messagingRepo.emitMessages(convID, []*entity.Message{
		{ID: "m2", ConversationID: convID, SenderID: "bob", Text: "after", CreatedAt: time.Now()},
	})
	assert.Equal(t, 1, calls, "no delivery after unsubscribe")

	// Unsubscribing twice is harmless.
	unsubscribe()
}

func TestSubscribeToConversationsOrdersByActivity(t *testing.T) {
	uc, messagingRepo, _ := newTestMessagingUseCase(t)
	ctx := context.Background()

	var snapshots [][]*entity.Conversation
	unsubscribe, err := uc.SubscribeToConversations(ctx, "alice", func(conversations []*entity.Conversation) {
		snapshots = append(snapshots, conversations)
	})
	require.NoError(t, err)
	defer unsubscribe()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	messagingRepo.emitConversations("alice", []*entity.Conversation{
		{ID: "alice_bob", Participants: []string{"alice", "bob"}, UpdatedAt: base.Add(time.Minute)},
		{ID: "alice_carol", Participants: []string{"alice", "carol"}, UpdatedAt: base.Add(2 * time.Minute)},
		{ID: "alice_bob", Participants: []string{"alice", "bob"}, UpdatedAt: base.Add(time.Minute)},
	})

	require.Len(t, snapshots, 1)
	got := snapshots[0]
	require.Len(t, got, 2)
	assert.Equal(t, "alice_carol", got[0].ID)
	assert.Equal(t, "alice_bob", got[1].ID)
}
