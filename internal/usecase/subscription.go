package usecase

import (
	"context"
	"sort"
	"sync"

	"rentline/internal/domain/entity"
	"rentline/pkg/errors"
)

// The store pushes the full current result set on every change, unordered.
// This layer owns the ordering contract promised to subscribers: each
// delivered snapshot is de-duplicated by ID and fully sorted (messages
// ascending by timestamp, conversations descending by last activity) before
// the callback runs. Each snapshot supersedes the previous one in full; no
// buffering or coalescing happens here.

// SubscribeToMessages streams ordered message snapshots for a conversation
// until the returned unsubscribe func is called or ctx is done. After
// unsubscribe returns, onUpdate is not invoked again.
func (uc *MessagingUseCase) SubscribeToMessages(ctx context.Context, userID, conversationID string, onUpdate func([]*entity.Message)) (func(), error) {
	conversation, err := uc.messagingRepo.GetConversationByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(userID) {
		return nil, errors.Forbidden("User is not a participant in this conversation", nil)
	}

	var mu sync.Mutex
	closed := false

	stop, err := uc.messagingRepo.WatchMessages(ctx, conversationID, func(messages []*entity.Message) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		onUpdate(orderMessages(messages))
	})
	if err != nil {
		return nil, err
	}

	return func() {
		mu.Lock()
		closed = true
		mu.Unlock()
		stop()
	}, nil
}

// SubscribeToConversations streams ordered inbox snapshots for a user until
// the returned unsubscribe func is called or ctx is done.
func (uc *MessagingUseCase) SubscribeToConversations(ctx context.Context, userID string, onUpdate func([]*entity.Conversation)) (func(), error) {
	var mu sync.Mutex
	closed := false

	stop, err := uc.messagingRepo.WatchConversations(ctx, userID, func(conversations []*entity.Conversation) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		onUpdate(orderConversations(conversations))
	})
	if err != nil {
		return nil, err
	}

	return func() {
		mu.Lock()
		closed = true
		mu.Unlock()
		stop()
	}, nil
}

// orderMessages de-duplicates by ID (last occurrence wins) and sorts by
// timestamp ascending. The sort is stable, so messages sharing a timestamp
// tick keep a consistent relative order across snapshots.
func orderMessages(messages []*entity.Message) []*entity.Message {
	seen := make(map[string]int, len(messages))
	deduped := make([]*entity.Message, 0, len(messages))
	for _, message := range messages {
		if i, ok := seen[message.ID]; ok {
			deduped[i] = message
			continue
		}
		seen[message.ID] = len(deduped)
		deduped = append(deduped, message)
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].CreatedAt.Before(deduped[j].CreatedAt)
	})
	return deduped
}

// orderConversations de-duplicates by ID and sorts by last activity, newest
// first, for inbox display.
func orderConversations(conversations []*entity.Conversation) []*entity.Conversation {
	seen := make(map[string]int, len(conversations))
	deduped := make([]*entity.Conversation, 0, len(conversations))
	for _, conversation := range conversations {
		if i, ok := seen[conversation.ID]; ok {
			deduped[i] = conversation
			continue
		}
		seen[conversation.ID] = len(deduped)
		deduped = append(deduped, conversation)
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].UpdatedAt.After(deduped[j].UpdatedAt)
	})
	return deduped
}
