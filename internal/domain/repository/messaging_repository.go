package repository

import (
	"context"

	"rentline/internal/domain/entity"
)

// MessagingRepository is the document-store surface the messaging core needs.
// Implementations deliver raw, unordered result sets; ordering is applied by
// the caller so the store never needs a composite index.
type MessagingRepository interface {
	CreateConversation(ctx context.Context, conversation *entity.Conversation) error
	GetConversationByID(ctx context.Context, id string) (*entity.Conversation, error)
	ListConversationsByUserID(ctx context.Context, userID string) ([]*entity.Conversation, error)
	UpdateConversation(ctx context.Context, conversation *entity.Conversation) error

	// AppendMessage writes the message and the parent conversation's summary
	// fields (last message cache, unread counters, updatedAt) atomically.
	AppendMessage(ctx context.Context, message *entity.Message) error
	GetMessageByID(ctx context.Context, conversationID, messageID string) (*entity.Message, error)
	ListMessages(ctx context.Context, conversationID string) ([]*entity.Message, error)
	UpdateMessage(ctx context.Context, message *entity.Message) error
	DeleteMessage(ctx context.Context, conversationID, messageID string) error

	// WatchMessages and WatchConversations invoke fn with the full current
	// result set every time any matching document changes, until the returned
	// stop func is called or ctx is done. Result sets are unordered.
	WatchMessages(ctx context.Context, conversationID string, fn func([]*entity.Message)) (func(), error)
	WatchConversations(ctx context.Context, userID string, fn func([]*entity.Conversation)) (func(), error)
}
