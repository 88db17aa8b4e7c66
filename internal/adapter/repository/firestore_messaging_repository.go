package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"rentline/internal/domain/entity"
	"rentline/internal/domain/repository"
	"rentline/pkg/errors"
	"rentline/pkg/logger"
)

type firestoreMessagingRepository struct {
	client *firestore.Client
}

func NewFirestoreMessagingRepository(client *firestore.Client) repository.MessagingRepository {
	return &firestoreMessagingRepository{
		client: client,
	}
}

func (r *firestoreMessagingRepository) conversationRef(id string) *firestore.DocumentRef {
	return r.client.Collection("conversations").Doc(id)
}

func (r *firestoreMessagingRepository) messageRef(conversationID, messageID string) *firestore.DocumentRef {
	return r.conversationRef(conversationID).Collection("messages").Doc(messageID)
}

func (r *firestoreMessagingRepository) CreateConversation(ctx context.Context, conversation *entity.Conversation) error {
	if conversation.ID == "" {
		conversation.ID = entity.ConversationID(conversation.Participants[0], conversation.Participants[1])
	}

	// Zero timestamps let the serverTimestamp tags assign store time on write.
	conversation.CreatedAt = time.Time{}
	conversation.UpdatedAt = time.Time{}

	docRef := r.conversationRef(conversation.ID)
	if _, err := docRef.Create(ctx, conversation); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return errors.Conflict("Conversation already exists")
		}
		return errors.Store("Failed to create conversation", err)
	}

	// Read back so the caller sees the server-assigned timestamps.
	doc, err := docRef.Get(ctx)
	if err != nil {
		return errors.Store("Failed to read back conversation", err)
	}
	if err := doc.DataTo(conversation); err != nil {
		return errors.Store("Failed to parse conversation data", err)
	}

	return nil
}

func (r *firestoreMessagingRepository) GetConversationByID(ctx context.Context, id string) (*entity.Conversation, error) {
	doc, err := r.conversationRef(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Conversation", err)
		}
		return nil, errors.Store("Failed to get conversation", err)
	}

	var conversation entity.Conversation
	if err := doc.DataTo(&conversation); err != nil {
		return nil, errors.Store("Failed to parse conversation data", err)
	}

	return &conversation, nil
}

func (r *firestoreMessagingRepository) ListConversationsByUserID(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	// Equality-free query on purpose: array-contains only, no OrderBy, so no
	// composite index is required. Callers sort in memory.
	query := r.client.Collection("conversations").Where("participants", "array-contains", userID)

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while fetching conversations for user %s: %v", userID, err)
		return nil, errors.Store("Failed to fetch conversations", err)
	}

	var conversations []*entity.Conversation
	for _, doc := range docs {
		var conversation entity.Conversation
		if err := doc.DataTo(&conversation); err != nil {
			logger.Warn("Skipping malformed conversation document %s: %v", doc.Ref.ID, err)
			continue
		}
		conversations = append(conversations, &conversation)
	}

	return conversations, nil
}

func (r *firestoreMessagingRepository) UpdateConversation(ctx context.Context, conversation *entity.Conversation) error {
	conversation.UpdatedAt = time.Time{}

	if _, err := r.conversationRef(conversation.ID).Set(ctx, conversation); err != nil {
		return errors.Store("Failed to update conversation", err)
	}

	return nil
}

// AppendMessage writes the message and refreshes the parent conversation's
// summary fields (last message cache, recipient unread counters) in a single
// transaction, so a crash can never leave one without the other.
func (r *firestoreMessagingRepository) AppendMessage(ctx context.Context, message *entity.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	message.CreatedAt = time.Time{}

	convRef := r.conversationRef(message.ConversationID)
	msgRef := r.messageRef(message.ConversationID, message.ID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(convRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Conversation", err)
			}
			return err
		}

		var conversation entity.Conversation
		if err := doc.DataTo(&conversation); err != nil {
			return err
		}

		unread := conversation.UnreadCount
		if unread == nil {
			unread = make(map[string]int)
		}
		for _, participantID := range conversation.Participants {
			if participantID != message.SenderID {
				unread[participantID]++
			}
		}

		if err := tx.Create(msgRef, message); err != nil {
			return err
		}

		return tx.Set(convRef, map[string]interface{}{
			"lastMessageText": message.Text,
			"lastMessageAt":   firestore.ServerTimestamp,
			"updatedAt":       firestore.ServerTimestamp,
			"unreadCount":     unread,
		}, firestore.MergeAll)
	})
	if err != nil {
		if errors.Is(err, "NOT_FOUND") {
			return err
		}
		return errors.Store("Failed to append message", err)
	}

	doc, err := msgRef.Get(ctx)
	if err != nil {
		return errors.Store("Failed to read back message", err)
	}
	if err := doc.DataTo(message); err != nil {
		return errors.Store("Failed to parse message data", err)
	}

	return nil
}

func (r *firestoreMessagingRepository) GetMessageByID(ctx context.Context, conversationID, messageID string) (*entity.Message, error) {
	doc, err := r.messageRef(conversationID, messageID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Message", err)
		}
		return nil, errors.Store("Failed to get message", err)
	}

	var message entity.Message
	if err := doc.DataTo(&message); err != nil {
		return nil, errors.Store("Failed to parse message data", err)
	}

	return &message, nil
}

func (r *firestoreMessagingRepository) ListMessages(ctx context.Context, conversationID string) ([]*entity.Message, error) {
	// No OrderBy: the query filters by conversation only and the caller sorts
	// by timestamp in memory.
	iter := r.conversationRef(conversationID).Collection("messages").Documents(ctx)

	var messages []*entity.Message
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Error("Firestore error while iterating messages for conversation %s: %v", conversationID, err)
			return nil, errors.Store("Failed to iterate messages", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			return nil, errors.Store("Failed to parse message data", err)
		}
		messages = append(messages, &message)
	}

	return messages, nil
}

func (r *firestoreMessagingRepository) UpdateMessage(ctx context.Context, message *entity.Message) error {
	if _, err := r.messageRef(message.ConversationID, message.ID).Set(ctx, message); err != nil {
		return errors.Store("Failed to update message", err)
	}
	return nil
}

func (r *firestoreMessagingRepository) DeleteMessage(ctx context.Context, conversationID, messageID string) error {
	if _, err := r.messageRef(conversationID, messageID).Delete(ctx); err != nil {
		return errors.Store("Failed to delete message", err)
	}
	return nil
}

func (r *firestoreMessagingRepository) WatchMessages(ctx context.Context, conversationID string, fn func([]*entity.Message)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	snapshots := r.conversationRef(conversationID).Collection("messages").Snapshots(ctx)

	go func() {
		defer snapshots.Stop()
		for {
			snap, err := snapshots.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled {
					logger.Error("Message snapshot stream for conversation %s ended: %v", conversationID, err)
				}
				return
			}

			docs, err := snap.Documents.GetAll()
			if err != nil {
				logger.Error("Failed to read message snapshot for conversation %s: %v", conversationID, err)
				continue
			}

			var messages []*entity.Message
			for _, doc := range docs {
				var message entity.Message
				if err := doc.DataTo(&message); err != nil {
					logger.Warn("Skipping malformed message document %s: %v", doc.Ref.ID, err)
					continue
				}
				messages = append(messages, &message)
			}

			fn(messages)
		}
	}()

	return cancel, nil
}

func (r *firestoreMessagingRepository) WatchConversations(ctx context.Context, userID string, fn func([]*entity.Conversation)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	query := r.client.Collection("conversations").Where("participants", "array-contains", userID)
	snapshots := query.Snapshots(ctx)

	go func() {
		defer snapshots.Stop()
		for {
			snap, err := snapshots.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled {
					logger.Error("Conversation snapshot stream for user %s ended: %v", userID, err)
				}
				return
			}

			docs, err := snap.Documents.GetAll()
			if err != nil {
				logger.Error("Failed to read conversation snapshot for user %s: %v", userID, err)
				continue
			}

			var conversations []*entity.Conversation
			for _, doc := range docs {
				var conversation entity.Conversation
				if err := doc.DataTo(&conversation); err != nil {
					logger.Warn("Skipping malformed conversation document %s: %v", doc.Ref.ID, err)
					continue
				}
				conversations = append(conversations, &conversation)
			}

			fn(conversations)
		}
	}()

	return cancel, nil
}
