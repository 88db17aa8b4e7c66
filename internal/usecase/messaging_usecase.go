package usecase

import (
	"context"
	"strings"
	"time"

	"rentline/internal/domain/entity"
	"rentline/internal/domain/repository"
	"rentline/internal/infrastructure/ratelimit"
	ws "rentline/internal/infrastructure/websocket"
	"rentline/pkg/errors"
	"rentline/pkg/logger"
)

// Notifier pushes real-time payloads to connected clients. Satisfied by
// *websocket.Manager; replaced with a fake in tests.
type Notifier interface {
	SendToUser(userID string, payload []byte)
	SendToConversation(conversationID string, payload []byte, excludeUserID string)
}

type MessagingUseCase struct {
	messagingRepo repository.MessagingRepository
	userRepo      repository.UserRepository
	listingRepo   repository.ListingRepository
	notifier      Notifier
	rateLimiter   *ratelimit.RateLimiter
}

func NewMessagingUseCase(
	messagingRepo repository.MessagingRepository,
	userRepo repository.UserRepository,
	listingRepo repository.ListingRepository,
	notifier Notifier,
) *MessagingUseCase {
	rateLimiter := ratelimit.NewRateLimiter()
	rateLimiter.StartCleanupRoutine()

	return &MessagingUseCase{
		messagingRepo: messagingRepo,
		userRepo:      userRepo,
		listingRepo:   listingRepo,
		notifier:      notifier,
		rateLimiter:   rateLimiter,
	}
}

type StartConversationInput struct {
	RecipientID    string
	ListingID      string
	InitialMessage string
}

type SendMessageInput struct {
	ConversationID string
	Text           string
	Type           string
}

type ConversationResponse struct {
	*entity.Conversation
	IsNew     bool            `json:"is_new"`
	Listing   *entity.Listing `json:"listing,omitempty"`
	OtherUser *entity.User    `json:"other_user,omitempty"`
}

type MessageResponse struct {
	*entity.Message
	Sender *entity.User `json:"sender,omitempty"`
}

// StartConversation finds or creates the conversation between the caller and
// the recipient. The conversation document's identity is derived from the
// sorted participant pair, so concurrent starts for the same pair cannot
// produce duplicates: the loser of the create race re-reads the winner's
// document.
func (uc *MessagingUseCase) StartConversation(ctx context.Context, userID string, input StartConversationInput) (*ConversationResponse, error) {
	allowed, waitTime := uc.rateLimiter.Allow(userID, "start_conversation")
	if !allowed {
		logger.Warn("StartConversation rate limited: user %s must wait %v", userID, waitTime)
		return nil, errors.TooManyRequests("Rate limit exceeded. Please wait before starting another conversation", waitTime)
	}

	if input.RecipientID == "" {
		return nil, errors.Validation("recipient_id is required", nil)
	}
	if userID == input.RecipientID {
		return nil, errors.BadRequest("You cannot start a conversation with yourself", nil)
	}

	recipient, err := uc.userRepo.GetByID(ctx, input.RecipientID)
	if err != nil {
		return nil, err
	}

	var listing *entity.Listing
	if input.ListingID != "" {
		listing, err = uc.listingRepo.GetByID(ctx, input.ListingID)
		if err != nil {
			return nil, err
		}
	}

	conversationID := entity.ConversationID(userID, input.RecipientID)
	isNew := false

	conversation, err := uc.messagingRepo.GetConversationByID(ctx, conversationID)
	switch {
	case err == nil:
		// One conversation per pair; retarget it at the latest listing being
		// discussed.
		if input.ListingID != "" && conversation.ListingID != input.ListingID {
			conversation.ListingID = input.ListingID
			if err := uc.messagingRepo.UpdateConversation(ctx, conversation); err != nil {
				logger.Warn("Failed to update conversation %s with listing %s: %v", conversationID, input.ListingID, err)
			}
		}
	case errors.Is(err, "NOT_FOUND"):
		conversation = &entity.Conversation{
			ID:           conversationID,
			Participants: []string{userID, input.RecipientID},
			ListingID:    input.ListingID,
			UnreadCount:  map[string]int{userID: 0, input.RecipientID: 0},
		}
		createErr := uc.messagingRepo.CreateConversation(ctx, conversation)
		switch {
		case createErr == nil:
			isNew = true
		case errors.Is(createErr, "CONFLICT"):
			// Lost the race; the other starter's document wins.
			conversation, err = uc.messagingRepo.GetConversationByID(ctx, conversationID)
			if err != nil {
				return nil, err
			}
		default:
			return nil, createErr
		}
	default:
		return nil, err
	}

	if input.InitialMessage != "" {
		if _, err := uc.SendMessage(ctx, userID, SendMessageInput{
			ConversationID: conversation.ID,
			Text:           input.InitialMessage,
			Type:           entity.MessageTypeText,
		}); err != nil {
			return nil, err
		}
		conversation, err = uc.messagingRepo.GetConversationByID(ctx, conversation.ID)
		if err != nil {
			return nil, err
		}
	}

	return &ConversationResponse{
		Conversation: conversation,
		IsNew:        isNew,
		Listing:      listing,
		OtherUser:    recipient,
	}, nil
}

// SendMessage appends a message to the conversation. The message write and
// the conversation summary update (last message cache, recipient unread
// increments) happen in one store transaction.
func (uc *MessagingUseCase) SendMessage(ctx context.Context, userID string, input SendMessageInput) (*MessageResponse, error) {
	allowed, waitTime := uc.rateLimiter.Allow(userID, "send_message")
	if !allowed {
		logger.Warn("SendMessage rate limited: user %s must wait %v", userID, waitTime)
		return nil, errors.TooManyRequests("Rate limit exceeded. Please wait before sending another message", waitTime)
	}

	text := strings.TrimSpace(input.Text)
	if input.ConversationID == "" {
		return nil, errors.Validation("conversation_id is required", nil)
	}
	if userID == "" {
		return nil, errors.Validation("sender_id is required", nil)
	}
	if text == "" {
		return nil, errors.Validation("text must not be blank", nil)
	}

	messageType := input.Type
	if messageType == "" {
		messageType = entity.MessageTypeText
	}

	conversation, err := uc.messagingRepo.GetConversationByID(ctx, input.ConversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(userID) {
		return nil, errors.Forbidden("User is not a participant in this conversation", nil)
	}

	message := &entity.Message{
		ConversationID: input.ConversationID,
		SenderID:       userID,
		Text:           text,
		Type:           messageType,
		Status:         entity.MessageStatusSent,
		ReadBy:         map[string]time.Time{},
	}

	if err := uc.messagingRepo.AppendMessage(ctx, message); err != nil {
		return nil, err
	}

	sender, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		logger.Warn("Sender %s not found for message %s: %v", userID, message.ID, err)
	}

	if uc.notifier != nil {
		payload := ws.Marshal(ws.EventNewMessage, input.ConversationID, &MessageResponse{Message: message, Sender: sender})
		uc.notifier.SendToConversation(input.ConversationID, payload, userID)

		inboxPayload := ws.Marshal(ws.EventInboxSnapshot, "", map[string]interface{}{
			"conversation_id":   input.ConversationID,
			"last_message_text": message.Text,
			"last_message_at":   message.CreatedAt.Format(time.RFC3339),
			"sender_id":         userID,
		})
		uc.notifier.SendToUser(conversation.OtherParticipant(userID), inboxPayload)
	}

	return &MessageResponse{Message: message, Sender: sender}, nil
}

// ListMessages returns a page of the conversation's messages ordered by
// timestamp, ascending for chat display or descending for pagination. The
// store query filters by conversation only; ordering and paging happen here.
func (uc *MessagingUseCase) ListMessages(ctx context.Context, userID, conversationID string, limit, offset int, descending bool) ([]*MessageResponse, int64, error) {
	conversation, err := uc.messagingRepo.GetConversationByID(ctx, conversationID)
	if err != nil {
		return nil, 0, err
	}
	if !conversation.HasParticipant(userID) {
		return nil, 0, errors.Forbidden("User is not a participant in this conversation", nil)
	}

	messages, err := uc.messagingRepo.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, 0, err
	}

	messages = orderMessages(messages)
	if descending {
		for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
			messages[i], messages[j] = messages[j], messages[i]
		}
	}

	total := int64(len(messages))

	start := offset
	if start > len(messages) {
		start = len(messages)
	}
	end := len(messages)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	messages = messages[start:end]

	senders := make(map[string]*entity.User)
	responses := make([]*MessageResponse, 0, len(messages))
	for _, message := range messages {
		sender, ok := senders[message.SenderID]
		if !ok {
			sender, err = uc.userRepo.GetByID(ctx, message.SenderID)
			if err != nil {
				logger.Warn("Sender %s not found for message %s: %v", message.SenderID, message.ID, err)
				sender = nil
			}
			senders[message.SenderID] = sender
		}
		responses = append(responses, &MessageResponse{Message: message, Sender: sender})
	}

	return responses, total, nil
}

// ListConversations returns the caller's inbox, most recently active first.
func (uc *MessagingUseCase) ListConversations(ctx context.Context, userID string, limit, offset int) ([]*ConversationResponse, int64, error) {
	conversations, err := uc.messagingRepo.ListConversationsByUserID(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	conversations = orderConversations(conversations)
	total := int64(len(conversations))

	start := offset
	if start > len(conversations) {
		start = len(conversations)
	}
	end := len(conversations)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	conversations = conversations[start:end]

	responses := make([]*ConversationResponse, 0, len(conversations))
	for _, conversation := range conversations {
		response := &ConversationResponse{Conversation: conversation}

		if conversation.ListingID != "" {
			if listing, err := uc.listingRepo.GetByID(ctx, conversation.ListingID); err == nil {
				response.Listing = listing
			}
		}
		if otherID := conversation.OtherParticipant(userID); otherID != "" {
			if otherUser, err := uc.userRepo.GetByID(ctx, otherID); err == nil {
				response.OtherUser = otherUser
			}
		}

		responses = append(responses, response)
	}

	return responses, total, nil
}

// GetConversation returns one conversation with its listing and counterpart
// embedded.
func (uc *MessagingUseCase) GetConversation(ctx context.Context, userID, conversationID string) (*ConversationResponse, error) {
	conversation, err := uc.messagingRepo.GetConversationByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(userID) {
		return nil, errors.Forbidden("User is not a participant in this conversation", nil)
	}

	response := &ConversationResponse{Conversation: conversation}
	if conversation.ListingID != "" {
		if listing, err := uc.listingRepo.GetByID(ctx, conversation.ListingID); err == nil {
			response.Listing = listing
		}
	}
	if otherID := conversation.OtherParticipant(userID); otherID != "" {
		if otherUser, err := uc.userRepo.GetByID(ctx, otherID); err == nil {
			response.OtherUser = otherUser
		}
	}

	return response, nil
}

// GetConversationParticipants returns the participant pair of a conversation.
func (uc *MessagingUseCase) GetConversationParticipants(ctx context.Context, conversationID string) ([]string, error) {
	conversation, err := uc.messagingRepo.GetConversationByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return conversation.Participants, nil
}

// MarkConversationRead records the caller as having read every message they
// have not read yet, then resets their unread counter. Calling it again
// immediately is a no-op: no message qualifies twice, and a sender is never
// recorded as a reader of their own messages.
func (uc *MessagingUseCase) MarkConversationRead(ctx context.Context, userID, conversationID string) error {
	conversation, err := uc.messagingRepo.GetConversationByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conversation.HasParticipant(userID) {
		return errors.Forbidden("User is not a participant in this conversation", nil)
	}

	messages, err := uc.messagingRepo.ListMessages(ctx, conversationID)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, message := range messages {
		if message.SenderID == userID || message.ReadByUser(userID) {
			continue
		}
		if message.ReadBy == nil {
			message.ReadBy = make(map[string]time.Time)
		}
		message.ReadBy[userID] = now
		message.Status = entity.MessageStatusRead
		if err := uc.messagingRepo.UpdateMessage(ctx, message); err != nil {
			return err
		}
	}

	if conversation.UnreadCount == nil {
		conversation.UnreadCount = make(map[string]int)
	}
	conversation.UnreadCount[userID] = 0
	if err := uc.messagingRepo.UpdateConversation(ctx, conversation); err != nil {
		return err
	}

	if uc.notifier != nil {
		payload := ws.Marshal(ws.EventReadReceipt, conversationID, map[string]string{"reader_id": userID})
		uc.notifier.SendToConversation(conversationID, payload, userID)
	}

	return nil
}

// DeleteMessage hard-deletes a message. Administrative action; the owning
// conversation is untouched.
func (uc *MessagingUseCase) DeleteMessage(ctx context.Context, conversationID, messageID string) error {
	if _, err := uc.messagingRepo.GetMessageByID(ctx, conversationID, messageID); err != nil {
		return err
	}
	return uc.messagingRepo.DeleteMessage(ctx, conversationID, messageID)
}

// HandleTyping relays a typing indicator to the other room occupants.
// Failures are swallowed; typing signals are fire-and-forget.
func (uc *MessagingUseCase) HandleTyping(ctx context.Context, userID, conversationID string, isTyping bool) {
	allowed, _ := uc.rateLimiter.Allow(userID, "typing")
	if !allowed {
		return
	}

	conversation, err := uc.messagingRepo.GetConversationByID(ctx, conversationID)
	if err != nil || !conversation.HasParticipant(userID) {
		return
	}

	if uc.notifier != nil {
		payload := ws.Marshal(ws.EventTypingIndicator, conversationID, map[string]interface{}{
			"user_id":   userID,
			"is_typing": isTyping,
		})
		uc.notifier.SendToConversation(conversationID, payload, userID)
	}
}
