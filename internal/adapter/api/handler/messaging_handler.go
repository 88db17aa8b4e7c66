package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"rentline/internal/usecase"
	"rentline/pkg/response"
	"rentline/pkg/utils"
)

type MessagingHandler struct {
	messagingUseCase *usecase.MessagingUseCase
}

func NewMessagingHandler(messagingUseCase *usecase.MessagingUseCase) *MessagingHandler {
	return &MessagingHandler{
		messagingUseCase: messagingUseCase,
	}
}

type startConversationRequest struct {
	RecipientID    string `json:"recipient_id" validate:"required"`
	ListingID      string `json:"listing_id"`
	InitialMessage string `json:"initial_message"`
}

type sendMessageRequest struct {
	Text string `json:"text" validate:"required"`
	Type string `json:"type" validate:"omitempty,oneof=text image file"`
}

// StartConversation finds or creates the conversation between the caller and
// the recipient.
func (h *MessagingHandler) StartConversation(c echo.Context) error {
	var req startConversationRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	conversation, err := h.messagingUseCase.StartConversation(c.Request().Context(), userID, usecase.StartConversationInput{
		RecipientID:    req.RecipientID,
		ListingID:      req.ListingID,
		InitialMessage: req.InitialMessage,
	})

	if err != nil {
		return response.Error(c, err)
	}

	if conversation.IsNew {
		return response.Created(c, conversation)
	}
	return response.Success(c, conversation)
}

// ListConversations returns the caller's inbox, most recently active first.
func (h *MessagingHandler) ListConversations(c echo.Context) error {
	userID := c.Get("uid").(string)
	pagination := utils.GetPaginationParams(c)

	conversations, total, err := h.messagingUseCase.ListConversations(c.Request().Context(), userID, pagination.Limit, pagination.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.SuccessPaginated(c, conversations, total, pagination.Limit, pagination.Offset)
}

// GetConversation returns one conversation the caller participates in.
func (h *MessagingHandler) GetConversation(c echo.Context) error {
	conversationID := c.Param("id")
	userID := c.Get("uid").(string)

	conversation, err := h.messagingUseCase.GetConversation(c.Request().Context(), userID, conversationID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conversation)
}

// SendMessage appends a message to the conversation.
func (h *MessagingHandler) SendMessage(c echo.Context) error {
	conversationID := c.Param("id")
	userID := c.Get("uid").(string)

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	message, err := h.messagingUseCase.SendMessage(c.Request().Context(), userID, usecase.SendMessageInput{
		ConversationID: conversationID,
		Text:           req.Text,
		Type:           req.Type,
	})

	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

// ListMessages returns a page of the conversation's messages. Pass order=desc
// to page newest-first.
func (h *MessagingHandler) ListMessages(c echo.Context) error {
	conversationID := c.Param("id")
	userID := c.Get("uid").(string)
	pagination := utils.GetPaginationParams(c)
	descending := c.QueryParam("order") == "desc"

	messages, total, err := h.messagingUseCase.ListMessages(c.Request().Context(), userID, conversationID, pagination.Limit, pagination.Offset, descending)
	if err != nil {
		return response.Error(c, err)
	}

	return response.SuccessPaginated(c, messages, total, pagination.Limit, pagination.Offset)
}

// MarkConversationRead marks every message in the conversation as read by the
// caller and resets their unread counter.
func (h *MessagingHandler) MarkConversationRead(c echo.Context) error {
	conversationID := c.Param("id")
	userID := c.Get("uid").(string)

	if err := h.messagingUseCase.MarkConversationRead(c.Request().Context(), userID, conversationID); err != nil {
		return response.Error(c, err)
	}

	return c.NoContent(http.StatusOK)
}

// DeleteMessage removes a message from a conversation. Admin only.
func (h *MessagingHandler) DeleteMessage(c echo.Context) error {
	conversationID := c.Param("id")
	messageID := c.Param("messageId")

	if err := h.messagingUseCase.DeleteMessage(c.Request().Context(), conversationID, messageID); err != nil {
		return response.Error(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
