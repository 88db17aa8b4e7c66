package handler

import (
	"context"
	"net/http"
	"sync"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"rentline/internal/adapter/api/middleware"
	"rentline/internal/domain/entity"
	ws "rentline/internal/infrastructure/websocket"
	"rentline/internal/usecase"
	"rentline/pkg/errors"
	"rentline/pkg/logger"
)

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // restrict in production
	},
}

// clientSession holds the live store subscriptions belonging to one
// connected client.
type clientSession struct {
	cancel      context.CancelFunc
	inboxCancel func()
	roomCancels map[string]func()
}

type WebSocketHandler struct {
	wsManager        *ws.Manager
	authMiddleware   *middleware.AuthMiddleware
	messagingUseCase *usecase.MessagingUseCase

	sessions map[*ws.Client]*clientSession
	mu       sync.Mutex
}

func NewWebSocketHandler(wsManager *ws.Manager, authMiddleware *middleware.AuthMiddleware, messagingUseCase *usecase.MessagingUseCase) *WebSocketHandler {
	h := &WebSocketHandler{
		wsManager:        wsManager,
		authMiddleware:   authMiddleware,
		messagingUseCase: messagingUseCase,
		sessions:         make(map[*ws.Client]*clientSession),
	}
	wsManager.SetEventHandler(h)
	return h
}

// HandleWebSocket authenticates the connection and hands it to the manager.
// Browsers cannot set headers on WebSocket upgrades, so the ID token arrives
// as a query parameter.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return errors.Unauthorized("Authentication token is required", nil)
	}

	userID, err := h.authMiddleware.GetUIDFromToken(c.Request().Context(), token)
	if err != nil {
		return errors.Unauthorized("Invalid or expired token", err)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return errors.Internal("Failed to upgrade connection", err)
	}

	client := &ws.Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 256),
	}

	h.wsManager.Register <- client

	go client.ReadPump(h.wsManager)
	go client.WritePump()

	return nil
}

// OnConnect opens the client's inbox subscription. Every inbox change (new
// message previews, unread counters) is pushed as a full snapshot.
func (h *WebSocketHandler) OnConnect(client *ws.Client) {
	ctx, cancel := context.WithCancel(context.Background())
	session := &clientSession{
		cancel:      cancel,
		roomCancels: make(map[string]func()),
	}

	inboxCancel, err := h.messagingUseCase.SubscribeToConversations(ctx, client.UserID, func(conversations []*entity.Conversation) {
		h.wsManager.SendToUser(client.UserID, ws.Marshal(ws.EventInboxSnapshot, "", conversations))
	})
	if err != nil {
		logger.Error("Inbox subscription failed for user %s: %v", client.UserID, err)
		cancel()
		h.wsManager.SendToUser(client.UserID, ws.Marshal(ws.EventError, "", map[string]string{"error": "Failed to subscribe to inbox"}))
		return
	}
	session.inboxCancel = inboxCancel

	h.mu.Lock()
	h.sessions[client] = session
	h.mu.Unlock()

	logger.Debug("WebSocket client connected: %s", client.UserID)
}

// OnDisconnect tears down every subscription the client holds.
func (h *WebSocketHandler) OnDisconnect(client *ws.Client) {
	h.mu.Lock()
	session, ok := h.sessions[client]
	delete(h.sessions, client)
	h.mu.Unlock()

	if !ok {
		return
	}

	if session.inboxCancel != nil {
		session.inboxCancel()
	}
	for _, cancel := range session.roomCancels {
		cancel()
	}
	session.cancel()

	logger.Debug("WebSocket client disconnected: %s", client.UserID)
}

// OnJoinConversation subscribes the client to the conversation's message
// stream. Each change pushes the full ordered message list.
func (h *WebSocketHandler) OnJoinConversation(client *ws.Client, conversationID string) {
	h.mu.Lock()
	session, ok := h.sessions[client]
	h.mu.Unlock()
	if !ok {
		return
	}

	ctx := context.Background()
	roomCancel, err := h.messagingUseCase.SubscribeToMessages(ctx, client.UserID, conversationID, func(messages []*entity.Message) {
		h.wsManager.SendToUser(client.UserID, ws.Marshal(ws.EventMessageSnapshot, conversationID, messages))
	})
	if err != nil {
		h.wsManager.SendToUser(client.UserID, ws.Marshal(ws.EventError, conversationID, map[string]string{"error": "Failed to join conversation"}))
		return
	}

	h.mu.Lock()
	if prev, exists := session.roomCancels[conversationID]; exists {
		prev()
	}
	session.roomCancels[conversationID] = roomCancel
	h.mu.Unlock()

	h.wsManager.JoinConversation(conversationID, client)
}

// OnLeaveConversation drops the message stream subscription.
func (h *WebSocketHandler) OnLeaveConversation(client *ws.Client, conversationID string) {
	h.mu.Lock()
	session, ok := h.sessions[client]
	var roomCancel func()
	if ok {
		roomCancel = session.roomCancels[conversationID]
		delete(session.roomCancels, conversationID)
	}
	h.mu.Unlock()

	if roomCancel != nil {
		roomCancel()
	}

	h.wsManager.LeaveConversation(conversationID, client)
}

func (h *WebSocketHandler) OnTyping(client *ws.Client, conversationID string, isTyping bool) {
	h.messagingUseCase.HandleTyping(context.Background(), client.UserID, conversationID, isTyping)
}

func (h *WebSocketHandler) OnMarkRead(client *ws.Client, conversationID string) {
	if err := h.messagingUseCase.MarkConversationRead(context.Background(), client.UserID, conversationID); err != nil {
		logger.Warn("mark_read failed for user %s in conversation %s: %v", client.UserID, conversationID, err)
		h.wsManager.SendToUser(client.UserID, ws.Marshal(ws.EventError, conversationID, map[string]string{"error": "Failed to mark conversation read"}))
	}
}
