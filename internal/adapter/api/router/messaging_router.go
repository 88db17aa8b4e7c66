package router

import (
	"github.com/labstack/echo/v4"

	"rentline/internal/adapter/api/handler"
	"rentline/internal/adapter/api/middleware"
)

// SetupMessagingRouter sets up the conversation and message routes
// (excluding WebSocket).
func SetupMessagingRouter(e *echo.Echo, messagingHandler *handler.MessagingHandler, authMiddleware *middleware.AuthMiddleware, adminMiddleware *middleware.AdminMiddleware) {
	conversations := e.Group("/v1/conversations")
	conversations.Use(authMiddleware.Authenticate)

	conversations.POST("", messagingHandler.StartConversation)          // POST /v1/conversations - find or create a conversation
	conversations.GET("", messagingHandler.ListConversations)           // GET /v1/conversations - inbox
	conversations.GET("/:id", messagingHandler.GetConversation)         // GET /v1/conversations/:id
	conversations.PUT("/:id/read", messagingHandler.MarkConversationRead) // PUT /v1/conversations/:id/read

	conversations.POST("/:id/messages", messagingHandler.SendMessage) // POST /v1/conversations/:id/messages
	conversations.GET("/:id/messages", messagingHandler.ListMessages) // GET /v1/conversations/:id/messages

	adminConversations := e.Group("/v1/admin/conversations")
	adminConversations.Use(authMiddleware.Authenticate)
	adminConversations.Use(adminMiddleware.AdminOnly)
	adminConversations.DELETE("/:id/messages/:messageId", messagingHandler.DeleteMessage)
}
