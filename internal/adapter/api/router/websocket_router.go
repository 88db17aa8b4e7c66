package router

import (
	"github.com/labstack/echo/v4"

	"rentline/internal/adapter/api/handler"
)

// SetupWebSocketRouter sets up the real-time endpoint. Auth happens inside
// the handler because the token arrives as a query parameter.
func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler) {
	e.GET("/ws", wsHandler.HandleWebSocket)
}
