package router

import (
	"github.com/labstack/echo/v4"

	"carlink/internal/adapter/api/handler"
	"carlink/internal/adapter/api/middleware"
)

// SetupChatRouter sets up all conversation routes (excluding WebSocket)
func SetupChatRouter(e *echo.Echo, chatHandler *handler.ChatHandler, authMiddleware *middleware.AuthMiddleware) {
	group := e.Group("/v1/conversations")
	group.Use(authMiddleware.Authenticate)

	group.POST("", chatHandler.CreateConversation)    // POST /v1/conversations
	group.GET("", chatHandler.ListConversations)      // GET /v1/conversations
	group.GET("/:id", chatHandler.GetConversation)    // GET /v1/conversations/:id
	group.PUT("/:id/read", chatHandler.MarkRead)      // PUT /v1/conversations/:id/read
	group.GET("/:id/messages", chatHandler.GetMessages)  // GET /v1/conversations/:id/messages?cursor=
	group.POST("/:id/messages", chatHandler.SendMessage) // POST /v1/conversations/:id/messages
}
