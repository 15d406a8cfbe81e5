package router

import (
	"github.com/labstack/echo/v4"

	"carlink/internal/adapter/api/handler"
	"carlink/internal/adapter/api/middleware"
)

func SetupAssistantRouter(e *echo.Echo, assistantHandler *handler.AssistantHandler, authMiddleware *middleware.AuthMiddleware) {
	group := e.Group("/v1/assistant")
	group.Use(authMiddleware.Authenticate)

	group.GET("", assistantHandler.GetTranscript)        // GET /v1/assistant
	group.POST("/messages", assistantHandler.SendTurn)   // POST /v1/assistant/messages
	group.POST("/activity", assistantHandler.RecordActivity) // POST /v1/assistant/activity (foreground ping)
	group.DELETE("", assistantHandler.Clear)             // DELETE /v1/assistant
}
