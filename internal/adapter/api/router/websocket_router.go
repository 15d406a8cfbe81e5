package router

import (
	"github.com/labstack/echo/v4"

	"carlink/internal/adapter/api/handler"
)

func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler) {
	e.GET("/v1/ws", wsHandler.Handle) // Auth via token query parameter
}
