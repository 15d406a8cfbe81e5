package handler

import (
	"log"
	"net/http"

	gws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"carlink/internal/adapter/api/middleware"
	ws "carlink/internal/infrastructure/websocket"
)

var upgrader = gws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Mobile clients connect from app webviews; origin checks happen at the
	// gateway.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebSocketHandler upgrades connections and streams chat events to the
// authenticated user. The socket is a one-way feed; sends go through HTTP.
type WebSocketHandler struct {
	manager        *ws.Manager
	authMiddleware *middleware.AuthMiddleware
}

func NewWebSocketHandler(manager *ws.Manager, authMiddleware *middleware.AuthMiddleware) *WebSocketHandler {
	return &WebSocketHandler{
		manager:        manager,
		authMiddleware: authMiddleware,
	}
}

func (h *WebSocketHandler) Handle(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Token query parameter is required")
	}

	userID, err := h.authMiddleware.VerifyToken(c.Request().Context(), token)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &ws.Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 64),
	}
	h.manager.Register <- client

	go h.writePump(client)
	go h.readPump(client)

	return nil
}

func (h *WebSocketHandler) writePump(client *ws.Client) {
	defer client.Conn.Close()
	for message := range client.Send {
		if err := client.Conn.WriteMessage(gws.TextMessage, message); err != nil {
			log.Printf("WebSocket write failed for user %s: %v", client.UserID, err)
			return
		}
	}
}

// readPump discards inbound frames; it exists to detect the close handshake.
func (h *WebSocketHandler) readPump(client *ws.Client) {
	defer func() {
		h.manager.Unregister <- client
		client.Conn.Close()
	}()
	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			return
		}
	}
}
