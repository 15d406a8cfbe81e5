package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"carlink/internal/usecase"
	"carlink/pkg/response"
	"carlink/pkg/utils"
)

type ChatHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
	}
}

type createConversationRequest struct {
	RecipientID    string `json:"recipient_id" validate:"required"`
	VehicleID      string `json:"vehicle_id"`
	InitialMessage string `json:"initial_message"`
}

type sendMessageRequest struct {
	Content       string `json:"content" validate:"required"`
	AttachmentURL string `json:"attachment_url,omitempty" validate:"omitempty,url"`
}

// CreateConversation starts (or resumes) a conversation with another party
func (h *ChatHandler) CreateConversation(c echo.Context) error {
	var req createConversationRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	conversation, err := h.chatUseCase.CreateConversation(c.Request().Context(), userID, usecase.CreateConversationInput{
		RecipientID:    req.RecipientID,
		VehicleID:      req.VehicleID,
		InitialMessage: req.InitialMessage,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, conversation)
}

// ListConversations returns the authenticated user's inbox
func (h *ChatHandler) ListConversations(c echo.Context) error {
	userID := c.Get("uid").(string)
	params := utils.ListParamsFromRequest(c)

	conversations, total, err := h.chatUseCase.ListConversations(c.Request().Context(), userID, params.Limit, params.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, conversations, total, params.Page, params.Limit)
}

// GetConversation returns one conversation with participant and vehicle info
func (h *ChatHandler) GetConversation(c echo.Context) error {
	userID := c.Get("uid").(string)
	conversationID := c.Param("id")

	conversation, err := h.chatUseCase.GetConversation(c.Request().Context(), userID, conversationID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conversation)
}

// GetMessages returns one page of the conversation history. The cursor query
// parameter continues from a previous page; omit it to start over.
func (h *ChatHandler) GetMessages(c echo.Context) error {
	userID := c.Get("uid").(string)
	conversationID := c.Param("id")
	cursor := c.QueryParam("cursor")

	limit := 0
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	page, err := h.chatUseCase.GetMessages(c.Request().Context(), userID, conversationID, cursor, limit)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, page)
}

// MarkRead records the viewer's read marker for the conversation
func (h *ChatHandler) MarkRead(c echo.Context) error {
	userID := c.Get("uid").(string)
	conversationID := c.Param("id")

	if err := h.chatUseCase.MarkConversationRead(c.Request().Context(), userID, conversationID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"status": "read"})
}

// SendMessage appends a message to the conversation
func (h *ChatHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)
	conversationID := c.Param("id")

	message, err := h.chatUseCase.SendMessage(c.Request().Context(), userID, usecase.SendMessageInput{
		ConversationID: conversationID,
		Content:        req.Content,
		AttachmentURL:  req.AttachmentURL,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}
