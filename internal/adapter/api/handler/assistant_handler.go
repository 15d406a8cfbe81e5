package handler

import (
	"github.com/labstack/echo/v4"

	"carlink/internal/usecase"
	"carlink/pkg/response"
)

type AssistantHandler struct {
	assistantUseCase *usecase.AssistantUseCase
}

func NewAssistantHandler(assistantUseCase *usecase.AssistantUseCase) *AssistantHandler {
	return &AssistantHandler{
		assistantUseCase: assistantUseCase,
	}
}

type assistantTurnRequest struct {
	Text string `json:"text" validate:"required"`
}

// GetTranscript returns the user's current assistant transcript
func (h *AssistantHandler) GetTranscript(c echo.Context) error {
	userID := c.Get("uid").(string)
	return response.Success(c, h.assistantUseCase.Transcript(userID))
}

// SendTurn sends a user turn and returns the updated transcript
func (h *AssistantHandler) SendTurn(c echo.Context) error {
	var req assistantTurnRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	transcript, err := h.assistantUseCase.SendTurn(c.Request().Context(), userID, req.Text)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, transcript)
}

// RecordActivity is the app-foreground ping driving the idle heuristic
func (h *AssistantHandler) RecordActivity(c echo.Context) error {
	userID := c.Get("uid").(string)
	h.assistantUseCase.RecordActivity(userID)
	return response.Success(c, map[string]string{"status": "recorded"})
}

// Clear resets the transcript to the greeting and drops persisted history
func (h *AssistantHandler) Clear(c echo.Context) error {
	userID := c.Get("uid").(string)
	return response.Success(c, h.assistantUseCase.Clear(userID))
}
