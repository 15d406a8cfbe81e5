// Package assistant holds the remote assistant client. The service never
// exposes assistant failures to the user; callers substitute a fallback turn.
package assistant

import (
	"context"
	"encoding/json"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"carlink/internal/domain/entity"
)

const systemPrompt = `You are a car shopping assistant for the Carlink marketplace.
Answer the user's questions about vehicles, financing, and dealers.
Respond with a JSON object of the form {"reply": "<your answer>", "vehicle_ids": ["<id>", ...]}
where vehicle_ids lists the ids of marketplace vehicles you reference, or [] if none.`

type OpenAIResponder struct {
	client *openai.Client
	model  string
}

func NewOpenAIResponder(apiKey, model string) *OpenAIResponder {
	return &OpenAIResponder{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (r *OpenAIResponder) Reply(ctx context.Context, history []entity.ChatTurn, text string) (*entity.AssistantReply, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Origin == entity.TurnOriginAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: turn.Text,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: text,
	})

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    r.model,
		Messages: messages,
	})
	if err != nil {
		return nil, err
	}

	var content string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}

	return parseReply(content), nil
}

// parseReply extracts the structured reply. Models occasionally ignore the
// JSON instruction or wrap it in a code fence; fall back to the raw text.
func parseReply(content string) *entity.AssistantReply {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var parsed struct {
		Reply      string   `json:"reply"`
		VehicleIDs []string `json:"vehicle_ids"`
	}
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil && parsed.Reply != "" {
		return &entity.AssistantReply{
			Text:       parsed.Reply,
			VehicleIDs: parsed.VehicleIDs,
		}
	}

	return &entity.AssistantReply{Text: content}
}
