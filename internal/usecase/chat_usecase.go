package usecase

import (
	"context"
	"log"
	"strings"
	"time"

	"carlink/internal/domain/entity"
	"carlink/internal/domain/repository"
	"carlink/internal/infrastructure/ratelimit"
	ws "carlink/internal/infrastructure/websocket"
	"carlink/pkg/errors"
)

type ChatUseCase struct {
	conversationRepo repository.ConversationRepository
	userRepo         repository.UserRepository
	vehicleRepo      repository.VehicleRepository
	wsManager        *ws.Manager
	rateLimiter      *ratelimit.RateLimiter
}

func NewChatUseCase(
	conversationRepo repository.ConversationRepository,
	userRepo repository.UserRepository,
	vehicleRepo repository.VehicleRepository,
	wsManager *ws.Manager,
) *ChatUseCase {
	rateLimiter := ratelimit.NewRateLimiter()
	rateLimiter.StartCleanupRoutine()

	return &ChatUseCase{
		conversationRepo: conversationRepo,
		userRepo:         userRepo,
		vehicleRepo:      vehicleRepo,
		wsManager:        wsManager,
		rateLimiter:      rateLimiter,
	}
}

type CreateConversationInput struct {
	RecipientID    string
	VehicleID      string
	InitialMessage string
}

type SendMessageInput struct {
	ConversationID string
	Content        string
	AttachmentURL  string
}

type ConversationResponse struct {
	*entity.Conversation
	Vehicle   *entity.Vehicle `json:"vehicle,omitempty"`
	OtherUser *entity.User    `json:"other_user,omitempty"`
}

type MessagePageResponse struct {
	Messages   []*entity.Message `json:"messages"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// ResolveViewerRole determines the perspective a read marker is written from.
// In a user_user conversation the listed seller side reads as "seller_user";
// every other combination, including all user_dealer conversations, reads as
// "user". The same account can be buyer in one thread and seller in another.
func ResolveViewerRole(conversation *entity.Conversation, viewerID string) string {
	if conversation.Type == entity.ConversationTypeUserUser && conversation.SellerUserID == viewerID {
		return entity.ViewerRoleSellerUser
	}
	return entity.ViewerRoleUser
}

func (uc *ChatUseCase) CreateConversation(ctx context.Context, userID string, input CreateConversationInput) (*ConversationResponse, error) {
	allowed, waitTime := uc.rateLimiter.Allow(userID, "create_conversation")
	if !allowed {
		log.Printf("CreateConversation rate limited: user %s must wait %v", userID, waitTime)
		return nil, errors.TooManyRequests("Rate limit exceeded. Please wait before starting another conversation")
	}

	if userID == input.RecipientID {
		return nil, errors.BadRequest("You cannot start a conversation with yourself", nil)
	}

	recipient, err := uc.userRepo.GetByID(ctx, input.RecipientID)
	if err != nil {
		log.Printf("CreateConversation: recipient %s not found: %v", input.RecipientID, err)
		return nil, errors.NotFound("Recipient", err)
	}

	var vehicle *entity.Vehicle
	if input.VehicleID != "" {
		vehicle, err = uc.vehicleRepo.GetByID(ctx, input.VehicleID)
		if err != nil {
			log.Printf("CreateConversation: vehicle %s not found: %v", input.VehicleID, err)
			return nil, errors.NotFound("Vehicle", err)
		}
	}

	var conversation *entity.Conversation

	existing, err := uc.conversationRepo.FindByVehicleAndParticipants(ctx, input.VehicleID, []string{userID, input.RecipientID})
	if err == nil && existing != nil {
		conversation = existing
	} else {
		if err != nil && !errors.Is(err, "NOT_FOUND") {
			log.Printf("CreateConversation: failed to search for existing conversation: %v", err)
			return nil, err
		}

		conversation = &entity.Conversation{
			Participants:  []string{userID, input.RecipientID},
			VehicleID:     input.VehicleID,
			UserID:        userID,
			UnreadCount:   make(map[string]int),
			LastMessageAt: time.Now(),
		}
		// The recipient's profile decides which side of the marketplace this
		// thread sits on.
		if recipient.Role == "dealer" {
			conversation.Type = entity.ConversationTypeUserDealer
			conversation.DealerID = recipient.ID
		} else {
			conversation.Type = entity.ConversationTypeUserUser
			conversation.SellerUserID = recipient.ID
		}

		if err := uc.conversationRepo.Create(ctx, conversation); err != nil {
			log.Printf("CreateConversation: failed to create conversation: %v", err)
			return nil, err
		}
	}

	if input.InitialMessage != "" {
		if _, err := uc.SendMessage(ctx, userID, SendMessageInput{
			ConversationID: conversation.ID,
			Content:        input.InitialMessage,
		}); err != nil {
			log.Printf("CreateConversation: failed to send initial message for conversation %s: %v", conversation.ID, err)
			return nil, err
		}
	}

	return &ConversationResponse{
		Conversation: conversation,
		Vehicle:      vehicle,
		OtherUser:    recipient,
	}, nil
}

func (uc *ChatUseCase) GetConversation(ctx context.Context, userID, conversationID string) (*ConversationResponse, error) {
	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	if !conversation.HasParticipant(userID) {
		return nil, errors.Forbidden("You are not a participant of this conversation", nil)
	}

	resp := &ConversationResponse{Conversation: conversation}

	// Display enrichment is best-effort; the conversation itself is the data.
	for _, participantID := range conversation.Participants {
		if participantID == userID {
			continue
		}
		other, err := uc.userRepo.GetByID(ctx, participantID)
		if err != nil {
			log.Printf("GetConversation: failed to load participant %s: %v", participantID, err)
			continue
		}
		resp.OtherUser = other
	}

	if conversation.VehicleID != "" {
		vehicle, err := uc.vehicleRepo.GetByID(ctx, conversation.VehicleID)
		if err != nil {
			log.Printf("GetConversation: failed to load vehicle %s: %v", conversation.VehicleID, err)
		} else {
			resp.Vehicle = vehicle
		}
	}

	return resp, nil
}

func (uc *ChatUseCase) ListConversations(ctx context.Context, userID string, limit, offset int) ([]*entity.Conversation, int64, error) {
	return uc.conversationRepo.ListByUserID(ctx, userID, limit, offset)
}

// GetMessages returns one page of history, oldest to newest. Passing the
// returned cursor back yields the next page with no duplicated ids; an empty
// cursor restarts from the beginning of the conversation.
func (uc *ChatUseCase) GetMessages(ctx context.Context, userID, conversationID, cursor string, limit int) (*MessagePageResponse, error) {
	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(userID) {
		return nil, errors.Forbidden("You are not a participant of this conversation", nil)
	}

	page, err := uc.conversationRepo.ListMessages(ctx, conversationID, cursor, limit)
	if err != nil {
		return nil, err
	}

	return &MessagePageResponse{
		Messages:   page.Messages,
		NextCursor: page.NextCursor,
	}, nil
}

// MarkConversationRead records that the viewer has seen the conversation.
// This is a best-effort side effect: every failure past the conversation
// lookup is logged and swallowed so it can never interrupt the chat flow.
// Repeated invocations re-run the idempotent upsert; there is no debounce.
func (uc *ChatUseCase) MarkConversationRead(ctx context.Context, userID, conversationID string) error {
	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conversation.HasParticipant(userID) {
		return errors.Forbidden("You are not a participant of this conversation", nil)
	}

	viewer, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		log.Printf("MarkConversationRead: failed to load viewer %s: %v", userID, err)
		return nil
	}
	// Dealer-side read tracking happens in the dealer tooling, not here.
	if viewer.Role != "user" {
		return nil
	}

	role := ResolveViewerRole(conversation, userID)
	if err := uc.conversationRepo.MarkRead(ctx, conversationID, role, userID, time.Now()); err != nil {
		log.Printf("MarkConversationRead: failed to mark conversation %s read for role %s: %v", conversationID, role, err)
		return nil
	}

	if uc.wsManager != nil {
		for _, participantID := range conversation.Participants {
			if participantID != userID {
				uc.wsManager.SendEvent(participantID, ws.Event{
					Type:    "conversation_read",
					Payload: map[string]string{"conversation_id": conversationID, "role": role},
				})
			}
		}
	}

	return nil
}

// SendMessage runs the send pipeline: precondition checks, an optimistic
// pending message, a single remote attempt (no retry, no backoff), then the
// conversation bookkeeping and realtime fanout. A failed attempt surfaces
// SEND_FAILED with the most specific message available; the optimistic copy
// is not rolled back.
func (uc *ChatUseCase) SendMessage(ctx context.Context, userID string, input SendMessageInput) (*entity.Message, error) {
	allowed, waitTime := uc.rateLimiter.Allow(userID, "send_message")
	if !allowed {
		log.Printf("SendMessage rate limited: user %s must wait %v", userID, waitTime)
		return nil, errors.TooManyRequests("Rate limit exceeded. Please slow down")
	}

	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, errors.Precondition("Message body must not be empty", nil)
	}
	if input.ConversationID == "" {
		return nil, errors.Precondition("Conversation must be resolved before sending", nil)
	}

	conversation, err := uc.conversationRepo.GetByID(ctx, input.ConversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(userID) {
		return nil, errors.Forbidden("You are not a participant of this conversation", nil)
	}

	message := &entity.Message{
		ConversationID: input.ConversationID,
		SenderID:       userID,
		SenderRole:     senderRole(conversation, userID),
		Content:        content,
		AttachmentURL:  input.AttachmentURL,
		Status:         entity.MessageStatusPending,
	}

	if err := uc.conversationRepo.CreateMessage(ctx, message); err != nil {
		message.Status = entity.MessageStatusFailed
		log.Printf("SendMessage: remote append failed for conversation %s: %v", input.ConversationID, err)
		return nil, errors.SendFailed(errors.BestMessage(err, "Failed to send message. Please try again"), err)
	}
	message.Status = entity.MessageStatusSent

	conversation.LastMessage = content
	conversation.LastMessageAt = message.CreatedAt
	if conversation.UnreadCount == nil {
		conversation.UnreadCount = make(map[string]int)
	}
	for _, participantID := range conversation.Participants {
		if participantID != userID {
			conversation.UnreadCount[participantID]++
		}
	}
	if err := uc.conversationRepo.Update(ctx, conversation); err != nil {
		// The message is already durable; stale inbox metadata heals on the
		// next send.
		log.Printf("SendMessage: failed to update conversation %s metadata: %v", conversation.ID, err)
	}

	if uc.wsManager != nil {
		for _, participantID := range conversation.Participants {
			if participantID != userID {
				uc.wsManager.SendEvent(participantID, ws.Event{Type: "new_message", Payload: message})
			}
		}
	}

	return message, nil
}

func senderRole(conversation *entity.Conversation, senderID string) string {
	if conversation.Type == entity.ConversationTypeUserDealer && conversation.DealerID == senderID {
		return "dealer"
	}
	return ResolveViewerRole(conversation, senderID)
}
