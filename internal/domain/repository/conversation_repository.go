package repository

import (
	"context"
	"time"

	"carlink/internal/domain/entity"
)

// MessagePage is one page of a conversation's history, oldest to newest.
// NextCursor is empty when there are no further pages.
type MessagePage struct {
	Messages   []*entity.Message
	NextCursor string
}

type ConversationRepository interface {
	Create(ctx context.Context, conversation *entity.Conversation) error
	GetByID(ctx context.Context, id string) (*entity.Conversation, error)
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Conversation, int64, error)
	Update(ctx context.Context, conversation *entity.Conversation) error
	FindByVehicleAndParticipants(ctx context.Context, vehicleID string, participants []string) (*entity.Conversation, error)

	// Message methods
	CreateMessage(ctx context.Context, message *entity.Message) error
	ListMessages(ctx context.Context, conversationID, cursor string, limit int) (*MessagePage, error)

	// MarkRead upserts the read marker for (conversation, viewer role) and
	// zeroes the viewer's unread counter. Calling it redundantly is safe.
	MarkRead(ctx context.Context, conversationID, viewerRole, viewerID string, at time.Time) error
}
