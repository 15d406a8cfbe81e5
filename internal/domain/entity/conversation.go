package entity

import "time"

const (
	ConversationTypeUserDealer = "user_dealer"
	ConversationTypeUserUser   = "user_user"
)

// Viewer roles used for read markers. The same user id can map to either
// role depending on which side of a user_user conversation they are on.
const (
	ViewerRoleUser       = "user"
	ViewerRoleSellerUser = "seller_user"
)

type Conversation struct {
	ID           string   `json:"id" firestore:"id"`
	Participants []string `json:"participants" firestore:"participants"`
	Type         string   `json:"type" firestore:"type"` // "user_dealer", "user_user"
	UserID       string   `json:"user_id" firestore:"userId"`
	DealerID     string   `json:"dealer_id,omitempty" firestore:"dealerId,omitempty"`
	SellerUserID string   `json:"seller_user_id,omitempty" firestore:"sellerUserId,omitempty"`
	VehicleID    string   `json:"vehicle_id,omitempty" firestore:"vehicleId,omitempty"`

	LastMessage   string               `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`
	LastMessageAt time.Time            `json:"last_message_at" firestore:"lastMessageAt"`
	UnreadCount   map[string]int       `json:"unread_count" firestore:"unreadCount"` // Map of userID to unread count
	LastRead      map[string]time.Time `json:"last_read,omitempty" firestore:"lastRead,omitempty"` // Map of viewer role to read marker

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

// HasParticipant reports whether userID is part of the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
