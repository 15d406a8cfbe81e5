package entity

import "time"

// Message send states. A message starts pending, moves to sent once the
// backend accepts it, or failed when the single send attempt is rejected.
const (
	MessageStatusPending = "pending"
	MessageStatusSent    = "sent"
	MessageStatusFailed  = "failed"
)

type Message struct {
	ID             string    `json:"id" firestore:"id"`
	ConversationID string    `json:"conversation_id" firestore:"conversationId"`
	SenderID       string    `json:"sender_id" firestore:"senderId"`
	SenderRole     string    `json:"sender_role" firestore:"senderRole"` // "user", "seller_user", "dealer"
	Content        string    `json:"content" firestore:"content"`
	AttachmentURL  string    `json:"attachment_url,omitempty" firestore:"attachmentUrl,omitempty"`
	Status         string    `json:"status" firestore:"status"`
	CreatedAt      time.Time `json:"created_at" firestore:"createdAt"`
}
