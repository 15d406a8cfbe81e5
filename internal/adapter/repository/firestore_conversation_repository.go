package repository

import (
	"context"
	"log"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"carlink/internal/domain/entity"
	"carlink/internal/domain/repository"
	"carlink/pkg/errors"
)

type firestoreConversationRepository struct {
	client *firestore.Client
}

func NewFirestoreConversationRepository(client *firestore.Client) repository.ConversationRepository {
	return &firestoreConversationRepository{
		client: client,
	}
}

func (r *firestoreConversationRepository) Create(ctx context.Context, conversation *entity.Conversation) error {
	if conversation.ID == "" {
		conversation.ID = uuid.New().String()
	}

	now := time.Now()
	conversation.CreatedAt = now
	conversation.UpdatedAt = now

	_, err := r.client.Collection("conversations").Doc(conversation.ID).Set(ctx, conversation)
	if err != nil {
		return errors.Transient("Failed to create conversation", err)
	}

	return nil
}

func (r *firestoreConversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	doc, err := r.client.Collection("conversations").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Conversation", err)
		}
		return nil, errors.Transient("Failed to get conversation", err)
	}

	var conversation entity.Conversation
	if err := doc.DataTo(&conversation); err != nil {
		return nil, errors.Internal("Failed to parse conversation data", err)
	}

	return &conversation, nil
}

func (r *firestoreConversationRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Conversation, int64, error) {
	query := r.client.Collection("conversations").Where("participants", "array-contains", userID).OrderBy("lastMessageAt", firestore.Desc)

	allDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		log.Printf("Firestore error while fetching conversations for user %s: %v", userID, err)
		return nil, 0, errors.Transient("Failed to fetch conversations", err)
	}

	total := int64(len(allDocs))

	// Pagination in memory; the inbox is small per user.
	start := offset
	end := len(allDocs)
	if limit > 0 {
		end = start + limit
		if end > len(allDocs) {
			end = len(allDocs)
		}
	}
	if start > len(allDocs) {
		start = len(allDocs)
	}

	var conversations []*entity.Conversation
	for i := start; i < end; i++ {
		var conversation entity.Conversation
		if err := allDocs[i].DataTo(&conversation); err != nil {
			log.Printf("Error parsing conversation data for user %s: %v", userID, err)
			continue // Skip bad data instead of failing
		}
		conversations = append(conversations, &conversation)
	}

	return conversations, total, nil
}

func (r *firestoreConversationRepository) Update(ctx context.Context, conversation *entity.Conversation) error {
	conversation.UpdatedAt = time.Now()

	_, err := r.client.Collection("conversations").Doc(conversation.ID).Set(ctx, conversation)
	if err != nil {
		return errors.Transient("Failed to update conversation", err)
	}

	return nil
}

func (r *firestoreConversationRepository) FindByVehicleAndParticipants(ctx context.Context, vehicleID string, participants []string) (*entity.Conversation, error) {
	sorted := make([]string, len(participants))
	copy(sorted, participants)
	sort.Strings(sorted)

	query := r.client.Collection("conversations").Where("vehicleId", "==", vehicleID)

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Transient("Failed to query conversations by vehicle", err)
	}

	for _, doc := range docs {
		var conversation entity.Conversation
		if err := doc.DataTo(&conversation); err != nil {
			continue // Skip malformed documents
		}

		existing := make([]string, len(conversation.Participants))
		copy(existing, conversation.Participants)
		sort.Strings(existing)

		if len(existing) != len(sorted) {
			continue
		}
		match := true
		for i, p := range sorted {
			if existing[i] != p {
				match = false
				break
			}
		}
		if match {
			conversation.ID = doc.Ref.ID
			return &conversation, nil
		}
	}

	return nil, errors.NotFound("Conversation", nil)
}

func (r *firestoreConversationRepository) CreateMessage(ctx context.Context, message *entity.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}

	message.CreatedAt = time.Now()

	_, err := r.client.Collection("conversations").Doc(message.ConversationID).Collection("messages").Doc(message.ID).Set(ctx, message)
	if err != nil {
		return errors.Transient("Failed to create message", err)
	}

	return nil
}

func (r *firestoreConversationRepository) ListMessages(ctx context.Context, conversationID, cursor string, limit int) (*repository.MessagePage, error) {
	if limit <= 0 {
		limit = defaultMessagePageSize
	}

	query := r.client.Collection("conversations").Doc(conversationID).Collection("messages").
		OrderBy("createdAt", firestore.Asc).
		OrderBy("id", firestore.Asc).
		Limit(limit)

	if cursor != "" {
		after, id, err := parseMessageCursor(cursor)
		if err != nil {
			return nil, errors.Precondition("Invalid message cursor", err)
		}
		query = query.StartAfter(after, id)
	}

	iter := query.Documents(ctx)
	var messages []*entity.Message

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			log.Printf("Firestore error while iterating messages for conversation %s: %v", conversationID, err)
			return nil, errors.Transient("Failed to iterate messages", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			log.Printf("Error parsing message data for conversation %s: %v", conversationID, err)
			return nil, errors.Internal("Failed to parse message data", err)
		}

		messages = append(messages, &message)
	}

	page := &repository.MessagePage{Messages: messages}
	// A short page means the history is exhausted; new arrivals are picked up
	// by refreshing from an empty cursor.
	if len(messages) == limit {
		last := messages[len(messages)-1]
		page.NextCursor = formatMessageCursor(last.CreatedAt, last.ID)
	}

	return page, nil
}

func (r *firestoreConversationRepository) MarkRead(ctx context.Context, conversationID, viewerRole, viewerID string, at time.Time) error {
	docRef := r.client.Collection("conversations").Doc(conversationID)
	doc, err := docRef.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Conversation", err)
		}
		return errors.Transient("Failed to get conversation", err)
	}

	var conversation entity.Conversation
	if err := doc.DataTo(&conversation); err != nil {
		return errors.Internal("Failed to parse conversation data", err)
	}

	if conversation.LastRead == nil {
		conversation.LastRead = make(map[string]time.Time)
	}
	conversation.LastRead[viewerRole] = at
	if conversation.UnreadCount == nil {
		conversation.UnreadCount = make(map[string]int)
	}
	conversation.UnreadCount[viewerID] = 0

	if _, err := docRef.Set(ctx, &conversation); err != nil {
		return errors.Transient("Failed to update read marker", err)
	}

	return nil
}
