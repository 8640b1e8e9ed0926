package repository

import (
	"context"

	"github.com/AbhigyanRaj/TruCare/internal/models"
)

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

// Append writes one immutable message row. There is no update path for
// messages anywhere in the schema.
func (r *MessageRepository) Append(
	ctx context.Context,
	message *models.ChatMessage,
) (*models.ChatMessage, error) {
	query := `
		INSERT INTO messages (conversation_id, sender_id, sender_role, sender_name, sender_image, body, is_system)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	stored := *message
	err := r.db.QueryRow(
		ctx,
		query,
		message.ConversationID,
		message.SenderID,
		message.SenderRole,
		message.SenderName,
		message.SenderImage,
		message.Body,
		message.System,
	).Scan(&stored.ID, &stored.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// ListByConversation returns the full ordered log, ascending by timestamp
// with insertion order breaking ties.
func (r *MessageRepository) ListByConversation(
	ctx context.Context,
	conversationID string,
) ([]models.ChatMessage, error) {
	query := `
		SELECT id, conversation_id, sender_id, sender_role, sender_name, sender_image, body, is_system, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.ChatMessage, 0)
	for rows.Next() {
		var message models.ChatMessage
		if err := rows.Scan(
			&message.ID,
			&message.ConversationID,
			&message.SenderID,
			&message.SenderRole,
			&message.SenderName,
			&message.SenderImage,
			&message.Body,
			&message.System,
			&message.CreatedAt,
		); err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}
