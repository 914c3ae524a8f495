package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ============================================
// Chat Models
// ============================================

// ChatMessage is a message in a group channel (OrderID nil) or an order
// channel.
type ChatMessage struct {
	ID          string
	GroupID     string
	OrderID     *string
	SenderEmail string
	SenderName  string
	Message     string
	CreatedDate time.Time
}

// ============================================
// Chat Repository Interface
// ============================================

type ChatRepository interface {
	Create(ctx context.Context, message *ChatMessage) error
	// ListByChannel returns up to limit messages of one channel, newest first.
	// A nil orderID selects the group channel.
	ListByChannel(ctx context.Context, groupID string, orderID *string, limit int) ([]*ChatMessage, error)
	// ListIDsByGroup returns every message id of the group, across all
	// channels.
	ListIDsByGroup(ctx context.Context, groupID string) ([]string, error)
	// Delete removes one message. Deleting a missing message is a no-op.
	Delete(ctx context.Context, id string) error
}

// ============================================
// PostgreSQL Implementation
// ============================================

type chatRepository struct {
	pool *pgxpool.Pool
}

func NewChatRepository(pool *pgxpool.Pool) ChatRepository {
	return &chatRepository{pool: pool}
}

func (r *chatRepository) Create(ctx context.Context, message *ChatMessage) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.CreatedDate.IsZero() {
		message.CreatedDate = time.Now()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO chat_messages (id, group_id, order_id, sender_email, sender_name, message, created_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, message.ID, message.GroupID, message.OrderID, message.SenderEmail, message.SenderName, message.Message, message.CreatedDate)
	return err
}

func (r *chatRepository) ListByChannel(ctx context.Context, groupID string, orderID *string, limit int) ([]*ChatMessage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, group_id, order_id, sender_email, sender_name, message, created_date
		FROM chat_messages
		WHERE group_id = $1 AND order_id IS NOT DISTINCT FROM $2
		ORDER BY created_date DESC, id DESC
		LIMIT $3
	`, groupID, orderID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*ChatMessage
	for rows.Next() {
		m := &ChatMessage{}
		if err := rows.Scan(&m.ID, &m.GroupID, &m.OrderID, &m.SenderEmail, &m.SenderName, &m.Message, &m.CreatedDate); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *chatRepository) ListIDsByGroup(ctx context.Context, groupID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM chat_messages WHERE group_id = $1`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *chatRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM chat_messages WHERE id = $1`, id)
	return err
}
