package assistant

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-bi/meridian/internal/shared"
)

// Repository persists conversations and messages in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds Repository instance.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateConversation opens a new thread.
func (r *Repository) CreateConversation(ctx context.Context, companyID, userID int64, title string) (*Conversation, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO chat_conversations (company_id, user_id, title, created_at, updated_at)
VALUES ($1, $2, $3, NOW(), NOW()) RETURNING id, company_id, user_id, title, created_at, updated_at`,
		companyID, userID, title)
	var c Conversation
	if err := row.Scan(&c.ID, &c.CompanyID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetConversation loads a thread scoped to company and user.
func (r *Repository) GetConversation(ctx context.Context, companyID, userID, id int64) (*Conversation, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, company_id, user_id, title, created_at, updated_at
FROM chat_conversations WHERE company_id = $1 AND user_id = $2 AND id = $3`, companyID, userID, id)
	var c Conversation
	if err := row.Scan(&c.ID, &c.CompanyID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListConversations returns the user's threads, newest activity first.
func (r *Repository) ListConversations(ctx context.Context, companyID, userID int64) ([]Conversation, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, company_id, user_id, title, created_at, updated_at
FROM chat_conversations WHERE company_id = $1 AND user_id = $2 ORDER BY updated_at DESC`, companyID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.CompanyID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AppendMessage adds a turn and touches the conversation.
func (r *Repository) AppendMessage(ctx context.Context, conversationID int64, role, content string) (*Message, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO chat_messages (conversation_id, role, content, created_at)
VALUES ($1, $2, $3, NOW()) RETURNING id, conversation_id, role, content, created_at`,
		conversationID, role, content)
	var m Message
	if err := row.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
		return nil, err
	}
	if _, err := r.pool.Exec(ctx, `UPDATE chat_conversations SET updated_at = NOW() WHERE id = $1`, conversationID); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMessages returns all turns in order.
func (r *Repository) ListMessages(ctx context.Context, conversationID int64) ([]Message, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, conversation_id, role, content, created_at
FROM chat_messages WHERE conversation_id = $1 ORDER BY id ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// RecentMessages returns the latest limit turns in chronological order.
func (r *Repository) RecentMessages(ctx context.Context, conversationID int64, limit int) ([]Message, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, conversation_id, role, content, created_at FROM (
SELECT id, conversation_id, role, content, created_at FROM chat_messages
WHERE conversation_id = $1 ORDER BY id DESC LIMIT $2
) recent ORDER BY id ASC`, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
