package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"drobe-backend/internal/domain/model"
	"drobe-backend/internal/domain/ports/repository"
)

var _ repository.MessageRepository = (*MessageRepo)(nil)

// MessageRepo is the append-only transcript store. Rows are never updated or
// deleted here; chat_messages cascades away with its session row.
type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func (r *MessageRepo) Append(ctx context.Context, qx any, m *model.ChatMessage) (string, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return "", err
	}
	const q = `
INSERT INTO chat_messages (id, session_id, sender, kind, text_content, blob_key, created_at)
VALUES ($1,$2,$3,$4,NULLIF($5,''),NULLIF($6,''),COALESCE($7,NOW()))
RETURNING id;`
	var id string
	if err := ex.QueryRow(ctx, q, m.ID, m.SessionID, string(m.Sender), string(m.Kind), m.Text, m.BlobKey, m.CreatedAt).Scan(&id); err != nil {
		return "", fmt.Errorf("append message: %w", err)
	}
	return id, nil
}

func (r *MessageRepo) ListBySession(ctx context.Context, qx any, sessionID string, limit int) ([]*model.ChatMessage, error) {
	const q = `
SELECT id, session_id, sender, kind, COALESCE(text_content,''), COALESCE(blob_key,''), created_at
  FROM chat_messages WHERE session_id=$1 ORDER BY created_at, id LIMIT $2;`
	return r.list(ctx, qx, q, sessionID, limit)
}

func (r *MessageRepo) ListTextBySession(ctx context.Context, qx any, sessionID string) ([]*model.ChatMessage, error) {
	const q = `
SELECT id, session_id, sender, kind, COALESCE(text_content,''), COALESCE(blob_key,''), created_at
  FROM chat_messages
 WHERE session_id=$1 AND text_content IS NOT NULL AND text_content <> ''
 ORDER BY created_at, id;`
	return r.list(ctx, qx, q, sessionID)
}

func (r *MessageRepo) list(ctx context.Context, qx any, q string, args ...any) ([]*model.ChatMessage, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()
	var out []*model.ChatMessage
	for rows.Next() {
		var m model.ChatMessage
		var sender, kind string
		if err := rows.Scan(&m.ID, &m.SessionID, &sender, &kind, &m.Text, &m.BlobKey, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Sender = model.Sender(sender)
		m.Kind = model.MessageKind(kind)
		out = append(out, &m)
	}
	return out, rows.Err()
}
