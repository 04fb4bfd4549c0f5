package repository

import (
	"context"

	"drobe-backend/internal/domain/model"
)

// SessionRepository persists chat sessions. qx may carry a pgx.Tx or
// *pgxpool.Conn; nil means the implementation's default pool.
type SessionRepository interface {
	Save(ctx context.Context, qx any, s *model.ChatSession) error
	FindByID(ctx context.Context, qx any, id string) (*model.ChatSession, error)
	// FindActiveByID returns domain.ErrNotFound for missing or inactive sessions.
	FindActiveByID(ctx context.Context, qx any, id string) (*model.ChatSession, error)
	ListActive(ctx context.Context, qx any) ([]*model.ChatSession, error)
	Deactivate(ctx context.Context, qx any, id string) error
	// Touch bumps updated_at so the idle cleanup never reaps a session that
	// is still receiving messages.
	Touch(ctx context.Context, qx any, id string) error
	// DeactivateIdle soft-deletes active sessions not updated for the given
	// number of days and reports how many were touched.
	DeactivateIdle(ctx context.Context, idleDays int) (int64, error)
}

// MessageRepository is the append-only transcript store. Messages are never
// updated or deleted individually; they go away only when their session row
// is removed (ON DELETE CASCADE).
type MessageRepository interface {
	// Append stores the message and returns its persisted id.
	Append(ctx context.Context, qx any, m *model.ChatMessage) (string, error)
	// ListBySession returns up to limit messages ordered by creation.
	ListBySession(ctx context.Context, qx any, sessionID string, limit int) ([]*model.ChatMessage, error)
	// ListTextBySession returns only text-bearing messages, ordered by
	// creation, for history replay into the live session.
	ListTextBySession(ctx context.Context, qx any, sessionID string) ([]*model.ChatMessage, error)
}
