package postgres

import (
	"errors"
	"fmt"

	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"drobe-backend/internal/domain"
	"drobe-backend/internal/domain/model"
	"drobe-backend/internal/domain/ports/repository"
	red "drobe-backend/internal/infra/redis"
)

var _ repository.SessionRepository = (*SessionRepo)(nil)

// SessionRepo persists chat sessions. Active-session lookups on the websocket
// connect path go through a best-effort Redis cache.
type SessionRepo struct {
	pool  *pgxpool.Pool
	cache *red.SessionCache
}

func NewSessionRepo(pool *pgxpool.Pool, cache *red.SessionCache) *SessionRepo {
	return &SessionRepo{pool: pool, cache: cache}
}

func (r *SessionRepo) Save(ctx context.Context, qx any, s *model.ChatSession) error {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO chat_sessions (id, level_description, child_age, priming_message, active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,COALESCE($6,NOW()),COALESCE($7,NOW()))
ON CONFLICT (id) DO UPDATE SET
  active = EXCLUDED.active,
  updated_at = EXCLUDED.updated_at;`
	if _, err := ex.Exec(ctx, q, s.ID, s.LevelDescription, s.ChildAge, s.PrimingMessage, s.Active, s.CreatedAt, s.UpdatedAt); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if r.cache != nil {
		_ = r.cache.Store(ctx, s)
	}
	return nil
}

func (r *SessionRepo) FindByID(ctx context.Context, qx any, id string) (*model.ChatSession, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	const q = `SELECT id, level_description, child_age, COALESCE(priming_message,''), active, created_at, updated_at
FROM chat_sessions WHERE id=$1;`
	var s model.ChatSession
	if err := ex.QueryRow(ctx, q, id).Scan(&s.ID, &s.LevelDescription, &s.ChildAge, &s.PrimingMessage, &s.Active, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return &s, nil
}

func (r *SessionRepo) FindActiveByID(ctx context.Context, qx any, id string) (*model.ChatSession, error) {
	if r.cache != nil {
		if s, err := r.cache.Get(ctx, id); err == nil && s != nil && s.Active {
			return s, nil
		}
	}
	s, err := r.FindByID(ctx, qx, id)
	if err != nil {
		return nil, err
	}
	if !s.Active {
		return nil, domain.ErrNotFound
	}
	if r.cache != nil {
		_ = r.cache.Store(ctx, s)
	}
	return s, nil
}

func (r *SessionRepo) ListActive(ctx context.Context, qx any) ([]*model.ChatSession, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	const q = `SELECT id, level_description, child_age, COALESCE(priming_message,''), active, created_at, updated_at
FROM chat_sessions WHERE active ORDER BY created_at DESC;`
	rows, err := ex.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()
	var out []*model.ChatSession
	for rows.Next() {
		var s model.ChatSession
		if err := rows.Scan(&s.ID, &s.LevelDescription, &s.ChildAge, &s.PrimingMessage, &s.Active, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (r *SessionRepo) Deactivate(ctx context.Context, qx any, id string) error {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return err
	}
	const q = `UPDATE chat_sessions SET active=false, updated_at=NOW() WHERE id=$1;`
	tag, err := ex.Exec(ctx, q, id)
	if err != nil {
		return fmt.Errorf("deactivate session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	if r.cache != nil {
		_ = r.cache.Delete(ctx, id)
	}
	return nil
}

func (r *SessionRepo) Touch(ctx context.Context, qx any, id string) error {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return err
	}
	const q = `UPDATE chat_sessions SET updated_at=NOW() WHERE id=$1;`
	tag, err := ex.Exec(ctx, q, id)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *SessionRepo) DeactivateIdle(ctx context.Context, idleDays int) (int64, error) {
	const q = `
UPDATE chat_sessions SET active=false, updated_at=NOW()
 WHERE active AND updated_at < NOW() - ($1::int * INTERVAL '1 day');`
	tag, err := r.pool.Exec(ctx, q, idleDays)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
