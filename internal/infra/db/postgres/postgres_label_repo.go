package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"drobe-backend/internal/domain"
	"drobe-backend/internal/domain/model"
	"drobe-backend/internal/domain/ports/repository"
)

var _ repository.LabelRepository = (*LabelRepo)(nil)

type LabelRepo struct {
	pool *pgxpool.Pool
}

func NewLabelRepo(pool *pgxpool.Pool) *LabelRepo {
	return &LabelRepo{pool: pool}
}

func (r *LabelRepo) Save(ctx context.Context, qx any, l *model.Label) error {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return err
	}
	tr, err := marshalTranslations(l.Translations)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO labels (id, curriculum_id, title, ord, translations, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,COALESCE($6,NOW()),COALESCE($7,NOW()))
ON CONFLICT (id) DO UPDATE SET
  title = EXCLUDED.title,
  ord = EXCLUDED.ord,
  translations = EXCLUDED.translations,
  updated_at = NOW();`
	if _, err := ex.Exec(ctx, q, l.ID, l.CurriculumID, l.Title, l.Order, tr, l.CreatedAt, l.UpdatedAt); err != nil {
		return fmt.Errorf("save label: %w", err)
	}
	return nil
}

func (r *LabelRepo) FindByID(ctx context.Context, qx any, id string) (*model.Label, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	const q = `SELECT id, curriculum_id, title, ord, translations, created_at, updated_at FROM labels WHERE id=$1;`
	var l model.Label
	var tr []byte
	if err := ex.QueryRow(ctx, q, id).Scan(&l.ID, &l.CurriculumID, &l.Title, &l.Order, &tr, &l.CreatedAt, &l.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan label: %w", err)
	}
	if err := unmarshalTranslations(tr, &l.Translations); err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LabelRepo) ListByCurriculum(ctx context.Context, qx any, curriculumID string) ([]*model.Label, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	const q = `
SELECT id, curriculum_id, title, ord, translations, created_at, updated_at
  FROM labels WHERE curriculum_id=$1 ORDER BY ord, title;`
	rows, err := ex.Query(ctx, q, curriculumID)
	if err != nil {
		return nil, fmt.Errorf("query labels: %w", err)
	}
	defer rows.Close()
	var out []*model.Label
	for rows.Next() {
		var l model.Label
		var tr []byte
		if err := rows.Scan(&l.ID, &l.CurriculumID, &l.Title, &l.Order, &tr, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan label: %w", err)
		}
		if err := unmarshalTranslations(tr, &l.Translations); err != nil {
			return nil, err
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}

func (r *LabelRepo) Delete(ctx context.Context, qx any, id string) error {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, `DELETE FROM labels WHERE id=$1;`, id)
	if err != nil {
		return fmt.Errorf("delete label: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
