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

var _ repository.TopicRepository = (*TopicRepo)(nil)

type TopicRepo struct {
	pool *pgxpool.Pool
}

func NewTopicRepo(pool *pgxpool.Pool) *TopicRepo {
	return &TopicRepo{pool: pool}
}

const topicCols = `id, label_id, title, description, COALESCE(content_link,''), COALESCE(image_key,''), ord, translations, active, created_at, updated_at`

func (r *TopicRepo) Save(ctx context.Context, qx any, t *model.Topic) error {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return err
	}
	tr, err := marshalTranslations(t.Translations)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO topics (id, label_id, title, description, content_link, image_key, ord, translations, active, created_at, updated_at)
VALUES ($1,$2,$3,$4,NULLIF($5,''),NULLIF($6,''),$7,$8,$9,COALESCE($10,NOW()),COALESCE($11,NOW()))
ON CONFLICT (id) DO UPDATE SET
  title = EXCLUDED.title,
  description = EXCLUDED.description,
  content_link = EXCLUDED.content_link,
  image_key = EXCLUDED.image_key,
  ord = EXCLUDED.ord,
  translations = EXCLUDED.translations,
  active = EXCLUDED.active,
  updated_at = NOW();`
	if _, err := ex.Exec(ctx, q, t.ID, t.LabelID, t.Title, t.Description, t.ContentLink, t.ImageKey, t.Order, tr, t.Active, t.CreatedAt, t.UpdatedAt); err != nil {
		return fmt.Errorf("save topic: %w", err)
	}
	return nil
}

func (r *TopicRepo) FindByID(ctx context.Context, qx any, id string) (*model.Topic, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	row := ex.QueryRow(ctx, `SELECT `+topicCols+` FROM topics WHERE id=$1;`, id)
	t, err := scanTopic(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *TopicRepo) ListByLabel(ctx context.Context, qx any, labelID string) ([]*model.Topic, error) {
	const q = `SELECT ` + topicCols + ` FROM topics WHERE label_id=$1 AND active ORDER BY ord, title;`
	return r.listTopics(ctx, qx, q, labelID)
}

func (r *TopicRepo) ListByCurriculum(ctx context.Context, qx any, curriculumID string) ([]*model.Topic, error) {
	const q = `
SELECT t.id, t.label_id, t.title, t.description, COALESCE(t.content_link,''), COALESCE(t.image_key,''), t.ord, t.translations, t.active, t.created_at, t.updated_at
  FROM topics t JOIN labels l ON l.id = t.label_id
 WHERE l.curriculum_id=$1 AND t.active
 ORDER BY l.ord, t.ord, t.title;`
	return r.listTopics(ctx, qx, q, curriculumID)
}

func (r *TopicRepo) Deactivate(ctx context.Context, qx any, id string) error {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, `UPDATE topics SET active=false, updated_at=NOW() WHERE id=$1;`, id)
	if err != nil {
		return fmt.Errorf("deactivate topic: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *TopicRepo) listTopics(ctx context.Context, qx any, q string, args ...any) ([]*model.Topic, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query topics: %w", err)
	}
	defer rows.Close()
	var out []*model.Topic
	for rows.Next() {
		t, err := scanTopic(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTopic(row pgx.Row) (*model.Topic, error) {
	var t model.Topic
	var tr []byte
	if err := row.Scan(&t.ID, &t.LabelID, &t.Title, &t.Description, &t.ContentLink, &t.ImageKey, &t.Order, &tr, &t.Active, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if err := unmarshalTranslations(tr, &t.Translations); err != nil {
		return nil, err
	}
	return &t, nil
}
