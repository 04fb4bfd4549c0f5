package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"drobe-backend/internal/domain"
	"drobe-backend/internal/domain/model"
	"drobe-backend/internal/domain/ports/repository"
)

var _ repository.CurriculumRepository = (*CurriculumRepo)(nil)

type CurriculumRepo struct {
	pool *pgxpool.Pool
}

func NewCurriculumRepo(pool *pgxpool.Pool) *CurriculumRepo {
	return &CurriculumRepo{pool: pool}
}

func (r *CurriculumRepo) Save(ctx context.Context, qx any, c *model.Curriculum) error {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return err
	}
	tr, err := marshalTranslations(c.Translations)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO curricula (id, title, description, country, image_key, translations, active, created_at, updated_at)
VALUES ($1,$2,$3,$4,NULLIF($5,''),$6,$7,COALESCE($8,NOW()),COALESCE($9,NOW()))
ON CONFLICT (id) DO UPDATE SET
  title = EXCLUDED.title,
  description = EXCLUDED.description,
  country = EXCLUDED.country,
  image_key = EXCLUDED.image_key,
  translations = EXCLUDED.translations,
  active = EXCLUDED.active,
  updated_at = NOW();`
	if _, err := ex.Exec(ctx, q, c.ID, c.Title, c.Description, c.Country, c.ImageKey, tr, c.Active, c.CreatedAt, c.UpdatedAt); err != nil {
		return fmt.Errorf("save curriculum: %w", err)
	}
	return nil
}

func (r *CurriculumRepo) FindByID(ctx context.Context, qx any, id string) (*model.Curriculum, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	const q = `
SELECT id, title, description, country, COALESCE(image_key,''), translations, active, created_at, updated_at
  FROM curricula WHERE id=$1;`
	var c model.Curriculum
	var tr []byte
	if err := ex.QueryRow(ctx, q, id).Scan(&c.ID, &c.Title, &c.Description, &c.Country, &c.ImageKey, &tr, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan curriculum: %w", err)
	}
	if err := unmarshalTranslations(tr, &c.Translations); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CurriculumRepo) List(ctx context.Context, qx any, f repository.CurriculumFilter) ([]*model.Curriculum, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	const q = `
SELECT id, title, description, country, COALESCE(image_key,''), translations, active, created_at, updated_at
  FROM curricula
 WHERE active
   AND ($1 = '' OR country = $1)
   AND ($2 = '' OR title ILIKE '%'||$2||'%' OR description ILIKE '%'||$2||'%' OR country ILIKE '%'||$2||'%')
 ORDER BY country, title;`
	rows, err := ex.Query(ctx, q, f.Country, f.Search)
	if err != nil {
		return nil, fmt.Errorf("query curricula: %w", err)
	}
	defer rows.Close()
	var out []*model.Curriculum
	for rows.Next() {
		var c model.Curriculum
		var tr []byte
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.Country, &c.ImageKey, &tr, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan curriculum: %w", err)
		}
		if err := unmarshalTranslations(tr, &c.Translations); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (r *CurriculumRepo) Countries(ctx context.Context, qx any) ([]string, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	const q = `SELECT DISTINCT country FROM curricula WHERE active ORDER BY country;`
	rows, err := ex.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query countries: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CurriculumRepo) Deactivate(ctx context.Context, qx any, id string) error {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, `UPDATE curricula SET active=false, updated_at=NOW() WHERE id=$1;`, id)
	if err != nil {
		return fmt.Errorf("deactivate curriculum: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func marshalTranslations(t model.Translations) ([]byte, error) {
	if len(t) == 0 {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("marshal translations: %w", err)
	}
	return b, nil
}

func unmarshalTranslations(b []byte, into *model.Translations) error {
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, into); err != nil {
		return fmt.Errorf("unmarshal translations: %w", err)
	}
	return nil
}
