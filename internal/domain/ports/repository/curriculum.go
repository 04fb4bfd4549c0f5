package repository

import (
	"context"

	"drobe-backend/internal/domain/model"
)

// CurriculumFilter narrows curriculum listings.
type CurriculumFilter struct {
	Country string
	Search  string
}

type CurriculumRepository interface {
	Save(ctx context.Context, qx any, c *model.Curriculum) error
	FindByID(ctx context.Context, qx any, id string) (*model.Curriculum, error)
	List(ctx context.Context, qx any, f CurriculumFilter) ([]*model.Curriculum, error)
	Countries(ctx context.Context, qx any) ([]string, error)
	Deactivate(ctx context.Context, qx any, id string) error
}

type LabelRepository interface {
	Save(ctx context.Context, qx any, l *model.Label) error
	FindByID(ctx context.Context, qx any, id string) (*model.Label, error)
	// ListByCurriculum orders by (order, title).
	ListByCurriculum(ctx context.Context, qx any, curriculumID string) ([]*model.Label, error)
	Delete(ctx context.Context, qx any, id string) error
}

type TopicRepository interface {
	Save(ctx context.Context, qx any, t *model.Topic) error
	FindByID(ctx context.Context, qx any, id string) (*model.Topic, error)
	// ListByLabel orders active topics by (order, title).
	ListByLabel(ctx context.Context, qx any, labelID string) ([]*model.Topic, error)
	ListByCurriculum(ctx context.Context, qx any, curriculumID string) ([]*model.Topic, error)
	Deactivate(ctx context.Context, qx any, id string) error
}
