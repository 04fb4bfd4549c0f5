package usecase

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"drobe-backend/internal/domain/model"
	"drobe-backend/internal/domain/ports/repository"
)

// CurriculumInput carries the writable fields of a curriculum.
type CurriculumInput struct {
	Title        string
	Description  string
	Country      string
	ImageKey     string
	Translations model.Translations
}

type LabelInput struct {
	CurriculumID string
	Title        string
	Order        int
	Translations model.Translations
}

type TopicInput struct {
	LabelID      string
	Title        string
	Description  string
	ContentLink  string
	ImageKey     string
	Order        int
	Translations model.Translations
}

// LabelNode is a label with its active topics, ordered for display.
type LabelNode struct {
	Label  *model.Label
	Topics []*model.Topic
}

// CurriculumTree is one curriculum expanded down to topics.
type CurriculumTree struct {
	Curriculum *model.Curriculum
	Labels     []LabelNode
}

// Compile-time check
var _ CurriculumUseCase = (*curriculumUC)(nil)

type CurriculumUseCase interface {
	CreateCurriculum(ctx context.Context, in CurriculumInput) (*model.Curriculum, error)
	UpdateCurriculum(ctx context.Context, id string, in CurriculumInput) (*model.Curriculum, error)
	GetCurriculum(ctx context.Context, id string) (*model.Curriculum, error)
	ListCurricula(ctx context.Context, f repository.CurriculumFilter) ([]*model.Curriculum, error)
	Countries(ctx context.Context) ([]string, error)
	DeleteCurriculum(ctx context.Context, id string) error
	Tree(ctx context.Context, id string) (*CurriculumTree, error)

	CreateLabel(ctx context.Context, in LabelInput) (*model.Label, error)
	UpdateLabel(ctx context.Context, id string, in LabelInput) (*model.Label, error)
	ListLabels(ctx context.Context, curriculumID string) ([]*model.Label, error)
	DeleteLabel(ctx context.Context, id string) error

	CreateTopic(ctx context.Context, in TopicInput) (*model.Topic, error)
	UpdateTopic(ctx context.Context, id string, in TopicInput) (*model.Topic, error)
	GetTopic(ctx context.Context, id string) (*model.Topic, error)
	ListTopicsByLabel(ctx context.Context, labelID string) ([]*model.Topic, error)
	ListTopicsByCurriculum(ctx context.Context, curriculumID string) ([]*model.Topic, error)
	DeleteTopic(ctx context.Context, id string) error
}

type curriculumUC struct {
	curricula repository.CurriculumRepository
	labels    repository.LabelRepository
	topics    repository.TopicRepository
	txm       repository.TransactionManager
}

func NewCurriculumUseCase(
	curricula repository.CurriculumRepository,
	labels repository.LabelRepository,
	topics repository.TopicRepository,
	txm repository.TransactionManager,
) *curriculumUC {
	return &curriculumUC{curricula: curricula, labels: labels, topics: topics, txm: txm}
}

func (u *curriculumUC) CreateCurriculum(ctx context.Context, in CurriculumInput) (*model.Curriculum, error) {
	c, err := model.NewCurriculum(uuid.NewString(), in.Title, in.Description, in.Country)
	if err != nil {
		return nil, err
	}
	c.ImageKey = in.ImageKey
	c.Translations = in.Translations
	if err := u.curricula.Save(ctx, nil, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (u *curriculumUC) UpdateCurriculum(ctx context.Context, id string, in CurriculumInput) (*model.Curriculum, error) {
	c, err := u.curricula.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	c.Title = in.Title
	c.Description = in.Description
	c.Country = in.Country
	if in.ImageKey != "" {
		c.ImageKey = in.ImageKey
	}
	if in.Translations != nil {
		c.Translations = in.Translations
	}
	if err := u.curricula.Save(ctx, nil, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (u *curriculumUC) GetCurriculum(ctx context.Context, id string) (*model.Curriculum, error) {
	return u.curricula.FindByID(ctx, nil, id)
}

func (u *curriculumUC) ListCurricula(ctx context.Context, f repository.CurriculumFilter) ([]*model.Curriculum, error) {
	return u.curricula.List(ctx, nil, f)
}

func (u *curriculumUC) Countries(ctx context.Context) ([]string, error) {
	return u.curricula.Countries(ctx, nil)
}

func (u *curriculumUC) DeleteCurriculum(ctx context.Context, id string) error {
	return u.curricula.Deactivate(ctx, nil, id)
}

// Tree reads the curriculum, its labels and their topics inside one
// read-only transaction so the snapshot is consistent under concurrent edits.
func (u *curriculumUC) Tree(ctx context.Context, id string) (*CurriculumTree, error) {
	var tree *CurriculumTree
	err := u.txm.WithTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly}, func(ctx context.Context, tx repository.Tx) error {
		c, err := u.curricula.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		labels, err := u.labels.ListByCurriculum(ctx, tx, id)
		if err != nil {
			return err
		}
		nodes := make([]LabelNode, 0, len(labels))
		for _, l := range labels {
			topics, err := u.topics.ListByLabel(ctx, tx, l.ID)
			if err != nil {
				return err
			}
			nodes = append(nodes, LabelNode{Label: l, Topics: topics})
		}
		tree = &CurriculumTree{Curriculum: c, Labels: nodes}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tree, nil
}

func (u *curriculumUC) CreateLabel(ctx context.Context, in LabelInput) (*model.Label, error) {
	if _, err := u.curricula.FindByID(ctx, nil, in.CurriculumID); err != nil {
		return nil, err
	}
	l, err := model.NewLabel(uuid.NewString(), in.CurriculumID, in.Title, in.Order)
	if err != nil {
		return nil, err
	}
	l.Translations = in.Translations
	if err := u.labels.Save(ctx, nil, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (u *curriculumUC) UpdateLabel(ctx context.Context, id string, in LabelInput) (*model.Label, error) {
	l, err := u.labels.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	l.Title = in.Title
	l.Order = in.Order
	if in.Translations != nil {
		l.Translations = in.Translations
	}
	if err := u.labels.Save(ctx, nil, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (u *curriculumUC) ListLabels(ctx context.Context, curriculumID string) ([]*model.Label, error) {
	return u.labels.ListByCurriculum(ctx, nil, curriculumID)
}

func (u *curriculumUC) DeleteLabel(ctx context.Context, id string) error {
	return u.labels.Delete(ctx, nil, id)
}

func (u *curriculumUC) CreateTopic(ctx context.Context, in TopicInput) (*model.Topic, error) {
	if _, err := u.labels.FindByID(ctx, nil, in.LabelID); err != nil {
		return nil, err
	}
	t, err := model.NewTopic(uuid.NewString(), in.LabelID, in.Title, in.Description, in.ContentLink, in.Order)
	if err != nil {
		return nil, err
	}
	t.ImageKey = in.ImageKey
	t.Translations = in.Translations
	if err := u.topics.Save(ctx, nil, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (u *curriculumUC) UpdateTopic(ctx context.Context, id string, in TopicInput) (*model.Topic, error) {
	t, err := u.topics.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	t.Title = in.Title
	t.Description = in.Description
	t.ContentLink = in.ContentLink
	t.Order = in.Order
	if in.ImageKey != "" {
		t.ImageKey = in.ImageKey
	}
	if in.Translations != nil {
		t.Translations = in.Translations
	}
	if err := u.topics.Save(ctx, nil, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (u *curriculumUC) GetTopic(ctx context.Context, id string) (*model.Topic, error) {
	return u.topics.FindByID(ctx, nil, id)
}

func (u *curriculumUC) ListTopicsByLabel(ctx context.Context, labelID string) ([]*model.Topic, error) {
	return u.topics.ListByLabel(ctx, nil, labelID)
}

func (u *curriculumUC) ListTopicsByCurriculum(ctx context.Context, curriculumID string) ([]*model.Topic, error) {
	return u.topics.ListByCurriculum(ctx, nil, curriculumID)
}

func (u *curriculumUC) DeleteTopic(ctx context.Context, id string) error {
	return u.topics.Deactivate(ctx, nil, id)
}
