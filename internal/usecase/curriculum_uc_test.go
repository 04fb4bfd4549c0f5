package usecase

import (
	"context"
	"errors"
	"testing"

	"drobe-backend/internal/domain"
	"drobe-backend/internal/domain/model"
	"drobe-backend/internal/domain/ports/repository"
)

func newCurriculumFixture() *curriculumUC {
	curricula := newMemCurriculumRepo()
	labels := newMemLabelRepo()
	topics := newMemTopicRepo(labels)
	return NewCurriculumUseCase(curricula, labels, topics, fakeTxm{})
}

func TestCurriculumUC_CRUD(t *testing.T) {
	uc := newCurriculumFixture()
	ctx := context.Background()

	t.Run("create validates title and country", func(t *testing.T) {
		if _, err := uc.CreateCurriculum(ctx, CurriculumInput{Title: " ", Country: "DE"}); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("err = %v", err)
		}
		if _, err := uc.CreateCurriculum(ctx, CurriculumInput{Title: "Math", Country: ""}); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("err = %v", err)
		}
	})

	c, err := uc.CreateCurriculum(ctx, CurriculumInput{
		Title:   "Math Grade 1",
		Country: "DE",
		Translations: model.Translations{
			"de": {Title: "Mathe Klasse 1"},
		},
	})
	if err != nil {
		t.Fatalf("CreateCurriculum: %v", err)
	}

	t.Run("update keeps translations when omitted", func(t *testing.T) {
		got, err := uc.UpdateCurriculum(ctx, c.ID, CurriculumInput{Title: "Math Grade One", Country: "DE"})
		if err != nil {
			t.Fatalf("UpdateCurriculum: %v", err)
		}
		if got.Title != "Math Grade One" {
			t.Fatalf("title = %q", got.Title)
		}
		if got.Translations["de"].Title != "Mathe Klasse 1" {
			t.Fatalf("translations dropped: %+v", got.Translations)
		}
	})

	t.Run("list filters by country", func(t *testing.T) {
		if _, err := uc.CreateCurriculum(ctx, CurriculumInput{Title: "Science", Country: "FR"}); err != nil {
			t.Fatalf("CreateCurriculum: %v", err)
		}
		all, err := uc.ListCurricula(ctx, repository.CurriculumFilter{})
		if err != nil || len(all) != 2 {
			t.Fatalf("all = %d (%v), want 2", len(all), err)
		}
		de, err := uc.ListCurricula(ctx, repository.CurriculumFilter{Country: "DE"})
		if err != nil || len(de) != 1 {
			t.Fatalf("de = %d (%v), want 1", len(de), err)
		}
		countries, err := uc.Countries(ctx)
		if err != nil || len(countries) != 2 {
			t.Fatalf("countries = %v (%v)", countries, err)
		}
	})

	t.Run("delete is soft", func(t *testing.T) {
		if err := uc.DeleteCurriculum(ctx, c.ID); err != nil {
			t.Fatalf("DeleteCurriculum: %v", err)
		}
		if _, err := uc.GetCurriculum(ctx, c.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestCurriculumUC_Tree(t *testing.T) {
	uc := newCurriculumFixture()
	ctx := context.Background()

	c, err := uc.CreateCurriculum(ctx, CurriculumInput{Title: "Math", Country: "DE"})
	if err != nil {
		t.Fatalf("CreateCurriculum: %v", err)
	}

	// Orphan labels are rejected.
	if _, err := uc.CreateLabel(ctx, LabelInput{CurriculumID: "missing", Title: "x"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("orphan label err = %v", err)
	}

	l2, err := uc.CreateLabel(ctx, LabelInput{CurriculumID: c.ID, Title: "Numbers", Order: 2})
	if err != nil {
		t.Fatalf("CreateLabel: %v", err)
	}
	l1, err := uc.CreateLabel(ctx, LabelInput{CurriculumID: c.ID, Title: "Counting", Order: 1})
	if err != nil {
		t.Fatalf("CreateLabel: %v", err)
	}

	if _, err := uc.CreateTopic(ctx, TopicInput{LabelID: "missing", Title: "x"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("orphan topic err = %v", err)
	}
	tb, err := uc.CreateTopic(ctx, TopicInput{LabelID: l1.ID, Title: "Up to ten", Order: 2})
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}
	ta, err := uc.CreateTopic(ctx, TopicInput{LabelID: l1.ID, Title: "Up to five", Order: 1})
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	tree, err := uc.Tree(ctx, c.ID)
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if tree.Curriculum.ID != c.ID {
		t.Fatalf("curriculum = %+v", tree.Curriculum)
	}
	if len(tree.Labels) != 2 || tree.Labels[0].Label.ID != l1.ID || tree.Labels[1].Label.ID != l2.ID {
		t.Fatalf("labels out of order: %+v", tree.Labels)
	}
	got := tree.Labels[0].Topics
	if len(got) != 2 || got[0].ID != ta.ID || got[1].ID != tb.ID {
		t.Fatalf("topics out of order: %+v", got)
	}

	t.Run("deactivated topic leaves the tree", func(t *testing.T) {
		if err := uc.DeleteTopic(ctx, tb.ID); err != nil {
			t.Fatalf("DeleteTopic: %v", err)
		}
		tree, err := uc.Tree(ctx, c.ID)
		if err != nil {
			t.Fatalf("Tree: %v", err)
		}
		if len(tree.Labels[0].Topics) != 1 {
			t.Fatalf("topics = %+v", tree.Labels[0].Topics)
		}
	})

	t.Run("deleted label takes its topics along", func(t *testing.T) {
		if err := uc.DeleteLabel(ctx, l1.ID); err != nil {
			t.Fatalf("DeleteLabel: %v", err)
		}
		tree, err := uc.Tree(ctx, c.ID)
		if err != nil {
			t.Fatalf("Tree: %v", err)
		}
		if len(tree.Labels) != 1 || tree.Labels[0].Label.ID != l2.ID {
			t.Fatalf("labels = %+v", tree.Labels)
		}
	})

	t.Run("missing curriculum", func(t *testing.T) {
		if _, err := uc.Tree(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("err = %v", err)
		}
	})
}
