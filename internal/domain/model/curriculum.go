package model

import (
	"strings"
	"time"

	"drobe-backend/internal/domain"
)

// Translations maps a language code to a translated title/description pair.
type Translations map[string]Translation

type Translation struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// Curriculum is the root of the content tree for one country.
type Curriculum struct {
	ID           string
	Title        string
	Description  string
	Country      string
	ImageKey     string
	Translations Translations
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewCurriculum(id, title, description, country string) (*Curriculum, error) {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(country) == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Curriculum{
		ID:          id,
		Title:       title,
		Description: description,
		Country:     country,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Label groups topics within a curriculum. Order controls display position.
type Label struct {
	ID           string
	CurriculumID string
	Title        string
	Order        int
	Translations Translations
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewLabel(id, curriculumID, title string, order int) (*Label, error) {
	if strings.TrimSpace(title) == "" || curriculumID == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Label{
		ID:           id,
		CurriculumID: curriculumID,
		Title:        title,
		Order:        order,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Topic carries the actual educational content behind a label.
type Topic struct {
	ID           string
	LabelID      string
	Title        string
	Description  string
	ContentLink  string
	ImageKey     string
	Order        int
	Translations Translations
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewTopic(id, labelID, title, description, contentLink string, order int) (*Topic, error) {
	if strings.TrimSpace(title) == "" || labelID == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Topic{
		ID:          id,
		LabelID:     labelID,
		Title:       title,
		Description: description,
		ContentLink: contentLink,
		Order:       order,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
