package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"drobe-backend/internal/domain"
	"drobe-backend/internal/domain/model"
	"drobe-backend/internal/domain/ports/adapter"
	"drobe-backend/internal/domain/ports/repository"
)

// History listing limits.
const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// Compile-time check
var _ SessionUseCase = (*sessionUC)(nil)

type SessionUseCase interface {
	Create(ctx context.Context, levelDescription string, childAge int, primingMessage string) (*model.ChatSession, error)
	Get(ctx context.Context, id string) (*model.ChatSession, error)
	// GetActive returns domain.ErrNotFound for missing or ended sessions.
	GetActive(ctx context.Context, id string) (*model.ChatSession, error)
	List(ctx context.Context) ([]*model.ChatSession, error)
	End(ctx context.Context, id string) error
	History(ctx context.Context, sessionID string, limit int) ([]*model.ChatMessage, error)
	// ReplayTurns maps the session's text transcript to conversation turns
	// for priming a fresh upstream connection.
	ReplayTurns(ctx context.Context, sessionID string) ([]adapter.Turn, error)
	RecordText(ctx context.Context, sessionID string, sender model.Sender, text string) (*model.ChatMessage, error)
	RecordBlob(ctx context.Context, sessionID string, sender model.Sender, kind model.MessageKind, blobKey, caption string) (*model.ChatMessage, error)
}

type sessionUC struct {
	sessions repository.SessionRepository
	messages repository.MessageRepository
}

func NewSessionUseCase(sessions repository.SessionRepository, messages repository.MessageRepository) *sessionUC {
	return &sessionUC{sessions: sessions, messages: messages}
}

func (u *sessionUC) Create(ctx context.Context, levelDescription string, childAge int, primingMessage string) (*model.ChatSession, error) {
	s, err := model.NewChatSession(uuid.NewString(), levelDescription, childAge, primingMessage)
	if err != nil {
		return nil, err
	}
	if err := u.sessions.Save(ctx, nil, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (u *sessionUC) Get(ctx context.Context, id string) (*model.ChatSession, error) {
	return u.sessions.FindByID(ctx, nil, id)
}

func (u *sessionUC) GetActive(ctx context.Context, id string) (*model.ChatSession, error) {
	return u.sessions.FindActiveByID(ctx, nil, id)
}

func (u *sessionUC) List(ctx context.Context) ([]*model.ChatSession, error) {
	return u.sessions.ListActive(ctx, nil)
}

// End soft-deletes the session. Ending an already ended session succeeds.
func (u *sessionUC) End(ctx context.Context, id string) error {
	s, err := u.sessions.FindByID(ctx, nil, id)
	if err != nil {
		return err
	}
	if !s.Active {
		return nil
	}
	return u.sessions.Deactivate(ctx, nil, id)
}

func (u *sessionUC) History(ctx context.Context, sessionID string, limit int) ([]*model.ChatMessage, error) {
	if _, err := u.sessions.FindByID(ctx, nil, sessionID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return u.messages.ListBySession(ctx, nil, sessionID, limit)
}

func (u *sessionUC) ReplayTurns(ctx context.Context, sessionID string) ([]adapter.Turn, error) {
	msgs, err := u.messages.ListTextBySession(ctx, nil, sessionID)
	if err != nil {
		return nil, err
	}
	turns := make([]adapter.Turn, 0, len(msgs))
	for _, m := range msgs {
		role := adapter.RoleUser
		if m.Sender == model.SenderAssistant {
			role = adapter.RoleModel
		}
		turns = append(turns, adapter.Turn{Role: role, Parts: []adapter.Part{{Text: m.Text}}})
	}
	return turns, nil
}

func (u *sessionUC) RecordText(ctx context.Context, sessionID string, sender model.Sender, text string) (*model.ChatMessage, error) {
	if text == "" {
		return nil, fmt.Errorf("empty text: %w", domain.ErrInvalidArgument)
	}
	m := model.NewTextMessage(ulid.Make().String(), sessionID, sender, text)
	return u.append(ctx, m)
}

func (u *sessionUC) RecordBlob(ctx context.Context, sessionID string, sender model.Sender, kind model.MessageKind, blobKey, caption string) (*model.ChatMessage, error) {
	m := model.NewBlobMessage(ulid.Make().String(), sessionID, sender, kind, blobKey, caption)
	return u.append(ctx, m)
}

func (u *sessionUC) append(ctx context.Context, m *model.ChatMessage) (*model.ChatMessage, error) {
	id, err := u.messages.Append(ctx, nil, m)
	if err != nil {
		return nil, err
	}
	m.ID = id
	// Keep updated_at fresh so the idle reaper skips live conversations.
	_ = u.sessions.Touch(ctx, nil, m.SessionID)
	return m, nil
}
