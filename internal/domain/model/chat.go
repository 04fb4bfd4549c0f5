package model

import (
	"fmt"
	"time"

	"drobe-backend/internal/domain"
)

// Bounds for the child's age accepted at session creation.
const (
	MinChildAge = 4
	MaxChildAge = 10
)

type Sender string

const (
	SenderChild     Sender = "child"
	SenderAssistant Sender = "assistant"
)

type MessageKind string

const (
	KindText  MessageKind = "text"
	KindAudio MessageKind = "audio"
	KindImage MessageKind = "image"
)

// ChatSession represents one conversation between a child and the voice
// assistant. Immutable after creation except for Active and UpdatedAt.
type ChatSession struct {
	ID               string
	LevelDescription string
	ChildAge         int
	PrimingMessage   string
	Active           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func NewChatSession(id, levelDescription string, childAge int, primingMessage string) (*ChatSession, error) {
	if childAge < MinChildAge || childAge > MaxChildAge {
		return nil, fmt.Errorf("child_age %d out of range [%d,%d]: %w", childAge, MinChildAge, MaxChildAge, domain.ErrInvalidArgument)
	}
	now := time.Now()
	return &ChatSession{
		ID:               id,
		LevelDescription: levelDescription,
		ChildAge:         childAge,
		PrimingMessage:   primingMessage,
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// End soft-deletes the session. Sessions are never hard-deleted by the core.
func (s *ChatSession) End() {
	s.Active = false
	s.UpdatedAt = time.Now()
}

// ChatMessage is one entry in a session's transcript. The transcript is a
// strict append-only log ordered by creation time.
type ChatMessage struct {
	ID        string
	SessionID string
	Sender    Sender
	Kind      MessageKind
	Text      string
	BlobKey   string
	CreatedAt time.Time
}

func NewTextMessage(id, sessionID string, sender Sender, text string) *ChatMessage {
	return &ChatMessage{
		ID:        id,
		SessionID: sessionID,
		Sender:    sender,
		Kind:      KindText,
		Text:      text,
		CreatedAt: time.Now(),
	}
}

func NewBlobMessage(id, sessionID string, sender Sender, kind MessageKind, blobKey, caption string) *ChatMessage {
	return &ChatMessage{
		ID:        id,
		SessionID: sessionID,
		Sender:    sender,
		Kind:      kind,
		Text:      caption,
		BlobKey:   blobKey,
		CreatedAt: time.Now(),
	}
}
