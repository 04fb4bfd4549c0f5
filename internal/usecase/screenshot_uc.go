package usecase

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"drobe-backend/internal/domain"
	"drobe-backend/internal/domain/model"
	"drobe-backend/internal/domain/ports/adapter"
)

// LiveParams carries the upstream model settings the screenshot flow needs
// to open its own short-lived session.
type LiveParams struct {
	Model                    string
	Voice                    string
	CompressionTriggerTokens int32
	CompressionTargetTokens  int32
	// Timeout bounds the wait for the model's answer.
	Timeout time.Duration
}

// ScreenshotResult is what the assist endpoint returns to the client.
type ScreenshotResult struct {
	Question string
	Answer   string
	ImageURL string
}

// Compile-time check
var _ ScreenshotUseCase = (*screenshotUC)(nil)

type ScreenshotUseCase interface {
	// Assist stores the screenshot, asks the model about it in a one-shot
	// live session, and appends both sides to the transcript.
	Assist(ctx context.Context, sessionID string, image []byte, mimeType, question string) (*ScreenshotResult, error)
}

type screenshotUC struct {
	sessions SessionUseCase
	media    adapter.MediaStore
	dialer   adapter.LiveDialer
	params   LiveParams
	log      *zerolog.Logger
}

func NewScreenshotUseCase(sessions SessionUseCase, media adapter.MediaStore, dialer adapter.LiveDialer, params LiveParams, logger *zerolog.Logger) *screenshotUC {
	l := logger.With().Str("component", "ScreenshotUseCase").Logger()
	return &screenshotUC{sessions: sessions, media: media, dialer: dialer, params: params, log: &l}
}

func (u *screenshotUC) Assist(ctx context.Context, sessionID string, image []byte, mimeType, question string) (*ScreenshotResult, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("empty image: %w", domain.ErrInvalidArgument)
	}
	s, err := u.sessions.GetActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if question == "" {
		question = model.DefaultImageQuestion
	}

	key := fmt.Sprintf("screenshots/%s/%s%s", s.ID, ulid.Make().String(), extFor(mimeType))
	url, err := u.media.Put(ctx, key, mimeType, bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("store screenshot: %w", err)
	}
	if _, err := u.sessions.RecordBlob(ctx, s.ID, model.SenderChild, model.KindImage, key, question); err != nil {
		return nil, err
	}

	answer, err := u.ask(ctx, s, image, mimeType, question)
	if err != nil {
		return nil, err
	}
	if _, err := u.sessions.RecordText(ctx, s.ID, model.SenderAssistant, answer); err != nil {
		u.log.Error().Err(err).Str("session_id", s.ID).Msg("failed to persist screenshot answer")
	}
	return &ScreenshotResult{Question: question, Answer: answer, ImageURL: url}, nil
}

// ask opens a dedicated upstream session for the single image turn. The
// session carries the same persona as the relay but no history; the
// screenshot stands on its own.
func (u *screenshotUC) ask(ctx context.Context, s *model.ChatSession, image []byte, mimeType, question string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, u.params.Timeout)
	defer cancel()

	conn, err := u.dialer.Connect(ctx, u.params.Model, &adapter.LiveConnectConfig{
		SystemInstruction:        s.SystemInstruction(),
		Voice:                    u.params.Voice,
		CompressionTriggerTokens: u.params.CompressionTriggerTokens,
		CompressionTargetTokens:  u.params.CompressionTargetTokens,
	})
	if err != nil {
		return "", fmt.Errorf("live connect: %w", err)
	}
	defer conn.Close()

	turn := adapter.Turn{Role: adapter.RoleUser, Parts: []adapter.Part{
		{Text: question},
		{Blob: &adapter.Blob{MIMEType: mimeType, Data: image}},
	}}
	if err := conn.SendTurns(ctx, []adapter.Turn{turn}, true); err != nil {
		return "", fmt.Errorf("send screenshot: %w", err)
	}

	var answer string
	for {
		msg, err := conn.Receive(ctx)
		if err != nil {
			// A partial answer is still useful to the child.
			if answer != "" {
				u.log.Warn().Err(err).Str("session_id", s.ID).Msg("screenshot answer truncated")
				return answer, nil
			}
			return "", fmt.Errorf("receive answer: %w", err)
		}
		answer += msg.Text
		if msg.TurnComplete {
			return answer, nil
		}
	}
}

func extFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}
