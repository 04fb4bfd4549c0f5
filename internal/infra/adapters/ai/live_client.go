package ai

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"drobe-backend/internal/domain"
	"drobe-backend/internal/domain/model"
	"drobe-backend/internal/domain/ports/adapter"
	"drobe-backend/internal/infra/metrics"
)

type EventType string

const (
	EventAudio        EventType = "audio"
	EventText         EventType = "text"
	EventToolCall     EventType = "tool_call"
	EventTurnComplete EventType = "turn_complete"
	EventError        EventType = "error"
)

// Event is one element of the flattened response stream. Turn boundaries are
// in-band so the consumer can flush client-side playback buffers between
// turns without tracking two nesting levels.
type Event struct {
	Type      EventType
	Audio     []byte
	Text      string
	ToolCalls []adapter.FunctionCall
	Err       error
}

// LiveSettings carries the model-level knobs shared by all sessions.
type LiveSettings struct {
	Model                    string
	Voice                    string
	CompressionTriggerTokens int32
	CompressionTargetTokens  int32
}

// LiveOptions carries the per-session conversation context.
type LiveOptions struct {
	SessionID        string
	LevelDescription string
	ChildAge         int
	History          []adapter.Turn
	PrimingMessage   string
}

// LiveClient owns exactly one logical session against the streaming AI
// service. At most one upstream connection exists per client instance;
// operations that need it fail explicitly before Start and after Close.
type LiveClient struct {
	dialer   adapter.LiveDialer
	settings LiveSettings
	opts     LiveOptions
	log      *zerolog.Logger

	mu      sync.Mutex
	conn    adapter.LiveConn
	started bool
}

func NewLiveClient(dialer adapter.LiveDialer, settings LiveSettings, opts LiveOptions, logger *zerolog.Logger) *LiveClient {
	l := logger.With().Str("component", "LiveClient").Str("session_id", opts.SessionID).Logger()
	return &LiveClient{dialer: dialer, settings: settings, opts: opts, log: &l}
}

// Start opens the upstream connection, replays prior history and sends the
// priming message if one was configured. Calling Start twice is an error,
// not a no-op.
func (c *LiveClient) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startLocked(ctx)
}

func (c *LiveClient) startLocked(ctx context.Context) error {
	if c.started {
		return domain.ErrAlreadyStarted
	}

	cfg := &adapter.LiveConnectConfig{
		SystemInstruction:        model.PersonaInstruction(c.opts.ChildAge, c.opts.LevelDescription),
		Voice:                    c.settings.Voice,
		CompressionTriggerTokens: c.settings.CompressionTriggerTokens,
		CompressionTargetTokens:  c.settings.CompressionTargetTokens,
	}

	began := time.Now()
	conn, err := c.dialer.Connect(ctx, c.settings.Model, cfg)
	metrics.ObserveLiveStart(c.settings.Model, int(time.Since(began).Milliseconds()), err == nil)
	if err != nil {
		return err
	}

	// History is replayed without an end-of-turn marker so the model does
	// not answer it; the priming message does carry one.
	if len(c.opts.History) > 0 {
		if err := conn.SendTurns(ctx, c.opts.History, false); err != nil {
			_ = conn.Close()
			return err
		}
	}
	if c.opts.PrimingMessage != "" {
		turn := adapter.Turn{Role: adapter.RoleUser, Parts: []adapter.Part{{Text: c.opts.PrimingMessage}}}
		if err := conn.SendTurns(ctx, []adapter.Turn{turn}, true); err != nil {
			_ = conn.Close()
			return err
		}
	}

	c.conn = conn
	c.started = true
	metrics.LiveSessionOpened()
	c.log.Info().Int("history_turns", len(c.opts.History)).Msg("live session started")
	return nil
}

// SendText forwards one text turn. endOfTurn tells the model to start
// generating; pass false only when more input for the same turn follows.
func (c *LiveClient) SendText(ctx context.Context, text string, endOfTurn bool) error {
	conn, err := c.active()
	if err != nil {
		return err
	}
	turn := adapter.Turn{Role: adapter.RoleUser, Parts: []adapter.Part{{Text: text}}}
	return conn.SendTurns(ctx, []adapter.Turn{turn}, endOfTurn)
}

// SendAudio forwards a raw PCM chunk (16-bit, 16 kHz, mono) as a continuous
// stream. No end-of-turn marker is ever sent for audio: the upstream service
// detects end of speech itself, and an explicit marker truncates detection.
func (c *LiveClient) SendAudio(ctx context.Context, pcm []byte) error {
	conn, err := c.active()
	if err != nil {
		return err
	}
	return conn.SendRealtimeAudio(ctx, pcm)
}

// SendImage forwards an image with an optional question as a single turn.
// Unlike the other send operations it lazily starts the session.
func (c *LiveClient) SendImage(ctx context.Context, data []byte, mimeType, question string) error {
	c.mu.Lock()
	if !c.started {
		if err := c.startLocked(ctx); err != nil {
			c.mu.Unlock()
			return err
		}
	}
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return domain.ErrNotStarted
	}

	if question == "" {
		question = model.DefaultImageQuestion
	}
	turn := adapter.Turn{Role: adapter.RoleUser, Parts: []adapter.Part{
		{Text: question},
		{Blob: &adapter.Blob{MIMEType: mimeType, Data: data}},
	}}
	return conn.SendTurns(ctx, []adapter.Turn{turn}, true)
}

// Responses returns the lazy, non-restartable response stream. Transport
// errors become a single EventError followed by channel close, so the
// draining task always terminates cleanly. Cancellation closes the channel
// without an error event. Calling before Start yields a single
// EventError carrying ErrNotStarted.
func (c *LiveClient) Responses(ctx context.Context) <-chan Event {
	out := make(chan Event, 8)

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		c.log.Error().Msg("cannot receive responses: live session not started")
		out <- Event{Type: EventError, Err: domain.ErrNotStarted}
		close(out)
		return out
	}

	go func() {
		defer close(out)
		for {
			msg, err := conn.Receive(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, context.Canceled) {
					return
				}
				metrics.IncLiveEvent(string(EventError))
				emit(ctx, out, Event{Type: EventError, Err: err})
				return
			}
			if len(msg.Audio) > 0 {
				metrics.IncLiveEvent(string(EventAudio))
				if !emit(ctx, out, Event{Type: EventAudio, Audio: msg.Audio}) {
					return
				}
			}
			if msg.Text != "" {
				metrics.IncLiveEvent(string(EventText))
				if !emit(ctx, out, Event{Type: EventText, Text: msg.Text}) {
					return
				}
			}
			if len(msg.ToolCalls) > 0 {
				metrics.IncLiveEvent(string(EventToolCall))
				if !emit(ctx, out, Event{Type: EventToolCall, ToolCalls: msg.ToolCalls}) {
					return
				}
			}
			if msg.TurnComplete {
				metrics.IncLiveEvent(string(EventTurnComplete))
				metrics.IncLiveTurn(c.settings.Model)
				if !emit(ctx, out, Event{Type: EventTurnComplete}) {
					return
				}
			}
		}
	}()
	return out
}

func emit(ctx context.Context, out chan<- Event, ev Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// Close releases the upstream connection. Safe to call any number of times,
// before or after Start.
func (c *LiveClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	metrics.LiveSessionClosed()
	if err != nil {
		c.log.Warn().Err(err).Msg("error closing live session")
		return err
	}
	c.log.Info().Msg("live session closed")
	return nil
}

// Model reports the configured upstream model identifier.
func (c *LiveClient) Model() string { return c.settings.Model }

func (c *LiveClient) active() (adapter.LiveConn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, domain.ErrNotStarted
	}
	return c.conn, nil
}
