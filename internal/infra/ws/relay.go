package ws

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"drobe-backend/internal/config"
	"drobe-backend/internal/domain"
	"drobe-backend/internal/domain/model"
	"drobe-backend/internal/domain/ports/adapter"
	"drobe-backend/internal/infra/adapters/ai"
	"drobe-backend/internal/infra/logging"
	"drobe-backend/internal/infra/metrics"
	"drobe-backend/internal/infra/worker"
	"drobe-backend/internal/usecase"
)

// Application close codes sent before tearing down the websocket.
const (
	CloseSessionNotFound websocket.StatusCode = 4004
	CloseStartupFailure  websocket.StatusCode = 4011
)

// frame is the JSON message exchanged with the client. Raw binary frames
// carry PCM audio in both directions and bypass this envelope.
//
// Content holds the payload for text, audio_base64 and response frames.
// Error frames carry a human-readable Message plus the underlying Error
// detail when one exists.
type frame struct {
	Type                string                 `json:"type"`
	Message             string                 `json:"message,omitempty"`
	Content             string                 `json:"content,omitempty"`
	Error               string                 `json:"error,omitempty"`
	SessionID           string                 `json:"session_id,omitempty"`
	HistoryMessageCount int                    `json:"history_message_count,omitempty"`
	Model               string                 `json:"model,omitempty"`
	AudioFormat         string                 `json:"audio_format,omitempty"`
	ToolCalls           []adapter.FunctionCall `json:"tool_calls,omitempty"`
}

// Handler upgrades GET /ws/chat/{session_id} and relays between the client
// and one upstream live session.
type Handler struct {
	sessions      usecase.SessionUseCase
	dialer        adapter.LiveDialer
	settings      ai.LiveSettings
	relayCfg      config.RelayConfig
	pool          *worker.Pool
	allowedOrigin string
	dev           bool
	log           *zerolog.Logger
}

func NewHandler(
	sessions usecase.SessionUseCase,
	dialer adapter.LiveDialer,
	settings ai.LiveSettings,
	relayCfg config.RelayConfig,
	pool *worker.Pool,
	allowedOrigin string,
	dev bool,
	logger *zerolog.Logger,
) *Handler {
	l := logger.With().Str("component", "ws.Handler").Logger()
	return &Handler{
		sessions:      sessions,
		dialer:        dialer,
		settings:      settings,
		relayCfg:      relayCfg,
		pool:          pool,
		allowedOrigin: allowedOrigin,
		dev:           dev,
		log:           &l,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	connID := uuid.NewString()
	ctx := logging.WithSessID(logging.WithConnID(r.Context(), connID), sessionID)
	log := logging.With(ctx, h.log)

	opts := &websocket.AcceptOptions{}
	if h.dev || h.allowedOrigin == "*" {
		opts.InsecureSkipVerify = true
	} else if h.allowedOrigin != "" {
		opts.OriginPatterns = []string{h.allowedOrigin}
	}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		log.Warn().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "session ended")

	metrics.ConnOpened()
	defer metrics.ConnClosed()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s, err := h.sessions.GetActive(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn().Msg("session not found or inactive")
			h.writeError(ctx, conn, "session not found or inactive")
			conn.Close(CloseSessionNotFound, "session not found")
			return
		}
		log.Error().Err(err).Msg("session lookup failed")
		metrics.IncRelayError("startup")
		conn.Close(websocket.StatusInternalError, "session lookup failed")
		return
	}

	history, err := h.sessions.ReplayTurns(ctx, sessionID)
	if err != nil {
		log.Error().Err(err).Msg("history load failed")
		metrics.IncRelayError("startup")
		conn.Close(websocket.StatusInternalError, "history load failed")
		return
	}

	client := ai.NewLiveClient(h.dialer, h.settings, ai.LiveOptions{
		SessionID:        s.ID,
		LevelDescription: s.LevelDescription,
		ChildAge:         s.ChildAge,
		History:          history,
		PrimingMessage:   s.PrimingMessage,
	}, log)
	defer client.Close()

	startCtx, cancelStart := context.WithTimeout(ctx, h.relayCfg.StartTimeout)
	err = client.Start(startCtx)
	cancelStart()
	if err != nil {
		log.Error().Err(err).Msg("live session startup failed")
		metrics.IncRelayError("startup")
		h.writeFrame(ctx, conn, frame{Type: "error", Message: "assistant unavailable", Error: err.Error()})
		conn.Close(CloseStartupFailure, "assistant startup failed")
		return
	}

	h.writeFrame(ctx, conn, frame{
		Type:                "connection",
		Message:             "connected",
		SessionID:           s.ID,
		HistoryMessageCount: len(history),
		Model:               h.settings.Model,
		AudioFormat:         "pcm16",
	})
	log.Info().Int("history_turns", len(history)).Msg("relay connected")

	// The drain goroutine has its own cancel so disconnect can stop it and
	// wait for acknowledgement before closing the upstream session.
	drainCtx, cancelDrain := context.WithCancel(ctx)
	drainDone := make(chan struct{})
	go func() {
		defer close(drainDone)
		h.drain(drainCtx, conn, client, s.ID, log)
	}()

	h.inbound(ctx, conn, client, s.ID, log)

	cancelDrain()
	select {
	case <-drainDone:
	case <-time.After(h.relayCfg.DrainStopTimeout):
		log.Warn().Msg("drain goroutine did not stop in time")
	}
	if err := client.Close(); err != nil {
		log.Warn().Err(err).Msg("upstream close failed")
	}
	log.Info().Msg("relay disconnected")
}

// inbound reads client frames until the socket closes or the context ends.
// Malformed frames are reported and skipped; the connection stays up.
func (h *Handler) inbound(ctx context.Context, conn *websocket.Conn, client *ai.LiveClient, sessionID string, log *zerolog.Logger) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || ctx.Err() != nil {
				log.Debug().Msg("client disconnected")
			} else {
				log.Warn().Err(err).Msg("websocket read error")
				metrics.IncRelayError("inbound")
			}
			return
		}

		if typ == websocket.MessageBinary {
			metrics.IncFrame("audio", "in")
			metrics.AddAudioBytes("in", len(data))
			if err := client.SendAudio(ctx, data); err != nil {
				log.Warn().Err(err).Msg("audio forward failed")
				metrics.IncRelayError("inbound")
				h.writeError(ctx, conn, "failed to forward audio")
			}
			continue
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			h.writeError(ctx, conn, "invalid message format")
			continue
		}
		metrics.IncFrame(f.Type, "in")

		switch f.Type {
		case "text":
			if f.Content == "" {
				h.writeError(ctx, conn, "text content is required")
				continue
			}
			h.persistText(ctx, sessionID, model.SenderChild, f.Content, log)
			if err := client.SendText(ctx, f.Content, true); err != nil {
				log.Warn().Err(err).Msg("text forward failed")
				metrics.IncRelayError("inbound")
				h.writeFrame(ctx, conn, frame{Type: "error", Message: "failed to forward message", Error: err.Error()})
			}
		case "audio_base64":
			pcm, err := base64.StdEncoding.DecodeString(f.Content)
			if err != nil {
				h.writeError(ctx, conn, "invalid base64 audio")
				continue
			}
			metrics.AddAudioBytes("in", len(pcm))
			if err := client.SendAudio(ctx, pcm); err != nil {
				log.Warn().Err(err).Msg("audio forward failed")
				metrics.IncRelayError("inbound")
				h.writeError(ctx, conn, "failed to forward audio")
			}
		case "ping":
			h.writeFrame(ctx, conn, frame{Type: "pong"})
		default:
			h.writeError(ctx, conn, "unknown message type")
		}
	}
}

// drain forwards upstream events to the client until the stream ends. Text
// chunks are buffered per turn and persisted on the turn boundary.
func (h *Handler) drain(ctx context.Context, conn *websocket.Conn, client *ai.LiveClient, sessionID string, log *zerolog.Logger) {
	var turnText string
	for ev := range client.Responses(ctx) {
		switch ev.Type {
		case ai.EventAudio:
			metrics.IncFrame("audio", "out")
			metrics.AddAudioBytes("out", len(ev.Audio))
			if err := conn.Write(ctx, websocket.MessageBinary, ev.Audio); err != nil {
				log.Debug().Err(err).Msg("audio write failed")
				return
			}
		case ai.EventText:
			turnText += ev.Text
			h.writeFrame(ctx, conn, frame{Type: "response", Content: ev.Text, SessionID: sessionID})
		case ai.EventToolCall:
			h.writeFrame(ctx, conn, frame{Type: "tool_call", SessionID: sessionID, ToolCalls: ev.ToolCalls})
		case ai.EventTurnComplete:
			if turnText != "" {
				h.persistText(ctx, sessionID, model.SenderAssistant, turnText, log)
				turnText = ""
			}
			h.writeFrame(ctx, conn, frame{Type: "turn_complete", SessionID: sessionID})
		case ai.EventError:
			log.Error().Err(ev.Err).Msg("upstream stream error")
			metrics.IncRelayError("drain")
			h.writeFrame(ctx, conn, frame{Type: "error", Message: "assistant stream interrupted", Error: ev.Err.Error()})
			return
		}
	}
	// Persist whatever arrived before an abrupt end of stream.
	if turnText != "" {
		h.persistText(context.WithoutCancel(ctx), sessionID, model.SenderAssistant, turnText, log)
	}
}

// persistText appends to the transcript off the relay hot path. When the
// pool is saturated the write runs inline so no message is lost.
func (h *Handler) persistText(ctx context.Context, sessionID string, sender model.Sender, text string, log *zerolog.Logger) {
	task := func(taskCtx context.Context) error {
		if _, err := h.sessions.RecordText(taskCtx, sessionID, sender, text); err != nil {
			metrics.IncRelayError("persist")
			return err
		}
		return nil
	}
	if err := h.pool.Submit(task); err != nil {
		if !errors.Is(err, worker.ErrQueueFull) {
			log.Error().Err(err).Msg("persist submit failed")
			return
		}
		if err := task(context.WithoutCancel(ctx)); err != nil {
			log.Error().Err(err).Msg("inline persist failed")
		}
	}
}

func (h *Handler) writeFrame(ctx context.Context, conn *websocket.Conn, f frame) {
	metrics.IncFrame(f.Type, "out")
	b, err := json.Marshal(f)
	if err != nil {
		return
	}
	if err := conn.Write(ctx, websocket.MessageText, b); err != nil && ctx.Err() == nil {
		h.log.Debug().Err(err).Str("frame", f.Type).Msg("frame write failed")
	}
}

func (h *Handler) writeError(ctx context.Context, conn *websocket.Conn, msg string) {
	h.writeFrame(ctx, conn, frame{Type: "error", Message: msg})
}
