package api

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"drobe-backend/internal/domain/model"
	red "drobe-backend/internal/infra/redis"
)

const maxScreenshotBytes = 10 << 20

type sessionDTO struct {
	ID               string    `json:"id"`
	LevelDescription string    `json:"level_description"`
	ChildAge         int       `json:"child_age"`
	PrimingMessage   string    `json:"priming_message,omitempty"`
	Active           bool      `json:"active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type messageDTO struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Sender    string    `json:"sender"`
	Kind      string    `json:"kind"`
	Text      string    `json:"text,omitempty"`
	BlobURL   string    `json:"blob_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) toSessionDTO(m *model.ChatSession) sessionDTO {
	return sessionDTO{
		ID:               m.ID,
		LevelDescription: m.LevelDescription,
		ChildAge:         m.ChildAge,
		PrimingMessage:   m.PrimingMessage,
		Active:           m.Active,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func (s *Server) toMessageDTO(m *model.ChatMessage) messageDTO {
	dto := messageDTO{
		ID:        m.ID,
		SessionID: m.SessionID,
		Sender:    string(m.Sender),
		Kind:      string(m.Kind),
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
	if m.BlobKey != "" && s.media != nil {
		dto.BlobURL = s.media.URL(m.BlobKey)
	}
	return dto
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var in struct {
		LevelDescription string `json:"level_description"`
		ChildAge         int    `json:"child_age"`
		PrimingMessage   string `json:"priming_message"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	sess, err := s.sessions.Create(r.Context(), in.LevelDescription, in.ChildAge, in.PrimingMessage)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, s.toSessionDTO(sess))
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.sessions.List(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	out := make([]sessionDTO, 0, len(sessions))
	for _, m := range sessions {
		out = append(out, s.toSessionDTO(m))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.toSessionDTO(sess))
}

func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sessions.End(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ended", "session_id": id})
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}
	msgs, err := s.sessions.History(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	out := make([]messageDTO, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, s.toMessageDTO(m))
	}
	respondJSON(w, http.StatusOK, out)
}

// screenshotAssist accepts a multipart upload with an "image" part and an
// optional "question" field, rate limited per session.
func (s *Server) screenshotAssist(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if s.limiter != nil {
		ok, err := s.limiter.Allow(r.Context(), red.ScreenshotKey(id), s.ssLimit.Limit, s.ssLimit.Window)
		if err != nil {
			s.log.Warn().Err(err).Msg("rate limiter unavailable, allowing request")
		} else if !ok {
			respondError(w, http.StatusTooManyRequests, "screenshot limit reached, try again later")
			return
		}
	}

	if err := r.ParseMultipartForm(maxScreenshotBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxScreenshotBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read image")
		return
	}
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/png"
	}
	question := r.FormValue("question")

	res, err := s.screenshots.Assist(r.Context(), id, image, mimeType, question)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"session_id": id,
		"question":   res.Question,
		"answer":     res.Answer,
		"image_url":  res.ImageURL,
	})
}
