package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"drobe-backend/internal/domain/ports/repository"
)

// CleanupWorker periodically deactivates chat sessions that have been idle
// longer than the configured retention window. Transcripts stay untouched.
type CleanupWorker struct {
	interval time.Duration
	idleDays int
	sessions repository.SessionRepository
	log      *zerolog.Logger
}

func NewCleanupWorker(interval time.Duration, idleDays int, sessions repository.SessionRepository, logger *zerolog.Logger) *CleanupWorker {
	l := logger.With().Str("component", "CleanupWorker").Logger()
	return &CleanupWorker{interval: interval, idleDays: idleDays, sessions: sessions, log: &l}
}

func (w *CleanupWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Int("idle_days", w.idleDays).Msg("starting cleanup worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping cleanup worker")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.sessions.DeactivateIdle(ctx, w.idleDays)
			if err != nil {
				w.log.Error().Err(err).Msg("cleanup worker error")
				continue
			}
			if n > 0 {
				w.log.Info().Int64("count", n).Msg("idle sessions deactivated")
			}
		}
	}
}
