package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrSessionInactive = errors.New("chat session is not active")
	ErrRateLimited     = errors.New("rate limit exceeded")

	// Live session lifecycle errors
	ErrMissingAPIKey  = errors.New("live api key is not configured")
	ErrAlreadyStarted = errors.New("live session already started")
	ErrNotStarted     = errors.New("live session not started")
)
