package redis

import (
	"context"
	"encoding/json"
	"time"

	"drobe-backend/internal/domain/model"
)

// SessionCache fronts the active-session lookup on the websocket connect
// path. Best-effort: callers fall through to the database on any miss.
type SessionCache struct {
	client *Client
	ttl    time.Duration
}

func NewSessionCache(client *Client, ttl time.Duration) *SessionCache {
	return &SessionCache{client: client, ttl: ttl}
}

func (c *SessionCache) Store(ctx context.Context, s *model.ChatSession) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, "chat_session:"+s.ID, data, c.ttl)
}

func (c *SessionCache) Get(ctx context.Context, sessionID string) (*model.ChatSession, error) {
	data, err := c.client.Get(ctx, "chat_session:"+sessionID)
	if err != nil {
		return nil, err
	}
	var s model.ChatSession
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *SessionCache) Delete(ctx context.Context, sessionID string) error {
	return c.client.Del(ctx, "chat_session:"+sessionID)
}
