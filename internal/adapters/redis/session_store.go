// Package redis provides the Redis-backed session cache used when the export
// service runs with more than one replica sharing one platform session.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/target/dms-export/internal/core"
	"github.com/target/dms-export/internal/domain/model"
	apperrors "github.com/target/dms-export/internal/errors"
)

const defaultSessionKey = "dms-export:session"

// SessionStore persists the single cached platform session in Redis. Unlike
// ordinary user sessions there is exactly one object and no TTL: an expired
// access token is still useful because it carries the refresh token needed to
// obtain the next one.
type SessionStore struct {
	client redis.UniversalClient
	key    string
}

var _ core.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a Redis-backed session store.
func NewSessionStore(client redis.UniversalClient) *SessionStore {
	return &SessionStore{client: client, key: defaultSessionKey}
}

// NewSessionStoreWithKey creates a session store under a custom key.
func NewSessionStoreWithKey(client redis.UniversalClient, key string) *SessionStore {
	return &SessionStore{client: client, key: key}
}

// Load returns the persisted session.
func (s *SessionStore) Load(ctx context.Context) (model.Session, error) {
	data, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Session{}, apperrors.NotFound("no session persisted")
		}
		return model.Session{}, fmt.Errorf("redis get session: %w", err)
	}

	var sess model.Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return model.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return sess, nil
}

// Save replaces the persisted session wholesale. Last writer wins.
func (s *SessionStore) Save(ctx context.Context, sess model.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.client.Set(ctx, s.key, data, 0).Err()
}
