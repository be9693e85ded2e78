package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/core/domain"
	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/core/port"
	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/repository"
)

// SessionRepository keeps authenticated sessions in Redis under a sliding TTL.
type SessionRepository struct {
	client *redis.Client
	prefix string
}

// NewSessionRepository constructs a Redis-backed session store.
func NewSessionRepository(client *redis.Client, prefix string) *SessionRepository {
	return &SessionRepository{client: client, prefix: prefix}
}

// Save persists the session with the provided TTL.
func (r *SessionRepository) Save(ctx context.Context, session domain.Session, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := r.client.Set(ctx, r.key(session.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}

	return nil
}

// Get loads a session by identifier.
func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	payload, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	return &session, nil
}

// Touch refreshes the sliding TTL and last-seen timestamp in one rewrite.
func (r *SessionRepository) Touch(ctx context.Context, id string, at time.Time, ttl time.Duration) error {
	session, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	session.LastSeen = at
	return r.Save(ctx, *session, ttl)
}

// Delete removes the session. Deleting an absent session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}

func (r *SessionRepository) key(id string) string {
	if r.prefix == "" {
		return id
	}
	return fmt.Sprintf("%s:%s", r.prefix, id)
}

var _ port.SessionStore = (*SessionRepository)(nil)
