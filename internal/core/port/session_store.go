package port

import (
	"context"
	"time"

	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/core/domain"
)

// SessionStore persists authenticated sessions with a sliding TTL.
type SessionStore interface {
	Save(ctx context.Context, session domain.Session, ttl time.Duration) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	// Touch refreshes the session TTL and last-seen timestamp. Returns
	// repository.ErrNotFound when the session has already expired.
	Touch(ctx context.Context, id string, at time.Time, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}
