package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/core/domain"
	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/core/port"
	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/repository"
)

const defaultSessionTTL = 24 * time.Hour

var (
	// ErrInvalidSessionToken indicates the token is malformed or signature validation failed.
	ErrInvalidSessionToken = errors.New("invalid session token")
	// ErrSessionExpired indicates the session lapsed or was logged out.
	ErrSessionExpired = errors.New("session expired")
)

// SessionClaims carries the session reference inside the signed token.
type SessionClaims struct {
	SessionID string `json:"sid"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// SessionService holds the authenticated identity between requests. Sessions
// live in the session store under a sliding TTL; the token only references
// the store record, so logout takes effect immediately.
type SessionService struct {
	store   port.SessionStore
	lockout port.LockoutStore
	secret  []byte
	issuer  string
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewSessionService constructs a session holder.
func NewSessionService(store port.SessionStore, lockout port.LockoutStore, secret []byte, issuer string, ttl time.Duration, logger *zap.Logger) *SessionService {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		store:   store,
		lockout: lockout,
		secret:  secret,
		issuer:  issuer,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (s *SessionService) WithClock(now func() time.Time) *SessionService {
	if now != nil {
		s.now = now
	}
	return s
}

// Login creates a session for the verified account and returns the signed
// token referencing it.
func (s *SessionService) Login(ctx context.Context, account domain.Account) (string, domain.Session, error) {
	if account.ID == "" {
		return "", domain.Session{}, fmt.Errorf("account id is required")
	}

	now := s.now().UTC()
	session := domain.Session{
		ID:        uuid.NewString(),
		AccountID: account.ID,
		Name:      account.Name,
		Email:     account.Email,
		Role:      account.Role,
		CreatedAt: now,
		LastSeen:  now,
	}

	if err := s.store.Save(ctx, session, s.ttl); err != nil {
		return "", domain.Session{}, fmt.Errorf("save session: %w", err)
	}

	claims := SessionClaims{
		SessionID: session.ID,
		Role:      string(account.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", domain.Session{}, fmt.Errorf("sign session token: %w", err)
	}

	return signed, session, nil
}

// Current resolves the token to its session and refreshes the sliding TTL.
func (s *SessionService) Current(ctx context.Context, token string) (domain.Session, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return domain.Session{}, err
	}

	session, err := s.store.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Session{}, ErrSessionExpired
		}
		return domain.Session{}, fmt.Errorf("load session: %w", err)
	}

	now := s.now().UTC()
	if err := s.store.Touch(ctx, session.ID, now, s.ttl); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("refresh session ttl failed",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
	}
	session.LastSeen = now

	return *session, nil
}

// Logout destroys the session and clears the client's lockout counters.
// Logging out an already-expired session is not an error.
func (s *SessionService) Logout(ctx context.Context, token, clientKey string) error {
	claims, err := s.parseToken(token)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, claims.SessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	if s.lockout != nil && clientKey != "" {
		if err := s.lockout.Reset(ctx, clientKey); err != nil {
			s.logger.Warn("reset lockout on logout failed", zap.Error(err))
		}
	}

	return nil
}

func (s *SessionService) parseToken(token string) (*SessionClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidSessionToken
	}

	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, ErrInvalidSessionToken
	}

	if parsed == nil || !parsed.Valid || strings.TrimSpace(claims.SessionID) == "" {
		return nil, ErrInvalidSessionToken
	}

	return claims, nil
}
