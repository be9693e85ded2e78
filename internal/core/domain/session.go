package domain

import "time"

// Session caches the authenticated identity between requests. Sessions are
// held in Redis with a sliding TTL and disappear on logout or expiry.
type Session struct {
	ID        string      `json:"id"`
	AccountID string      `json:"account_id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      AccountRole `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
	LastSeen  time.Time   `json:"last_seen"`
}

// IsAdmin reports whether the session belongs to an administrator.
func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}
