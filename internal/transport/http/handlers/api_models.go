package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// AccessRequestRequest defines the payload for requesting crew access.
type AccessRequestRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}

// AccountSummary describes the credential-free view of an account returned by the API.
type AccountSummary struct {
	ID              string               `json:"id"`
	Name            string               `json:"name"`
	Email           string               `json:"email"`
	Role            domain.AccountRole   `json:"role"`
	Status          domain.AccountStatus `json:"status"`
	CreatedAt       time.Time            `json:"created_at"`
	ApprovedAt      *time.Time           `json:"approved_at,omitempty"`
	RejectedAt      *time.Time           `json:"rejected_at,omitempty"`
	RejectionReason *string              `json:"rejection_reason,omitempty"`
}

// AccessRequestResponse confirms a submitted access request.
type AccessRequestResponse struct {
	Account AccountSummary `json:"account"`
	Message string         `json:"message"`
}

// AccountListResponse wraps multiple accounts.
type AccountListResponse struct {
	Accounts []AccountSummary `json:"accounts"`
	Total    int              `json:"total"`
}

// ApproveResponse carries the minted PIN. This is the only place the
// plaintext PIN ever appears; the admin relays it out-of-band.
type ApproveResponse struct {
	Account AccountSummary `json:"account"`
	Pin     string         `json:"pin"`
}

// RejectRequest captures the rejection reason.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// RegeneratePinResponse carries a freshly rotated PIN.
type RegeneratePinResponse struct {
	AccountID string `json:"account_id"`
	Pin       string `json:"pin"`
}

// AuditEntryPayload describes one audit record in API responses.
type AuditEntryPayload struct {
	ID        string         `json:"id"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditTrailResponse wraps the audit history of an account.
type AuditTrailResponse struct {
	AccountID string              `json:"account_id"`
	Entries   []AuditEntryPayload `json:"entries"`
}

// PinVerifyRequest defines the payload for the PIN verification endpoint.
type PinVerifyRequest struct {
	Pin string `json:"pin" binding:"required"`
}

// SessionPayload describes a session view in API responses.
type SessionPayload struct {
	ID        string             `json:"id"`
	AccountID string             `json:"account_id"`
	Name      string             `json:"name"`
	Email     string             `json:"email"`
	Role      domain.AccountRole `json:"role"`
	CreatedAt time.Time          `json:"created_at"`
	LastSeen  time.Time          `json:"last_seen"`
}

// PinVerifyResponse describes the response returned for a successful verification.
type PinVerifyResponse struct {
	Token     string         `json:"token"`
	TokenType string         `json:"token_type"`
	ExpiresIn int            `json:"expires_in"`
	Account   AccountSummary `json:"account"`
	Session   SessionPayload `json:"session"`
}

// SessionResponse returns the current session.
type SessionResponse struct {
	Session SessionPayload `json:"session"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// newAccountSummary converts a domain account to a summary suitable for API responses.
func newAccountSummary(account domain.Account) AccountSummary {
	return AccountSummary{
		ID:              account.ID,
		Name:            account.Name,
		Email:           account.Email,
		Role:            account.Role,
		Status:          account.Status,
		CreatedAt:       account.CreatedAt,
		ApprovedAt:      account.ApprovedAt,
		RejectedAt:      account.RejectedAt,
		RejectionReason: account.RejectionReason,
	}
}

// newSessionPayload converts a domain session to an API session payload.
func newSessionPayload(session domain.Session) SessionPayload {
	return SessionPayload{
		ID:        session.ID,
		AccountID: session.AccountID,
		Name:      session.Name,
		Email:     session.Email,
		Role:      session.Role,
		CreatedAt: session.CreatedAt,
		LastSeen:  session.LastSeen,
	}
}
