package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/core/domain"
	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/transport/http/middleware"
	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/usecase"
)

const defaultAuditLimit = 50

// AccessHandler exposes endpoints for requesting crew access and for the
// admin approval workflow.
type AccessHandler struct {
	access *usecase.AccessService
}

// NewAccessHandler constructs an access handler.
func NewAccessHandler(access *usecase.AccessService) *AccessHandler {
	return &AccessHandler{access: access}
}

// RegisterPublicRoutes binds the unauthenticated access-request endpoint.
func (h *AccessHandler) RegisterPublicRoutes(r *gin.RouterGroup) {
	if r == nil {
		return
	}
	r.POST("/request", h.RequestAccess)
}

// RegisterAdminRoutes binds the admin account-management endpoints.
func (h *AccessHandler) RegisterAdminRoutes(r *gin.RouterGroup) {
	if r == nil {
		return
	}
	r.GET("", h.ListAccounts)
	r.GET("/:id", h.GetAccount)
	r.POST("/:id/approve", h.Approve)
	r.POST("/:id/reject", h.Reject)
	r.POST("/:id/pin", h.RegeneratePin)
	r.POST("/:id/revoke", h.Revoke)
	r.GET("/:id/audit", h.AuditTrail)
}

// RequestAccess godoc
// @Summary Request crew access
// @Description Creates a pending account for a prospective crew member.
// @Tags Access
// @Accept json
// @Produce json
// @Param request body AccessRequestRequest true "Access request"
// @Success 201 {object} AccessRequestResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/access/request [post]
func (h *AccessHandler) RequestAccess(c *gin.Context) {
	var req AccessRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "name and a valid email are required"))
		return
	}

	account, err := h.access.RequestAccess(c.Request.Context(), req.Name, req.Email)
	if err != nil {
		var dup *usecase.DuplicateEmailError
		if errors.As(err, &dup) {
			message := "an access request for this email is already pending"
			if dup.Status.CanAuthenticate() {
				message = "this email already belongs to an approved account"
			}
			c.JSON(http.StatusConflict, NewErrorResponse(c, message))
			return
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// The partial unique index caught a concurrent request
			// with the same email.
			c.JSON(http.StatusConflict, NewErrorResponse(c, "an access request for this email is already pending"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to submit access request"))
		return
	}

	c.JSON(http.StatusCreated, AccessRequestResponse{
		Account: newAccountSummary(account),
		Message: "access request submitted, awaiting approval",
	})
}

// ListAccounts godoc
// @Summary List accounts
// @Description Lists accounts, optionally filtered by status.
// @Tags Accounts
// @Security Bearer
// @Produce json
// @Param status query string false "Comma-separated status filter"
// @Success 200 {object} AccountListResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/accounts [get]
func (h *AccessHandler) ListAccounts(c *gin.Context) {
	var statuses []domain.AccountStatus
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status := domain.AccountStatus(strings.TrimSpace(part))
			if !status.Valid() {
				c.JSON(http.StatusBadRequest, NewErrorResponse(c, "unknown status filter: "+string(status)))
				return
			}
			statuses = append(statuses, status)
		}
	}

	accounts, err := h.access.ListAccounts(c.Request.Context(), statuses...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list accounts"))
		return
	}

	summaries := make([]AccountSummary, 0, len(accounts))
	for _, account := range accounts {
		summaries = append(summaries, newAccountSummary(account))
	}

	c.JSON(http.StatusOK, AccountListResponse{Accounts: summaries, Total: len(summaries)})
}

// GetAccount godoc
// @Summary Get account details
// @Tags Accounts
// @Security Bearer
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} AccountSummary
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/accounts/{id} [get]
func (h *AccessHandler) GetAccount(c *gin.Context) {
	account, err := h.access.GetAccount(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}, http.StatusInternalServerError, "failed to load account")
		return
	}

	c.JSON(http.StatusOK, newAccountSummary(account))
}

// Approve godoc
// @Summary Approve a pending account
// @Description Approves the account and returns the minted PIN exactly once.
// @Tags Accounts
// @Security Bearer
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} ApproveResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/accounts/{id}/approve [post]
func (h *AccessHandler) Approve(c *gin.Context) {
	adminID, _ := middleware.GetAuthenticatedAccountID(c)
	accountID := c.Param("id")

	pin, err := h.access.Approve(c.Request.Context(), accountID, adminID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
			{Err: usecase.ErrInvalidState, Status: http.StatusConflict, Message: "account is not pending approval"},
			{Err: usecase.ErrPinSpaceExhausted, Status: http.StatusServiceUnavailable, Message: "unable to allocate a unique pin, retry"},
		}, http.StatusInternalServerError, "failed to approve account")
		return
	}

	// The PIN is shown exactly once and cannot be recovered, so a failed
	// reload must not turn the response into an error. Fall back to a
	// minimal summary instead.
	summary := AccountSummary{ID: accountID, Status: domain.AccountStatusApproved}
	if account, err := h.access.GetAccount(c.Request.Context(), accountID); err == nil {
		summary = newAccountSummary(account)
	}

	c.JSON(http.StatusOK, ApproveResponse{
		Account: summary,
		Pin:     pin,
	})
}

// Reject godoc
// @Summary Reject a pending account
// @Tags Accounts
// @Security Bearer
// @Accept json
// @Produce json
// @Param id path string true "Account ID"
// @Param request body RejectRequest false "Rejection reason"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/accounts/{id}/reject [post]
func (h *AccessHandler) Reject(c *gin.Context) {
	adminID, _ := middleware.GetAuthenticatedAccountID(c)

	var req RejectRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid rejection payload"))
			return
		}
	}

	err := h.access.Reject(c.Request.Context(), c.Param("id"), adminID, strings.TrimSpace(req.Reason))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
			{Err: usecase.ErrInvalidState, Status: http.StatusConflict, Message: "account is not pending approval"},
		}, http.StatusInternalServerError, "failed to reject account")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "account rejected"})
}

// RegeneratePin godoc
// @Summary Rotate an account's PIN
// @Description Mints a fresh PIN for an approved or active account. The old PIN stops working immediately.
// @Tags Accounts
// @Security Bearer
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} RegeneratePinResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/accounts/{id}/pin [post]
func (h *AccessHandler) RegeneratePin(c *gin.Context) {
	adminID, _ := middleware.GetAuthenticatedAccountID(c)
	accountID := c.Param("id")

	pin, err := h.access.RegeneratePin(c.Request.Context(), accountID, adminID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
			{Err: usecase.ErrInvalidState, Status: http.StatusConflict, Message: "account cannot hold a pin in its current status"},
			{Err: usecase.ErrPinSpaceExhausted, Status: http.StatusServiceUnavailable, Message: "unable to allocate a unique pin, retry"},
		}, http.StatusInternalServerError, "failed to regenerate pin")
		return
	}

	c.JSON(http.StatusOK, RegeneratePinResponse{AccountID: accountID, Pin: pin})
}

// Revoke godoc
// @Summary Revoke an account
// @Description Permanently disables PIN verification for the account. Idempotent.
// @Tags Accounts
// @Security Bearer
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/accounts/{id}/revoke [post]
func (h *AccessHandler) Revoke(c *gin.Context) {
	adminID, _ := middleware.GetAuthenticatedAccountID(c)

	if err := h.access.Revoke(c.Request.Context(), c.Param("id"), adminID); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}, http.StatusInternalServerError, "failed to revoke account")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "account revoked"})
}

// AuditTrail godoc
// @Summary Account audit history
// @Tags Accounts
// @Security Bearer
// @Produce json
// @Param id path string true "Account ID"
// @Param limit query int false "Maximum entries to return"
// @Success 200 {object} AuditTrailResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/accounts/{id}/audit [get]
func (h *AccessHandler) AuditTrail(c *gin.Context) {
	accountID := c.Param("id")

	limit := defaultAuditLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	entries, err := h.access.AuditTrail(c.Request.Context(), accountID, limit)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}, http.StatusInternalServerError, "failed to load audit history")
		return
	}

	payload := make([]AuditEntryPayload, 0, len(entries))
	for _, entry := range entries {
		payload = append(payload, AuditEntryPayload{
			ID:        entry.ID,
			Action:    entry.Action,
			Details:   entry.Details,
			CreatedAt: entry.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, AuditTrailResponse{AccountID: accountID, Entries: payload})
}
