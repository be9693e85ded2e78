package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/transport/http/middleware"
	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/usecase"
)

// AuthHandler exposes PIN verification and session endpoints.
type AuthHandler struct {
	verify     *usecase.VerifyService
	sessions   *usecase.SessionService
	sessionTTL int // seconds, echoed in login responses
}

// NewAuthHandler constructs an auth handler.
func NewAuthHandler(verify *usecase.VerifyService, sessions *usecase.SessionService, sessionTTLSeconds int) *AuthHandler {
	return &AuthHandler{verify: verify, sessions: sessions, sessionTTL: sessionTTLSeconds}
}

// RegisterRoutes binds auth endpoints.
func (h *AuthHandler) RegisterRoutes(public, authed *gin.RouterGroup) {
	if public != nil {
		public.POST("/pin", h.VerifyPin)
	}
	if authed != nil {
		authed.GET("/session", h.CurrentSession)
		authed.POST("/logout", h.Logout)
	}
}

// VerifyPin godoc
// @Summary Verify a PIN and open a session
// @Description Resolves the PIN to an account and returns a session token.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body PinVerifyRequest true "PIN verification request"
// @Success 200 {object} PinVerifyResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/pin [post]
func (h *AuthHandler) VerifyPin(c *gin.Context) {
	var req PinVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "pin is required"))
		return
	}

	clientKey := c.ClientIP()

	account, err := h.verify.VerifyPin(c.Request.Context(), clientKey, strings.TrimSpace(req.Pin))
	if err != nil {
		var locked *usecase.LockedOutError
		switch {
		case errors.As(err, &locked):
			seconds := int(math.Ceil(locked.RetryAfter.Seconds()))
			if seconds < 0 {
				seconds = 0
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.JSON(http.StatusTooManyRequests, NewErrorResponse(c, "too many failed attempts, try again later"))
		case errors.Is(err, usecase.ErrPinMismatch):
			// Indistinguishable from a malformed PIN on purpose.
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "pin not recognized"))
		default:
			c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "verification failed"))
		}
		return
	}

	token, session, err := h.sessions.Login(c.Request.Context(), account)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to open session"))
		return
	}

	c.JSON(http.StatusOK, PinVerifyResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: h.sessionTTL,
		Account:   newAccountSummary(account),
		Session:   newSessionPayload(session),
	})
}

// CurrentSession godoc
// @Summary Current session
// @Description Returns the session resolved from the Authorization header.
// @Tags Auth
// @Security Bearer
// @Produce json
// @Success 200 {object} SessionResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/session [get]
func (h *AuthHandler) CurrentSession(c *gin.Context) {
	session, ok := middleware.GetSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	c.JSON(http.StatusOK, SessionResponse{Session: newSessionPayload(session)})
}

// Logout godoc
// @Summary Close the current session
// @Tags Auth
// @Security Bearer
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "missing session token"))
		return
	}
	token := strings.TrimSpace(parts[1])

	if err := h.sessions.Logout(c.Request.Context(), token, c.ClientIP()); err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidSessionToken), errors.Is(err, usecase.ErrSessionExpired):
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid session token"))
		default:
			c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to close session"))
		}
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}
