package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/care-circle-auth/internal/api/dto"
	"github.com/spec-kit/care-circle-auth/internal/auth"
	apperrors "github.com/spec-kit/care-circle-auth/pkg/util"
)

// SessionHandler reports on the bearer token presented by the caller.
type SessionHandler struct{}

// NewSessionHandler constructs handler.
func NewSessionHandler() *SessionHandler {
	return &SessionHandler{}
}

// Current handles GET /api/auth/session.
func (h *SessionHandler) Current(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("missing session")
	}

	user := dto.SessionUser{ID: principal.Claims.Subject, Phone: principal.Claims.Phone}
	if principal.User != nil {
		user.Phone = principal.User.Phone
	}
	return c.JSON(dto.CurrentSessionResponse{User: user, ExpiresAt: principal.Claims.ExpiresAt})
}
