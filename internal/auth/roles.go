package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/care-circle-auth/internal/domain"
	apperrors "github.com/spec-kit/care-circle-auth/pkg/util"
)

// RequireAuthenticated ensures the caller holds an authenticated-role session.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.Claims == nil {
			return apperrors.NewUnauthorized("missing session")
		}
		if principal.Claims.Role != domain.RoleAuthenticated {
			return apperrors.NewForbidden("authenticated role required")
		}
		return c.Next()
	}
}
