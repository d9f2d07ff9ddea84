package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/care-circle-auth/internal/api/dto"
	"github.com/spec-kit/care-circle-auth/internal/domain"
	apperrors "github.com/spec-kit/care-circle-auth/pkg/util"
)

// OTPFlow is the protocol the handler drives.
type OTPFlow interface {
	SendOTP(ctx context.Context, phone string, mode domain.AuthMode) (string, error)
	VerifyOTP(ctx context.Context, phone, otp, sessionID string, mode domain.AuthMode) (*domain.Session, error)
}

// OTPHandler exposes the phone OTP login/signup endpoints.
type OTPHandler struct {
	otp OTPFlow
}

// NewOTPHandler constructs handler.
func NewOTPHandler(otp OTPFlow) *OTPHandler {
	return &OTPHandler{otp: otp}
}

// Send handles POST /api/auth/otp/send.
func (h *OTPHandler) Send(c *fiber.Ctx) error {
	var req dto.OTPSendRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("Invalid JSON body.", nil)
	}

	sessionID, err := h.otp.SendOTP(c.UserContext(), req.Phone, domain.AuthMode(req.Mode))
	if err != nil {
		return err
	}
	return c.JSON(dto.OTPSendResponse{SessionID: sessionID})
}

// Verify handles POST /api/auth/otp/verify.
func (h *OTPHandler) Verify(c *fiber.Ctx) error {
	var req dto.OTPVerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("Invalid JSON body.", nil)
	}

	session, err := h.otp.VerifyOTP(c.UserContext(), req.Phone, req.OTP, req.SessionID, domain.AuthMode(req.Mode))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(dto.SessionResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresAt:    session.ExpiresAt,
		ExpiresIn:    session.ExpiresIn,
		TokenType:    session.TokenType,
		User:         dto.SessionUser{ID: session.UserID, Phone: session.Phone},
	})
}
