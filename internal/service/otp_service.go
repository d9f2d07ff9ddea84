package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/care-circle-auth/internal/auth"
	"github.com/spec-kit/care-circle-auth/internal/config"
	"github.com/spec-kit/care-circle-auth/internal/domain"
	"github.com/spec-kit/care-circle-auth/internal/events"
	"github.com/spec-kit/care-circle-auth/internal/observability"
	"github.com/spec-kit/care-circle-auth/internal/phone"
	"github.com/spec-kit/care-circle-auth/internal/repository"
	apperrors "github.com/spec-kit/care-circle-auth/pkg/util"
)

const (
	stepSend   = "send"
	stepVerify = "verify"
)

// OTPSender dispatches a code to a phone and returns the provider session id.
type OTPSender interface {
	SendOTP(ctx context.Context, phone string) (sessionID string, err error)
}

// OTPVerifier reports whether the provider accepts code for sessionID. The
// provider is the sole arbiter of single-use consumption.
type OTPVerifier interface {
	VerifyOTP(ctx context.Context, sessionID, code string) (bool, error)
}

// OTPProvider is an SMS OTP service that can both send and verify.
type OTPProvider interface {
	OTPSender
	OTPVerifier
	Configured() bool
}

// SendLimiter throttles repeated dispatches to the same phone. Release gives
// back a slot taken by Allow when no SMS went out.
type SendLimiter interface {
	Allow(ctx context.Context, phone string) (bool, error)
	Release(ctx context.Context, phone string) error
}

// OTPDependencies encapsulates collaborators of the OTP service.
type OTPDependencies struct {
	Identities repository.IdentityRepository
	Provider   OTPProvider
	Limiter    SendLimiter
	Tokens     *auth.TokenManager
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// OTPService runs the phone OTP login/signup protocol and mints session tokens.
// It holds no per-request state; pending OTPs live at the provider and
// identities live in the store.
type OTPService struct {
	identities  repository.IdentityRepository
	provider    OTPProvider
	limiter     SendLimiter
	tokens      *auth.TokenManager
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
	countryCode string
}

// NewOTPService builds the service.
func NewOTPService(cfg config.Config, deps OTPDependencies) *OTPService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OTPService{
		identities:  deps.Identities,
		provider:    deps.Provider,
		limiter:     deps.Limiter,
		tokens:      deps.Tokens,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      logger,
		countryCode: cfg.OTP.DefaultCountryCode,
	}
}

// SendOTP validates the request, checks that mode matches whether the phone
// is registered, and dispatches a code. It returns the provider session id.
func (s *OTPService) SendOTP(ctx context.Context, rawPhone string, mode domain.AuthMode) (string, error) {
	normalized := phone.Normalize(rawPhone, s.countryCode)
	flow := s.newFlow(stepSend, mode, normalized)

	if !phone.Valid(normalized) {
		return "", flow.reject(ctx, apperrors.NewValidationError("Invalid phone number.", nil))
	}
	if !mode.Valid() {
		return "", flow.reject(ctx, apperrors.NewValidationError("Invalid mode.", nil))
	}

	// Checked before dispatch so no SMS is spent on a request that cannot succeed.
	if _, err := s.checkIdentity(ctx, normalized, mode); err != nil {
		return "", flow.reject(ctx, err)
	}

	if s.provider == nil || !s.provider.Configured() {
		return "", flow.reject(ctx, apperrors.NewConfigurationError("2Factor API key is missing."))
	}

	claimed := false
	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, normalized)
		if err != nil {
			s.logger.Warn("otp send throttle unavailable", zap.Error(err))
		} else if !allowed {
			return "", flow.reject(ctx, apperrors.NewRateLimited("Please wait before requesting another OTP."))
		}
		claimed = err == nil
	}

	sessionID, err := s.provider.SendOTP(ctx, normalized)
	if err != nil {
		if claimed {
			if releaseErr := s.limiter.Release(ctx, normalized); releaseErr != nil {
				s.logger.Warn("otp send throttle release failed", zap.String("phone", flow.masked), zap.Error(releaseErr))
			}
		}
		return "", flow.reject(ctx, apperrors.NewProviderError(
			providerDetail(err, "Failed to send OTP."), http.StatusInternalServerError, err))
	}

	flow.advance(domain.FlowOTPSent)
	s.logger.Info("otp sent", zap.String("phone", flow.masked), zap.String("mode", string(mode)))
	s.publish(ctx, events.NewEvent(events.EventOTPSent, mode, "", flow.masked, nil))
	s.metrics.RecordFlow(stepSend, string(domain.FlowOTPSent))
	return sessionID, nil
}

// VerifyOTP confirms the code with the provider, resolves or provisions the
// identity and issues a session token for it.
func (s *OTPService) VerifyOTP(ctx context.Context, rawPhone, otp, sessionID string, mode domain.AuthMode) (*domain.Session, error) {
	normalized := phone.Normalize(rawPhone, s.countryCode)
	otp = strings.TrimSpace(otp)
	sessionID = strings.TrimSpace(sessionID)
	flow := s.newFlow(stepVerify, mode, normalized)
	flow.advance(domain.FlowOTPSent)

	if !phone.Valid(normalized) {
		return nil, flow.reject(ctx, apperrors.NewValidationError("Invalid phone number.", nil))
	}
	if !phone.ValidOTP(otp) {
		return nil, flow.reject(ctx, apperrors.NewValidationError("Invalid OTP.", nil))
	}
	if sessionID == "" {
		return nil, flow.reject(ctx, apperrors.NewValidationError("OTP session is missing.", nil))
	}
	if !mode.Valid() {
		return nil, flow.reject(ctx, apperrors.NewValidationError("Invalid mode.", nil))
	}

	if s.provider == nil || !s.provider.Configured() {
		return nil, flow.reject(ctx, apperrors.NewConfigurationError("2Factor API key is missing."))
	}
	// The secret is checked before the provider call so that a signup never
	// provisions an identity that cannot receive a token.
	if !s.tokens.Configured() {
		return nil, flow.reject(ctx, apperrors.NewConfigurationError("Supabase JWT secret is missing."))
	}

	ok, err := s.provider.VerifyOTP(ctx, sessionID, otp)
	if err != nil || !ok {
		return nil, flow.reject(ctx, apperrors.NewProviderError(
			providerDetail(err, "OTP verification failed."), http.StatusBadRequest, err))
	}
	flow.advance(domain.FlowOTPVerified)
	s.publish(ctx, events.NewEvent(events.EventOTPVerified, mode, "", flow.masked, nil))

	// Identity state may have changed since the send step.
	profile, err := s.checkIdentity(ctx, normalized, mode)
	if err != nil {
		return nil, flow.reject(ctx, err)
	}

	var userID string
	if profile != nil {
		userID, err = s.confirmAuthUser(ctx, profile)
	} else {
		userID, err = s.provisionIdentity(ctx, normalized, mode, flow.masked)
	}
	if err != nil {
		return nil, flow.reject(ctx, err)
	}
	flow.advance(domain.FlowIdentityResolved)

	token, expiresAt, err := s.tokens.GenerateToken(userID, normalized)
	if err != nil {
		return nil, flow.reject(ctx, apperrors.NewInternalError(err))
	}
	flow.advance(domain.FlowTokenIssued)

	session := &domain.Session{
		AccessToken:  token,
		RefreshToken: domain.RefreshTokenSentinel,
		TokenType:    domain.TokenTypeBearer,
		ExpiresAt:    expiresAt,
		ExpiresIn:    s.tokens.TTLSeconds(),
		UserID:       userID,
		Phone:        normalized,
	}

	s.logger.Info("session issued",
		zap.String("user_id", userID),
		zap.String("phone", flow.masked),
		zap.String("mode", string(mode)),
		zap.Int64("expires_at", expiresAt))
	s.publish(ctx, events.NewEvent(events.EventSessionIssued, mode, userID, flow.masked,
		events.SessionIssuedPayload{ExpiresAt: expiresAt, ExpiresIn: session.ExpiresIn}))
	s.metrics.RecordFlow(stepVerify, string(domain.FlowTokenIssued))
	return session, nil
}

// checkIdentity enforces that login targets an existing profile and signup a
// new phone. It returns the profile when one exists.
func (s *OTPService) checkIdentity(ctx context.Context, normalized string, mode domain.AuthMode) (*domain.Profile, error) {
	if s.identities == nil || !s.identities.Configured() {
		return nil, apperrors.NewConfigurationError("Identity store is not configured.")
	}

	profile, err := s.identities.FindProfileByPhone(ctx, normalized)
	if err != nil && !repository.IsNotFound(err) {
		return nil, apperrors.NewStoreError("Failed to look up user.", err)
	}
	if err != nil {
		profile = nil
	}

	switch {
	case mode == domain.AuthModeLogin && profile == nil:
		return nil, apperrors.NewNotFound("User not found. Please create an account first.", nil)
	case mode == domain.AuthModeSignup && profile != nil:
		return nil, apperrors.NewConflict("Account already exists. Please sign in.", nil)
	}
	return profile, nil
}

// confirmAuthUser ensures a profile found for login still has its auth record.
func (s *OTPService) confirmAuthUser(ctx context.Context, profile *domain.Profile) (string, error) {
	user, err := s.identities.GetAuthUser(ctx, profile.ID)
	if err != nil {
		if repository.IsNotFound(err) {
			return "", apperrors.NewStoreError("Auth record is missing for this user. Please contact support.", err)
		}
		return "", apperrors.NewStoreError("Failed to load user.", err)
	}
	return user.ID, nil
}

// provisionIdentity creates the auth user and its profile row. The two writes
// are not transactional; the phone unique constraint arbitrates racing signups.
func (s *OTPService) provisionIdentity(ctx context.Context, normalized string, mode domain.AuthMode, masked string) (string, error) {
	user, err := s.identities.CreateAuthUser(ctx, normalized)
	if err != nil {
		if errors.Is(err, repository.ErrPhoneTaken) {
			return "", apperrors.NewConflict("Account already exists. Please sign in.", nil)
		}
		return "", apperrors.NewStoreError("Failed to create user.", err)
	}

	if err := s.identities.UpsertProfile(ctx, &domain.Profile{ID: user.ID, Phone: normalized}); err != nil {
		s.logger.Warn("profile upsert failed", zap.String("user_id", user.ID), zap.Error(err))
	}

	s.logger.Info("identity created", zap.String("user_id", user.ID), zap.String("phone", masked))
	s.publish(ctx, events.NewEvent(events.EventIdentityCreated, mode, user.ID, masked, nil))
	return user.ID, nil
}

func (s *OTPService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("activity event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

// providerDetail extracts a provider-supplied message from err, or returns fallback.
func providerDetail(err error, fallback string) string {
	var detailed interface{ ProviderDetail() string }
	if errors.As(err, &detailed) && detailed.ProviderDetail() != "" {
		return detailed.ProviderDetail()
	}
	return fallback
}

// flow tracks one request's position in the protocol for logs, metrics and
// rejection events.
type flow struct {
	svc    *OTPService
	step   string
	mode   domain.AuthMode
	masked string
	state  domain.FlowState
}

func (s *OTPService) newFlow(step string, mode domain.AuthMode, normalized string) *flow {
	return &flow{svc: s, step: step, mode: mode, masked: phone.Mask(normalized), state: domain.FlowAwaitingOTPSend}
}

func (f *flow) advance(state domain.FlowState) {
	f.state = state
}

// reject records the failure at the current state and returns err unchanged.
func (f *flow) reject(ctx context.Context, err error) error {
	de := apperrors.ToDomainError(err)
	fields := []zap.Field{
		zap.String("step", f.step),
		zap.String("state", string(f.state)),
		zap.String("mode", string(f.mode)),
		zap.String("phone", f.masked),
		zap.String("code", de.Code),
	}
	if de.HTTPStatus >= http.StatusInternalServerError {
		f.svc.logger.Error("otp flow rejected", append(fields, zap.Error(err))...)
	} else {
		f.svc.logger.Info("otp flow rejected", append(fields, zap.String("reason", de.Message))...)
	}

	f.svc.metrics.RecordFlow(f.step, string(domain.FlowRejected)+":"+string(f.state))
	f.svc.publish(ctx, events.NewEvent(events.EventFlowRejected, f.mode, "", f.masked, events.FlowRejectedPayload{
		State:  f.state,
		Code:   de.Code,
		Reason: de.Message,
	}))
	return err
}
