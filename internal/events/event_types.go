package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/care-circle-auth/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventOTPSent         EventType = "otp_sent"
	EventOTPVerified     EventType = "otp_verified"
	EventIdentityCreated EventType = "identity_created"
	EventSessionIssued   EventType = "session_issued"
	EventFlowRejected    EventType = "flow_rejected"
)

// Event represents an auth activity emitted by the OTP flow. Phone is always masked.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Mode      domain.AuthMode `json:"mode"`
	UserID    string          `json:"user_id,omitempty"`
	Phone     string          `json:"phone"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   interface{}     `json:"payload,omitempty"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, mode domain.AuthMode, userID, maskedPhone string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Mode:      mode,
		UserID:    userID,
		Phone:     maskedPhone,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// SessionIssuedPayload payload.
type SessionIssuedPayload struct {
	ExpiresAt int64 `json:"expires_at"`
	ExpiresIn int64 `json:"expires_in"`
}

// FlowRejectedPayload payload.
type FlowRejectedPayload struct {
	State  domain.FlowState `json:"state"`
	Code   string           `json:"code"`
	Reason string           `json:"reason"`
}
