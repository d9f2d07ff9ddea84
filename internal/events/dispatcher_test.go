package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/care-circle-auth/internal/domain"
)

func TestDispatcher_PublishInvokesAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string

	d.Subscribe(EventOTPSent, func(ctx context.Context, e Event) error {
		calls = append(calls, "first")
		return errors.New("webhook down")
	})
	d.Subscribe(EventOTPSent, func(ctx context.Context, e Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventSessionIssued, func(ctx context.Context, e Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventOTPSent, domain.AuthModeLogin, "", "****3210", nil))
	assert.EqualError(t, err, "webhook down")
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestDispatcher_NoListeners(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), NewEvent(EventFlowRejected, domain.AuthModeSignup, "", "", nil)))
}

func TestNewEvent(t *testing.T) {
	e := NewEvent(EventSessionIssued, domain.AuthModeSignup, "user-1", "****3210", SessionIssuedPayload{ExpiresAt: 10, ExpiresIn: 5})
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())
	assert.Equal(t, "user-1", e.UserID)
	assert.Equal(t, domain.AuthModeSignup, e.Mode)
}
