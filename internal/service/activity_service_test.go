package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/care-circle-auth/internal/config"
	"github.com/spec-kit/care-circle-auth/internal/domain"
	"github.com/spec-kit/care-circle-auth/internal/events"
)

func startActivity(t *testing.T, dispatcher events.Dispatcher, webhookURL string) *ActivityService {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	svc := NewActivityService(dispatcher, nil, config.ActivityConfig{WebhookURL: webhookURL})
	svc.RegisterHandlers()
	go svc.Run(ctx)
	return svc
}

func TestActivityService_ForwardsEventsToWebhook(t *testing.T) {
	received := make(chan events.Event, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var event events.Event
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&event))
		w.WriteHeader(http.StatusAccepted)
		received <- event
	}))
	defer server.Close()

	dispatcher := events.NewInMemoryDispatcher()
	startActivity(t, dispatcher, server.URL)

	sent := events.NewEvent(events.EventIdentityCreated, domain.AuthModeSignup, "user-1", "*********3210", nil)
	require.NoError(t, dispatcher.Publish(context.Background(), sent))

	select {
	case got := <-received:
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, events.EventIdentityCreated, got.Type)
		assert.Equal(t, "user-1", got.UserID)
		assert.Equal(t, "*********3210", got.Phone)
	case <-time.After(2 * time.Second):
		t.Fatal("webhook was not called")
	}
}

func TestActivityService_ForwardReportsWebhookStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	svc := NewActivityService(nil, nil, config.ActivityConfig{WebhookURL: server.URL})
	err := svc.forward(context.Background(), events.NewEvent(events.EventOTPSent, domain.AuthModeLogin, "", "*********3210", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestActivityService_HandlersNeverFailPublish(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	for _, url := range []string{"", server.URL} {
		dispatcher := events.NewInMemoryDispatcher()
		startActivity(t, dispatcher, url)

		for _, et := range []events.EventType{events.EventOTPSent, events.EventOTPVerified, events.EventIdentityCreated, events.EventSessionIssued, events.EventFlowRejected} {
			assert.NoError(t, dispatcher.Publish(context.Background(), events.NewEvent(et, domain.AuthModeLogin, "", "", nil)))
		}
	}
}

func TestActivityService_FullQueueDropsEvents(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewActivityService(dispatcher, nil, config.ActivityConfig{WebhookURL: "http://127.0.0.1:1"})
	svc.RegisterHandlers()

	for i := 0; i < activityQueueSize+10; i++ {
		require.NoError(t, dispatcher.Publish(context.Background(), events.NewEvent(events.EventOTPSent, domain.AuthModeLogin, "", "", nil)))
	}
	assert.Len(t, svc.queue, activityQueueSize)
}

func TestActivityService_NoWebhookQueuesNothing(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewActivityService(dispatcher, nil, config.ActivityConfig{})
	svc.RegisterHandlers()

	require.NoError(t, dispatcher.Publish(context.Background(), events.NewEvent(events.EventSessionIssued, domain.AuthModeLogin, "u", "", nil)))
	assert.Empty(t, svc.queue)
}

func TestOTPService_SlowWebhookDoesNotDelayVerify(t *testing.T) {
	unblock := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-unblock:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(unblock)

	f := newFixture(t, func(d *OTPDependencies) {
		dispatcher := events.NewInMemoryDispatcher()
		startActivity(t, dispatcher, server.URL)
		d.Dispatcher = dispatcher
	})

	start := time.Now()
	session, err := f.svc.VerifyOTP(context.Background(), testPhone, "123456", "session-abc", domain.AuthModeSignup)
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
