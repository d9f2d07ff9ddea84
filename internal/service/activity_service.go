package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/care-circle-auth/internal/config"
	"github.com/spec-kit/care-circle-auth/internal/events"
)

const (
	activityWebhookTimeout = 5 * time.Second
	activityQueueSize      = 256
)

// ActivityService forwards auth activity events to logs and, when configured,
// to the care-circle activity webhook. Webhook delivery happens off the
// request path in Run; a full queue drops events.
type ActivityService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.ActivityConfig
	client     *http.Client
	queue      chan events.Event
}

// NewActivityService creates the service.
func NewActivityService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.ActivityConfig) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
		client:     &http.Client{Timeout: activityWebhookTimeout},
		queue:      make(chan events.Event, activityQueueSize),
	}
}

// RegisterHandlers subscribes to events.
func (a *ActivityService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventOTPSent, a.handleEvent)
	a.dispatcher.Subscribe(events.EventOTPVerified, a.handleEvent)
	a.dispatcher.Subscribe(events.EventIdentityCreated, a.handleIdentityCreated)
	a.dispatcher.Subscribe(events.EventSessionIssued, a.handleEvent)
	a.dispatcher.Subscribe(events.EventFlowRejected, a.handleEvent)
}

// Run delivers queued events to the webhook until ctx is cancelled.
func (a *ActivityService) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-a.queue:
			a.deliver(ctx, event)
		}
	}
}

func (a *ActivityService) handleEvent(ctx context.Context, event events.Event) error {
	a.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("mode", string(event.Mode)),
		zap.String("user_id", event.UserID),
		zap.String("phone", event.Phone),
		zap.Any("payload", event.Payload))
	a.enqueue(event)
	return nil
}

func (a *ActivityService) handleIdentityCreated(ctx context.Context, event events.Event) error {
	a.logger.Info("identity_created", zap.String("user_id", event.UserID), zap.String("phone", event.Phone))
	a.enqueue(event)
	return nil
}

func (a *ActivityService) enqueue(event events.Event) {
	if strings.TrimSpace(a.cfg.WebhookURL) == "" {
		return
	}
	select {
	case a.queue <- event:
	default:
		a.logger.Warn("activity queue full; dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID))
	}
}

func (a *ActivityService) deliver(ctx context.Context, event events.Event) {
	ctx, cancel := context.WithTimeout(ctx, activityWebhookTimeout)
	defer cancel()

	if err := a.forward(ctx, event); err != nil {
		a.logger.Warn("activity webhook failed",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID),
			zap.Error(err))
	}
}

// forward POSTs the event JSON to the activity webhook.
func (a *ActivityService) forward(ctx context.Context, event events.Event) error {
	url := strings.TrimSpace(a.cfg.WebhookURL)
	if url == "" {
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("activity webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("activity webhook: unexpected status %d", resp.StatusCode)
	}
	a.logger.Debug("activity forwarded", zap.String("event_type", string(event.Type)), zap.String("event_id", event.ID))
	return nil
}
