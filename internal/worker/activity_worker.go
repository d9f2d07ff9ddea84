package worker

import (
	"context"

	"github.com/spec-kit/care-circle-auth/internal/service"
)

// StartActivityWorker registers auth activity handlers and starts webhook
// delivery in the background until ctx is cancelled.
func StartActivityWorker(ctx context.Context, activityService *service.ActivityService) {
	if activityService == nil {
		return
	}
	activityService.RegisterHandlers()
	go activityService.Run(ctx)
}
