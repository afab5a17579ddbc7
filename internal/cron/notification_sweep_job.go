package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/vitora-backend/internal/notifications"
	"github.com/angelmondragon/vitora-backend/pkg/logger"
)

const defaultNotificationBatch = 50

type NotificationSweepJobParams struct {
	Logger     *logger.Logger
	Dispatcher confirmationSweeper
	BatchSize  int
}

type confirmationSweeper interface {
	SweepPending(ctx context.Context, limit int) (notifications.SweepResult, error)
}

// NewNotificationSweepJob retries confirmation emails for PAID orders that
// were never marked as notified.
func NewNotificationSweepJob(params NotificationSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Dispatcher == nil {
		return nil, fmt.Errorf("confirmation dispatcher required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultNotificationBatch
	}
	return &notificationSweepJob{
		logg:       params.Logger,
		dispatcher: params.Dispatcher,
		batch:      batch,
	}, nil
}

type notificationSweepJob struct {
	logg       *logger.Logger
	dispatcher confirmationSweeper
	batch      int
}

func (j *notificationSweepJob) Name() string { return "notification-sweep" }

func (j *notificationSweepJob) Run(ctx context.Context) error {
	result, err := j.dispatcher.SweepPending(ctx, j.batch)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"attempted": result.Attempted,
		"sent":      result.Sent,
		"failed":    result.Failed,
		"batch":     j.batch,
	})
	if err != nil {
		return fmt.Errorf("notification sweep: %w", err)
	}
	if result.Attempted > 0 {
		j.logg.Info(logCtx, "order confirmation sweep complete")
	}
	return nil
}
