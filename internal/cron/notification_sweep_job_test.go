package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/vitora-backend/internal/notifications"
	"github.com/angelmondragon/vitora-backend/pkg/logger"
)

type fakeSweeper struct {
	limit  int
	result notifications.SweepResult
	err    error
}

func (f *fakeSweeper) SweepPending(_ context.Context, limit int) (notifications.SweepResult, error) {
	f.limit = limit
	return f.result, f.err
}

func TestNotificationSweepJobUsesBatch(t *testing.T) {
	sweeper := &fakeSweeper{result: notifications.SweepResult{Attempted: 3, Sent: 3}}
	job, err := NewNotificationSweepJob(NotificationSweepJobParams{Logger: logger.Nop(), Dispatcher: sweeper, BatchSize: 25})
	if err != nil {
		t.Fatalf("NewNotificationSweepJob: %v", err)
	}
	if job.Name() != "notification-sweep" {
		t.Fatalf("unexpected job name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sweeper.limit != 25 {
		t.Fatalf("expected batch 25, got %d", sweeper.limit)
	}
}

func TestNotificationSweepJobDefaultsBatchAndReportsFailures(t *testing.T) {
	sweeper := &fakeSweeper{
		result: notifications.SweepResult{Attempted: 1, Failed: 1},
		err:    errors.New("order x: provider down"),
	}
	job, err := NewNotificationSweepJob(NotificationSweepJobParams{Logger: logger.Nop(), Dispatcher: sweeper})
	if err != nil {
		t.Fatalf("NewNotificationSweepJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected sweep failure to surface")
	}
	if sweeper.limit != defaultNotificationBatch {
		t.Fatalf("expected default batch, got %d", sweeper.limit)
	}
}
