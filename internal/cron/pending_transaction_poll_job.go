package cron

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/vitora-backend/internal/payments"
	"github.com/angelmondragon/vitora-backend/pkg/db/models"
	"github.com/angelmondragon/vitora-backend/pkg/enums"
	"github.com/angelmondragon/vitora-backend/pkg/logger"
)

const (
	defaultPollBatch       = 50
	defaultPollStaleAfter  = 10 * time.Minute
	defaultPollGiveUpAfter = 72 * time.Hour
)

type PendingTransactionPollJobParams struct {
	Logger       *logger.Logger
	Transactions staleTransactionLister
	Poller       transactionPoller
	BatchSize    int
	StaleAfter   time.Duration
	GiveUpAfter  time.Duration
}

type staleTransactionLister interface {
	ListStale(ctx context.Context, gateway enums.Gateway, olderThan, notBefore time.Time, limit int) ([]models.Transaction, error)
}

type transactionPoller interface {
	PollTransaction(ctx context.Context, txn *models.Transaction) (*payments.PollResult, error)
}

// NewPendingTransactionPollJob polls Wompi for transactions that stayed
// IN_PROCESS past the stale threshold, covering webhooks that never arrived.
func NewPendingTransactionPollJob(params PendingTransactionPollJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Transactions == nil {
		return nil, fmt.Errorf("transactions repository required")
	}
	if params.Poller == nil {
		return nil, fmt.Errorf("status poller required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultPollBatch
	}
	staleAfter := params.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultPollStaleAfter
	}
	giveUpAfter := params.GiveUpAfter
	if giveUpAfter <= 0 {
		giveUpAfter = defaultPollGiveUpAfter
	}
	return &pendingTransactionPollJob{
		logg:         params.Logger,
		transactions: params.Transactions,
		poller:       params.Poller,
		batch:        batch,
		staleAfter:   staleAfter,
		giveUpAfter:  giveUpAfter,
		now:          time.Now,
	}, nil
}

type pendingTransactionPollJob struct {
	logg         *logger.Logger
	transactions staleTransactionLister
	poller       transactionPoller
	batch        int
	staleAfter   time.Duration
	giveUpAfter  time.Duration
	now          func() time.Time
}

func (j *pendingTransactionPollJob) Name() string { return "pending-transaction-poll" }

func (j *pendingTransactionPollJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	pending, err := j.transactions.ListStale(ctx, enums.GatewayWompi, now.Add(-j.staleAfter), now.Add(-j.giveUpAfter), j.batch)
	if err != nil {
		return fmt.Errorf("list stale transactions: %w", err)
	}

	var (
		errs     error
		outcomes = map[payments.Outcome]int{}
		missing  int
	)
	for i := range pending {
		reference := strconv.FormatInt(pending[i].Reference, 10)
		result, err := j.poller.PollTransaction(ctx, &pending[i])
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("reference %s: %w", reference, err))
			continue
		}
		if !result.GatewayFound {
			missing++
			continue
		}
		outcomes[result.Outcome]++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"polled":      len(pending),
		"updated":     outcomes[payments.OutcomeUpdated],
		"unchanged":   outcomes[payments.OutcomeNoChange],
		"not_found":   missing,
		"failed":      len(multierr.Errors(errs)),
		"stale_after": j.staleAfter.String(),
	})
	if len(pending) > 0 {
		j.logg.Info(logCtx, "pending transaction poll complete")
	}
	return errs
}
