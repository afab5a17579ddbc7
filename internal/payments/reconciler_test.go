package payments

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/vitora-backend/internal/orders"
	"github.com/angelmondragon/vitora-backend/internal/transactions"
	"github.com/angelmondragon/vitora-backend/pkg/db"
	"github.com/angelmondragon/vitora-backend/pkg/db/dbtest"
	"github.com/angelmondragon/vitora-backend/pkg/enums"
	"github.com/angelmondragon/vitora-backend/pkg/logger"
	"github.com/angelmondragon/vitora-backend/pkg/outbox"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls []uuid.UUID
	err   error
}

func (n *recordingNotifier) NotifyIfNewlyPaid(_ context.Context, orderID uuid.UUID) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, orderID)
	if n.err != nil {
		return false, n.err
	}
	return true, nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

type harness struct {
	client       *db.Client
	reconciler   *Reconciler
	notifier     *recordingNotifier
	transactions *transactions.Repository
	orders       *orders.Repository
	outbox       *outbox.Repository
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	client := dbtest.Open(t)
	h := &harness{
		client:       client,
		notifier:     &recordingNotifier{},
		transactions: transactions.NewRepository(client.DB()),
		orders:       orders.NewRepository(client.DB()),
		outbox:       outbox.NewRepository(client.DB()),
	}
	reconciler, err := NewReconciler(ReconcilerParams{
		DB:           client,
		Transactions: h.transactions,
		Orders:       h.orders,
		Outbox:       outbox.NewService(h.outbox, logger.Nop()),
		Notifier:     h.notifier,
	})
	require.NoError(t, err)
	h.reconciler = reconciler
	return h
}

func (h *harness) seed(t *testing.T, opts dbtest.FixtureOptions) dbtest.Fixture {
	t.Helper()
	return dbtest.SeedCheckout(t, h.client, opts)
}

func approved(reference int64, cents int64) GatewayUpdate {
	return GatewayUpdate{
		Reference:            strconv.FormatInt(reference, 10),
		Status:               "APPROVED",
		GatewayTransactionID: "12345-1700000000-00001",
		AmountInCents:        &cents,
		Source:               enums.StatusSourceWebhook,
		Raw:                  json.RawMessage(`{"status":"APPROVED"}`),
	}
}

func TestReconcileApprovedPaysOrder(t *testing.T) {
	h := newHarness(t)
	fx := h.seed(t, dbtest.FixtureOptions{Amount: decimal.NewFromInt(50000)})
	ctx := context.Background()

	result, err := h.reconciler.Reconcile(ctx, approved(fx.Transaction.Reference, 5000000))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, result.Outcome)
	assert.Equal(t, enums.TransactionStatusApproved, result.TransactionStatus)
	assert.Equal(t, enums.OrderStatusPaid, result.OrderStatus)
	assert.True(t, result.Notified)

	txn, err := h.transactions.FindByReference(ctx, fx.Transaction.Reference)
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusApproved, txn.Status())
	require.NotNil(t, txn.GatewayTransactionID)
	assert.Equal(t, "12345-1700000000-00001", *txn.GatewayTransactionID)

	history, err := h.transactions.ListStatusEvents(ctx, txn.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, enums.StatusSourceWebhook, history[0].Source)
	require.NotNil(t, history[0].ReportedAmountCents)
	assert.EqualValues(t, 5000000, *history[0].ReportedAmountCents)

	order, err := h.orders.FindByID(ctx, fx.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, order.Status)

	require.Equal(t, 1, h.notifier.count())
	assert.Equal(t, fx.Order.ID, h.notifier.calls[0])

	txEvents, err := h.outbox.ListByAggregate(txn.ID)
	require.NoError(t, err)
	require.Len(t, txEvents, 1)
	assert.Equal(t, enums.EventTransactionStatusChanged, txEvents[0].EventType)

	orderEvents, err := h.outbox.ListByAggregate(order.ID)
	require.NoError(t, err)
	require.Len(t, orderEvents, 1)
	assert.Equal(t, enums.EventOrderPaid, orderEvents[0].EventType)
}

func TestReconcileReplayIsIdempotent(t *testing.T) {
	h := newHarness(t)
	fx := h.seed(t, dbtest.FixtureOptions{Amount: decimal.NewFromInt(50000)})
	ctx := context.Background()
	update := approved(fx.Transaction.Reference, 5000000)

	_, err := h.reconciler.Reconcile(ctx, update)
	require.NoError(t, err)

	result, err := h.reconciler.Reconcile(ctx, update)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyFinal, result.Outcome)
	assert.Equal(t, enums.OrderStatusPaid, result.OrderStatus)
	assert.False(t, result.Notified)

	history, err := h.transactions.ListStatusEvents(ctx, fx.Transaction.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, 1, h.notifier.count())
}

func TestReconcileTerminalStatusIsImmutable(t *testing.T) {
	h := newHarness(t)
	fx := h.seed(t, dbtest.FixtureOptions{})
	ctx := context.Background()

	_, err := h.reconciler.Reconcile(ctx, approved(fx.Transaction.Reference, fx.Transaction.AmountInCents()))
	require.NoError(t, err)

	for _, status := range []string{"DECLINED", "VOIDED", "PENDING", "ERROR"} {
		result, err := h.reconciler.Reconcile(ctx, GatewayUpdate{
			Reference: strconv.FormatInt(fx.Transaction.Reference, 10),
			Status:    status,
			Source:    enums.StatusSourcePoll,
		})
		require.NoError(t, err)
		assert.Equal(t, OutcomeAlreadyFinal, result.Outcome, status)
		assert.Equal(t, enums.TransactionStatusApproved, result.TransactionStatus, status)
	}

	order, err := h.orders.FindByID(ctx, fx.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, order.Status)
}

func TestReconcileDeclinedCancelsOrder(t *testing.T) {
	h := newHarness(t)
	fx := h.seed(t, dbtest.FixtureOptions{})
	ctx := context.Background()

	result, err := h.reconciler.Reconcile(ctx, GatewayUpdate{
		Reference: strconv.FormatInt(fx.Transaction.Reference, 10),
		Status:    "ERROR",
		Source:    enums.StatusSourcePoll,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, result.Outcome)
	assert.Equal(t, enums.TransactionStatusDeclined, result.TransactionStatus)
	assert.Equal(t, enums.OrderStatusCancelled, result.OrderStatus)
	assert.Zero(t, h.notifier.count())

	orderEvents, err := h.outbox.ListByAggregate(fx.Order.ID)
	require.NoError(t, err)
	require.Len(t, orderEvents, 1)
	assert.Equal(t, enums.EventOrderCancelled, orderEvents[0].EventType)
}

func TestReconcileSameStatusIsNoChange(t *testing.T) {
	h := newHarness(t)
	fx := h.seed(t, dbtest.FixtureOptions{})
	ctx := context.Background()

	result, err := h.reconciler.Reconcile(ctx, GatewayUpdate{
		Reference:            strconv.FormatInt(fx.Transaction.Reference, 10),
		Status:               "PENDING",
		GatewayTransactionID: "gw-1",
		Source:               enums.StatusSourcePoll,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoChange, result.Outcome)
	assert.Equal(t, enums.OrderStatusPaymentPending, result.OrderStatus)

	history, err := h.transactions.ListStatusEvents(ctx, fx.Transaction.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	txn, err := h.transactions.FindByID(ctx, fx.Transaction.ID)
	require.NoError(t, err)
	require.NotNil(t, txn.GatewayTransactionID)
	assert.Equal(t, "gw-1", *txn.GatewayTransactionID)
}

func TestReconcileUnknownReference(t *testing.T) {
	h := newHarness(t)
	h.seed(t, dbtest.FixtureOptions{})

	for _, ref := range []string{"999999", "abc", "", "-4"} {
		result, err := h.reconciler.Reconcile(context.Background(), GatewayUpdate{
			Reference: ref,
			Status:    "APPROVED",
			Source:    enums.StatusSourceWebhook,
		})
		require.NoError(t, err, ref)
		assert.Equal(t, OutcomeUnknownReference, result.Outcome, ref)
	}
	assert.Zero(t, h.notifier.count())
}

func TestReconcileLeavesFulfilledOrderAlone(t *testing.T) {
	h := newHarness(t)
	fx := h.seed(t, dbtest.FixtureOptions{OrderStatus: enums.OrderStatusInPreparation})

	result, err := h.reconciler.Reconcile(context.Background(), approved(fx.Transaction.Reference, fx.Transaction.AmountInCents()))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, result.Outcome)
	assert.Equal(t, enums.OrderStatusInPreparation, result.OrderStatus)
	assert.Zero(t, h.notifier.count())
}

func TestReconcileAmountMismatchIsRecorded(t *testing.T) {
	h := newHarness(t)
	fx := h.seed(t, dbtest.FixtureOptions{Amount: decimal.NewFromInt(50000)})
	ctx := context.Background()

	result, err := h.reconciler.Reconcile(ctx, approved(fx.Transaction.Reference, 100))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, result.Outcome)

	history, err := h.transactions.ListStatusEvents(ctx, fx.Transaction.ID)
	require.NoError(t, err)
	require.NotNil(t, history[0].ReportedAmountCents)
	assert.EqualValues(t, 100, *history[0].ReportedAmountCents)
}

func TestReconcileSwallowsNotifierFailure(t *testing.T) {
	h := newHarness(t)
	h.notifier.err = errors.New("smtp down")
	fx := h.seed(t, dbtest.FixtureOptions{})

	result, err := h.reconciler.Reconcile(context.Background(), approved(fx.Transaction.Reference, fx.Transaction.AmountInCents()))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, result.Outcome)
	assert.False(t, result.Notified)

	order, err := h.orders.FindByID(context.Background(), fx.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, order.Status)
	assert.False(t, order.NotificationSent)
}

func TestConcurrentReconcilesNotifyOnce(t *testing.T) {
	h := newHarness(t)
	fx := h.seed(t, dbtest.FixtureOptions{})

	const workers = 8
	outcomes := make(chan Outcome, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		source := enums.StatusSourceWebhook
		if i%2 == 1 {
			source = enums.StatusSourcePoll
		}
		update := approved(fx.Transaction.Reference, fx.Transaction.AmountInCents())
		update.Source = source

		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := h.reconciler.Reconcile(context.Background(), update)
			if err != nil {
				t.Errorf("reconcile: %v", err)
				return
			}
			outcomes <- result.Outcome
		}()
	}
	wg.Wait()
	close(outcomes)

	counts := map[Outcome]int{}
	for outcome := range outcomes {
		counts[outcome]++
	}
	assert.Equal(t, 1, counts[OutcomeUpdated])
	assert.Equal(t, workers-1, counts[OutcomeAlreadyFinal])
	assert.Equal(t, 1, h.notifier.count())

	history, err := h.transactions.ListStatusEvents(context.Background(), fx.Transaction.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestNewReconcilerRequiresCollaborators(t *testing.T) {
	client := dbtest.Open(t)
	_, err := NewReconciler(ReconcilerParams{})
	assert.Error(t, err)

	_, err = NewReconciler(ReconcilerParams{
		DB:           client,
		Transactions: transactions.NewRepository(client.DB()),
		Orders:       orders.NewRepository(client.DB()),
	})
	assert.Error(t, err, "outbox is required")
}
