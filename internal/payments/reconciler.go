package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vitora-backend/internal/orders"
	"github.com/angelmondragon/vitora-backend/internal/transactions"
	"github.com/angelmondragon/vitora-backend/pkg/db"
	"github.com/angelmondragon/vitora-backend/pkg/db/models"
	"github.com/angelmondragon/vitora-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vitora-backend/pkg/errors"
	"github.com/angelmondragon/vitora-backend/pkg/logger"
	"github.com/angelmondragon/vitora-backend/pkg/metrics"
	"github.com/angelmondragon/vitora-backend/pkg/outbox"
	"github.com/angelmondragon/vitora-backend/pkg/outbox/payloads"
)

// Outcome classifies what a gateway update did.
type Outcome string

const (
	OutcomeUpdated          Outcome = "UPDATED"
	OutcomeNoChange         Outcome = "NO_CHANGE"
	OutcomeAlreadyFinal     Outcome = "ALREADY_FINAL"
	OutcomeUnknownReference Outcome = "UNKNOWN_REFERENCE"
	OutcomeInvalidSignature Outcome = "INVALID_SIGNATURE"
)

// GatewayUpdate is one status observation from the webhook or the poller.
// Nothing in it is trusted until it is matched against stored state.
type GatewayUpdate struct {
	Reference            string
	Status               string
	GatewayTransactionID string
	AmountInCents        *int64
	Source               enums.StatusSource
	Raw                  json.RawMessage
	ObservedAt           time.Time
}

// Result reports the state after reconciliation.
type Result struct {
	Outcome           Outcome                 `json:"outcome"`
	Reference         int64                   `json:"reference,omitempty"`
	TransactionID     uuid.UUID               `json:"transaction_id,omitempty"`
	TransactionStatus enums.TransactionStatus `json:"transaction_status,omitempty"`
	OrderID           *uuid.UUID              `json:"order_id,omitempty"`
	OrderStatus       enums.OrderStatus       `json:"order_status,omitempty"`
	Notified          bool                    `json:"notified"`
}

// Notifier sends the confirmation for an order that just became PAID.
type Notifier interface {
	NotifyIfNewlyPaid(ctx context.Context, orderID uuid.UUID) (bool, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ReconcilerParams wires the engine's collaborators.
type ReconcilerParams struct {
	DB           txRunner
	Transactions *transactions.Repository
	Orders       *orders.Repository
	Outbox       outboxPublisher
	Notifier     Notifier
	Logger       *logger.Logger
	Metrics      *metrics.PaymentMetrics
}

// Reconciler applies gateway status updates to transactions and their orders.
type Reconciler struct {
	db           txRunner
	transactions *transactions.Repository
	orders       *orders.Repository
	outbox       outboxPublisher
	notifier     Notifier
	logg         *logger.Logger
	metrics      *metrics.PaymentMetrics
}

func NewReconciler(params ReconcilerParams) (*Reconciler, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db required")
	}
	if params.Transactions == nil {
		return nil, fmt.Errorf("transactions repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Reconciler{
		db:           params.DB,
		transactions: params.Transactions,
		orders:       params.Orders,
		outbox:       params.Outbox,
		notifier:     params.Notifier,
		logg:         logg,
		metrics:      params.Metrics,
	}, nil
}

// reconcileState carries what the unit of work decided so the post-commit
// steps can act on it.
type reconcileState struct {
	result        Result
	notifyOrderID *uuid.UUID
}

// Reconcile applies update inside one database transaction. The transaction
// row and then the order row are locked, so concurrent updates for the same
// reference are applied one after another against fresh state.
func (r *Reconciler) Reconcile(ctx context.Context, update GatewayUpdate) (*Result, error) {
	ctx = r.logg.WithFields(ctx, map[string]any{
		"reference": strings.TrimSpace(update.Reference),
		"source":    update.Source.String(),
	})

	reference, err := strconv.ParseInt(strings.TrimSpace(update.Reference), 10, 64)
	if err != nil || reference <= 0 {
		return r.finish(ctx, update, &Result{Outcome: OutcomeUnknownReference}), nil
	}

	var state reconcileState
	err = r.db.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		state, txErr = r.apply(ctx, tx, reference, update)
		return txErr
	})
	if err != nil {
		r.metrics.ObserveReconciliation(update.Source.String(), "error")
		r.logg.Error(ctx, "reconciliation failed", err)
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reconcile transaction")
	}

	result := state.result
	if state.notifyOrderID != nil && r.notifier != nil {
		sent, notifyErr := r.notifier.NotifyIfNewlyPaid(ctx, *state.notifyOrderID)
		if notifyErr != nil {
			r.logg.Error(r.logg.WithField(ctx, "order_id", state.notifyOrderID.String()), "order confirmation failed; sweep will retry", notifyErr)
		}
		result.Notified = sent
	}
	return r.finish(ctx, update, &result), nil
}

func (r *Reconciler) apply(ctx context.Context, tx *gorm.DB, reference int64, update GatewayUpdate) (reconcileState, error) {
	txRepo := r.transactions.WithTx(tx)
	orderRepo := r.orders.WithTx(tx)

	txn, err := txRepo.FindByReferenceForUpdate(ctx, reference)
	if err != nil {
		if db.IsNotFound(err) {
			return reconcileState{result: Result{Outcome: OutcomeUnknownReference, Reference: reference}}, nil
		}
		return reconcileState{}, err
	}

	current := txn.Status()
	next := MapTransactionStatus(update.Status)
	state := reconcileState{result: Result{
		Reference:         reference,
		TransactionID:     txn.ID,
		TransactionStatus: current,
	}}

	if current.IsTerminal() {
		state.result.Outcome = OutcomeAlreadyFinal
		return r.withOrderStatus(ctx, orderRepo, txn.ID, state)
	}
	if current == next {
		if _, err := txRepo.SetGatewayTransactionID(ctx, txn.ID, strings.TrimSpace(update.GatewayTransactionID)); err != nil {
			return reconcileState{}, err
		}
		state.result.Outcome = OutcomeNoChange
		return r.withOrderStatus(ctx, orderRepo, txn.ID, state)
	}

	if update.AmountInCents != nil && *update.AmountInCents != txn.AmountInCents() {
		r.logg.Warn(r.logg.WithFields(ctx, map[string]any{
			"expected_amount_cents": txn.AmountInCents(),
			"reported_amount_cents": *update.AmountInCents,
		}), "gateway reported a different amount")
	}

	observedAt := update.ObservedAt
	if observedAt.IsZero() {
		observedAt = time.Now().UTC()
	}
	event := &models.TransactionStatusEvent{
		TransactionID:       txn.ID,
		Status:              next,
		Source:              update.Source,
		ObservedAt:          observedAt.UTC(),
		RawPayload:          rawOrNil(update.Raw),
		ReportedAmountCents: update.AmountInCents,
	}
	if err := txRepo.AppendStatusEvent(ctx, event); err != nil {
		return reconcileState{}, err
	}
	if err := txRepo.SetCurrentStatus(ctx, txn.ID, event.ID); err != nil {
		return reconcileState{}, err
	}
	if _, err := txRepo.SetGatewayTransactionID(ctx, txn.ID, strings.TrimSpace(update.GatewayTransactionID)); err != nil {
		return reconcileState{}, err
	}

	if err := r.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventTransactionStatusChanged,
		AggregateType: enums.AggregateTransaction,
		AggregateID:   txn.ID,
		Actor:         &outbox.ActorRef{Source: update.Source},
		Data: payloads.TransactionStatusChangedEvent{
			TransactionID:  txn.ID,
			Reference:      reference,
			Gateway:        txn.Gateway,
			PreviousStatus: current,
			Status:         next,
			Source:         update.Source,
		},
	}); err != nil {
		return reconcileState{}, err
	}

	state.result.Outcome = OutcomeUpdated
	state.result.TransactionStatus = next

	order, err := orderRepo.FindByTransactionForUpdate(ctx, txn.ID)
	if err != nil {
		if db.IsNotFound(err) {
			return state, nil
		}
		return reconcileState{}, err
	}
	state.result.OrderID = &order.ID
	state.result.OrderStatus = order.Status

	target := MapOrderStatus(update.Status)
	if order.Status.IsTerminal() || order.Status == target {
		return state, nil
	}
	if err := orderRepo.UpdateStatus(ctx, order.ID, target); err != nil {
		return reconcileState{}, err
	}
	state.result.OrderStatus = target

	switch target {
	case enums.OrderStatusPaid:
		err = r.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{Source: update.Source},
			Data: payloads.OrderPaidEvent{
				OrderID:       order.ID,
				CustomerID:    order.CustomerID,
				TransactionID: txn.ID,
				Reference:     reference,
				AmountInCents: txn.AmountInCents(),
				Currency:      txn.Currency,
			},
		})
		if !order.NotificationSent {
			id := order.ID
			state.notifyOrderID = &id
		}
	case enums.OrderStatusCancelled:
		err = r.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{Source: update.Source},
			Data: payloads.OrderCancelledEvent{
				OrderID:       order.ID,
				TransactionID: txn.ID,
				Reference:     reference,
				Reason:        next,
			},
		})
	}
	if err != nil {
		return reconcileState{}, err
	}
	return state, nil
}

// withOrderStatus fills the linked order into a result that changed nothing.
func (r *Reconciler) withOrderStatus(ctx context.Context, orderRepo *orders.Repository, transactionID uuid.UUID, state reconcileState) (reconcileState, error) {
	order, err := orderRepo.FindByTransactionForUpdate(ctx, transactionID)
	if err != nil {
		if db.IsNotFound(err) {
			return state, nil
		}
		return reconcileState{}, err
	}
	state.result.OrderID = &order.ID
	state.result.OrderStatus = order.Status
	return state, nil
}

func (r *Reconciler) finish(ctx context.Context, update GatewayUpdate, result *Result) *Result {
	r.metrics.ObserveReconciliation(update.Source.String(), string(result.Outcome))
	fields := map[string]any{
		"outcome":        string(result.Outcome),
		"gateway_status": update.Status,
	}
	if result.TransactionStatus != "" {
		fields["transaction_status"] = string(result.TransactionStatus)
	}
	if result.OrderStatus != "" {
		fields["order_status"] = string(result.OrderStatus)
	}
	logCtx := r.logg.WithFields(ctx, fields)
	if result.Outcome == OutcomeUnknownReference {
		r.logg.Warn(logCtx, "gateway update for unknown reference ignored")
		return result
	}
	r.logg.Info(logCtx, "payment reconciled")
	return result
}

func rawOrNil(raw json.RawMessage) json.RawMessage {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil
	}
	return raw
}
