package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/vitora-backend/pkg/db"
	"github.com/angelmondragon/vitora-backend/pkg/db/models"
	"github.com/angelmondragon/vitora-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vitora-backend/pkg/errors"
	"github.com/angelmondragon/vitora-backend/pkg/logger"
	"github.com/angelmondragon/vitora-backend/pkg/metrics"
)

const (
	claimScope       = "order-confirmation"
	defaultClaimTTL  = 10 * time.Minute
	defaultSweepSize = 50
)

type orderStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	MarkNotificationSent(ctx context.Context, id uuid.UUID) (bool, error)
	FindPendingNotification(ctx context.Context, limit int) ([]models.Order, error)
}

type transactionReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
}

type claimStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	ClaimKey(scope, id string) string
}

// DispatcherParams wires the dispatcher. Claims is optional; without it the
// conditional flag update is the only guard against double sends.
type DispatcherParams struct {
	Orders       orderStore
	Transactions transactionReader
	Sender       ConfirmationSender
	Claims       claimStore
	ClaimTTL     time.Duration
	Logger       *logger.Logger
	Metrics      *metrics.PaymentMetrics
}

// Dispatcher sends the confirmation email for PAID orders at most once per
// successful flag update.
type Dispatcher struct {
	orders       orderStore
	transactions transactionReader
	sender       ConfirmationSender
	claims       claimStore
	claimTTL     time.Duration
	logg         *logger.Logger
	metrics      *metrics.PaymentMetrics
}

func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders store required")
	}
	if params.Transactions == nil {
		return nil, fmt.Errorf("transaction reader required")
	}
	if params.Sender == nil {
		return nil, fmt.Errorf("confirmation sender required")
	}
	ttl := params.ClaimTTL
	if ttl <= 0 {
		ttl = defaultClaimTTL
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Dispatcher{
		orders:       params.Orders,
		transactions: params.Transactions,
		sender:       params.Sender,
		claims:       params.Claims,
		claimTTL:     ttl,
		logg:         logg,
		metrics:      params.Metrics,
	}, nil
}

// NotifyIfNewlyPaid re-reads the order and sends its confirmation when it is
// PAID and not yet notified. It reports whether this call sent the email.
func (d *Dispatcher) NotifyIfNewlyPaid(ctx context.Context, orderID uuid.UUID) (bool, error) {
	ctx = d.logg.WithField(ctx, "order_id", orderID.String())

	order, err := d.orders.FindByID(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return false, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order.Status != enums.OrderStatusPaid || order.NotificationSent {
		d.metrics.ObserveNotification("skipped")
		return false, nil
	}

	claimKey := ""
	if d.claims != nil {
		claimKey = d.claims.ClaimKey(claimScope, orderID.String())
		claimed, err := d.claims.SetNX(ctx, claimKey, uuid.NewString(), d.claimTTL)
		if err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim order confirmation")
		}
		if !claimed {
			d.logg.Info(ctx, "order confirmation already in flight")
			d.metrics.ObserveNotification("claimed_elsewhere")
			return false, nil
		}
	}

	if claimKey != "" {
		// A previous claim holder may have recorded the send after our first read.
		order, err = d.orders.FindByID(ctx, orderID)
		if err != nil {
			d.release(ctx, claimKey)
			return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload order")
		}
		if order.NotificationSent {
			d.release(ctx, claimKey)
			d.metrics.ObserveNotification("skipped")
			return false, nil
		}
	}

	conf := Confirmation{Order: *order, Customer: order.Customer}
	if order.TransactionID != nil {
		txn, err := d.transactions.FindByID(ctx, *order.TransactionID)
		if err != nil && !db.IsNotFound(err) {
			d.release(ctx, claimKey)
			return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load transaction")
		}
		conf.Transaction = txn
	}

	if err := d.sender.SendConfirmation(ctx, conf); err != nil {
		d.release(ctx, claimKey)
		d.metrics.ObserveNotification("failed")
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send order confirmation")
	}

	marked, err := d.orders.MarkNotificationSent(ctx, orderID)
	if err != nil {
		// The claim stays until it expires so a retry does not resend
		// immediately.
		d.metrics.ObserveNotification("sent_unrecorded")
		return true, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record notification")
	}
	if !marked {
		d.logg.Warn(ctx, "order confirmation was already recorded by another sender")
	}
	d.release(ctx, claimKey)
	d.metrics.ObserveNotification("sent")
	d.logg.Info(ctx, "order confirmation sent")
	return true, nil
}

// SweepResult summarizes one sweep pass.
type SweepResult struct {
	Attempted int
	Sent      int
	Failed    int
}

// SweepPending retries confirmations for PAID orders whose flag is still
// false, oldest first. Per-order failures are combined into the returned
// error; the pass always covers the whole batch.
func (d *Dispatcher) SweepPending(ctx context.Context, limit int) (SweepResult, error) {
	if limit <= 0 {
		limit = defaultSweepSize
	}
	pending, err := d.orders.FindPendingNotification(ctx, limit)
	if err != nil {
		return SweepResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load pending confirmations")
	}

	var (
		result SweepResult
		errs   error
	)
	for _, order := range pending {
		result.Attempted++
		sent, err := d.NotifyIfNewlyPaid(ctx, order.ID)
		if err != nil {
			result.Failed++
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.ID, err))
			continue
		}
		if sent {
			result.Sent++
		}
	}
	return result, errs
}

func (d *Dispatcher) release(ctx context.Context, key string) {
	if d.claims == nil || key == "" {
		return
	}
	if err := d.claims.Del(ctx, key); err != nil {
		d.logg.Error(ctx, "failed to release order confirmation claim", err)
	}
}
