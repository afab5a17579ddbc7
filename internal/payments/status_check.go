package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/vitora-backend/pkg/db"
	"github.com/angelmondragon/vitora-backend/pkg/db/models"
	"github.com/angelmondragon/vitora-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vitora-backend/pkg/errors"
	"github.com/angelmondragon/vitora-backend/pkg/logger"
	"github.com/angelmondragon/vitora-backend/pkg/wompi"
)

type gatewayLookup interface {
	TransactionsByReference(ctx context.Context, reference string) (*wompi.Lookup, error)
}

type updateReconciler interface {
	Reconcile(ctx context.Context, update GatewayUpdate) (*Result, error)
}

type transactionFinder interface {
	FindByReference(ctx context.Context, reference int64) (*models.Transaction, error)
}

type linkedOrderFinder interface {
	FindByTransaction(ctx context.Context, transactionID uuid.UUID) (*models.Order, error)
}

// PollResult is a reconciliation result plus what the gateway answered.
type PollResult struct {
	Result
	GatewayPayload json.RawMessage `json:"gateway_payload,omitempty"`
	GatewayFound   bool            `json:"-"`
}

// StatusCheckerParams wires the checker.
type StatusCheckerParams struct {
	Transactions transactionFinder
	Orders       linkedOrderFinder
	Gateway      gatewayLookup
	Reconciler   updateReconciler
	Logger       *logger.Logger
}

// StatusChecker asks Wompi for the latest attempt on a reference and feeds
// it through the reconciler as a poll observation.
type StatusChecker struct {
	transactions transactionFinder
	orders       linkedOrderFinder
	gateway      gatewayLookup
	reconciler   updateReconciler
	logg         *logger.Logger
	now          func() time.Time
}

func NewStatusChecker(params StatusCheckerParams) (*StatusChecker, error) {
	if params.Transactions == nil {
		return nil, fmt.Errorf("transaction finder required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order finder required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("wompi client required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("reconciler required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &StatusChecker{
		transactions: params.Transactions,
		orders:       params.Orders,
		gateway:      params.Gateway,
		reconciler:   params.Reconciler,
		logg:         logg,
		now:          time.Now,
	}, nil
}

// Check polls the gateway for a stored reference. Unknown references never
// reach the gateway.
func (c *StatusChecker) Check(ctx context.Context, reference int64) (*PollResult, error) {
	if reference <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference must be a positive integer")
	}
	txn, err := c.transactions.FindByReference(ctx, reference)
	if err != nil {
		if db.IsNotFound(err) {
			return &PollResult{Result: Result{Outcome: OutcomeUnknownReference, Reference: reference}}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load transaction")
	}
	return c.PollTransaction(ctx, txn)
}

// PollTransaction reconciles txn against the gateway's latest attempt. Only
// Wompi exposes a lookup; other gateways report the stored state.
func (c *StatusChecker) PollTransaction(ctx context.Context, txn *models.Transaction) (*PollResult, error) {
	reference := strconv.FormatInt(txn.Reference, 10)
	ctx = c.logg.WithField(ctx, "reference", reference)

	if txn.Gateway != enums.GatewayWompi {
		return c.storedState(ctx, txn, nil)
	}

	lookup, err := c.gateway.TransactionsByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	latest := lookup.Latest()
	if latest == nil {
		c.logg.Debug(ctx, "gateway has no transaction for reference yet")
		return c.storedState(ctx, txn, lookup.Raw)
	}

	amount := latest.AmountInCents
	result, err := c.reconciler.Reconcile(ctx, GatewayUpdate{
		Reference:            reference,
		Status:               latest.Status,
		GatewayTransactionID: latest.ID,
		AmountInCents:        &amount,
		Source:               enums.StatusSourcePoll,
		Raw:                  lookup.Raw,
		ObservedAt:           c.now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	return &PollResult{Result: *result, GatewayPayload: lookup.Raw, GatewayFound: true}, nil
}

func (c *StatusChecker) storedState(ctx context.Context, txn *models.Transaction, raw json.RawMessage) (*PollResult, error) {
	res := &PollResult{
		Result: Result{
			Outcome:           OutcomeNoChange,
			Reference:         txn.Reference,
			TransactionID:     txn.ID,
			TransactionStatus: txn.Status(),
		},
		GatewayPayload: rawOrNil(raw),
	}
	order, err := c.orders.FindByTransaction(ctx, txn.ID)
	if err != nil {
		if db.IsNotFound(err) {
			return res, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	res.OrderID = &order.ID
	res.OrderStatus = order.Status
	return res, nil
}
