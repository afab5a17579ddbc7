package wompiwebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/vitora-backend/internal/payments"
	"github.com/angelmondragon/vitora-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vitora-backend/pkg/errors"
	"github.com/angelmondragon/vitora-backend/pkg/logger"
	"github.com/angelmondragon/vitora-backend/pkg/metrics"
	"github.com/angelmondragon/vitora-backend/pkg/wompi"
)

const consumerName = "wompi-webhook"

type reconciler interface {
	Reconcile(ctx context.Context, update payments.GatewayUpdate) (*payments.Result, error)
}

type deliveryGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, deliveryKey string) (bool, error)
	Delete(ctx context.Context, consumer, deliveryKey string) error
}

// ServiceParams wires the webhook service. Guard is optional.
type ServiceParams struct {
	Reconciler   reconciler
	EventsSecret string
	Guard        deliveryGuard
	Logger       *logger.Logger
	Metrics      *metrics.PaymentMetrics
}

// Service verifies and applies Wompi transaction events.
type Service struct {
	reconciler   reconciler
	eventsSecret string
	guard        deliveryGuard
	logg         *logger.Logger
	metrics      *metrics.PaymentMetrics
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Reconciler == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reconciler required")
	}
	if strings.TrimSpace(params.EventsSecret) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wompi events secret required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		reconciler:   params.Reconciler,
		eventsSecret: params.EventsSecret,
		guard:        params.Guard,
		logg:         logg,
		metrics:      params.Metrics,
	}, nil
}

// HandleEvent checks the event checksum before anything else and then hands
// the transaction to the reconciler. An invalid checksum returns the
// INVALID_SIGNATURE result together with a CodeInvalidSignature error.
func (s *Service) HandleEvent(ctx context.Context, body []byte) (*payments.Result, error) {
	if !wompi.VerifyEventSignature(body, s.eventsSecret) {
		s.metrics.ObserveWebhook("invalid_signature")
		s.logg.Warn(ctx, "wompi event rejected: invalid checksum")
		return &payments.Result{Outcome: payments.OutcomeInvalidSignature},
			pkgerrors.New(pkgerrors.CodeInvalidSignature, "invalid event signature")
	}

	var event wompi.Event
	if err := json.Unmarshal(body, &event); err != nil {
		s.metrics.ObserveWebhook("malformed")
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode wompi event")
	}
	ctx = s.logg.WithField(ctx, "event", event.Event)

	if event.Event != wompi.EventTransactionUpdated {
		s.metrics.ObserveWebhook("ignored")
		s.logg.Info(ctx, "wompi event type ignored")
		return &payments.Result{Outcome: payments.OutcomeNoChange}, nil
	}

	txn, err := event.TransactionData()
	if err != nil {
		s.metrics.ObserveWebhook("malformed")
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode wompi transaction")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"reference":              txn.Reference,
		"gateway_transaction_id": txn.ID,
		"gateway_status":         txn.Status,
	})

	deliveryKey := fmt.Sprintf("%s:%s:%s", txn.ID, strings.ToUpper(txn.Status), event.TimestampValue())
	if s.guard != nil {
		seen, err := s.guard.CheckAndMarkProcessed(ctx, consumerName, deliveryKey)
		switch {
		case err != nil:
			// The reconciler is authoritative; losing the guard only costs a DB round trip.
			s.logg.Error(ctx, "webhook guard unavailable", err)
		case seen:
			s.metrics.ObserveWebhook("duplicate")
			s.logg.Info(ctx, "duplicate wompi event skipped")
			return &payments.Result{Outcome: payments.OutcomeNoChange, Reference: parseReference(txn.Reference)}, nil
		}
	}

	amount := txn.AmountInCents
	result, err := s.reconciler.Reconcile(ctx, payments.GatewayUpdate{
		Reference:            txn.Reference,
		Status:               txn.Status,
		GatewayTransactionID: txn.ID,
		AmountInCents:        &amount,
		Source:               enums.StatusSourceWebhook,
		Raw:                  json.RawMessage(body),
		ObservedAt:           observedAt(event),
	})
	if err != nil {
		s.forget(ctx, deliveryKey)
		s.metrics.ObserveWebhook("error")
		return nil, err
	}
	s.metrics.ObserveWebhook("processed")
	return result, nil
}

func (s *Service) forget(ctx context.Context, deliveryKey string) {
	if s.guard == nil {
		return
	}
	if err := s.guard.Delete(ctx, consumerName, deliveryKey); err != nil {
		s.logg.Error(ctx, "failed to clear webhook guard", err)
	}
}

// observedAt prefers the event timestamp (unix seconds) over sent_at and
// falls back to the receive time.
func observedAt(event wompi.Event) time.Time {
	if secs, err := strconv.ParseInt(event.TimestampValue(), 10, 64); err == nil && secs > 0 {
		return time.Unix(secs, 0).UTC()
	}
	if sent, err := time.Parse(time.RFC3339, event.SentAt); err == nil {
		return sent.UTC()
	}
	return time.Now().UTC()
}

func parseReference(raw string) int64 {
	ref, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return ref
}
