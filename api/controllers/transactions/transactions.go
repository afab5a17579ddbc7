package transactions

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/vitora-backend/api/responses"
	"github.com/angelmondragon/vitora-backend/api/validators"
	"github.com/angelmondragon/vitora-backend/internal/payments"
	"github.com/angelmondragon/vitora-backend/pkg/db"
	"github.com/angelmondragon/vitora-backend/pkg/db/models"
	"github.com/angelmondragon/vitora-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vitora-backend/pkg/errors"
	"github.com/angelmondragon/vitora-backend/pkg/logger"
)

type StatusChecker interface {
	Check(ctx context.Context, reference int64) (*payments.PollResult, error)
}

// Reader is the read side of the transactions store.
type Reader interface {
	FindByReference(ctx context.Context, reference int64) (*models.Transaction, error)
	ListStatusEvents(ctx context.Context, transactionID uuid.UUID) ([]models.TransactionStatusEvent, error)
}

// Status polls the gateway for a reference and reconciles what it reports.
// The storefront calls it from the post-payment page.
func Status(checker StatusChecker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "status checker unavailable"))
			return
		}

		var payload statusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := checker.Check(r.Context(), int64(payload.Reference))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Get returns a transaction with its current status.
func Get(reader Reader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		txn, ok := loadTransaction(w, r, reader, logg)
		if !ok {
			return
		}
		responses.WriteSuccess(w, newTransactionResponse(txn))
	}
}

// Events returns the status history of a transaction, newest first.
func Events(reader Reader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		txn, ok := loadTransaction(w, r, reader, logg)
		if !ok {
			return
		}
		events, err := reader.ListStatusEvents(r.Context(), txn.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list status events"))
			return
		}
		out := make([]statusEventResponse, 0, len(events))
		for _, event := range events {
			out = append(out, newStatusEventResponse(event))
		}
		responses.WriteSuccess(w, out)
	}
}

func loadTransaction(w http.ResponseWriter, r *http.Request, reader Reader, logg *logger.Logger) (*models.Transaction, bool) {
	if reader == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transactions store unavailable"))
		return nil, false
	}
	reference, err := validators.ParseReferenceParam(r, "reference")
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return nil, false
	}
	txn, err := reader.FindByReference(r.Context(), reference)
	if err != nil {
		if db.IsNotFound(err) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found"))
			return nil, false
		}
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load transaction"))
		return nil, false
	}
	return txn, true
}

type statusRequest struct {
	Reference referenceValue `json:"reference" validate:"required,gt=0"`
}

// referenceValue accepts the reference as a JSON number or a numeric string;
// the storefront sends whatever it read back from the redirect URL.
type referenceValue int64

func (v *referenceValue) UnmarshalJSON(data []byte) error {
	raw := bytes.Trim(bytes.TrimSpace(data), `"`)
	parsed, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "reference must be numeric")
	}
	*v = referenceValue(parsed)
	return nil
}

type transactionResponse struct {
	ID                   uuid.UUID               `json:"id"`
	Reference            int64                   `json:"reference"`
	Gateway              enums.Gateway           `json:"gateway"`
	GatewayTransactionID *string                 `json:"gateway_transaction_id,omitempty"`
	Amount               string                  `json:"amount"`
	AmountInCents        int64                   `json:"amount_in_cents"`
	Currency             string                  `json:"currency"`
	Status               enums.TransactionStatus `json:"status"`
	StatusSource         enums.StatusSource      `json:"status_source,omitempty"`
	StatusObservedAt     *time.Time              `json:"status_observed_at,omitempty"`
	CreatedAt            time.Time               `json:"created_at"`
	UpdatedAt            time.Time               `json:"updated_at"`
}

func newTransactionResponse(txn *models.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:                   txn.ID,
		Reference:            txn.Reference,
		Gateway:              txn.Gateway,
		GatewayTransactionID: txn.GatewayTransactionID,
		Amount:               txn.Amount.StringFixed(2),
		AmountInCents:        txn.AmountInCents(),
		Currency:             txn.Currency,
		Status:               txn.Status(),
		CreatedAt:            txn.CreatedAt,
		UpdatedAt:            txn.UpdatedAt,
	}
	if txn.CurrentStatus != nil {
		observed := txn.CurrentStatus.ObservedAt
		resp.StatusSource = txn.CurrentStatus.Source
		resp.StatusObservedAt = &observed
	}
	return resp
}

type statusEventResponse struct {
	ID                  uuid.UUID               `json:"id"`
	Status              enums.TransactionStatus `json:"status"`
	Source              enums.StatusSource      `json:"source"`
	ObservedAt          time.Time               `json:"observed_at"`
	ReportedAmountCents *int64                  `json:"reported_amount_cents,omitempty"`
	RawPayload          json.RawMessage         `json:"raw_payload,omitempty"`
}

func newStatusEventResponse(event models.TransactionStatusEvent) statusEventResponse {
	return statusEventResponse{
		ID:                  event.ID,
		Status:              event.Status,
		Source:              event.Source,
		ObservedAt:          event.ObservedAt,
		ReportedAmountCents: event.ReportedAmountCents,
		RawPayload:          event.RawPayload,
	}
}
