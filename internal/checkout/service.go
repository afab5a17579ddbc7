package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/vitora-backend/internal/customers"
	"github.com/angelmondragon/vitora-backend/internal/orders"
	"github.com/angelmondragon/vitora-backend/internal/transactions"
	"github.com/angelmondragon/vitora-backend/pkg/db"
	"github.com/angelmondragon/vitora-backend/pkg/db/models"
	"github.com/angelmondragon/vitora-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vitora-backend/pkg/errors"
	"github.com/angelmondragon/vitora-backend/pkg/logger"
)

const (
	uniqueTransactionReference = "ux_transactions_reference"
	defaultReferenceBase       = 100000
	defaultMaxAttempts         = 5
	defaultCurrency            = "COP"
)

var errReferenceCollision = errors.New("reference collision")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type customerResolver interface {
	FindOrCreate(ctx context.Context, tx *gorm.DB, in customers.Input) (*models.Customer, error)
}

// CustomerInput identifies the buyer.
type CustomerInput struct {
	Identification     string
	IdentificationType string
	FullName           string
	Email              *string
	Phone              *string
}

// ShippingInput is where the order ships.
type ShippingInput struct {
	Department string
	City       string
	Address    string
}

// CheckoutInput is a checkout request. LineItems are stored verbatim.
type CheckoutInput struct {
	Customer  CustomerInput
	Amount    decimal.Decimal
	LineItems json.RawMessage
	Shipping  ShippingInput
	Notes     *string
}

// CheckoutIntent is what the client needs to send the buyer to the gateway.
type CheckoutIntent struct {
	Reference     int64         `json:"reference"`
	CheckoutURL   string        `json:"checkout_url"`
	Signature     string        `json:"signature"`
	TransactionID uuid.UUID     `json:"transaction_id"`
	OrderID       uuid.UUID     `json:"order_id"`
	Gateway       enums.Gateway `json:"gateway"`
	AmountInCents int64         `json:"amount_in_cents"`
	Currency      string        `json:"currency"`
}

// ServiceParams wires the checkout service.
type ServiceParams struct {
	DB            txRunner
	Transactions  *transactions.Repository
	Orders        *orders.Repository
	Customers     customerResolver
	Gateway       Gateway
	Currency      string
	ReferenceBase int64
	MaxAttempts   int
	Logger        *logger.Logger
}

// Service creates checkout intents: a transaction, its first status and the
// linked order, plus the gateway hand-off.
type Service struct {
	db            txRunner
	transactions  *transactions.Repository
	orders        *orders.Repository
	customers     customerResolver
	gateway       Gateway
	currency      string
	referenceBase int64
	maxAttempts   int
	logg          *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Transactions == nil {
		return nil, fmt.Errorf("transactions repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Customers == nil {
		return nil, fmt.Errorf("customer resolver required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	currency := strings.ToUpper(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	base := params.ReferenceBase
	if base <= 0 {
		base = defaultReferenceBase
	}
	attempts := params.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		db:            params.DB,
		transactions:  params.Transactions,
		orders:        params.Orders,
		customers:     params.Customers,
		gateway:       params.Gateway,
		currency:      currency,
		referenceBase: base,
		maxAttempts:   attempts,
		logg:          logg,
	}, nil
}

// CreateIntent stores the checkout and returns the gateway redirect. A
// reference taken by a concurrent checkout retries the whole unit.
func (s *Service) CreateIntent(ctx context.Context, input CheckoutInput) (*CheckoutIntent, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		intent, err := s.createOnce(ctx, input)
		if err == nil {
			return intent, nil
		}
		if !errors.Is(err, errReferenceCollision) {
			return nil, err
		}
		s.logg.Warn(s.logg.WithField(ctx, "attempt", attempt), "checkout reference collision; retrying")
	}
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a checkout reference").
		WithDetails(map[string]any{"attempts": s.maxAttempts})
}

func (s *Service) createOnce(ctx context.Context, input CheckoutInput) (*CheckoutIntent, error) {
	var (
		intent *CheckoutIntent
		req    PaymentRequest
	)
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.transactions.WithTx(tx)
		orderRepo := s.orders.WithTx(tx)

		customer, err := s.customers.FindOrCreate(ctx, tx, customers.Input{
			Identification:     input.Customer.Identification,
			IdentificationType: input.Customer.IdentificationType,
			FullName:           input.Customer.FullName,
			Email:              input.Customer.Email,
			Phone:              input.Customer.Phone,
		})
		if err != nil {
			return err
		}

		reference, err := s.nextReference(ctx, txRepo)
		if err != nil {
			return err
		}

		txn := &models.Transaction{
			Reference: reference,
			Gateway:   s.gateway.Name(),
			Amount:    input.Amount.Round(2),
			Currency:  s.currency,
		}
		if err := txRepo.Create(ctx, txn); err != nil {
			if db.IsUniqueViolation(err, uniqueTransactionReference) {
				return errReferenceCollision
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create transaction")
		}

		initial := &models.TransactionStatusEvent{
			TransactionID: txn.ID,
			Status:        enums.TransactionStatusInProcess,
			Source:        enums.StatusSourceCheckout,
		}
		if err := txRepo.AppendStatusEvent(ctx, initial); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record initial status")
		}
		if err := txRepo.SetCurrentStatus(ctx, txn.ID, initial.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "set initial status")
		}

		txID := txn.ID
		order := &models.Order{
			CustomerID:      customer.ID,
			TransactionID:   &txID,
			LineItems:       input.LineItems,
			Status:          enums.OrderStatusPaymentPending,
			Department:      strings.TrimSpace(input.Shipping.Department),
			City:            strings.TrimSpace(input.Shipping.City),
			ShippingAddress: strings.TrimSpace(input.Shipping.Address),
			Notes:           input.Notes,
		}
		if err := orderRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}

		req = PaymentRequest{
			Reference:     reference,
			AmountInCents: txn.AmountInCents(),
			Currency:      txn.Currency,
			Customer:      input.Customer,
			Shipping:      input.Shipping,
		}
		intent = &CheckoutIntent{
			Reference:     reference,
			TransactionID: txn.ID,
			OrderID:       order.ID,
			Gateway:       s.gateway.Name(),
			AmountInCents: req.AmountInCents,
			Currency:      req.Currency,
		}

		if !s.gateway.Synchronous() {
			return nil
		}
		auth, err := s.gateway.Authorize(ctx, req)
		if err != nil {
			return err
		}
		if _, err := txRepo.SetGatewayTransactionID(ctx, txn.ID, auth.GatewayTransactionID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store gateway transaction id")
		}
		intent.CheckoutURL = auth.CheckoutURL
		intent.Signature = auth.Signature
		return nil
	})
	if err != nil {
		if errors.Is(err, errReferenceCollision) || db.IsUniqueViolation(err, uniqueTransactionReference) {
			return nil, errReferenceCollision
		}
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create checkout")
	}

	if !s.gateway.Synchronous() {
		auth, err := s.gateway.Authorize(ctx, req)
		if err != nil {
			return nil, err
		}
		intent.CheckoutURL = auth.CheckoutURL
		intent.Signature = auth.Signature
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"reference": intent.Reference,
		"gateway":   intent.Gateway.String(),
		"order_id":  intent.OrderID.String(),
	})
	s.logg.Info(logCtx, "checkout intent created")
	return intent, nil
}

// nextReference allocates MAX(reference)+1, never below the configured base.
func (s *Service) nextReference(ctx context.Context, repo *transactions.Repository) (int64, error) {
	highest, err := repo.MaxReference(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read max reference")
	}
	if highest < s.referenceBase {
		highest = s.referenceBase
	}
	return highest + 1, nil
}

func validateInput(input CheckoutInput) error {
	details := map[string]string{}
	if !input.Amount.IsPositive() {
		details["amount"] = "must be greater than zero"
	}
	if strings.TrimSpace(input.Customer.Identification) == "" {
		details["customer.identification"] = "required"
	}
	if strings.TrimSpace(input.Customer.IdentificationType) == "" {
		details["customer.identification_type"] = "required"
	}
	if strings.TrimSpace(input.Customer.FullName) == "" {
		details["customer.full_name"] = "required"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid checkout request").WithDetails(details)
	}
	return orders.ValidateLineItems(input.LineItems)
}
