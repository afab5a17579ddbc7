package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/vitora-backend/pkg/db"
	"github.com/angelmondragon/vitora-backend/pkg/db/models"
	"github.com/angelmondragon/vitora-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vitora-backend/pkg/errors"
	"github.com/angelmondragon/vitora-backend/pkg/pagination"
)

const uniqueOrderTransaction = "ux_orders_transaction"

type customerReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

type transactionReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
}

// CreateInput is the payload for orders created outside checkout.
type CreateInput struct {
	CustomerID      uuid.UUID
	TransactionID   *uuid.UUID
	LineItems       json.RawMessage
	Department      string
	City            string
	ShippingAddress string
	Notes           *string
}

// ListResult is one page of orders.
type ListResult struct {
	Orders []models.Order
	Page   pagination.Page
}

// Service exposes order reads and the operator-driven fulfillment path.
// Payment-driven status changes belong to reconciliation, not to this service.
type Service struct {
	repo         *Repository
	customers    customerReader
	transactions transactionReader
}

func NewService(repo *Repository, customers customerReader, transactions transactionReader) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if customers == nil {
		return nil, fmt.Errorf("customer reader required")
	}
	if transactions == nil {
		return nil, fmt.Errorf("transaction reader required")
	}
	return &Service{repo: repo, customers: customers, transactions: transactions}, nil
}

// Create stores an order in INITIATED. The customer must already exist; a
// linked transaction must exist and not belong to another order.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Order, error) {
	if in.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer_id is required")
	}
	if err := ValidateLineItems(in.LineItems); err != nil {
		return nil, err
	}

	if _, err := s.customers.FindByID(ctx, in.CustomerID); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load customer")
	}
	if in.TransactionID != nil {
		if _, err := s.transactions.FindByID(ctx, *in.TransactionID); err != nil {
			if db.IsNotFound(err) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load transaction")
		}
	}

	order := &models.Order{
		CustomerID:      in.CustomerID,
		TransactionID:   in.TransactionID,
		LineItems:       in.LineItems,
		Status:          enums.OrderStatusInitiated,
		Department:      strings.TrimSpace(in.Department),
		City:            strings.TrimSpace(in.City),
		ShippingAddress: strings.TrimSpace(in.ShippingAddress),
		Notes:           in.Notes,
	}
	if err := s.repo.Create(ctx, order); err != nil {
		if db.IsUniqueViolation(err, uniqueOrderTransaction) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "transaction already linked to another order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
	}
	return order, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}

func (s *Service) List(ctx context.Context, filters Filters, params pagination.Params) (*ListResult, error) {
	params = params.Normalize()
	rows, total, err := s.repo.List(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return &ListResult{
		Orders: rows,
		Page:   pagination.Page{Limit: params.Limit, Offset: params.Offset, Total: total},
	}, nil
}

// UpdateFulfillmentStatus advances a paid order through preparation and
// shipping. Any other transition is a state conflict.
func (s *Service) UpdateFulfillmentStatus(ctx context.Context, id uuid.UUID, next enums.OrderStatus) (*models.Order, error) {
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]string{"status": string(next)})
	}
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanFulfillTo(next) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order status transition not allowed").
			WithDetails(map[string]string{"from": string(order.Status), "to": string(next)})
	}

	changed, err := s.repo.UpdateStatusFrom(ctx, id, order.Status, next)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
	}
	if !changed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order changed concurrently")
	}
	order.Status = next
	return order, nil
}
