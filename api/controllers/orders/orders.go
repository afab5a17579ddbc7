package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/vitora-backend/api/responses"
	"github.com/angelmondragon/vitora-backend/api/validators"
	internalorders "github.com/angelmondragon/vitora-backend/internal/orders"
	"github.com/angelmondragon/vitora-backend/pkg/db/models"
	"github.com/angelmondragon/vitora-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vitora-backend/pkg/errors"
	"github.com/angelmondragon/vitora-backend/pkg/logger"
	"github.com/angelmondragon/vitora-backend/pkg/pagination"
)

// Service is the back-office order surface.
type Service interface {
	Create(ctx context.Context, in internalorders.CreateInput) (*models.Order, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filters internalorders.Filters, params pagination.Params) (*internalorders.ListResult, error)
	UpdateFulfillmentStatus(ctx context.Context, id uuid.UUID, next enums.OrderStatus) (*models.Order, error)
}

// Create registers an order for an existing customer outside checkout.
func Create(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Create(r.Context(), internalorders.CreateInput{
			CustomerID:      payload.CustomerID,
			TransactionID:   payload.TransactionID,
			LineItems:       payload.LineItems,
			Department:      validators.SanitizeString(payload.Department, 80),
			City:            validators.SanitizeString(payload.City, 80),
			ShippingAddress: validators.SanitizeString(payload.ShippingAddress, 255),
			Notes:           payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}

func Detail(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// List pages orders newest first, optionally narrowed by customer,
// transaction or status.
func List(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1<<30)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := buildFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), filters, pagination.Params{Limit: limit, Offset: offset})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items := make([]orderResponse, 0, len(result.Orders))
		for i := range result.Orders {
			items = append(items, newOrderResponse(&result.Orders[i]))
		}
		responses.WriteSuccess(w, listResponse{Orders: items, Page: result.Page})
	}
}

// UpdateStatus moves a paid order through preparation and shipping.
func UpdateStatus(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.UpdateFulfillmentStatus(r.Context(), orderID, enums.OrderStatus(strings.ToUpper(strings.TrimSpace(payload.Status))))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

func buildFilters(r *http.Request) (internalorders.Filters, error) {
	var filters internalorders.Filters
	query := r.URL.Query()
	if raw := strings.TrimSpace(query.Get("customer_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "invalid customer_id").WithDetails(map[string]any{"field": "customer_id"})
		}
		filters.CustomerID = &id
	}
	if raw := strings.TrimSpace(query.Get("transaction_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction_id").WithDetails(map[string]any{"field": "transaction_id"})
		}
		filters.TransactionID = &id
	}
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status := enums.OrderStatus(strings.ToUpper(raw))
		if !status.IsValid() {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "invalid status").WithDetails(map[string]any{"field": "status"})
		}
		filters.Status = &status
	}
	return filters, nil
}

type createOrderRequest struct {
	CustomerID      uuid.UUID       `json:"customer_id" validate:"required"`
	TransactionID   *uuid.UUID      `json:"transaction_id,omitempty"`
	LineItems       json.RawMessage `json:"line_items" validate:"required"`
	Department      string          `json:"department" validate:"max=80"`
	City            string          `json:"city" validate:"max=80"`
	ShippingAddress string          `json:"shipping_address" validate:"max=255"`
	Notes           *string         `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type customerResponse struct {
	ID                 uuid.UUID `json:"id"`
	Identification     string    `json:"identification"`
	IdentificationType string    `json:"identification_type"`
	FullName           string    `json:"full_name"`
	Email              *string   `json:"email,omitempty"`
	Phone              *string   `json:"phone,omitempty"`
}

type orderResponse struct {
	ID               uuid.UUID         `json:"id"`
	CustomerID       uuid.UUID         `json:"customer_id"`
	TransactionID    *uuid.UUID        `json:"transaction_id,omitempty"`
	Status           enums.OrderStatus `json:"status"`
	LineItems        json.RawMessage   `json:"line_items"`
	Department       string            `json:"department,omitempty"`
	City             string            `json:"city,omitempty"`
	ShippingAddress  string            `json:"shipping_address,omitempty"`
	Notes            *string           `json:"notes,omitempty"`
	NotificationSent bool              `json:"notification_sent"`
	Customer         *customerResponse `json:"customer,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

type listResponse struct {
	Orders []orderResponse `json:"orders"`
	Page   pagination.Page `json:"page"`
}

func newOrderResponse(order *models.Order) orderResponse {
	resp := orderResponse{
		ID:               order.ID,
		CustomerID:       order.CustomerID,
		TransactionID:    order.TransactionID,
		Status:           order.Status,
		LineItems:        order.LineItems,
		Department:       order.Department,
		City:             order.City,
		ShippingAddress:  order.ShippingAddress,
		Notes:            order.Notes,
		NotificationSent: order.NotificationSent,
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}
	if c := order.Customer; c != nil {
		resp.Customer = &customerResponse{
			ID:                 c.ID,
			Identification:     c.Identification,
			IdentificationType: c.IdentificationType,
			FullName:           c.FullName,
			Email:              c.Email,
			Phone:              c.Phone,
		}
	}
	return resp
}
