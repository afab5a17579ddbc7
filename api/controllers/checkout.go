package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vitora-backend/api/responses"
	"github.com/angelmondragon/vitora-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/vitora-backend/internal/checkout"
	pkgerrors "github.com/angelmondragon/vitora-backend/pkg/errors"
	"github.com/angelmondragon/vitora-backend/pkg/logger"
)

type CheckoutCreator interface {
	CreateIntent(ctx context.Context, input checkoutsvc.CheckoutInput) (*checkoutsvc.CheckoutIntent, error)
}

// Checkout stores a storefront checkout and returns where to send the buyer.
func Checkout(svc CheckoutCreator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		intent, err := svc.CreateIntent(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, intent)
	}
}

type checkoutRequest struct {
	Customer  checkoutCustomer `json:"customer"`
	Amount    decimal.Decimal  `json:"amount"`
	LineItems json.RawMessage  `json:"line_items" validate:"required"`
	Shipping  checkoutShipping `json:"shipping"`
	Notes     *string          `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type checkoutCustomer struct {
	Identification     string  `json:"identification" validate:"required,max=32"`
	IdentificationType string  `json:"identification_type" validate:"required,max=8"`
	FullName           string  `json:"full_name" validate:"required,max=160"`
	Email              *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone              *string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

type checkoutShipping struct {
	Department string `json:"department" validate:"required,max=80"`
	City       string `json:"city" validate:"required,max=80"`
	Address    string `json:"address" validate:"required,max=255"`
}

func (p checkoutRequest) toInput() checkoutsvc.CheckoutInput {
	return checkoutsvc.CheckoutInput{
		Customer: checkoutsvc.CustomerInput{
			Identification:     validators.SanitizeString(p.Customer.Identification, 32),
			IdentificationType: validators.SanitizeString(p.Customer.IdentificationType, 8),
			FullName:           validators.SanitizeString(p.Customer.FullName, 160),
			Email:              p.Customer.Email,
			Phone:              p.Customer.Phone,
		},
		Amount:    p.Amount,
		LineItems: p.LineItems,
		Shipping: checkoutsvc.ShippingInput{
			Department: validators.SanitizeString(p.Shipping.Department, 80),
			City:       validators.SanitizeString(p.Shipping.City, 80),
			Address:    validators.SanitizeString(p.Shipping.Address, 255),
		},
		Notes: p.Notes,
	}
}
