package payloads

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/vitora-backend/pkg/enums"
)

// TransactionStatusChangedEvent is emitted whenever reconciliation appends a
// new status to a transaction's history.
type TransactionStatusChangedEvent struct {
	TransactionID  uuid.UUID               `json:"transaction_id"`
	Reference      int64                   `json:"reference"`
	Gateway        enums.Gateway           `json:"gateway"`
	PreviousStatus enums.TransactionStatus `json:"previous_status"`
	Status         enums.TransactionStatus `json:"status"`
	Source         enums.StatusSource      `json:"source"`
}

// OrderPaidEvent is emitted when an order's payment is approved.
type OrderPaidEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	CustomerID    uuid.UUID `json:"customer_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Reference     int64     `json:"reference"`
	AmountInCents int64     `json:"amount_in_cents"`
	Currency      string    `json:"currency"`
}

// OrderCancelledEvent is emitted when the gateway declines or voids payment.
type OrderCancelledEvent struct {
	OrderID       uuid.UUID               `json:"order_id"`
	TransactionID uuid.UUID               `json:"transaction_id"`
	Reference     int64                   `json:"reference"`
	Reason        enums.TransactionStatus `json:"reason"`
}
