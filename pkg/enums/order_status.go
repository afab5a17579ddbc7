package enums

import "fmt"

// OrderStatus tracks an order from creation through fulfillment.
type OrderStatus string

const (
	OrderStatusInitiated      OrderStatus = "INITIATED"
	OrderStatusPaymentPending OrderStatus = "PAYMENT_PENDING"
	OrderStatusPaid           OrderStatus = "PAID"
	OrderStatusInPreparation  OrderStatus = "IN_PREPARATION"
	OrderStatusShipped        OrderStatus = "SHIPPED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusInitiated,
	OrderStatusPaymentPending,
	OrderStatusPaid,
	OrderStatusInPreparation,
	OrderStatusShipped,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether payment reconciliation may no longer move the
// order. Fulfillment states count as terminal because they follow PAID.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusPaid, OrderStatusCancelled, OrderStatusInPreparation, OrderStatusShipped:
		return true
	default:
		return false
	}
}

// IsPaymentTerminal reports whether the status is one of the two payment
// outcomes an order can be reconciled into.
func (s OrderStatus) IsPaymentTerminal() bool {
	return s == OrderStatusPaid || s == OrderStatusCancelled
}

// CanFulfillTo reports whether the fulfillment path may move s to next.
func (s OrderStatus) CanFulfillTo(next OrderStatus) bool {
	switch s {
	case OrderStatusPaid:
		return next == OrderStatusInPreparation
	case OrderStatusInPreparation:
		return next == OrderStatusShipped
	default:
		return false
	}
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
