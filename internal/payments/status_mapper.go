package payments

import (
	"strings"

	"github.com/angelmondragon/vitora-backend/pkg/enums"
)

// MapTransactionStatus translates a gateway status string into the
// transaction vocabulary. Unknown values stay IN_PROCESS.
func MapTransactionStatus(raw string) enums.TransactionStatus {
	switch normalizeGatewayStatus(raw) {
	case "APPROVED":
		return enums.TransactionStatusApproved
	case "DECLINED", "ERROR":
		return enums.TransactionStatusDeclined
	case "VOIDED", "ANNULLED":
		return enums.TransactionStatusVoided
	default:
		return enums.TransactionStatusInProcess
	}
}

// MapOrderStatus translates a gateway status string into the order status it
// implies. Unknown values leave the order waiting for payment.
func MapOrderStatus(raw string) enums.OrderStatus {
	switch normalizeGatewayStatus(raw) {
	case "APPROVED":
		return enums.OrderStatusPaid
	case "DECLINED", "ERROR", "VOIDED", "ANNULLED":
		return enums.OrderStatusCancelled
	default:
		return enums.OrderStatusPaymentPending
	}
}

func normalizeGatewayStatus(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
