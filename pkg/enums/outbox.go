package enums

import "fmt"

// OutboxAggregateType names the entity an outbox event describes.
type OutboxAggregateType string

const (
	AggregateTransaction OutboxAggregateType = "transaction"
	AggregateOrder       OutboxAggregateType = "order"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateTransaction,
	AggregateOrder,
}

// IsValid reports whether the value is a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// OutboxEventType names a domain event published through the outbox.
type OutboxEventType string

const (
	EventTransactionStatusChanged OutboxEventType = "transaction.status_changed"
	EventOrderPaid                OutboxEventType = "order.paid"
	EventOrderCancelled           OutboxEventType = "order.cancelled"
)

var validOutboxEventTypes = []OutboxEventType{
	EventTransactionStatusChanged,
	EventOrderPaid,
	EventOrderCancelled,
}

// IsValid reports whether the value is a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}
