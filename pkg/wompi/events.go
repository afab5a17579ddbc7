package wompi

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const EventTransactionUpdated = "transaction.updated"

// Gateway-side transaction statuses.
const (
	StatusApproved = "APPROVED"
	StatusDeclined = "DECLINED"
	StatusVoided   = "VOIDED"
	StatusError    = "ERROR"
	StatusPending  = "PENDING"
)

// Event is the envelope delivered to the webhook receiver.
type Event struct {
	Event       string          `json:"event"`
	Data        json.RawMessage `json:"data"`
	Environment string          `json:"environment,omitempty"`
	Signature   EventSignature  `json:"signature"`
	Timestamp   json.RawMessage `json:"timestamp"`
	SentAt      string          `json:"sent_at,omitempty"`
}

type EventSignature struct {
	Properties []string `json:"properties"`
	Checksum   string   `json:"checksum"`
}

// Transaction is the gateway's view of a payment attempt.
type Transaction struct {
	ID                string `json:"id"`
	Reference         string `json:"reference"`
	Status            string `json:"status"`
	StatusMessage     string `json:"status_message,omitempty"`
	AmountInCents     int64  `json:"amount_in_cents"`
	Currency          string `json:"currency,omitempty"`
	PaymentMethodType string `json:"payment_method_type,omitempty"`
	CreatedAt         string `json:"created_at,omitempty"`
	FinalizedAt       string `json:"finalized_at,omitempty"`
}

// TransactionData decodes the transaction carried by a transaction.updated event.
func (e Event) TransactionData() (*Transaction, error) {
	var data struct {
		Transaction *Transaction `json:"transaction"`
	}
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return nil, fmt.Errorf("decode event data: %w", err)
	}
	if data.Transaction == nil {
		return nil, fmt.Errorf("event data has no transaction")
	}
	return data.Transaction, nil
}

// timestampString returns the event timestamp exactly as it participates in
// the checksum.
func (e Event) timestampString() (string, error) {
	raw := strings.TrimSpace(string(e.Timestamp))
	if raw == "" || raw == "null" {
		return "", fmt.Errorf("event timestamp is missing")
	}
	if strings.HasPrefix(raw, `"`) {
		unquoted, err := strconv.Unquote(raw)
		if err != nil {
			return "", fmt.Errorf("event timestamp: %w", err)
		}
		return unquoted, nil
	}
	return raw, nil
}

// TimestampValue returns the event timestamp as delivered.
func (e Event) TimestampValue() string {
	ts, _ := e.timestampString()
	return ts
}
