package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vitora-backend/pkg/enums"
)

// TransactionStatusEvent is an append-only observation of a transaction status.
type TransactionStatusEvent struct {
	ID                  uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	TransactionID       uuid.UUID               `gorm:"column:transaction_id;type:uuid;not null;index:ix_transaction_status_events_tx"`
	Status              enums.TransactionStatus `gorm:"column:status;type:text;not null"`
	Source              enums.StatusSource      `gorm:"column:source;type:text;not null"`
	ObservedAt          time.Time               `gorm:"column:observed_at;not null"`
	RawPayload          json.RawMessage         `gorm:"column:raw_payload;type:jsonb"`
	ReportedAmountCents *int64                  `gorm:"column:reported_amount_cents"`
}

func (e *TransactionStatusEvent) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	if e.ObservedAt.IsZero() {
		e.ObservedAt = time.Now().UTC()
	}
	return nil
}
