package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/vitora-backend/pkg/enums"
)

// Transaction is one payment attempt correlated with the gateway by Reference.
type Transaction struct {
	ID                   uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Reference            int64           `gorm:"column:reference;not null;uniqueIndex:ux_transactions_reference"`
	Gateway              enums.Gateway   `gorm:"column:gateway;type:text;not null"`
	GatewayTransactionID *string         `gorm:"column:gateway_transaction_id"`
	Amount               decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency             string          `gorm:"column:currency;not null;default:COP"`
	CurrentStatusID      *uuid.UUID      `gorm:"column:current_status_id;type:uuid"`
	CreatedAt            time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time       `gorm:"column:updated_at;autoUpdateTime"`

	CurrentStatus *TransactionStatusEvent `gorm:"foreignKey:CurrentStatusID;references:ID"`
}

func (t *Transaction) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// AmountInCents converts the stored amount to gateway minor units.
func (t Transaction) AmountInCents() int64 {
	return ToMinorUnits(t.Amount)
}

// Status returns the current status, or IN_PROCESS when none is recorded.
func (t Transaction) Status() enums.TransactionStatus {
	if t.CurrentStatus == nil {
		return enums.TransactionStatusInProcess
	}
	return t.CurrentStatus.Status
}

// ToMinorUnits converts a major-unit amount into whole cents.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// FromMinorUnits converts cents back into a major-unit amount.
func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
