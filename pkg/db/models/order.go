package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vitora-backend/pkg/enums"
)

// Order is the customer's purchase; LineItems are stored verbatim.
type Order struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID       uuid.UUID         `gorm:"column:customer_id;type:uuid;not null;index"`
	TransactionID    *uuid.UUID        `gorm:"column:transaction_id;type:uuid;uniqueIndex:ux_orders_transaction"`
	LineItems        json.RawMessage   `gorm:"column:line_items;type:jsonb;not null"`
	Status           enums.OrderStatus `gorm:"column:status;type:text;not null"`
	NotificationSent bool              `gorm:"column:notification_sent;not null;default:false"`
	Department       string            `gorm:"column:department"`
	City             string            `gorm:"column:city"`
	ShippingAddress  string            `gorm:"column:shipping_address"`
	Notes            *string           `gorm:"column:notes"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`

	Customer *Customer `gorm:"foreignKey:CustomerID;references:ID"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
