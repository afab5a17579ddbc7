package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer is the buyer identified by a government identification number.
type Customer struct {
	ID                 uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Identification     string    `gorm:"column:identification;not null;uniqueIndex:ux_customers_identification,priority:1"`
	IdentificationType string    `gorm:"column:identification_type;not null;uniqueIndex:ux_customers_identification,priority:2"`
	FullName           string    `gorm:"column:full_name;not null"`
	Email              *string   `gorm:"column:email"`
	Phone              *string   `gorm:"column:phone"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Customer) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
