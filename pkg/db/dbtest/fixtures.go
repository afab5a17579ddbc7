package dbtest

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/vitora-backend/pkg/db"
	"github.com/angelmondragon/vitora-backend/pkg/db/models"
	"github.com/angelmondragon/vitora-backend/pkg/enums"
)

// Fixture is a customer, transaction and order created as one checkout.
type Fixture struct {
	Customer    models.Customer
	Transaction models.Transaction
	Order       models.Order
}

// FixtureOptions tunes SeedCheckout. Zero values pick sensible defaults.
type FixtureOptions struct {
	Reference   int64
	Amount      decimal.Decimal
	TxStatus    enums.TransactionStatus
	OrderStatus enums.OrderStatus
	Gateway     enums.Gateway
	Email       string
}

// SeedCheckout inserts a linked customer, transaction (with a current status
// event) and order.
func SeedCheckout(t testing.TB, client *db.Client, opts FixtureOptions) Fixture {
	t.Helper()

	if opts.Reference == 0 {
		opts.Reference = 100001
	}
	if opts.Amount.IsZero() {
		opts.Amount = decimal.NewFromInt(150000)
	}
	if opts.TxStatus == "" {
		opts.TxStatus = enums.TransactionStatusInProcess
	}
	if opts.OrderStatus == "" {
		opts.OrderStatus = enums.OrderStatusPaymentPending
	}
	if opts.Gateway == "" {
		opts.Gateway = enums.GatewayWompi
	}

	var fx Fixture
	err := client.DB().Transaction(func(tx *gorm.DB) error {
		fx.Customer = models.Customer{
			Identification:     uuid.NewString()[:10],
			IdentificationType: "CC",
			FullName:           "Laura Gómez",
		}
		if opts.Email != "" {
			email := opts.Email
			fx.Customer.Email = &email
		}
		if err := tx.Create(&fx.Customer).Error; err != nil {
			return err
		}

		fx.Transaction = models.Transaction{
			Reference: opts.Reference,
			Gateway:   opts.Gateway,
			Amount:    opts.Amount,
			Currency:  "COP",
		}
		if err := tx.Omit("CurrentStatus").Create(&fx.Transaction).Error; err != nil {
			return err
		}

		event := models.TransactionStatusEvent{
			TransactionID: fx.Transaction.ID,
			Status:        opts.TxStatus,
			Source:        enums.StatusSourceCheckout,
		}
		if err := tx.Create(&event).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Transaction{}).
			Where("id = ?", fx.Transaction.ID).
			Update("current_status_id", event.ID).Error; err != nil {
			return err
		}
		fx.Transaction.CurrentStatusID = &event.ID
		fx.Transaction.CurrentStatus = &event

		txID := fx.Transaction.ID
		fx.Order = models.Order{
			CustomerID:      fx.Customer.ID,
			TransactionID:   &txID,
			LineItems:       json.RawMessage(`[{"nombre":"Colágeno Hidrolizado","cantidad":2,"precio_unitario":75000}]`),
			Status:          opts.OrderStatus,
			Department:      "Antioquia",
			City:            "Medellín",
			ShippingAddress: "Calle 10 # 43-12",
		}
		return tx.Omit("Customer").Create(&fx.Order).Error
	})
	if err != nil {
		t.Fatalf("seed checkout: %v", err)
	}
	return fx
}
