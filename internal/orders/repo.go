package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/vitora-backend/internal/repo"
	"github.com/angelmondragon/vitora-backend/pkg/db/models"
	"github.com/angelmondragon/vitora-backend/pkg/enums"
	"github.com/angelmondragon/vitora-backend/pkg/pagination"
)

// Filters narrows order listings. Nil fields are ignored.
type Filters struct {
	CustomerID    *uuid.UUID
	TransactionID *uuid.UUID
	Status        *enums.OrderStatus
}

// Repository persists orders.
type Repository struct {
	base repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

// WithTx returns a repository whose queries run on tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{base: r.base.Bind(tx)}
}

func (r *Repository) Create(ctx context.Context, order *models.Order) error {
	return r.base.DB(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.base.DB(ctx).
		Preload("Customer").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByTransaction loads the order linked to a transaction without locking it.
func (r *Repository) FindByTransaction(ctx context.Context, transactionID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.base.DB(ctx).
		Where("transaction_id = ?", transactionID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByTransactionForUpdate loads the order linked to a transaction and
// holds its row lock for the rest of the surrounding transaction.
func (r *Repository) FindByTransactionForUpdate(ctx context.Context, transactionID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.base.DB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("transaction_id = ?", transactionID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error {
	return r.base.DB(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}).Error
}

// UpdateStatusFrom moves the order to next only while it is still in from.
// It reports whether the row changed.
func (r *Repository) UpdateStatusFrom(ctx context.Context, id uuid.UUID, from, next enums.OrderStatus) (bool, error) {
	res := r.base.DB(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":     next,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected > 0, res.Error
}

// MarkNotificationSent flips the flag if it is still false. Only the caller
// that observes true may consider the notification recorded.
func (r *Repository) MarkNotificationSent(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.base.DB(ctx).
		Model(&models.Order{}).
		Where("id = ? AND notification_sent = ?", id, false).
		Updates(map[string]any{
			"notification_sent": true,
			"updated_at":        time.Now().UTC(),
		})
	return res.RowsAffected > 0, res.Error
}

// FindPendingNotification returns PAID orders whose confirmation has not
// been recorded, oldest first.
func (r *Repository) FindPendingNotification(ctx context.Context, limit int) ([]models.Order, error) {
	var rows []models.Order
	err := r.base.DB(ctx).
		Where("status = ? AND notification_sent = ?", enums.OrderStatusPaid, false).
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// List returns one page of orders, newest first, plus the total match count.
func (r *Repository) List(ctx context.Context, filters Filters, params pagination.Params) ([]models.Order, int64, error) {
	params = params.Normalize()
	scoped := func() *gorm.DB {
		query := r.base.DB(ctx).Model(&models.Order{})
		if filters.CustomerID != nil {
			query = query.Where("customer_id = ?", *filters.CustomerID)
		}
		if filters.TransactionID != nil {
			query = query.Where("transaction_id = ?", *filters.TransactionID)
		}
		if filters.Status != nil {
			query = query.Where("status = ?", *filters.Status)
		}
		return query
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Order
	err := scoped().
		Order("created_at DESC").
		Order("id DESC").
		Limit(params.Limit).
		Offset(params.Offset).
		Find(&rows).Error
	return rows, total, err
}
