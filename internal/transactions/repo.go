package transactions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/vitora-backend/internal/repo"
	"github.com/angelmondragon/vitora-backend/pkg/db/models"
	"github.com/angelmondragon/vitora-backend/pkg/enums"
)

// Repository persists transactions and their append-only status history.
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

func (r *Repository) Create(ctx context.Context, txn *models.Transaction) error {
	return r.base.DB(ctx).Omit(clause.Associations).Create(txn).Error
}

// MaxReference returns the highest allocated reference, or zero when none exist.
func (r *Repository) MaxReference(ctx context.Context) (int64, error) {
	var highest *int64
	err := r.base.DB(ctx).
		Model(&models.Transaction{}).
		Select("MAX(reference)").
		Scan(&highest).Error
	if err != nil || highest == nil {
		return 0, err
	}
	return *highest, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.base.DB(ctx).
		Preload("CurrentStatus").
		Where("id = ?", id).
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *Repository) FindByReference(ctx context.Context, reference int64) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.base.DB(ctx).
		Preload("CurrentStatus").
		Where("reference = ?", reference).
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// FindByReferenceForUpdate loads the transaction and holds its row lock until
// the surrounding database transaction ends.
func (r *Repository) FindByReferenceForUpdate(ctx context.Context, reference int64) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.base.DB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("reference = ?", reference).
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	if txn.CurrentStatusID != nil {
		var current models.TransactionStatusEvent
		if err := r.base.DB(ctx).Where("id = ?", *txn.CurrentStatusID).First(&current).Error; err != nil {
			return nil, err
		}
		txn.CurrentStatus = &current
	}
	return &txn, nil
}

// AppendStatusEvent adds one immutable history row.
func (r *Repository) AppendStatusEvent(ctx context.Context, event *models.TransactionStatusEvent) error {
	return r.base.DB(ctx).Create(event).Error
}

// SetCurrentStatus moves the current-status pointer to eventID.
func (r *Repository) SetCurrentStatus(ctx context.Context, transactionID, eventID uuid.UUID) error {
	return r.base.DB(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", transactionID).
		Updates(map[string]any{
			"current_status_id": eventID,
			"updated_at":        time.Now().UTC(),
		}).Error
}

// SetGatewayTransactionID records the gateway-assigned id. Once set it is
// never overwritten; the returned flag reports whether this call stored it.
func (r *Repository) SetGatewayTransactionID(ctx context.Context, transactionID uuid.UUID, gatewayID string) (bool, error) {
	if gatewayID == "" {
		return false, nil
	}
	res := r.base.DB(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND gateway_transaction_id IS NULL", transactionID).
		Updates(map[string]any{
			"gateway_transaction_id": gatewayID,
			"updated_at":             time.Now().UTC(),
		})
	return res.RowsAffected > 0, res.Error
}

// ListStatusEvents returns the history of a transaction, newest first.
func (r *Repository) ListStatusEvents(ctx context.Context, transactionID uuid.UUID) ([]models.TransactionStatusEvent, error) {
	var events []models.TransactionStatusEvent
	err := r.base.DB(ctx).
		Where("transaction_id = ?", transactionID).
		Order("observed_at DESC").
		Order("id DESC").
		Find(&events).Error
	return events, err
}

// ListStale returns transactions still IN_PROCESS that were created inside
// the [notBefore, olderThan) window, oldest first. An empty gateway matches
// every gateway.
func (r *Repository) ListStale(ctx context.Context, gateway enums.Gateway, olderThan, notBefore time.Time, limit int) ([]models.Transaction, error) {
	var txns []models.Transaction
	query := r.base.DB(ctx).
		Select("transactions.*").
		Preload("CurrentStatus").
		Joins("LEFT JOIN transaction_status_events cs ON cs.id = transactions.current_status_id").
		Where("(cs.status = ? OR transactions.current_status_id IS NULL)", enums.TransactionStatusInProcess).
		Where("transactions.created_at < ?", olderThan)
	if !notBefore.IsZero() {
		query = query.Where("transactions.created_at >= ?", notBefore)
	}
	if gateway != "" {
		query = query.Where("transactions.gateway = ?", gateway)
	}
	err := query.
		Order("transactions.created_at ASC").
		Limit(limit).
		Find(&txns).Error
	return txns, err
}
