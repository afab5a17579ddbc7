package customers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vitora-backend/internal/repo"
	"github.com/angelmondragon/vitora-backend/pkg/db/models"
)

// Repository persists customers.
type Repository struct {
	base repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{base: r.base.Bind(tx)}
}

func (r *Repository) Create(ctx context.Context, customer *models.Customer) error {
	return r.base.DB(ctx).Create(customer).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.base.DB(ctx).Where("id = ?", id).First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *Repository) FindByIdentification(ctx context.Context, identification, identificationType string) (*models.Customer, error) {
	var customer models.Customer
	err := r.base.DB(ctx).
		Where("identification = ? AND identification_type = ?", identification, identificationType).
		First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// FillContact sets email and phone only where they are still empty.
func (r *Repository) FillContact(ctx context.Context, id uuid.UUID, email, phone *string) error {
	for column, value := range map[string]*string{"email": email, "phone": phone} {
		if value == nil {
			continue
		}
		err := r.base.DB(ctx).
			Model(&models.Customer{}).
			Where("id = ? AND "+column+" IS NULL", id).
			Updates(map[string]any{column: *value, "updated_at": time.Now().UTC()}).Error
		if err != nil {
			return err
		}
	}
	return nil
}
