package customers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vitora-backend/pkg/db"
	"github.com/angelmondragon/vitora-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/vitora-backend/pkg/errors"
)

const (
	uniqueIdentification = "ux_customers_identification"
	insertSavepoint      = "customer_insert"
)

// Input identifies a buyer and carries the contact data captured at checkout.
type Input struct {
	Identification     string
	IdentificationType string
	FullName           string
	Email              *string
	Phone              *string
}

// Service resolves customers by their identification document.
type Service struct {
	repo *Repository
}

func NewService(repo *Repository) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("customers repository required")
	}
	return &Service{repo: repo}, nil
}

// FindOrCreate returns the customer for (identification, type), creating it
// when absent. When tx is set the work joins that transaction; a concurrent
// insert of the same identification is resolved by re-reading the winner.
func (s *Service) FindOrCreate(ctx context.Context, tx *gorm.DB, in Input) (*models.Customer, error) {
	in.Identification = strings.TrimSpace(in.Identification)
	in.IdentificationType = strings.ToUpper(strings.TrimSpace(in.IdentificationType))
	in.FullName = strings.TrimSpace(in.FullName)
	if in.Identification == "" || in.IdentificationType == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer identification is required")
	}

	repo := s.repo.WithTx(tx)
	existing, err := repo.FindByIdentification(ctx, in.Identification, in.IdentificationType)
	if err == nil {
		if err := repo.FillContact(ctx, existing.ID, normalizeOptional(in.Email), normalizeOptional(in.Phone)); err != nil {
			return nil, lookupFailed(err)
		}
		return existing, nil
	}
	if !db.IsNotFound(err) {
		return nil, lookupFailed(err)
	}

	if in.FullName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer full name is required")
	}
	customer := &models.Customer{
		Identification:     in.Identification,
		IdentificationType: in.IdentificationType,
		FullName:           in.FullName,
		Email:              normalizeOptional(in.Email),
		Phone:              normalizeOptional(in.Phone),
	}

	if tx != nil {
		if err := tx.SavePoint(insertSavepoint).Error; err != nil {
			return nil, lookupFailed(err)
		}
	}
	if err := repo.Create(ctx, customer); err != nil {
		if !db.IsUniqueViolation(err, uniqueIdentification) {
			return nil, lookupFailed(err)
		}
		if tx != nil {
			if err := tx.RollbackTo(insertSavepoint).Error; err != nil {
				return nil, lookupFailed(err)
			}
		}
		winner, err := repo.FindByIdentification(ctx, in.Identification, in.IdentificationType)
		if err != nil {
			return nil, lookupFailed(err)
		}
		return winner, nil
	}
	return customer, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load customer")
	}
	return customer, nil
}

func lookupFailed(err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "customer lookup failed")
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
