package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ServiceOfferingRepository is the read-only add-on price lookup.
type ServiceOfferingRepository interface {
	FindActiveByID(ctx context.Context, id uuid.UUID) (*model.ServiceOffering, error)
}

type serviceOfferingRepository struct {
	db *gorm.DB
}

func NewServiceOfferingRepository(db *gorm.DB) ServiceOfferingRepository {
	return &serviceOfferingRepository{db: db}
}

func (r *serviceOfferingRepository) FindActiveByID(ctx context.Context, id uuid.UUID) (*model.ServiceOffering, error) {
	var offering model.ServiceOffering
	if err := GetDB(ctx, r.db).First(&offering, "id = ? AND active = ?", id, true).Error; err != nil {
		return nil, err
	}
	return &offering, nil
}
