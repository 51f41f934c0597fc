package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EquipmentRepository is the read-only catalog lookup the quoting engine
// depends on. Catalog writes happen elsewhere.
type EquipmentRepository interface {
	FindActiveByID(ctx context.Context, id uuid.UUID) (*model.Equipment, error)
	FindActiveTiers(ctx context.Context, equipmentID uuid.UUID) ([]model.RateTier, error)
}

type equipmentRepository struct {
	db *gorm.DB
}

func NewEquipmentRepository(db *gorm.DB) EquipmentRepository {
	return &equipmentRepository{db: db}
}

func (r *equipmentRepository) FindActiveByID(ctx context.Context, id uuid.UUID) (*model.Equipment, error) {
	var equipment model.Equipment
	if err := GetDB(ctx, r.db).First(&equipment, "id = ? AND active = ?", id, true).Error; err != nil {
		return nil, err
	}
	return &equipment, nil
}

func (r *equipmentRepository) FindActiveTiers(ctx context.Context, equipmentID uuid.UUID) ([]model.RateTier, error) {
	var tiers []model.RateTier
	if err := GetDB(ctx, r.db).
		Where("equipment_id = ? AND active = ?", equipmentID, true).
		Order("duration_min asc").
		Find(&tiers).Error; err != nil {
		return nil, err
	}
	return tiers, nil
}
