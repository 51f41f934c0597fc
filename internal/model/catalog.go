package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Equipment represents a rentable machine in the catalog
type Equipment struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Code      string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"code"`
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`
	Active    bool           `gorm:"not null;default:true" json:"active"`
	RateTiers []RateTier     `gorm:"foreignKey:EquipmentID" json:"rate_tiers,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// RateTier defines the daily rate charged for a rental duration band
// (inclusive day bounds). Tiers are maintained by catalog management;
// the quoting engine only reads them.
type RateTier struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	EquipmentID uuid.UUID       `gorm:"type:uuid;not null;index" json:"equipment_id"`
	DurationMin int             `gorm:"type:int;not null" json:"duration_min"` // days, >= 1
	DurationMax int             `gorm:"type:int;not null" json:"duration_max"` // days, inclusive
	DailyRate   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"daily_rate"`
	Active      bool            `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ServiceOffering is a flat-priced add-on (delivery, operator, insurance...)
type ServiceOffering struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string          `gorm:"type:varchar(255);not null" json:"name"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Active    bool            `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt gorm.DeletedAt  `gorm:"index" json:"-"`
}
