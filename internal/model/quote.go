package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuoteStatus constants
const (
	QuoteStatusDraft     = "DRAFT"
	QuoteStatusSubmitted = "SUBMITTED"
	QuoteStatusInReview  = "IN_REVIEW"
	QuoteStatusConfirmed = "CONFIRMED"
	QuoteStatusRejected  = "REJECTED"
	QuoteStatusCancelled = "CANCELLED"
)

// Quote is the aggregate root: header totals plus its owned line
// collections. Subtotal, TaxAmount and Total are derived from the line
// set and are only ever replaced together with it.
type Quote struct {
	ID          uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	QuoteNumber string             `gorm:"type:varchar(30);uniqueIndex;not null" json:"quote_number"`
	OwnerID     uuid.UUID          `gorm:"type:uuid;not null;index" json:"owner_id"`
	Owner       *User              `gorm:"foreignKey:OwnerID" json:"-"`
	Status      string             `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"status"`
	Subtotal    decimal.Decimal    `gorm:"type:decimal(14,2);not null" json:"subtotal"`
	TaxAmount   decimal.Decimal    `gorm:"type:decimal(14,2);not null;default:0" json:"tax_amount"`
	Total       decimal.Decimal    `gorm:"type:decimal(14,2);not null" json:"total"`
	Notes       string             `gorm:"type:varchar(500)" json:"notes"`
	Items       []QuoteLineItem    `gorm:"foreignKey:QuoteID;constraint:OnDelete:CASCADE" json:"items"`
	Services    []QuoteServiceLine `gorm:"foreignKey:QuoteID;constraint:OnDelete:CASCADE" json:"services"`
	SubmittedAt *time.Time         `json:"submitted_at"`
	ReviewedAt  *time.Time         `json:"reviewed_at"`
	ReviewedBy  *uuid.UUID         `gorm:"type:uuid" json:"reviewed_by"`
	Reviewer    *User              `gorm:"foreignKey:ReviewedBy" json:"-"`
	CreatedAt   time.Time          `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// QuoteLineItem is one equipment rental line. DailyRate is captured at
// calculation time, not a live reference to the tier.
type QuoteLineItem struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	QuoteID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"quote_id"`
	EquipmentID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"equipment_id"`
	EquipmentName string          `gorm:"type:varchar(255);not null" json:"equipment_name"`
	StartDate     time.Time       `gorm:"type:date;not null" json:"start_date"`
	EndDate       time.Time       `gorm:"type:date;not null" json:"end_date"`
	Duration      int             `gorm:"type:int;not null" json:"duration"` // inclusive day count
	DailyRate     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"daily_rate"`
	LineTotal     decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"line_total"`
	Position      int             `gorm:"type:int;not null;default:0" json:"position"`
}

// QuoteServiceLine is one flat-priced add-on line. UnitPrice is captured
// at calculation time.
type QuoteServiceLine struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	QuoteID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"quote_id"`
	ServiceID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"service_id"`
	ServiceName string          `gorm:"type:varchar(255);not null" json:"service_name"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Quantity    int             `gorm:"type:int;not null" json:"quantity"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"line_total"`
	Position    int             `gorm:"type:int;not null;default:0" json:"position"`
}
