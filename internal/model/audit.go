package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateQuote  = "CREATE_QUOTE"
	ActionUpdateQuote  = "UPDATE_QUOTE"
	ActionSubmitQuote  = "SUBMIT_QUOTE"
	ActionCancelQuote  = "CANCEL_QUOTE"
	ActionReviewQuote  = "REVIEW_QUOTE"
	ActionConfirmQuote = "CONFIRM_QUOTE"
	ActionRejectQuote  = "REJECT_QUOTE"
)

// AuditLog tracks Who, What, and When for quote lifecycle changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/quote number)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
