package models

import (
	"time"

	"github.com/google/uuid"
)

// LoyaltyCard is a client's accrual account. One card per user, created
// lazily on first loyalty access and deactivated (never deleted) with the
// owning account.
//
// Points and TotalSpent must never go negative; refunds floor at zero.
type LoyaltyCard struct {
	BaseModel
	UserID     uuid.UUID  `gorm:"type:uuid;uniqueIndex" json:"user_id"`
	CardNumber string     `gorm:"uniqueIndex" json:"card_number"`
	Points     int64      `json:"points"`
	TotalSpent float64    `json:"total_spent"`
	Visits     int        `json:"visits"`
	LastUsedAt *time.Time `json:"last_used_at"`
	IsActive   bool       `gorm:"default:true" json:"is_active"`
}
