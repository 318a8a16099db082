package models

import (
	"time"

	"github.com/google/uuid"
)

// Discount types supported by offers.
const (
	DiscountPercentage   = "percentage"
	DiscountFixedAmount  = "fixed_amount"
	DiscountFreeShipping = "free_shipping"
)

// Offer is a merchant-defined, time-boxed discount scoped to one store.
//
// CurrentUsageCount only increases, and only via the atomic conditional
// update in the purchase ledger; when TotalUsageLimit is set the count
// never exceeds it.
type Offer struct {
	BaseModel
	StoreID           uuid.UUID `gorm:"type:uuid;index" json:"store_id"`
	Title             string    `json:"title"`
	DiscountType      string    `json:"discount_type"`
	DiscountValue     float64   `json:"discount_value"`
	MinimumPurchase   float64   `json:"minimum_purchase"`
	ValidFrom         time.Time `json:"valid_from"`
	ValidUntil        time.Time `json:"valid_until"`
	MaxUsagePerUser   int       `gorm:"default:1" json:"max_usage_per_user"`
	TotalUsageLimit   *int      `json:"total_usage_limit"`
	CurrentUsageCount int       `json:"current_usage_count"`
	IsActive          bool      `gorm:"default:true" json:"is_active"`
}
