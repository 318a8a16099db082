package models

import (
	"time"

	"github.com/google/uuid"
)

// Purchase statuses.
const (
	PurchasePending   = "pending"
	PurchaseCompleted = "completed"
	PurchaseRefunded  = "refunded"
	PurchaseCancelled = "cancelled"
)

// Refund methods.
const (
	RefundMethodLoyaltyPoints   = "loyalty_points"
	RefundMethodStoreCredit     = "store_credit"
	RefundMethodOriginalPayment = "original_payment"
)

// Purchase is an immutable ledger entry for one redemption. It is created
// in completed state together with the card mutation it implies, in one
// transaction; the only later transition is completed -> refunded.
type Purchase struct {
	BaseModel
	UserID            uuid.UUID  `gorm:"type:uuid;index" json:"user_id"`
	StoreID           uuid.UUID  `gorm:"type:uuid;index" json:"store_id"`
	BranchID          *uuid.UUID `gorm:"type:uuid" json:"branch_id"`
	OfferID           *uuid.UUID `gorm:"type:uuid;index" json:"offer_id"`
	TransactionNumber string     `gorm:"uniqueIndex" json:"transaction_number"`
	// IdempotencyKey is supplied by the scanning terminal so a retried scan
	// maps back to the purchase already recorded for it.
	IdempotencyKey *string   `gorm:"uniqueIndex" json:"idempotency_key"`
	Amount         float64   `json:"amount"`
	DiscountAmount float64   `json:"discount_amount"`
	FinalAmount    float64   `json:"final_amount"`
	PointsEarned   int64     `json:"points_earned"`
	Status         string    `gorm:"index" json:"status"`
	PurchaseDate   time.Time `json:"purchase_date"`
}

// Refund records the reversal of exactly one purchase.
type Refund struct {
	BaseModel
	PurchaseID     uuid.UUID  `gorm:"type:uuid;uniqueIndex" json:"purchase_id"`
	UserID         uuid.UUID  `gorm:"type:uuid;index" json:"user_id"`
	StoreID        uuid.UUID  `gorm:"type:uuid;index" json:"store_id"`
	OfferID        *uuid.UUID `gorm:"type:uuid" json:"offer_id"`
	Amount         float64    `json:"amount"`
	PointsReversed int64      `json:"points_reversed"`
	Status         string     `json:"status"`
	RefundMethod   string     `json:"refund_method"`
}
