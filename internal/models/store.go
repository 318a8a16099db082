package models

import "github.com/google/uuid"

// Store is a merchant business that publishes offers and accepts scans.
// Purchases are refused until an admin flips IsApproved.
type Store struct {
	BaseModel
	OwnerID      uuid.UUID `gorm:"type:uuid;index" json:"owner_id"`
	Name         string    `json:"name"`
	BusinessType string    `json:"business_type"`
	Phone        string    `json:"phone"`
	IsApproved   bool      `gorm:"default:false" json:"is_approved"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	Branches     []Branch  `json:"branches,omitempty"`
}

// Branch is a physical location of a store.
type Branch struct {
	BaseModel
	StoreID     uuid.UUID `gorm:"type:uuid;index" json:"store_id"`
	Name        string    `json:"name"`
	AddressLine string    `json:"address_line"`
	City        string    `json:"city"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
}
