package models

// User roles recognized by the auth middleware.
const (
	RoleClient = "client"
	RoleStore  = "store"
)

// User represents an account holder, either a client or a store owner.
type User struct {
	BaseModel
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Phone        string `gorm:"uniqueIndex" json:"phone"`
	PasswordHash string `json:"-"`
	Role         string `gorm:"default:client" json:"role"`
	// Seq is assigned once at registration and never changes. Card numbers
	// are recomputed from it, so retries of card creation stay deterministic.
	Seq        int64  `gorm:"uniqueIndex" json:"seq"`
	RegionCode string `json:"region_code"`
	IsActive   bool   `gorm:"default:true" json:"is_active"`
}
