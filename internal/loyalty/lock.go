package loyalty

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/hani/internal/database"
)

// lockForUpdate applies a row-level lock where the dialect supports it.
// SQLite serializes writers itself and rejects FOR UPDATE.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if database.IsSQLite(tx) {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
