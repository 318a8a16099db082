package database

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/hani/internal/models"
)

func TestMigrateCreatesSchema(t *testing.T) {
	dsn := fmt.Sprintf("file:migrate_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	// Running twice must be a no-op.
	if err := Migrate(conn); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	tables := []string{"users", "stores", "branches", "loyalty_cards", "offers", "purchases", "refunds"}
	for _, table := range tables {
		if !conn.Migrator().HasTable(table) {
			t.Errorf("table %s missing after migration", table)
		}
	}

	user := models.User{FirstName: "A", Phone: "+1", PasswordHash: "x", Role: models.RoleClient, Seq: 1, RegionCode: "01", IsActive: true}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("insert user: %v", err)
	}

	dup := models.User{FirstName: "B", Phone: "+1", PasswordHash: "x", Role: models.RoleClient, Seq: 2, RegionCode: "01", IsActive: true}
	if err := conn.Create(&dup).Error; err == nil {
		t.Fatal("duplicate phone accepted, unique index missing")
	}
}

func TestDialectName(t *testing.T) {
	dsn := fmt.Sprintf("file:dialect_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if !IsSQLite(conn) {
		t.Errorf("IsSQLite = false for sqlite connection, dialect %q", DialectName(conn))
	}
}
