package loyalty

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/hani/internal/database"
	"github.com/example/hani/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:loyalty_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := database.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func newTestService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	return NewService(db, "test-qr-secret", 24*time.Hour, nil)
}

var testSeq int64

func createTestUser(t *testing.T, db *gorm.DB, role string) *models.User {
	t.Helper()
	testSeq++
	user := models.User{
		FirstName:  "Test",
		Phone:      fmt.Sprintf("+213%09d", testSeq),
		Role:       role,
		Seq:        testSeq,
		RegionCode: "01",
		IsActive:   true,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &user
}

func createTestStore(t *testing.T, db *gorm.DB, ownerID uuid.UUID, approved bool) *models.Store {
	t.Helper()
	store := models.Store{
		OwnerID:    ownerID,
		Name:       "Test Store",
		IsApproved: approved,
		IsActive:   true,
	}
	if err := db.Create(&store).Error; err != nil {
		t.Fatalf("create store: %v", err)
	}
	return &store
}

func createTestOffer(t *testing.T, db *gorm.DB, storeID uuid.UUID, mutate func(*models.Offer)) *models.Offer {
	t.Helper()
	offer := models.Offer{
		StoreID:         storeID,
		Title:           "Ten percent off",
		DiscountType:    models.DiscountPercentage,
		DiscountValue:   10,
		MinimumPurchase: 0,
		ValidFrom:       time.Now().Add(-time.Hour),
		ValidUntil:      time.Now().Add(24 * time.Hour),
		MaxUsagePerUser: 1,
		IsActive:        true,
	}
	if mutate != nil {
		mutate(&offer)
	}
	if err := db.Create(&offer).Error; err != nil {
		t.Fatalf("create offer: %v", err)
	}
	return &offer
}

func intPtr(v int) *int { return &v }
