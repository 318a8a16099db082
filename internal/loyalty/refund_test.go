package loyalty

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/hani/internal/models"
)

func TestRefundReversesCardBalances(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(t, db)
	owner := createTestUser(t, db, "store")
	store := createTestStore(t, db, owner.ID, true)
	user := createTestUser(t, db, "client")
	offer := createTestOffer(t, db, store.ID, func(o *models.Offer) { o.MinimumPurchase = 50 })

	if _, err := svc.EnsureCard(context.Background(), user.ID); err != nil {
		t.Fatalf("EnsureCard: %v", err)
	}

	purchase, err := svc.RecordPurchase(context.Background(), RecordPurchaseInput{
		UserID:         user.ID,
		StoreID:        store.ID,
		OfferID:        &offer.ID,
		Amount:         100,
		DiscountAmount: 10,
	})
	if err != nil {
		t.Fatalf("RecordPurchase: %v", err)
	}

	refund, updated, err := svc.Refund(context.Background(), purchase.ID, models.RefundMethodLoyaltyPoints)
	if err != nil {
		t.Fatalf("Refund: %v", err)
	}

	if updated.Status != models.PurchaseRefunded {
		t.Errorf("purchase status = %s, want refunded", updated.Status)
	}
	if refund.PointsReversed != purchase.PointsEarned {
		t.Errorf("points reversed = %d, want %d", refund.PointsReversed, purchase.PointsEarned)
	}
	if refund.Amount != purchase.FinalAmount {
		t.Errorf("amount reversed = %v, want %v", refund.Amount, purchase.FinalAmount)
	}

	var card models.LoyaltyCard
	if err := db.First(&card, "user_id = ?", user.ID).Error; err != nil {
		t.Fatalf("load card: %v", err)
	}
	if card.Points != 0 {
		t.Errorf("card points = %d, want 0 after reversal", card.Points)
	}
	if card.TotalSpent != 0 {
		t.Errorf("card total_spent = %v, want 0 after reversal", card.TotalSpent)
	}

	// Usage is historical, not inventory: the offer keeps its count.
	var after models.Offer
	if err := db.First(&after, "id = ?", offer.ID).Error; err != nil {
		t.Fatalf("load offer: %v", err)
	}
	if after.CurrentUsageCount != 1 {
		t.Errorf("offer usage = %d, want 1 after refund", after.CurrentUsageCount)
	}
}

func TestRefundTwiceFails(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(t, db)
	owner := createTestUser(t, db, "store")
	store := createTestStore(t, db, owner.ID, true)
	user := createTestUser(t, db, "client")

	if _, err := svc.EnsureCard(context.Background(), user.ID); err != nil {
		t.Fatalf("EnsureCard: %v", err)
	}
	purchase, err := svc.RecordPurchase(context.Background(), RecordPurchaseInput{
		UserID: user.ID, StoreID: store.ID, Amount: 100,
	})
	if err != nil {
		t.Fatalf("RecordPurchase: %v", err)
	}

	if _, _, err := svc.Refund(context.Background(), purchase.ID, models.RefundMethodLoyaltyPoints); err != nil {
		t.Fatalf("first refund: %v", err)
	}

	if _, _, err := svc.Refund(context.Background(), purchase.ID, models.RefundMethodLoyaltyPoints); !errors.Is(err, ErrNotRefundable) {
		t.Fatalf("expected ErrNotRefundable on second refund, got %v", err)
	}

	// The card must reflect exactly one reversal.
	var card models.LoyaltyCard
	if err := db.First(&card, "user_id = ?", user.ID).Error; err != nil {
		t.Fatalf("load card: %v", err)
	}
	if card.Points != 0 || card.TotalSpent != 0 {
		t.Fatalf("card not at zero after single reversal: points=%d spent=%v", card.Points, card.TotalSpent)
	}
}

func TestRefundFloorsAtZero(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(t, db)
	owner := createTestUser(t, db, "store")
	store := createTestStore(t, db, owner.ID, true)
	user := createTestUser(t, db, "client")

	card, err := svc.EnsureCard(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("EnsureCard: %v", err)
	}

	purchase, err := svc.RecordPurchase(context.Background(), RecordPurchaseInput{
		UserID: user.ID, StoreID: store.ID, Amount: 100,
	})
	if err != nil {
		t.Fatalf("RecordPurchase: %v", err)
	}

	// Simulate an earlier partial reversal leaving less on the card than
	// the purchase earned.
	if err := db.Model(&models.LoyaltyCard{}).
		Where("id = ?", card.ID).
		Updates(map[string]any{"points": 30, "total_spent": 20.0}).Error; err != nil {
		t.Fatalf("seed balances: %v", err)
	}

	refund, _, err := svc.Refund(context.Background(), purchase.ID, models.RefundMethodLoyaltyPoints)
	if err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if refund.PointsReversed != 30 {
		t.Errorf("points reversed = %d, want 30 (capped)", refund.PointsReversed)
	}
	if refund.Amount != 20 {
		t.Errorf("amount reversed = %v, want 20 (capped)", refund.Amount)
	}

	var after models.LoyaltyCard
	if err := db.First(&after, "id = ?", card.ID).Error; err != nil {
		t.Fatalf("load card: %v", err)
	}
	if after.Points != 0 || after.TotalSpent != 0 {
		t.Fatalf("balances went negative or stayed: points=%d spent=%v", after.Points, after.TotalSpent)
	}
}

func TestRefundOtherMethodsLeaveBalances(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(t, db)
	owner := createTestUser(t, db, "store")
	store := createTestStore(t, db, owner.ID, true)
	user := createTestUser(t, db, "client")

	if _, err := svc.EnsureCard(context.Background(), user.ID); err != nil {
		t.Fatalf("EnsureCard: %v", err)
	}
	purchase, err := svc.RecordPurchase(context.Background(), RecordPurchaseInput{
		UserID: user.ID, StoreID: store.ID, Amount: 100,
	})
	if err != nil {
		t.Fatalf("RecordPurchase: %v", err)
	}

	_, updated, err := svc.Refund(context.Background(), purchase.ID, models.RefundMethodOriginalPayment)
	if err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if updated.Status != models.PurchaseRefunded {
		t.Fatalf("status = %s, want refunded", updated.Status)
	}

	var card models.LoyaltyCard
	if err := db.First(&card, "user_id = ?", user.ID).Error; err != nil {
		t.Fatalf("load card: %v", err)
	}
	if card.Points != 100 || card.TotalSpent != 100 {
		t.Fatalf("original_payment refund touched balances: points=%d spent=%v", card.Points, card.TotalSpent)
	}
}

func TestRefundUnknownPurchaseOrMethod(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(t, db)
	user := createTestUser(t, db, "client")

	if _, _, err := svc.Refund(context.Background(), user.ID, models.RefundMethodLoyaltyPoints); !errors.Is(err, ErrNotRefundable) {
		t.Fatalf("expected ErrNotRefundable for unknown purchase, got %v", err)
	}
	if _, _, err := svc.Refund(context.Background(), user.ID, "cash_under_the_table"); !errors.Is(err, ErrNotRefundable) {
		t.Fatalf("expected ErrNotRefundable for unknown method, got %v", err)
	}
}

type captureNotifier struct {
	ch chan RefundNotification
}

func (n *captureNotifier) NotifyRefund(notification RefundNotification) error {
	n.ch <- notification
	return nil
}

func TestRefundNotifiesAfterCommit(t *testing.T) {
	db := openTestDB(t)
	notifier := &captureNotifier{ch: make(chan RefundNotification, 1)}
	svc := NewService(db, "test-qr-secret", 24*time.Hour, notifier)
	owner := createTestUser(t, db, "store")
	store := createTestStore(t, db, owner.ID, true)
	user := createTestUser(t, db, "client")

	if _, err := svc.EnsureCard(context.Background(), user.ID); err != nil {
		t.Fatalf("EnsureCard: %v", err)
	}
	purchase, err := svc.RecordPurchase(context.Background(), RecordPurchaseInput{
		UserID: user.ID, StoreID: store.ID, Amount: 100,
	})
	if err != nil {
		t.Fatalf("RecordPurchase: %v", err)
	}

	if _, _, err := svc.Refund(context.Background(), purchase.ID, models.RefundMethodLoyaltyPoints); err != nil {
		t.Fatalf("Refund: %v", err)
	}

	select {
	case n := <-notifier.ch:
		if n.TransactionNumber != purchase.TransactionNumber {
			t.Fatalf("notified wrong transaction: %s", n.TransactionNumber)
		}
		if n.PointsReversed != purchase.PointsEarned {
			t.Fatalf("notified wrong points: %d", n.PointsReversed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("refund notification never dispatched")
	}
}
