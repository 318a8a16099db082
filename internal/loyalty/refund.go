package loyalty

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/hani/internal/models"
)

// Refund reverses the ledger effects of exactly one completed purchase.
// The refund row, the purchase status flip, and the card reversal commit
// together. Offer usage counts are historical and stay untouched.
func (s *Service) Refund(ctx context.Context, purchaseID uuid.UUID, method string) (*models.Refund, *models.Purchase, error) {
	switch method {
	case models.RefundMethodLoyaltyPoints, models.RefundMethodStoreCredit, models.RefundMethodOriginalPayment:
	default:
		return nil, nil, errf(KindNotRefundable, "unknown refund method")
	}

	var refund models.Refund
	var purchase models.Purchase
	var cardNumber string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).
			First(&purchase, "id = ?", purchaseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotRefundable
			}
			return err
		}

		if purchase.Status != models.PurchaseCompleted {
			return ErrNotRefundable
		}

		var existing int64
		if err := tx.Model(&models.Refund{}).
			Where("purchase_id = ?", purchase.ID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrNotRefundable
		}

		var card models.LoyaltyCard
		if err := lockForUpdate(tx).
			Where("user_id = ?", purchase.UserID).
			First(&card).Error; err != nil {
			return err
		}
		cardNumber = card.CardNumber

		pointsReversed := int64(0)
		amountReversed := 0.0
		if method == models.RefundMethodLoyaltyPoints {
			// Balances floor at zero, so the reversal records what was
			// actually taken back rather than the purchase's face value.
			pointsReversed = purchase.PointsEarned
			if pointsReversed > card.Points {
				pointsReversed = card.Points
			}
			amountReversed = purchase.FinalAmount
			if amountReversed > card.TotalSpent {
				amountReversed = card.TotalSpent
			}

			if err := tx.Model(&models.LoyaltyCard{}).
				Where("id = ?", card.ID).
				Updates(map[string]any{
					"points":      card.Points - pointsReversed,
					"total_spent": card.TotalSpent - amountReversed,
				}).Error; err != nil {
				return err
			}
		}

		refund = models.Refund{
			PurchaseID:     purchase.ID,
			UserID:         purchase.UserID,
			StoreID:        purchase.StoreID,
			OfferID:        purchase.OfferID,
			Amount:         amountReversed,
			PointsReversed: pointsReversed,
			Status:         models.PurchaseCompleted,
			RefundMethod:   method,
		}
		if err := tx.Create(&refund).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrNotRefundable
			}
			return err
		}

		purchase.Status = models.PurchaseRefunded
		return tx.Model(&models.Purchase{}).
			Where("id = ?", purchase.ID).
			Update("status", models.PurchaseRefunded).Error
	})
	if err != nil {
		return nil, nil, err
	}

	if s.notifier != nil {
		notification := RefundNotification{
			TransactionNumber: purchase.TransactionNumber,
			CardNumber:        cardNumber,
			Amount:            refund.Amount,
			PointsReversed:    refund.PointsReversed,
			RefundMethod:      refund.RefundMethod,
		}
		go func() {
			if err := s.notifier.NotifyRefund(notification); err != nil {
				log.Printf("[Loyalty] refund notification failed for %s: %v", notification.TransactionNumber, err)
			}
		}()
	}

	return &refund, &purchase, nil
}
