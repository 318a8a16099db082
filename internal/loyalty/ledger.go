package loyalty

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/hani/internal/models"
)

// txnNumberAttempts bounds retries when a generated transaction number
// collides with an existing row.
const txnNumberAttempts = 3

// RecordPurchaseInput describes one redemption to commit.
type RecordPurchaseInput struct {
	UserID         uuid.UUID
	StoreID        uuid.UUID
	BranchID       *uuid.UUID
	OfferID        *uuid.UUID
	Amount         float64
	DiscountAmount float64
	IdempotencyKey *string
}

// RecordPurchase turns a validated redemption into persisted state. The
// purchase row, the offer usage increment, and the card balance mutation
// commit in one transaction or not at all.
func (s *Service) RecordPurchase(ctx context.Context, in RecordPurchaseInput) (*models.Purchase, error) {
	if in.DiscountAmount < 0 || in.DiscountAmount > in.Amount {
		return nil, fmt.Errorf("discount %v out of range for amount %v", in.DiscountAmount, in.Amount)
	}

	if in.IdempotencyKey != nil {
		if existing, err := s.purchaseByIdempotencyKey(ctx, *in.IdempotencyKey); err != nil {
			return nil, err
		} else if existing != nil {
			return existing, nil
		}
	}

	var lastErr error
	for attempt := 0; attempt < txnNumberAttempts; attempt++ {
		purchase, err := s.recordPurchaseOnce(ctx, in)
		if err == nil {
			return purchase, nil
		}

		if isDuplicateKey(err) {
			// Either our transaction number collided or a concurrent retry
			// with the same idempotency key won the race.
			if in.IdempotencyKey != nil {
				if existing, lookupErr := s.purchaseByIdempotencyKey(ctx, *in.IdempotencyKey); lookupErr == nil && existing != nil {
					return existing, nil
				}
			}
			lastErr = ErrTransactionNumberCollision
			continue
		}

		return nil, err
	}

	return nil, lastErr
}

func (s *Service) recordPurchaseOnce(ctx context.Context, in RecordPurchaseInput) (*models.Purchase, error) {
	var purchase models.Purchase

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var card models.LoyaltyCard
		if err := lockForUpdate(tx).
			Where("user_id = ?", in.UserID).
			First(&card).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCardNotFound
			}
			return err
		}
		if !card.IsActive {
			return ErrCardInactive
		}

		if in.OfferID != nil {
			if err := incrementOfferUsage(tx, *in.OfferID); err != nil {
				return err
			}
		}

		finalAmount := in.Amount - in.DiscountAmount
		multiplier := TierForBalance(card.Points).Multiplier()
		points := PointsForAmount(finalAmount, multiplier)

		now := s.now()
		purchase = models.Purchase{
			UserID:            in.UserID,
			StoreID:           in.StoreID,
			BranchID:          in.BranchID,
			OfferID:           in.OfferID,
			TransactionNumber: generateTransactionNumber(now),
			IdempotencyKey:    in.IdempotencyKey,
			Amount:            in.Amount,
			DiscountAmount:    in.DiscountAmount,
			FinalAmount:       finalAmount,
			PointsEarned:      points,
			Status:            models.PurchaseCompleted,
			PurchaseDate:      now,
		}

		if err := tx.Create(&purchase).Error; err != nil {
			return err
		}

		return tx.Model(&models.LoyaltyCard{}).
			Where("id = ?", card.ID).
			Updates(map[string]any{
				"points":       card.Points + points,
				"total_spent":  card.TotalSpent + finalAmount,
				"visits":       card.Visits + 1,
				"last_used_at": &now,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	return &purchase, nil
}

// incrementOfferUsage bumps current_usage_count with a conditional update
// so two concurrent redeemers cannot jointly overshoot the global limit.
// Zero rows affected means the limit is exhausted (or the offer vanished),
// and the whole purchase transaction aborts.
func incrementOfferUsage(tx *gorm.DB, offerID uuid.UUID) error {
	res := tx.Model(&models.Offer{}).
		Where("id = ? AND is_active = ?", offerID, true).
		Where("total_usage_limit IS NULL OR current_usage_count < total_usage_limit").
		UpdateColumn("current_usage_count", gorm.Expr("current_usage_count + 1"))
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		var exists int64
		if err := tx.Model(&models.Offer{}).Where("id = ?", offerID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return ErrOfferNotFound
		}
		return ErrGlobalLimitReached
	}

	return nil
}

func (s *Service) purchaseByIdempotencyKey(ctx context.Context, key string) (*models.Purchase, error) {
	var purchase models.Purchase
	err := s.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&purchase).Error
	if err == nil {
		return &purchase, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

func generateTransactionNumber(now time.Time) string {
	suffix := strings.ToUpper(uuid.NewString()[:8])
	return fmt.Sprintf("TXN-%s-%s", now.Format("20060102150405"), suffix)
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
