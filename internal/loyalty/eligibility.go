package loyalty

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/hani/internal/models"
)

// DiscountFor computes the monetary discount for an offer applied to a
// reported amount. Pure function of its inputs.
func DiscountFor(discountType string, discountValue, amount float64) float64 {
	switch discountType {
	case models.DiscountPercentage:
		// Percentages above 100 are tolerated at offer creation; the
		// discount still never exceeds the amount.
		discount := amount * discountValue / 100
		if discount > amount {
			return amount
		}
		return discount
	case models.DiscountFixedAmount:
		if discountValue > amount {
			return amount
		}
		return discountValue
	default:
		// free_shipping is handled outside the monetary ledger.
		return 0
	}
}

// checkOffer decides whether one offer may be redeemed by the user for the
// reported amount. The global usage limit is checked again with a row-level
// guard inside the ledger transaction; this check only rejects early.
func checkOffer(db *gorm.DB, offer *models.Offer, userID uuid.UUID, amount float64, now time.Time) error {
	if !offer.IsActive {
		return ErrOfferInactive
	}

	if now.Before(offer.ValidFrom) || now.After(offer.ValidUntil) {
		return ErrOfferExpired
	}

	if amount < offer.MinimumPurchase {
		return ErrBelowMinimumPurchase
	}

	var used int64
	if err := db.Model(&models.Purchase{}).
		Where("user_id = ? AND offer_id = ? AND status = ?", userID, offer.ID, models.PurchaseCompleted).
		Count(&used).Error; err != nil {
		return err
	}
	if used >= int64(offer.MaxUsagePerUser) {
		return ErrPerUserLimitReached
	}

	if offer.TotalUsageLimit != nil && offer.CurrentUsageCount >= *offer.TotalUsageLimit {
		return ErrGlobalLimitReached
	}

	return nil
}
