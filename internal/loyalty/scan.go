package loyalty

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/hani/internal/models"
)

// ScanInput is one terminal scan: a QR token plus the store context and
// zero or more candidate offers with their reported amounts.
type ScanInput struct {
	Token          string
	StoreID        uuid.UUID
	BranchID       *uuid.UUID
	OfferIDs       []uuid.UUID
	Amounts        []float64
	IdempotencyKey string
}

// AppliedOffer reports one successful redemption within a scan.
type AppliedOffer struct {
	OfferID           uuid.UUID `json:"offer_id"`
	DiscountAmount    float64   `json:"discount_amount"`
	FinalAmount       float64   `json:"final_amount"`
	PointsEarned      int64     `json:"points_earned"`
	TransactionNumber string    `json:"transaction_number"`
}

// SkippedOffer reports one offer that was not applied, with the reason.
type SkippedOffer struct {
	OfferID uuid.UUID `json:"offer_id"`
	Reason  Kind      `json:"reason"`
}

// ScanResult is the outcome of one scan. A scan with several offers can
// partially succeed; skipped offers never roll back applied ones.
type ScanResult struct {
	Card               *models.LoyaltyCard `json:"card"`
	TransactionNumbers []string            `json:"transaction_numbers"`
	PointsEarned       int64               `json:"points_earned"`
	OffersApplied      []AppliedOffer      `json:"offers_applied"`
	OffersSkipped      []SkippedOffer      `json:"offers_skipped"`
}

// Scan validates the token and store context, evaluates each candidate
// offer, and records one purchase per accepted offer. Each purchase
// commits independently; an ineligible offer is skipped and reported
// rather than failing the whole scan.
func (s *Service) Scan(ctx context.Context, in ScanInput) (*ScanResult, error) {
	token, err := s.ValidateQRToken(in.Token)
	if err != nil {
		return nil, err
	}

	card, err := s.ResolveCard(ctx, token.CardNumber)
	if err != nil {
		return nil, err
	}
	if card.UserID != token.UserID {
		return nil, errf(KindTokenMalformed, "token does not match card owner")
	}
	if !card.IsActive {
		return nil, ErrCardInactive
	}
	if token.StoreID != nil && *token.StoreID != in.StoreID {
		return nil, errf(KindTokenMalformed, "token is scoped to another store")
	}

	if err := s.checkStore(ctx, in.StoreID, in.BranchID); err != nil {
		return nil, err
	}

	result := &ScanResult{}

	if len(in.OfferIDs) == 0 {
		var amount float64
		if len(in.Amounts) > 0 {
			amount = in.Amounts[0]
		}
		purchase, err := s.RecordPurchase(ctx, RecordPurchaseInput{
			UserID:         card.UserID,
			StoreID:        in.StoreID,
			BranchID:       in.BranchID,
			Amount:         amount,
			DiscountAmount: 0,
			IdempotencyKey: scanIdempotencyKey(in.IdempotencyKey, 0),
		})
		if err != nil {
			return nil, err
		}
		result.TransactionNumbers = append(result.TransactionNumbers, purchase.TransactionNumber)
		result.PointsEarned += purchase.PointsEarned
	}

	for i, offerID := range in.OfferIDs {
		var amount float64
		if i < len(in.Amounts) {
			amount = in.Amounts[i]
		}

		applied, skipErr, err := s.redeemOffer(ctx, card, in, offerID, amount, i)
		if err != nil {
			return nil, err
		}
		if skipErr != nil {
			result.OffersSkipped = append(result.OffersSkipped, SkippedOffer{
				OfferID: offerID,
				Reason:  skipErr.Kind,
			})
			continue
		}

		result.OffersApplied = append(result.OffersApplied, *applied)
		result.TransactionNumbers = append(result.TransactionNumbers, applied.TransactionNumber)
		result.PointsEarned += applied.PointsEarned
	}

	updated, err := s.ResolveCard(ctx, card.CardNumber)
	if err != nil {
		return nil, err
	}
	result.Card = updated

	return result, nil
}

// redeemOffer evaluates and commits a single offer redemption. A non-nil
// skip error means the offer is reported as skipped; a non-nil error
// aborts the scan.
func (s *Service) redeemOffer(ctx context.Context, card *models.LoyaltyCard, in ScanInput, offerID uuid.UUID, amount float64, index int) (*AppliedOffer, *Error, error) {
	var offer models.Offer
	if err := s.db.WithContext(ctx).First(&offer, "id = ?", offerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOfferNotFound, nil
		}
		return nil, nil, err
	}
	if offer.StoreID != in.StoreID {
		return nil, ErrOfferNotFound, nil
	}

	if err := checkOffer(s.db.WithContext(ctx), &offer, card.UserID, amount, s.now()); err != nil {
		var engineErr *Error
		if errors.As(err, &engineErr) {
			return nil, engineErr, nil
		}
		return nil, nil, err
	}

	discount := DiscountFor(offer.DiscountType, offer.DiscountValue, amount)

	purchase, err := s.RecordPurchase(ctx, RecordPurchaseInput{
		UserID:         card.UserID,
		StoreID:        in.StoreID,
		BranchID:       in.BranchID,
		OfferID:        &offer.ID,
		Amount:         amount,
		DiscountAmount: discount,
		IdempotencyKey: scanIdempotencyKey(in.IdempotencyKey, index),
	})
	if err != nil {
		// The conditional increment closes the race the early check cannot;
		// losing it skips just this offer.
		if errors.Is(err, ErrGlobalLimitReached) {
			return nil, ErrGlobalLimitReached, nil
		}
		var engineErr *Error
		if errors.As(err, &engineErr) && engineErr.Kind == KindOfferNotFound {
			return nil, engineErr, nil
		}
		return nil, nil, err
	}

	return &AppliedOffer{
		OfferID:           offer.ID,
		DiscountAmount:    purchase.DiscountAmount,
		FinalAmount:       purchase.FinalAmount,
		PointsEarned:      purchase.PointsEarned,
		TransactionNumber: purchase.TransactionNumber,
	}, nil, nil
}

func (s *Service) checkStore(ctx context.Context, storeID uuid.UUID, branchID *uuid.UUID) error {
	var store models.Store
	if err := s.db.WithContext(ctx).First(&store, "id = ?", storeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStoreNotApproved
		}
		return err
	}
	if !store.IsApproved || !store.IsActive {
		return ErrStoreNotApproved
	}

	if branchID != nil {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Branch{}).
			Where("id = ? AND store_id = ?", *branchID, storeID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("branch %s does not belong to store %s", branchID, storeID)
		}
	}

	return nil
}

// scanIdempotencyKey derives a per-purchase key from the scan-level key.
// A multi-offer scan produces one purchase per offer, so each gets its
// own slot under the caller's key.
func scanIdempotencyKey(key string, index int) *string {
	if key == "" {
		return nil
	}
	derived := fmt.Sprintf("%s:%d", key, index)
	return &derived
}
