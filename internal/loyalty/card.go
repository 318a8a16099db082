package loyalty

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/hani/internal/models"
)

const cardNumberPrefix = "HANI"

// CardNumberFor computes the card number for a user. The inputs are all
// immutable (registration sequence, region code, registration year), so a
// retried assignment always lands on the same number.
//
// Format: HANI + two-digit year + two-digit region code + the user
// sequence, zero-padded so the numeric tail is at least six digits.
func CardNumberFor(seq int64, regionCode string, year int) string {
	region := regionCode
	if len(region) > 2 {
		region = region[len(region)-2:]
	}
	for len(region) < 2 {
		region = "0" + region
	}

	id := strconv.FormatInt(seq, 10)
	for len(id) < 2 {
		id = "0" + id
	}

	return fmt.Sprintf("%s%02d%s%s", cardNumberPrefix, year%100, region, id)
}

// EnsureCard returns the user's loyalty card, creating it on first access.
func (s *Service) EnsureCard(ctx context.Context, userID uuid.UUID) (*models.LoyaltyCard, error) {
	var card models.LoyaltyCard
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&card).Error
	if err == nil {
		return &card, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, err
	}

	card = models.LoyaltyCard{
		UserID:     user.ID,
		CardNumber: CardNumberFor(user.Seq, user.RegionCode, user.CreatedAt.Year()),
		IsActive:   user.IsActive,
	}

	if err := s.db.WithContext(ctx).Create(&card).Error; err != nil {
		// A concurrent first access may have created the card already;
		// the user_id unique index makes the recompute safe.
		var existing models.LoyaltyCard
		if lookupErr := s.db.WithContext(ctx).
			Where("user_id = ?", userID).
			First(&existing).Error; lookupErr == nil {
			return &existing, nil
		}
		return nil, err
	}

	return &card, nil
}

// ResolveCard looks a card up by its stable card number.
func (s *Service) ResolveCard(ctx context.Context, cardNumber string) (*models.LoyaltyCard, error) {
	var card models.LoyaltyCard
	if err := s.db.WithContext(ctx).
		Where("card_number = ?", cardNumber).
		First(&card).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, err
	}
	return &card, nil
}

// DeactivateCard is invoked when the owning account is deactivated. Cards
// are never hard-deleted.
func (s *Service) DeactivateCard(ctx context.Context, userID uuid.UUID) error {
	return s.db.WithContext(ctx).
		Model(&models.LoyaltyCard{}).
		Where("user_id = ?", userID).
		Update("is_active", false).Error
}
