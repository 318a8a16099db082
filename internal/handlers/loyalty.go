package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/hani/internal/loyalty"
	"github.com/example/hani/internal/middleware"
	"github.com/example/hani/internal/models"
	"github.com/example/hani/internal/utils"
)

// LoyaltyHandler exposes the card and redemption engine over HTTP.
type LoyaltyHandler struct {
	db     *gorm.DB
	engine *loyalty.Service
}

// NewLoyaltyHandler constructs LoyaltyHandler.
func NewLoyaltyHandler(db *gorm.DB, engine *loyalty.Service) *LoyaltyHandler {
	return &LoyaltyHandler{db: db, engine: engine}
}

// GenerateQR issues a fresh signed QR token for the authenticated client,
// creating the loyalty card on first access.
func (h *LoyaltyHandler) GenerateQR(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	card, err := h.engine.EnsureCard(c.Context(), userID)
	if err != nil {
		return loyaltyHTTPError(err)
	}

	var storeScope *uuid.UUID
	if raw := c.Query("store_id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			storeScope = &id
		}
	}

	token, err := h.engine.IssueQRToken(card, storeScope)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"card_number": card.CardNumber,
			"token":       token,
		},
	})
}

type scanRequest struct {
	Token          string    `json:"token"`
	StoreID        string    `json:"store_id"`
	BranchID       string    `json:"branch_id"`
	OfferIDs       []string  `json:"offer_ids"`
	Amounts        []float64 `json:"amounts"`
	IdempotencyKey string    `json:"idempotency_key"`
}

// Scan records a redemption for a scanned QR token. Partially eligible
// multi-offer scans succeed, reporting applied and skipped offers.
func (h *LoyaltyHandler) Scan(c *fiber.Ctx) error {
	var req scanRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Token == "" {
		return fiber.NewError(fiber.StatusBadRequest, "token is required")
	}

	storeID, err := uuid.Parse(req.StoreID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid store_id")
	}

	input := loyalty.ScanInput{
		Token:          req.Token,
		StoreID:        storeID,
		Amounts:        req.Amounts,
		IdempotencyKey: req.IdempotencyKey,
	}

	if req.BranchID != "" {
		id, err := uuid.Parse(req.BranchID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid branch_id")
		}
		input.BranchID = &id
	}

	for _, raw := range req.OfferIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid offer id "+raw)
		}
		input.OfferIDs = append(input.OfferIDs, id)
	}

	result, err := h.engine.Scan(c.Context(), input)
	if err != nil {
		return loyaltyHTTPError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"transaction_numbers": result.TransactionNumbers,
			"points_earned":       result.PointsEarned,
			"offers_applied":      result.OffersApplied,
			"offers_skipped":      result.OffersSkipped,
			"card": fiber.Map{
				"card_number": result.Card.CardNumber,
				"points":      result.Card.Points,
				"total_spent": result.Card.TotalSpent,
				"visits":      result.Card.Visits,
				"tier":        loyalty.TierForBalance(result.Card.Points),
			},
		},
	})
}

type refundRequest struct {
	Method string `json:"method"`
}

// RefundPurchase reverses one completed purchase. Only the owner of the
// store the purchase was made at may refund it.
func (h *LoyaltyHandler) RefundPurchase(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	purchaseID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var purchase models.Purchase
	if err := h.db.First(&purchase, "id = ?", purchaseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "purchase not found")
		}
		return err
	}

	var owned int64
	if err := h.db.Model(&models.Store{}).
		Where("id = ? AND owner_id = ?", purchase.StoreID, userID).
		Count(&owned).Error; err != nil {
		return err
	}
	if owned == 0 {
		return fiber.NewError(fiber.StatusForbidden, "purchase belongs to another store")
	}

	var req refundRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Method == "" {
		req.Method = models.RefundMethodLoyaltyPoints
	}

	refund, updated, err := h.engine.Refund(c.Context(), purchaseID, req.Method)
	if err != nil {
		return loyaltyHTTPError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"refund":   refund,
			"purchase": updated,
		},
	})
}

// GetCard returns the authenticated client's card with its current tier.
func (h *LoyaltyHandler) GetCard(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	card, err := h.engine.EnsureCard(c.Context(), userID)
	if err != nil {
		return loyaltyHTTPError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"card_number":  card.CardNumber,
			"points":       card.Points,
			"total_spent":  card.TotalSpent,
			"visits":       card.Visits,
			"last_used_at": card.LastUsedAt,
			"is_active":    card.IsActive,
			"tier":         loyalty.TierForBalance(card.Points),
		},
	})
}

// ListPurchases returns the authenticated client's purchase history.
func (h *LoyaltyHandler) ListPurchases(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Purchase{}).Where("user_id = ?", userID)

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var purchases []models.Purchase
	if err := query.Order("purchase_date desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&purchases).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    purchases,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// loyaltyHTTPError maps engine error kinds onto HTTP statuses.
func loyaltyHTTPError(err error) error {
	var engineErr *loyalty.Error
	if !errors.As(err, &engineErr) {
		return err
	}

	switch engineErr.Kind {
	case loyalty.KindTokenMalformed, loyalty.KindTokenExpired:
		return fiber.NewError(fiber.StatusUnauthorized, engineErr.Error())
	case loyalty.KindCardNotFound, loyalty.KindOfferNotFound:
		return fiber.NewError(fiber.StatusNotFound, engineErr.Error())
	case loyalty.KindCardInactive, loyalty.KindStoreNotApproved:
		return fiber.NewError(fiber.StatusForbidden, engineErr.Error())
	case loyalty.KindNotRefundable:
		return fiber.NewError(fiber.StatusConflict, engineErr.Error())
	case loyalty.KindTransactionNumberCollision:
		return fiber.NewError(fiber.StatusServiceUnavailable, engineErr.Error())
	default:
		return fiber.NewError(fiber.StatusUnprocessableEntity, engineErr.Error())
	}
}
