package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/hani/internal/middleware"
	"github.com/example/hani/internal/models"
	"github.com/example/hani/internal/utils"
)

// OfferHandler manages merchant offer endpoints.
type OfferHandler struct {
	db *gorm.DB
}

// NewOfferHandler constructs OfferHandler.
func NewOfferHandler(db *gorm.DB) *OfferHandler {
	return &OfferHandler{db: db}
}

type offerRequest struct {
	StoreID         string  `json:"store_id"`
	Title           string  `json:"title"`
	DiscountType    string  `json:"discount_type"`
	DiscountValue   float64 `json:"discount_value"`
	MinimumPurchase float64 `json:"minimum_purchase"`
	ValidFrom       string  `json:"valid_from"`
	ValidUntil      string  `json:"valid_until"`
	MaxUsagePerUser int     `json:"max_usage_per_user"`
	TotalUsageLimit *int    `json:"total_usage_limit"`
}

// CreateOffer creates an offer for a store owned by the authenticated user.
func (h *OfferHandler) CreateOffer(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req offerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	storeID, err := uuid.Parse(req.StoreID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid store_id")
	}

	var store models.Store
	if err := h.db.First(&store, "id = ? AND owner_id = ?", storeID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusForbidden, "store not owned by user")
		}
		return err
	}

	switch req.DiscountType {
	case models.DiscountPercentage, models.DiscountFixedAmount, models.DiscountFreeShipping:
	default:
		return fiber.NewError(fiber.StatusBadRequest, "unknown discount_type")
	}

	if req.DiscountValue < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "discount_value must be non-negative")
	}
	if req.MinimumPurchase < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "minimum_purchase must be non-negative")
	}

	validFrom, err := time.Parse(time.RFC3339, req.ValidFrom)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid valid_from")
	}
	validUntil, err := time.Parse(time.RFC3339, req.ValidUntil)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid valid_until")
	}
	if !validUntil.After(validFrom) {
		return fiber.NewError(fiber.StatusBadRequest, "valid_until must be after valid_from")
	}

	maxPerUser := req.MaxUsagePerUser
	if maxPerUser < 1 {
		maxPerUser = 1
	}
	if req.TotalUsageLimit != nil && *req.TotalUsageLimit < 1 {
		return fiber.NewError(fiber.StatusBadRequest, "total_usage_limit must be positive")
	}

	offer := models.Offer{
		StoreID:         store.ID,
		Title:           req.Title,
		DiscountType:    req.DiscountType,
		DiscountValue:   req.DiscountValue,
		MinimumPurchase: req.MinimumPurchase,
		ValidFrom:       validFrom,
		ValidUntil:      validUntil,
		MaxUsagePerUser: maxPerUser,
		TotalUsageLimit: req.TotalUsageLimit,
		IsActive:        true,
	}

	if err := h.db.Create(&offer).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": offer})
}

// ListOffers returns offers, optionally scoped to one store. Clients see
// only active offers; owners see all of theirs.
func (h *OfferHandler) ListOffers(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Offer{})

	if raw := c.Query("store_id"); raw != "" {
		storeID, err := uuid.Parse(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid store_id")
		}
		query = query.Where("store_id = ?", storeID)
	}

	if role, _ := middleware.GetCurrentUserRole(c); role != models.RoleStore {
		query = query.Where("is_active = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var offers []models.Offer
	if err := query.Order("valid_until asc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&offers).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    offers,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// GetOffer returns one offer by id.
func (h *OfferHandler) GetOffer(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var offer models.Offer
	if err := h.db.First(&offer, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "offer not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": offer})
}

type updateOfferRequest struct {
	Title           *string  `json:"title"`
	MinimumPurchase *float64 `json:"minimum_purchase"`
	ValidUntil      *string  `json:"valid_until"`
	IsActive        *bool    `json:"is_active"`
}

// UpdateOffer lets the owning store adjust a subset of offer fields.
// Discount type and value are frozen once the offer exists; usage
// counters are only touched by the ledger.
func (h *OfferHandler) UpdateOffer(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req updateOfferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var offer models.Offer
	if err := h.db.First(&offer, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "offer not found")
		}
		return err
	}

	var owned int64
	if err := h.db.Model(&models.Store{}).
		Where("id = ? AND owner_id = ?", offer.StoreID, userID).
		Count(&owned).Error; err != nil {
		return err
	}
	if owned == 0 {
		return fiber.NewError(fiber.StatusForbidden, "offer belongs to another store")
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.MinimumPurchase != nil {
		if *req.MinimumPurchase < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "minimum_purchase must be non-negative")
		}
		updates["minimum_purchase"] = *req.MinimumPurchase
	}
	if req.ValidUntil != nil {
		parsed, err := time.Parse(time.RFC3339, *req.ValidUntil)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid valid_until")
		}
		if !parsed.After(offer.ValidFrom) {
			return fiber.NewError(fiber.StatusBadRequest, "valid_until must be after valid_from")
		}
		updates["valid_until"] = parsed
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no fields to update")
	}

	if err := h.db.Model(&models.Offer{}).Where("id = ?", offer.ID).Updates(updates).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "message": "offer updated"})
}
