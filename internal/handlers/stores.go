package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/hani/internal/middleware"
	"github.com/example/hani/internal/models"
	"github.com/example/hani/internal/utils"
)

// StoreHandler manages the store and branch directory. Approval itself is
// an admin workflow outside this service; stores register unapproved.
type StoreHandler struct {
	db *gorm.DB
}

// NewStoreHandler constructs StoreHandler.
func NewStoreHandler(db *gorm.DB) *StoreHandler {
	return &StoreHandler{db: db}
}

type createStoreRequest struct {
	Name         string `json:"name"`
	BusinessType string `json:"business_type"`
	Phone        string `json:"phone"`
}

// CreateStore registers a store owned by the authenticated store user.
func (h *StoreHandler) CreateStore(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req createStoreRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name is required")
	}

	store := models.Store{
		OwnerID:      userID,
		Name:         req.Name,
		BusinessType: req.BusinessType,
		Phone:        req.Phone,
		IsApproved:   false,
		IsActive:     true,
	}

	if err := h.db.Create(&store).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": store})
}

// ListStores returns approved active stores with their branches.
func (h *StoreHandler) ListStores(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Store{}).
		Where("is_approved = ? AND is_active = ?", true, true)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var stores []models.Store
	if err := query.Preload("Branches").
		Order("name asc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&stores).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    stores,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

type createBranchRequest struct {
	Name        string `json:"name"`
	AddressLine string `json:"address_line"`
	City        string `json:"city"`
}

// CreateBranch adds a branch to a store owned by the authenticated user.
func (h *StoreHandler) CreateBranch(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	storeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var store models.Store
	if err := h.db.First(&store, "id = ? AND owner_id = ?", storeID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusForbidden, "store not owned by user")
		}
		return err
	}

	var req createBranchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name is required")
	}

	branch := models.Branch{
		StoreID:     store.ID,
		Name:        req.Name,
		AddressLine: req.AddressLine,
		City:        req.City,
		IsActive:    true,
	}

	if err := h.db.Create(&branch).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": branch})
}
