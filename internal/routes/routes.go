package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/hani/internal/config"
	"github.com/example/hani/internal/handlers"
	"github.com/example/hani/internal/loyalty"
	"github.com/example/hani/internal/middleware"
	"github.com/example/hani/internal/models"
	"github.com/example/hani/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	telegramService := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat)
	engine := loyalty.NewService(db, cfg.QRSecret, cfg.QRTokenTTL, telegramService)

	authHandler := handlers.NewAuthHandler(db, cfg)
	loyaltyHandler := handlers.NewLoyaltyHandler(db, engine)
	offerHandler := handlers.NewOfferHandler(db)
	storeHandler := handlers.NewStoreHandler(db)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	protected := api.Group("/", middleware.AuthMiddleware(cfg))
	client := middleware.RequireRole(models.RoleClient)
	store := middleware.RequireRole(models.RoleStore)

	// Client-facing loyalty surface
	protected.Post("/loyalty/qr/generate", client, loyaltyHandler.GenerateQR)
	protected.Get("/loyalty/card", client, loyaltyHandler.GetCard)
	protected.Get("/loyalty/purchases", client, loyaltyHandler.ListPurchases)

	// Store-terminal surface
	protected.Post("/loyalty/qr/scan", store, loyaltyHandler.Scan)
	protected.Post("/loyalty/purchases/:id/refund", store, loyaltyHandler.RefundPurchase)

	// Store directory
	protected.Get("/stores", storeHandler.ListStores)
	protected.Post("/stores", store, storeHandler.CreateStore)
	protected.Post("/stores/:id/branches", store, storeHandler.CreateBranch)

	// Offers
	protected.Get("/offers", offerHandler.ListOffers)
	protected.Get("/offers/:id", offerHandler.GetOffer)
	protected.Post("/offers", store, offerHandler.CreateOffer)
	protected.Put("/offers/:id", store, offerHandler.UpdateOffer)
}
