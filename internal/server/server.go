package server

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/mansoorceksport/mediakart/internal/config"
	"github.com/mansoorceksport/mediakart/internal/domain"
	"github.com/mansoorceksport/mediakart/internal/handler"
	"github.com/mansoorceksport/mediakart/internal/middleware"
	"github.com/mansoorceksport/mediakart/internal/repository"
	"github.com/mansoorceksport/mediakart/internal/service"
	"github.com/mansoorceksport/mediakart/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// AppDependencies holds the dependencies required to start the application.
// Provider, Mailer and Storage are optional overrides, mainly for tests;
// when nil they are built from config.
type AppDependencies struct {
	Config      *config.Config
	MongoDB     *mongo.Database
	RedisClient *redis.Client
	Provider    service.PaymentProvider
	Mailer      service.Mailer
	Storage     domain.FileStorage
}

// NewApp creates and configures the Fiber application with the given dependencies
func NewApp(deps AppDependencies) *fiber.App {
	// Initialize repositories
	catalogRepo := repository.NewMongoCatalogRepository(deps.MongoDB)
	couponRepo := repository.NewMongoCouponRepository(deps.MongoDB)
	purchaseRepo := repository.NewMongoPurchaseRepository(deps.MongoDB)
	grantRepo := repository.NewMongoGrantRepository(deps.MongoDB)
	cartStash := repository.NewRedisCartStash(deps.RedisClient)

	storage := deps.Storage
	if storage == nil && deps.Config.S3.Endpoint != "" {
		s3Storage, err := repository.NewS3MediaStorage(context.Background(), deps.Config.S3)
		if err != nil {
			log.Printf("Warning: Failed to initialize S3 storage: %v", err)
		} else {
			storage = s3Storage
		}
	}

	provider := deps.Provider
	if provider == nil {
		provider = service.NewPaymentProvider(deps.Config.Razorpay)
	}

	mailer := deps.Mailer
	if mailer == nil {
		mailer = service.NewMailer(deps.Config.SMTP)
	}

	// Initialize services
	catalogService := service.NewCatalogService(catalogRepo)
	pricingService := service.NewPricingService(couponRepo)
	entitlementService := service.NewEntitlementService(grantRepo, catalogService)
	mediaService := service.NewMediaService(storage, &service.PassthroughProcessor{})
	checkoutService := service.NewCheckoutService(
		catalogService,
		pricingService,
		entitlementService,
		purchaseRepo,
		couponRepo,
		cartStash,
		provider,
		mailer,
		deps.Config.Cart.StashTTL,
		deps.Config.Cart.Currency,
	)

	// Initialize handlers
	catalogHandler := handler.NewCatalogHandler(catalogService, mediaService, deps.Config.Server.MaxUploadSizeMB)
	browseHandler := handler.NewBrowseHandler(catalogService)
	couponHandler := handler.NewCouponHandler(couponRepo, pricingService)
	checkoutHandler := handler.NewCheckoutHandler(checkoutService)
	libraryHandler := handler.NewLibraryHandler(entitlementService)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "MediaKart API",
		BodyLimit:    int(deps.Config.Server.MaxUploadSizeMB * 1024 * 1024),
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Correlation-ID",
		AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	}))
	if deps.Config.Telemetry.Enabled {
		app.Use(telemetry.FiberMiddleware())
	}

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "mediakart",
		})
	})

	// API v1 routes
	v1 := app.Group("/v1")

	// ===========================================
	// PUBLIC API - catalog browsing and coupon validation
	// ===========================================
	catalog := v1.Group("/catalog")
	catalog.Get("/:kind/browse", browseHandler.Browse)
	catalog.Get("/:kind/folders/:id/path", browseHandler.Path)

	v1.Post("/coupons/validate", couponHandler.Validate)

	// ===========================================
	// CUSTOMER API - requires 'customer' role
	// ===========================================
	verifyToken := middleware.VerifyAccessToken(deps.Config.JWT.Secret)
	customerOnly := middleware.AuthorizeRole(domain.RoleCustomer, domain.RoleAdmin)

	v1.Post("/checkout", verifyToken, customerOnly, checkoutHandler.Checkout)
	v1.Post("/checkout/confirm", verifyToken, customerOnly,
		middleware.Idempotency(deps.RedisClient, 24*time.Hour),
		checkoutHandler.Confirm,
	)
	v1.Get("/purchases", verifyToken, customerOnly, checkoutHandler.ListPurchases)
	v1.Get("/library", verifyToken, customerOnly, libraryHandler.Library)
	v1.Get("/library/access/:type/:id", verifyToken, customerOnly, libraryHandler.CheckAccess)

	// ===========================================
	// ADMIN API - /v1/admin/* (requires 'admin' role)
	// ===========================================
	admin := v1.Group("/admin")
	admin.Use(verifyToken)
	admin.Use(middleware.AuthorizeRole(domain.RoleAdmin))

	adminCatalog := admin.Group("/catalog/:kind")
	adminCatalog.Post("/folders", catalogHandler.CreateFolder)
	adminCatalog.Get("/folders/:id", catalogHandler.GetFolder)
	adminCatalog.Patch("/folders/:id", catalogHandler.UpdateFolder)
	adminCatalog.Put("/folders/:id/parent", catalogHandler.MoveFolder)
	adminCatalog.Delete("/folders/:id", catalogHandler.DeleteFolder)

	adminCatalog.Post("/items", catalogHandler.CreateItem)
	adminCatalog.Get("/items/:id", catalogHandler.GetItem)
	adminCatalog.Patch("/items/:id", catalogHandler.UpdateItem)
	adminCatalog.Put("/items/:id/folder", catalogHandler.MoveItem)
	adminCatalog.Delete("/items/:id", catalogHandler.DeleteItem)

	adminCoupons := admin.Group("/coupons")
	adminCoupons.Post("/", couponHandler.Create)
	adminCoupons.Get("/", couponHandler.List)
	adminCoupons.Put("/:code", couponHandler.Update)
	adminCoupons.Put("/:id/activate", couponHandler.SetActive(true))
	adminCoupons.Put("/:id/deactivate", couponHandler.SetActive(false))

	return app
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	log.Printf("Error: %v", err)
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
