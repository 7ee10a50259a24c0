package router

import (
	"time"

	"github.com/edcadet10/tikes/internal/config"
	"github.com/edcadet10/tikes/internal/handler"
	"github.com/edcadet10/tikes/internal/middleware"
	"github.com/edcadet10/tikes/internal/model"
	"github.com/edcadet10/tikes/internal/repository"
	"github.com/edcadet10/tikes/internal/service"
	"github.com/edcadet10/tikes/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, dispatcher *worker.Dispatcher) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	productRepo := repository.NewProductRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	creditTxRepo := repository.NewCreditTransactionRepository(db)
	alertRepo := repository.NewSyncAlertRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(userRepo, rdb, cfg)
	syncSvc := service.NewSyncService(categoryRepo, productRepo, customerRepo, saleRepo, creditTxRepo, userRepo)
	alertSvc := service.NewAlertService(alertRepo, dispatcher)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	syncH := handler.NewSyncHandler(syncSvc, alertSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	// Auth (public)
	auth := r.Group("/api/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret, rdb)
	api := r.Group("/api", jwtMW)
	{
		// Any authenticated employee may sync; revocation is the device
		// kill switch.
		api.POST("/sync/push", syncH.Push)
		api.GET("/sync/pull", syncH.Pull)

		// Token revocation — owner or manager only
		api.POST("/auth/revoke", middleware.RequireRole(model.RoleOwner, model.RoleManager), authH.Revoke)
	}

	return r
}
