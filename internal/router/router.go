package router

import (
	"time"

	"github.com/jrrjunior2026-lang/PDV-WEB/internal/config"
	"github.com/jrrjunior2026-lang/PDV-WEB/internal/handler"
	"github.com/jrrjunior2026-lang/PDV-WEB/internal/infra"
	"github.com/jrrjunior2026-lang/PDV-WEB/internal/middleware"
	"github.com/jrrjunior2026-lang/PDV-WEB/internal/repository"
	"github.com/jrrjunior2026-lang/PDV-WEB/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the long-lived domain components built in main (the ledger
// restores state from the database, the queue and transactions share the
// worker plumbing), injected here for route wiring.
type Deps struct {
	Ledger       *service.Ledger
	Queue        *service.SyncQueue
	Transactions *service.TransactionService
	Pix          *infra.PixProvider
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, d Deps) *gin.Engine {
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

	// ── Services built here ──────────────────────────────────────────────────
	operatorRepo := repository.NewOperatorRepository(db)
	authSvc := service.NewAuthService(operatorRepo, cfg)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	shiftsH := handler.NewShiftHandler(d.Ledger)
	txH := handler.NewTransactionHandler(d.Transactions)
	syncH := handler.NewSyncHandler(d.Queue)
	webhooksH := handler.NewWebhookHandler(d.Pix)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
	}

	// PSP webhook — authenticated by the PSP's signature upstream, not by a
	// terminal operator token
	r.POST("/v1/webhooks/pix", webhooksH.PixConfirmation)

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		anyOperator := middleware.RequireRole("cashier", "supervisor", "admin")

		shifts := v1.Group("/shifts")
		{
			shifts.POST("/open", anyOperator, shiftsH.Open)
			shifts.POST("/close", anyOperator, shiftsH.Close)
			shifts.POST("/movements", anyOperator, shiftsH.Movement)
			shifts.GET("/current", anyOperator, shiftsH.Current)
			shifts.GET("/history", middleware.RequireRole("supervisor", "admin"), shiftsH.History)
		}

		tx := v1.Group("/transactions", anyOperator)
		{
			tx.POST("", txH.Begin)
			tx.GET("/:id", txH.Get)
			tx.GET("/:id/events", txH.Events)
			tx.DELETE("/:id", txH.Cancel)
		}

		sync := v1.Group("/sync")
		{
			sync.GET("/pending", anyOperator, syncH.Status)
			sync.POST("/flush", middleware.RequireRole("supervisor", "admin"), syncH.Flush)
		}
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
