package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/partnerly/backend/internal/config"
	"github.com/partnerly/backend/internal/handlers"
	"github.com/partnerly/backend/internal/middleware"
	"github.com/partnerly/backend/internal/queue"
	"github.com/partnerly/backend/internal/services/backfill"
	"github.com/partnerly/backend/internal/services/commission"
	"github.com/partnerly/backend/internal/services/referral"
	"github.com/partnerly/backend/internal/services/withdrawal"
	"github.com/partnerly/backend/internal/utils"
)

// Services bundles the wired ledger components so main can hand them to the
// job layer after route registration.
type Services struct {
	Ledger    *commission.Ledger
	Dispenser *referral.Dispenser
	Tracker   *referral.Tracker
	Matcher   *withdrawal.Service
	Processor *backfill.Processor
}

// RegisterRoutes wires the services and configures all API routes.
func RegisterRoutes(router *gin.Engine, db *gorm.DB, redisClient *redis.Client, jobQueue *queue.Queue, cfg *config.Config) *Services {
	auditLogger := utils.NewAuditLogger(db)

	ledger := commission.NewLedger(
		commission.NewGormStore(db),
		auditLogger,
		time.Duration(cfg.Engine.HoldingWindowHours)*time.Hour,
	)
	referralStore := referral.NewGormStore(db)
	tracker := referral.NewTracker(referralStore, referral.NewRedisCounter(redisClient), cfg.Engine.IPHashSalt)
	dispenser := referral.NewDispenser(referralStore, auditLogger)
	matcher := withdrawal.NewService(withdrawal.NewGormStore(db), auditLogger)
	processor := backfill.NewProcessor(backfill.NewGormStore(db), auditLogger, cfg.Engine.ReportDir)

	eventHandler := handlers.NewEventHandler(jobQueue)
	referralHandler := handlers.NewReferralHandler(tracker, cfg.FrontendURL)
	commissionHandler := handlers.NewCommissionHandler(ledger)
	withdrawalHandler := handlers.NewWithdrawalHandler(matcher, ledger)
	backfillHandler := handlers.NewBackfillHandler(jobQueue, processor)

	// 30 req/s per IP with a small burst shields the public surface; the
	// per-(ip, code) click limit is enforced inside the tracker.
	rateLimiter := middleware.NewRateLimiter(30, 60)
	router.Use(rateLimiter.Middleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public click redirect, outside the API group so links stay short.
	router.GET("/r/:code", referralHandler.TrackClick)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/events/order-delivered", eventHandler.OrderDelivered)

		referrals := v1.Group("/referrals")
		{
			referrals.POST("/attributions", referralHandler.RecordAttribution)
			referrals.PUT("/attributions/:userId/verify", referralHandler.MarkVerified)
			referrals.GET("/:code/resolve", referralHandler.Resolve)
		}

		v1.GET("/affiliates/:affiliateId/commissions/eligible", withdrawalHandler.EligibleCommissions)

		admin := v1.Group("/admin")
		{
			admin.GET("/abuse/:ipHash", referralHandler.AbuseReport)
			admin.POST("/backfill", backfillHandler.Run)
			admin.POST("/withdrawals", withdrawalHandler.Create)
			admin.POST("/commissions/sweep", commissionHandler.Sweep)
			admin.PUT("/commissions/:id/approve", commissionHandler.Approve)
			admin.PUT("/commissions/:id/reject", commissionHandler.Reject)
			admin.PUT("/commissions/:id/cancel", commissionHandler.Cancel)
		}
	}

	return &Services{
		Ledger:    ledger,
		Dispenser: dispenser,
		Tracker:   tracker,
		Matcher:   matcher,
		Processor: processor,
	}
}
