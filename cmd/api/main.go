package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"ispcrm/internal/config"
	"ispcrm/internal/database"
	"ispcrm/internal/domain/billing"
	"ispcrm/internal/domain/contract"
	"ispcrm/internal/domain/invoice"
	"ispcrm/internal/domain/notification"
	"ispcrm/internal/domain/order"
	"ispcrm/internal/domain/renewal"
	"ispcrm/internal/middleware"
	jwtsvc "ispcrm/internal/pkg/jwt"
	"ispcrm/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	tolerance, err := decimal.NewFromString(cfg.OverpaymentTolerance)
	if err != nil {
		log.Fatalf("config: invalid OVERPAYMENT_TOLERANCE %q", cfg.OverpaymentTolerance)
	}

	contractRepo := contract.NewRepository(db)
	invoiceRepo := invoice.NewRepository(db)
	orderRepo := order.NewRepository(db)
	notificationRepo := notification.NewRepository(db)

	contractSvc := contract.NewService(contractRepo)
	reconciler := invoice.NewReconciler(invoiceRepo, invoice.ReconcilerConfig{
		OverpaymentTolerance: tolerance,
	}, log.Printf)
	generator := billing.NewGenerator(db, contractRepo, invoiceRepo, billing.GeneratorConfig{
		DefaultCurrency: cfg.DefaultCurrency,
	}, log.Printf)
	notifier := notification.NewService(notificationRepo, nil, log.Printf)
	renewalMgr := renewal.NewManager(db, contractRepo, notifier, renewal.ManagerConfig{
		LeadDays: cfg.RenewalLeadDays,
	}, log.Printf)
	orderSvc := order.NewService(db, orderRepo, log.Printf)

	jwt := jwtsvc.New(cfg.JWTSecret, 24*time.Hour)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(cfg.SweepInterval, log.Printf,
		scheduler.NewJob("invoice-generation", generator.GenerateDue),
		scheduler.NewJob("overdue-sweep", reconciler.SweepOverdue),
		scheduler.NewJob("renewal-evaluation", renewalMgr.Evaluate),
	)
	go sched.Start(ctx)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger(), middleware.ErrorLogger())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	protected := api.Group("", middleware.Auth(jwt))
	contract.RegisterRoutes(protected, contract.NewHandler(contractSvc))
	invoice.RegisterRoutes(protected, invoice.NewHandler(reconciler))
	billing.RegisterRoutes(protected, billing.NewHandler(generator))
	renewal.RegisterRoutes(protected, renewal.NewHandler(renewalMgr))
	order.RegisterRoutes(protected, order.NewHandler(orderSvc))
	notification.RegisterRoutes(protected, notification.NewHandler(notifier))

	log.Printf("level=info msg=listening port=%s env=%s sweep_interval=%s", cfg.HTTPPort, cfg.Env, cfg.SweepInterval)
	if err := r.Run(":" + cfg.HTTPPort); err != nil {
		log.Fatalf("server: %v", err)
	}
}
