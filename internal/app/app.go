package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/orderlink/server/internal/gateway"
	"github.com/orderlink/server/internal/module/checkout"
	"github.com/orderlink/server/internal/module/method"
	"github.com/orderlink/server/internal/module/order"
	"github.com/orderlink/server/internal/module/reconcile"
	"github.com/orderlink/server/internal/module/refund"
	"github.com/orderlink/server/internal/module/settings"
	"github.com/orderlink/server/internal/module/subscription"
	"github.com/orderlink/server/internal/shared/cache"
	"github.com/orderlink/server/internal/shared/config"
	"github.com/orderlink/server/internal/shared/database"
	"github.com/orderlink/server/internal/shared/events"
	"github.com/orderlink/server/internal/shared/logger"
	"github.com/orderlink/server/internal/shared/metrics"
	"github.com/orderlink/server/internal/shared/middleware"
)

// App wires the reconciliation engine together.
type App struct {
	config *config.Config
	db     *gorm.DB
	redis  redis.UniversalClient
	router *gin.Engine
	logger *zap.Logger

	bus     *events.Bus
	metrics *metrics.Metrics

	methods  *method.Registry
	settings *settings.Store

	client         *gateway.Client
	orders         order.Repository
	orderService   *order.Service
	checkoutSvc    *checkout.Service
	refundSvc      *refund.Service
	reconciler     *reconcile.Reconciler
	subscriptions  *subscription.Service
	schedulerLoops *subscription.Scheduler
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	log, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	app := &App{
		config:  cfg,
		logger:  log,
		bus:     events.NewBus(log),
		metrics: metrics.New(""),
		methods: method.NewRegistry(),
	}

	app.settings, err = settings.NewStoreFromViper(cfg.Viper())
	if err != nil {
		return nil, fmt.Errorf("load engine settings: %w", err)
	}

	app.db, err = database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := app.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	app.redis, err = cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}

	app.initServices()
	app.router = app.setupRouter()

	return app, nil
}

func (a *App) migrate() error {
	return a.db.AutoMigrate(
		&order.Order{},
		&order.Item{},
		&order.Meta{},
		&order.Note{},
		&order.StockLevel{},
		&checkout.CustomerLink{},
		&subscription.Subscription{},
		&reconcile.WebhookEvent{},
	)
}

func (a *App) initServices() {
	a.client = gateway.NewClient(&a.config.Provider, a.logger, a.metrics)

	a.orders = order.NewRepository(a.db)
	stock := order.NewStockLedger(a.db, a.logger)
	a.orderService = order.NewService(a.orders, stock, a.logger)

	vault := checkout.NewVault(a.db)
	a.checkoutSvc = checkout.NewService(
		a.client, a.orders, a.orderService, vault,
		a.methods, a.settings, checkout.NewRedirects(),
		a.config.Store, a.bus, a.logger,
	)

	a.refundSvc = refund.NewService(a.client, a.bus, a.logger)

	queue := subscription.NewPendingQueue(a.redis)
	a.subscriptions = subscription.NewService(
		a.client, a.orders, a.orderService,
		subscription.NewRepository(a.db), queue,
		a.methods, a.settings, a.config.Store, a.config.Subscription,
		a.bus, a.metrics, a.logger,
	)
	a.schedulerLoops = subscription.NewScheduler(a.subscriptions, a.config.Subscription, a.logger)

	a.reconciler = reconcile.NewReconciler(
		a.client, a.orders, a.orderService, a.subscriptions,
		a.settings, a.bus, a.metrics, a.logger,
	)
}

// setupRouter creates and configures the Gin router.
func (a *App) setupRouter() *gin.Engine {
	if a.config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.Logging(a.logger))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	r.Use(middleware.Metrics(a.metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	webhook := reconcile.NewHandler(a.reconciler, a.orders, reconcile.NewEventLog(a.db), a.logger)
	webhook.RegisterRoutes(r, a.config.Store.WebhookPath)

	surcharger := checkout.NewSurcharger(a.orders, a.methods, a.settings, a.logger)

	api := r.Group("/api/v1")
	checkout.NewHandler(a.checkoutSvc, surcharger, a.orders, a.methods, a.logger).RegisterRoutes(api)
	refund.NewHandler(a.refundSvc, a.orders, a.client, a.logger).RegisterRoutes(api)

	return r
}

// Router returns the HTTP router.
func (a *App) Router() *gin.Engine { return a.router }

// Start launches the renewal scheduler.
func (a *App) Start(ctx context.Context) {
	a.schedulerLoops.Start(ctx)
}

// Stop shuts down background loops and connections.
func (a *App) Stop() {
	a.schedulerLoops.Stop()

	if err := cache.Close(a.redis); err != nil {
		a.logger.Warn("redis close failed", zap.Error(err))
	}
	if err := database.Close(a.db); err != nil {
		a.logger.Warn("database close failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}
