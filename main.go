package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"storefront-service/config"
	"storefront-service/consumers"
	"storefront-service/controllers"
	"storefront-service/database"
	"storefront-service/middlewares"
	"storefront-service/models"
	"storefront-service/payments"
	"storefront-service/rabbitmq"
	"storefront-service/services"
	"storefront-service/utils"
)

const (
	webhookEventTTL = 24 * time.Hour
	shutdownTimeout = 10 * time.Second
)

// storage is what the services need from either backing store.
type storage interface {
	services.CatalogStore
	services.OrderStore
	services.UserStore
	SeedProducts(ctx context.Context, products []models.Product) error
	Ping(ctx context.Context) error
	Close() error
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := utils.NewLogger(os.Stdout, cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("storefront stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	// 初始化RabbitMQ（未配置时不发送事件）
	var publisher controllers.EventPublisher
	if cfg.RabbitMQURL != "" {
		rmq, err := rabbitmq.NewRabbitMQ(cfg)
		if err != nil {
			return err
		}
		defer rmq.Close()
		if err := rmq.SetupQueues(); err != nil {
			return err
		}
		if err := consumers.NewOrderConsumer(rmq.Channel, cfg, logger).Start(ctx); err != nil {
			return err
		}
		publisher = rmq
	} else {
		logger.Warn("RABBITMQ_URL not set, order events disabled")
	}

	var events payments.EventLog
	if cfg.RedisURL != "" {
		redisLog, err := payments.NewRedisEventLog(cfg.RedisURL, webhookEventTTL)
		if err != nil {
			return err
		}
		defer redisLog.Close()
		events = redisLog
	} else {
		logger.Warn("REDIS_URL not set, webhook dedupe is process-local")
		events = payments.NewMemoryEventLog(webhookEventTTL)
	}

	gateway := payments.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	tokens := utils.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	shipping := services.ShippingPolicy{Fee: cfg.ShippingFee, FreeThreshold: cfg.FreeShippingThreshold}

	catalog := services.NewCatalogService(store, shipping, logger)
	orders := services.NewOrderService(store, logger)
	users := services.NewUserService(store, logger)
	checkout := services.NewCheckoutService(store, orders, gateway, events, services.CheckoutConfig{
		Currency: cfg.Currency,
		BaseURL:  cfg.BaseURL,
		Shipping: shipping,
	}, logger)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middlewares.RequestID(), middlewares.RequestLogger(logger), middlewares.PrometheusMiddleware())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers := controllers.Handlers{
		Products: controllers.NewProductController(catalog, logger),
		Auth:     controllers.NewAuthController(users, tokens, logger),
		Orders:   controllers.NewOrderController(orders, publisher, logger),
		Payments: controllers.NewPaymentController(checkout, gateway, publisher, logger),
	}
	if cfg.AuthRatePerMinute > 0 {
		handlers.AuthLimit = middlewares.RateLimit(middlewares.NewClientLimiter(cfg.AuthRatePerMinute, cfg.AuthRateBurst))
	}
	handlers.Register(r, middlewares.AuthMiddleware(tokens), store)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("storefront starting", "port", cfg.Port, "storage", cfg.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage, error) {
	var store storage
	switch cfg.StorageDriver {
	case "memory":
		logger.Info("using in-memory storage")
		return database.NewMemoryStore(database.SeedCatalog()...), nil
	default:
		db, err := database.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		s := database.NewStore(db)
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		store = s
	}
	if cfg.SeedCatalog {
		if err := store.SeedProducts(ctx, database.SeedCatalog()); err != nil {
			_ = store.Close()
			return nil, err
		}
		logger.Info("catalog seeded")
	}
	return store, nil
}
