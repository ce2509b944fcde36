package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"fulfillment/internal/config"
	"fulfillment/internal/domain"
	"fulfillment/internal/fulfillment"
	"fulfillment/internal/infrastructure/logger"
	"fulfillment/internal/infrastructure/metrics"
	"fulfillment/internal/infrastructure/mysql"
	"fulfillment/internal/infrastructure/redis"
	"fulfillment/internal/infrastructure/storage"
	"fulfillment/internal/notification"
	"fulfillment/internal/notification/channel"
	"fulfillment/internal/order"
	"fulfillment/internal/payment"
	"fulfillment/internal/server"
	"fulfillment/internal/shipment"
	"fulfillment/internal/validation"
)

// orderCache is satisfied by both the Redis cache and the no-op cache.
type orderCache interface {
	Get(ctx context.Context, orderID string) (*domain.OrderDetail, error)
	Set(ctx context.Context, detail *domain.OrderDetail) error
	Invalidate(ctx context.Context, orderID string) error
}

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer logger.Sync(zapLogger)

	db, err := mysql.NewConnection(cfg.Database)
	if err != nil {
		zapLogger.Fatal("connecting to database", zap.Error(err))
	}
	zapLogger.Info("database connected")

	var (
		cache       orderCache = redis.NopOrderCache{}
		redisClient *goredis.Client
	)
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(cfg.Redis)
		if err != nil {
			zapLogger.Fatal("connecting to redis", zap.Error(err))
		}
		cache = redis.NewOrderCache(redisClient, cfg.Redis.DetailTTL)
		zapLogger.Info("redis order cache enabled")
	}

	store, err := storage.NewS3ArtifactStore(context.Background(), cfg.Storage, zapLogger)
	if err != nil {
		zapLogger.Fatal("creating label artifact store", zap.Error(err))
	}

	m := metrics.NewDefault()

	orderModule := order.NewModule(db, cache, zapLogger)

	paymentModule, err := payment.NewModule(db, cfg, nil, cache, m, zapLogger)
	if err != nil {
		zapLogger.Fatal("creating payment module", zap.Error(err))
	}

	shipmentModule, err := shipment.NewModule(db, cfg, orderModule.UseCase, store, cache, validation.New(), m, zapLogger)
	if err != nil {
		zapLogger.Fatal("creating shipment module", zap.Error(err))
	}

	sender, err := channel.NewHTTPSender(cfg.Notification, zapLogger)
	if err != nil {
		zapLogger.Fatal("creating notification sender", zap.Error(err))
	}
	dispatcher := notification.NewDispatcher(sender, m, zapLogger, cfg.Notification.ChannelTimeout, cfg.Notification.MaxConcurrency)

	fulfillmentModule := fulfillment.NewModule(cfg, paymentModule.UseCase, orderModule.UseCase, dispatcher, zapLogger)

	router := server.NewRouter(server.Handlers{
		VerifySession:   paymentModule.Controller.VerifySession,
		ConfirmCheckout: fulfillmentModule.Checkout.ConfirmCheckout,
		StripeWebhook:   fulfillmentModule.Webhook.HandleEvent,
		GetOrder:        orderModule.Controller.GetOrder,
		SetDimensions:   shipmentModule.Dimensions.SetDimensions,
		ShipmentStatus:  shipmentModule.Status.GetStatus,
		GenerateLabel:   shipmentModule.Labels.GenerateLabel,
		LabelArtifact:   shipmentModule.Labels.GetArtifact,
		CancelLabel:     shipmentModule.Labels.CancelLabel,
		RequestPickup:   shipmentModule.Pickups.RequestPickup,
		ConfirmPickup:   shipmentModule.Pickups.ConfirmPickup,
		Metrics:         m.Handler(),
		Ready:           db.PingContext,
	}, cfg.Server.RequestTimeout, zapLogger)

	srv := server.New(cfg.Server, router, zapLogger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			zapLogger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	zapLogger.Info("received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = srv.Shutdown(ctx)
	err = multierr.Append(err, db.Close())
	if redisClient != nil {
		err = multierr.Append(err, redisClient.Close())
	}
	if err != nil {
		zapLogger.Error("shutdown finished with errors", zap.Error(err))
		return
	}

	zapLogger.Info("server stopped gracefully")
}
