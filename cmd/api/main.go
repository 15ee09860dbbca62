package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	c "github.com/shoaibhajj/E-shop/internal/cache"
	"github.com/shoaibhajj/E-shop/internal/config"
	"github.com/shoaibhajj/E-shop/internal/eventlog"
	"github.com/shoaibhajj/E-shop/internal/events"
	"github.com/shoaibhajj/E-shop/internal/health"
	h "github.com/shoaibhajj/E-shop/internal/http"
	"github.com/shoaibhajj/E-shop/internal/payment"
	"github.com/shoaibhajj/E-shop/internal/repository"
	s "github.com/shoaibhajj/E-shop/internal/service"
)

const healthCheckInterval = 15 * time.Second

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	zap.ReplaceGlobals(logger)

	// os.Exit skips deferred calls, so flush explicitly on both paths
	if err := run(cfg, logger); err != nil {
		logger.Error("api stopped with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// MongoDB
	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		return err
	}
	defer mongoDB.Client().Disconnect(context.Background())
	if err := repository.CreateIndexes(ctx, mongoDB); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	logger.Info("MongoDB connected", zap.String("database", cfg.MongoDBName))

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	logger.Info("Redis ping succeeded", zap.String("addr", cfg.RedisAddr))

	// Payment event ledger
	cred := &eventlog.Credentials{
		Host:              cfg.Postgres.Host,
		Port:              cfg.Postgres.Port,
		User:              cfg.Postgres.User,
		Password:          cfg.Postgres.Password,
		DBName:            cfg.Postgres.DBName,
		MigrationsDirPath: cfg.Postgres.MigrationsDirPath,
	}
	ledger, err := eventlog.NewRepository(cred)
	if err != nil {
		return err
	}
	defer ledger.Close()
	if err := ledger.RunMigrations(cred); err != nil {
		return err
	}
	logger.Info("payment event ledger migrations applied")

	carts := repository.NewCartRepository(mongoDB)
	products := repository.NewProductRepository(mongoDB)
	users := repository.NewUserRepository(mongoDB)
	cartCache := c.NewRedisCache(redisClient)

	cartService := s.NewCartService(carts, products, repository.NewCouponRepository(mongoDB), cartCache, logger)
	checkoutService := s.NewCheckoutService(s.CheckoutDependencies{
		Carts:    carts,
		Users:    users,
		Checkout: repository.NewCheckoutRepository(mongoDB),
		Cache:    cartCache,
		Provider: payment.NewClient(cfg.PaymentAPIURL, cfg.PaymentSecretKey, cfg.PaymentTimeout, logger),
		Ledger:   ledger,
	}, s.CheckoutConfig{
		TaxPrice:      cfg.TaxPrice,
		ShippingPrice: cfg.ShippingPrice,
		Currency:      cfg.Currency,
	}, logger)
	orderService := s.NewOrderService(repository.NewOrderRepository(mongoDB), logger)
	productService := s.NewProductService(products, cfg.BaseURL)

	router := h.NewRouter(h.Handlers{
		Auth:     h.NewAuthenticator(cfg.JWTSecret, users, logger),
		Cart:     h.NewCartHandler(cartService, cfg.RequestTimeout, logger),
		Orders:   h.NewOrdersHandler(checkoutService, orderService, cfg.BaseURL, cfg.RequestTimeout, logger),
		Products: h.NewProductHandler(productService, cfg.RequestTimeout, logger),
		Webhook: h.NewWebhookHandler(
			payment.NewVerifier(cfg.WebhookSecret, cfg.WebhookTolerance),
			checkoutService,
			cfg.MaxRequestBodySize,
			cfg.RequestTimeout,
			logger,
		),
	}, cfg.RequestTimeout, cfg.MaxRequestBodySize, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// gRPC health
	healthLis, err := net.Listen("tcp", ":"+cfg.GRPCHealthPort)
	if err != nil {
		return fmt.Errorf("failed to listen on health port: %w", err)
	}
	healthServer := health.NewServer(logger)

	serveErr := make(chan error, 2)
	go func() {
		logger.Info("API starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		logger.Info("gRPC health server starting", zap.String("port", cfg.GRPCHealthPort))
		if err := healthServer.Serve(healthLis); err != nil {
			serveErr <- fmt.Errorf("health server: %w", err)
		}
	}()

	// Order events are queued in the outbox by every checkout and relayed
	// to Kafka when brokers are configured.
	pollerCtx, stopPoller := context.WithCancel(context.Background())
	defer stopPoller()
	pollerDone := make(chan struct{})
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(cfg.OrderEventsTopic, cfg.KafkaBrokers...)
		defer kafkaPublisher.Close()
		poller := events.NewOutboxPoller(repository.NewOutboxRepository(mongoDB), kafkaPublisher, logger)
		go func() {
			defer close(pollerDone)
			poller.Run(pollerCtx)
		}()
		logger.Info("relaying order events", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.OrderEventsTopic))
	} else {
		close(pollerDone)
		logger.Warn("no kafka brokers configured, order events stay in the outbox")
	}

	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	defer stopMonitor()
	go healthServer.Monitor(monitorCtx, healthCheckInterval,
		health.Check{Name: "mongodb", Ping: func(ctx context.Context) error { return mongoDB.Client().Ping(ctx, nil) }},
		health.Check{Name: "redis", Ping: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
		health.Check{Name: "postgres", Ping: ledger.Ping},
	)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case runErr = <-serveErr:
		logger.Error("server failed, shutting down", zap.Error(runErr))
	}

	stopMonitor()
	healthServer.Shutdown()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	// The poller must be idle before the producer closes
	stopPoller()
	<-pollerDone

	logger.Info("server exited")
	return runErr
}
