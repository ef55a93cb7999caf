package main

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/orderdesk/orderdesk/libs/config"
	"github.com/orderdesk/orderdesk/libs/db"
	"github.com/orderdesk/orderdesk/libs/httpx"
	"github.com/orderdesk/orderdesk/libs/kafkax"
	otelx "github.com/orderdesk/orderdesk/libs/otel"
	"github.com/orderdesk/orderdesk/libs/runtime"
	"github.com/orderdesk/orderdesk/services/order-service/internal/handlers"
	"github.com/orderdesk/orderdesk/services/order-service/internal/outbox"
	"github.com/orderdesk/orderdesk/services/order-service/internal/pricing"
	"github.com/orderdesk/orderdesk/services/order-service/internal/storage"
	"github.com/orderdesk/orderdesk/services/order-service/internal/uow"
)

func main() {
	_ = godotenv.Load()

	service := config.String("SERVICE_NAME", "order-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	checks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	brokers := config.String("KAFKA_BROKERS", "")
	if brokers != "" {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	mux := runtime.NewBaseMuxWithReady(checks...)

	unit := uow.New(pool, logger)
	catalog := pricing.NewCatalog()
	orderRepo := storage.NewOrderRepository(pool)
	paymentRepo := storage.NewPaymentRepository(pool)

	orderHandler := handlers.NewOrderHandler(unit, orderRepo, catalog, logger)
	paymentHandler := handlers.NewPaymentHandler(unit, paymentRepo, logger)
	mux.HandleFunc("/api/v1/orders", orderHandler.Orders)
	mux.HandleFunc("/api/v1/orders/items", orderHandler.Items)
	mux.HandleFunc("/api/v1/payments", paymentHandler.Payments)

	if config.Bool("OUTBOX_DISPATCHER_EMBEDDED", false) {
		deliver, closeDelivery := buildDelivery(brokers, logger)
		defer closeDelivery()
		dispatcher := outbox.NewDispatcher(pool, outbox.NewRepository(), deliver, logger, outbox.DispatcherConfig{
			BatchSize:    config.Int("OUTBOX_BATCH_SIZE", 100),
			PollInterval: config.DurationMS("OUTBOX_POLL_INTERVAL_MS", 5*time.Second),
			Backoff:      config.DurationMS("OUTBOX_BACKOFF_MS", 5*time.Second),
		})
		go dispatcher.Run(ctx)
	}

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(strings.Split(config.String("CORS_ALLOWED_ORIGINS", ""), ",")),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(15*time.Second),
		rateLimit(logger),
	)
	handler = otelhttp.NewHandler(handler, "orders")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

// rateLimit picks the Redis-backed limiter when REDIS_ADDR is set, otherwise
// the in-process one. The Redis limiter fails open so a Redis outage does not
// take down order intake.
func rateLimit(logger *slog.Logger) httpx.Middleware {
	limit := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		return httpx.NewRedisRateLimiter(rdb, limit, time.Minute, "orders").Middleware(logger, true)
	}
	return httpx.NewRateLimiter(limit, time.Minute).Middleware()
}

func buildDelivery(brokers string, logger *slog.Logger) (outbox.DeliveryFunc, func()) {
	if brokers == "" {
		return outbox.LogDelivery(logger), func() {}
	}
	routes := outbox.DefaultTopicRoutes()
	if path := config.String("OUTBOX_TOPICS_FILE", ""); path != "" {
		loaded, err := outbox.LoadTopicRoutes(path)
		if err != nil {
			logger.Error("loading topic routes failed, using defaults", "err", err)
		} else {
			routes = loaded
		}
	}
	kd := outbox.NewKafkaDelivery(kafkax.SplitBrokers(brokers), routes, logger)
	return kd.Deliver, func() { _ = kd.Close() }
}
