package main

import (
	"log/slog"
	"time"

	"github.com/joho/godotenv"

	"github.com/orderdesk/orderdesk/libs/config"
	"github.com/orderdesk/orderdesk/libs/db"
	"github.com/orderdesk/orderdesk/libs/kafkax"
	otelx "github.com/orderdesk/orderdesk/libs/otel"
	"github.com/orderdesk/orderdesk/libs/runtime"
	"github.com/orderdesk/orderdesk/services/order-service/internal/outbox"
)

// Standalone outbox dispatcher. Run as many instances as needed; the
// skip-locked claim keeps them from double-delivering within a cycle.
func main() {
	_ = godotenv.Load()

	service := config.String("SERVICE_NAME", "outbox-dispatcher")
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() { _ = otelShutdown(ctx) }()
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

	deliver, closeDelivery := buildDelivery(logger)
	defer closeDelivery()

	dispatcher := outbox.NewDispatcher(pool, outbox.NewRepository(), deliver, logger, outbox.DispatcherConfig{
		BatchSize:    config.Int("OUTBOX_BATCH_SIZE", 100),
		PollInterval: config.DurationMS("OUTBOX_POLL_INTERVAL_MS", 5*time.Second),
		Backoff:      config.DurationMS("OUTBOX_BACKOFF_MS", 5*time.Second),
	})
	dispatcher.Run(ctx)
}

func buildDelivery(logger *slog.Logger) (outbox.DeliveryFunc, func()) {
	brokers := config.String("KAFKA_BROKERS", "")
	if brokers == "" {
		logger.Warn("KAFKA_BROKERS not set, delivering to log only")
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
