package main

import (
	"context"
	"os"

	"studybuddy/internal/config"
	"studybuddy/internal/consul"
	"studybuddy/internal/kafka"
	"studybuddy/internal/logger"
	"studybuddy/internal/notify"
	"studybuddy/internal/querycache"
	"studybuddy/internal/server"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	log := logger.New("notifier-service")
	logger.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg := server.LoadConfig("notifier-service", 8088, "notifications", "kafka")

	kafkaCfg, err := kafka.LoadConfig()
	if err != nil {
		log.Error("Invalid Kafka configuration", "error", err)
		os.Exit(1)
	}

	rdb := querycache.ConnectRedisFromEnv(ctx)
	if rdb == nil {
		log.Error("Redis is required for delivery idempotency")
		os.Exit(1)
	}
	defer rdb.Close()

	dlq, err := kafka.NewProducer(kafkaCfg, log)
	if err != nil {
		log.Error("Failed to create DLQ producer", "error", err)
		os.Exit(1)
	}
	defer dlq.Close()

	processor := notify.NewProcessor(
		notify.NewSender(notify.LoadMailConfig(), log),
		notify.NewIdempotencyStore(rdb, log),
		config.GetEnvInt("NOTIFY_MAX_RETRIES", 3),
		config.GetEnvDuration("NOTIFY_RETRY_DELAY", 0),
		log,
	)

	consumer, err := notify.NewConsumer(kafkaCfg, processor, dlq, log)
	if err != nil {
		log.Error("Failed to create consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		if err := consumer.Start(ctx); err != nil {
			log.Error("Consumer stopped", "error", err)
			cancel()
		}
	}()

	router := server.NewEngine()
	router.GET("/health", server.Health("notifier-service", map[string]server.Check{
		"redis": server.PingCheck(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
	}))

	registrar, err := consul.RegistrarFromEnv()
	if err != nil {
		log.Error("Failed to create Consul client", "error", err)
		os.Exit(1)
	}

	err = server.Run(ctx, cfg, router, registrar)
	cancel()
	<-consumed
	if err != nil {
		log.Error("Notifier stopped", "error", err)
		os.Exit(1)
	}
}
