package main

import (
	"context"
	"os"
	"time"

	"studybuddy/internal/comments"
	"studybuddy/internal/config"
	"studybuddy/internal/consul"
	"studybuddy/internal/database"
	"studybuddy/internal/logger"
	"studybuddy/internal/notify"
	"studybuddy/internal/querycache"
	"studybuddy/internal/server"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	log := logger.New("comments-service")
	logger.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg := server.LoadConfig("comments-service", 8085, "comments", "social")

	db, err := database.Open(ctx)
	if err != nil {
		log.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	checks := map[string]server.Check{"database": db.Health}

	rdb := querycache.ConnectRedisFromEnv(ctx)
	if rdb != nil {
		defer rdb.Close()
		checks["redis"] = server.PingCheck(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}

	cache, err := querycache.New(querycache.Options{
		Redis:    rdb,
		TTL:      config.GetEnvDuration("CACHE_TTL", 0),
		LocalTTL: config.GetEnvDuration("CACHE_LOCAL_TTL", 5*time.Second),
		Logger:   log,
	})
	if err != nil {
		log.Error("Failed to create cache", "error", err)
		os.Exit(1)
	}
	go cache.Run(ctx)

	publisher, closePublisher := notify.PublisherFromEnv(log)
	defer closePublisher()

	svc := comments.NewService(comments.NewStore(db), cache, publisher, log)
	router := comments.SetupRouter(svc, server.Health("comments-service", checks))

	registrar, err := consul.RegistrarFromEnv()
	if err != nil {
		log.Error("Failed to create Consul client", "error", err)
		os.Exit(1)
	}

	if err := server.Run(ctx, cfg, router, registrar); err != nil {
		log.Error("Comments service stopped", "error", err)
		os.Exit(1)
	}
}
