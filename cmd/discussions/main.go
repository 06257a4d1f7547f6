package main

import (
	"context"
	"errors"
	"os"
	"time"

	"studybuddy/internal/config"
	"studybuddy/internal/consul"
	"studybuddy/internal/database"
	"studybuddy/internal/discussions"
	"studybuddy/internal/logger"
	"studybuddy/internal/querycache"
	"studybuddy/internal/realtime"
	"studybuddy/internal/server"
	"studybuddy/internal/storage"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	log := logger.New("discussions-service")
	logger.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg := server.LoadConfig("discussions-service", 8086, "discussions", "realtime")

	db, err := database.Open(ctx)
	if err != nil {
		log.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	storeCfg, err := storage.LoadConfig()
	if err != nil {
		log.Error("Invalid storage configuration", "error", err)
		os.Exit(1)
	}
	store, err := storage.New(ctx, storeCfg)
	if err != nil {
		log.Error("Failed to initialize object storage", "driver", storeCfg.Driver, "error", err)
		os.Exit(1)
	}

	checks := map[string]server.Check{
		"database": db.Health,
		"storage":  server.PingCheck(store.Health),
	}

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

	events := realtime.NewPGNotifier(db.Pool(), nil, log)
	go func() {
		if err := events.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Event listener stopped", "error", err)
		}
	}()
	hub := realtime.NewHub(events, config.GetEnvList("CORS_ORIGINS", nil), log)

	svc := discussions.NewService(discussions.NewRepository(db), cache, events, store, log)
	router := discussions.SetupRouter(svc, hub, server.Health("discussions-service", checks))

	registrar, err := consul.RegistrarFromEnv()
	if err != nil {
		log.Error("Failed to create Consul client", "error", err)
		os.Exit(1)
	}

	if err := server.Run(ctx, cfg, router, registrar); err != nil {
		log.Error("Discussions service stopped", "error", err)
		os.Exit(1)
	}
}
