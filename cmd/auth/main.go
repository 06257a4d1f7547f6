package main

import (
	"context"
	"os"

	"studybuddy/internal/auth"
	"studybuddy/internal/consul"
	"studybuddy/internal/database"
	"studybuddy/internal/logger"
	"studybuddy/internal/notify"
	"studybuddy/internal/querycache"
	"studybuddy/internal/server"
	"studybuddy/internal/session"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	log := logger.New("auth-service")
	logger.SetDefault(log)

	ctx := context.Background()
	cfg := server.LoadConfig("auth-service", 8081, "auth", "identity")

	db, err := database.Open(ctx)
	if err != nil {
		log.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb := querycache.ConnectRedisFromEnv(ctx)
	if rdb == nil {
		log.Error("Redis is required for sessions")
		os.Exit(1)
	}
	defer rdb.Close()

	publisher, closePublisher := notify.PublisherFromEnv(log)
	defer closePublisher()

	store := session.NewRedisStore(rdb)
	svc := auth.NewService(auth.NewRepository(db), publisher, log)
	h := auth.NewHandler(svc, session.NewManager(store), auth.NewStateStore(store), auth.LoadProviders(), auth.LoadCookieConfig())

	health := server.Health("auth-service", map[string]server.Check{
		"database": db.Health,
		"redis":    server.PingCheck(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
	})

	registrar, err := consul.RegistrarFromEnv()
	if err != nil {
		log.Error("Failed to create Consul client", "error", err)
		os.Exit(1)
	}

	if err := server.Run(ctx, cfg, auth.SetupRouter(h, health), registrar); err != nil {
		log.Error("Auth service stopped", "error", err)
		os.Exit(1)
	}
}
