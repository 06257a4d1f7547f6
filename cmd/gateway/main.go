package main

import (
	"context"
	"os"

	"studybuddy/internal/consul"
	"studybuddy/internal/gateway"
	"studybuddy/internal/logger"
	"studybuddy/internal/querycache"
	"studybuddy/internal/server"
	"studybuddy/internal/session"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	log := logger.New("api-gateway")
	logger.SetDefault(log)

	ctx := context.Background()
	cfg := server.LoadConfig("api-gateway", 8080, "gateway", "http")

	// the gateway cannot route without consul, so it is never optional here
	consulClient, err := consul.NewClientFromEnv()
	if err != nil {
		log.Error("Failed to create Consul client", "error", err)
		os.Exit(1)
	}

	rdb := querycache.ConnectRedisFromEnv(ctx)
	if rdb == nil {
		log.Error("Redis is required for sessions")
		os.Exit(1)
	}
	defer rdb.Close()

	sessions := session.NewManager(session.NewRedisStore(rdb))
	router := gateway.SetupRouter(consulClient, sessions)

	log.Info("Starting API Gateway", "port", cfg.Port)
	if err := server.Run(ctx, cfg, router, consulClient); err != nil {
		log.Error("Gateway stopped", "error", err)
		os.Exit(1)
	}
}
