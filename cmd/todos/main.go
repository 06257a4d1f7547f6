package main

import (
	"context"
	"os"

	"studybuddy/internal/consul"
	"studybuddy/internal/database"
	"studybuddy/internal/logger"
	"studybuddy/internal/server"
	"studybuddy/internal/todos"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	log := logger.New("todos-service")
	logger.SetDefault(log)

	ctx := context.Background()
	cfg := server.LoadConfig("todos-service", 8087, "todos", "study-time")

	db, err := database.Open(ctx)
	if err != nil {
		log.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	svc := todos.NewService(todos.NewRepository(db))
	router := todos.SetupRouter(svc, server.Health("todos-service", map[string]server.Check{"database": db.Health}))

	registrar, err := consul.RegistrarFromEnv()
	if err != nil {
		log.Error("Failed to create Consul client", "error", err)
		os.Exit(1)
	}

	if err := server.Run(ctx, cfg, router, registrar); err != nil {
		log.Error("Todos service stopped", "error", err)
		os.Exit(1)
	}
}
