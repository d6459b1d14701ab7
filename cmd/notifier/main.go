package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/detailerapp/backend/internal/server"
	"github.com/detailerapp/backend/internal/server/config"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	ctx := context.Background()
	cfg := config.LoadConfig()

	worker, err := server.NewWorker(ctx, cfg)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	if err := worker.Run(ctx); err != nil {
		log.Printf("%v", err)
	}
}
