package main

import (
	"context"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"storefront/config"
	"storefront/internal/store"
	"storefront/internal/util"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate [up|down] [dir]")
	}

	direction := os.Args[1]
	dir := "migrations"
	if len(os.Args) > 2 {
		dir = os.Args[2]
	}

	cfg := config.Load()
	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()
	logger := util.GetLogger()

	db, err := store.NewStore(cfg.Database.URL, store.DefaultPoolConfig())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	n, err := db.Migrate(ctx, dir, direction)
	if err != nil {
		logger.Fatal("Migration failed", zap.Error(err))
	}

	logger.Info("Migrations applied", zap.Int("count", n), zap.String("direction", direction))
}
