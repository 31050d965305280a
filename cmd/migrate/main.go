package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ayo6706/payment-screening/internal/db"
	"github.com/ayo6706/payment-screening/internal/migrate"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "goose command: up|down|status|version|redo|reset")
	dbURL := flag.String("database-url", os.Getenv("DATABASE_URL"), "postgres connection string")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer logger.Sync()
	logger = logger.With(zap.String("cmd", *cmd))

	if *dbURL == "" {
		fmt.Fprintln(os.Stderr, "missing DATABASE_URL or -database-url")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := db.Connect(ctx, *dbURL, db.PoolOptions{MaxConns: 2, MinConns: 1})
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	defer pool.Close()

	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	if err := migrate.Run(ctx, sqlDB, *cmd, flag.Args()...); err != nil {
		logger.Error("migration failed", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("migration finished")
}
