// Package main applies the embedded Postgres and ClickHouse migrations.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tweet-price-lab/internal/config"
	"tweet-price-lab/internal/logging"
	"tweet-price-lab/internal/storage/migrations"
	pgstore "tweet-price-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml")
	skipPostgres := flag.Bool("skip-postgres", false, "Do not migrate Postgres")
	skipClickhouse := flag.Bool("skip-clickhouse", false, "Do not migrate ClickHouse")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !*skipPostgres {
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresURL)
		if err != nil {
			logger.Fatalf("Postgres: %v", err)
		}
		err = migrations.RunPostgresMigrations(ctx, pool)
		pool.Close()
		if err != nil {
			logger.Fatalf("Postgres migrations: %v", err)
		}
		logger.Info("postgres migrations applied")
	}

	if !*skipClickhouse {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickHouseDSN)
		if err != nil {
			logger.Fatalf("ClickHouse migrations: %v", err)
		}
		_ = conn.Close()
		logger.Info("clickhouse migrations applied")
	}
}
