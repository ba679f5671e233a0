package main

import (
	"context"
	"fmt"
	"os"

	"github.com/caarlos0/env/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"veinwise/internal/config"
	"veinwise/internal/db"
)

// adminEnv es el subconjunto de configuracion que necesitan los comandos de mantenimiento.
type adminEnv struct {
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
}

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "veinwise-admin",
		Short:         "Maintenance commands for the VeinWise auth service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		migrateCmd(),
		createUserCmd(),
		hashPasswordCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	var cfg adminEnv
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	pool, err := db.NewPool(ctx, &config.Config{DatabaseURL: cfg.DatabaseURL})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := db.Ping(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
