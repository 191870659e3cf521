package main

import (
	"errors"

	"github.com/davidpm1021/dungeonsanddumbells/internal/catalog"
	"github.com/davidpm1021/dungeonsanddumbells/internal/config"
	"github.com/davidpm1021/dungeonsanddumbells/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <catalog.yaml>",
		Short: "Validate a catalog and upsert its storylets into the database",
		Args:  cobra.ExactArgs(1),
		RunE:  runSeed,
	}
}

func runSeed(cmd *cobra.Command, args []string) error {
	storylets, err := catalog.Load(args[0])
	if err != nil {
		return err
	}

	if err := config.Load(); err != nil {
		return err
	}
	dbURL := config.DatabaseURL()
	if dbURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	ctx := cmd.Context()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := store.Migrate(ctx, pool); err != nil {
		return err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	return catalog.Seed(ctx, store.NewStoryletStore(pool), storylets, logger)
}
