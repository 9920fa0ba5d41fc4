package main

import (
	"github.com/spf13/cobra"

	"github.com/apilogin/auth-api/internal/infrastructure/config"
	"github.com/apilogin/auth-api/pkg/logger"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the storage schema",
		Long: `Apply the embedded PostgreSQL migrations, or create the MongoDB indexes,
and seed the built-in Administrator and User roles.`,
		RunE: runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.IsDevelopment(), Service: serviceName, Version: version})

	b, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.close()

	if err := b.migrate(ctx); err != nil {
		return err
	}
	log.Info().Str("driver", b.name).Msg("schema is up to date")
	return nil
}
