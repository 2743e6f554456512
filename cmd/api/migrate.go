package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/medrotation-api/migrations"
	"github.com/noah-isme/medrotation-api/pkg/config"
	"github.com/noah-isme/medrotation-api/pkg/database"
	"github.com/noah-isme/medrotation-api/pkg/logger"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Apply or inspect database migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logr, err := logger.New(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logr.Sync() //nolint:errcheck

			ctx := cmd.Context()
			db, err := database.NewPostgres(ctx, cfg.Database)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer db.Close()

			migrator := database.NewMigrator(db.DB, migrations.FS, ".", logr)
			switch args[0] {
			case "up":
				return migrator.Up(ctx)
			case "down":
				return migrator.Down(ctx)
			default:
				return migrator.Status(ctx)
			}
		},
	}
}
