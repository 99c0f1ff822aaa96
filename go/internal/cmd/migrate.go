package main

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/econempire/go/internal/dbconfig"
	"github.com/mcdev12/econempire/go/internal/migrations"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := dbconfig.NewConfigFromEnv()

			pool, err := pgxpool.New(ctx, cfg.DSN())
			if err != nil {
				return fmt.Errorf("failed to connect: %w", err)
			}
			defer pool.Close()

			// No arguments: pgx sends the statements as one simple query.
			if _, err := pool.Exec(ctx, migrations.Schema); err != nil {
				return fmt.Errorf("failed to apply schema: %w", err)
			}
			log.Info().Str("database", cfg.Redacted()).Msg("schema applied")
			return nil
		},
	}
}
