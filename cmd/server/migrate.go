package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	pgInfra "github.com/fastygo/volunteers/internal/infrastructure/postgres"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply or roll back database migrations",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{pgInfra.DirectionUp, pgInfra.DirectionDown},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, zapLogger, err := bootstrap()
		if err != nil {
			return fail(err)
		}
		defer zapLogger.Sync()

		if err := pgInfra.Migrate(cfg, args[0], zapLogger); err != nil {
			zapLogger.Error("migration failed", zap.String("direction", args[0]), zap.Error(err))
			return err
		}
		return nil
	},
}
