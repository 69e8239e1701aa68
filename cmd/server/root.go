package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fastygo/volunteers/internal/config"
	"github.com/fastygo/volunteers/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:           "volunteers",
	Short:         "Volunteer coordination API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

// bootstrap loads configuration and builds the process logger.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config error: %w", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("logger error: %w", err)
	}
	zapLogger = zapLogger.With(zap.String("app", cfg.AppName), zap.String("env", cfg.Environment))
	return cfg, zapLogger, nil
}

func fail(err error) error {
	fmt.Fprintln(os.Stderr, err)
	return err
}
