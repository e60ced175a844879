package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/messenger-server/internal/app"
	"github.com/vovakirdan/messenger-server/internal/config"
	applog "github.com/vovakirdan/messenger-server/internal/log"
)

var (
	configPath string
	overrides  config.Config
)

var rootCmd = &cobra.Command{
	Use:          "messenger-server",
	Short:        "Real-time chat relay with message history",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		bootLogger := applog.New(overrides.LogLevel)

		cfg, resolved, err := config.Load(bootLogger, configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg.UpdateFrom(overrides)

		logger := applog.New(cfg.LogLevel)
		logger.Info().Str("config", resolved).Msg("configuration loaded")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		application, err := app.New(ctx, &cfg, logger)
		if err != nil {
			return err
		}

		logger.Info().Str("addr", cfg.ListenAddr()).Msg("starting messenger server")
		if err := application.Run(ctx); err != nil {
			return fmt.Errorf("server exited with error: %w", err)
		}
		logger.Info().Msg("server stopped")
		return nil
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "path to the YAML config file")
	flags.StringVar(&overrides.Addr, "addr", "", "HTTP listen address, overrides port")
	flags.IntVarP(&overrides.Port, "port", "p", 0, "HTTP listen port")
	flags.StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&overrides.MongoURI, "mongodb-uri", "", "MongoDB connection string")
	flags.StringVar(&overrides.DatabasePath, "database-path", "", "SQLite database file")
}
