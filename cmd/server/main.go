package main

import (
	"os"
	"time"

	"github.com/erauner12/finsync-api/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "finsync",
	Short:         "Sync server for expenses, budgets and bills",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(newServeCmd(), newMigrateCmd(), newPruneCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// setupLogging configures the global logger from the app settings
func setupLogging(app config.App) {
	// Configure structured logging
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.With().Str("service", app.Service).Str("version", app.Version).Logger()

	// Pretty logging for local dev
	if app.IsDev() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}

	level, err := zerolog.ParseLevel(app.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// log.Ctx falls back to the global logger when a context carries none
	zerolog.DefaultContextLogger = &log.Logger
}
