package main

import (
	"fmt"

	"github.com/erauner12/finsync-api/internal/config"
	"github.com/erauner12/finsync-api/internal/db"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
	}
	flags := config.BindFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadStorage(flags)
		if err != nil {
			return err
		}
		setupLogging(cfg.App)
		if cfg.Storage.Driver != config.DriverPostgres {
			return fmt.Errorf("migrate requires the postgres driver, got %q", cfg.Storage.Driver)
		}

		pool, err := openPool(cmd.Context(), cfg.Storage)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := db.MigratePool(pool); err != nil {
			return err
		}
		log.Info().Msg("migrations applied")
		return nil
	}
	return cmd
}
