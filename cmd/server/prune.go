package main

import (
	"github.com/erauner12/finsync-api/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newPruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune-tombstones",
		Short: "Delete tombstones older than the retention window",
	}
	flags := config.BindFlags(cmd)
	retention := cmd.Flags().Duration("retention", 0, "override SYNC_TOMBSTONE_RETENTION")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadStorage(flags)
		if err != nil {
			return err
		}
		setupLogging(cfg.App)
		if *retention > 0 {
			cfg.Sync.TombstoneRetention = *retention
		}

		s, closeStorage, err := openStorage(cmd.Context(), cfg.Storage)
		if err != nil {
			return err
		}
		defer closeStorage()

		removed, err := newEngine(s, cfg.Sync, nil).PruneTombstones(cmd.Context())
		if err != nil {
			return err
		}
		log.Info().Int("removed", removed).Dur("retention", cfg.Sync.TombstoneRetention).Msg("tombstones pruned")
		return nil
	}
	return cmd
}
