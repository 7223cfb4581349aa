package cli

import (
	"github.com/spf13/cobra"

	"quizparty-service/internal/app"
	"quizparty-service/internal/config"
)

// NewCleanupCmd sweeps stale rooms once and exits.
func NewCleanupCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete rooms idle past the configured age",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			cfg, err := config.Load(*configPath)
			if err != nil {
				logger.Warn("config not loaded, using defaults", "path", *configPath, "error", err)
				cfg = config.Config{}
			}

			store, closeStore, err := buildStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			cache := app.NewSnapshotCache(store, logger)
			registry := app.NewRoomRegistry(cache, logger)
			maxAge := config.Duration(cfg.Game.StaleMaxAge, defaultStaleMaxAge)
			removed, err := registry.CleanupStaleRooms(cmd.Context(), maxAge)
			if err != nil {
				return err
			}
			logger.Info("cleanup done", "removed", removed, "max_age", maxAge)
			return nil
		},
	}
}
