// AngelaMos | 2026
// migrate.go

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/carterperez-dev/voice-tutor/internal/config"
	"github.com/carterperez-dev/voice-tutor/internal/core"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply or roll back the embedded database migrations",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{string(core.MigrateUp), string(core.MigrateDown)},
	RunE: func(cmd *cobra.Command, args []string) error {
		direction := core.MigrateUp
		if len(args) == 1 {
			direction = core.MigrateDirection(args[0])
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		logger := setupLogger(cfg.Log)
		slog.SetDefault(logger)

		db, err := core.NewDatabase(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close() //nolint:errcheck

		if err := core.Migrate(db, direction); err != nil {
			return fmt.Errorf("migrate %s: %w", direction, err)
		}

		logger.Info("migrations applied", "direction", direction)
		return nil
	},
}
