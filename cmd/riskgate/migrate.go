package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/davidleathers/change-risk-gate/internal/infrastructure/policystore"
)

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply the governance policy schema to the configured database",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{policystore.MigrateUp, policystore.MigrateDown},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := policystore.MigrateUp
			if len(args) == 1 {
				direction = args[0]
			}
			if a.cfg.Database.URL == "" {
				return fmt.Errorf("database.url is not configured")
			}

			version, err := policystore.Migrate(a.cfg.Database.URL, direction)
			if err != nil {
				return err
			}

			a.logger.Info("migration complete",
				zap.String("direction", direction),
				zap.Uint("version", version))
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
			return nil
		},
	}
}
