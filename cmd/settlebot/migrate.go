package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		Long: `Apply the database schema of the configured storage backend.

Examples:
  settlebot migrate
  SETTLEBOT_STORAGE_DRIVER=postgres SETTLEBOT_STORAGE_DSN=postgres://... settlebot migrate`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			store, err := openStore(cmd.Context(), cfg.Storage)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer store.Close()

			slog.Info("Schema is up to date", "driver", cfg.Storage.Driver)
			return nil
		},
	}
}
