package main

import (
	"fmt"

	"cloudshare/internal/config"
	pg "cloudshare/internal/infra/db/postgres"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.LoadConfig(cfgPath, false)
			if err != nil {
				return err
			}
			applied, err := pg.Migrate(cfg.Database.URL)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			if applied {
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			}
			return nil
		},
	}
}
