// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SelfReg Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/selfreg/selfreg/internal/config"
	"github.com/selfreg/selfreg/internal/store"
)

// migrateConfig holds configuration for the migrate command.
type migrateConfig struct {
	down  bool
	force int
}

// newMigrateCmd creates the migrate subcommand.
func newMigrateCmd() *cobra.Command {
	cfg := &migrateConfig{force: -1}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Apply all pending database migrations against the PostgreSQL database.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd, cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.down, "down", false, "roll back all migrations (destructive)")
	cmd.Flags().IntVar(&cfg.force, "force", -1, "force the migration version without running migrations")

	return cmd
}

func runMigrate(cmd *cobra.Command, cfg *migrateConfig) error {
	appCfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}
	if err := appCfg.Validate(); err != nil {
		return err
	}

	migrator, err := store.NewMigrator(appCfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer migrator.Close() //nolint:errcheck // close error is not actionable here

	switch {
	case cfg.force >= 0:
		if err := migrator.Force(cfg.force); err != nil {
			return err
		}
		cmd.Printf("Forced migration version to %d\n", cfg.force)
	case cfg.down:
		if err := migrator.Down(); err != nil {
			return err
		}
		cmd.Println("Rolled back all migrations")
	default:
		if err := migrator.Up(); err != nil {
			return err
		}
		cmd.Println("Migrations completed successfully")
	}
	return nil
}
