// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SelfReg Contributors

package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/selfreg/selfreg/internal/config"
	"github.com/selfreg/selfreg/internal/store"
)

// MigrationStatus describes the database schema state.
type MigrationStatus struct {
	Version uint   `json:"version"`
	Name    string `json:"name,omitempty"`
	Dirty   bool   `json:"dirty"`
	Pending []uint `json:"pending,omitempty"`
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	jsonOutput bool
}

// newStatusCmd creates the status subcommand with all flags configured.
func newStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show database migration status",
		Long:  `Show the applied schema version, dirty state, and pending migrations.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")

	return cmd
}

func runStatus(cmd *cobra.Command, cfg *statusConfig) error {
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

	version, dirty, err := migrator.Version()
	if err != nil {
		return err
	}
	name, err := store.MigrationName(version)
	if err != nil {
		return err
	}
	pending, err := migrator.PendingMigrations()
	if err != nil {
		return err
	}

	status := MigrationStatus{
		Version: version,
		Name:    name,
		Dirty:   dirty,
		Pending: pending,
	}

	if cfg.jsonOutput {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(formatStatusTable(status))
	return nil
}

// formatStatusTable formats the status as a human-readable table.
func formatStatusTable(status MigrationStatus) string {
	var buf []byte
	w := tabwriter.NewWriter((*byteWriter)(&buf), 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "VERSION\tNAME\tDIRTY\tPENDING")
	_, _ = fmt.Fprintln(w, "-------\t----\t-----\t-------")

	name := status.Name
	if name == "" {
		name = "-"
	}
	pending := "none"
	if len(status.Pending) > 0 {
		pending = fmt.Sprint(status.Pending)
	}
	_, _ = fmt.Fprintf(w, "%d\t%s\t%v\t%s\n", status.Version, name, status.Dirty, pending)

	_ = w.Flush()
	return string(buf)
}

// byteWriter is a simple writer that appends to a byte slice.
type byteWriter []byte

func (w *byteWriter) Write(p []byte) (int, error) {
	*w = append(*w, p...)
	return len(p), nil
}
