// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SelfReg Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the selfreg CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "selfreg",
		Short: "selfreg - self-service member registration",
		Long: `selfreg is a self-service registration and authentication service:
signup with server-side validation, login with persistent "remember me"
identity, and a paginated member directory.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}
