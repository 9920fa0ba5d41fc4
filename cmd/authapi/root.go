package main

import (
	"github.com/spf13/cobra"
)

const serviceName = "auth-api"

// NewRootCmd creates the root command for the auth API CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authapi",
		Short: "API Login - user authentication and role authorization",
		Long: `API Login issues bearer tokens for registered users, handles password
change and email recovery, and lets administrators manage accounts and roles.

Configuration is read from the environment and an optional .env file.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
