package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the bodhi HTTP server",
		Long: `Starts the bodhi HTTP server on the configured host and port.

The server exposes:
  GET  /ping        health check
  GET  /app/info    version, authorization mode and setup status
  POST /app/setup   one-time setup ({"authz": true|false})
  GET  /app/login   redirect to the identity provider

Alias files in the aliases directory are reloaded when they change.
The server stops on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	application, err := openApplication(cmd)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	return application.Run(cmd.Context())
}
