package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var setupAuthz bool

func newSetupCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "setup",
		Short: "Set up the application once",
		Long: `Moves the application out of the setup state.

With --authz (the default) bodhi registers itself as an OAuth client with
the configured identity provider and stores the credentials; the status
becomes resource-admin. With --authz=false the application runs without
authorization and the status becomes ready.

Setup can only run once.`,
		Args: cobra.NoArgs,
		RunE: runSetup,
	}
	c.Flags().BoolVar(&setupAuthz, "authz", true, "Register with the identity provider")
	return c
}

func runSetup(cmd *cobra.Command, args []string) error {
	application, err := openApplication(cmd)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	result, err := application.Services().Setup.Setup(cmd.Context(), setupAuthz)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Setup complete, status: %s\n", text.FgGreen.Sprint(result.Status))
	return nil
}
