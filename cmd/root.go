package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"bodhi/internal/app"
	"bodhi/internal/config"
	"bodhi/internal/setup"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAlreadySetup indicates setup was requested for an application
	// that has already been set up.
	ExitCodeAlreadySetup = 2
	// ExitCodeConfig indicates the configuration could not be loaded.
	ExitCodeConfig = 3
)

var (
	rootDebug bool
	rootHome  string
)

// rootCmd represents the base command for the bodhi application.
var rootCmd = &cobra.Command{
	Use:   "bodhi",
	Short: "Run and set up the bodhi application server",
	Long: `bodhi serves local language models behind a small HTTP API.

Before first use the application must be set up once, either in open mode
or registered as an OAuth client with an identity provider. Use 'bodhi setup'
or POST /app/setup on a running server.`,
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "bodhi version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
func getExitCode(err error) int {
	if setup.IsAlreadySetup(err) {
		return ExitCodeAlreadySetup
	}

	var cfgErr *config.ConfigurationError
	if errors.As(err, &cfgErr) {
		return ExitCodeConfig
	}

	return ExitCodeError
}

// openApplication loads configuration from the home directory selected by
// the global flags and initializes the services.
func openApplication(cmd *cobra.Command) (*app.Application, error) {
	cfg := app.NewConfig(rootDebug, rootHome, rootCmd.Version)
	return app.NewApplication(cmd.Context(), cfg)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&rootDebug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&rootHome, "home", "", "bodhi home directory (default $BODHI_HOME or ~/.cache/bodhi)")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSetupCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newTemplateCmd())
}
