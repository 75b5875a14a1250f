package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"bodhi/internal/secrets"
	"bodhi/internal/setup"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the setup status of the application",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	application, err := openApplication(cmd)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	ctx := cmd.Context()
	controller := application.Services().Setup
	info, err := controller.Info(ctx)
	if err != nil {
		return err
	}
	reg, err := controller.Registration(ctx)
	if err != nil {
		return err
	}

	renderStatus(cmd.OutOrStdout(), info, reg)
	return nil
}

// renderStatus prints the app info and, when registered, the client
// identity. The client secret is never shown.
func renderStatus(w io.Writer, info setup.AppInfo, reg *secrets.AppRegistration) {
	t := newTable(w)
	t.AppendHeader(table.Row{text.FgHiCyan.Sprint("KEY"), text.FgHiCyan.Sprint("VALUE")})
	t.AppendRow(table.Row{"version", info.Version})
	t.AppendRow(table.Row{"authz", strconv.FormatBool(info.Authz)})
	t.AppendRow(table.Row{"status", statusColor(info.Status)})
	if reg != nil {
		t.AppendSeparator()
		t.AppendRow(table.Row{"issuer", reg.Issuer})
		t.AppendRow(table.Row{"client id", reg.ClientID})
		t.AppendRow(table.Row{"signing", reg.Alg + " " + reg.Kid})
	}
	t.Render()
}

func statusColor(status secrets.AppStatus) string {
	switch status {
	case secrets.StatusReady, secrets.StatusResourceAdmin:
		return text.FgGreen.Sprint(status)
	default:
		return text.FgYellow.Sprint(status)
	}
}

// newTable creates a table with standard styling.
func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}
