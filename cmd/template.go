package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"bodhi/internal/chattemplate"
	"bodhi/internal/hub"
	"bodhi/pkg/chat"
)

var templateQuiet bool

func newTemplateCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "template",
		Short: "Inspect and fetch chat templates",
	}
	c.PersistentFlags().BoolVarP(&templateQuiet, "quiet", "q", false, "Suppress progress output")
	c.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List model aliases and their chat template source",
			Args:  cobra.NoArgs,
			RunE:  runTemplateList,
		},
		&cobra.Command{
			Use:   "ids",
			Short: "List the known chat template ids",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				renderTemplateIDs(cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "pull <alias>",
			Short: "Download the tokenizer configuration an alias needs",
			Args:  cobra.ExactArgs(1),
			RunE:  runTemplatePull,
		},
		&cobra.Command{
			Use:   "show <alias>",
			Short: "Resolve and print the chat template of an alias",
			Long: `Resolves the chat template of an alias from the local cache or the
alias file and prints it. Run 'bodhi template pull <alias>' first for
templates that come from a model repository.`,
			Args: cobra.ExactArgs(1),
			RunE: runTemplateShow,
		},
	)
	return c
}

func runTemplateList(cmd *cobra.Command, args []string) error {
	application, err := openApplication(cmd)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	aliases := application.Services().Hub.List()
	if len(aliases) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", text.FgYellow.Sprint("No aliases found"))
		return nil
	}

	t := newTable(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"ALIAS", "REPO", "FILENAME", "CHAT TEMPLATE"})
	for _, a := range aliases {
		t.AppendRow(table.Row{a.Alias, a.Repo, a.Filename, a.ChatTemplate})
	}
	t.Render()
	return nil
}

func renderTemplateIDs(w io.Writer) {
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "REPO"})
	for _, id := range chattemplate.IDs() {
		repo, _ := id.Repo()
		t.AppendRow(table.Row{string(id), repo.String()})
	}
	t.Render()
}

func runTemplatePull(cmd *cobra.Command, args []string) error {
	application, err := openApplication(cmd)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	services := application.Services()
	a, ok := services.Hub.Get(args[0])
	if !ok {
		return &hub.UnknownAliasError{Alias: args[0]}
	}
	src, err := chattemplate.ParseSource(a.ChatTemplate)
	if err != nil {
		return err
	}

	var s *spinner.Spinner
	if !templateQuiet {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Writer = cmd.ErrOrStderr()
		s.Suffix = fmt.Sprintf(" Fetching chat template %s...", src)
		s.Start()
	}

	file, err := services.Templates.EnsureAvailable(cmd.Context(), src)
	if s != nil {
		if err != nil {
			s.FinalMSG = text.FgRed.Sprint("Failed to fetch chat template") + "\n"
		}
		s.Stop()
	}
	if err != nil {
		return err
	}

	if file == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Alias %s uses an embedded chat template, nothing to download\n", a.Alias)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", text.FgGreen.Sprint("Downloaded"), file.Path())
	return nil
}

func runTemplateShow(cmd *cobra.Command, args []string) error {
	application, err := openApplication(cmd)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	tmpl, err := application.Services().Templates.ResolveAlias(cmd.Context(), args[0])
	if err != nil {
		if chattemplate.KindOf(err) == chattemplate.KindNotFound {
			return fmt.Errorf("%w (run 'bodhi template pull %s')", err, args[0])
		}
		return err
	}

	renderTemplate(cmd.OutOrStdout(), tmpl)
	return nil
}

func renderTemplate(w io.Writer, tmpl *chat.Template) {
	if tmpl.BosToken != "" {
		fmt.Fprintf(w, "%s %s\n", text.FgHiCyan.Sprint("bos_token:"), tmpl.BosToken)
	}
	if tmpl.EosToken != "" {
		fmt.Fprintf(w, "%s %s\n", text.FgHiCyan.Sprint("eos_token:"), tmpl.EosToken)
	}
	for _, name := range tmpl.ChatTemplate.Names() {
		body, _ := tmpl.ChatTemplate.Lookup(name)
		fmt.Fprintf(w, "%s\n%s\n", text.FgHiCyan.Sprintf("chat_template (%s):", name), body)
	}
}
