package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bodhi/internal/secrets"
	"bodhi/internal/setup"
	"bodhi/pkg/chat"
)

// executeRoot runs the root command with args against a fresh home
// directory and returns its output.
func executeRoot(t *testing.T, home string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("BODHI_HUB_CACHE_DIR", filepath.Join(home, "hub"))

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(append([]string{"--home", home}, args...))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		rootHome = ""
		setupAuthz = true
		templateQuiet = false
	})

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestSetupAndStatusCommands(t *testing.T) {
	home := t.TempDir()

	out, err := executeRoot(t, home, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "status")
	assert.Contains(t, out, "setup")

	out, err = executeRoot(t, home, "setup", "--authz=false")
	require.NoError(t, err)
	assert.Contains(t, out, "Setup complete")
	assert.Contains(t, out, "ready")

	_, err = executeRoot(t, home, "setup", "--authz=false")
	require.Error(t, err)
	assert.True(t, setup.IsAlreadySetup(err))
	assert.Equal(t, ExitCodeAlreadySetup, getExitCode(err))

	out, err = executeRoot(t, home, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "ready")
	assert.Contains(t, out, "false")
}

func TestSetupCommand_AuthzWithoutProvider(t *testing.T) {
	home := t.TempDir()

	_, err := executeRoot(t, home, "setup")
	require.Error(t, err)
	assert.Equal(t, setup.KindValidation, setup.KindOf(err))
}

func TestTemplateCommands_Embedded(t *testing.T) {
	home := t.TempDir()
	aliases := filepath.Join(home, "aliases")
	require.NoError(t, os.MkdirAll(aliases, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(aliases, "tiny.yaml"), []byte(`alias: tiny
repo: owner/tiny-GGUF
filename: tiny.gguf
chat_template: embedded
embedded_template:
  chat_template: "{{ messages }}"
  eos_token: "</s>"
`), 0o600))

	out, err := executeRoot(t, home, "template", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "tiny")
	assert.Contains(t, out, "embedded")

	out, err = executeRoot(t, home, "template", "show", "tiny")
	require.NoError(t, err)
	assert.Contains(t, out, "{{ messages }}")
	assert.Contains(t, out, "</s>")

	out, err = executeRoot(t, home, "template", "pull", "--quiet", "tiny")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to download")
}

func TestTemplateShow_UnknownAlias(t *testing.T) {
	_, err := executeRoot(t, t.TempDir(), "template", "show", "missing")
	require.Error(t, err)
}

func TestRenderTemplateIDs(t *testing.T) {
	var buf bytes.Buffer
	renderTemplateIDs(&buf)

	out := buf.String()
	assert.Contains(t, out, "llama3")
	assert.Contains(t, out, "tinyllama")
}

func TestRenderStatus(t *testing.T) {
	var buf bytes.Buffer
	renderStatus(&buf, setup.AppInfo{Version: "1.0.0", Authz: true, Status: secrets.StatusResourceAdmin}, &secrets.AppRegistration{
		Issuer:       "https://id.example.com/realms/bodhi",
		ClientID:     "client-123",
		ClientSecret: "top-secret",
		Alg:          "RS256",
		Kid:          "kid-1",
	})

	out := buf.String()
	assert.Contains(t, out, "1.0.0")
	assert.Contains(t, out, "resource-admin")
	assert.Contains(t, out, "client-123")
	assert.NotContains(t, out, "top-secret")
}

func TestRenderTemplate_Named(t *testing.T) {
	tmpl := &chat.Template{
		ChatTemplate: chat.Versions{Named: []chat.NamedTemplate{
			{Name: "default", Template: "A"},
			{Name: "tool_use", Template: "B"},
		}},
		BosToken: "<s>",
	}

	var buf bytes.Buffer
	renderTemplate(&buf, tmpl)

	out := buf.String()
	assert.Contains(t, out, "<s>")
	assert.Contains(t, out, "tool_use")
	assert.Contains(t, out, "B")
}
