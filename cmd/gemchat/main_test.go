package main

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gemchat/internal/chat"
	"gemchat/internal/session"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupCLI isolates HOME, the working directory and the database for one test.
func setupCLI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	for _, name := range []string{"GEMCHAT_STORE", "GEMCHAT_MODEL", "GEMCHAT_CONTEXT_LENGTH", "GEMCHAT_API_KEY",
		"GEMINI_API_KEY", "GOOGLE_API_KEY", "GEMCHAT_BASE_URL", "GEMCHAT_LOG_LEVEL", "GEMCHAT_RENDER_STYLE"} {
		t.Setenv(name, "")
	}
	t.Setenv("GEMCHAT_DB_PATH", filepath.Join(dir, "gemchat.db"))
	t.Setenv("GEMCHAT_RENDER_STYLE", "notty")
	t.Chdir(dir)
	return dir
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() { resetFlags(rootCmd) })

	err := rootCmd.Execute()
	resetFlags(rootCmd)
	return out.String(), err
}

// fakeGemini answers generateContent with text, or fails with status when non-zero.
func fakeGemini(t *testing.T, text string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, ":generateContent"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		if status != 0 {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"code":500,"message":"boom","status":"INTERNAL"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"` + text + `"}]}}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVersionCommand(t *testing.T) {
	setupCLI(t)

	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "gemchat v")
}

func TestSendAndSessions(t *testing.T) {
	dir := setupCLI(t)
	t.Setenv("GEMINI_API_KEY", "test-key")
	srv := fakeGemini(t, "Hello from test", 0)

	out, err := execute(t, "", "send", "--raw", "--base-url", srv.URL, "hi", "there")
	require.NoError(t, err)
	assert.Equal(t, "Hello from test\n", out)

	out, err = execute(t, "", "sessions", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "default *")
	assert.Contains(t, out, "2 messages")

	out, err = execute(t, "", "export")
	require.NoError(t, err)
	exportPath := filepath.Join(dir, "gemini_chat_history_default.json")
	assert.Contains(t, out, exportPath)
	exported, err := os.ReadFile(exportPath)
	require.NoError(t, err)

	out, err = execute(t, "", "transcript", "--format", "json", "--output", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `"content": "hi there"`)

	_, err = execute(t, "", "sessions", "new", "work")
	require.NoError(t, err)
	_, err = execute(t, "", "sessions", "rename", "job")
	require.NoError(t, err)

	out, err = execute(t, "", "sessions", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "job *")

	out, err = execute(t, "n\n", "sessions", "delete", "job")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled.")

	out, err = execute(t, "", "sessions", "delete", "--yes", "job")
	require.NoError(t, err)
	assert.Contains(t, out, "Active session: default")

	_, err = execute(t, "", "sessions", "use", "ghost")
	assert.Error(t, err)

	out, err = execute(t, "", "export", "-")
	require.NoError(t, err)
	assert.Equal(t, string(exported), out)
}

func TestSendFailure(t *testing.T) {
	setupCLI(t)
	t.Setenv("GEMINI_API_KEY", "test-key")
	srv := fakeGemini(t, "", http.StatusInternalServerError)

	out, err := execute(t, "", "send", "--base-url", srv.URL, "hello")
	require.Error(t, err)
	assert.Contains(t, out, "Sending the message failed")
}

func TestSendWithoutKey(t *testing.T) {
	setupCLI(t)

	out, err := execute(t, "", "send", "hello")
	require.Error(t, err)
	assert.Contains(t, out, "No API key is set")
}

func TestImportCommand(t *testing.T) {
	dir := setupCLI(t)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[]`), 0600))
	out, err := execute(t, "", "import", "--yes", bad)
	require.ErrorIs(t, err, session.ErrImportFormat)
	assert.Equal(t, 1, strings.Count(out, "not a valid chat history"))
	var printed bytes.Buffer
	printError(&printed, err)
	assert.Empty(t, printed.String())

	blob := `[{"name":"alpha","history":[]},{"name":"default","history":[{"role":"user","content":"x","timestamp":"2025-01-01T00:00:00Z"}]}]`
	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(blob), 0600))

	out, err = execute(t, "no\n", "import", good)
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled.")

	out, err = execute(t, "y\n", "import", good)
	require.NoError(t, err)
	assert.Contains(t, out, "Active session: default")

	out, err = execute(t, "", "export", "-")
	require.NoError(t, err)
	assert.Equal(t, blob, out)

	out, err = execute(t, "", "sessions", "purge", "-y")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted")

	_, err = execute(t, "", "export")
	assert.Error(t, err)
}

func TestConfigCommands(t *testing.T) {
	dir := setupCLI(t)

	out, err := execute(t, "", "config", "set", "context_length", "12")
	require.NoError(t, err)
	assert.Contains(t, out, "context_length updated")

	_, err = execute(t, "", "config", "set", "context_length", "0")
	assert.Error(t, err)

	_, err = execute(t, "", "config", "set", "model", "")
	assert.Error(t, err)

	out, err = execute(t, "", "config", "set", "word_wrap", "100")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dir, ".config", "gemchat", "config.yaml"))

	_, err = execute(t, "", "config", "set", "nonsense", "1")
	assert.Error(t, err)

	_, err = execute(t, "", "config", "set", "api_key", "AIzaStoredSecret")
	require.NoError(t, err)

	out, err = execute(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "word_wrap")
	assert.Contains(t, out, "100")
	assert.Regexp(t, `context_length\s+12`, out)
	assert.Contains(t, out, "AIza***")
	assert.NotContains(t, out, "StoredSecret")
}

func TestInvalidConfigFails(t *testing.T) {
	setupCLI(t)

	_, err := execute(t, "", "sessions", "list", "--store", "redis")
	assert.Error(t, err)
}

func TestConfirmPrompt(t *testing.T) {
	tests := []struct {
		input string
		yes   bool
		want  bool
	}{
		{input: "y\n", want: true},
		{input: "YES\n", want: true},
		{input: "n\n", want: false},
		{input: "\n", want: false},
		{input: "", want: false},
		{input: "", yes: true, want: true},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		got := confirmPrompt(strings.NewReader(tt.input), &out, tt.yes, "Sure?")
		assert.Equal(t, tt.want, got, "input %q", tt.input)
		if !tt.yes {
			assert.Equal(t, "Sure? [y/N]: ", out.String())
		}
	}
}

func TestMessageContent(t *testing.T) {
	got, err := messageContent(strings.NewReader("from stdin"), []string{"-"})
	require.NoError(t, err)
	assert.Equal(t, "from stdin", got)

	got, err = messageContent(nil, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "a b", got)
}

func TestPrintError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "plain", err: errors.New("boom"), expected: "Error: boom\n"},
		{name: "completion", err: fmt.Errorf("%w: %w", chat.ErrCompletion, errors.New("offline"))},
		{name: "import format", err: fmt.Errorf("%w: not an array", session.ErrImportFormat)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printError(&buf, tt.err)
			assert.Equal(t, tt.expected, buf.String())
		})
	}
}
