/*
Package cli implements the slrkit command tree.

Every command resolves the configuration, opens the review database and
writes human-readable output to the command's output stream. Commands that
talk to a language model or a digital library build their clients from the
same resolved configuration.
*/
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/slrkit/slrkit/internal/config"
	"github.com/slrkit/slrkit/internal/library"
	"github.com/slrkit/slrkit/internal/llm"
	"github.com/slrkit/slrkit/internal/logging"
	"github.com/slrkit/slrkit/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

// app is the per-invocation context shared by commands.
type app struct {
	cfg    *config.Config
	store  *storage.SQLiteStorage
	logger *zap.Logger
	out    io.Writer
}

// openApp resolves configuration and opens the database.
func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Resolve()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Settings.LogLevel)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.Settings.DatabasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &app{cfg: cfg, store: store, logger: logger, out: cmd.OutOrStdout()}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close database", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// withApp runs fn with an open app and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(a *app) error) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(a)
}

func (a *app) llmClient() *llm.Client {
	s := a.cfg.Settings
	return llm.NewClient(llm.Options{
		OllamaURL:       s.OllamaURL,
		OllamaStream:    s.OllamaStream,
		TogetherURL:     s.TogetherURL,
		TogetherAPIKey:  a.cfg.Credentials.TogetherAPIKey,
		AnthropicAPIKey: a.cfg.Credentials.AnthropicAPIKey,
		GeminiAPIKey:    a.cfg.Credentials.GeminiAPIKey,
		Timeout:         s.RequestTimeout(),
		RetryDelay:      s.RetryDelay(),
		Logger:          a.logger,
	})
}

func (a *app) arxiv() *library.Arxiv {
	return library.NewArxiv(library.Options{
		BaseURL: a.cfg.Settings.ArxivURL,
		Timeout: a.cfg.Settings.RequestTimeout(),
		Logger:  a.logger,
	})
}

func (a *app) success(format string, args ...any) {
	fmt.Fprintln(a.out, successStyle.Render("✓ "+fmt.Sprintf(format, args...)))
}

func (a *app) warn(format string, args ...any) {
	fmt.Fprintln(a.out, warnStyle.Render("! "+fmt.Sprintf(format, args...)))
}

func (a *app) header(format string, args ...any) {
	fmt.Fprintln(a.out, headerStyle.Render(fmt.Sprintf(format, args...)))
}

func (a *app) printJSON(v any) error {
	data, err := formatJSON(v)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, data)
	return nil
}

// parseID parses a positive record id from a positional argument.
func parseID(label, s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: invalid %s %q", storage.ErrValidation, label, s)
	}
	return id, nil
}

// truncate shortens s to n runes for table output.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// FormatError renders a top-level error for the terminal.
func FormatError(err error) string {
	return errorStyle.Render("Error: " + err.Error())
}

// formatJSON pretty-prints v.
func formatJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
