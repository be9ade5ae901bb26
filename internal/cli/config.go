package cli

import (
	"fmt"
	"os"

	"github.com/slrkit/slrkit/internal/config"
	"github.com/spf13/cobra"
)

// NewConfigCmd creates the 'config' command group.
func NewConfigCmd() *cobra.Command {
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a settings file with default values",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(cmd, force)
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing settings file (a .bak is kept)")

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the effective settings",
		Long: `Show the settings after applying the settings file and environment
overrides. API keys are reported as set or unset, never printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd)
		},
	}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage slrkit settings",
	}
	cmd.AddCommand(initCmd, show)
	return cmd
}

func runConfigInit(cmd *cobra.Command, force bool) error {
	out := cmd.OutOrStdout()
	path, err := config.GetDefaultConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !force {
		fmt.Fprintf(out, "Settings file already exists: %s\n", path)
		fmt.Fprintln(out, "Use --force to overwrite it.")
		return nil
	}

	cfg := config.NewConfig()
	dbPath, err := config.GetDefaultDatabasePath()
	if err != nil {
		return err
	}
	cfg.Settings.DatabasePath = dbPath

	if err := config.Save(cfg, path); err != nil {
		return err
	}
	fmt.Fprintln(out, successStyle.Render("✓ Wrote "+path))
	return nil
}

func runConfigShow(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	cfg, err := config.Resolve()
	if err != nil {
		return err
	}
	path, _ := config.GetDefaultConfigPath()
	s := cfg.Settings

	fmt.Fprintln(out, headerStyle.Render("Settings"))
	fmt.Fprintf(out, "  File:            %s\n", path)
	fmt.Fprintf(out, "  Database:        %s\n", s.DatabasePath)
	fmt.Fprintf(out, "  Log level:       %s\n", s.LogLevel)
	fmt.Fprintf(out, "  Ollama URL:      %s (stream: %t)\n", s.OllamaURL, s.OllamaStream)
	fmt.Fprintf(out, "  Together URL:    %s\n", s.TogetherURL)
	fmt.Fprintf(out, "  arXiv URL:       %s\n", s.ArxivURL)
	fmt.Fprintf(out, "  Timeout:         %s\n", s.RequestTimeout())
	fmt.Fprintf(out, "  Retry delay:     %s\n", s.RetryDelay())
	fmt.Fprintf(out, "  Question count:  %d\n", s.QuestionCount)
	fmt.Fprintf(out, "  Query count:     %d\n", s.QueryCount)
	fmt.Fprintln(out, headerStyle.Render("Credentials"))
	fmt.Fprintf(out, "  TOGETHER_API_KEY:  %s\n", setOrUnset(cfg.Credentials.TogetherAPIKey))
	fmt.Fprintf(out, "  ANTHROPIC_API_KEY: %s\n", setOrUnset(cfg.Credentials.AnthropicAPIKey))
	fmt.Fprintf(out, "  GEMINI_API_KEY:    %s\n", setOrUnset(cfg.Credentials.GeminiAPIKey))
	return nil
}

func setOrUnset(v string) string {
	if v == "" {
		return "unset"
	}
	return "set"
}
