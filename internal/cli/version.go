package cli

import (
	"fmt"

	"github.com/slrkit/slrkit/internal/version"
	"github.com/spf13/cobra"
)

// NewVersionCmd creates the 'version' command
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the current version, commit hash, and build date.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Version:  %s\n", version.Version)
			fmt.Fprintf(out, "Commit:   %s\n", version.Commit)
			fmt.Fprintf(out, "Built:    %s\n", version.Date)
			return nil
		},
	}
}
