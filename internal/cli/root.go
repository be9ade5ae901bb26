package cli

import (
	"github.com/slrkit/slrkit/internal/version"
	"github.com/spf13/cobra"
)

// NewRootCmd assembles the full command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "slrkit",
		Short: "Systematic literature review assistant",
		Long: `slrkit keeps the records of a systematic literature review in a local
SQLite database and helps fill them in with language models.

A review moves through six phases:
  1. Problem Formulation         research questions
  2. Initial Hypotheses          keywords
  3. Initial Data Collection     primary studies
  4. Query String Definition     search queries
  5. Digital Library Exploration library searches and results
  6. Relevancy Evaluation        study screening

Every exchange with a model is kept in the query log.`,
		Version:       version.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		NewReviewCmd(),
		NewQuestionCmd(),
		NewKeywordCmd(),
		NewQueryCmd(),
		NewStudyCmd(),
		NewProviderCmd(),
		NewModelCmd(),
		NewLogCmd(),
		NewPromptCmd(),
		NewConfigCmd(),
		NewVersionCmd(),
	)
	return rootCmd
}
