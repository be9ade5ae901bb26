package cli

import (
	"fmt"

	"github.com/slrkit/slrkit/internal/workflow"
	"github.com/spf13/cobra"
)

// NewQuestionCmd creates the 'question' command group.
func NewQuestionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "question",
		Aliases: []string{"questions", "rq"},
		Short:   "Manage research questions",
	}
	cmd.AddCommand(
		newQuestionAddCmd(),
		newQuestionListCmd(),
		newQuestionDeleteCmd(),
		newQuestionGenerateCmd(),
	)
	return cmd
}

func newQuestionAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "add <review-id> <question>...",
		Short:   "Add research questions by hand",
		Example: `  slrkit question add 1 "How is developer productivity measured?"`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reviewID, err := parseID("review id", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				created, err := a.store.CreateResearchQuestions(reviewID, args[1:])
				if err != nil {
					return err
				}
				a.success("Added %d research question(s)", len(created))
				return nil
			})
		},
	}
}

func newQuestionListCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:     "list <review-id>",
		Aliases: []string{"ls"},
		Short:   "List a review's research questions",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reviewID, err := parseID("review id", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				questions, err := a.store.ListResearchQuestions(reviewID)
				if err != nil {
					return err
				}
				if jsonOutput {
					return a.printJSON(questions)
				}
				if len(questions) == 0 {
					fmt.Fprintln(a.out, "No research questions yet.")
					return nil
				}
				a.header("Research questions (%d):", len(questions))
				for _, q := range questions {
					fmt.Fprintf(a.out, "  [%d] %s\n", q.ID, q.Text)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	return cmd
}

func newQuestionDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <question-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a research question",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("question id", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				if err := a.store.DeleteResearchQuestion(id); err != nil {
					return err
				}
				a.success("Deleted research question %d", id)
				return nil
			})
		},
	}
}

func newQuestionGenerateCmd() *cobra.Command {
	var g generateFlags
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate research questions with a language model",
		Long: `Ask a language model for candidate research questions, review them,
and keep the ones you want. Every model call is recorded in the query log.

Any flag left out is asked for interactively.`,
		Example: `  # Fully interactive
  slrkit question generate

  # Headless
  slrkit question generate -r 1 -m 2 -t "developer productivity metrics" -n 5 -k 1,3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, workflow.ResearchQuestions, &g)
		},
	}
	g.register(cmd)
	return cmd
}
