package cli

import (
	"fmt"
	"os"

	"github.com/slrkit/slrkit/internal/storage"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewReviewCmd creates the 'review' command group.
func NewReviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "review",
		Aliases: []string{"reviews"},
		Short:   "Manage systematic review projects",
	}
	cmd.AddCommand(
		newReviewCreateCmd(),
		newReviewListCmd(),
		newReviewShowCmd(),
		newReviewUpdateCmd(),
		newReviewDeleteCmd(),
		newReviewExportCmd(),
	)
	return cmd
}

func newReviewCreateCmd() *cobra.Command {
	var problem string
	cmd := &cobra.Command{
		Use:     "create <name>",
		Short:   "Create a review",
		Example: `  slrkit review create "Developer productivity" --problem "How is productivity measured?"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				r, err := a.store.CreateReview(args[0], problem)
				if err != nil {
					return err
				}
				a.success("Created review %q (ID: %d)", r.Name, r.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&problem, "problem", "p", "", "Problem statement")
	return cmd
}

func newReviewListCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List reviews",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				reviews, err := a.store.ListReviews()
				if err != nil {
					return err
				}
				if jsonOutput {
					return a.printJSON(reviews)
				}
				if len(reviews) == 0 {
					fmt.Fprintln(a.out, "No reviews yet.")
					fmt.Fprintln(a.out, "Run 'slrkit review create <name>' to start one.")
					return nil
				}
				a.header("Reviews (%d):", len(reviews))
				for _, r := range reviews {
					fmt.Fprintf(a.out, "  %d. %s\n", r.ID, r.Name)
					if r.ProblemStatement != "" {
						fmt.Fprintf(a.out, "     %s\n", dimStyle.Render(truncate(r.ProblemStatement, 70)))
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	return cmd
}

func newReviewShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <review-id>",
		Short: "Show a review and its contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("review id", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				exp, err := a.store.ExportReview(id)
				if err != nil {
					return err
				}
				r := exp.Review
				a.header("%s (ID: %d)", r.Name, r.ID)
				if r.ProblemStatement != "" {
					fmt.Fprintf(a.out, "Problem:   %s\n", r.ProblemStatement)
				}
				fmt.Fprintf(a.out, "Created:   %s\n", r.CreatedAt.Format("2006-01-02 15:04"))
				fmt.Fprintf(a.out, "Updated:   %s\n", r.UpdatedAt.Format("2006-01-02 15:04"))
				fmt.Fprintln(a.out)

				fmt.Fprintf(a.out, "Research questions (%d):\n", len(exp.ResearchQuestions))
				for _, q := range exp.ResearchQuestions {
					fmt.Fprintf(a.out, "  [%d] %s\n", q.ID, q.Text)
				}
				fmt.Fprintf(a.out, "Keywords (%d):\n", len(exp.Keywords))
				for _, k := range exp.Keywords {
					fmt.Fprintf(a.out, "  - %s\n", k.Keyword)
				}
				fmt.Fprintf(a.out, "Search queries (%d):\n", len(exp.SearchQueries))
				for _, q := range exp.SearchQueries {
					fmt.Fprintf(a.out, "  [%d] %s\n", q.ID, q.QueryString)
				}
				fmt.Fprintf(a.out, "Primary studies: %d\n", len(exp.PrimaryStudies))
				fmt.Fprintf(a.out, "LLM exchanges:   %d\n", len(exp.QueryLogs))
				return nil
			})
		},
	}
}

func newReviewUpdateCmd() *cobra.Command {
	var problem string
	cmd := &cobra.Command{
		Use:   "update <review-id>",
		Short: "Update a review's problem statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("review id", args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("problem") {
				return fmt.Errorf("%w: --problem is required", storage.ErrValidation)
			}
			return withApp(cmd, func(a *app) error {
				r, err := a.store.UpdateReview(id, problem)
				if err != nil {
					return err
				}
				a.success("Updated review %q", r.Name)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&problem, "problem", "p", "", "New problem statement")
	return cmd
}

func newReviewDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <review-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a review and everything it owns",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("review id", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				if err := a.store.DeleteReview(id); err != nil {
					return err
				}
				a.success("Deleted review %d", id)
				return nil
			})
		},
	}
}

func newReviewExportCmd() *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export <review-id>",
		Short: "Export a review with all of its records",
		Example: `  slrkit review export 1
  slrkit review export 1 --format yaml --output review.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("review id", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				exp, err := a.store.ExportReview(id)
				if err != nil {
					return err
				}
				data, err := encodeExport(exp, format)
				if err != nil {
					return err
				}
				if output == "" {
					_, err = a.out.Write(data)
					return err
				}
				if err := os.WriteFile(output, data, 0644); err != nil {
					return fmt.Errorf("failed to write export: %w", err)
				}
				a.success("Exported review %d to %s", id, output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json or yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	return cmd
}

func encodeExport(exp *storage.ReviewExport, format string) ([]byte, error) {
	switch format {
	case "json":
		data, err := formatJSON(exp)
		if err != nil {
			return nil, err
		}
		return []byte(data + "\n"), nil
	case "yaml", "yml":
		return yaml.Marshal(exp)
	default:
		return nil, fmt.Errorf("%w: unknown export format %q (use json or yaml)", storage.ErrValidation, format)
	}
}
