package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/slrkit/slrkit/internal/search"
	"github.com/slrkit/slrkit/internal/storage"
	"github.com/spf13/cobra"
)

// NewStudyCmd creates the 'study' command group.
func NewStudyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "study",
		Aliases: []string{"studies"},
		Short:   "Manage primary studies",
	}
	cmd.AddCommand(
		newStudyImportCmd(),
		newStudyListCmd(),
		newStudyShowCmd(),
		newStudyDeleteCmd(),
		newStudyEvaluateCmd(),
		newStudySearchCmd(),
		newStudyPromoteCmd(),
	)
	return cmd
}

func newStudyImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <review-id> <file.csv>",
		Short: "Import primary studies from a CSV file",
		Long: `Import primary studies from a CSV file with a header row.

Recognised columns (case-insensitive): title, url, abstract,
publication_year, citations, source, venue, publication_type, keywords.
Only title is required; rows with a blank title are skipped.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reviewID, err := parseID("review id", args[0])
			if err != nil {
				return err
			}
			f, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("failed to open CSV: %w", err)
			}
			defer f.Close()

			studies, skipped, err := storage.ParseStudiesCSV(f)
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				created, err := a.store.CreateStudies(reviewID, studies)
				if err != nil {
					return err
				}
				a.success("Imported %d primary study(ies)", len(created))
				if skipped > 0 {
					a.warn("Skipped %d row(s) without a title", skipped)
				}
				return nil
			})
		},
	}
}

func newStudyListCmd() *cobra.Command {
	var (
		jsonOutput bool
		level      string
	)
	cmd := &cobra.Command{
		Use:     "list <review-id>",
		Aliases: []string{"ls"},
		Short:   "List a review's primary studies",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reviewID, err := parseID("review id", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				studies, err := a.store.ListStudies(reviewID)
				if err != nil {
					return err
				}
				if level != "" {
					want := storage.Relevancy(strings.ToUpper(level))
					filtered := studies[:0]
					for _, st := range studies {
						if st.Relevancy == want {
							filtered = append(filtered, st)
						}
					}
					studies = filtered
				}
				if jsonOutput {
					return a.printJSON(studies)
				}
				if len(studies) == 0 {
					fmt.Fprintln(a.out, "No primary studies.")
					return nil
				}
				a.header("Primary studies (%d):", len(studies))
				for _, st := range studies {
					fmt.Fprintf(a.out, "  [%d] %-14s %s\n", st.ID, st.Relevancy.String(), truncate(st.Title, 70))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	cmd.Flags().StringVar(&level, "level", "", "Only show studies at this level (H, M, L, N, X)")
	return cmd
}

func newStudyShowCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "show <study-id>",
		Short: "Show a primary study and its evaluation history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("study id", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				st, err := a.store.GetStudy(id)
				if err != nil {
					return err
				}
				evals, err := a.store.ListEvaluations(id)
				if err != nil {
					return err
				}
				if jsonOutput {
					return a.printJSON(struct {
						*storage.PrimaryStudy
						Evaluations []storage.Evaluation `json:"evaluations"`
					}{st, evals})
				}

				a.header("%s (ID: %d)", st.Title, st.ID)
				fmt.Fprintf(a.out, "Review:    %d\n", st.ReviewID)
				fmt.Fprintf(a.out, "Relevancy: %s\n", st.Relevancy.String())
				if st.Venue != "" {
					fmt.Fprintf(a.out, "Venue:     %s\n", st.Venue)
				}
				if st.URL != "" {
					fmt.Fprintf(a.out, "URL:       %s\n", st.URL)
				}
				fmt.Fprintln(a.out)

				if len(evals) == 0 {
					fmt.Fprintln(a.out, "Not evaluated yet.")
					return nil
				}
				fmt.Fprintf(a.out, "Evaluations (%d):\n", len(evals))
				for _, e := range evals {
					who := e.Evaluator
					if who == "" {
						who = "-"
					}
					fmt.Fprintf(a.out, "  %s  %-14s %s", e.EvaluatedAt.Format("2006-01-02 15:04"), e.Decision.String(), who)
					if e.Notes != "" {
						fmt.Fprintf(a.out, "  %s", dimStyle.Render(e.Notes))
					}
					fmt.Fprintln(a.out)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	return cmd
}

func newStudyDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <study-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a primary study",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("study id", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				if err := a.store.DeleteStudy(id); err != nil {
					return err
				}
				a.success("Deleted primary study %d", id)
				return nil
			})
		},
	}
}

func newStudyEvaluateCmd() *cobra.Command {
	var (
		decision  string
		evaluator string
		notes     string
	)
	cmd := &cobra.Command{
		Use:   "evaluate <study-id>",
		Short: "Record a relevancy decision for a study",
		Long: `Record a relevancy decision for a primary study and set its level.

Decisions: H (high), M (medium), L (low), X (exclude).`,
		Example: `  slrkit study evaluate 12 --decision H --evaluator alice --notes "core paper"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("study id", args[0])
			if err != nil {
				return err
			}
			d, err := storage.ParseDecision(decision)
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				ev, err := a.store.EvaluateStudy(id, evaluator, d, notes)
				if err != nil {
					return err
				}
				a.success("Study %d marked %s", id, ev.Decision.String())
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&decision, "decision", "d", "", "Decision: H, M, L or X")
	cmd.Flags().StringVarP(&evaluator, "evaluator", "e", "", "Who made the decision")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-text notes")
	_ = cmd.MarkFlagRequired("decision")
	return cmd
}

func newStudySearchCmd() *cobra.Command {
	var (
		kind  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "search <review-id> <text>...",
		Short: "Full-text search over a review's studies and library results",
		Example: `  slrkit study search 1 productivity metrics
  slrkit study search 1 "code review" --kind result`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reviewID, err := parseID("review id", args[0])
			if err != nil {
				return err
			}
			filter := search.Filter{ReviewID: reviewID}
			switch kind {
			case "", "all":
			case string(search.KindStudy), string(search.KindResult):
				filter.Kind = search.Kind(kind)
			default:
				return fmt.Errorf("%w: unknown kind %q (use study, result or all)", storage.ErrValidation, kind)
			}

			return withApp(cmd, func(a *app) error {
				if _, err := a.store.GetReview(reviewID); err != nil {
					return err
				}
				idx, err := search.BuildForReview(a.store, reviewID, a.logger)
				if err != nil {
					return err
				}
				defer idx.Close()

				hits, err := idx.SearchBM25(strings.Join(args[1:], " "), filter, limit)
				if err != nil {
					return err
				}
				if len(hits) == 0 {
					fmt.Fprintln(a.out, "No matches.")
					return nil
				}
				a.header("Matches (%d):", len(hits))
				for _, h := range hits {
					fmt.Fprintf(a.out, "  %-6s [%d] %s %s\n", h.Kind, h.ID, truncate(h.Title, 70),
						dimStyle.Render(fmt.Sprintf("(%.2f)", h.Score)))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "all", "Record kind: study, result or all")
	cmd.Flags().IntVarP(&limit, "limit", "l", 10, "Maximum number of matches")
	return cmd
}

func newStudyPromoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "promote <result-id>...",
		Short: "Turn library search results into primary studies",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, len(args))
			for i, arg := range args {
				id, err := parseID("result id", arg)
				if err != nil {
					return err
				}
				ids[i] = id
			}
			return withApp(cmd, func(a *app) error {
				for _, id := range ids {
					st, err := a.store.PromoteResult(id)
					if err != nil {
						return err
					}
					a.success("Result %d added as study %d: %s", id, st.ID, truncate(st.Title, 60))
				}
				return nil
			})
		},
	}
}
