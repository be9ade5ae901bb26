package cli

import (
	"fmt"
	"strings"

	"github.com/slrkit/slrkit/internal/library"
	"github.com/slrkit/slrkit/internal/storage"
	"github.com/slrkit/slrkit/internal/workflow"
	"github.com/spf13/cobra"
)

// NewQueryCmd creates the 'query' command group.
func NewQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "query",
		Aliases: []string{"queries"},
		Short:   "Manage search queries and run them against digital libraries",
	}
	cmd.AddCommand(
		newQueryAddCmd(),
		newQueryListCmd(),
		newQueryDeleteCmd(),
		newQueryGenerateCmd(),
		newQuerySearchCmd(),
		newQueryResultsCmd(),
	)
	return cmd
}

func newQueryAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "add <review-id> <query>...",
		Short:   "Add search queries by hand",
		Example: `  slrkit query add 1 '"developer productivity" AND (metric OR measure)'`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reviewID, err := parseID("review id", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				created, err := a.store.CreateSearchQueries(reviewID, args[1:])
				if err != nil {
					return err
				}
				a.success("Added %d search query(ies)", len(created))
				return nil
			})
		},
	}
}

func newQueryListCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:     "list <review-id>",
		Aliases: []string{"ls"},
		Short:   "List a review's search queries",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reviewID, err := parseID("review id", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				queries, err := a.store.ListSearchQueries(reviewID)
				if err != nil {
					return err
				}
				if jsonOutput {
					return a.printJSON(queries)
				}
				if len(queries) == 0 {
					fmt.Fprintln(a.out, "No search queries yet.")
					return nil
				}
				a.header("Search queries (%d):", len(queries))
				for _, q := range queries {
					fmt.Fprintf(a.out, "  [%d] %s\n", q.ID, q.QueryString)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	return cmd
}

func newQueryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <query-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a search query",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("query id", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				if err := a.store.DeleteSearchQuery(id); err != nil {
					return err
				}
				a.success("Deleted search query %d", id)
				return nil
			})
		},
	}
}

func newQueryGenerateCmd() *cobra.Command {
	var g generateFlags
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate boolean search queries with a language model",
		Long: `Ask a language model for digital library search queries, review them,
and keep the ones you want. Every model call is recorded in the query log.

Any flag left out is asked for interactively.`,
		Example: `  slrkit query generate -r 1 -m 2 -t "developer productivity metrics" -k 1,2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, workflow.SearchQueries, &g)
		},
	}
	g.register(cmd)
	return cmd
}

func newQuerySearchCmd() *cobra.Command {
	var (
		lib   string
		limit int
	)
	cmd := &cobra.Command{
		Use:     "search <query-id>",
		Short:   "Run a search query against a digital library",
		Example: `  slrkit query search 3 --max 50`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("query id", args[0])
			if err != nil {
				return err
			}
			if !strings.EqualFold(lib, "arxiv") {
				return fmt.Errorf("%w: unsupported library %q (supported: arxiv)", storage.ErrValidation, lib)
			}
			return withApp(cmd, func(a *app) error {
				search, results, err := library.Run(cmd.Context(), a.store, a.arxiv(), id, limit)
				if err != nil {
					return err
				}
				a.success("%s reported %d match(es); stored %d result(s) as search #%d",
					search.LibraryName, search.TotalFound, len(results), search.ID)
				for _, r := range results {
					fmt.Fprintf(a.out, "  [%d] %s\n", r.ID, truncate(r.Title, 80))
					fmt.Fprintf(a.out, "       %s\n", dimStyle.Render(r.URL))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&lib, "library", "l", "arxiv", "Digital library to search")
	cmd.Flags().IntVar(&limit, "max", 25, "Maximum number of results to store")
	return cmd
}

func newQueryResultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "results <query-id>",
		Short: "List the library searches run for a query and their results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("query id", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				searches, err := a.store.ListLibrarySearches(id)
				if err != nil {
					return err
				}
				if len(searches) == 0 {
					fmt.Fprintln(a.out, "No library searches yet.")
					fmt.Fprintf(a.out, "Run 'slrkit query search %d' to run one.\n", id)
					return nil
				}
				for _, s := range searches {
					a.header("Search #%d on %s, %s (%d found)", s.ID, s.LibraryName, s.SearchedAt.Format("2006-01-02 15:04"), s.TotalFound)
					results, err := a.store.ListSearchResults(s.ID)
					if err != nil {
						return err
					}
					for _, r := range results {
						fmt.Fprintf(a.out, "  [%d] %s\n", r.ID, truncate(r.Title, 80))
					}
				}
				return nil
			})
		},
	}
}
