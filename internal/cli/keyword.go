package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewKeywordCmd creates the 'keyword' command group.
func NewKeywordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "keyword",
		Aliases: []string{"keywords", "kw"},
		Short:   "Manage a review's keywords",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add <review-id> <keyword>...",
		Short: "Add keywords",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reviewID, err := parseID("review id", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				for _, kw := range args[1:] {
					if _, err := a.store.AddKeyword(reviewID, kw); err != nil {
						return err
					}
				}
				a.success("Added %d keyword(s)", len(args)-1)
				return nil
			})
		},
	}, &cobra.Command{
		Use:     "list <review-id>",
		Aliases: []string{"ls"},
		Short:   "List keywords",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reviewID, err := parseID("review id", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				keywords, err := a.store.ListKeywords(reviewID)
				if err != nil {
					return err
				}
				if len(keywords) == 0 {
					fmt.Fprintln(a.out, "No keywords yet.")
					return nil
				}
				a.header("Keywords (%d):", len(keywords))
				for _, k := range keywords {
					fmt.Fprintf(a.out, "  - %s\n", k.Keyword)
				}
				return nil
			})
		},
	}, &cobra.Command{
		Use:     "delete <review-id> <keyword>",
		Aliases: []string{"rm"},
		Short:   "Delete every occurrence of a keyword",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reviewID, err := parseID("review id", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				n, err := a.store.DeleteKeyword(reviewID, args[1])
				if err != nil {
					return err
				}
				a.success("Deleted %d occurrence(s) of %q", n, args[1])
				return nil
			})
		},
	})
	return cmd
}
