package cli

import (
	"fmt"

	"github.com/slrkit/slrkit/internal/storage"
	"github.com/spf13/cobra"
)

// NewLogCmd creates the 'log' command group for the LLM query log.
func NewLogCmd() *cobra.Command {
	var (
		reviewID   int64
		jsonOutput bool
	)
	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List logged LLM exchanges",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				var filter *int64
				if reviewID != 0 {
					filter = &reviewID
				}
				logs, err := a.store.ListQueryLogs(filter)
				if err != nil {
					return err
				}
				if jsonOutput {
					return a.printJSON(logs)
				}
				if len(logs) == 0 {
					fmt.Fprintln(a.out, "No logged exchanges.")
					return nil
				}
				a.header("LLM exchanges (%d):", len(logs))
				for _, l := range logs {
					fmt.Fprintf(a.out, "  [%d] %s  %-27s %s\n", l.ID, l.CreatedAt.Format("2006-01-02 15:04"), l.Phase.String(), l.ModelLabel)
				}
				return nil
			})
		},
	}
	list.Flags().Int64VarP(&reviewID, "review-id", "r", 0, "Only show exchanges for this review")
	list.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	show := &cobra.Command{
		Use:   "show <log-id>",
		Short: "Show the prompt and response of an exchange",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("log id", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				l, err := a.store.GetQueryLog(id)
				if err != nil {
					return err
				}
				printQueryLog(a, l)
				return nil
			})
		},
	}

	del := &cobra.Command{
		Use:     "delete <log-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a logged exchange",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("log id", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				if err := a.store.DeleteQueryLog(id); err != nil {
					return err
				}
				a.success("Deleted log entry %d", id)
				return nil
			})
		},
	}

	cmd := &cobra.Command{
		Use:     "log",
		Aliases: []string{"logs"},
		Short:   "Inspect the LLM query log",
	}
	cmd.AddCommand(list, show, del)
	return cmd
}

func printQueryLog(a *app, l *storage.QueryLog) {
	a.header("Exchange #%d (%s)", l.ID, l.ExchangeID)
	fmt.Fprintf(a.out, "Phase:   %d. %s\n", int(l.Phase), l.Phase.String())
	fmt.Fprintf(a.out, "Model:   %s\n", l.ModelLabel)
	if l.ReviewID != nil {
		fmt.Fprintf(a.out, "Review:  %d\n", *l.ReviewID)
	}
	fmt.Fprintf(a.out, "When:    %s\n", l.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, headerStyle.Render("Prompt:"))
	fmt.Fprintln(a.out, l.Prompt)
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, headerStyle.Render("Response:"))
	fmt.Fprintln(a.out, l.Response)
}
