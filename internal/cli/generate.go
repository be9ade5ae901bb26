package cli

import (
	"errors"
	"fmt"

	"github.com/slrkit/slrkit/internal/segment"
	"github.com/slrkit/slrkit/internal/workflow"
	"github.com/spf13/cobra"
)

// generateFlags carries answers given up front; anything missing is asked
// for on the terminal.
type generateFlags struct {
	reviewID int64
	modelID  int64
	topic    string
	count    int
	keep     string
	format   string
}

func (g *generateFlags) register(cmd *cobra.Command) {
	cmd.Flags().Int64VarP(&g.reviewID, "review-id", "r", 0, "Review to generate for (asked if omitted)")
	cmd.Flags().Int64VarP(&g.modelID, "model-id", "m", 0, "Model to use (asked if omitted)")
	cmd.Flags().StringVarP(&g.topic, "topic", "t", "", "Topic or base question (asked if omitted)")
	cmd.Flags().IntVarP(&g.count, "count", "n", 0, "How many items to ask for (asked if omitted)")
	cmd.Flags().StringVarP(&g.keep, "keep", "k", "", `Comma-separated item numbers to keep, e.g. "1,3" (asked if omitted)`)
	cmd.Flags().StringVar(&g.format, "format", "", "Response format: numbered or tagged (default depends on the item kind)")
}

func (g *generateFlags) request(cmd *cobra.Command) (workflow.Request, error) {
	req := workflow.Request{
		ReviewID: g.reviewID,
		ModelID:  g.modelID,
		Count:    g.count,
	}
	if cmd.Flags().Changed("topic") {
		topic := g.topic
		req.Topic = &topic
	}
	if cmd.Flags().Changed("keep") {
		keep := g.keep
		req.Keep = &keep
	}
	if g.format != "" {
		strategy, err := segment.ByName(g.format)
		if err != nil {
			return req, err
		}
		req.Strategy = strategy
	}
	return req, nil
}

// runGenerate drives one generation run on the terminal.
func runGenerate(cmd *cobra.Command, target workflow.Target, g *generateFlags) error {
	req, err := g.request(cmd)
	if err != nil {
		return err
	}

	return withApp(cmd, func(a *app) error {
		switch target.Phase {
		case workflow.ResearchQuestions.Phase:
			target.DefaultCount = a.cfg.Settings.QuestionCount
		case workflow.SearchQueries.Phase:
			target.DefaultCount = a.cfg.Settings.QueryCount
		}

		op := newConsoleOperator(cmd.InOrStdin(), a.out)
		runner := workflow.New(a.store, a.llmClient(), op, a.logger)

		res, err := runner.Run(cmd.Context(), target, req)
		if err != nil {
			if errors.Is(err, workflow.ErrAborted) {
				a.warn("Cancelled: %v", err)
				return nil
			}
			return err
		}

		if res.Created > 0 {
			a.success("Added %d %s to review %q", res.Created, target.Name, res.Review.Name)
		}
		if res.Log != nil {
			fmt.Fprintf(a.out, "%s\n", dimStyle.Render(fmt.Sprintf("Exchange logged as #%d (%s)", res.Log.ID, res.Log.ExchangeID)))
		}
		return nil
	})
}
