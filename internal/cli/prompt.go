package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/slrkit/slrkit/internal/storage"
	"github.com/spf13/cobra"
)

// NewPromptCmd creates the 'prompt' command for free-form model calls.
func NewPromptCmd() *cobra.Command {
	var (
		modelID  int64
		reviewID int64
		phase    int
	)
	send := &cobra.Command{
		Use:   "send [text]...",
		Short: "Send a free prompt to a model and log the exchange",
		Long: `Send a prompt to a registered model, print the response and record
the exchange in the query log tagged with a review phase:

  1 Problem Formulation        4 Query String Definition
  2 Initial Hypotheses         5 Digital Library Exploration
  3 Initial Data Collection    6 Relevancy Evaluation

The prompt is read from standard input when no text is given.`,
		Example: `  slrkit prompt send -m 1 --phase 2 "Suggest keywords for developer productivity"
  cat prompt.txt | slrkit prompt send -m 1 -r 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := storage.Phase(phase)
			if !p.Valid() {
				return fmt.Errorf("%w: phase must be between 1 and 6, got %d", storage.ErrValidation, phase)
			}

			text := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read prompt: %w", err)
				}
				text = string(data)
			}
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("%w: empty prompt", storage.ErrValidation)
			}

			return withApp(cmd, func(a *app) error {
				model, err := a.store.GetModel(modelID)
				if err != nil {
					return err
				}
				entry := storage.QueryLog{ModelID: &model.ID, ModelLabel: model.String(), Phase: p, Prompt: text}
				if reviewID != 0 {
					if _, err := a.store.GetReview(reviewID); err != nil {
						return err
					}
					entry.ReviewID = &reviewID
				}

				response, err := a.llmClient().Send(cmd.Context(), *model, text)
				if err != nil {
					return err
				}
				entry.Response = response

				logged, err := a.store.CreateQueryLog(entry)
				if err != nil {
					return fmt.Errorf("failed to log exchange: %w", err)
				}
				fmt.Fprintln(a.out, response)
				fmt.Fprintln(a.out, dimStyle.Render(fmt.Sprintf("Exchange logged as #%d (%s)", logged.ID, logged.ExchangeID)))
				return nil
			})
		},
	}
	send.Flags().Int64VarP(&modelID, "model-id", "m", 0, "Model to send to")
	send.Flags().Int64VarP(&reviewID, "review-id", "r", 0, "Review the exchange belongs to")
	send.Flags().IntVar(&phase, "phase", int(storage.PhaseProblemFormulation), "Review phase to tag the exchange with (1-6)")
	_ = send.MarkFlagRequired("model-id")

	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Talk to a model directly",
	}
	cmd.AddCommand(send)
	return cmd
}
