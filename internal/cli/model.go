package cli

import (
	"fmt"
	"time"

	"github.com/slrkit/slrkit/internal/llm"
	"github.com/slrkit/slrkit/internal/storage"
	"github.com/slrkit/slrkit/internal/usage"
	"github.com/spf13/cobra"
)

// NewProviderCmd creates the 'provider' command group.
func NewProviderCmd() *cobra.Command {
	var (
		baseURL     string
		description string
	)
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Register an LLM provider",
		Long: `Register an LLM provider. The name decides which adapter is used:
it must contain one of ollama, together, anthropic or gemini.`,
		Example: `  slrkit provider create ollama --url http://127.0.0.1:11434
  slrkit provider create together.ai`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				p, err := a.store.CreateProvider(args[0], baseURL, description)
				if err != nil {
					return err
				}
				a.success("Registered provider %q (ID: %d)", p.Name, p.ID)
				if _, err := llm.ResolveProvider(p.Name); err != nil {
					a.warn("No adapter handles %q; models on it cannot be called", p.Name)
				}
				return nil
			})
		},
	}
	create.Flags().StringVar(&baseURL, "url", "", "Base URL overriding the configured default")
	create.Flags().StringVar(&description, "description", "", "Description")

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				providers, err := a.store.ListProviders()
				if err != nil {
					return err
				}
				if len(providers) == 0 {
					fmt.Fprintln(a.out, "No providers registered.")
					return nil
				}
				a.header("Providers (%d):", len(providers))
				for _, p := range providers {
					adapter := "unsupported"
					if v, err := llm.ResolveProvider(p.Name); err == nil {
						adapter = v.String()
					}
					fmt.Fprintf(a.out, "  [%d] %s %s\n", p.ID, p.Name, dimStyle.Render("("+adapter+")"))
					if p.BaseURL != "" {
						fmt.Fprintf(a.out, "       URL: %s\n", p.BaseURL)
					}
				}
				return nil
			})
		},
	}

	del := &cobra.Command{
		Use:     "delete <provider-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a provider and its models",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("provider id", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				if err := a.store.DeleteProvider(id); err != nil {
					return err
				}
				a.success("Deleted provider %d", id)
				return nil
			})
		},
	}

	cmd := &cobra.Command{
		Use:     "provider",
		Aliases: []string{"providers"},
		Short:   "Manage LLM providers",
	}
	cmd.AddCommand(create, list, del)
	return cmd
}

// NewModelCmd creates the 'model' command group.
func NewModelCmd() *cobra.Command {
	var m storage.Model
	create := &cobra.Command{
		Use:     "create <model-name>",
		Short:   "Register a model on a provider",
		Example: `  slrkit model create deepseek-r1 --provider-id 1 --version 14b`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m.Name = args[0]
			return withApp(cmd, func(a *app) error {
				created, err := a.store.CreateModel(m)
				if err != nil {
					return err
				}
				a.success("Registered model %s (ID: %d)", created.String(), created.ID)
				return nil
			})
		},
	}
	create.Flags().Int64VarP(&m.ProviderID, "provider-id", "p", 0, "Provider hosting the model")
	create.Flags().StringVarP(&m.Version, "version", "v", "", "Model version or tag")
	create.Flags().StringVar(&m.UsageMethod, "usage-method", "", "How the model is reached, e.g. api or local")
	create.Flags().StringVar(&m.Credentials, "api-key", "", "API key for this model, overriding the environment")
	create.Flags().StringVar(&m.UsageInstructions, "instructions", "", "Free-text usage notes")
	_ = create.MarkFlagRequired("provider-id")

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List models",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				models, err := a.store.ListModels()
				if err != nil {
					return err
				}
				if len(models) == 0 {
					fmt.Fprintln(a.out, "No models registered.")
					fmt.Fprintln(a.out, "Run 'slrkit model create <name> --provider-id <id>' to add one.")
					return nil
				}
				a.header("Models (%d):", len(models))
				for _, m := range models {
					fmt.Fprintf(a.out, "  [%d] %s\n", m.ID, m.String())
				}
				return nil
			})
		},
	}

	del := &cobra.Command{
		Use:     "delete <model-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a model",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("model id", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				if err := a.store.DeleteModel(id); err != nil {
					return err
				}
				a.success("Deleted model %d", id)
				return nil
			})
		},
	}

	cmd := &cobra.Command{
		Use:     "model",
		Aliases: []string{"models"},
		Short:   "Manage LLM models",
	}
	cmd.AddCommand(create, list, del, newModelStatsCmd())
	return cmd
}

func newModelStatsCmd() *cobra.Command {
	var reviewID int64
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show how each model has been used, busiest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				models, err := a.store.ListModels()
				if err != nil {
					return err
				}
				var filter *int64
				if reviewID != 0 {
					filter = &reviewID
				}
				logs, err := a.store.ListQueryLogs(filter)
				if err != nil {
					return err
				}
				if len(models) == 0 {
					fmt.Fprintln(a.out, "No models registered.")
					return nil
				}

				a.header("Model usage:")
				for _, st := range usage.Summarize(models, logs, time.Now()) {
					last := "never"
					if !st.LastUsed.IsZero() {
						last = st.LastUsed.Format("2006-01-02 15:04")
					}
					fmt.Fprintf(a.out, "  [%d] %s\n", st.Model.ID, st.Model.String())
					fmt.Fprintf(a.out, "       exchanges: %d (last 7 days: %d), last used: %s, score: %.2f\n",
						st.Exchanges, st.Recent, last, st.Score)
					for p := storage.PhaseProblemFormulation; p <= storage.PhaseRelevancyEvaluation; p++ {
						if n := st.ByPhase[p]; n > 0 {
							fmt.Fprintf(a.out, "       %s\n", dimStyle.Render(fmt.Sprintf("%s: %d", p.String(), n)))
						}
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().Int64VarP(&reviewID, "review-id", "r", 0, "Only count exchanges for this review")
	return cmd
}
