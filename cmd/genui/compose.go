package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tutorui/internal/gateway/config"
	"tutorui/internal/gateway/service/tutor"
	"tutorui/internal/genui"
	"tutorui/internal/llm"
)

func (c *cli) composeCmd() *cobra.Command {
	var (
		strict    bool
		baseline  bool
		interests []string
		userID    string
		timeout   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "compose [utterance]",
		Short: "Compose a page for an utterance",
		Long: `Compose asks the configured model (LLM_PROVIDER, GEMINI_API_KEY) for a page
and prints it as JSON. By default a failed model call falls back to the
built-in page; --strict reports the failure instead and --baseline skips the
model entirely.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strict && baseline {
				return errors.New("--strict and --baseline are mutually exclusive")
			}
			utterance := strings.Join(args, " ")
			rc := genui.RequestContext{UserID: userID, CurrentInterests: interests}

			catalog, err := c.catalog()
			if err != nil {
				return err
			}
			if baseline {
				return writeJSON(cmd.OutOrStdout(), genui.ComposePage(utterance, rc))
			}

			cfg, err := config.Load(nil)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			if cfg.FakeModelDefaulted {
				c.log().Warn("LLM_PROVIDER is not set and no GEMINI_API_KEY was found; using the fake model")
			}
			model, err := llm.New(ctx, cfg.LLM, c.log().Named("llm"))
			if err != nil {
				return err
			}
			defer model.Close()

			ctx = llm.WithPhase(ctx, tutor.PhaseCompose)
			if c.verbose {
				ctx = llm.WithHook(ctx, llm.NewLogHook(c.log().Named("llm.prompt")))
			}

			orch, err := genui.New(model, genui.WithCatalog(catalog), genui.WithLogger(c.log()))
			if err != nil {
				return err
			}
			if strict {
				page, err := orch.ComposeStrict(ctx, utterance, rc)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), page)
			}
			return writeJSON(cmd.OutOrStdout(), orch.ComposeSafe(ctx, utterance, rc))
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail instead of falling back to the built-in page")
	cmd.Flags().BoolVar(&baseline, "baseline", false, "skip the model and print the built-in page")
	cmd.Flags().StringSliceVar(&interests, "interest", nil, "learner interest (repeatable)")
	cmd.Flags().StringVar(&userID, "user", "cli", "learner id")
	cmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "overall deadline for the model call")
	return cmd
}
