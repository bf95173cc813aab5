package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/spf13/cobra"
)

// buildQuestion joins all positional args with spaces so multi-word questions
// work the same with or without shell quoting.
func buildQuestion(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func newAskCmd(a *app) *cobra.Command {
	var (
		strategy  string
		topK      int
		advanced  bool
		serverURL string
	)
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the indexed documents",
		Long: `Answer a question from the indexed documents.

The template strategy composes the answer from the best matching sentences.
The generative strategy asks the configured language model and falls back to
the template answer when the model is unavailable.

Examples:
  kotae ask how many vacation days do I get
  kotae ask --strategy generative "what is the expense limit for meals?"
  kotae ask --server http://localhost:8080 --output json reset my password`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := &models.Question{
				Text:     buildQuestion(args),
				Strategy: models.Strategy(strategy),
				TopK:     topK,
			}
			if q.Strategy == "" && advanced {
				q.Strategy = models.StrategyGenerative
			}

			var answer *models.Answer
			if serverURL != "" {
				var err error
				if answer, err = askViaHTTP(cmd.Context(), serverURL, q); err != nil {
					return fmt.Errorf("ask failed: %w", err)
				}
			} else {
				components, err := initializeComponents(cmd.Context(), a.cfg, a.componentLogger(), true)
				if err != nil {
					return err
				}
				defer components.Close()
				answer = components.Engine.Ask(cmd.Context(), q)
			}

			if err := cli.WriteAnswer(cmd.OutOrStdout(), answer, a.format); err != nil {
				return err
			}
			if answer.Status == models.StatusInvalidQuestion || answer.Status == models.StatusUnavailable {
				return fmt.Errorf("%s", answer.Status)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&strategy, "strategy", "s", "", "answer strategy: template or generative (default from config)")
	cmd.Flags().BoolVar(&advanced, "advanced", false, "shorthand for --strategy generative")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of passages to retrieve (default from config)")
	cmd.Flags().StringVar(&serverURL, "server", "", "ask a running server instead of opening the index (e.g. "+defaultServerURL+")")
	return cmd
}

func askViaHTTP(ctx context.Context, serverURL string, q *models.Question) (*models.Answer, error) {
	req := server.AskRequest{Question: q.Text, Strategy: string(q.Strategy), TopK: q.TopK}
	var answer models.Answer
	// Rejected and unavailable answers still carry a body worth printing.
	if err := newAPIClient(serverURL).do(ctx, http.MethodPost, "/api/v1/ask", req, &answer,
		http.StatusBadRequest, http.StatusServiceUnavailable); err != nil {
		return nil, err
	}
	return &answer, nil
}

func newRetrieveCmd(a *app) *cobra.Command {
	var (
		topK      int
		serverURL string
	)
	cmd := &cobra.Command{
		Use:   "retrieve <question>",
		Short: "Show the passages most similar to a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := buildQuestion(args)
			var passages []cli.Passage
			if serverURL != "" {
				var resp server.RetrieveResponse
				req := server.RetrieveRequest{Question: question, TopK: topK}
				if err := newAPIClient(serverURL).do(cmd.Context(), http.MethodPost, "/api/v1/retrieve", req, &resp); err != nil {
					return fmt.Errorf("retrieve failed: %w", err)
				}
				for _, p := range resp.Passages {
					passages = append(passages, cli.Passage(p))
				}
			} else {
				components, err := initializeComponents(cmd.Context(), a.cfg, a.componentLogger(), true)
				if err != nil {
					return err
				}
				defer components.Close()
				k := topK
				if k <= 0 {
					k = a.cfg.Query.TopK
				}
				hits, err := components.Engine.Retrieve(cmd.Context(), question, k)
				if err != nil {
					return fmt.Errorf("retrieve failed: %w", err)
				}
				passages = cli.PassagesFromHits(hits)
			}
			return cli.WritePassages(cmd.OutOrStdout(), passages, a.format)
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of passages (default from config)")
	cmd.Flags().StringVar(&serverURL, "server", "", "query a running server instead of opening the index")
	return cmd
}
