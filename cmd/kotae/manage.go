package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/spf13/cobra"
)

// withComponents opens the index for the duration of fn.
func (a *app) withComponents(ctx context.Context, restore bool, fn func(*Components) error) error {
	components, err := initializeComponents(ctx, a.cfg, a.componentLogger(), restore)
	if err != nil {
		return err
	}
	defer components.Close()
	return fn(components)
}

func (a *app) printStats(cmd *cobra.Command, c *Components) error {
	return cli.WriteStats(cmd.OutOrStdout(), cli.StatsView{
		Stats:      c.Indexer.GetVectorStoreStats(),
		Strategies: c.Engine.Strategies(),
	}, a.format)
}

func newSamplesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "samples",
		Short: "Add the built-in sample documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withComponents(cmd.Context(), true, func(c *Components) error {
				if err := c.Indexer.AddSampleDocuments(cmd.Context()); err != nil {
					return err
				}
				return a.printStats(cmd, c)
			})
		},
	}
}

func newReindexCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Clear the index and load the sample documents again",
		Long: `Clear every document and vector, then add the sample documents with the
current chunking and embedding settings. Run it after changing the embedding
model; re-ingest your own files afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withComponents(cmd.Context(), false, func(c *Components) error {
				if err := c.Indexer.ClearAllDocuments(cmd.Context()); err != nil {
					return err
				}
				if err := c.Indexer.AddSampleDocuments(cmd.Context()); err != nil {
					return err
				}
				return a.printStats(cmd, c)
			})
		},
	}
}

func newClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every document from the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withComponents(cmd.Context(), false, func(c *Components) error {
				if err := c.Indexer.ClearAllDocuments(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "All documents cleared.")
				return nil
			})
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <document-id>...",
		Short: "Delete documents by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withComponents(cmd.Context(), true, func(c *Components) error {
				for _, id := range args {
					n, err := c.Indexer.DeleteDocument(cmd.Context(), id)
					if err != nil {
						return fmt.Errorf("deletion failed: %w", err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Document deleted: %s (%d chunks)\n", id, n)
				}
				return nil
			})
		},
	}
}

func newDocsCmd(a *app) *cobra.Command {
	var offset, limit int
	cmd := &cobra.Command{
		Use:   "docs [document-id]",
		Short: "List indexed documents, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Listing reads storage only, so skip rebuilding the vector store.
			return a.withComponents(cmd.Context(), false, func(c *Components) error {
				if len(args) == 1 {
					doc, err := c.Indexer.GetDocument(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					return writeDocument(cmd, doc, a.format)
				}
				docs, err := c.Indexer.ListDocuments(cmd.Context(), offset, limit)
				if err != nil {
					return err
				}
				return cli.WriteDocuments(cmd.OutOrStdout(), docs, a.format)
			})
		},
	}
	cmd.Flags().IntVar(&offset, "offset", 0, "skip this many documents")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum documents to list")
	return cmd
}

func writeDocument(cmd *cobra.Command, doc *models.Document, format cli.OutputFormat) error {
	w := cmd.OutOrStdout()
	if format == cli.OutputJSON {
		return cli.WriteJSON(w, doc)
	}
	fmt.Fprintf(w, "ID:      %s\n", doc.ID)
	if doc.Title != "" {
		fmt.Fprintf(w, "Title:   %s\n", doc.Title)
	}
	fmt.Fprintf(w, "Chunks:  %d\n", doc.Chunks)
	fmt.Fprintf(w, "Updated: %s\n", doc.UpdatedAt.Format("2006-01-02 15:04:05"))
	for k, v := range doc.Metadata {
		fmt.Fprintf(w, "  %s: %v\n", k, v)
	}
	fmt.Fprintf(w, "\n%s\n", cli.Truncate(doc.Content, 2000))
	return nil
}

func newStatsCmd(a *app) *cobra.Command {
	var serverURL string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if serverURL != "" {
				var resp server.StatsResponse
				if err := newAPIClient(serverURL).do(cmd.Context(), http.MethodGet, "/api/v1/stats", nil, &resp); err != nil {
					return fmt.Errorf("stats failed: %w", err)
				}
				return cli.WriteStats(cmd.OutOrStdout(), cli.StatsView(resp), a.format)
			}
			return a.withComponents(cmd.Context(), true, func(c *Components) error {
				return a.printStats(cmd, c)
			})
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "read stats from a running server (e.g. "+defaultServerURL+")")
	return cmd
}
