package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ingestSummary counts what an ingest run did.
type ingestSummary struct {
	Indexed int      `json:"indexed"`
	Skipped int      `json:"skipped"`
	Chunks  int      `json:"chunks"`
	Failed  []string `json:"failed,omitempty"`
}

func newIngestCmd(a *app) *cobra.Command {
	var (
		excludes []string
		noBar    bool
	)
	cmd := &cobra.Command{
		Use:   "ingest <file|dir|glob>...",
		Short: "Index files, directories or glob matches",
		Long: `Index files for question answering. Directories are walked recursively
and only files with a supported extension (watch.extensions in the config) are
taken. Globs use doublestar syntax; quote them so the shell leaves them alone.
Files unchanged since they were last indexed are skipped.

Examples:
  kotae ingest handbook.pdf
  kotae ingest docs/ --exclude "drafts/**" --exclude "*.tmp.md"
  kotae ingest "policies/**/*.{md,docx}"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := cli.NewCollector(excludes, a.cfg.Watch.Extensions).Collect(args)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No matching files.")
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			components, err := initializeComponents(ctx, a.cfg, a.componentLogger(), true)
			if err != nil {
				return err
			}
			defer components.Close()

			var progress io.Writer = cmd.ErrOrStderr()
			if noBar {
				progress = io.Discard
			}
			summary, err := ingestFiles(ctx, components.Indexer, files, progress, a.componentLogger())
			if werr := writeIngestSummary(cmd.OutOrStdout(), summary, a.format); werr != nil {
				return werr
			}
			if err != nil {
				return err
			}
			if len(summary.Failed) > 0 {
				return fmt.Errorf("%d of %d files failed", len(summary.Failed), len(files))
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&excludes, "exclude", "x", nil, "doublestar pattern to skip (repeatable)")
	cmd.Flags().BoolVar(&noBar, "no-progress", false, "hide the progress bar")
	return cmd
}

// ingestFiles indexes files one at a time. A failing file is recorded and the
// run continues; cancelling ctx stops it between files.
func ingestFiles(ctx context.Context, idx *indexer.Indexer, files []string, progress io.Writer, logger *zap.Logger) (*ingestSummary, error) {
	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan]Indexing[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(progress)
		}),
	)

	summary := &ingestSummary{}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		bar.Describe(fmt.Sprintf("[cyan]Indexing[reset] %s", cli.Truncate(filepath.Base(path), 32)))
		res, err := idx.IndexFile(ctx, path)
		switch {
		case errors.Is(err, context.Canceled):
			return summary, err
		case err != nil:
			logger.Warn("ingest failed", zap.String("path", path), zap.Error(err))
			summary.Failed = append(summary.Failed, fmt.Sprintf("%s: %v", path, err))
		case res.Skipped:
			summary.Skipped++
		default:
			summary.Indexed++
			summary.Chunks += res.Chunks
		}
		_ = bar.Add(1)
	}
	return summary, nil
}

func writeIngestSummary(w io.Writer, s *ingestSummary, format cli.OutputFormat) error {
	if s == nil {
		return nil
	}
	if format == cli.OutputJSON {
		return cli.WriteJSON(w, s)
	}
	fmt.Fprintf(w, "Indexing complete:\n")
	fmt.Fprintf(w, "  Files indexed:  %d\n", s.Indexed)
	fmt.Fprintf(w, "  Files skipped:  %d (unchanged)\n", s.Skipped)
	fmt.Fprintf(w, "  Chunks created: %d\n", s.Chunks)
	if len(s.Failed) > 0 {
		fmt.Fprintf(w, "\nFailures:\n")
		for _, f := range s.Failed {
			fmt.Fprintf(w, "  - %s\n", f)
		}
	}
	return nil
}
