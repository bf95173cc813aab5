package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	defaultConfigPath = "/usr/local/etc/kotae/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// app carries state shared by every command: the resolved config, the logger
// and the global flags.
type app struct {
	configPath string
	debug      bool
	output     string

	cfg        *config.Config
	configFile string
	logger     *zap.Logger
	format     cli.OutputFormat
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "kotae",
		Short: "Answer questions from your documents",
		Long: `kotae indexes documents (text, Markdown, PDF, Word, spreadsheets) into a
vector index and answers questions from the most relevant passages, either
by composing an answer from them or by asking a language model.

Example usage:
  kotae serve                          # HTTP API plus watch-folder inbox
  kotae ingest docs/ --exclude drafts  # Index a directory
  kotae ingest "docs/**/*.pdf"         # Index files matching a glob
  kotae ask how many vacation days do I get`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", defaultConfigPath, "config file path")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "text", "output format: text or json")

	root.AddCommand(
		newServeCmd(a),
		newAskCmd(a),
		newRetrieveCmd(a),
		newIngestCmd(a),
		newSamplesCmd(a),
		newReindexCmd(a),
		newClearCmd(a),
		newDeleteCmd(a),
		newDocsCmd(a),
		newStatsCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) setup() error {
	format, err := cli.ParseFormat(a.output)
	if err != nil {
		return err
	}
	a.format = format

	config.LoadDotEnv()
	cfg, path, err := loadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.cfg, a.configFile = cfg, path

	logger, err := utils.NewLogger(cfg.Debug || a.debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	a.logger = logger
	return nil
}

// componentLogger is the logger handed to components by one-shot commands.
// They stay quiet unless debugging, so their output is just the result.
func (a *app) componentLogger() *zap.Logger {
	if a.cfg.Debug || a.debug {
		return a.logger
	}
	return zap.NewNop()
}

// loadConfig loads config from path. When path is the default, config.yaml in
// the current directory takes precedence, and a missing default file means
// built-in defaults. Returns the config and the file it came from, which is
// empty when no file was read.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, fs.ErrNotExist) {
			cfg := config.Default()
			config.ApplyEnv(cfg)
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		// No config is needed to print the version.
		PersistentPreRun: func(cmd *cobra.Command, args []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "kotae version %s\n", version)
		},
	}
}
