// Package cli implements the caselens command-line interface.  The commands
// run against local dataset exports, so an analyst can check a case for
// duplicates without a running server.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openlands/caselens/internal/config"
	"github.com/openlands/caselens/internal/domain/casefile"
	"github.com/openlands/caselens/internal/infrastructure/dataset"
	"github.com/openlands/caselens/internal/infrastructure/monitoring/logging"
	"github.com/openlands/caselens/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	DataDir    string
	Datasets   []string
	Output     string
	NoColor    bool
}

// NewRootCommand creates the root command with all global flags and
// subcommands.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "caselens",
		Short:   "caselens — historical case similarity and duplicate detection",
		Long:    "caselens ranks historical complaint cases by similarity to a query case\nand flags potential duplicates, using per-field comparators over location,\nslope/tree identifier, subject matter, caller name, and contact number.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "Path to a YAML config file (defaults to environment variables)")
	flags.StringVar(&opts.LogLevel, "log-level", "error", "Log level: debug|info|warn|error")
	flags.StringVar(&opts.DataDir, "data-dir", "./data", "Directory holding <dataset>.csv exports")
	flags.StringSliceVar(&opts.Datasets, "datasets", nil, "Datasets to load (defaults to the configured corpus)")
	flags.StringVar(&opts.Output, "output", "table", "Output format: table|json")
	flags.BoolVar(&opts.NoColor, "no-color", false, "Disable colorized output")

	cmd.AddCommand(
		NewMatchCmd(opts),
		NewStatsCmd(opts),
		NewImportCmd(opts),
		NewRefreshCmd(opts),
	)
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

// loadConfig resolves the effective configuration for a CLI invocation.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	if opts.ConfigPath != "" {
		return config.Load(opts.ConfigPath)
	}
	return config.LoadFromEnv()
}

// newLogger builds the CLI logger; console format keeps diagnostics
// readable next to command output.
func newLogger(opts *RootOptions) (logging.Logger, error) {
	return logging.NewLogger(logging.Config{
		Level:  opts.LogLevel,
		Format: "console",
	})
}

// resolveDatasets picks the dataset list: the --datasets flag wins, then the
// configured corpus.
func resolveDatasets(opts *RootOptions, cfg *config.Config) ([]string, error) {
	if len(opts.Datasets) > 0 {
		return opts.Datasets, nil
	}
	if len(cfg.Corpus.Datasets) > 0 {
		return cfg.Corpus.Datasets, nil
	}
	return nil, errors.New(errors.ErrCodeCaseDatasetUnknown,
		"no datasets specified: pass --datasets or configure corpus.datasets")
}

// buildEngine loads the datasets from --data-dir and returns a ready engine.
func buildEngine(ctx context.Context, opts *RootOptions, cfg *config.Config, logger logging.Logger) (*casefile.Engine, error) {
	datasets, err := resolveDatasets(opts, cfg)
	if err != nil {
		return nil, err
	}

	source := dataset.NewFileSource(opts.DataDir, logger)
	engine, err := casefile.NewEngine(cfg.Engine.EngineOptions(), source, logger)
	if err != nil {
		return nil, err
	}
	if err := engine.Refresh(ctx, datasets); err != nil {
		return nil, err
	}
	return engine, nil
}

// printJSON renders v as indented JSON on stdout.
func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode output")
	}
	fmt.Println(string(data))
	return nil
}

// truncateString shortens s for table cells.
func truncateString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func validOutput(output string) error {
	switch strings.ToLower(output) {
	case "table", "json":
		return nil
	default:
		return errors.New(errors.ErrCodeValidation,
			fmt.Sprintf("invalid output format %q (must be table|json)", output))
	}
}
