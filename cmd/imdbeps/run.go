package main

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vmunix/imdbeps/internal/config"
	"github.com/vmunix/imdbeps/internal/dataset"
	"github.com/vmunix/imdbeps/internal/fetch"
	"github.com/vmunix/imdbeps/internal/pipeline"
	"github.com/vmunix/imdbeps/internal/transform"
)

var skipFetch bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch the snapshots and build the episode dataset",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, pipeline.Config{SkipFetch: skipFetch})
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the snapshots into source.dir",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, pipeline.Config{FetchOnly: true})
	},
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the episode dataset from snapshots already on disk",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, pipeline.Config{SkipFetch: true})
	},
}

func init() {
	runCmd.Flags().BoolVar(&skipFetch, "skip-fetch", false, "Use the snapshots already in source.dir")
	rootCmd.AddCommand(runCmd, fetchCmd, buildCmd)
}

func runPipeline(cmd *cobra.Command, pc pipeline.Config) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	r, err := newRunner(cfg, logger, pc)
	if err != nil {
		return err
	}
	sum, err := r.Run(cmd.Context())
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), sum)
	}
	printSummary(cmd.OutOrStdout(), sum)
	return nil
}

// newRunner wires the configured stages into a pipeline runner.
func newRunner(cfg *config.Config, logger *slog.Logger, pc pipeline.Config) (*pipeline.Runner, error) {
	pc.Datasets = cfg.Source.Datasets
	pc.SourceDir = cfg.Source.Dir
	pc.WorkDir = filepath.Dir(filepath.Clean(cfg.Output.Path))
	if pc.RunID == "" {
		pc.RunID = newRunID()
	}

	var fetcher pipeline.Fetcher
	if !pc.SkipFetch {
		fetcher = fetch.NewClient(
			fetch.WithBaseURL(cfg.Source.BaseURL),
			fetch.WithTimeout(cfg.Fetch.Timeout.Duration),
			fetch.WithParallel(cfg.Fetch.Parallel),
			fetch.WithLogger(logger.With("component", "fetch")),
		)
	}
	if pc.FetchOnly {
		return pipeline.NewRunner(fetcher, nil, nil, pc, logger), nil
	}

	engine, err := transform.New(cfg.Transform.Engine, transform.Options{
		TitleTypes:  cfg.Transform.TitleTypes,
		StagingPath: cfg.Transform.StagingPath,
		Logger:      logger.With("component", "transform"),
	})
	if err != nil {
		return nil, err
	}
	writer, err := dataset.NewWriter(dataset.Options{
		Root:              cfg.Output.Path,
		Compression:       cfg.Output.Compression,
		CompressionLevel:  cfg.Output.CompressionLevel,
		DictionaryColumns: cfg.Output.DictionaryColumns,
		RowGroupSize:      cfg.Output.RowGroupSize,
		MaxRowsPerFile:    cfg.Output.MaxRowsPerFile,
		BasenameTemplate:  cfg.Output.BasenameTemplate,
		ExistingData:      dataset.ExistingData(cfg.Output.ExistingData),
		RunID:             pc.RunID,
		Logger:            logger.With("component", "dataset"),
	})
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(fetcher, engine, writer, pc, logger), nil
}

func printSummary(w io.Writer, sum *pipeline.Summary) {
	if len(sum.Downloads) > 0 {
		rows := make([][]string, 0, len(sum.Downloads))
		for _, d := range sum.Downloads {
			rows = append(rows, []string{d.Dataset, d.Path, formatSize(d.Bytes), formatDuration(d.Duration)})
		}
		fmt.Fprintln(w, renderTable(
			[]string{"Dataset", "File", "Size", "Time"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
		))
	}

	if sum.Output != nil {
		fmt.Fprintf(w, "Wrote %s episodes to %s (%d files, %s) using the %s engine\n",
			formatCount(sum.Records), sum.Output.Root, len(sum.Output.Files), formatSize(sum.Output.Bytes), sum.Engine)
	}
	fmt.Fprintf(w, "Run %s finished in %s\n", sum.RunID, formatDuration(sum.Duration))
}

func newRunID() string {
	return uuid.NewString()
}
