package main

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vmunix/imdbeps/internal/dataset"
	"github.com/vmunix/imdbeps/internal/imdb"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <dataset>",
	Short: "Convert a raw snapshot to a single Parquet file",
	Long: `Converts source.dir/title.<dataset>.tsv.gz to Parquet. Every column keeps
its header name and is stored as a nullable string.

Datasets: ` + strings.Join(imdb.Datasets, ", "),
	Args:      cobra.ExactArgs(1),
	ValidArgs: imdb.Datasets,
	RunE:      runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default: source.dir/title.<dataset>.parquet)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	ds := args[0]
	if !slices.Contains(imdb.Datasets, ds) {
		return fmt.Errorf("unknown dataset %q (valid: %s)", ds, strings.Join(imdb.Datasets, ", "))
	}

	src := cfg.Sources().Path(ds)
	dst := exportOut
	if dst == "" {
		dst = filepath.Join(cfg.Source.Dir, "title."+ds+".parquet")
	}

	rows, err := dataset.ExportTSV(cmd.Context(), src, dst, dataset.ExportOptions{
		Compression:      cfg.Output.Compression,
		CompressionLevel: cfg.Output.CompressionLevel,
		Logger:           logger.With("component", "export"),
	})
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{"dataset": ds, "path": dst, "rows": rows})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %s rows from %s to %s\n", formatCount(rows), src, dst)
	return nil
}
