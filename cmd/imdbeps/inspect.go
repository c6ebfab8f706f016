package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vmunix/imdbeps/internal/dataset"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [path]",
	Short: "Show the files, row groups and encodings of a dataset",
	Long:  "Inspects the Parquet dataset at path, or at output.path when no path is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}
	root := cfg.Output.Path
	if len(args) > 0 {
		root = args[0]
	}

	infos, err := dataset.Inspect(root)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), infos)
	}
	printInspect(cmd.OutOrStdout(), root, infos)
	return nil
}

func printInspect(w io.Writer, root string, infos []dataset.FileInfo) {
	if len(infos) == 0 {
		fmt.Fprintf(w, "No data files in %s\n", root)
		return
	}

	var rows int64
	var size int64
	fileRows := make([][]string, 0, len(infos))
	for _, info := range infos {
		rows += info.Rows
		size += info.Size
		fileRows = append(fileRows, []string{
			info.Name,
			formatCount(info.Rows),
			formatCount(info.RowGroups),
			formatSize(info.Size),
			compressionOf(info),
			joinOrDash(dictionaryColumns(info)),
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"File", "Rows", "Row groups", "Size", "Compression", "Dictionary"},
		fileRows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
	))
	fmt.Fprintf(w, "%s: %d files, %s rows, %s\n", root, len(infos), formatCount(rows), formatSize(size))
}

// compressionOf returns the codec shared by all columns, or "mixed".
func compressionOf(info dataset.FileInfo) string {
	codec := ""
	for _, c := range info.Columns {
		switch {
		case c.Compression == "":
		case codec == "":
			codec = c.Compression
		case codec != c.Compression:
			return "mixed"
		}
	}
	if codec == "" {
		return "-"
	}
	return codec
}

func dictionaryColumns(info dataset.FileInfo) []string {
	var cols []string
	for _, c := range info.Columns {
		if c.Dictionary {
			cols = append(cols, c.Name)
		}
	}
	return cols
}
