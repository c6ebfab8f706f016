package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vmunix/imdbeps/internal/dataset"
	"github.com/vmunix/imdbeps/internal/imdb"
	"github.com/vmunix/imdbeps/internal/lookup"
)

var episodesCmd = &cobra.Command{
	Use:   "episodes <series title>",
	Short: "List the episodes of a series from the written dataset",
	Long: `Finds the series whose title best matches the query (accents, case,
articles and punctuation are ignored) and lists its episodes.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEpisodes,
}

func init() {
	rootCmd.AddCommand(episodesCmd)
}

func runEpisodes(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}
	query := strings.Join(args, " ")

	records, err := dataset.Read(cmd.Context(), cfg.Output.Path)
	if err != nil {
		return err
	}
	matches := lookup.Series(query, records)
	if len(matches) == 0 {
		return fmt.Errorf("no series matches %q", query)
	}
	best := matches[0]
	episodes := lookup.Episodes(records, best.SeriesID)

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{"match": best, "episodes": episodes})
	}
	printEpisodes(cmd.OutOrStdout(), best, episodes)
	if len(matches) > 1 {
		var others []string
		for _, m := range matches[1:min(len(matches), 4)] {
			others = append(others, fmt.Sprintf("%s (%s)", m.Title, m.SeriesID))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Other matches: %s\n", strings.Join(others, ", "))
	}
	return nil
}

func printEpisodes(w io.Writer, m lookup.Match, episodes []imdb.EpisodeRecord) {
	since := ""
	if m.Year > 0 {
		since = fmt.Sprintf(" since %d", m.Year)
	}
	fmt.Fprintf(w, "%s (%s), %s episodes%s, %s confidence match\n", m.Title, m.SeriesID, formatCount(len(episodes)), since, m.Confidence)

	rows := make([][]string, 0, len(episodes))
	for _, e := range episodes {
		rows = append(rows, []string{
			strconv.Itoa(int(e.SeasonNumber)),
			strconv.Itoa(int(e.EpisodeNumber)),
			e.EpisodeID,
			deref(e.EpisodeTitle, "-"),
			ratingOf(e),
			votesOf(e),
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"Season", "Episode", "ID", "Title", "Rating", "Votes"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignRight, alignRight},
	))
}

func deref(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}

func ratingOf(e imdb.EpisodeRecord) string {
	if e.AverageRating == nil {
		return "-"
	}
	return strconv.FormatFloat(*e.AverageRating, 'f', 1, 64)
}

func votesOf(e imdb.EpisodeRecord) string {
	if e.NumVotes == nil {
		return "-"
	}
	return formatCount(*e.NumVotes)
}
