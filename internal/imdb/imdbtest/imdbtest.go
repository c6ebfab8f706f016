// Package imdbtest builds small IMDb source files for tests.
package imdbtest

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/vmunix/imdbeps/internal/imdb"
)

// N is the null marker used in the source files.
const N = imdb.NullValue

// Headers of the three published files.
var (
	BasicsHeader  = []string{"tconst", "titleType", "primaryTitle", "originalTitle", "isAdult", "startYear", "endYear", "runtimeMinutes", "genres"}
	RatingsHeader = []string{"tconst", "averageRating", "numVotes"}
	EpisodeHeader = []string{"tconst", "parentTconst", "seasonNumber", "episodeNumber"}
)

// Fixture holds the data rows of the three source files.
type Fixture struct {
	Basics  [][]string
	Ratings [][]string
	Episode [][]string
}

// Title builds a title.basics row.
func Title(id, titleType, primary, startYear, endYear string) []string {
	return []string{id, titleType, primary, primary, "0", startYear, endYear, N, N}
}

// Rating builds a title.ratings row.
func Rating(id, average, votes string) []string {
	return []string{id, average, votes}
}

// Episode builds a title.episode row.
func Episode(id, parent, season, episode string) []string {
	return []string{id, parent, season, episode}
}

// Gzip encodes a header and rows as gzip-compressed TSV.
func Gzip(t testing.TB, header []string, rows [][]string) []byte {
	t.Helper()
	var raw bytes.Buffer
	raw.WriteString(strings.Join(header, "\t"))
	raw.WriteByte('\n')
	for _, row := range rows {
		raw.WriteString(strings.Join(row, "\t"))
		raw.WriteByte('\n')
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw.Bytes()); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

// WriteFile writes gzip TSV content to path.
func WriteFile(t testing.TB, path string, header []string, rows [][]string) {
	t.Helper()
	if err := os.WriteFile(path, Gzip(t, header, rows), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// Write stores the fixture as the three published files in dir.
func (f Fixture) Write(t testing.TB, dir string) imdb.Sources {
	t.Helper()
	src := imdb.SourcesIn(dir)
	WriteFile(t, src.Basics, BasicsHeader, f.Basics)
	WriteFile(t, src.Ratings, RatingsHeader, f.Ratings)
	WriteFile(t, src.Episode, EpisodeHeader, f.Episode)
	return src
}

// Files returns the fixture as published file name -> gzip content, the shape
// served by a fake dataset host.
func (f Fixture) Files(t testing.TB) map[string][]byte {
	t.Helper()
	return map[string][]byte{
		imdb.FileName(imdb.DatasetBasics):  Gzip(t, BasicsHeader, f.Basics),
		imdb.FileName(imdb.DatasetRatings): Gzip(t, RatingsHeader, f.Ratings),
		imdb.FileName(imdb.DatasetEpisode): Gzip(t, EpisodeHeader, f.Episode),
	}
}

// Basic is the smallest fixture that yields one record: series tt1 "Show"
// with a single unrated episode tt2 "Ep One".
func Basic() Fixture {
	return Fixture{
		Basics: [][]string{
			Title("tt1", imdb.TypeSeries, "Show", "2000", N),
			Title("tt2", imdb.TypeEpisode, "Ep One", N, N),
		},
		Episode: [][]string{
			Episode("tt2", "tt1", "1", "1"),
		},
	}
}

// Mixed exercises every filter and join policy at once.
func Mixed() Fixture {
	return Fixture{
		Basics: [][]string{
			Title("tt0000010", imdb.TypeSeries, "Zeta Show", "1999", "2004"),
			Title("tt0000020", imdb.TypeMiniSeries, `"Quoted" Mini`, "2010", "2010"),
			Title("tt0000030", "movie", "A Movie", "2001", N),
			Title("tt0000101", imdb.TypeEpisode, "Pilot", "1999", N),
			Title("tt0000102", imdb.TypeEpisode, "Second", "1999", N),
			Title("tt0000103", imdb.TypeEpisode, "Unnumbered", N, N),
			Title("tt0000201", imdb.TypeEpisode, "Part 2", "2010", N),
			Title("tt0000202", imdb.TypeEpisode, "Part 1", "2010", N),
			Title("tt0000301", imdb.TypeEpisode, "Under A Movie", N, N),
			Title("tt0000401", "videoGame", "Not An Episode", N, N),
			Title("tt0000501", imdb.TypeEpisode, N, N, N),
		},
		Ratings: [][]string{
			Rating("tt0000101", "8.5", "1200"),
			Rating("tt0000201", "7.25", "33"),
			Rating("tt0000010", "9.0", "100000"),
		},
		Episode: [][]string{
			Episode("tt0000102", "tt0000010", "1", "2"),
			Episode("tt0000101", "tt0000010", "1", "1"),
			Episode("tt0000103", "tt0000010", N, "3"),
			Episode("tt0000201", "tt0000020", "1", "2"),
			Episode("tt0000202", "tt0000020", "1", "1"),
			Episode("tt0000301", "tt0000030", "1", "1"),
			Episode("tt0000401", "tt0000010", "2", "1"),
			Episode("tt0000501", "tt0000020", "2", N),
			Episode("tt0000999", "tt0000010", "3", "1"),
		},
	}
}
