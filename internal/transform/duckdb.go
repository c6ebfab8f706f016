//go:build cgo

package transform

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/vmunix/imdbeps/internal/imdb"
)

//go:embed sql/duckdb_episodes.sql
var duckdbEpisodesQuery string

// DuckDB runs the plan inside an embedded DuckDB database, reading the gzip
// files directly with read_csv. Every column is read as text and cast in
// the query.
type DuckDB struct {
	opts Options
}

func newDuckDB(opts Options) (Engine, error) {
	return &DuckDB{opts: opts}, nil
}

// Name implements Engine.
func (d *DuckDB) Name() string { return EngineDuckDB }

// Transform implements Engine.
func (d *DuckDB) Transform(ctx context.Context, src imdb.Sources) ([]imdb.EpisodeRecord, error) {
	log := d.opts.Logger.With("engine", EngineDuckDB)
	start := time.Now()

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := d.checkUnique(ctx, db, src); err != nil {
		return nil, err
	}

	records, err := queryRecords(ctx, db, duckdbQuery(src, d.opts.TitleTypes))
	if err != nil {
		return nil, err
	}
	log.Info("transform complete", "records", len(records), "duration", time.Since(start).Round(time.Millisecond))
	return records, nil
}

// checkUnique rejects duplicate ids among the ratings and the titles of the
// selected types, which the join would otherwise repeat.
func (d *DuckDB) checkUnique(ctx context.Context, db *sql.DB, src imdb.Sources) error {
	checks := []struct {
		path  string
		where string
		types []string
	}{
		{src.Basics, "titleType IN (" + typeList(d.opts.TitleTypes) + ")", d.opts.TitleTypes},
		{src.Ratings, "true", nil},
	}
	for _, c := range checks {
		query := fmt.Sprintf("SELECT tconst FROM %s WHERE %s GROUP BY tconst HAVING count(*) > 1 ORDER BY tconst LIMIT 1",
			readTSV(c.path), c.where)
		var id string
		err := db.QueryRowContext(ctx, query).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return fmt.Errorf("check ids in %s: %w", filepath.Base(c.path), err)
		}
		return duplicateAt(c.path, id, c.types)
	}
	return nil
}

// duplicateAt locates the second row carrying id and reports it. When types
// is set only titles of those types count.
func duplicateAt(path, id string, types []string) error {
	r, err := imdb.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	cols := []string{imdb.ColTconst}
	if types != nil {
		cols = append(cols, imdb.ColTitleType)
	}
	idx, err := r.Columns(cols...)
	if err != nil {
		return err
	}
	seen := false
	for {
		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if row[idx[0]] != id || (types != nil && !slices.Contains(types, row[idx[1]])) {
			continue
		}
		if seen {
			return &imdb.ParseError{File: r.Name(), Line: r.Line(), Column: imdb.ColTconst,
				Err: fmt.Errorf("%w: %s", imdb.ErrDuplicateID, id)}
		}
		seen = true
	}
	return &imdb.ParseError{File: r.Name(), Column: imdb.ColTconst, Err: fmt.Errorf("%w: %s", imdb.ErrDuplicateID, id)}
}

func typeList(titleTypes []string) string {
	types := make([]string, len(titleTypes))
	for i, t := range titleTypes {
		types[i] = quoteLiteral(t)
	}
	return strings.Join(types, ", ")
}

func duckdbQuery(src imdb.Sources, titleTypes []string) string {
	return strings.NewReplacer(
		"{{basics}}", readTSV(src.Basics),
		"{{ratings}}", readTSV(src.Ratings),
		"{{episode}}", readTSV(src.Episode),
		"{{title_types}}", typeList(titleTypes),
	).Replace(duckdbEpisodesQuery)
}

// readTSV is the read_csv call for an IMDb file: tab separated, header row,
// quoting disabled and \N as null.
func readTSV(path string) string {
	return fmt.Sprintf("read_csv(%s, header = true, delim = '\t', quote = '', nullstr = %s, all_varchar = true)",
		quoteLiteral(path), quoteLiteral(imdb.NullValue))
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
