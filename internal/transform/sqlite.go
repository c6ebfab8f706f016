package transform

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vmunix/imdbeps/internal/imdb"
)

//go:embed sql/sqlite_schema.sql
var sqliteSchema string

//go:embed sql/sqlite_episodes.sql
var sqliteEpisodesQuery string

// SQLite stages the source rows in a sqlite database and runs the plan as a
// single SQL statement with a correlated subquery for the series title.
type SQLite struct {
	opts Options
}

// Name implements Engine.
func (s *SQLite) Name() string { return EngineSQLite }

// Transform implements Engine.
func (s *SQLite) Transform(ctx context.Context, src imdb.Sources) ([]imdb.EpisodeRecord, error) {
	log := s.opts.Logger.With("engine", EngineSQLite)
	start := time.Now()

	dsn := ":memory:"
	if s.opts.StagingPath != "" {
		dsn = s.opts.StagingPath
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open staging db: %w", err)
	}
	defer func() { _ = db.Close() }()
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("create staging tables: %w", err)
	}

	if err := s.stage(ctx, db, src); err != nil {
		return nil, err
	}
	log.Debug("sources staged", "duration", time.Since(start).Round(time.Millisecond))

	records, err := queryRecords(ctx, db, sqliteEpisodesQuery)
	if err != nil {
		return nil, err
	}
	log.Info("transform complete", "records", len(records), "duration", time.Since(start).Round(time.Millisecond))
	return records, nil
}

func (s *SQLite) stage(ctx context.Context, db *sql.DB, src imdb.Sources) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	titles, err := tx.PrepareContext(ctx, `INSERT INTO titles (tconst, titleType, primaryTitle, startYear, endYear) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare titles: %w", err)
	}
	defer func() { _ = titles.Close() }()

	err = withReader(src.Basics, func(r *imdb.Reader) error {
		return imdb.ScanTitles(r, s.opts.TitleTypes, func(t imdb.Title) error {
			_, err := titles.ExecContext(ctx, t.ID, t.Type, nullable(t.PrimaryTitle), nullableInt(t.StartYear), nullableInt(t.EndYear))
			return stageError(r, err)
		})
	})
	if err != nil {
		return fmt.Errorf("stage titles: %w", err)
	}

	ratings, err := tx.PrepareContext(ctx, `INSERT INTO ratings (tconst, averageRating, numVotes) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare ratings: %w", err)
	}
	defer func() { _ = ratings.Close() }()

	err = withReader(src.Ratings, func(r *imdb.Reader) error {
		return imdb.ScanRatings(r, func(rt imdb.Rating) error {
			_, err := ratings.ExecContext(ctx, rt.TitleID, nullable(rt.AverageRating), nullableInt(rt.NumVotes))
			return stageError(r, err)
		})
	})
	if err != nil {
		return fmt.Errorf("stage ratings: %w", err)
	}

	episodes, err := tx.PrepareContext(ctx, `INSERT INTO episodes (tconst, parentTconst, seasonNumber, episodeNumber) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare episodes: %w", err)
	}
	defer func() { _ = episodes.Close() }()

	err = withReader(src.Episode, func(r *imdb.Reader) error {
		return imdb.ScanEpisodes(r, func(e imdb.Episode) error {
			_, err := episodes.ExecContext(ctx, e.ID, e.ParentID, int64(*e.SeasonNumber), int64(*e.EpisodeNumber))
			return stageError(r, err)
		})
	})
	if err != nil {
		return fmt.Errorf("stage episodes: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit staging: %w", err)
	}
	return nil
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullableInt(p *int32) any {
	if p == nil {
		return nil
	}
	return int64(*p)
}

// stageError reports primary key violations as duplicate ids at the current
// source line.
func stageError(r *imdb.Reader, err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY constraint failed") {
		return &imdb.ParseError{File: r.Name(), Line: r.Line(), Column: imdb.ColTconst, Err: imdb.ErrDuplicateID}
	}
	return err
}

// queryRecords runs a query whose columns follow the episode record layout.
func queryRecords(ctx context.Context, db *sql.DB, query string) ([]imdb.EpisodeRecord, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query episodes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]imdb.EpisodeRecord, 0)
	for rows.Next() {
		var rec imdb.EpisodeRecord
		if err := rows.Scan(
			&rec.EpisodeTitle, &rec.StartYear, &rec.EndYear,
			&rec.EpisodeID, &rec.SeriesID,
			&rec.SeasonNumber, &rec.EpisodeNumber,
			&rec.AverageRating, &rec.NumVotes,
			&rec.SeriesTitle,
		); err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate episodes: %w", err)
	}
	return records, nil
}
