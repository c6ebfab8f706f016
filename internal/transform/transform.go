// Package transform joins the IMDb source files into episode records.
//
// The plan is the same for every engine: keep numbered episodes, left join
// their ratings, inner join their own title row, resolve the series title with
// a lookup on the parent id, drop episodes whose series title is unknown and
// sort by series id.
package transform

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vmunix/imdbeps/internal/imdb"
)

// Engine names accepted by New.
const (
	EngineMemory = "memory"
	EngineSQLite = "sqlite"
	EngineDuckDB = "duckdb"
)

// Engines lists every engine name.
var Engines = []string{EngineMemory, EngineSQLite, EngineDuckDB}

// Engine executes the episode plan over local source files.
type Engine interface {
	Name() string
	Transform(ctx context.Context, src imdb.Sources) ([]imdb.EpisodeRecord, error)
}

// Options configures an engine.
type Options struct {
	// TitleTypes restricts title.basics; defaults to imdb.DefaultTitleTypes.
	TitleTypes []string

	// StagingPath is the sqlite database file used by the sqlite engine.
	// Empty means an in-memory database.
	StagingPath string

	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if len(o.TitleTypes) == 0 {
		o.TitleTypes = imdb.DefaultTitleTypes
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// New returns the engine registered under name.
func New(name string, opts Options) (Engine, error) {
	opts = opts.withDefaults()
	switch name {
	case "", EngineMemory:
		return &Memory{opts: opts}, nil
	case EngineSQLite:
		return &SQLite{opts: opts}, nil
	case EngineDuckDB:
		return newDuckDB(opts)
	default:
		return nil, fmt.Errorf("unknown transform engine %q", name)
	}
}
