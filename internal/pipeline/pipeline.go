// Package pipeline runs the fetch, transform and write stages in order.
package pipeline

//go:generate mockgen -source=pipeline.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/vmunix/imdbeps/internal/dataset"
	"github.com/vmunix/imdbeps/internal/fetch"
	"github.com/vmunix/imdbeps/internal/imdb"
)

// LockFile is the name of the lock file kept in the working directory.
const LockFile = ".imdbeps.lock"

// ErrLocked is returned when another run holds the working directory lock.
var ErrLocked = errors.New("another run holds the lock")

// Stage names used in errors and logs.
const (
	StageFetch     = "fetch"
	StageTransform = "transform"
	StageWrite     = "write"
)

// Fetcher downloads the raw dataset files.
type Fetcher interface {
	FetchAll(ctx context.Context, datasets []string, dir string) ([]fetch.Download, error)
}

// Engine turns the raw files into episode records.
type Engine interface {
	Name() string
	Transform(ctx context.Context, src imdb.Sources) ([]imdb.EpisodeRecord, error)
}

// Writer persists episode records.
type Writer interface {
	Write(ctx context.Context, records []imdb.EpisodeRecord) (*dataset.Result, error)
}

// Config controls which stages run and where.
type Config struct {
	Datasets  []string
	SourceDir string
	// WorkDir holds the lock file. Defaults to the current directory.
	WorkDir   string
	SkipFetch bool
	// FetchOnly stops after the fetch stage.
	FetchOnly bool
	// RunID tags logs and output file names. Generated when empty.
	RunID string
}

// Summary reports what a run did.
type Summary struct {
	RunID     string
	Engine    string
	Downloads []fetch.Download
	Records   int
	Output    *dataset.Result
	Stages    []StageTiming
	Duration  time.Duration
}

// StageTiming is the wall time of one completed stage.
type StageTiming struct {
	Stage    string
	Duration time.Duration
}

// Runner executes one pipeline run.
type Runner struct {
	fetcher Fetcher
	engine  Engine
	writer  Writer
	config  Config
	logger  *slog.Logger
}

// NewRunner creates a new runner. The fetcher may be nil when fetching is
// skipped; engine and writer may be nil for fetch-only runs.
func NewRunner(fetcher Fetcher, engine Engine, writer Writer, cfg Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Datasets == nil {
		cfg.Datasets = imdb.Datasets
	}
	if cfg.SourceDir == "" {
		cfg.SourceDir = "."
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = "."
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	return &Runner{
		fetcher: fetcher,
		engine:  engine,
		writer:  writer,
		config:  cfg,
		logger:  logger.With("run", cfg.RunID),
	}
}

// RunID returns the id of this run.
func (r *Runner) RunID() string { return r.config.RunID }

// Run executes the configured stages. It holds the working directory lock
// for the whole run and returns ErrLocked if another run holds it.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	if err := r.check(); err != nil {
		return nil, err
	}

	unlock, err := r.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	start := time.Now()
	sum := &Summary{RunID: r.config.RunID}
	r.logger.Info("run started", "skip_fetch", r.config.SkipFetch, "fetch_only", r.config.FetchOnly)

	if !r.config.SkipFetch {
		err := r.stage(ctx, sum, StageFetch, func(ctx context.Context) error {
			downloads, err := r.fetcher.FetchAll(ctx, r.config.Datasets, r.config.SourceDir)
			sum.Downloads = downloads
			return err
		})
		if err != nil {
			return nil, err
		}
	}
	if r.config.FetchOnly {
		sum.Duration = time.Since(start)
		r.logger.Info("run complete", "duration", sum.Duration.Round(time.Millisecond))
		return sum, nil
	}

	sum.Engine = r.engine.Name()
	var records []imdb.EpisodeRecord
	err = r.stage(ctx, sum, StageTransform, func(ctx context.Context) error {
		var err error
		records, err = r.engine.Transform(ctx, imdb.SourcesIn(r.config.SourceDir))
		return err
	})
	if err != nil {
		return nil, err
	}
	sum.Records = len(records)

	err = r.stage(ctx, sum, StageWrite, func(ctx context.Context) error {
		res, err := r.writer.Write(ctx, records)
		sum.Output = res
		return err
	})
	if err != nil {
		return nil, err
	}

	sum.Duration = time.Since(start)
	r.logger.Info("run complete",
		"records", sum.Records,
		"files", len(sum.Output.Files),
		"duration", sum.Duration.Round(time.Millisecond),
	)
	return sum, nil
}

func (r *Runner) check() error {
	switch {
	case !r.config.SkipFetch && r.fetcher == nil:
		return errors.New("pipeline: fetch stage has no fetcher")
	case r.config.SkipFetch && r.config.FetchOnly:
		return errors.New("pipeline: nothing to do with fetch skipped and fetch only set")
	case !r.config.FetchOnly && (r.engine == nil || r.writer == nil):
		return errors.New("pipeline: build stages need an engine and a writer")
	}
	return nil
}

func (r *Runner) stage(ctx context.Context, sum *Summary, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	log := r.logger.With("stage", name)
	log.Info("stage started")
	start := time.Now()

	if err := fn(ctx); err != nil {
		log.Error("stage failed", "error", err)
		return fmt.Errorf("%s: %w", name, err)
	}

	d := time.Since(start)
	sum.Stages = append(sum.Stages, StageTiming{Stage: name, Duration: d})
	log.Info("stage complete", "duration", d.Round(time.Millisecond))
	return nil
}

func (r *Runner) lock() (func(), error) {
	if err := os.MkdirAll(r.config.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	path := filepath.Join(r.config.WorkDir, LockFile)
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrLocked)
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			r.logger.Warn("failed to release lock", "path", path, "error", err)
		}
	}, nil
}
