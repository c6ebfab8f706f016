//go:build cgo

package transform_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/imdbeps/internal/imdb"
	"github.com/vmunix/imdbeps/internal/imdb/imdbtest"
	"github.com/vmunix/imdbeps/internal/transform"
)

func TestDuckDB_MatchesMemory(t *testing.T) {
	if testing.Short() {
		t.Skip("duckdb engine is slow to start")
	}
	fixtures := map[string]imdbtest.Fixture{
		"basic": imdbtest.Basic(),
		"mixed": imdbtest.Mixed(),
	}
	for name, f := range fixtures {
		t.Run(name, func(t *testing.T) {
			src := f.Write(t, t.TempDir())

			mem, err := transform.New(transform.EngineMemory, transform.Options{Logger: testLogger()})
			require.NoError(t, err)
			want, err := mem.Transform(context.Background(), src)
			require.NoError(t, err)

			duck, err := transform.New(transform.EngineDuckDB, transform.Options{Logger: testLogger()})
			require.NoError(t, err)
			got, err := duck.Transform(context.Background(), src)
			require.NoError(t, err)

			assert.Equal(t, want, got)
		})
	}
}

func TestDuckDB_DuplicateIDIsFatal(t *testing.T) {
	if testing.Short() {
		t.Skip("duckdb engine is slow to start")
	}
	ratings := imdbtest.Basic()
	ratings.Ratings = [][]string{
		imdbtest.Rating("tt2", "5.0", "10"),
		imdbtest.Rating("tt2", "6.0", "11"),
	}
	series := imdbtest.Basic()
	series.Basics = append(series.Basics, series.Basics[0])

	tests := []struct {
		name    string
		fixture imdbtest.Fixture
		file    string
	}{
		{"rating", ratings, imdb.FileName(imdb.DatasetRatings)},
		{"series", series, imdb.FileName(imdb.DatasetBasics)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := transform.New(transform.EngineDuckDB, transform.Options{Logger: testLogger()})
			require.NoError(t, err)

			_, err = e.Transform(context.Background(), tt.fixture.Write(t, t.TempDir()))
			require.ErrorIs(t, err, imdb.ErrDuplicateID)
			var pe *imdb.ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.file, pe.File)
			assert.Equal(t, imdb.ColTconst, pe.Column)
			assert.Greater(t, pe.Line, 2)
		})
	}
}
