package dataset_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow/go/v17/parquet/compress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/imdbeps/internal/dataset"
	"github.com/vmunix/imdbeps/internal/imdb"
	"github.com/vmunix/imdbeps/internal/imdb/imdbtest"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr[T any](v T) *T {
	return &v
}

func sampleRecords() []imdb.EpisodeRecord {
	return []imdb.EpisodeRecord{
		{
			EpisodeTitle: ptr("Pilot"), StartYear: ptr(int32(1999)), EndYear: nil,
			EpisodeID: "tt0000101", SeriesID: "tt0000010",
			SeasonNumber: 1, EpisodeNumber: 1,
			AverageRating: ptr(8.5), NumVotes: ptr(int32(1200)),
			SeriesTitle: "Zeta Show",
		},
		{
			EpisodeTitle: nil,
			EpisodeID:    "tt0000102", SeriesID: "tt0000010",
			SeasonNumber: 1, EpisodeNumber: 2,
			SeriesTitle: "Zeta Show",
		},
		{
			EpisodeTitle: ptr("Part 1"), StartYear: ptr(int32(2010)), EndYear: ptr(int32(2011)),
			EpisodeID: "tt0000202", SeriesID: "tt0000020",
			SeasonNumber: 1, EpisodeNumber: 1,
			AverageRating: ptr(7.25), NumVotes: ptr(int32(33)),
			SeriesTitle: `"Quoted" Mini`,
		},
	}
}

func manyRecords(n int) []imdb.EpisodeRecord {
	records := make([]imdb.EpisodeRecord, n)
	for i := range records {
		records[i] = imdb.EpisodeRecord{
			EpisodeTitle:  ptr(fmt.Sprintf("Episode %d", i)),
			EpisodeID:     fmt.Sprintf("tt%07d", 1000+i),
			SeriesID:      fmt.Sprintf("tt%07d", i/10),
			SeasonNumber:  int32(i % 10 / 5),
			EpisodeNumber: int32(i % 5),
			SeriesTitle:   fmt.Sprintf("Series %d", i/10),
		}
	}
	return records
}

func newWriter(t *testing.T, opts dataset.Options) *dataset.Writer {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = testLogger()
	}
	w, err := dataset.NewWriter(opts)
	require.NoError(t, err)
	return w
}

func TestWrite_RoundTrip(t *testing.T) {
	root := filepath.Join(t.TempDir(), "dataset")
	w := newWriter(t, dataset.Options{Root: root})

	res, err := w.Write(context.Background(), sampleRecords())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rows)
	require.Len(t, res.Files, 1)
	assert.Equal(t, filepath.Join(root, "part-00000.parquet"), res.Files[0])
	assert.Positive(t, res.Bytes)

	got, err := dataset.Read(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, sampleRecords(), got)
}

func TestWrite_EmptyKeepsSchema(t *testing.T) {
	root := t.TempDir()
	w := newWriter(t, dataset.Options{Root: root})

	res, err := w.Write(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, res.Files, 1)

	got, err := dataset.Read(context.Background(), root)
	require.NoError(t, err)
	assert.Empty(t, got)

	infos, err := dataset.Inspect(root)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Zero(t, infos[0].Rows)
}

func TestWrite_ZstdAndDictionaryOnSeriesTitle(t *testing.T) {
	root := t.TempDir()
	w := newWriter(t, dataset.Options{
		Root:              root,
		DictionaryColumns: []string{dataset.ColSeriesTitle},
	})
	_, err := w.Write(context.Background(), sampleRecords())
	require.NoError(t, err)

	infos, err := dataset.Inspect(root)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	info := infos[0]
	assert.EqualValues(t, 3, info.Rows)
	assert.Equal(t, 1, info.RowGroups)
	require.Len(t, info.Columns, len(dataset.Columns()))

	for i, col := range info.Columns {
		assert.Equal(t, dataset.Columns()[i], col.Name)
		assert.Equal(t, "zstd", col.Compression, col.Name)
		assert.Equal(t, col.Name == dataset.ColSeriesTitle, col.Dictionary, col.Name)
	}
}

func TestWrite_Compression(t *testing.T) {
	for _, codec := range []string{"snappy", "gzip", "none"} {
		t.Run(codec, func(t *testing.T) {
			root := t.TempDir()
			w := newWriter(t, dataset.Options{Root: root, Compression: codec})
			_, err := w.Write(context.Background(), sampleRecords())
			require.NoError(t, err)

			infos, err := dataset.Inspect(root)
			require.NoError(t, err)
			for _, col := range infos[0].Columns {
				assert.Equal(t, codec, col.Compression)
			}
			got, err := dataset.Read(context.Background(), root)
			require.NoError(t, err)
			assert.Equal(t, sampleRecords(), got)
		})
	}
}

func TestWrite_RowGroupsAndFileSplit(t *testing.T) {
	root := t.TempDir()
	records := manyRecords(25)
	w := newWriter(t, dataset.Options{Root: root, RowGroupSize: 4, MaxRowsPerFile: 10})

	res, err := w.Write(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "part-00000.parquet"),
		filepath.Join(root, "part-00001.parquet"),
		filepath.Join(root, "part-00002.parquet"),
	}, res.Files)

	infos, err := dataset.Inspect(root)
	require.NoError(t, err)
	require.Len(t, infos, 3)
	assert.EqualValues(t, 10, infos[0].Rows)
	assert.Equal(t, 3, infos[0].RowGroups)
	assert.EqualValues(t, 5, infos[2].Rows)
	assert.Equal(t, 2, infos[2].RowGroups)

	got, err := dataset.Read(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestWrite_RerunIsIdempotent(t *testing.T) {
	root := t.TempDir()
	w := newWriter(t, dataset.Options{Root: root, MaxRowsPerFile: 10})

	_, err := w.Write(context.Background(), manyRecords(25))
	require.NoError(t, err)
	_, err = w.Write(context.Background(), sampleRecords())
	require.NoError(t, err)

	files, err := dataset.DataFiles(root)
	require.NoError(t, err)
	assert.Len(t, files, 1)

	got, err := dataset.Read(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, sampleRecords(), got)
}

func TestWrite_OverwriteOrIgnoreKeepsOtherFiles(t *testing.T) {
	root := t.TempDir()
	first := newWriter(t, dataset.Options{Root: root, BasenameTemplate: "a-{i}.parquet"})
	_, err := first.Write(context.Background(), sampleRecords())
	require.NoError(t, err)

	second := newWriter(t, dataset.Options{
		Root:             root,
		BasenameTemplate: "b-{i}.parquet",
		ExistingData:     dataset.OverwriteOrIgnore,
	})
	_, err = second.Write(context.Background(), sampleRecords()[:1])
	require.NoError(t, err)

	got, err := dataset.Read(context.Background(), root)
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestWrite_ErrorIfExists(t *testing.T) {
	root := t.TempDir()
	_, err := newWriter(t, dataset.Options{Root: root}).Write(context.Background(), sampleRecords())
	require.NoError(t, err)

	w := newWriter(t, dataset.Options{Root: root, ExistingData: dataset.ErrorIfExists})
	_, err = w.Write(context.Background(), sampleRecords())
	assert.ErrorIs(t, err, dataset.ErrExists)
}

func TestWrite_UUIDTemplate(t *testing.T) {
	root := t.TempDir()
	w := newWriter(t, dataset.Options{
		Root:             root,
		BasenameTemplate: "{uuid}-{i}.parquet",
		RunID:            "run42",
	})
	res, err := w.Write(context.Background(), sampleRecords())
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "run42-00000.parquet")}, res.Files)
}

func TestWrite_IgnoresHiddenAndForeignFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "_SUCCESS.parquet"), nil, 0o644))

	_, err := newWriter(t, dataset.Options{Root: root}).Write(context.Background(), sampleRecords())
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(root, "README.txt"))
	assert.FileExists(t, filepath.Join(root, "_SUCCESS.parquet"))
	got, err := dataset.Read(context.Background(), root)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestWrite_CanceledLeavesNoFiles(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newWriter(t, dataset.Options{Root: root}).Write(ctx, sampleRecords())
	require.ErrorIs(t, err, context.Canceled)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNewWriter_Validation(t *testing.T) {
	tests := []struct {
		name string
		opts dataset.Options
		want string
	}{
		{"unknown codec", dataset.Options{Compression: "zip"}, "unknown compression codec"},
		{"unknown dictionary column", dataset.Options{DictionaryColumns: []string{"title"}}, `dictionary column "title"`},
		{"template without index", dataset.Options{BasenameTemplate: "part.parquet"}, "must contain {i}"},
		{"template with separator", dataset.Options{BasenameTemplate: "a/{i}.parquet"}, "path separator"},
		{"unknown existing data", dataset.Options{ExistingData: "append"}, "unknown existing data mode"},
		{"negative max rows", dataset.Options{MaxRowsPerFile: -1}, "must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := dataset.NewWriter(tt.opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewWriter_Defaults(t *testing.T) {
	w, err := dataset.NewWriter(dataset.Options{})
	require.NoError(t, err)
	assert.Equal(t, dataset.DefaultRoot, w.Root())
}

func TestRead_MissingRoot(t *testing.T) {
	_, err := dataset.Read(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestParseCompression(t *testing.T) {
	c, err := dataset.ParseCompression("ZSTD")
	require.NoError(t, err)
	assert.Equal(t, compress.Codecs.Zstd, c)

	// Every accepted name must have a codec the writer can use.
	for _, name := range dataset.Codecs() {
		c, err := dataset.ParseCompression(name)
		require.NoError(t, err)
		_, err = compress.GetCodec(c)
		assert.NoError(t, err, name)
	}
	_, err = dataset.ParseCompression("lz4")
	require.Error(t, err)
	_, err = dataset.ParseCompression("lzo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zstd")
	assert.Contains(t, dataset.Codecs(), "brotli")
}

func TestExportTSV(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, imdb.FileName(imdb.DatasetBasics))
	f := imdbtest.Mixed()
	imdbtest.WriteFile(t, src, imdbtest.BasicsHeader, f.Basics)

	dst := filepath.Join(dir, "out", "basics.parquet")
	rows, err := dataset.ExportTSV(context.Background(), src, dst, dataset.ExportOptions{BatchSize: 2, Logger: testLogger()})
	require.NoError(t, err)
	assert.EqualValues(t, len(f.Basics), rows)
	assert.FileExists(t, dst)
	assert.NoFileExists(t, filepath.Join(dir, "out", ".basics.parquet.tmp"))
}
