package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet"
	"github.com/apache/arrow/go/v17/parquet/compress"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"
	"github.com/dustin/go-humanize"

	"github.com/vmunix/imdbeps/internal/imdb"
)

// ExistingData selects what happens to data files already in the root.
type ExistingData string

const (
	// DeleteMatching removes every existing data file before the new ones
	// are moved into place.
	DeleteMatching ExistingData = "delete_matching"
	// OverwriteOrIgnore replaces files with the same name and keeps the rest.
	OverwriteOrIgnore ExistingData = "overwrite_or_ignore"
	// ErrorIfExists refuses to write into a root that has data files.
	ErrorIfExists ExistingData = "error"
)

// ExistingDataModes lists the accepted ExistingData values.
var ExistingDataModes = []ExistingData{DeleteMatching, OverwriteOrIgnore, ErrorIfExists}

// ErrExists is returned in ErrorIfExists mode when the root has data files.
var ErrExists = errors.New("dataset already contains data files")

// Defaults applied to zero Options fields.
const (
	DefaultRoot             = "dataset"
	DefaultCompression      = "zstd"
	DefaultRowGroupSize     = 1 << 20
	DefaultBasenameTemplate = "part-{i}.parquet"
)

// Options configures a Writer.
type Options struct {
	Root        string
	Compression string
	// CompressionLevel is passed to the codec; 0 keeps the codec default.
	CompressionLevel int
	// DictionaryColumns enables dictionary encoding for exactly these
	// columns. Empty keeps the Parquet writer default.
	DictionaryColumns []string
	RowGroupSize      int
	// MaxRowsPerFile splits the dataset into several files; 0 is unlimited.
	MaxRowsPerFile int
	// BasenameTemplate names data files. {i} is the zero-padded file index
	// and {uuid} the run id.
	BasenameTemplate string
	ExistingData     ExistingData
	RunID            string

	Allocator memory.Allocator
	Logger    *slog.Logger
}

// Writer writes episode records as a Parquet dataset.
type Writer struct {
	opts  Options
	codec compress.Compression
}

// Result describes a written dataset.
type Result struct {
	Root  string
	Files []string
	Rows  int
	Bytes int64
}

// NewWriter validates opts and applies defaults.
func NewWriter(opts Options) (*Writer, error) {
	if opts.Root == "" {
		opts.Root = DefaultRoot
	}
	if opts.Compression == "" {
		opts.Compression = DefaultCompression
	}
	if opts.RowGroupSize <= 0 {
		opts.RowGroupSize = DefaultRowGroupSize
	}
	if opts.MaxRowsPerFile < 0 {
		return nil, fmt.Errorf("max rows per file must not be negative, got %d", opts.MaxRowsPerFile)
	}
	if opts.BasenameTemplate == "" {
		opts.BasenameTemplate = DefaultBasenameTemplate
	}
	if !strings.Contains(opts.BasenameTemplate, "{i}") {
		return nil, fmt.Errorf("basename template %q must contain {i}", opts.BasenameTemplate)
	}
	if strings.ContainsRune(opts.BasenameTemplate, filepath.Separator) {
		return nil, fmt.Errorf("basename template %q must not contain a path separator", opts.BasenameTemplate)
	}
	if opts.ExistingData == "" {
		opts.ExistingData = DeleteMatching
	}
	if !slices.Contains(ExistingDataModes, opts.ExistingData) {
		return nil, fmt.Errorf("unknown existing data mode %q", opts.ExistingData)
	}
	if opts.Allocator == nil {
		opts.Allocator = memory.DefaultAllocator
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	codec, err := ParseCompression(opts.Compression)
	if err != nil {
		return nil, err
	}
	cols := Columns()
	for _, c := range opts.DictionaryColumns {
		if !slices.Contains(cols, c) {
			return nil, fmt.Errorf("dictionary column %q is not in the episode schema", c)
		}
	}
	return &Writer{opts: opts, codec: codec}, nil
}

// Root returns the dataset directory.
func (w *Writer) Root() string { return w.opts.Root }

func (w *Writer) writerProperties() *parquet.WriterProperties {
	props := []parquet.WriterProperty{
		parquet.WithCompression(w.codec),
		parquet.WithMaxRowGroupLength(int64(w.opts.RowGroupSize)),
	}
	if w.opts.CompressionLevel != 0 {
		props = append(props, parquet.WithCompressionLevel(w.opts.CompressionLevel))
	}
	if len(w.opts.DictionaryColumns) > 0 {
		props = append(props, parquet.WithDictionaryDefault(false))
		for _, c := range w.opts.DictionaryColumns {
			props = append(props, parquet.WithDictionaryFor(c, true))
		}
	}
	return parquet.NewWriterProperties(props...)
}

func (w *Writer) basename(i int) string {
	return strings.NewReplacer(
		"{i}", fmt.Sprintf("%05d", i),
		"{uuid}", w.opts.RunID,
	).Replace(w.opts.BasenameTemplate)
}

// Write stores records under the root directory, creating it if needed.
// New files are written under temporary hidden names and only moved into
// place once all of them are complete.
func (w *Writer) Write(ctx context.Context, records []imdb.EpisodeRecord) (*Result, error) {
	log := w.opts.Logger.With("root", w.opts.Root)
	start := time.Now()

	if err := os.MkdirAll(w.opts.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create dataset root: %w", err)
	}
	existing, err := DataFiles(w.opts.Root)
	if err != nil {
		return nil, err
	}
	if w.opts.ExistingData == ErrorIfExists && len(existing) > 0 {
		return nil, fmt.Errorf("%s: %w", w.opts.Root, ErrExists)
	}

	chunks := split(records, w.opts.MaxRowsPerFile)
	res := &Result{Root: w.opts.Root, Rows: len(records)}
	var temps []string
	cleanup := func() {
		for _, t := range temps {
			_ = os.Remove(t)
		}
	}

	for i, chunk := range chunks {
		name := w.basename(i)
		tmp := filepath.Join(w.opts.Root, "."+name+".tmp")
		temps = append(temps, tmp)
		size, err := w.writeFile(ctx, tmp, chunk)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
		res.Files = append(res.Files, filepath.Join(w.opts.Root, name))
		res.Bytes += size
		log.Debug("data file written", "file", name, "rows", len(chunk), "size", humanize.Bytes(uint64(size)))
	}

	if w.opts.ExistingData == DeleteMatching {
		for _, old := range existing {
			if err := os.Remove(old); err != nil && !errors.Is(err, os.ErrNotExist) {
				cleanup()
				return nil, fmt.Errorf("remove existing data file: %w", err)
			}
		}
	}
	for i, tmp := range temps {
		if err := os.Rename(tmp, res.Files[i]); err != nil {
			cleanup()
			return nil, fmt.Errorf("move data file into place: %w", err)
		}
	}

	log.Info("dataset written",
		"files", len(res.Files),
		"rows", res.Rows,
		"size", humanize.Bytes(uint64(res.Bytes)),
		"compression", w.opts.Compression,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return res, nil
}

func (w *Writer) writeFile(ctx context.Context, path string, records []imdb.EpisodeRecord) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	// The parquet writer closes f when the sink is an io.Closer.
	defer func() { _ = f.Close() }()

	fw, err := pqarrow.NewFileWriter(Schema, f, w.writerProperties(), pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()))
	if err != nil {
		return 0, fmt.Errorf("create parquet writer: %w", err)
	}
	for start := 0; start < len(records); start += w.opts.RowGroupSize {
		if err := ctx.Err(); err != nil {
			_ = fw.Close()
			return 0, err
		}
		end := min(start+w.opts.RowGroupSize, len(records))
		rec := NewRecord(w.opts.Allocator, records[start:end])
		err := fw.Write(rec)
		rec.Release()
		if err != nil {
			_ = fw.Close()
			return 0, fmt.Errorf("write row group: %w", err)
		}
	}
	if err := fw.Close(); err != nil {
		return 0, fmt.Errorf("close parquet writer: %w", err)
	}
	if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return 0, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// split cuts records into files of at most max rows. An empty input still
// yields one (empty) file so the schema is always present on disk.
func split(records []imdb.EpisodeRecord, max int) [][]imdb.EpisodeRecord {
	if max <= 0 || len(records) <= max {
		return [][]imdb.EpisodeRecord{records}
	}
	var chunks [][]imdb.EpisodeRecord
	for start := 0; start < len(records); start += max {
		chunks = append(chunks, records[start:min(start+max, len(records))])
	}
	return chunks
}

// DataFiles lists the Parquet data files directly under root in name order.
// Hidden files and files starting with an underscore are not data files.
func DataFiles(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("list dataset: %w", err)
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || !strings.HasSuffix(name, ".parquet") {
			continue
		}
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
			continue
		}
		files = append(files, filepath.Join(root, name))
	}
	return files, nil
}
