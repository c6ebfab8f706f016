package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"

	"github.com/vmunix/imdbeps/internal/imdb"
)

// ExportOptions configures ExportTSV.
type ExportOptions struct {
	Compression      string
	CompressionLevel int
	// BatchSize is the number of rows per row group.
	BatchSize int
	Logger    *slog.Logger
}

// ExportTSV converts a raw source file to a single Parquet file at dst. Every
// column keeps its header name and is stored as a nullable string; \N becomes
// null. It returns the number of rows written.
func ExportTSV(ctx context.Context, src, dst string, opts ExportOptions) (int64, error) {
	if opts.Compression == "" {
		opts.Compression = DefaultCompression
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 64 * 1024
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	codec, err := ParseCompression(opts.Compression)
	if err != nil {
		return 0, err
	}

	r, err := imdb.Open(src)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	fields := make([]arrow.Field, len(r.Header()))
	for i, name := range r.Header() {
		fields[i] = arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}
	tmp := filepath.Join(filepath.Dir(dst), "."+filepath.Base(dst)+".tmp")
	f, err := os.Create(tmp)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = f.Close()
		_ = os.Remove(tmp)
	}()

	wprops := []parquet.WriterProperty{parquet.WithCompression(codec)}
	if opts.CompressionLevel != 0 {
		wprops = append(wprops, parquet.WithCompressionLevel(opts.CompressionLevel))
	}
	fw, err := pqarrow.NewFileWriter(schema, f, parquet.NewWriterProperties(wprops...), pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()))
	if err != nil {
		return 0, fmt.Errorf("create parquet writer: %w", err)
	}

	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()

	var rows int64
	flush := func() error {
		rec := b.NewRecord()
		defer rec.Release()
		if rec.NumRows() == 0 {
			return nil
		}
		return fw.Write(rec)
	}

	pending := 0
	for {
		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			_ = fw.Close()
			return 0, err
		}
		for i, v := range row {
			sb := b.Field(i).(*array.StringBuilder)
			if v == imdb.NullValue {
				sb.AppendNull()
			} else {
				sb.Append(v)
			}
		}
		rows++
		pending++
		if pending == opts.BatchSize {
			if err := ctx.Err(); err != nil {
				_ = fw.Close()
				return 0, err
			}
			if err := flush(); err != nil {
				_ = fw.Close()
				return 0, fmt.Errorf("write row group: %w", err)
			}
			pending = 0
		}
	}
	if err := flush(); err != nil {
		_ = fw.Close()
		return 0, fmt.Errorf("write row group: %w", err)
	}
	if err := fw.Close(); err != nil {
		return 0, fmt.Errorf("close parquet writer: %w", err)
	}
	if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return 0, err
	}
	if err := os.Rename(tmp, dst); err != nil {
		return 0, err
	}

	opts.Logger.Info("source exported", "src", src, "dst", dst, "rows", rows, "columns", len(fields))
	return rows, nil
}
