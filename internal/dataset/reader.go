package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet/compress"
	"github.com/apache/arrow/go/v17/parquet/file"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"

	"github.com/vmunix/imdbeps/internal/imdb"
)

const readBatchSize = 64 * 1024

// Read loads every data file under root, in name order, back into episode
// records.
func Read(ctx context.Context, root string) ([]imdb.EpisodeRecord, error) {
	files, err := DataFiles(root)
	if err != nil {
		return nil, err
	}
	records := make([]imdb.EpisodeRecord, 0)
	for _, path := range files {
		records, err = readFile(ctx, path, records)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
	}
	return records, nil
}

func readFile(ctx context.Context, path string, dst []imdb.EpisodeRecord) ([]imdb.EpisodeRecord, error) {
	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		return dst, err
	}
	defer rdr.Close()

	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{BatchSize: readBatchSize}, memory.DefaultAllocator)
	if err != nil {
		return dst, err
	}
	tbl, err := fr.ReadTable(ctx)
	if err != nil {
		return dst, err
	}
	defer tbl.Release()

	tr := array.NewTableReader(tbl, readBatchSize)
	defer tr.Release()
	for tr.Next() {
		dst, err = FromRecord(dst, tr.Record())
		if err != nil {
			return dst, err
		}
	}
	return dst, tr.Err()
}

// FileInfo summarizes one data file.
type FileInfo struct {
	Name      string
	Size      int64
	Rows      int64
	RowGroups int
	Columns   []ColumnInfo
}

// ColumnInfo describes how a column is stored in the first row group of a
// file.
type ColumnInfo struct {
	Name        string
	Compression string
	Dictionary  bool
}

// Inspect reports the layout of every data file under root.
func Inspect(root string) ([]FileInfo, error) {
	files, err := DataFiles(root)
	if err != nil {
		return nil, err
	}
	infos := make([]FileInfo, 0, len(files))
	for _, path := range files {
		info, err := inspectFile(path)
		if err != nil {
			return nil, fmt.Errorf("inspect %s: %w", filepath.Base(path), err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func inspectFile(path string) (FileInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, err
	}
	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		return FileInfo{}, err
	}
	defer rdr.Close()

	info := FileInfo{
		Name:      filepath.Base(path),
		Size:      st.Size(),
		Rows:      rdr.NumRows(),
		RowGroups: rdr.NumRowGroups(),
	}
	if info.RowGroups == 0 {
		for _, name := range Columns() {
			info.Columns = append(info.Columns, ColumnInfo{Name: name})
		}
		return info, nil
	}

	rg := rdr.MetaData().RowGroup(0)
	for i := 0; i < rg.NumColumns(); i++ {
		cc, err := rg.ColumnChunk(i)
		if err != nil {
			return FileInfo{}, err
		}
		info.Columns = append(info.Columns, ColumnInfo{
			Name:        cc.PathInSchema().String(),
			Compression: codecName(cc.Compression()),
			Dictionary:  cc.HasDictionaryPage(),
		})
	}
	return info, nil
}

func codecName(c compress.Compression) string {
	for name, codec := range codecs {
		if codec == c {
			return name
		}
	}
	return fmt.Sprintf("codec(%d)", c)
}
