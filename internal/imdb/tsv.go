package imdb

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// NullValue marks a missing value in any column of the IMDb files.
const NullValue = `\N`

const maxLineBytes = 16 << 20

// Reader reads a gzip-compressed, tab-separated IMDb file with a header row.
// Quoting is disabled: a double quote is an ordinary byte.
type Reader struct {
	name    string
	gz      *gzip.Reader
	scanner *bufio.Scanner
	closer  io.Closer
	header  []string
	index   map[string]int
	line    int
}

// Open opens the gzip TSV file at path.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	r, err := NewReader(filepath.Base(path), f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// NewReader wraps gzip-compressed TSV content and consumes the header row.
// name is only used in error messages.
func NewReader(name string, r io.Reader) (*Reader, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%s: gzip: %w", name, err)
	}
	sc := bufio.NewScanner(gz)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	rd := &Reader{name: name, gz: gz, scanner: sc}
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("%s: read header: %w", name, err)
		}
		return nil, &ParseError{File: name, Line: 1, Err: errors.New("empty file, header row expected")}
	}
	rd.line = 1
	rd.header = splitLine(sc.Text())
	rd.index = make(map[string]int, len(rd.header))
	for i, col := range rd.header {
		rd.index[col] = i
	}
	return rd, nil
}

// Name returns the file name used in error messages.
func (r *Reader) Name() string { return r.name }

// Header returns the column names in file order.
func (r *Reader) Header() []string { return r.header }

// Line returns the line number of the last row returned by Next.
func (r *Reader) Line() int { return r.line }

// Column returns the position of the named column.
func (r *Reader) Column(name string) (int, error) {
	i, ok := r.index[name]
	if !ok {
		return 0, &ParseError{File: r.name, Line: 1, Column: name, Err: ErrMissingColumn}
	}
	return i, nil
}

// Columns resolves several column names at once.
func (r *Reader) Columns(names ...string) ([]int, error) {
	idx := make([]int, len(names))
	for i, n := range names {
		c, err := r.Column(n)
		if err != nil {
			return nil, err
		}
		idx[i] = c
	}
	return idx, nil
}

// Next returns the fields of the next row, or io.EOF after the last one.
func (r *Reader) Next() ([]string, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", r.name, r.line+1, err)
		}
		return nil, io.EOF
	}
	r.line++
	fields := splitLine(r.scanner.Text())
	if len(fields) != len(r.header) {
		return nil, r.errorf("", "%w: got %d, want %d", ErrFieldCount, len(fields), len(r.header))
	}
	return fields, nil
}

// Close releases the decompressor and the underlying file, if any.
func (r *Reader) Close() error {
	err := r.gz.Close()
	if r.closer != nil {
		if cerr := r.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (r *Reader) errorf(column, format string, args ...any) error {
	return &ParseError{File: r.name, Line: r.line, Column: column, Err: fmt.Errorf(format, args...)}
}

// String returns a nullable text value.
func (r *Reader) String(v string) *string {
	if v == NullValue {
		return nil
	}
	return &v
}

// Int32 parses a nullable integer value of the named column.
func (r *Reader) Int32(column, v string) (*int32, error) {
	if v == NullValue {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return nil, r.errorf(column, "cast %q to integer: %w", v, errors.Unwrap(err))
	}
	i := int32(n)
	return &i, nil
}

// Float64 parses a nullable floating point value of the named column.
func (r *Reader) Float64(column, v string) (*float64, error) {
	if v == NullValue {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, r.errorf(column, "cast %q to double: %w", v, errors.Unwrap(err))
	}
	return &f, nil
}

func splitLine(s string) []string {
	s = strings.TrimSuffix(s, "\r")
	return strings.Split(s, "\t")
}
