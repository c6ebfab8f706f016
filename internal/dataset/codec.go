package dataset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/apache/arrow/go/v17/parquet/compress"
)

var codecs = map[string]compress.Compression{
	"none":   compress.Codecs.Uncompressed,
	"snappy": compress.Codecs.Snappy,
	"gzip":   compress.Codecs.Gzip,
	"brotli": compress.Codecs.Brotli,
	"zstd":   compress.Codecs.Zstd,
}

// Codecs returns the accepted compression codec names.
func Codecs() []string {
	names := make([]string, 0, len(codecs))
	for n := range codecs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ParseCompression maps a codec name to its Parquet compression.
func ParseCompression(name string) (compress.Compression, error) {
	c, ok := codecs[strings.ToLower(name)]
	if !ok {
		return compress.Codecs.Uncompressed, fmt.Errorf("unknown compression codec %q (valid: %s)", name, strings.Join(Codecs(), ", "))
	}
	return c, nil
}
