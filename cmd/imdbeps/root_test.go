package main

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vmunix/imdbeps/internal/config"
	"github.com/vmunix/imdbeps/internal/dataset"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.in))
		})
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, config.LogConfig{Level: "info", Format: "json"})
	logger.Debug("hidden")
	logger.Info("shown", "rows", 4)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"rows":4`)
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, config.LogConfig{Level: "debug", Format: "text"}).Debug("staged", "rows", 3)
	assert.Contains(t, buf.String(), "msg=staged rows=3")
}

func TestFormatCount(t *testing.T) {
	assert.Equal(t, "0", formatCount(0))
	assert.Equal(t, "1,234,567", formatCount(1234567))
	assert.Equal(t, "33", formatCount(int32(33)))
}

func TestRenderTable(t *testing.T) {
	out := renderTable(
		[]string{"File", "Rows"},
		[][]string{{"part-00000.parquet", "4"}, {"short"}},
		[]columnAlignment{alignLeft, alignRight},
	)
	lines := strings.Split(out, "\n")
	assert.Contains(t, out, "part-00000.parquet")
	// StyleRounded upper-cases header cells.
	assert.Contains(t, lines[1], "FILE")
	assert.Contains(t, lines[1], "ROWS")
	assert.Equal(t, "", renderTable(nil, nil, nil))
}

func TestCompressionOf(t *testing.T) {
	info := dataset.FileInfo{Columns: []dataset.ColumnInfo{
		{Name: "a", Compression: "zstd"},
		{Name: "b", Compression: "zstd", Dictionary: true},
	}}
	assert.Equal(t, "zstd", compressionOf(info))
	assert.Equal(t, []string{"b"}, dictionaryColumns(info))

	info.Columns = append(info.Columns, dataset.ColumnInfo{Name: "c", Compression: "snappy"})
	assert.Equal(t, "mixed", compressionOf(info))
	assert.Equal(t, "-", compressionOf(dataset.FileInfo{}))
}
