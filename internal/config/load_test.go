package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "imdbeps.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_EmptyPathIsDefault(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Output.Compression != "zstd" {
		t.Errorf("expected default compression zstd, got %s", cfg.Output.Compression)
	}
	if cfg.Output.Path != "dataset" {
		t.Errorf("expected default output path dataset, got %s", cfg.Output.Path)
	}
}

func TestLoad_Valid(t *testing.T) {
	path := writeConfig(t, `
[source]
dir = "/data/imdb"

[fetch]
timeout = "5m"
parallel = 3

[transform]
engine = "sqlite"

[output]
compression = "snappy"
max_rows_per_file = 1000
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Source.Dir != "/data/imdb" {
		t.Errorf("expected dir /data/imdb, got %s", cfg.Source.Dir)
	}
	if cfg.Fetch.Timeout.Duration != 5*time.Minute {
		t.Errorf("expected timeout 5m, got %s", cfg.Fetch.Timeout)
	}
	if cfg.Fetch.Parallel != 3 {
		t.Errorf("expected parallel 3, got %d", cfg.Fetch.Parallel)
	}
	if cfg.Transform.Engine != "sqlite" {
		t.Errorf("expected engine sqlite, got %s", cfg.Transform.Engine)
	}
	if cfg.Output.MaxRowsPerFile != 1000 {
		t.Errorf("expected max rows 1000, got %d", cfg.Output.MaxRowsPerFile)
	}
	if cfg.Sources().Basics != filepath.Join("/data/imdb", "title.basics.tsv.gz") {
		t.Errorf("unexpected basics path %s", cfg.Sources().Basics)
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[output]
path = "out"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Source.BaseURL != "https://datasets.imdbws.com" {
		t.Errorf("expected default base url, got %s", cfg.Source.BaseURL)
	}
	if len(cfg.Output.DictionaryColumns) != 1 || cfg.Output.DictionaryColumns[0] != "seriesTitle" {
		t.Errorf("expected default dictionary columns, got %v", cfg.Output.DictionaryColumns)
	}
	if cfg.Output.Path != "out" {
		t.Errorf("expected output path out, got %s", cfg.Output.Path)
	}
}

func TestLoad_EmptyDictionaryColumns(t *testing.T) {
	path := writeConfig(t, `
[output]
dictionary_columns = []
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Output.DictionaryColumns) != 0 {
		t.Errorf("expected no dictionary columns, got %v", cfg.Output.DictionaryColumns)
	}
}

func TestLoad_MissingEnvVar(t *testing.T) {
	path := writeConfig(t, `
[source]
dir = "${IMDBEPS_TEST_MISSING_DIR}"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for missing env var")
	}
	var cfgErr *Error
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if len(cfgErr.Missing) != 1 || cfgErr.Missing[0] != "IMDBEPS_TEST_MISSING_DIR" {
		t.Errorf("expected IMDBEPS_TEST_MISSING_DIR missing, got %v", cfgErr.Missing)
	}
}

func TestLoad_EnvVarDefault(t *testing.T) {
	t.Setenv("IMDBEPS_TEST_OUT", "")
	path := writeConfig(t, `
[output]
path = "${IMDBEPS_TEST_OUT:-parquet}"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Output.Path != "parquet" {
		t.Errorf("expected output path parquet, got %s", cfg.Output.Path)
	}
}

func TestLoad_ValidationError(t *testing.T) {
	path := writeConfig(t, `
[fetch]
parallel = 0

[output]
compression = "zstdd"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "fetch.parallel") {
		t.Errorf("expected fetch.parallel in error, got %v", msg)
	}
	if !strings.Contains(msg, `did you mean "zstd"`) {
		t.Errorf("expected suggestion in error, got %v", msg)
	}
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeConfig(t, `
[output]
compresion = "zstd"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
	if !strings.Contains(err.Error(), "output.compresion") {
		t.Errorf("expected key name in error, got %v", err)
	}
}

func TestLoad_BadTOML(t *testing.T) {
	path := writeConfig(t, "[output\npath = 1")

	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_BadDuration(t *testing.T) {
	path := writeConfig(t, `
[fetch]
timeout = "soon"
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for bad duration")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestLoadWithoutValidation(t *testing.T) {
	path := writeConfig(t, `
[fetch]
parallel = -1
`)

	cfg, err := LoadWithoutValidation(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Fetch.Parallel != -1 {
		t.Errorf("expected parallel -1, got %d", cfg.Fetch.Parallel)
	}
}
