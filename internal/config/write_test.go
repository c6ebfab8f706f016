package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteDefault(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "imdbeps", "config.toml")

	err := WriteDefault(path)
	require.NoError(t, err, "WriteDefault failed")

	content, err := os.ReadFile(path)
	require.NoError(t, err, "failed to read written file")

	// Check for key sections
	assert.Contains(t, string(content), "[source]")
	assert.Contains(t, string(content), "[output]")
	assert.Contains(t, string(content), "${IMDBEPS_DATA_DIR:-.}")
}

func TestWriteDefault_CreatesDir(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "nested", "deep", "config.toml")

	err := WriteDefault(path)
	require.NoError(t, err, "WriteDefault failed")

	_, err = os.Stat(path)
	assert.False(t, os.IsNotExist(err), "file was not created")
}

// The embedded file must load to exactly the built-in defaults.
func TestWriteDefault_MatchesDefault(t *testing.T) {
	t.Setenv("IMDBEPS_BASE_URL", "")
	t.Setenv("IMDBEPS_DATA_DIR", "")
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, WriteDefault(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestConfig_Encode(t *testing.T) {
	cfg := Default()
	cfg.Source.Dir = "/srv/imdb"
	cfg.Fetch.Timeout = Duration{90 * time.Second}
	cfg.Output.MaxRowsPerFile = 500000

	var buf bytes.Buffer
	require.NoError(t, cfg.Encode(&buf), "Encode failed")
	assert.Contains(t, buf.String(), "/srv/imdb")
	assert.Contains(t, buf.String(), `"1m30s"`)

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
