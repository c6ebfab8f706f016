// Package config handles TOML configuration loading with environment variable substitution.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/vmunix/imdbeps/internal/dataset"
	"github.com/vmunix/imdbeps/internal/fetch"
	"github.com/vmunix/imdbeps/internal/imdb"
	"github.com/vmunix/imdbeps/internal/transform"
)

// Config is the root configuration structure.
type Config struct {
	Source    SourceConfig    `toml:"source"`
	Fetch     FetchConfig     `toml:"fetch"`
	Transform TransformConfig `toml:"transform"`
	Output    OutputConfig    `toml:"output"`
	Log       LogConfig       `toml:"log"`
}

// SourceConfig locates the raw dataset files.
type SourceConfig struct {
	BaseURL  string   `toml:"base_url"`
	Datasets []string `toml:"datasets"`
	Dir      string   `toml:"dir"`
}

type FetchConfig struct {
	Timeout  Duration `toml:"timeout"`
	Parallel int      `toml:"parallel"`
}

type TransformConfig struct {
	Engine     string   `toml:"engine"`
	TitleTypes []string `toml:"title_types"`
	// StagingPath is the sqlite database file; empty stages in memory.
	StagingPath string `toml:"staging_path,omitempty"`
}

type OutputConfig struct {
	Path              string   `toml:"path"`
	Compression       string   `toml:"compression"`
	CompressionLevel  int      `toml:"compression_level,omitempty"`
	DictionaryColumns []string `toml:"dictionary_columns"`
	RowGroupSize      int      `toml:"row_group_size,omitempty"`
	MaxRowsPerFile    int      `toml:"max_rows_per_file,omitempty"`
	BasenameTemplate  string   `toml:"basename_template,omitempty"`
	ExistingData      string   `toml:"existing_data,omitempty"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Duration is a time.Duration written as a string such as "30m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration used when no file is found.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			BaseURL:  fetch.DefaultBaseURL,
			Datasets: append([]string(nil), imdb.Datasets...),
			Dir:      ".",
		},
		Fetch: FetchConfig{
			Timeout:  Duration{30 * time.Minute},
			Parallel: 1,
		},
		Transform: TransformConfig{
			Engine:     transform.EngineMemory,
			TitleTypes: append([]string(nil), imdb.DefaultTitleTypes...),
		},
		Output: OutputConfig{
			Path:              dataset.DefaultRoot,
			Compression:       dataset.DefaultCompression,
			DictionaryColumns: []string{dataset.ColSeriesTitle},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Sources returns the paths of the raw dataset files.
func (c *Config) Sources() imdb.Sources {
	return imdb.SourcesIn(c.Source.Dir)
}

// Load reads, substitutes and validates the configuration file. An empty
// path yields the defaults.
func Load(path string) (*Config, error) {
	cfg, err := LoadWithoutValidation(path)
	if err != nil {
		return nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, &Error{Path: path, Errors: errs}
	}
	return cfg, nil
}

// LoadWithoutValidation reads the configuration file without validating it.
// Unresolved environment variables are still an error.
func LoadWithoutValidation(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	content, missing := substituteEnvVars(string(data))
	if len(missing) > 0 {
		return nil, &Error{Path: path, Missing: missing}
	}

	md, err := toml.Decode(content, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, &Error{Path: path, Errors: []string{"unknown keys: " + strings.Join(keys, ", ")}}
	}
	return cfg, nil
}

// envVarPattern matches ${VAR}, ${VAR:-default} and ${VAR:?message}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?:(:-|:\?)([^}]*))?\}`)

// substituteEnvVars replaces variable references with environment values.
// References that cannot be resolved are left in place and reported.
// Comment lines are copied unchanged.
func substituteEnvVars(content string) (string, []string) {
	var missing []string
	lines := strings.SplitAfter(content, "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		lines[i] = envVarPattern.ReplaceAllStringFunc(line, func(match string) string {
			m := envVarPattern.FindStringSubmatch(match)
			name, op, arg := m[1], m[2], m[3]
			value, ok := os.LookupEnv(name)

			switch op {
			case ":-":
				if value == "" {
					return arg
				}
				return value
			case ":?":
				if value == "" {
					missing = append(missing, name+": "+arg)
					return match
				}
				return value
			default:
				if !ok {
					missing = append(missing, name)
					return match
				}
				return value
			}
		})
	}
	return strings.Join(lines, ""), missing
}
