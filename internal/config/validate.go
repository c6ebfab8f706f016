package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/vmunix/imdbeps/internal/dataset"
	"github.com/vmunix/imdbeps/internal/imdb"
	"github.com/vmunix/imdbeps/internal/transform"
)

var validLogLevels = []string{"debug", "info", "warn", "error"}

var validLogFormats = []string{"text", "json"}

// suggestThreshold is the minimum Jaro-Winkler similarity for a suggestion.
const suggestThreshold = 0.8

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	// Source
	if u, err := url.Parse(c.Source.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add("source.base_url: must be an http(s) URL, got %q", c.Source.BaseURL)
	}
	for _, ds := range c.Source.Datasets {
		if !slices.Contains(imdb.Datasets, ds) {
			add("source.datasets: unknown dataset %q%s", ds, suggest(ds, imdb.Datasets))
		}
	}
	for _, ds := range imdb.Datasets {
		if !slices.Contains(c.Source.Datasets, ds) {
			add("source.datasets: %q is required", ds)
		}
	}
	if c.Source.Dir == "" {
		add("source.dir: required")
	}

	// Fetch
	if c.Fetch.Timeout.Duration <= 0 {
		add("fetch.timeout: must be positive, got %s", c.Fetch.Timeout)
	}
	if c.Fetch.Parallel < 1 {
		add("fetch.parallel: must be at least 1, got %d", c.Fetch.Parallel)
	}

	// Transform
	if !slices.Contains(transform.Engines, c.Transform.Engine) {
		add("transform.engine: must be one of %s; got %q%s",
			strings.Join(transform.Engines, ", "), c.Transform.Engine, suggest(c.Transform.Engine, transform.Engines))
	}
	if len(c.Transform.TitleTypes) == 0 {
		add("transform.title_types: at least one title type is required")
	}

	// Output
	if c.Output.Path == "" {
		add("output.path: required")
	}
	if _, err := dataset.ParseCompression(c.Output.Compression); err != nil {
		add("output.compression: unknown codec %q%s", c.Output.Compression, suggest(c.Output.Compression, dataset.Codecs()))
	}
	for _, col := range c.Output.DictionaryColumns {
		if !slices.Contains(dataset.Columns(), col) {
			add("output.dictionary_columns: unknown column %q%s", col, suggest(col, dataset.Columns()))
		}
	}
	if c.Output.RowGroupSize < 0 {
		add("output.row_group_size: must not be negative, got %d", c.Output.RowGroupSize)
	}
	if c.Output.MaxRowsPerFile < 0 {
		add("output.max_rows_per_file: must not be negative, got %d", c.Output.MaxRowsPerFile)
	}
	if c.Output.BasenameTemplate != "" && !strings.Contains(c.Output.BasenameTemplate, "{i}") {
		add("output.basename_template: must contain {i}, got %q", c.Output.BasenameTemplate)
	}
	if c.Output.ExistingData != "" {
		modes := make([]string, len(dataset.ExistingDataModes))
		for i, m := range dataset.ExistingDataModes {
			modes[i] = string(m)
		}
		if !slices.Contains(modes, c.Output.ExistingData) {
			add("output.existing_data: must be one of %s; got %q%s",
				strings.Join(modes, ", "), c.Output.ExistingData, suggest(c.Output.ExistingData, modes))
		}
	}

	// Log
	if !slices.Contains(validLogLevels, strings.ToLower(c.Log.Level)) {
		add("log.level: must be one of %s; got %q", strings.Join(validLogLevels, ", "), c.Log.Level)
	}
	if !slices.Contains(validLogFormats, strings.ToLower(c.Log.Format)) {
		add("log.format: must be one of %s; got %q", strings.Join(validLogFormats, ", "), c.Log.Format)
	}

	return errs
}

// suggest returns a "did you mean" hint for the candidate closest to got,
// or an empty string when nothing is close enough.
func suggest(got string, candidates []string) string {
	if got == "" {
		return ""
	}
	best, bestScore := "", float32(0)
	for _, c := range candidates {
		score := edlib.JaroWinklerSimilarity(strings.ToLower(got), strings.ToLower(c))
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	if bestScore < suggestThreshold {
		return ""
	}
	return fmt.Sprintf(" (did you mean %q?)", best)
}
