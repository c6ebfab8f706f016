// Package fetch downloads IMDb dataset snapshots.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/vmunix/imdbeps/internal/imdb"
)

// DefaultBaseURL is the public IMDb dataset host.
const DefaultBaseURL = "https://datasets.imdbws.com"

const defaultTimeout = 30 * time.Minute

// ErrTransport wraps every failure to retrieve a dataset completely.
var ErrTransport = errors.New("transport failure")

// Client downloads dataset files over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	parallel   int
	progress   io.Writer
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL (for testing or mirrors).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout bounds each download, including reading the body. It applies
// to a copy of the HTTP client, never to one passed with WithHTTPClient.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithParallel sets how many datasets FetchAll downloads at once.
func WithParallel(n int) Option {
	return func(c *Client) {
		c.parallel = n
	}
}

// WithProgress draws a byte progress bar per download on w. A nil writer
// disables it.
func WithProgress(w io.Writer) Option {
	return func(c *Client) {
		c.progress = w
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a client. A progress bar is drawn on stderr when it is a
// terminal.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:  DefaultBaseURL,
		parallel: 1,
	}
	if fd := os.Stderr.Fd(); isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		c.progress = os.Stderr
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	if c.parallel < 1 {
		c.parallel = 1
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Download describes one completed download.
type Download struct {
	Dataset  string
	Path     string
	Bytes    int64
	Duration time.Duration
}

// URL returns the address of a dataset file.
func (c *Client) URL(dataset string) string {
	return c.baseURL + "/" + imdb.FileName(dataset)
}

// Fetch downloads one dataset into dir, keeping the body byte for byte. The
// file only appears under its final name once the body was read completely.
func (c *Client) Fetch(ctx context.Context, dataset, dir string) (*Download, error) {
	start := time.Now()
	url := c.URL(dataset)
	dst := filepath.Join(dir, imdb.FileName(dataset))
	log := c.logger.With("dataset", dataset, "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	// An explicit encoding keeps the transport from decompressing the body.
	req.Header.Set("Accept-Encoding", "identity")

	log.Debug("download started")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", ErrTransport, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: get %s: %s", ErrTransport, url, resp.Status)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}
	part := dst + ".part"
	f, err := os.Create(part)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", part, err)
	}
	defer func() {
		_ = f.Close()
		_ = os.Remove(part)
	}()

	var w io.Writer = f
	if c.progress != nil {
		bar := newBar(c.progress, imdb.FileName(dataset), resp.ContentLength)
		defer func() { _ = bar.Close() }()
		w = io.MultiWriter(f, bar)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrTransport, url, err)
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return nil, fmt.Errorf("%w: read %s: got %d of %d bytes", ErrTransport, url, n, resp.ContentLength)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close %s: %w", part, err)
	}
	if err := os.Rename(part, dst); err != nil {
		return nil, fmt.Errorf("move %s into place: %w", dst, err)
	}

	d := &Download{Dataset: dataset, Path: dst, Bytes: n, Duration: time.Since(start)}
	log.Info("download complete",
		"path", dst,
		"size", humanize.Bytes(uint64(n)),
		"duration", d.Duration.Round(time.Millisecond),
	)
	return d, nil
}

// FetchAll downloads every dataset into dir. At most the configured number
// of downloads run at once; the first failure cancels the rest. Downloads are
// returned in the order of datasets.
func (c *Client) FetchAll(ctx context.Context, datasets []string, dir string) ([]Download, error) {
	downloads := make([]Download, len(datasets))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallel)
	for i, ds := range datasets {
		g.Go(func() error {
			d, err := c.Fetch(ctx, ds, dir)
			if err != nil {
				return err
			}
			downloads[i] = *d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return downloads, nil
}

func newBar(w io.Writer, name string, size int64) *progressbar.ProgressBar {
	return progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(name),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)
}
