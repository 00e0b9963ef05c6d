package xltag

import (
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Options holds configuration for the Templater.
type Options struct {
	templatePath      string
	templateReader    io.Reader
	sheets            []string
	fetcher           ImageFetcher
	logger            *slog.Logger
	maxScopeDepth     int
	imageTimeout      time.Duration
	maxImageBytes     int64
	recalculateOnOpen bool
}

func defaultOptions() *Options {
	return &Options{
		logger:            slog.Default(),
		maxScopeDepth:     32,
		imageTimeout:      30 * time.Second,
		maxImageBytes:     DefaultMaxImageBytes,
		recalculateOnOpen: true,
	}
}

// imageFetcher returns the configured fetcher or an HTTPFetcher built from the limits.
func (o *Options) imageFetcher() ImageFetcher {
	if o.fetcher != nil {
		return o.fetcher
	}
	return &HTTPFetcher{
		Client:   &http.Client{Timeout: o.imageTimeout},
		MaxBytes: o.maxImageBytes,
	}
}

// Option configures the Templater.
type Option func(*Options)

// WithTemplate sets the template file path.
func WithTemplate(path string) Option {
	return func(o *Options) { o.templatePath = path }
}

// WithTemplateReader sets the template as an io.Reader.
func WithTemplateReader(r io.Reader) Option {
	return func(o *Options) { o.templateReader = r }
}

// WithSheets selects the worksheets to render (default: the first sheet).
func WithSheets(names ...string) Option {
	return func(o *Options) { o.sheets = append(o.sheets, names...) }
}

// WithImageFetcher replaces the HTTP image fetcher.
func WithImageFetcher(f ImageFetcher) Option {
	return func(o *Options) { o.fetcher = f }
}

// WithLogger sets the logger for diagnostics (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMaxScopeDepth limits how deeply {@name} scopes may nest (default: 32).
func WithMaxScopeDepth(n int) Option {
	return func(o *Options) { o.maxScopeDepth = n }
}

// WithImageTimeout bounds each image fetch (default: 30s). Zero disables the bound.
func WithImageTimeout(d time.Duration) Option {
	return func(o *Options) { o.imageTimeout = d }
}

// WithMaxImageBytes caps the size of a fetched image (default: 10 MiB).
func WithMaxImageBytes(n int64) Option {
	return func(o *Options) { o.maxImageBytes = n }
}

// WithRecalculateOnOpen tells Excel to recalculate all formulas when the file is opened (default: true).
func WithRecalculateOnOpen(recalc bool) Option {
	return func(o *Options) { o.recalculateOnOpen = recalc }
}
