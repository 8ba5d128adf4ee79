// Package loader fetches listing pages for the crawl controller, either
// through a headless browser or a plain HTTP collector.
package loader

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"jobmate/harvester-service/internal/logger"
)

// ErrTimeout is returned when a page does not finish loading in time.
var ErrTimeout = errors.New("loader: page load timed out")

// Loader kinds.
const (
	KindBrowser = "browser"
	KindHTTP    = "http"
)

// DefaultReadySelector marks a rendered results page.
const DefaultReadySelector = "#projects"

// Config configures both loader kinds. Browser-only fields are ignored by
// the HTTP loader.
type Config struct {
	Kind           string
	Headless       bool
	RemoteURL      string // websocket URL of an external Chrome; empty launches one
	UserAgent      string
	PageTimeout    time.Duration
	Settle         time.Duration
	BlockResources []string // images, fonts, media, stylesheets
	ReadySelector  string
}

func (c *Config) defaults() {
	if c.PageTimeout <= 0 {
		c.PageTimeout = 20 * time.Second
	}
	if c.ReadySelector == "" {
		c.ReadySelector = DefaultReadySelector
	}
}

// Loader returns the markup of one page.
type Loader interface {
	Load(ctx context.Context, url string) (string, error)
	Close() error
}

// New builds the loader named by cfg.Kind.
func New(cfg Config, log logger.Logger) (Loader, error) {
	switch cfg.Kind {
	case KindBrowser, "":
		return NewBrowser(cfg, log), nil
	case KindHTTP:
		return NewHTTP(cfg, log), nil
	default:
		return nil, fmt.Errorf("loader: unknown kind %q", cfg.Kind)
	}
}

// classify maps deadline and client timeouts to ErrTimeout. A cancelled
// parent context is passed through unchanged.
func classify(parent context.Context, url string, err error) error {
	if err == nil {
		return nil
	}
	if parent.Err() != nil {
		return fmt.Errorf("loader: %s: %w", url, parent.Err())
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return fmt.Errorf("%w: %s", ErrTimeout, url)
	}
	return fmt.Errorf("loader: %s: %w", url, err)
}
