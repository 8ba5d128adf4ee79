package loader

import (
	"context"

	colly "github.com/gocolly/colly/v2"

	"jobmate/harvester-service/internal/logger"
)

// HTTP fetches pages without executing scripts. It suits server-rendered
// result pages and tests.
type HTTP struct {
	cfg Config
	log logger.Logger
}

// NewHTTP returns an HTTP loader.
func NewHTTP(cfg Config, log logger.Logger) *HTTP {
	cfg.defaults()
	if log == nil {
		log = logger.NewNop()
	}
	return &HTTP{cfg: cfg, log: log}
}

// Load performs one synchronous visit. Non-2xx responses are errors.
func (h *HTTP) Load(ctx context.Context, url string) (string, error) {
	opts := []colly.CollectorOption{
		colly.StdlibContext(ctx),
		colly.AllowURLRevisit(),
	}
	if h.cfg.UserAgent != "" {
		opts = append(opts, colly.UserAgent(h.cfg.UserAgent))
	}
	c := colly.NewCollector(opts...)
	c.SetRequestTimeout(h.cfg.PageTimeout)

	var (
		body    string
		loadErr error
	)
	c.OnResponse(func(r *colly.Response) {
		body = string(r.Body)
	})
	c.OnError(func(r *colly.Response, err error) {
		loadErr = err
		h.log.Debug("Page request failed",
			logger.String("url", url), logger.Int("status", r.StatusCode), logger.Error(err))
	})

	if err := c.Visit(url); err != nil && loadErr == nil {
		loadErr = err
	}
	if loadErr != nil {
		return "", classify(ctx, url, loadErr)
	}
	return body, nil
}

// Close is a no-op.
func (h *HTTP) Close() error { return nil }
