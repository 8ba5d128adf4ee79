package loader

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"jobmate/harvester-service/internal/logger"
)

const scrollScript = `() => window.scrollTo(0, document.body.scrollHeight)`

// Browser renders pages in Chrome through Rod with stealth patches applied.
// Chrome is started, or connected to, on the first Load.
type Browser struct {
	cfg Config
	log logger.Logger

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	block   map[string]bool
}

// NewBrowser returns a browser loader. It does not start Chrome.
func NewBrowser(cfg Config, log logger.Logger) *Browser {
	cfg.defaults()
	if log == nil {
		log = logger.NewNop()
	}
	block := make(map[string]bool, len(cfg.BlockResources))
	for _, t := range cfg.BlockResources {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			block[t] = true
		}
	}
	return &Browser{cfg: cfg, log: log, block: block}
}

// Load opens a fresh stealth tab, waits for the results container, scrolls
// to trigger lazy content, lets it settle and returns the document HTML.
func (b *Browser) Load(ctx context.Context, url string) (string, error) {
	br, err := b.connect()
	if err != nil {
		return "", err
	}

	page, err := stealth.Page(br)
	if err != nil {
		return "", fmt.Errorf("loader: create tab: %w", err)
	}
	defer func() { _ = page.Close() }()

	if len(b.block) > 0 {
		router := b.blockResources(page)
		defer func() { _ = router.Stop() }()
	}
	if b.cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: b.cfg.UserAgent}); err != nil {
			b.log.Warn("Cannot set user agent", logger.Error(err))
		}
	}

	loadCtx, cancel := context.WithTimeout(ctx, b.cfg.PageTimeout)
	defer cancel()
	p := page.Context(loadCtx)

	if err := p.Navigate(url); err != nil {
		return "", classify(ctx, url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return "", classify(ctx, url, err)
	}
	if _, err := p.Element(b.cfg.ReadySelector); err != nil {
		return "", classify(ctx, url, err)
	}
	if _, err := p.Eval(scrollScript); err != nil {
		b.log.Debug("Scroll failed", logger.String("url", url), logger.Error(err))
	}

	if b.cfg.Settle > 0 {
		t := time.NewTimer(b.cfg.Settle)
		select {
		case <-loadCtx.Done():
			t.Stop()
			return "", classify(ctx, url, loadCtx.Err())
		case <-t.C:
		}
	}

	html, err := p.HTML()
	if err != nil {
		return "", classify(ctx, url, err)
	}
	return html, nil
}

func (b *Browser) connect() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser != nil {
		return b.browser, nil
	}

	wsURL := b.cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().
			Headless(b.cfg.Headless).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("loader: launch chrome: %w", err)
		}
		wsURL = u
		b.lnch = l
		b.log.Info("Launched local chrome", logger.Bool("headless", b.cfg.Headless))
	} else {
		b.log.Info("Connecting to remote chrome", logger.String("url", wsURL))
	}

	br := rod.New().ControlURL(wsURL)
	if err := br.Connect(); err != nil {
		b.cleanupLocked()
		return nil, fmt.Errorf("loader: connect chrome: %w", err)
	}
	b.browser = br
	return br, nil
}

// Close shuts Chrome down. The loader can be reused afterwards.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cleanupLocked()
	return nil
}

func (b *Browser) cleanupLocked() {
	if b.browser != nil {
		_ = b.browser.Close()
		b.browser = nil
	}
	if b.lnch != nil {
		b.lnch.Cleanup()
		b.lnch = nil
	}
}

func (b *Browser) blockResources(page *rod.Page) *rod.HijackRouter {
	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if shouldBlock(b.block, string(h.Request.Type())) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	return router
}

// shouldBlock maps CDP resource types onto the configured names.
func shouldBlock(block map[string]bool, resType string) bool {
	switch t := strings.ToLower(resType); t {
	case "image":
		return block["images"]
	case "font":
		return block["fonts"]
	case "stylesheet":
		return block["stylesheets"]
	default:
		return block[t]
	}
}
