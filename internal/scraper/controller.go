// Package scraper drives crawl sessions over the Workana job index and
// turns their output into stored, delivered listings.
package scraper

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"jobmate/harvester-service/internal/extract"
	"jobmate/harvester-service/internal/logger"
	"jobmate/harvester-service/internal/model"
)

// PageLoader returns the rendered markup of a URL once dynamic content has
// settled. Implementations live in internal/loader.
type PageLoader interface {
	Load(ctx context.Context, url string) (string, error)
}

// Config is the immutable crawl policy of a Controller.
type Config struct {
	JobsURL  string
	Category string
	Language string // may be a comma-joined list

	MaxPages    int  // 0 means only the site's pagination limits the crawl
	StopOnKnown bool // halt at the first listing whose dedup key is known

	Delay     time.Duration
	JitterMin time.Duration
	JitterMax time.Duration
}

// Result is the output of one session.
type Result struct {
	Listings    []model.Listing // document order, every entry has an ID
	Stop        model.StopReason
	Pages       int // pages loaded successfully
	PageBudget  int // total pages after clamping to MaxPages
	DroppedNoID int
	Skipped     int // listings whose extraction failed
	Trail       []State
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Controller runs crawl sessions. One Controller may run many sessions, but
// never two at once.
type Controller struct {
	cfg       Config
	loader    PageLoader
	extractor *extract.Extractor
	log       logger.Logger

	sleep  Sleeper
	jitter func(lo, hi time.Duration) time.Duration
}

// Option customises a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(l logger.Logger) Option { return func(c *Controller) { c.log = l } }

// WithSleeper replaces the inter-page sleep, e.g. with a no-op in tests.
func WithSleeper(s Sleeper) Option { return func(c *Controller) { c.sleep = s } }

// WithJitter replaces the random jitter source.
func WithJitter(f func(lo, hi time.Duration) time.Duration) Option {
	return func(c *Controller) { c.jitter = f }
}

// NewController constructs a Controller.
func NewController(cfg Config, loader PageLoader, ex *extract.Extractor, opts ...Option) *Controller {
	c := &Controller{
		cfg:       cfg,
		loader:    loader,
		extractor: ex,
		log:       logger.NewNop(),
		sleep:     sleepCtx,
		jitter:    randomJitter,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// session tracks the state machine of one Crawl call.
type session struct {
	state State
	res   *Result
}

func (s *session) to(next State) {
	if IsTerminal(s.state) {
		panic(fmt.Sprintf("scraper: crawl session already %s, cannot move to %s", s.state, next))
	}
	if !IsTransitionAllowed(s.state, next) {
		panic(fmt.Sprintf("scraper: illegal crawl transition %s → %s", s.state, next))
	}
	s.state = next
	s.res.Trail = append(s.res.Trail, next)
}

// Crawl runs one session from page 1 to a stop condition. known holds the
// "id|client_name" keys already stored; it is only consulted when
// StopOnKnown is set. Crawl never fails: load errors end the session with
// the listings gathered so far and the matching stop reason.
func (c *Controller) Crawl(ctx context.Context, known map[string]struct{}) *Result {
	res := &Result{Listings: make([]model.Listing, 0), Trail: []State{StateInit}}
	s := &session{state: StateInit, res: res}
	defer func() {
		s.to(StateStop)
		s.to(StateDone)
		c.log.Info("Crawl session finished",
			logger.String("stop_reason", string(res.Stop)),
			logger.Int("pages", res.Pages),
			logger.Int("listings", len(res.Listings)),
			logger.Int("dropped_no_id", res.DroppedNoID),
			logger.Int("skipped", res.Skipped),
		)
	}()

	capped := false
	for page := 1; ; page++ {
		s.to(StateLoading)
		url := BuildJobsURL(c.cfg.JobsURL, c.cfg.Category, c.cfg.Language, page)
		c.log.Debug("Loading page", logger.Int("page", page), logger.String("url", url))

		p, err := c.loadPage(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				res.Stop = model.StopCancelled
			} else {
				res.Stop = model.StopLoadFailure
			}
			c.log.Warn("Page load failed, ending session",
				logger.Int("page", page), logger.String("url", url), logger.Error(err))
			return res
		}
		res.Pages++

		if page == 1 {
			res.PageBudget, capped = clampPages(p.TotalPages, c.cfg.MaxPages)
			c.log.Debug("Pagination read",
				logger.Int("site_pages", p.TotalPages), logger.Int("budget", res.PageBudget))
		}

		s.to(StateExtracting)
		if c.extractAll(p.Fragments, page, known, res) {
			res.Stop = model.StopHitKnownJob
			return res
		}

		if page >= res.PageBudget {
			if capped {
				res.Stop = model.StopPageLimit
			} else {
				res.Stop = model.StopExhaustedPages
			}
			return res
		}

		s.to(StateContinue)
		if err := c.sleep(ctx, c.cfg.Delay+c.jitter(c.cfg.JitterMin, c.cfg.JitterMax)); err != nil {
			res.Stop = model.StopCancelled
			return res
		}
	}
}

func (c *Controller) loadPage(ctx context.Context, url string) (extract.Page, error) {
	if err := ctx.Err(); err != nil {
		return extract.Page{}, err
	}
	html, err := c.loader.Load(ctx, url)
	if err != nil {
		return extract.Page{}, err
	}
	return c.extractor.SplitPage(html)
}

// extractAll appends the page's listings to res in document order and
// reports whether a known listing ended the session.
func (c *Controller) extractAll(fragments []string, page int, known map[string]struct{}, res *Result) bool {
	c.log.Debug("Extracting listings", logger.Int("page", page), logger.Int("count", len(fragments)))

	for i, frag := range fragments {
		l, err := c.extractOne(frag)
		if err != nil {
			res.Skipped++
			c.log.Warn("Skipping listing",
				logger.Int("page", page), logger.Int("index", i), logger.Error(err))
			continue
		}
		if l.ID == "" {
			res.DroppedNoID++
			c.log.Debug("Dropping listing without id", logger.Int("page", page), logger.Int("index", i))
			continue
		}
		if c.cfg.StopOnKnown {
			if _, ok := known[l.DedupKey()]; ok {
				c.log.Info("Found known listing, stopping",
					logger.String("id", l.ID), logger.Int("page", page))
				return true
			}
		}
		res.Listings = append(res.Listings, l)
	}
	return false
}

func (c *Controller) extractOne(frag string) (l model.Listing, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extract panicked: %v", r)
		}
	}()
	return c.extractor.Extract(frag)
}

// clampPages returns the page budget and whether maxPages was the binding
// limit.
func clampPages(sitePages, maxPages int) (int, bool) {
	if sitePages < 1 {
		sitePages = 1
	}
	if maxPages > 0 && maxPages < sitePages {
		return maxPages, true
	}
	return sitePages, false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func randomJitter(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo)
}
