package delivery

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"jobmate/harvester-service/internal/logger"
	"jobmate/harvester-service/internal/model"
)

// Notifier sends one listing to a chat channel.
type Notifier interface {
	Notify(ctx context.Context, l model.Listing) error
}

// Exporter appends listings to a spreadsheet and returns how many of the
// leading entries were written.
type Exporter interface {
	Export(ctx context.Context, ls []model.Listing) (int, error)
}

// FlagStore is the slice of the record store the dispatcher needs.
type FlagStore interface {
	IsSent(ctx context.Context, id string) (bool, error)
	MarkSent(ctx context.Context, id string) (bool, error)
	IsExported(ctx context.Context, id string) (bool, error)
	MarkExported(ctx context.Context, id string) (bool, error)
}

// Observer receives one call per delivery attempt.
type Observer interface {
	ObserveDelivery(target string, ok bool)
}

// Report summarises one Dispatch call.
type Report struct {
	Candidates int

	Sent        int
	SendFailed  int
	AlreadySent int
	Filtered    int // red-flagged, not notified

	Exported        int
	ExportFailed    int
	AlreadyExported int
}

// Dispatcher delivers listings at most once per target. A listing is marked
// only after its delivery succeeded.
type Dispatcher struct {
	store    FlagStore
	notifier Notifier // nil disables notifications
	exporter Exporter // nil disables export
	redFlags []string
	limiter  *rate.Limiter
	observer Observer
	log      logger.Logger
}

// DispatcherConfig configures NewDispatcher.
type DispatcherConfig struct {
	RedFlags    []string
	MinInterval time.Duration // spacing between notifications
}

// NewDispatcher builds a Dispatcher. notifier, exporter and observer may be nil.
func NewDispatcher(st FlagStore, n Notifier, e Exporter, cfg DispatcherConfig, obs Observer, log logger.Logger) *Dispatcher {
	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Dispatcher{
		store:    st,
		notifier: n,
		exporter: e,
		redFlags: cfg.RedFlags,
		limiter:  rate.NewLimiter(limit, 1),
		observer: obs,
		log:      log,
	}
}

// Dispatch delivers ls, the listings a session inserted for the first time.
// Delivery failures are logged and counted; they never fail the session.
func (d *Dispatcher) Dispatch(ctx context.Context, ls []model.Listing) Report {
	r := Report{Candidates: len(ls)}
	if len(ls) == 0 {
		return r
	}
	if d.notifier != nil {
		d.notify(ctx, ls, &r)
	}
	if d.exporter != nil {
		d.export(ctx, ls, &r)
	}
	d.log.Info("Delivery complete",
		logger.Int("candidates", r.Candidates),
		logger.Int("sent", r.Sent),
		logger.Int("send_failed", r.SendFailed),
		logger.Int("already_sent", r.AlreadySent),
		logger.Int("filtered", r.Filtered),
		logger.Int("exported", r.Exported),
		logger.Int("export_failed", r.ExportFailed),
		logger.Int("already_exported", r.AlreadyExported),
	)
	return r
}

func (d *Dispatcher) notify(ctx context.Context, ls []model.Listing, r *Report) {
	for _, l := range ls {
		if l.ID == "" {
			continue
		}
		sent, err := d.store.IsSent(ctx, l.ID)
		if err != nil {
			d.log.Warn("Cannot read sent flag, skipping", logger.String("id", l.ID), logger.Error(err))
			r.SendFailed++
			continue
		}
		if sent {
			r.AlreadySent++
			continue
		}
		if ContainsRedFlag(l, d.redFlags) {
			r.Filtered++
			d.log.Debug("Red flag matched, not notifying", logger.String("id", l.ID))
			continue
		}

		if err := d.limiter.Wait(ctx); err != nil {
			d.log.Warn("Notification throttle interrupted", logger.Error(err))
			return
		}
		if err := d.notifier.Notify(ctx, l); err != nil {
			r.SendFailed++
			d.observe("notify", false)
			d.log.Warn("Notification failed", logger.String("id", l.ID), logger.Error(err))
			continue
		}
		d.observe("notify", true)

		marked, err := d.store.MarkSent(ctx, l.ID)
		if err != nil {
			d.log.Error("Notified but could not mark sent", logger.String("id", l.ID), logger.Error(err))
			continue
		}
		if marked {
			r.Sent++
		}
	}
}

func (d *Dispatcher) export(ctx context.Context, ls []model.Listing, r *Report) {
	pending := make([]model.Listing, 0, len(ls))
	for _, l := range ls {
		if l.ID == "" {
			continue
		}
		done, err := d.store.IsExported(ctx, l.ID)
		if err != nil {
			d.log.Warn("Cannot read exported flag, skipping", logger.String("id", l.ID), logger.Error(err))
			r.ExportFailed++
			continue
		}
		if done {
			r.AlreadyExported++
			continue
		}
		pending = append(pending, l)
	}
	if len(pending) == 0 {
		return
	}

	n, err := d.exporter.Export(ctx, pending)
	n = max(0, min(n, len(pending)))
	if err != nil {
		r.ExportFailed += len(pending) - n
		d.observe("export", false)
		d.log.Warn("Export failed",
			logger.Int("written", n), logger.Int("pending", len(pending)), logger.Error(err))
	} else {
		d.observe("export", true)
		if n != len(pending) {
			d.log.Warn("Exporter wrote fewer rows than requested",
				logger.Int("written", n), logger.Int("pending", len(pending)))
		}
	}

	for _, l := range pending[:n] {
		marked, err := d.store.MarkExported(ctx, l.ID)
		if err != nil {
			d.log.Error("Exported but could not mark exported", logger.String("id", l.ID), logger.Error(err))
			continue
		}
		if marked {
			r.Exported++
		}
	}
}

func (d *Dispatcher) observe(target string, ok bool) {
	if d.observer != nil {
		d.observer.ObserveDelivery(target, ok)
	}
}
