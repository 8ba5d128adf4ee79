package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"jobmate/harvester-service/internal/coordination"
	"jobmate/harvester-service/internal/delivery"
	"jobmate/harvester-service/internal/logger"
	"jobmate/harvester-service/internal/metrics"
	"jobmate/harvester-service/internal/model"
	"jobmate/harvester-service/internal/store"
)

// WorkerDeps are the collaborators of a Worker. Only Store is required.
type WorkerDeps struct {
	Store      *store.Store
	Locker     *coordination.Locker // nil: no cross-process lock
	Dispatcher *delivery.Dispatcher // nil: records are stored only
	Metrics    *metrics.Metrics     // nil: no metrics
	Logger     logger.Logger
	Now        func() time.Time
}

// Summary describes one Run.
type Summary struct {
	SessionID string
	Skipped   bool // another process held the session lock

	Found    int
	New      int
	Updated  int
	Pages    int
	Stop     model.StopReason
	Duration time.Duration
	Delivery delivery.Report
}

// Worker runs the full session cycle: crawl, persist, audit, deliver.
type Worker struct {
	ctrl *Controller
	deps WorkerDeps
	log  logger.Logger
	now  func() time.Time
}

// NewWorker constructs a Worker.
func NewWorker(ctrl *Controller, deps WorkerDeps) *Worker {
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Worker{ctrl: ctrl, deps: deps, log: log, now: now}
}

// Run executes one session. Records are upserted in crawl order and the
// ones inserted for the first time are handed to the dispatcher. A store
// failure aborts the run; delivery failures never do.
func (w *Worker) Run(ctx context.Context) (*Summary, error) {
	sum := &Summary{SessionID: uuid.NewString()}

	if w.deps.Locker != nil {
		lock, err := w.deps.Locker.Acquire(ctx)
		if errors.Is(err, coordination.ErrLockNotAcquired) {
			sum.Skipped = true
			if w.deps.Metrics != nil {
				w.deps.Metrics.SkippedLocked.Inc()
			}
			w.log.Info("Session lock held elsewhere, skipping run")
			return sum, nil
		}
		if err != nil {
			return sum, fmt.Errorf("session lock: %w", err)
		}
		sum.SessionID = lock.Token()
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				w.log.Warn("Session lock release failed", logger.Error(err))
			}
		}()
	}

	log := w.log.With(logger.String("session_id", sum.SessionID))
	log.Info("Session started",
		logger.String("category", w.ctrl.cfg.Category),
		logger.String("language", w.ctrl.cfg.Language))

	st := w.deps.Store
	known, err := st.KnownKeys(ctx)
	if err != nil {
		return sum, fmt.Errorf("known keys: %w", err)
	}

	start := w.now()
	res := w.ctrl.Crawl(ctx, known)
	sum.Found = len(res.Listings)
	sum.Pages = res.Pages
	sum.Stop = res.Stop

	// A cancelled crawl still returns records; they are persisted regardless.
	persist := context.WithoutCancel(ctx)

	fresh := make([]model.Listing, 0, len(res.Listings))
	for _, l := range res.Listings {
		isNew, err := st.Upsert(persist, l)
		if err != nil {
			log.Error("Upsert failed, aborting session", logger.String("id", l.ID), logger.Error(err))
			return sum, fmt.Errorf("store listing %s: %w", l.ID, err)
		}
		if !isNew {
			sum.Updated++
			continue
		}
		sum.New++
		stored, err := st.Get(persist, l.ID)
		if err != nil {
			return sum, fmt.Errorf("reload listing %s: %w", l.ID, err)
		}
		fresh = append(fresh, stored)
	}
	sum.Duration = w.now().Sub(start)

	if err := st.RecordSession(persist, model.SessionRecord{
		Timestamp:  start,
		JobsFound:  sum.Found,
		NewCount:   sum.New,
		Pages:      sum.Pages,
		Duration:   sum.Duration,
		Category:   w.ctrl.cfg.Category,
		Language:   w.ctrl.cfg.Language,
		StopReason: sum.Stop,
	}); err != nil {
		log.Error("Session record failed", logger.Error(err))
		return sum, fmt.Errorf("record session: %w", err)
	}

	if w.deps.Dispatcher != nil && len(fresh) > 0 {
		sum.Delivery = w.deps.Dispatcher.Dispatch(ctx, fresh)
	}

	if m := w.deps.Metrics; m != nil {
		m.ObserveSession(sum.Stop, sum.Duration, sum.Pages, sum.Found, sum.New, res.DroppedNoID, res.Skipped)
		m.LastSuccess.Set(float64(w.now().Unix()))
	}

	fields := []logger.Field{
		logger.String("stop_reason", string(sum.Stop)),
		logger.Int("found", sum.Found),
		logger.Int("new", sum.New),
		logger.Int("updated", sum.Updated),
		logger.Int("pages", sum.Pages),
		logger.Duration("duration", sum.Duration),
	}
	if stats, err := st.Statistics(persist); err != nil {
		log.Warn("Statistics unavailable", logger.Error(err))
	} else {
		fields = append(fields,
			logger.Int("total_listings", stats.Total),
			logger.Int("new_24h", stats.NewInLast24h),
			logger.Int("total_sessions", stats.TotalSessions))
	}
	log.Info("Session complete", fields...)
	return sum, nil
}
