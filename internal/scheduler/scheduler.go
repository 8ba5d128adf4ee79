// Package scheduler wires up the cron job that periodically runs a crawl
// session.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"jobmate/harvester-service/internal/logger"
	"jobmate/harvester-service/internal/scraper"
)

// Runner executes one session.
type Runner interface {
	Run(ctx context.Context) (*scraper.Summary, error)
}

// Status is the outcome of the most recent run.
type Status struct {
	Runs      int
	Failures  int
	LastRunAt time.Time
	LastErr   error
	Last      *scraper.Summary
}

// Healthy reports whether at least one run happened and the last one
// succeeded.
func (s Status) Healthy() bool { return s.Runs > 0 && s.LastErr == nil }

// Scheduler wraps robfig/cron and manages the session loop.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	spec   string // cron spec, e.g. "@every 30s"
	every  time.Duration
	log    logger.Logger
	now    func() time.Time

	job cron.Job
	wg  sync.WaitGroup

	mu     sync.RWMutex
	status Status
}

// New creates a Scheduler that fires every interval. Overlapping runs are
// skipped rather than queued.
func New(runner Runner, interval time.Duration, log logger.Logger) *Scheduler {
	if log == nil {
		log = logger.NewNop()
	}
	cl := cronLogger{log: log}
	return &Scheduler{
		cron:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
		runner: runner,
		spec:   fmt.Sprintf("@every %s", interval),
		every:  interval,
		log:    log,
		now:    time.Now,
	}
}

// Start registers the job and starts the scheduler. Also runs one session
// immediately so the store is populated without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.every <= 0 {
		return fmt.Errorf("scheduler: interval must be positive, got %s", s.every)
	}
	s.job = cron.NewChain(cron.SkipIfStillRunning(cronLogger{log: s.log})).
		Then(cron.FuncJob(func() { s.runOnce(ctx) }))

	if _, err := s.cron.AddJob(s.spec, s.job); err != nil {
		return fmt.Errorf("cron.AddJob: %w", err)
	}

	s.cron.Start()
	s.log.Info("Cron started", logger.String("spec", s.spec))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.job.Run()
	}()
	return nil
}

// Stop halts the scheduler and waits for a running session to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.log.Info("Cron stopped")
}

// Status returns a snapshot of the last run.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	s.log.Debug("Session cycle started")
	sum, err := s.runner.Run(ctx)

	s.mu.Lock()
	s.status.Runs++
	s.status.LastRunAt = s.now()
	s.status.LastErr = err
	if err != nil {
		s.status.Failures++
	} else {
		s.status.Last = sum
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Error("Session failed", logger.Error(err))
		return
	}
	if sum != nil && sum.Skipped {
		s.log.Info("Session skipped, lock held elsewhere")
	}
}

// cronLogger adapts logger.Logger to cron.Logger.
type cronLogger struct{ log logger.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.log.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.log.Error("cron: "+msg, append(kvFields(keysAndValues), logger.Error(err))...)
}

func kvFields(kv []any) []logger.Field {
	fields := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		fields = append(fields, logger.Any(key, kv[i+1]))
	}
	return fields
}
