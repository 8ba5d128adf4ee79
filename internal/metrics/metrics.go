// Package metrics holds the Prometheus collectors of the harvester.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"jobmate/harvester-service/internal/model"
)

const namespace = "harvester"

// Metrics holds the collectors of one registry.
type Metrics struct {
	SessionsTotal   *prometheus.CounterVec // by stop reason
	SessionDuration prometheus.Histogram
	PagesLoaded     prometheus.Counter
	ListingsFound   prometheus.Counter
	ListingsNew     prometheus.Counter
	ListingsDropped *prometheus.CounterVec // by reason: no_id, extract_error
	Deliveries      *prometheus.CounterVec // by target and outcome
	LastSuccess     prometheus.Gauge
	SkippedLocked   prometheus.Counter
}

// New registers every collector on reg. A nil reg uses a fresh private
// registry, which keeps tests independent.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		SessionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Crawl sessions by stop reason.",
		}, []string{"stop_reason"}),
		SessionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Wall time of crawl sessions.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		}),
		PagesLoaded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_loaded_total",
			Help:      "Index pages loaded successfully.",
		}),
		ListingsFound: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_found_total",
			Help:      "Listings returned by crawl sessions.",
		}),
		ListingsNew: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_new_total",
			Help:      "Listings inserted for the first time.",
		}),
		ListingsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_dropped_total",
			Help:      "Listings discarded during extraction.",
		}, []string{"reason"}),
		Deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Downstream deliveries by target and outcome.",
		}, []string{"target", "outcome"}),
		LastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last session that completed without error.",
		}),
		SkippedLocked: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_skipped_locked_total",
			Help:      "Runs skipped because another session held the lock.",
		}),
	}
}

// ObserveSession records one finished session.
func (m *Metrics) ObserveSession(stop model.StopReason, d time.Duration, pages, found, isNew, noID, failed int) {
	m.SessionsTotal.WithLabelValues(string(stop)).Inc()
	m.SessionDuration.Observe(d.Seconds())
	m.PagesLoaded.Add(float64(pages))
	m.ListingsFound.Add(float64(found))
	m.ListingsNew.Add(float64(isNew))
	m.ListingsDropped.WithLabelValues("no_id").Add(float64(noID))
	m.ListingsDropped.WithLabelValues("extract_error").Add(float64(failed))
}

// ObserveDelivery counts one delivery attempt.
func (m *Metrics) ObserveDelivery(target string, ok bool) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.Deliveries.WithLabelValues(target, outcome).Inc()
}
