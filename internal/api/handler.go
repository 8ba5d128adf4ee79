// Package api implements the status HTTP surface of the harvester service.
//
// Routes:
//
//	GET  /health                 → scheduler + store health
//	GET  /stats                  → listing and session counters
//	GET  /sessions?limit=N       → recent crawl sessions, newest first
//	GET  /listings?since=RFC3339 → listings first seen after since (default 24h)
//	GET  /listings/unsent        → listings not yet notified
//	GET  /listings/:id           → one listing
//	GET  /metrics                → Prometheus exposition
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"jobmate/harvester-service/internal/logger"
	"jobmate/harvester-service/internal/model"
	"jobmate/harvester-service/internal/scheduler"
	"jobmate/harvester-service/internal/store"
)

const (
	defaultSessionLimit = 20
	maxSessionLimit     = 500
)

// Store is the read side of the record store.
type Store interface {
	Ping(ctx context.Context) error
	Statistics(ctx context.Context) (model.Statistics, error)
	LastSessionAt(ctx context.Context) (*time.Time, error)
	RecentSessions(ctx context.Context, limit int) ([]model.SessionRecord, error)
	FirstSeenSince(ctx context.Context, t time.Time) ([]model.Listing, error)
	Unsent(ctx context.Context) ([]model.Listing, error)
	Get(ctx context.Context, id string) (model.Listing, error)
}

// StatusSource reports the scheduler state. May be nil for one-shot use.
type StatusSource interface {
	Status() scheduler.Status
}

// ─── Response types ───────────────────────────────────────────────────────────

// HealthResponse is the JSON shape of GET /health.
type HealthResponse struct {
	Status    string     `json:"status"`
	Service   string     `json:"service"`
	Version   string     `json:"version"`
	Store     string     `json:"store"`
	Runs      int        `json:"runs"`
	Failures  int        `json:"failures"`
	LastRunAt *time.Time `json:"lastRunAt,omitempty"`
	LastError string     `json:"lastError,omitempty"`
}

// StatsResponse is the JSON shape of GET /stats.
type StatsResponse struct {
	model.Statistics
	LastSessionAt *time.Time `json:"lastSessionAt,omitempty"`
}

// ─── Handler ─────────────────────────────────────────────────────────────────

// Handler holds shared dependencies.
type Handler struct {
	store    Store
	status   StatusSource
	gatherer prometheus.Gatherer
	version  string
	log      logger.Logger
	now      func() time.Time
}

// NewHandler returns a configured Handler. A nil gatherer serves the
// default registry.
func NewHandler(st Store, status StatusSource, gatherer prometheus.Gatherer, version string, log logger.Logger) *Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{store: st, status: status, gatherer: gatherer, version: version, log: log, now: time.Now}
}

// RegisterRoutes mounts all routes on r.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.health)
	r.HEAD("/health", h.health)
	r.GET("/stats", h.stats)
	r.GET("/sessions", h.sessions)
	r.GET("/listings", h.listingsSince)
	r.GET("/listings/unsent", h.unsent)
	r.GET("/listings/:id", h.listing)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

func (h *Handler) health(c *gin.Context) {
	resp := HealthResponse{Status: "ok", Service: "harvester-service", Version: h.version, Store: "ok"}
	code := http.StatusOK

	if err := h.store.Ping(c.Request.Context()); err != nil {
		resp.Status, resp.Store = "unhealthy", err.Error()
		code = http.StatusServiceUnavailable
	}
	if h.status != nil {
		st := h.status.Status()
		resp.Runs, resp.Failures = st.Runs, st.Failures
		if !st.LastRunAt.IsZero() {
			t := st.LastRunAt
			resp.LastRunAt = &t
		}
		if st.LastErr != nil {
			resp.LastError = st.LastErr.Error()
			if resp.Status == "ok" {
				resp.Status = "degraded"
			}
		}
	}
	c.JSON(code, resp)
}

func (h *Handler) stats(c *gin.Context) {
	ctx := c.Request.Context()
	st, err := h.store.Statistics(ctx)
	if err != nil {
		h.fail(c, "statistics", err)
		return
	}
	last, err := h.store.LastSessionAt(ctx)
	if err != nil {
		h.fail(c, "last session", err)
		return
	}
	c.JSON(http.StatusOK, StatsResponse{Statistics: st, LastSessionAt: last})
}

func (h *Handler) sessions(c *gin.Context) {
	limit := defaultSessionLimit
	if s := c.Query("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 || v > maxSessionLimit {
			jsonError(c, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = v
	}
	out, err := h.store.RecentSessions(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, "sessions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

func (h *Handler) listingsSince(c *gin.Context) {
	since := h.now().Add(-24 * time.Hour)
	if s := c.Query("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			jsonError(c, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		since = t
	}
	out, err := h.store.FirstSeenSince(c.Request.Context(), since)
	if err != nil {
		h.fail(c, "listings", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": out})
}

func (h *Handler) unsent(c *gin.Context) {
	out, err := h.store.Unsent(c.Request.Context())
	if err != nil {
		h.fail(c, "unsent", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": out})
}

func (h *Handler) listing(c *gin.Context) {
	l, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		jsonError(c, http.StatusNotFound, "listing not found")
		return
	}
	if err != nil {
		h.fail(c, "listing", err)
		return
	}
	c.JSON(http.StatusOK, l)
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func (h *Handler) fail(c *gin.Context, what string, err error) {
	h.log.Error("API query failed", logger.String("query", what), logger.Error(err))
	jsonError(c, http.StatusInternalServerError, "internal error")
}

func jsonError(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, gin.H{"error": msg})
}
