package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/harvester-service/internal/api"
	"jobmate/harvester-service/internal/db"
	"jobmate/harvester-service/internal/metrics"
	"jobmate/harvester-service/internal/model"
	"jobmate/harvester-service/internal/scheduler"
	"jobmate/harvester-service/internal/store"
)

type fixedStatus scheduler.Status

func (f fixedStatus) Status() scheduler.Status { return scheduler.Status(f) }

func newStore(t *testing.T) *store.Store {
	t.Helper()
	conn, err := db.NewSQLite(context.Background(), db.Memory)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	st := store.New(conn)
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func serve(t *testing.T, h *api.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	r := api.NewRouter(h, nil, false)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	st := newStore(t)

	h := api.NewHandler(st, nil, nil, "1.0.0", nil)
	rec := serve(t, h, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp api.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "harvester-service", resp.Service)

	h = api.NewHandler(st, fixedStatus{Runs: 2, Failures: 1, LastRunAt: time.Now(), LastErr: errors.New("boom")}, nil, "1.0.0", nil)
	rec = serve(t, h, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "boom", resp.LastError)
	assert.Equal(t, 2, resp.Runs)
}

func TestHealth_StoreDown(t *testing.T) {
	conn, err := db.NewSQLite(context.Background(), db.Memory)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	rec := serve(t, api.NewHandler(store.New(conn), nil, nil, "1.0.0", nil), http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatsAndSessions(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	_, err := st.Upsert(ctx, model.Listing{ID: "a", URL: "u"})
	require.NoError(t, err)
	require.NoError(t, st.RecordSession(ctx, model.SessionRecord{JobsFound: 1, NewCount: 1, Category: "it-programming"}))

	h := api.NewHandler(st, nil, nil, "1.0.0", nil)

	rec := serve(t, h, http.MethodGet, "/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats api.StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.TotalSessions)
	assert.NotNil(t, stats.LastSessionAt)

	rec = serve(t, h, http.MethodGet, "/sessions?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	var sessions struct {
		Sessions []model.SessionRecord `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sessions))
	require.Len(t, sessions.Sessions, 1)
	assert.Equal(t, "it-programming", sessions.Sessions[0].Category)

	assert.Equal(t, http.StatusBadRequest, serve(t, h, http.MethodGet, "/sessions?limit=0").Code)
}

func TestListings(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		_, err := st.Upsert(ctx, model.Listing{ID: id, URL: "https://www.workana.com/job/" + id})
		require.NoError(t, err)
	}
	_, err := st.MarkSent(ctx, "a")
	require.NoError(t, err)

	h := api.NewHandler(st, nil, nil, "1.0.0", nil)
	var body struct {
		Listings []model.Listing `json:"listings"`
	}

	rec := serve(t, h, http.MethodGet, "/listings")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Listings, 2)

	rec = serve(t, h, http.MethodGet, "/listings/unsent")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Listings, 1)
	assert.Equal(t, "b", body.Listings[0].ID)

	rec = serve(t, h, http.MethodGet, "/listings/a")
	require.Equal(t, http.StatusOK, rec.Code)
	var one model.Listing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &one))
	assert.True(t, one.Sent)

	assert.Equal(t, http.StatusNotFound, serve(t, h, http.MethodGet, "/listings/zzz").Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, h, http.MethodGet, "/listings?since=yesterday").Code)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.ObserveDelivery("notify", true)

	rec := serve(t, api.NewHandler(newStore(t), nil, reg, "1.0.0", nil), http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `harvester_deliveries_total{outcome="success",target="notify"} 1`)
}
