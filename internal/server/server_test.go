package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/me/rtodash/internal/app"
	"github.com/me/rtodash/internal/apitest"
	"github.com/me/rtodash/internal/config"
	"github.com/me/rtodash/internal/logging"
	"github.com/me/rtodash/internal/metrics"
	"github.com/me/rtodash/internal/store"
)

func testServer(t *testing.T, st store.Store) *Server {
	t.Helper()
	be := apitest.NewBackend(t)
	m := metrics.New()
	apps := app.NewManager(st, app.Options{
		APIBaseURL: be.URL(),
		Metrics:    m,
		Logger:     logging.Discard(),
	}, app.ManagerConfig{})
	return New(config.DefaultServerConfig(), st, apps, logging.Discard(), WithMetrics(m))
}

type envelope struct {
	Status    string          `json:"status"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
}

func TestHealth(t *testing.T) {
	srv := testServer(t, store.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "ok", env.Status)
	assert.True(t, strings.HasPrefix(env.RequestID, "req_"))
	assert.Equal(t, env.RequestID, w.Header().Get("X-Request-ID"))

	var data healthResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "healthy", data.Status)
	assert.Equal(t, config.StorageSQLite, data.Storage)
}

func TestHealth_StorageDown(t *testing.T) {
	st, err := store.NewSQLiteStore(":memory:", logging.Discard())
	require.NoError(t, err)
	require.NoError(t, st.Close())

	srv := testServer(t, st)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := testServer(t, store.NewMemoryStore())

	// A page view creates a client app and bumps the gauge.
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "rtodash_active_clients 1")
}

func TestUIRoutesMounted(t *testing.T) {
	srv := testServer(t, store.NewMemoryStore())

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login?next=%2F", w.Header().Get("Location"))
}

func TestStartSweeper(t *testing.T) {
	be := apitest.NewBackend(t)
	st := store.NewMemoryStore()
	apps := app.NewManager(st, app.Options{APIBaseURL: be.URL(), Logger: logging.Discard()},
		app.ManagerConfig{IdleTTL: time.Millisecond})
	cfg := config.DefaultServerConfig()
	cfg.SweepInterval = 5 * time.Millisecond
	srv := New(cfg, st, apps, logging.Discard())

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))
	require.Equal(t, 1, apps.Len())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv.StartSweeper(ctx)

	assert.Eventually(t, func() bool { return apps.Len() == 0 }, time.Second, 5*time.Millisecond)
}
