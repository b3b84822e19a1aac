package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveAPI("GET /auth/me", 200, time.Millisecond)
		m.IncUnauthorized()
		m.IncVerification("ok")
		m.IncAuthAction("login", "ok")
		m.IncWalletFetch("ok")
		m.IncNotificationLoad("ok")
		m.SetActiveClients(3)
	})
}

func TestCounters(t *testing.T) {
	m := New()
	m.ObserveAPI("GET /pay/balance", 401, time.Millisecond)
	m.ObserveAPI("GET /pay/balance", 200, time.Millisecond)
	m.IncUnauthorized()
	m.IncWalletFetch("unauthorized")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.APIRequests.WithLabelValues("GET /pay/balance", "401")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.APIRequests.WithLabelValues("GET /pay/balance", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Unauthorized))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WalletFetches.WithLabelValues("unauthorized")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.SetActiveClients(2)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "rtodash_active_clients 2"))
}

func TestStatusLabel(t *testing.T) {
	tests := map[int]string{0: "error", 204: "2xx", 302: "3xx", 401: "401", 404: "4xx", 503: "5xx"}
	for status, want := range tests {
		assert.Equal(t, want, statusLabel(status), "status %d", status)
	}
}
