package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShareMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewShareMetrics(reg)

	m.Issued()
	m.Issued()
	m.Resolved(RouteView, OutcomeOK)
	m.Resolved(RouteDownload, OutcomeOK)
	m.Resolved(RouteView, OutcomeExpired)
	m.Resolved(RouteView, OutcomeExpired)
	m.Revoked(3)
	m.Revoked(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.issued))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resolutions.WithLabelValues(RouteView, OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resolutions.WithLabelValues(RouteDownload, OutcomeOK)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.resolutions.WithLabelValues(RouteView, OutcomeExpired)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.revoked))
}

func TestShareMetrics_NilIsNoop(t *testing.T) {
	var m *ShareMetrics
	assert.NotPanics(t, func() {
		m.Issued()
		m.Resolved(RouteView, OutcomeOK)
		m.Revoked(1)
	})
}

func TestHandler_ExposesShareMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewShareMetrics(reg).Resolved(RouteView, OutcomeNotFound)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `powerdrive_share_link_resolutions_total{outcome="not_found",route="view"} 1`)
	assert.Contains(t, string(body), "powerdrive_share_links_issued_total 0")
}
