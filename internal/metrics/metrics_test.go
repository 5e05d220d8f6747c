package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IssuanceRequest("org.iso.18013.5.1.mDL", "mso_mdoc", ResultSuccess)
	m.IssuanceRequest("org.iso.18013.5.1.mDL", "mso_mdoc", ResultSuccess)
	m.IssuanceRequest("eu.europa.ec.eudi.pid.1", "dc+sd-jwt", ResultRejected)
	m.PipelineError("missing_required_field")
	m.SigningTime(150 * time.Millisecond)

	assert.Equal(t, float64(2),
		testutil.ToFloat64(m.issuanceRequests.WithLabelValues("org.iso.18013.5.1.mDL", "mso_mdoc", ResultSuccess)))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.issuanceRequests.WithLabelValues("eu.europa.ec.eudi.pid.1", "dc+sd-jwt", ResultRejected)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.pipelineErrors.WithLabelValues("missing_required_field")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.signingDuration))

	assert.Panics(t, func() { New(reg) })
}

func TestNewHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg).IssuanceRequest("org.iso.18013.5.1.mDL", "mso_mdoc", ResultFailed)

	h := NewHandler(reg)
	require.Equal(t, "/metrics", h.Path())
	require.Equal(t, http.MethodGet, h.Method())

	rr := httptest.NewRecorder()
	h.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(),
		`issuer_issuance_requests_total{doctype="org.iso.18013.5.1.mDL",format="mso_mdoc",result="failed"} 1`)
}
