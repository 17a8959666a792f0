package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestInc(t *testing.T) {
	before := testutil.ToFloat64(IngestMetrics.WithLabelValues("heart_rate", "processed"))
	Inc(IngestMetrics, prometheus.Labels{"variant": "heart_rate", "outcome": "processed"}, 3)
	after := testutil.ToFloat64(IngestMetrics.WithLabelValues("heart_rate", "processed"))
	assert.Equal(t, 3.0, after-before)
}

func TestSet(t *testing.T) {
	Set(JobsInFlight, prometheus.Labels{}, 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(JobsInFlight.WithLabelValues()))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	Inc(Jobs, prometheus.Labels{"status": "completed"}, 1)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "jobs_total"))
}

func TestStart_EmptyAddrDisabled(t *testing.T) {
	assert.Nil(t, Start("", zap.NewNop().Sugar()))
}
