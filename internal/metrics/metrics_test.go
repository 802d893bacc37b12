package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/facility-checklists/internal/application"
)

var _ application.Metrics = (*Recorder)(nil)

func TestRecorder_Counters(t *testing.T) {
	t.Parallel()
	r := NewRecorder()

	r.ExecutionRecorded("daily")
	r.ExecutionRecorded("daily")
	r.ExecutionRejected("already_executed")
	r.DueEvaluated("new_period")
	r.PendingChecklists("tech-1", 3)
	r.PendingChecklists("tech-1", 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.executionsRecorded.WithLabelValues("daily")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.executionsRejected.WithLabelValues("already_executed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.dueEvaluations.WithLabelValues("new_period")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.pendingChecklists.WithLabelValues("tech-1")))
}

func TestRecorder_HandlerExposesMetrics(t *testing.T) {
	t.Parallel()
	r := NewRecorder()
	r.ExecutionRecorded("weekly")

	ok := r.InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	ok.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `checklists_executions_recorded_total{periodicity="weekly"} 1`)
	assert.Contains(t, string(body), `checklists_http_requests_total{code="204",method="get"} 1`)
}
