package telemetry_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftahirops/hpcsentry/dashboard"
	"github.com/ftahirops/hpcsentry/model"
	"github.com/ftahirops/hpcsentry/report"
	"github.com/ftahirops/hpcsentry/telemetry"
)

func job(id string, score float64) dashboard.JobView {
	return dashboard.JobView{
		JobReport: report.JobReport{
			JobID: id, User: "bob", Partition: "cpu",
			Classification: model.CpuBound.String(),
		},
		EfficiencyScore: score,
	}
}

func TestHandler_BeforeUpdate_ServesUpGauge(t *testing.T) {
	s := telemetry.NewStore()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hpcsentry_up 1")
}

func TestHandler_ExposesPerJobGauges(t *testing.T) {
	s := telemetry.NewStore()
	s.Update([]dashboard.JobView{job("J1", 72.5)})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `hpcsentry_job_efficiency_score{classification="CpuBound",job_id="J1",partition="cpu",user="bob"} 72.5`)
	assert.Contains(t, body, "hpcsentry_jobs_tracked 1")
}

func TestHandler_EvictsJobsNoLongerTracked(t *testing.T) {
	s := telemetry.NewStore()
	s.Update([]dashboard.JobView{job("J1", 50), job("J2", 60)})
	s.Update([]dashboard.JobView{job("J1", 55)})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `job_id="J1"`))
	assert.False(t, strings.Contains(body, `job_id="J2"`))
}
