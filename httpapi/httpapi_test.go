package httpapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftahirops/hpcsentry/httpapi"
	"github.com/ftahirops/hpcsentry/report"
)

func sampleSession() report.Session {
	return report.Session{
		Monitoring: report.SessionInfo{DurationSeconds: 5},
		Jobs: []report.JobReport{
			{JobID: "J1", User: "alice", Partition: "gpu", Classification: "CpuBound"},
		},
	}
}

func TestHealthz_Returns200(t *testing.T) {
	srv := httpapi.New()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReport_BeforeFirstUpdate_Returns503(t *testing.T) {
	srv := httpapi.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/report", nil)
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReport_AfterUpdate_ReturnsSession(t *testing.T) {
	srv := httpapi.New()
	srv.Update(sampleSession())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/report", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got report.Session
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Len(t, got.Jobs, 1)
	assert.Equal(t, "J1", got.Jobs[0].JobID)
}

func TestJob_Found(t *testing.T) {
	srv := httpapi.New()
	srv.Update(sampleSession())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/J1", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got report.JobReport
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "alice", got.User)
}

func TestJob_NotTracked_Returns404(t *testing.T) {
	srv := httpapi.New()
	srv.Update(sampleSession())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/J9", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
