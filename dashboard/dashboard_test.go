package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ftahirops/hpcsentry/report"
)

func TestSortJobs_ByScoreAscendingByDefault(t *testing.T) {
	m := Model{jobs: []JobView{
		{JobReport: report.JobReport{JobID: "a"}, EfficiencyScore: 80},
		{JobReport: report.JobReport{JobID: "b"}, EfficiencyScore: 10},
		{JobReport: report.JobReport{JobID: "c"}, EfficiencyScore: 50},
	}}
	m.sortJobs()

	ids := []string{m.jobs[0].JobID, m.jobs[1].JobID, m.jobs[2].JobID}
	assert.Equal(t, []string{"b", "c", "a"}, ids)
}

func TestSortJobs_ByUser(t *testing.T) {
	m := Model{sortCol: sortByUser, jobs: []JobView{
		{JobReport: report.JobReport{JobID: "a", User: "zed"}},
		{JobReport: report.JobReport{JobID: "b", User: "amy"}},
	}}
	m.sortJobs()

	assert.Equal(t, "amy", m.jobs[0].User)
	assert.Equal(t, "zed", m.jobs[1].User)
}

func TestSortJobs_ByCPUDescending(t *testing.T) {
	low := report.MetricsView{CPUPercent: 10}
	high := report.MetricsView{CPUPercent: 90}
	m := Model{sortCol: sortByCPU, jobs: []JobView{
		{JobReport: report.JobReport{JobID: "a", Metrics: low}},
		{JobReport: report.JobReport{JobID: "b", Metrics: high}},
	}}
	m.sortJobs()

	assert.Equal(t, "b", m.jobs[0].JobID)
}

func TestScoreStyle_Thresholds(t *testing.T) {
	assert.Equal(t, critStyle, scoreStyle(0))
	assert.Equal(t, critStyle, scoreStyle(39.9))
	assert.Equal(t, warnStyle, scoreStyle(40))
	assert.Equal(t, warnStyle, scoreStyle(69.9))
	assert.Equal(t, okStyle, scoreStyle(70))
	assert.Equal(t, okStyle, scoreStyle(100))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
}
