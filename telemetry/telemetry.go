// Package telemetry exposes the current classified job set as
// Prometheus metrics, grounded on the registry/GaugeVec wiring pattern
// used across the retrieved pack (e.g. cmd/tfd-sim's metrics setup) —
// a real prometheus.Registry with per-job gauges rather than a
// hand-rolled text writer.
package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ftahirops/hpcsentry/dashboard"
)

// Store holds the Prometheus collectors fed by each classifier tick.
type Store struct {
	mu sync.Mutex

	registry *prometheus.Registry

	up              prometheus.Gauge
	jobsTracked     prometheus.Gauge
	efficiencyScore *prometheus.GaugeVec
	cpuPercent      *prometheus.GaugeVec
	ioPercent       *prometheus.GaugeVec
	netPercent      *prometheus.GaugeVec
	waitPercent     *prometheus.GaugeVec
	contextSwitches *prometheus.GaugeVec
	monitoredPIDs   *prometheus.GaugeVec

	known map[string]bool
}

// NewStore builds a Store and registers its collectors on a fresh
// registry.
func NewStore() *Store {
	labels := []string{"job_id", "user", "partition", "classification"}

	s := &Store{
		registry: prometheus.NewRegistry(),
		up: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hpcsentry_up", Help: "1 if hpcsentry is running.",
		}),
		jobsTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hpcsentry_jobs_tracked", Help: "Number of jobs currently tracked.",
		}),
		efficiencyScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hpcsentry_job_efficiency_score", Help: "Classifier efficiency score, 0-100.",
		}, labels),
		cpuPercent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hpcsentry_job_cpu_pct", Help: "Share of job wall time spent executing on CPU.",
		}, labels),
		ioPercent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hpcsentry_job_io_pct", Help: "Share of the job's syscalls that are in the I/O syscall set.",
		}, labels),
		netPercent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hpcsentry_job_net_pct", Help: "Share of the job's syscalls that are in the network syscall set.",
		}, labels),
		waitPercent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hpcsentry_job_wait_pct", Help: "Share of job wall time spent off-CPU waiting.",
		}, labels),
		contextSwitches: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hpcsentry_job_context_switches", Help: "Scheduler context switches observed for the job.",
		}, labels),
		monitoredPIDs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hpcsentry_job_monitored_pids", Help: "Number of PIDs currently attributed to the job.",
		}, labels),
		known: make(map[string]bool),
	}

	s.registry.MustRegister(
		s.up, s.jobsTracked, s.efficiencyScore, s.cpuPercent,
		s.ioPercent, s.netPercent, s.waitPercent,
		s.contextSwitches, s.monitoredPIDs,
	)
	s.up.Set(1)
	return s
}

// Update replaces every per-job gauge with jobs' current values,
// clearing entries for jobs no longer tracked so stale series don't
// linger on the /metrics page.
func (s *Store) Update(jobs []dashboard.JobView) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(jobs))
	for _, j := range jobs {
		labels := prometheus.Labels{
			"job_id": j.JobID, "user": j.User,
			"partition": j.Partition, "classification": j.Classification,
		}
		s.evict(j.JobID)
		s.efficiencyScore.With(labels).Set(j.EfficiencyScore)
		s.cpuPercent.With(labels).Set(j.Metrics.CPUPercent)
		s.ioPercent.With(labels).Set(j.Metrics.IOPercent)
		s.netPercent.With(labels).Set(j.Metrics.NetPercent)
		s.waitPercent.With(labels).Set(j.Metrics.WaitPercent)
		s.contextSwitches.With(labels).Set(float64(j.Metrics.ContextSwitches))
		s.monitoredPIDs.With(labels).Set(float64(j.Metrics.MonitoredPIDs))
		seen[j.JobID] = true
	}
	for id := range s.known {
		if !seen[id] {
			s.evict(id)
		}
	}
	s.known = seen
	s.jobsTracked.Set(float64(len(jobs)))
}

// evict deletes every label combination carrying jobID, whatever its
// user, partition, or classification labels. Update calls it for every
// job before setting fresh values (so a job whose classification changed
// keeps no series under its old label) and for jobs no longer tracked.
func (s *Store) evict(jobID string) {
	match := prometheus.Labels{"job_id": jobID}
	s.efficiencyScore.DeletePartialMatch(match)
	s.cpuPercent.DeletePartialMatch(match)
	s.ioPercent.DeletePartialMatch(match)
	s.netPercent.DeletePartialMatch(match)
	s.waitPercent.DeletePartialMatch(match)
	s.contextSwitches.DeletePartialMatch(match)
	s.monitoredPIDs.DeletePartialMatch(match)
}

// Handler serves the registry in Prometheus text exposition format.
func (s *Store) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
