package main

import (
	"context"
	"os/user"
	"strconv"
	"time"

	"github.com/ftahirops/hpcsentry/aggregator"
	"github.com/ftahirops/hpcsentry/alert"
	"github.com/ftahirops/hpcsentry/classifier"
	"github.com/ftahirops/hpcsentry/dashboard"
	"github.com/ftahirops/hpcsentry/httpapi"
	"github.com/ftahirops/hpcsentry/internal/logging"
	"github.com/ftahirops/hpcsentry/jobmetrics"
	"github.com/ftahirops/hpcsentry/model"
	"github.com/ftahirops/hpcsentry/probe"
	"github.com/ftahirops/hpcsentry/report"
	"github.com/ftahirops/hpcsentry/resolver"
	"github.com/ftahirops/hpcsentry/telemetry"
)

// systemUsernames are excluded from the unfiltered pseudo-job fallback,
// matching the original Slurm integration's fallback job builder (skip
// root/daemon/nobody rather than turning every traced system process
// into its own job).
var systemUsernames = map[string]bool{"root": true, "daemon": true, "nobody": true}

// lookupUsername resolves a PID's owning UID to a username, returning
// ok=false if the host has no matching passwd entry (e.g. a container
// UID with no /etc/passwd record).
func lookupUsername(uid uint32) (string, bool) {
	u, err := user.LookupId(strconv.FormatUint(uint64(uid), 10))
	if err != nil {
		return "", false
	}
	return u.Username, true
}

// pollTimeout bounds each probe poll, per spec §5's suspension-point
// discipline: the tick loop never blocks on the kernel side past this.
const pollTimeout = 500 * time.Millisecond

// monitor wires the Probe Runtime, Event Aggregator, Job Resolver,
// Metric Folder, and Classifier into one per-tick pipeline, feeding
// every external collaborator (report sink, HTTP API, Prometheus
// telemetry, alerting, dashboard) from its output.
type monitor struct {
	probe      *probe.Probe
	agg        *aggregator.Aggregator
	resolver   *resolver.Resolver
	thresholds model.Thresholds
	sink       sink
	sessionID  string
	api        *httpapi.Server
	telemetry  *telemetry.Store
	notifier   *alert.Notifier

	jobFilter  string
	userFilter string
	start      time.Time

	lastDropped uint64
}

// Tick implements dashboard.Ticker: the bubbletea program calls this
// once per refresh interval.
func (m *monitor) Tick() []dashboard.JobView {
	jobs, _ := m.collect(context.Background())
	return jobs
}

// runHeadless drives the same per-tick pipeline on a plain timer,
// without the TUI, until ctx is cancelled — the path used whenever
// --real-time is not set.
func (m *monitor) runHeadless(ctx context.Context, interval, evictionTTL time.Duration) error {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last []dashboard.JobView
	for {
		views, err := m.collect(ctx)
		if err != nil {
			logging.Errorf("collection tick failed: %v", err)
		} else {
			last = views
		}

		select {
		case <-ctx.Done():
			return m.finalize(last)
		case <-ticker.C:
		}

		livePIDs := make(map[uint32]struct{})
		for pid := range m.trackedPIDs(last) {
			livePIDs[pid] = struct{}{}
		}
		m.agg.EvictStale(evictionTTL, livePIDs)
	}
}

// collect runs one full pipeline pass: drain the probe, fold events
// into the aggregator, resolve each in-scope job's PID set, project
// its metrics, classify it, and fan the result out to every sink.
func (m *monitor) collect(ctx context.Context) ([]dashboard.JobView, error) {
	events := m.probe.Poll(ctx, pollTimeout)
	for _, ev := range events {
		m.agg.Fold(ev)
	}

	stats := m.probe.Stats()
	if stats.DroppedRing > m.lastDropped {
		m.agg.AddDropped(stats.DroppedRing - m.lastDropped)
		m.lastDropped = stats.DroppedRing
	}

	descriptors, err := m.scopedJobs(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := m.agg.Snapshot()
	window := time.Since(m.start)

	views := make([]dashboard.JobView, 0, len(descriptors))
	reports := make([]report.JobReport, 0, len(descriptors))
	for _, desc := range descriptors {
		set := m.resolver.Resolve(ctx, desc.JobID)
		metrics := jobmetrics.Fold(snapshot, set.PIDs)
		classification := classifier.Classify(metrics, m.thresholds)

		jr := report.BuildJobReport(desc, window, metrics, classification)
		reports = append(reports, jr)
		views = append(views, dashboard.JobView{JobReport: jr, EfficiencyScore: classification.EfficiencyScore})

		if alert.ShouldNotify(classification) {
			m.notifier.Notify(desc.JobID, classification)
		}
	}

	session := report.Session{
		Monitoring: report.SessionInfo{
			StartTime:       m.start,
			EndTime:         time.Now(),
			DurationSeconds: window.Seconds(),
		},
		Jobs: reports,
	}

	if err := m.sink.Write(ctx, m.sessionID, session); err != nil {
		logging.Warnf("report sink write failed: %v", err)
	}
	if m.api != nil {
		m.api.Update(session)
	}
	if m.telemetry != nil {
		m.telemetry.Update(views)
	}

	return views, nil
}

// scopedJobs resolves which jobs this run should track: a single job
// id, a user's jobs, every running job, or — when the scheduler itself
// is unreachable — the pseudo-job fallback over the caller's own
// processes (spec §9 Open Questions).
func (m *monitor) scopedJobs(ctx context.Context) ([]model.JobDescriptor, error) {
	switch {
	case m.jobFilter != "":
		desc, ok := m.resolver.JobInfo(ctx, m.jobFilter)
		if !ok {
			return nil, nil
		}
		return []model.JobDescriptor{desc}, nil
	case m.userFilter != "":
		jobs, err := m.resolver.ListUser(ctx, m.userFilter)
		if err != nil || len(jobs) == 0 {
			return m.fallbackPseudoJobs(), nil
		}
		return jobs, nil
	default:
		jobs, err := m.resolver.ListRunning(ctx)
		if err != nil || len(jobs) == 0 {
			return m.fallbackPseudoJobs(), nil
		}
		return jobs, nil
	}
}

// fallbackPseudoJobs treats each user-owned PID the Aggregator
// currently tracks as its own pseudo-job, so a node with no reachable
// scheduler still produces a classified report per process (spec §9
// Open Questions). When m.userFilter is set, only that user's PIDs are
// turned into pseudo-jobs, matching _get_fallback_jobs(user_filter=...)
// in the original Slurm integration; otherwise root/daemon/nobody are
// excluded so system processes don't get mistaken for a workload.
func (m *monitor) fallbackPseudoJobs() []model.JobDescriptor {
	owners := m.agg.TrackedPIDOwners()

	list := make([]uint32, 0, len(owners))
	for pid, uid := range owners {
		username, known := lookupUsername(uid)
		switch {
		case m.userFilter != "":
			if known && username == m.userFilter {
				list = append(list, pid)
			}
		case known && systemUsernames[username]:
			// skip system processes
		default:
			list = append(list, pid)
		}
	}
	if len(list) == 0 {
		return nil
	}
	return m.resolver.PseudoJobs(list)
}

// trackedPIDs collects the PIDs belonging to the jobs from the most
// recent tick, so runHeadless can tell the Aggregator which PIDs are
// still live and should not be evicted despite being unseen this tick.
func (m *monitor) trackedPIDs(views []dashboard.JobView) map[uint32]struct{} {
	out := make(map[uint32]struct{})
	for _, v := range views {
		set := m.resolver.Resolve(context.Background(), v.JobID)
		for pid := range set.PIDs {
			out[pid] = struct{}{}
		}
	}
	return out
}

// finalize runs one more full collection pass before shutdown, so the
// last report written reflects events folded since the previous tick
// rather than stale data up to a whole tick interval old — spec §5's
// cancellation contract: produce a final JobMetrics snapshot before
// exit. It uses a fresh context since ctx is already cancelled by the
// time runHeadless calls this.
func (m *monitor) finalize(last []dashboard.JobView) error {
	finalCtx, cancel := context.WithTimeout(context.Background(), pollTimeout+time.Second)
	defer cancel()

	views, err := m.collect(finalCtx)
	if err != nil {
		logging.Errorf("final collection pass failed: %v", err)
		views = last
	}
	logging.Infof("shutting down, %d jobs in final report", len(views))
	return nil
}
