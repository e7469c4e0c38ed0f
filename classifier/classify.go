// Package classifier maps a folded model.JobMetrics into a
// model.Classification: a workload label, a 0-100 efficiency score, and
// a bounded list of remediation hints. Classify is a pure function —
// same input, same output, no shared state — so it can be called
// independently of the rest of the pipeline (property tested in
// classify_test.go).
package classifier

import "github.com/ftahirops/hpcsentry/model"

const maxRecommendations = 10

// Classify decides a job's label and score from its folded metrics.
// Thresholds are configurable; pass model.DefaultThresholds() for the
// spec-pinned defaults.
func Classify(m model.JobMetrics, t model.Thresholds) model.Classification {
	label := decideLabel(m, t)
	score := efficiencyScore(m)
	recs := recommend(label, m)

	return model.Classification{
		Label:           label,
		EfficiencyScore: score,
		Recommendations: recs,
	}
}

// decideLabel implements the first-matching-branch decision tree of
// spec §4.5 verbatim.
func decideLabel(m model.JobMetrics, t model.Thresholds) model.Label {
	if m.TotalSyscalls == 0 {
		return model.Unknown
	}

	if m.CPUPercent >= t.CPUHi {
		if m.IOPercent < 10 {
			return model.CpuBound
		}
		return model.CpuIoMixed
	}

	if m.IOPercent >= t.IOHi {
		if m.ContextSwitches > t.CtxHi {
			return model.IoBoundIntensive
		}
		return model.IoBound
	}

	if m.WaitPercent >= t.IdleHi {
		if m.ContextSwitches > t.CtxHi {
			return model.IdleHeavySwitching
		}
		return model.IdleHeavy
	}

	if m.ContextSwitches > t.CtxHi {
		return model.MixedIntensive
	}
	return model.Balanced
}

// efficiencyScore implements the §4.5 formula verbatim, including its
// documented discontinuities at io_percent == 5 and == 50 (spec §9 —
// preserved because downstream reports depend on the exact numbers).
func efficiencyScore(m model.JobMetrics) float64 {
	cpuPct := m.CPUPercent
	if cpuPct > 100 {
		cpuPct = 100
	}
	cpuComponent := cpuPct * 0.4

	var ioBase float64
	switch {
	case m.IOPercent < 5:
		ioBase = m.IOPercent * 4
	case m.IOPercent > 50:
		ioBase = m.IOPercent - 50
		ioBase = 50 - ioBase
		if ioBase < 0 {
			ioBase = 0
		}
	default:
		ioBase = 20
	}
	ioComponent := ioBase * 0.3

	waitPenalty := m.WaitPercent * 0.5
	if waitPenalty > 30 {
		waitPenalty = 30
	}

	var ctxPenalty float64
	if m.ContextSwitches > 1000 {
		ctxPenalty = float64(m.ContextSwitches-1000) / 1000 * 10
		if ctxPenalty > 20 {
			ctxPenalty = 20
		}
	}

	score := cpuComponent + ioComponent - waitPenalty - ctxPenalty
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// recommend builds the bounded, stably-ordered recommendation list:
// label-primary rules first, then secondary-signal rules.
func recommend(label model.Label, m model.JobMetrics) []string {
	var out []string
	add := func(s string) {
		if len(out) < maxRecommendations {
			out = append(out, s)
		}
	}

	switch label {
	case model.Unknown:
		add("no syscalls observed in this window; job may be idle or not yet started")
	case model.CpuBound:
		add("job is CPU-bound; consider requesting more CPUs per node or a higher core-count partition")
	case model.CpuIoMixed:
		add("job is CPU-bound with secondary I/O; check for serialized checkpoint writes blocking compute")
	case model.IoBound:
		add("job is I/O-bound; consider node-local scratch storage or batching small reads/writes")
	case model.IoBoundIntensive:
		add("job is I/O-bound with heavy context switching; investigate synchronous I/O on the hot path")
	case model.IdleHeavy:
		add("job spends most of its time off-CPU; check for lock contention or unmet dependencies")
	case model.IdleHeavySwitching:
		add("job is idle-heavy with heavy context switching; look for busy-polling on the wait path")
	case model.MixedIntensive:
		add("job has mixed CPU/IO/wait with heavy context switching; profile the scheduler hot path")
	case model.Balanced:
		add("job shows a balanced resource profile; no immediate remediation indicated")
	}

	if m.NetOperations > 1000 {
		add("high network activity; verify collective communication is not serialized")
	}
	if m.TotalIOBytes() > 0 && m.WriteBytes > m.ReadBytes*4 {
		add("write-heavy I/O pattern; consider reducing checkpoint frequency")
	}
	if m.ContextSwitches > 10000 {
		add("very high context-switch rate; check oversubscription of CPU cores on this node")
	}
	if m.MonitoredPIDs > 1 && m.TotalSyscalls > 0 {
		avgPerPid := float64(m.TotalSyscalls) / float64(m.MonitoredPIDs)
		if avgPerPid < 10 {
			add("most monitored PIDs are nearly idle; confirm the job's process tree was fully resolved")
		}
	}

	return out
}
