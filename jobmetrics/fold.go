// Package jobmetrics implements the Metric Folder: a pure, side-effect
// free projection from the Aggregator's per-PID state through a job's
// PID set into one model.JobMetrics record (spec §4.4). Fold never
// mutates its inputs and Update never mutates either argument, so
// composing a stream of windowed measurements is associative.
package jobmetrics

import "github.com/ftahirops/hpcsentry/model"

// ioSyscallSet and netSyscallSet are the x86_64 classification sets
// pinned by spec §6. The Aggregator keeps raw per-syscall-id counts;
// Fold classifies each id against these sets while summing them into
// io_syscalls/net_syscalls, so the Metric Folder is the one place that
// knows the syscall sets (probe.ResolveSyscall mirrors the same table
// for display purposes).
var ioSyscallSet = map[uint32]struct{}{
	0: {}, 1: {}, 2: {}, 3: {}, 4: {}, 5: {}, 8: {}, 19: {}, 20: {}, 21: {}, 22: {},
}

var netSyscallSet = map[uint32]struct{}{
	41: {}, 42: {}, 43: {}, 44: {}, 45: {}, 46: {}, 47: {}, 48: {}, 49: {}, 50: {},
}

// IsIOSyscall reports whether nr is in the pinned I/O syscall set.
func IsIOSyscall(nr uint32) bool { _, ok := ioSyscallSet[nr]; return ok }

// IsNetSyscall reports whether nr is in the pinned network syscall set.
func IsNetSyscall(nr uint32) bool { _, ok := netSyscallSet[nr]; return ok }

// Fold projects the given PID states, restricted to the given PID set,
// into one JobMetrics value. It is pure: it neither mutates states nor
// retains references into it.
func Fold(states map[uint32]*model.PidState, pids map[uint32]struct{}) model.JobMetrics {
	var m model.JobMetrics

	for pid := range pids {
		ps, ok := states[pid]
		if !ok {
			continue
		}
		m.MonitoredPIDs++

		for nr, count := range ps.SyscallCounts {
			m.TotalSyscalls += count
			if IsIOSyscall(nr) {
				m.IOSyscalls += count
			}
			if IsNetSyscall(nr) {
				m.NetSyscalls += count
			}
		}

		m.ContextSwitches += ps.ContextSwitches
		m.IOOperations += ps.IOOps
		m.NetOperations += ps.NetOps
		m.ReadBytes += ps.ReadBytes
		m.WriteBytes += ps.WriteBytes
		m.SendBytes += ps.SendBytes
		m.RecvBytes += ps.RecvBytes

		m.CPUTimeNs += ps.CPUOnNs
		m.WaitTimeNs += ps.CPUOffNs

		m.SyscallDurationSumNs += ps.SyscallDurationSumNs
		m.SyscallDurationCount += ps.SyscallDurationCount
	}

	derivePercentages(&m)
	return m
}

// Update composes two JobMetrics measurements, summing every counter and
// recomputing derived percentages from the summed inputs. It is
// associative: Update(Update(old, a), b) == Update(old, merge(a, b))
// where merge sums counters field-by-field (spec §8 property 2).
func Update(old, next model.JobMetrics) model.JobMetrics {
	out := model.JobMetrics{
		TotalSyscalls:        old.TotalSyscalls + next.TotalSyscalls,
		IOSyscalls:           old.IOSyscalls + next.IOSyscalls,
		NetSyscalls:          old.NetSyscalls + next.NetSyscalls,
		ContextSwitches:      old.ContextSwitches + next.ContextSwitches,
		IOOperations:         old.IOOperations + next.IOOperations,
		NetOperations:        old.NetOperations + next.NetOperations,
		ReadBytes:            old.ReadBytes + next.ReadBytes,
		WriteBytes:           old.WriteBytes + next.WriteBytes,
		SendBytes:            old.SendBytes + next.SendBytes,
		RecvBytes:            old.RecvBytes + next.RecvBytes,
		MonitoredPIDs:        old.MonitoredPIDs + next.MonitoredPIDs,
		CPUTimeNs:            old.CPUTimeNs + next.CPUTimeNs,
		WaitTimeNs:           old.WaitTimeNs + next.WaitTimeNs,
		SyscallDurationSumNs: old.SyscallDurationSumNs + next.SyscallDurationSumNs,
		SyscallDurationCount: old.SyscallDurationCount + next.SyscallDurationCount,
	}
	derivePercentages(&out)
	return out
}

// derivePercentages recomputes every derived field of m from its summed
// counters, per spec §4.4.
func derivePercentages(m *model.JobMetrics) {
	total := m.CPUTimeNs + m.WaitTimeNs
	if total > 0 {
		m.CPUPercent = 100 * float64(m.CPUTimeNs) / float64(total)
		m.WaitPercent = 100 * float64(m.WaitTimeNs) / float64(total)
	} else {
		m.CPUPercent = 0
		m.WaitPercent = 0
	}

	if m.TotalSyscalls > 0 {
		m.IOPercent = 100 * float64(m.IOSyscalls) / float64(m.TotalSyscalls)
		m.NetPercent = 100 * float64(m.NetSyscalls) / float64(m.TotalSyscalls)
	} else {
		m.IOPercent = 0
		m.NetPercent = 0
	}

	if m.SyscallDurationCount > 0 {
		m.AvgSyscallDurationNs = float64(m.SyscallDurationSumNs) / float64(m.SyscallDurationCount)
	} else {
		m.AvgSyscallDurationNs = 0
	}
}
