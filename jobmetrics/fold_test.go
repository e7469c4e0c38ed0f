package jobmetrics

import (
	"math"
	"testing"

	"github.com/ftahirops/hpcsentry/model"
)

func TestFoldEmptyStream(t *testing.T) {
	m := Fold(map[uint32]*model.PidState{}, map[uint32]struct{}{})
	if m.TotalSyscalls != 0 || m.MonitoredPIDs != 0 {
		t.Fatalf("expected all-zero metrics, got %+v", m)
	}
}

func TestFoldIOAndNetClassification(t *testing.T) {
	ps := model.NewPidState(1)
	ps.SyscallCounts[0] = 10 // read, I/O set
	ps.SyscallCounts[44] = 5 // sendto, net set
	ps.SyscallCounts[9] = 2  // mmap, neither set

	states := map[uint32]*model.PidState{1: ps}
	pids := map[uint32]struct{}{1: {}}

	m := Fold(states, pids)
	if m.TotalSyscalls != 17 {
		t.Fatalf("total_syscalls = %d, want 17", m.TotalSyscalls)
	}
	if m.IOSyscalls != 10 {
		t.Fatalf("io_syscalls = %d, want 10", m.IOSyscalls)
	}
	if m.NetSyscalls != 5 {
		t.Fatalf("net_syscalls = %d, want 5", m.NetSyscalls)
	}
}

func TestTotalBytesDerivation(t *testing.T) {
	ps := model.NewPidState(1)
	ps.ReadBytes = 100
	ps.WriteBytes = 50
	ps.SendBytes = 30
	ps.RecvBytes = 20

	m := Fold(map[uint32]*model.PidState{1: ps}, map[uint32]struct{}{1: {}})
	if m.TotalIOBytes() != 150 {
		t.Fatalf("total_io_bytes = %d, want 150", m.TotalIOBytes())
	}
	if m.TotalNetBytes() != 50 {
		t.Fatalf("total_net_bytes = %d, want 50", m.TotalNetBytes())
	}
}

func TestDerivedPercentagesZeroWhenNoData(t *testing.T) {
	m := Fold(map[uint32]*model.PidState{}, map[uint32]struct{}{})
	if m.CPUPercent != 0 || m.WaitPercent != 0 || m.IOPercent != 0 || m.NetPercent != 0 {
		t.Fatalf("expected zero derived percentages, got %+v", m)
	}
}

func TestDerivedPercentages(t *testing.T) {
	ps := model.NewPidState(1)
	ps.CPUOnNs = 300
	ps.CPUOffNs = 700
	ps.SyscallCounts[0] = 3
	ps.SyscallCounts[44] = 1
	ps.SyscallDurationSumNs = 1000
	ps.SyscallDurationCount = 4

	m := Fold(map[uint32]*model.PidState{1: ps}, map[uint32]struct{}{1: {}})
	if !approx(m.CPUPercent, 30) {
		t.Fatalf("cpu_percent = %v, want 30", m.CPUPercent)
	}
	if !approx(m.WaitPercent, 70) {
		t.Fatalf("wait_percent = %v, want 70", m.WaitPercent)
	}
	if !approx(m.IOPercent, 75) {
		t.Fatalf("io_percent = %v, want 75", m.IOPercent)
	}
	if !approx(m.NetPercent, 25) {
		t.Fatalf("net_percent = %v, want 25", m.NetPercent)
	}
	if !approx(m.AvgSyscallDurationNs, 250) {
		t.Fatalf("avg_syscall_duration_ns = %v, want 250", m.AvgSyscallDurationNs)
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// TestUpdateAssociative checks spec §8 property 2:
// update(update(old, a), b) == update(old, merge(a, b)).
func TestUpdateAssociative(t *testing.T) {
	old := model.JobMetrics{TotalSyscalls: 5, CPUTimeNs: 10, WaitTimeNs: 5}
	a := model.JobMetrics{TotalSyscalls: 3, IOSyscalls: 1, CPUTimeNs: 4, WaitTimeNs: 1}
	b := model.JobMetrics{TotalSyscalls: 2, NetSyscalls: 2, CPUTimeNs: 1, WaitTimeNs: 9}

	left := Update(Update(old, a), b)

	merged := model.JobMetrics{
		TotalSyscalls: a.TotalSyscalls + b.TotalSyscalls,
		IOSyscalls:    a.IOSyscalls + b.IOSyscalls,
		NetSyscalls:   a.NetSyscalls + b.NetSyscalls,
		CPUTimeNs:     a.CPUTimeNs + b.CPUTimeNs,
		WaitTimeNs:    a.WaitTimeNs + b.WaitTimeNs,
	}
	right := Update(old, merged)

	if left.TotalSyscalls != right.TotalSyscalls ||
		left.IOSyscalls != right.IOSyscalls ||
		left.NetSyscalls != right.NetSyscalls ||
		left.CPUTimeNs != right.CPUTimeNs ||
		left.WaitTimeNs != right.WaitTimeNs {
		t.Fatalf("update is not associative: left=%+v right=%+v", left, right)
	}
	if !approx(left.CPUPercent, right.CPUPercent) {
		t.Fatalf("derived cpu_percent diverged: %v vs %v", left.CPUPercent, right.CPUPercent)
	}
}

func TestUpdateCountWeightedAverage(t *testing.T) {
	old := model.JobMetrics{SyscallDurationSumNs: 100, SyscallDurationCount: 2} // avg 50
	next := model.JobMetrics{SyscallDurationSumNs: 600, SyscallDurationCount: 4} // avg 150

	out := Update(old, next)
	if out.SyscallDurationSumNs != 700 || out.SyscallDurationCount != 6 {
		t.Fatalf("unexpected sums: %+v", out)
	}
	if !approx(out.AvgSyscallDurationNs, 700.0/6.0) {
		t.Fatalf("avg_syscall_duration_ns = %v, want %v", out.AvgSyscallDurationNs, 700.0/6.0)
	}
}
