// Package model holds the value types shared across hpcsentry's core
// pipeline: captured kernel events, per-PID rolling state, scheduler job
// descriptors, folded job metrics, and the classifier's verdict.
package model

import "time"

// EventKind identifies the kind of kernel event a RawEvent carries.
type EventKind int

const (
	SyscallEnter EventKind = iota
	SyscallExit
	SchedSwitch
	VfsRead
	VfsWrite
	SockSend
	SockRecv
)

func (k EventKind) String() string {
	switch k {
	case SyscallEnter:
		return "SyscallEnter"
	case SyscallExit:
		return "SyscallExit"
	case SchedSwitch:
		return "SchedSwitch"
	case VfsRead:
		return "VfsRead"
	case VfsWrite:
		return "VfsWrite"
	case SockSend:
		return "SockSend"
	case SockRecv:
		return "SockRecv"
	}
	return "Unknown"
}

// RawEvent is one kernel event decoded from a probe ring buffer. It is
// created in a probe callback, consumed exactly once by the Aggregator,
// and never retained.
type RawEvent struct {
	Kind      EventKind
	PID       uint32
	TID       uint32
	UID       uint32
	Timestamp uint64 // monotonic nanoseconds

	// SyscallEnter / SyscallExit
	SyscallID uint32

	// VfsRead / VfsWrite
	Bytes uint64

	// SockSend / SockRecv
	NetBytes uint64
	Proto    uint8

	// SchedSwitch
	PrevPID   uint32
	NextPID   uint32
	PrevState uint32
}

// PendingKey identifies one outstanding syscall-entry timestamp, per the
// invariant that at most one entry may be pending for a given
// (TID, syscall id) pair at a time.
type PendingKey struct {
	TID       uint32
	SyscallID uint32
}

// SchedInterval is a closed [start, end) CPU-on window for a PID. Only
// closed intervals are stored; the open one is tracked by PidState's
// OpenSince/HasOpen.
type SchedInterval struct {
	Start uint64
	End   uint64
}

// PidState holds the rolling counters the Aggregator maintains for a
// single PID. It is created on first event for the PID, mutated only by
// the Aggregator, and evicted by Aggregator.EvictStale once it has gone
// unseen for the eviction TTL passed in (config eviction_ttl, default
// 2m), which is separate from the resolver's cache TTL.
type PidState struct {
	PID  uint32
	UID  uint32
	Comm string

	SyscallCounts map[uint32]uint64 // syscall id -> count
	Pending       map[PendingKey]uint64

	SyscallDurationSumNs uint64
	SyscallDurationCount uint64

	ReadBytes  uint64
	WriteBytes uint64
	IOOps      uint64

	SendBytes uint64
	RecvBytes uint64
	NetOps    uint64

	Intervals            []SchedInterval
	OpenSince            uint64
	HasOpen              bool
	CPUOnNs              uint64
	CPUOffNs             uint64
	ContextSwitches      uint64
	WaitTimeApproximated bool

	FirstEventNs uint64
	LastEventNs  uint64

	DroppedExits   uint64
	DroppedEntries uint64

	LastSeen time.Time
}

// NewPidState returns a zeroed PidState ready for folding.
func NewPidState(pid uint32) *PidState {
	return &PidState{
		PID:           pid,
		SyscallCounts: make(map[uint32]uint64),
		Pending:       make(map[PendingKey]uint64),
	}
}

// JobState enumerates the lifecycle state of a batch-scheduler job.
type JobState int

const (
	JobRunning JobState = iota
	JobPending
	JobCompleted
	JobOther
)

func ParseJobState(s string) JobState {
	switch s {
	case "RUNNING", "R":
		return JobRunning
	case "PENDING", "PD":
		return JobPending
	case "COMPLETED", "CD", "COMPLETE":
		return JobCompleted
	default:
		return JobOther
	}
}

func (s JobState) String() string {
	switch s {
	case JobRunning:
		return "RUNNING"
	case JobPending:
		return "PENDING"
	case JobCompleted:
		return "COMPLETED"
	default:
		return "OTHER"
	}
}

// JobDescriptor identifies one batch-scheduler job, as parsed from the
// scheduler's queue/accounting command output (see the line formats on
// ParseQueueLine and ParseAccountingLine in resolver/parse.go).
type JobDescriptor struct {
	JobID     string
	Owner     string
	Name      string
	Partition string
	Nodes     []string
	CPUs      int
	MemoryMB  uint64
	State     JobState

	// StartTime and EndTime are populated only from the accounting query
	// (completed jobs) and are zero for jobs discovered via the
	// running-job query. No parser sets SubmitTime.
	SubmitTime time.Time
	StartTime  time.Time
	EndTime    time.Time
}

// JobPidSet is the resolver's cached mapping of a job id to the PIDs
// currently believed to belong to it.
type JobPidSet struct {
	JobID     string
	PIDs      map[uint32]struct{}
	Timestamp time.Time
}

// PIDList returns the set's PIDs as a sorted-free slice.
func (s JobPidSet) PIDList() []uint32 {
	out := make([]uint32, 0, len(s.PIDs))
	for pid := range s.PIDs {
		out = append(out, pid)
	}
	return out
}

// JobMetrics is the Metric Folder's pure output: per-job counters folded
// over a job's PID set for one sampling window, plus the derived
// percentages the Classifier consumes. All fields are non-negative.
type JobMetrics struct {
	TotalSyscalls   uint64
	IOSyscalls      uint64
	NetSyscalls     uint64
	ContextSwitches uint64
	IOOperations    uint64
	NetOperations   uint64
	ReadBytes       uint64
	WriteBytes      uint64
	SendBytes       uint64
	RecvBytes       uint64
	MonitoredPIDs   int

	CPUTimeNs  uint64
	WaitTimeNs uint64

	SyscallDurationSumNs   uint64
	SyscallDurationCount   uint64

	CPUPercent           float64
	WaitPercent          float64
	IOPercent            float64
	NetPercent           float64
	AvgSyscallDurationNs float64
}

// TotalIOBytes returns ReadBytes + WriteBytes.
func (m JobMetrics) TotalIOBytes() uint64 { return m.ReadBytes + m.WriteBytes }

// TotalNetBytes returns SendBytes + RecvBytes.
func (m JobMetrics) TotalNetBytes() uint64 { return m.SendBytes + m.RecvBytes }

// Label is the workload category the Classifier assigns to a job.
type Label int

const (
	Unknown Label = iota
	CpuBound
	CpuIoMixed
	IoBound
	IoBoundIntensive
	IdleHeavy
	IdleHeavySwitching
	MixedIntensive
	Balanced
)

func (l Label) String() string {
	switch l {
	case CpuBound:
		return "CpuBound"
	case CpuIoMixed:
		return "CpuIoMixed"
	case IoBound:
		return "IoBound"
	case IoBoundIntensive:
		return "IoBoundIntensive"
	case IdleHeavy:
		return "IdleHeavy"
	case IdleHeavySwitching:
		return "IdleHeavySwitching"
	case MixedIntensive:
		return "MixedIntensive"
	case Balanced:
		return "Balanced"
	default:
		return "Unknown"
	}
}

// Classification is the Classifier's verdict for one job: a label, a
// 0-100 efficiency score, and a bounded list of remediation hints.
type Classification struct {
	Label           Label
	EfficiencyScore float64
	Recommendations []string
}

// ProbeFilter selects which kernel probe groups to attach.
type ProbeFilter int

const (
	FilterAll ProbeFilter = iota
	FilterSyscall
	FilterSched
	FilterIO
	FilterNet
)

func ParseProbeFilter(s string) (ProbeFilter, bool) {
	switch s {
	case "all", "":
		return FilterAll, true
	case "syscall":
		return FilterSyscall, true
	case "sched":
		return FilterSched, true
	case "io":
		return FilterIO, true
	case "net":
		return FilterNet, true
	}
	return FilterAll, false
}

// ProbeStats reports structured counters the Probe Runtime exposes —
// delivered/dropped/per-kind event counts — so the CLI can distinguish
// fatal startup failures from informational degradation.
type ProbeStats struct {
	Delivered    uint64
	DroppedRing  uint64
	PerKind      map[EventKind]uint64
	Warnings     []string
}

// ResolverStats reports which strategy last satisfied each job lookup,
// and how many scheduler subprocess invocations have occurred — used by
// callers (and by property tests) to confirm cache hits avoid spawning
// the scheduler command.
type ResolverStats struct {
	SchedulerInvocations uint64
	CacheHits            uint64
	CacheMisses          uint64
	PseudoJobFallbacks   uint64
	StrategyUsed         map[string]uint64 // "scheduler" | "cgroup" | "procenv"
}

// Thresholds parameterizes the Classifier; defaults mirror spec.md §4.5.
type Thresholds struct {
	CPUHi float64
	IOHi  float64
	IdleHi float64
	CtxHi  uint64
}

// DefaultThresholds returns the spec-pinned default thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CPUHi:  70,
		IOHi:   30,
		IdleHi: 50,
		CtxHi:  1000,
	}
}
