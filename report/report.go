// Package report implements the pinned JSON report schema (spec §6):
// one object per monitoring session, with one entry per tracked job
// carrying its folded metrics and classification. The schema is the
// only place where storage format flexibility is disallowed — the file,
// Postgres, and SQLite sinks all marshal through these types.
package report

import (
	"encoding/json"
	"time"

	"github.com/ftahirops/hpcsentry/model"
)

// Session is the top-level JSON document for one monitoring run.
type Session struct {
	Monitoring SessionInfo `json:"monitoring_session"`
	Jobs       []JobReport `json:"jobs"`
}

// SessionInfo carries the session's wall-clock bounds.
type SessionInfo struct {
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationSeconds float64   `json:"duration_seconds"`
}

// JobReport is one job's folded metrics plus its classification.
type JobReport struct {
	JobID           string       `json:"job_id"`
	User            string       `json:"user"`
	JobName         string       `json:"job_name"`
	Partition       string       `json:"partition"`
	Nodes           []string     `json:"nodes"`
	DurationSeconds float64      `json:"duration_seconds"`
	Metrics         MetricsView  `json:"metrics"`
	Classification  string       `json:"classification"`
	Recommendations []string     `json:"recommendations"`
}

// MetricsView is the wire representation of model.JobMetrics: every
// field named in spec §4.4, with JSON-friendly names.
type MetricsView struct {
	TotalSyscalls        uint64  `json:"total_syscalls"`
	IOSyscalls           uint64  `json:"io_syscalls"`
	NetSyscalls          uint64  `json:"net_syscalls"`
	ContextSwitches      uint64  `json:"context_switches"`
	IOOperations         uint64  `json:"io_operations"`
	NetOperations        uint64  `json:"net_operations"`
	ReadBytes            uint64  `json:"read_bytes"`
	WriteBytes           uint64  `json:"write_bytes"`
	SendBytes            uint64  `json:"send_bytes"`
	RecvBytes            uint64  `json:"recv_bytes"`
	TotalIOBytes         uint64  `json:"total_io_bytes"`
	TotalNetBytes        uint64  `json:"total_net_bytes"`
	MonitoredPIDs        int     `json:"monitored_pids"`
	CPUTimeNs            uint64  `json:"cpu_time_ns"`
	WaitTimeNs           uint64  `json:"wait_time_ns"`
	CPUPercent           float64 `json:"cpu_percent"`
	WaitPercent          float64 `json:"wait_percent"`
	IOPercent            float64 `json:"io_percent"`
	NetPercent           float64 `json:"net_percent"`
	AvgSyscallDurationNs float64 `json:"avg_syscall_duration_ns"`
}

// FromJobMetrics converts a model.JobMetrics into its wire view.
func FromJobMetrics(m model.JobMetrics) MetricsView {
	return MetricsView{
		TotalSyscalls:        m.TotalSyscalls,
		IOSyscalls:           m.IOSyscalls,
		NetSyscalls:          m.NetSyscalls,
		ContextSwitches:      m.ContextSwitches,
		IOOperations:         m.IOOperations,
		NetOperations:        m.NetOperations,
		ReadBytes:            m.ReadBytes,
		WriteBytes:           m.WriteBytes,
		SendBytes:            m.SendBytes,
		RecvBytes:            m.RecvBytes,
		TotalIOBytes:         m.TotalIOBytes(),
		TotalNetBytes:        m.TotalNetBytes(),
		MonitoredPIDs:        m.MonitoredPIDs,
		CPUTimeNs:            m.CPUTimeNs,
		WaitTimeNs:           m.WaitTimeNs,
		CPUPercent:           m.CPUPercent,
		WaitPercent:          m.WaitPercent,
		IOPercent:            m.IOPercent,
		NetPercent:           m.NetPercent,
		AvgSyscallDurationNs: m.AvgSyscallDurationNs,
	}
}

// ToJobMetrics converts a wire view back into a model.JobMetrics. Used by
// property tests to verify the JSON round-trip (spec §8 property 6).
func ToJobMetrics(v MetricsView) model.JobMetrics {
	return model.JobMetrics{
		TotalSyscalls:        v.TotalSyscalls,
		IOSyscalls:           v.IOSyscalls,
		NetSyscalls:          v.NetSyscalls,
		ContextSwitches:      v.ContextSwitches,
		IOOperations:         v.IOOperations,
		NetOperations:        v.NetOperations,
		ReadBytes:            v.ReadBytes,
		WriteBytes:           v.WriteBytes,
		SendBytes:            v.SendBytes,
		RecvBytes:            v.RecvBytes,
		MonitoredPIDs:        v.MonitoredPIDs,
		CPUTimeNs:            v.CPUTimeNs,
		WaitTimeNs:           v.WaitTimeNs,
		CPUPercent:           v.CPUPercent,
		WaitPercent:          v.WaitPercent,
		IOPercent:            v.IOPercent,
		NetPercent:           v.NetPercent,
		AvgSyscallDurationNs: v.AvgSyscallDurationNs,
	}
}

// BuildJobReport assembles one JobReport from a descriptor, its folded
// metrics, and its classification.
func BuildJobReport(desc model.JobDescriptor, window time.Duration, m model.JobMetrics, c model.Classification) JobReport {
	return JobReport{
		JobID:           desc.JobID,
		User:            desc.Owner,
		JobName:         desc.Name,
		Partition:       desc.Partition,
		Nodes:           desc.Nodes,
		DurationSeconds: window.Seconds(),
		Metrics:         FromJobMetrics(m),
		Classification:  c.Label.String(),
		Recommendations: c.Recommendations,
	}
}

// Marshal renders a Session as indented JSON.
func Marshal(s Session) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// Unmarshal parses a Session from JSON.
func Unmarshal(data []byte) (Session, error) {
	var s Session
	err := json.Unmarshal(data, &s)
	return s, err
}
