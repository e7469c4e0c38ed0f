package report

import (
	"testing"
	"time"

	"github.com/ftahirops/hpcsentry/model"
)

// TestMetricsRoundTrip exercises spec §8 property 6: serializing a
// job's metrics to the pinned JSON schema and parsing them back
// yields an equal model.JobMetrics. SyscallDurationSumNs/Count are
// aggregator-internal accumulator state, not part of the wire schema
// (only their derived AvgSyscallDurationNs is), so the input is built
// without them.
func TestMetricsRoundTrip(t *testing.T) {
	want := model.JobMetrics{
		TotalSyscalls:        1200,
		IOSyscalls:           340,
		NetSyscalls:          90,
		ContextSwitches:      52,
		IOOperations:         340,
		NetOperations:        90,
		ReadBytes:            4096,
		WriteBytes:           2048,
		SendBytes:            512,
		RecvBytes:            1024,
		MonitoredPIDs:        3,
		CPUTimeNs:            9_500_000_000,
		WaitTimeNs:           3_200_000_000,
		CPUPercent:           74.8,
		WaitPercent:          25.2,
		IOPercent:            12.5,
		NetPercent:           3.1,
		AvgSyscallDurationNs: 1875.5,
	}

	session := Session{
		Monitoring: SessionInfo{
			StartTime:       time.Unix(0, 0).UTC(),
			EndTime:         time.Unix(60, 0).UTC(),
			DurationSeconds: 60,
		},
		Jobs: []JobReport{
			{
				JobID:     "123",
				User:      "alice",
				Partition: "gpu",
				Metrics:   FromJobMetrics(want),
			},
		},
	}

	data, err := Marshal(session)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(got.Jobs) != 1 {
		t.Fatalf("got %d jobs, want 1", len(got.Jobs))
	}

	roundTripped := ToJobMetrics(got.Jobs[0].Metrics)
	if roundTripped != want {
		t.Fatalf("round-tripped metrics = %+v, want %+v", roundTripped, want)
	}
}

func TestTotalBytesSurviveRoundTrip(t *testing.T) {
	m := model.JobMetrics{ReadBytes: 10, WriteBytes: 20, SendBytes: 5, RecvBytes: 7}
	v := FromJobMetrics(m)

	data, err := Marshal(Session{Jobs: []JobReport{{Metrics: v}}})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if got.Jobs[0].Metrics.TotalIOBytes != 30 {
		t.Fatalf("total_io_bytes = %d, want 30", got.Jobs[0].Metrics.TotalIOBytes)
	}
	if got.Jobs[0].Metrics.TotalNetBytes != 12 {
		t.Fatalf("total_net_bytes = %d, want 12", got.Jobs[0].Metrics.TotalNetBytes)
	}
}
