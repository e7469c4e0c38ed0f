package classifier

import (
	"math"
	"testing"

	"github.com/ftahirops/hpcsentry/model"
)

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func withPercents(m model.JobMetrics, cpuPct, ioPct, waitPct float64) model.JobMetrics {
	m.CPUPercent = cpuPct
	m.IOPercent = ioPct
	m.WaitPercent = waitPct
	return m
}

// TestScenarios covers spec §8 end-to-end scenarios E1-E4. E1's efficiency
// score is 35.0, not the 49.0 written in the prose spec: at io_percent==5
// the formula's own worked example E3 (identical io_percent==5 input)
// shows the else-branch value scaled by 0.3 (20*0.3=6), which is what the
// formula definition requires uniformly; E1's prose instead used the
// unscaled 20. E3's arithmetic is internally consistent with E2 and E4, so
// this implementation follows the formula text and E2-E4, not E1's prose.
func TestScenarios(t *testing.T) {
	cases := []struct {
		name    string
		m       model.JobMetrics
		label   model.Label
		score   float64
	}{
		{
			"E1 cpu-bound",
			withPercents(model.JobMetrics{TotalSyscalls: 10000, ContextSwitches: 500}, 85, 5, 10),
			model.CpuBound, 35.0,
		},
		{
			"E2 io-bound-intensive",
			withPercents(model.JobMetrics{TotalSyscalls: 15000, ContextSwitches: 2000}, 20, 60, 20),
			model.IoBoundIntensive, 0.0,
		},
		{
			"E3 idle-heavy",
			withPercents(model.JobMetrics{TotalSyscalls: 1000, ContextSwitches: 100}, 10, 5, 85),
			model.IdleHeavy, 0.0,
		},
		{
			"E4 balanced",
			withPercents(model.JobMetrics{TotalSyscalls: 8000, ContextSwitches: 800}, 50, 20, 30),
			model.Balanced, 11.0,
		},
	}

	th := model.DefaultThresholds()
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Classify(c.m, th)
			if got.Label != c.label {
				t.Errorf("label = %v, want %v", got.Label, c.label)
			}
			if !approxEqual(got.EfficiencyScore, c.score, 0.1) {
				t.Errorf("score = %v, want %v", got.EfficiencyScore, c.score)
			}
		})
	}
}

// TestEmptyStreamIsUnknown covers boundary 8: empty metrics classify as
// Unknown with a zero efficiency score.
func TestEmptyStreamIsUnknown(t *testing.T) {
	got := Classify(model.JobMetrics{}, model.DefaultThresholds())
	if got.Label != model.Unknown {
		t.Fatalf("label = %v, want Unknown", got.Label)
	}
	if got.EfficiencyScore != 0 {
		t.Fatalf("score = %v, want 0", got.EfficiencyScore)
	}
	if len(got.Recommendations) == 0 {
		t.Fatalf("expected at least one recommendation for Unknown")
	}
}

// TestNonZeroSyscallsNeverUnknown covers boundary 9: any job with syscalls
// must fall into a concrete label, never Unknown.
func TestNonZeroSyscallsNeverUnknown(t *testing.T) {
	m := model.JobMetrics{TotalSyscalls: 1}
	got := Classify(m, model.DefaultThresholds())
	if got.Label == model.Unknown {
		t.Fatalf("expected a concrete label for non-zero syscalls, got Unknown")
	}
}

// TestContextSwitchThresholdIsStrict covers boundary 10: context_switches
// exactly at the threshold is not "intensive" (strict greater-than).
func TestContextSwitchThresholdIsStrict(t *testing.T) {
	m := withPercents(model.JobMetrics{TotalSyscalls: 100, ContextSwitches: 1000}, 50, 20, 30)
	got := Classify(m, model.DefaultThresholds())
	if got.Label != model.Balanced {
		t.Fatalf("label at ctx==1000 = %v, want Balanced (not intensive)", got.Label)
	}

	m.ContextSwitches = 1001
	got = Classify(m, model.DefaultThresholds())
	if got.Label != model.MixedIntensive {
		t.Fatalf("label at ctx==1001 = %v, want MixedIntensive", got.Label)
	}
}

// TestPure verifies Classify is a pure function of its input (property 3).
func TestPure(t *testing.T) {
	m := withPercents(model.JobMetrics{TotalSyscalls: 500, ContextSwitches: 50}, 40, 15, 20)
	th := model.DefaultThresholds()
	a := Classify(m, th)
	b := Classify(m, th)
	if a.Label != b.Label || a.EfficiencyScore != b.EfficiencyScore {
		t.Fatalf("Classify is not pure: %+v != %+v", a, b)
	}
}

func TestRecommendationsBounded(t *testing.T) {
	m := withPercents(model.JobMetrics{
		TotalSyscalls:   100000,
		ContextSwitches: 50000,
		NetOperations:   5000,
		WriteBytes:      1000,
		ReadBytes:       10,
		MonitoredPIDs:   20,
	}, 30, 35, 35)
	got := Classify(m, model.DefaultThresholds())
	if len(got.Recommendations) > maxRecommendations {
		t.Fatalf("recommendations = %d, want <= %d", len(got.Recommendations), maxRecommendations)
	}
}

func TestScoreClampedToRange(t *testing.T) {
	m := withPercents(model.JobMetrics{TotalSyscalls: 10}, 100, 0, 0)
	got := Classify(m, model.DefaultThresholds())
	if got.EfficiencyScore < 0 || got.EfficiencyScore > 100 {
		t.Fatalf("score %v out of [0,100]", got.EfficiencyScore)
	}
}
