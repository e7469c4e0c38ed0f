package resolver

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/ftahirops/hpcsentry/model"
)

func TestCacheHitAvoidsSchedulerInvocation(t *testing.T) {
	r := New(time.Minute, time.Second, DefaultCommands())
	// Seed the cache directly so Resolve never touches a real scheduler
	// binary in this test environment.
	r.cache["123"] = model.JobPidSet{
		JobID:     "123",
		PIDs:      map[uint32]struct{}{42: {}},
		Timestamp: time.Now(),
	}

	set := r.Resolve(context.Background(), "123")
	if len(set.PIDs) != 1 {
		t.Fatalf("expected cached PID set, got %v", set.PIDs)
	}

	set2 := r.Resolve(context.Background(), "123")
	if len(set2.PIDs) != 1 {
		t.Fatalf("expected cached PID set on second call, got %v", set2.PIDs)
	}

	stats := r.Stats()
	if stats.CacheHits != 2 {
		t.Fatalf("expected 2 cache hits, got %d", stats.CacheHits)
	}
	if stats.SchedulerInvocations != 0 {
		t.Fatalf("expected no scheduler invocations on cache hit, got %d", stats.SchedulerInvocations)
	}
}

func TestCacheExpiresAfterTTL(t *testing.T) {
	r := New(10*time.Millisecond, time.Second, Commands{JobStats: "/bin/nonexistent-scheduler-binary"})
	r.cache["77"] = model.JobPidSet{
		JobID:     "77",
		PIDs:      map[uint32]struct{}{1: {}},
		Timestamp: time.Now().Add(-time.Hour),
	}

	set := r.Resolve(context.Background(), "77")
	if len(set.PIDs) != 0 {
		t.Fatalf("expected expired entry to trigger a miss with empty fallback, got %v", set.PIDs)
	}

	stats := r.Stats()
	if stats.CacheMisses != 1 {
		t.Fatalf("expected 1 cache miss, got %d", stats.CacheMisses)
	}
}

func TestRefreshFallsThroughStrategiesInOrder(t *testing.T) {
	r := New(time.Minute, time.Second, Commands{JobStats: "/bin/nonexistent-scheduler-binary"})
	// No scheduler binary, no matching cgroup paths, no matching
	// /proc environments on this host: refresh must return an empty,
	// non-nil set rather than erroring.
	pids := r.refresh(context.Background(), "999999")
	if pids == nil {
		t.Fatal("expected non-nil empty map from refresh with no strategy match")
	}
	if len(pids) != 0 {
		t.Fatalf("expected empty set, got %v", pids)
	}
}

func TestPseudoJobsCappedAndNamespaced(t *testing.T) {
	r := New(time.Minute, time.Second, DefaultCommands())

	pids := make([]uint32, 0, 80)
	for i := uint32(1); i <= 80; i++ {
		pids = append(pids, i)
	}

	jobs := r.PseudoJobs(pids)
	if len(jobs) != maxPseudoJobs {
		t.Fatalf("expected %d pseudo jobs, got %d", maxPseudoJobs, len(jobs))
	}

	for i, j := range jobs {
		want := "pseudo:proc_" + strconv.Itoa(i)
		if j.JobID != want {
			t.Errorf("job[%d].JobID = %q, want %q", i, j.JobID, want)
		}
		if j.State != model.JobRunning {
			t.Errorf("job[%d].State = %v, want Running", i, j.State)
		}
	}

	stats := r.Stats()
	if stats.PseudoJobFallbacks != maxPseudoJobs {
		t.Fatalf("expected %d pseudo fallbacks recorded, got %d", maxPseudoJobs, stats.PseudoJobFallbacks)
	}
}

func TestPseudoJobsDeterministicOrdering(t *testing.T) {
	r1 := New(time.Minute, time.Second, DefaultCommands())
	r2 := New(time.Minute, time.Second, DefaultCommands())

	pids := []uint32{30, 10, 20}
	jobs1 := r1.PseudoJobs(pids)
	jobs2 := r2.PseudoJobs([]uint32{20, 30, 10})

	for i := range jobs1 {
		if jobs1[i].JobID != jobs2[i].JobID {
			t.Fatalf("pseudo job ordering not deterministic: %q vs %q", jobs1[i].JobID, jobs2[i].JobID)
		}
	}
}

func TestInvalidateDropsEntry(t *testing.T) {
	r := New(time.Minute, time.Second, DefaultCommands())
	r.cache["5"] = model.JobPidSet{JobID: "5", PIDs: map[uint32]struct{}{1: {}}, Timestamp: time.Now()}
	r.Invalidate("5")
	if _, ok := r.cache["5"]; ok {
		t.Fatal("expected cache entry to be removed")
	}
}
