// Package resolver implements the Job Resolver: it maps a batch-scheduler
// job id to the PIDs currently belonging to it, using three strategies in
// priority order behind a TTL cache, and exclusively owns the JobPidSet
// cache (spec §4.3). Scheduler subprocess invocations run outside any
// shared lock and on a bounded timeout, falling through to the next
// strategy on failure (spec §5), grounded on the teacher's
// exec.CommandContext + context.WithTimeout idiom in engine/alert.go.
package resolver

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ftahirops/hpcsentry/model"
)

const (
	defaultTTL            = 30 * time.Second
	defaultCommandTimeout = 10 * time.Second
	maxPseudoJobs         = 50
)

// Commands names the external scheduler binaries the resolver shells
// out to. Defaults match Slurm's standard tool names.
type Commands struct {
	JobStats string // sstat
	Queue    string // squeue
	Sacct    string // sacct
}

func DefaultCommands() Commands {
	return Commands{JobStats: "sstat", Queue: "squeue", Sacct: "sacct"}
}

// Resolver resolves job ids to PID sets, caching results with a TTL.
type Resolver struct {
	mu       sync.Mutex
	cache    map[string]model.JobPidSet
	ttl      time.Duration
	cmdTO    time.Duration
	cmds     Commands
	stats    model.ResolverStats
	pseudoOf map[uint32]string // pid -> pseudo job id, stable across ticks
}

// New returns a Resolver with the given TTL (0 uses the spec default of
// 30s) and command timeout (0 uses the spec default of 10s).
func New(ttl, cmdTimeout time.Duration, cmds Commands) *Resolver {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if cmdTimeout <= 0 {
		cmdTimeout = defaultCommandTimeout
	}
	return &Resolver{
		cache:    make(map[string]model.JobPidSet),
		ttl:      ttl,
		cmdTO:    cmdTimeout,
		cmds:     cmds,
		pseudoOf: make(map[uint32]string),
	}
}

// Resolve returns the PID set for jobID, serving from cache when the
// entry is within TTL (spec §8 property 7: a second call within TTL must
// not invoke the scheduler subprocess again).
func (r *Resolver) Resolve(ctx context.Context, jobID string) model.JobPidSet {
	r.mu.Lock()
	if cached, ok := r.cache[jobID]; ok && time.Since(cached.Timestamp) <= r.ttl {
		r.stats.CacheHits++
		r.mu.Unlock()
		return cached
	}
	r.mu.Unlock()

	r.mu.Lock()
	r.stats.CacheMisses++
	r.mu.Unlock()

	pids := r.refresh(ctx, jobID)
	set := model.JobPidSet{JobID: jobID, PIDs: pids, Timestamp: time.Now()}

	r.mu.Lock()
	r.cache[jobID] = set
	r.mu.Unlock()
	return set
}

// Invalidate explicitly drops a cached entry.
func (r *Resolver) Invalidate(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, jobID)
}

// Stats returns a copy of the resolver's structured counters.
func (r *Resolver) Stats() model.ResolverStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.stats
	out.StrategyUsed = make(map[string]uint64, len(r.stats.StrategyUsed))
	for k, v := range r.stats.StrategyUsed {
		out.StrategyUsed[k] = v
	}
	return out
}

// refresh tries each strategy in priority order; the first that returns
// a non-empty set wins (spec §4.3).
func (r *Resolver) refresh(ctx context.Context, jobID string) map[uint32]struct{} {
	if pids := r.bySchedulerStats(ctx, jobID); len(pids) > 0 {
		r.recordStrategy("scheduler")
		return pids
	}
	if pids := r.byCgroupWalk(jobID); len(pids) > 0 {
		r.recordStrategy("cgroup")
		return pids
	}
	if pids := r.byProcEnviron(jobID); len(pids) > 0 {
		r.recordStrategy("procenv")
		return pids
	}
	return map[uint32]struct{}{}
}

func (r *Resolver) recordStrategy(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stats.StrategyUsed == nil {
		r.stats.StrategyUsed = make(map[string]uint64)
	}
	r.stats.StrategyUsed[name]++
}

// bySchedulerStats invokes the batch scheduler's job-stats command and
// parses the "average PID" field (spec §4.3 strategy 1).
func (r *Resolver) bySchedulerStats(ctx context.Context, jobID string) map[uint32]struct{} {
	cctx, cancel := context.WithTimeout(ctx, r.cmdTO)
	defer cancel()

	out, err := r.runCommand(cctx, r.cmds.JobStats, "--jobs="+jobID, "--noheader", "--parsable2")
	if err != nil {
		return nil
	}

	r.mu.Lock()
	r.stats.SchedulerInvocations++
	r.mu.Unlock()

	pid, ok := parseAveragePID(out)
	if !ok {
		return nil
	}
	return map[uint32]struct{}{pid: {}}
}

// byCgroupWalk enumerates known cgroup paths for jobID and reads every
// numeric PID in each cgroup.procs file (spec §4.3 strategy 2).
func (r *Resolver) byCgroupWalk(jobID string) map[uint32]struct{} {
	out := make(map[uint32]struct{})
	for _, path := range cgroupProcPaths(jobID) {
		for _, pid := range readCgroupProcs(path) {
			out[pid] = struct{}{}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// byProcEnviron scans /proc for processes whose environment names jobID
// (spec §4.3 strategy 3), including descendant PIDs.
func (r *Resolver) byProcEnviron(jobID string) map[uint32]struct{} {
	pids := scanProcEnviron(jobID)
	if len(pids) == 0 {
		return nil
	}
	out := make(map[uint32]struct{}, len(pids))
	for _, p := range pids {
		out[p] = struct{}{}
	}
	return out
}

// runCommand runs name with args and returns trimmed stdout. Any
// non-zero exit, timeout, or spawn failure is treated uniformly as a
// transient failure that falls through to the next strategy (spec §7).
func (r *Resolver) runCommand(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	data, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// ListRunning returns every RUNNING job from the scheduler's queue
// command output.
func (r *Resolver) ListRunning(ctx context.Context) ([]model.JobDescriptor, error) {
	jobs, err := r.queue(ctx)
	if err != nil {
		return nil, err
	}
	var running []model.JobDescriptor
	for _, j := range jobs {
		if j.State == model.JobRunning {
			running = append(running, j)
		}
	}
	return running, nil
}

// ListUser returns every job owned by user u.
func (r *Resolver) ListUser(ctx context.Context, u string) ([]model.JobDescriptor, error) {
	jobs, err := r.queue(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.JobDescriptor
	for _, j := range jobs {
		if j.Owner == u {
			out = append(out, j)
		}
	}
	return out, nil
}

// ListNode returns every job with n in its node list.
func (r *Resolver) ListNode(ctx context.Context, n string) ([]model.JobDescriptor, error) {
	jobs, err := r.queue(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.JobDescriptor
	for _, j := range jobs {
		for _, node := range j.Nodes {
			if node == n {
				out = append(out, j)
				break
			}
		}
	}
	return out, nil
}

// JobInfo returns the descriptor for a single job id, preferring the
// running-job queue and falling back to the accounting query for
// completed jobs.
func (r *Resolver) JobInfo(ctx context.Context, jobID string) (model.JobDescriptor, bool) {
	jobs, err := r.queue(ctx)
	if err == nil {
		for _, j := range jobs {
			if j.JobID == jobID {
				return j, true
			}
		}
	}

	cctx, cancel := context.WithTimeout(ctx, r.cmdTO)
	defer cancel()
	out, err := r.runCommand(cctx, r.cmds.Sacct, "-j", jobID, "--noheader", "--parsable2")
	if err != nil {
		return model.JobDescriptor{}, false
	}
	for _, line := range strings.Split(out, "\n") {
		if d, ok := ParseAccountingLine(line); ok {
			return d, true
		}
	}
	return model.JobDescriptor{}, false
}

func (r *Resolver) queue(ctx context.Context) ([]model.JobDescriptor, error) {
	cctx, cancel := context.WithTimeout(ctx, r.cmdTO)
	defer cancel()
	out, err := r.runCommand(cctx, r.cmds.Queue, "--noheader", "--format=%i|%j|%u|%T|%M|%N|%C|%m|%P")
	if err != nil {
		return nil, err
	}
	return ParseQueueOutput(out), nil
}

// PseudoJobs builds the pseudo-job fallback used when the batch
// scheduler itself is unreachable: each user-owned process becomes its
// own pseudo-job (capped at 50), namespaced "pseudo:proc_<n>" so it can
// never collide with a real scheduler job id (spec §9 Open Questions).
func (r *Resolver) PseudoJobs(userPIDs []uint32) []model.JobDescriptor {
	sorted := append([]uint32(nil), userPIDs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	if len(sorted) > maxPseudoJobs {
		sorted = sorted[:maxPseudoJobs]
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.PseudoJobFallbacks += uint64(len(sorted))

	jobs := make([]model.JobDescriptor, 0, len(sorted))
	for i, pid := range sorted {
		id := "pseudo:proc_" + strconv.Itoa(i)
		r.pseudoOf[pid] = id
		jobs = append(jobs, model.JobDescriptor{
			JobID: id,
			State: model.JobRunning,
		})
		r.cache[id] = model.JobPidSet{
			JobID:     id,
			PIDs:      map[uint32]struct{}{pid: {}},
			Timestamp: time.Now(),
		}
	}
	return jobs
}
