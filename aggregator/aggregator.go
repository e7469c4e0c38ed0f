// Package aggregator implements the Event Aggregator: it exclusively
// owns the per-PID PidState table and folds every probe-delivered
// RawEvent into it (spec §4.2). It is single-consumer — concurrent
// writers are forbidden — and readers obtain a consistent snapshot by
// quiescing the aggregator during the read, matching the teacher's
// single tickMu-guarded collection cycle rather than double-buffering
// (spec §4.2/§5 require picking one explicitly; see DESIGN.md).
package aggregator

import (
	"sync"
	"time"

	"github.com/ftahirops/hpcsentry/model"
	"github.com/ftahirops/hpcsentry/util"
)

// Aggregator owns all PidState records and folds RawEvents into them.
type Aggregator struct {
	mu     sync.Mutex
	states map[uint32]*model.PidState

	droppedRing uint64
	perKind     map[model.EventKind]uint64
}

// New returns an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{
		states:  make(map[uint32]*model.PidState),
		perKind: make(map[model.EventKind]uint64),
	}
}

// stateFor returns (creating if necessary) the PidState for pid. Caller
// must hold a.mu.
func (a *Aggregator) stateFor(pid uint32) *model.PidState {
	ps, ok := a.states[pid]
	if !ok {
		ps = model.NewPidState(pid)
		a.states[pid] = ps
	}
	return ps
}

// Fold applies one RawEvent to the PidState table. It is the only
// method that mutates state; callers must serialize delivery (a single
// probe-poll goroutine feeding Fold is the expected topology).
func (a *Aggregator) Fold(ev model.RawEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.perKind[ev.Kind]++

	switch ev.Kind {
	case model.SyscallEnter:
		a.foldSyscallEnter(ev)
	case model.SyscallExit:
		a.foldSyscallExit(ev)
	case model.SchedSwitch:
		a.foldSchedSwitch(ev)
	case model.VfsRead:
		a.foldVfs(ev, true)
	case model.VfsWrite:
		a.foldVfs(ev, false)
	case model.SockSend:
		a.foldSock(ev, true)
	case model.SockRecv:
		a.foldSock(ev, false)
	}
}

func (a *Aggregator) touch(ps *model.PidState, ev model.RawEvent) {
	if ps.FirstEventNs == 0 || ev.Timestamp < ps.FirstEventNs {
		ps.FirstEventNs = ev.Timestamp
	}
	if ev.Timestamp > ps.LastEventNs {
		ps.LastEventNs = ev.Timestamp
	}
	ps.LastSeen = time.Now()
	ps.UID = ev.UID
	if ps.Comm == "" {
		ps.Comm = util.ReadComm(ps.PID)
	}
}

// AddDropped records ring-buffer drops reported by the Probe Runtime so
// Stats() surfaces one merged counter view for the CLI.
func (a *Aggregator) AddDropped(n uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.droppedRing += n
}

// foldSyscallEnter records the entry timestamp. If an entry is already
// pending for (tid, syscall_id), it is replaced and counted as a drop
// (spec §3 invariant: at most one pending entry per (TID, syscall_id)).
func (a *Aggregator) foldSyscallEnter(ev model.RawEvent) {
	ps := a.stateFor(ev.PID)
	a.touch(ps, ev)

	key := model.PendingKey{TID: ev.TID, SyscallID: ev.SyscallID}
	if _, exists := ps.Pending[key]; exists {
		ps.DroppedEntries++
	}
	ps.Pending[key] = ev.Timestamp
}

// foldSyscallExit looks up the matching entry. If present, it computes
// the duration, updates the per-syscall count and running duration
// sum/count. If absent, the exit is dropped and counted.
func (a *Aggregator) foldSyscallExit(ev model.RawEvent) {
	ps := a.stateFor(ev.PID)
	a.touch(ps, ev)

	key := model.PendingKey{TID: ev.TID, SyscallID: ev.SyscallID}
	entryTs, ok := ps.Pending[key]
	if !ok {
		ps.DroppedExits++
		return
	}
	delete(ps.Pending, key)

	var duration uint64
	if ev.Timestamp > entryTs {
		duration = ev.Timestamp - entryTs
	}

	ps.SyscallCounts[ev.SyscallID]++
	ps.SyscallDurationSumNs += duration
	ps.SyscallDurationCount++
}

func (a *Aggregator) foldVfs(ev model.RawEvent, isRead bool) {
	ps := a.stateFor(ev.PID)
	a.touch(ps, ev)

	if isRead {
		ps.ReadBytes += ev.Bytes
	} else {
		ps.WriteBytes += ev.Bytes
	}
	ps.IOOps++
}

func (a *Aggregator) foldSock(ev model.RawEvent, isSend bool) {
	ps := a.stateFor(ev.PID)
	a.touch(ps, ev)

	if isSend {
		ps.SendBytes += ev.NetBytes
	} else {
		ps.RecvBytes += ev.NetBytes
	}
	ps.NetOps++
}

// foldSchedSwitch implements the CPU-on/off reconstruction of spec §4.2:
// closing prev_pid's open interval, opening next_pid's, and ignoring a
// PID's first-seen off-CPU segment (no open_since yet). Wait time is
// reconstructed from the gaps between consecutive CPU-on intervals
// (§4.2's preferred gap-between-intervals method, not the "half of the
// preceding interval" approximation — see DESIGN.md for why this repo
// defaults to the faithful method per the spec's §9 guidance).
func (a *Aggregator) foldSchedSwitch(ev model.RawEvent) {
	now := time.Now()

	prev := a.stateFor(ev.PrevPID)
	prev.LastSeen = now
	prev.ContextSwitches++
	if prev.HasOpen {
		prev.CPUOnNs += ev.Timestamp - prev.OpenSince
		prev.Intervals = append(prev.Intervals, model.SchedInterval{Start: prev.OpenSince, End: ev.Timestamp})
		prev.HasOpen = false

		if n := len(prev.Intervals); n >= 2 {
			gapStart := prev.Intervals[n-2].End
			gapEnd := prev.Intervals[n-1].Start
			if gapEnd > gapStart {
				prev.CPUOffNs += gapEnd - gapStart
			}
		}
	}

	next := a.stateFor(ev.NextPID)
	next.LastSeen = now
	next.ContextSwitches++
	next.OpenSince = ev.Timestamp
	next.HasOpen = true
}

// Snapshot returns a deep-enough copy of the tracked PidState table for
// the Metric Folder to project, quiescing Fold for the duration of the
// copy so the reader never observes a partially-updated PidState.
func (a *Aggregator) Snapshot() map[uint32]*model.PidState {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[uint32]*model.PidState, len(a.states))
	for pid, ps := range a.states {
		cp := *ps
		cp.SyscallCounts = make(map[uint32]uint64, len(ps.SyscallCounts))
		for k, v := range ps.SyscallCounts {
			cp.SyscallCounts[k] = v
		}
		cp.Pending = make(map[model.PendingKey]uint64, len(ps.Pending))
		for k, v := range ps.Pending {
			cp.Pending[k] = v
		}
		cp.Intervals = append([]model.SchedInterval(nil), ps.Intervals...)
		out[pid] = &cp
	}
	return out
}

// EvictStale removes PidState entries unseen for longer than ttl and
// absent from liveJobPIDs, bounding memory per spec §5.
func (a *Aggregator) EvictStale(ttl time.Duration, liveJobPIDs map[uint32]struct{}) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := time.Now().Add(-ttl)
	for pid, ps := range a.states {
		if _, tracked := liveJobPIDs[pid]; tracked {
			continue
		}
		if ps.LastSeen.Before(cutoff) {
			delete(a.states, pid)
		}
	}
}

// Stats returns the aggregator's structured counters for the Probe
// Runtime's Stats() contract (delivered/dropped/per-kind).
func (a *Aggregator) Stats() model.ProbeStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	perKind := make(map[model.EventKind]uint64, len(a.perKind))
	var delivered uint64
	for k, v := range a.perKind {
		perKind[k] = v
		delivered += v
	}
	return model.ProbeStats{
		Delivered:   delivered,
		DroppedRing: a.droppedRing,
		PerKind:     perKind,
	}
}

// TrackedPIDOwners returns the owning UID recorded for every PID
// currently in the state table, so the pseudo-job fallback (spec §9
// Open Questions) can filter by ownership rather than dumping every
// traced PID system-wide into its own job.
func (a *Aggregator) TrackedPIDOwners() map[uint32]uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[uint32]uint32, len(a.states))
	for pid, ps := range a.states {
		out[pid] = ps.UID
	}
	return out
}
