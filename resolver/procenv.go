package resolver

import (
	"fmt"
	"os"
	"strings"

	"github.com/ftahirops/hpcsentry/util"
)

// slurmJobEnvVars are the environment variable names spec §6 names as
// the process-environment signal for job membership.
var slurmJobEnvVars = []string{"SLURM_JOB_ID", "SLURM_JOBID"}

// scanProcEnviron walks every process in /proc, reads its environment
// block, and collects the PID if the environment contains SLURM_JOB_ID
// or SLURM_JOBID equal to jobID. For each collected PID it also adds the
// transitive tree of descendant PIDs (spec §4.3).
func scanProcEnviron(jobID string) []uint32 {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil
	}

	childrenByParent := make(map[uint32][]uint32)
	var roots []uint32

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pid := util.ParseInt(e.Name())
		if pid <= 0 {
			continue
		}
		upid := uint32(pid)

		if ppid, ok := readPPID(upid); ok {
			childrenByParent[ppid] = append(childrenByParent[ppid], upid)
		}

		if processBelongsToJob(upid, jobID) {
			roots = append(roots, upid)
		}
	}

	seen := make(map[uint32]struct{})
	var out []uint32
	var visit func(pid uint32)
	visit = func(pid uint32) {
		if _, ok := seen[pid]; ok {
			return
		}
		seen[pid] = struct{}{}
		out = append(out, pid)
		for _, child := range childrenByParent[pid] {
			visit(child)
		}
	}
	for _, pid := range roots {
		visit(pid)
	}
	return out
}

// processBelongsToJob reads /proc/<pid>/environ and checks for a
// SLURM_JOB_ID/SLURM_JOBID variable equal to jobID.
func processBelongsToJob(pid uint32, jobID string) bool {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/environ", pid))
	if err != nil {
		return false
	}
	for _, kv := range strings.Split(string(data), "\x00") {
		if kv == "" {
			continue
		}
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			continue
		}
		for _, name := range slurmJobEnvVars {
			if parts[0] == name && parts[1] == jobID {
				return true
			}
		}
	}
	return false
}

// readPPID reads the parent PID from /proc/<pid>/status.
func readPPID(pid uint32) (uint32, bool) {
	kv, err := util.ParseKeyValueFile(fmt.Sprintf("/proc/%d/status", pid))
	if err != nil {
		return 0, false
	}
	s, ok := kv["PPid"]
	if !ok {
		return 0, false
	}
	n := util.ParseInt(s)
	if n <= 0 {
		return 0, false
	}
	return uint32(n), true
}
