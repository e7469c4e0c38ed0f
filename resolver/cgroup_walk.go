package resolver

import (
	"os"
	"path/filepath"

	"github.com/ftahirops/hpcsentry/util"
)

// v1ControllerRoots lists the cgroup v1 controller mount points the
// control-group strategy enumerates, per spec §4.3 ("cgroup, cpuset,
// memory controllers").
var v1ControllerRoots = []string{"cpu,cpuacct", "cpu", "cpuacct", "memory", "cpuset", "systemd"}

// cgroupProcPaths enumerates the candidate cgroup.procs files for a
// given job id, matching the pattern
// ".../slurm/uid_*/job_<id>/cgroup.procs" and equivalents under each
// known controller root (v1) plus the unified hierarchy (v2/hybrid).
func cgroupProcPaths(jobID string) []string {
	var paths []string

	for _, root := range candidateCgroupRoots() {
		paths = append(paths, findJobDirs(root, jobID)...)
	}
	return paths
}

// candidateCgroupRoots returns every cgroup hierarchy root worth
// searching, scoped by the host's detected cgroup version: v2/hybrid
// systems get the unified root, v1/hybrid systems get each existing
// per-controller root. On a pure v2 host the v1 controller roots
// don't exist, so skipping them outright saves a stat() per tick
// rather than relying on os.Stat to fail quietly.
func candidateCgroupRoots() []string {
	var roots []string

	version := detectCgroupVersion()
	if version == cgroupV2 || version == cgroupHybrid {
		roots = append(roots, CgroupRoot())
	}
	if version == cgroupV1 || version == cgroupHybrid {
		for _, name := range v1ControllerRoots {
			p := filepath.Join("/sys/fs/cgroup", name)
			if _, err := os.Stat(p); err == nil {
				roots = append(roots, p)
			}
		}
	}
	return roots
}

// findJobDirs walks root looking for a directory matching
// uid_*/job_<id> (Slurm's cgroup layout) and returns the path to its
// cgroup.procs file, if present. Only when root has no slurm/ directory
// does it check root/job_<id> directly, for layouts that skip the
// uid_* level.
func findJobDirs(root, jobID string) []string {
	var found []string
	jobDirName := "job_" + jobID

	slurmRoot := filepath.Join(root, "slurm")
	entries, err := os.ReadDir(slurmRoot)
	if err != nil {
		// Try root/job_<id> directly.
		direct := filepath.Join(root, jobDirName, "cgroup.procs")
		if _, err := os.Stat(direct); err == nil {
			found = append(found, direct)
		}
		return found
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		uidDir := filepath.Join(slurmRoot, e.Name())
		candidate := filepath.Join(uidDir, jobDirName, "cgroup.procs")
		if _, err := os.Stat(candidate); err == nil {
			found = append(found, candidate)
		}
	}
	return found
}

// readCgroupProcs parses every numeric PID out of a cgroup.procs file.
func readCgroupProcs(path string) []uint32 {
	lines, err := util.ReadFileLines(path)
	if err != nil {
		return nil
	}
	var pids []uint32
	for _, l := range lines {
		n := util.ParseInt(l)
		if n > 0 {
			pids = append(pids, uint32(n))
		}
	}
	return pids
}
