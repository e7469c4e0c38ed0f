package resolver

import (
	"os"
	"strings"
)

// cgroupVersion identifies which cgroup hierarchy a host exposes,
// since Slurm's job cgroup layout differs between them: v1 scatters
// PIDs across one cgroup.procs per controller, v2 has a single unified
// one, and hybrid mounts both side by side.
type cgroupVersion int

const (
	cgroupV1     cgroupVersion = 1
	cgroupV2     cgroupVersion = 2
	cgroupHybrid cgroupVersion = 3
)

// detectCgroupVersion determines whether the host uses cgroup v1, v2,
// or hybrid, so candidateCgroupRoots knows which hierarchies are worth
// walking at all.
func detectCgroupVersion() cgroupVersion {
	if _, err := os.Stat("/sys/fs/cgroup/cgroup.controllers"); err == nil {
		if hasV1Hierarchies() {
			return cgroupHybrid
		}
		return cgroupV2
	}
	return cgroupV1
}

func hasV1Hierarchies() bool {
	entries, err := os.ReadDir("/sys/fs/cgroup")
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.IsDir() {
			switch e.Name() {
			case "cpu", "cpuacct", "cpu,cpuacct", "memory", "blkio":
				return true
			}
		}
	}
	return false
}

// CgroupRoot returns the cgroup v2 unified mount point.
func CgroupRoot() string {
	data, err := os.ReadFile("/proc/mounts")
	if err != nil {
		return "/sys/fs/cgroup"
	}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 3 && fields[2] == "cgroup2" {
			return fields[1]
		}
	}
	return "/sys/fs/cgroup"
}
