package probe

import (
	"os"
	"path/filepath"

	"github.com/ftahirops/hpcsentry/model"
)

// Capability describes what eBPF probing is available on this system
// for a given filter group.
type Capability struct {
	Available bool
	BTF       bool
	HasRoot   bool
	Reason    string
	Groups    []string // which of "syscall", "sched", "io", "net" can attach
}

// groupTracepoints names the tracepoints each filter group depends on.
// "io" and "net" rely only on kprobes, which attach on any kernel with
// BTF and root, so they carry no tracepoint prerequisite.
var groupTracepoints = map[string][]string{
	"syscall": {"raw_syscalls/sys_enter", "raw_syscalls/sys_exit"},
	"sched":   {"sched/sched_switch"},
	"io":      {},
	"net":     {},
}

// Detect checks system capabilities for eBPF probing: kernel BTF,
// euid 0, and the tracepoints each filter group needs.
func Detect() Capability {
	cap := Capability{}

	if _, err := os.Stat("/sys/kernel/btf/vmlinux"); err == nil {
		cap.BTF = true
	}
	if os.Geteuid() == 0 {
		cap.HasRoot = true
	}

	if !cap.BTF {
		cap.Reason = "kernel BTF not available (/sys/kernel/btf/vmlinux missing)"
		return cap
	}
	if !cap.HasRoot {
		cap.Reason = "root privileges required for eBPF probes"
		return cap
	}

	tracefs := "/sys/kernel/debug/tracing/events"
	if _, err := os.Stat(tracefs); err != nil {
		tracefs = "/sys/kernel/tracing/events"
	}

	for group, tps := range groupTracepoints {
		ok := true
		for _, tp := range tps {
			if _, err := os.Stat(filepath.Join(tracefs, tp)); err != nil {
				ok = false
				break
			}
		}
		if ok {
			cap.Groups = append(cap.Groups, group)
		}
	}

	if len(cap.Groups) > 0 {
		cap.Available = true
	} else {
		cap.Reason = "no required tracepoints available"
	}
	return cap
}

// Supports reports whether every group filter needs is in cap.Groups.
func (c Capability) Supports(filter model.ProbeFilter) bool {
	need := groupsFor(filter)
	have := make(map[string]struct{}, len(c.Groups))
	for _, g := range c.Groups {
		have[g] = struct{}{}
	}
	for _, n := range need {
		if _, ok := have[n]; !ok {
			return false
		}
	}
	return true
}

func groupsFor(filter model.ProbeFilter) []string {
	switch filter {
	case model.FilterSyscall:
		return []string{"syscall"}
	case model.FilterSched:
		return []string{"sched"}
	case model.FilterIO:
		return []string{"io"}
	case model.FilterNet:
		return []string{"net"}
	default:
		return []string{"syscall", "sched", "io", "net"}
	}
}
