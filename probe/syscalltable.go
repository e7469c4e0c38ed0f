package probe

import "fmt"

// ResolveSyscall returns the name and group for an x86_64 syscall
// number, for display purposes only — classification into io/net
// counters is owned by jobmetrics' pinned syscall sets.
func ResolveSyscall(nr uint32) (name, group string) {
	name, ok := syscallNames[nr]
	if !ok {
		name = fmt.Sprintf("sys_%d", nr)
	}
	group, ok = syscallGroups[nr]
	if !ok {
		group = "other"
	}
	return name, group
}

var syscallNames = map[uint32]string{
	0:   "read",
	1:   "write",
	2:   "open",
	3:   "close",
	5:   "fstat",
	7:   "poll",
	8:   "lseek",
	9:   "mmap",
	10:  "mprotect",
	11:  "munmap",
	17:  "pread64",
	18:  "pwrite64",
	19:  "readv",
	20:  "writev",
	21:  "access",
	22:  "pipe",
	23:  "select",
	35:  "nanosleep",
	41:  "socket",
	42:  "connect",
	43:  "accept",
	44:  "sendto",
	45:  "recvfrom",
	46:  "sendmsg",
	47:  "recvmsg",
	48:  "shutdown",
	49:  "bind",
	50:  "listen",
	56:  "clone",
	57:  "fork",
	59:  "execve",
	62:  "kill",
	72:  "fcntl",
	73:  "flock",
	78:  "getdents",
	79:  "getcwd",
	87:  "unlink",
	202: "futex",
	217: "getdents64",
	228: "clock_gettime",
	230: "clock_nanosleep",
	232: "epoll_wait",
	257: "openat",
	262: "newfstatat",
	270: "pselect6",
	271: "ppoll",
	288: "accept4",
	291: "epoll_create1",
	293: "pipe2",
	295: "preadv",
	296: "pwritev",
	318: "getrandom",
	435: "clone3",
}

// syscallGroups mirrors jobmetrics' pinned io/net syscall sets (spec
// §6) plus a few display-only groupings for syscalls that are neither.
var syscallGroups = map[uint32]string{
	0:  "io", 1: "io", 2: "io", 3: "io", 4: "io", 5: "io", 8: "io", 19: "io", 20: "io", 21: "io", 22: "io",
	41: "net", 42: "net", 43: "net", 44: "net", 45: "net", 46: "net", 47: "net", 48: "net", 49: "net", 50: "net",
	202: "lock/sync",
	7:   "poll", 23: "poll", 232: "poll", 270: "poll", 271: "poll",
	35: "sleep", 230: "sleep",
	56: "process", 57: "process", 59: "process", 62: "process",
}

// WellKnownPort returns a human-readable service name for common TCP
// ports.
func WellKnownPort(port uint16) string {
	switch port {
	case 80:
		return "http"
	case 443:
		return "https"
	case 3306:
		return "mysql"
	case 5432:
		return "postgres"
	case 6379:
		return "redis"
	case 2049:
		return "nfs"
	case 6817, 6818, 6819:
		return "slurmctld"
	case 22:
		return "ssh"
	default:
		return ""
	}
}
