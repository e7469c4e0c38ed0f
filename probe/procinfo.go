package probe

import (
	"fmt"
	"os"
	"strings"
)

// ReadWchan reads /proc/PID/wchan and classifies the kernel wait
// channel into a short human-readable reason that explains why a
// process looks idle or io-bound.
func ReadWchan(pid uint32) string {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/wchan", pid))
	if err != nil {
		return "unknown"
	}
	wchan := strings.TrimSpace(string(data))
	if wchan == "" || wchan == "0" {
		return "running"
	}
	switch {
	case strings.Contains(wchan, "futex"):
		return "futex lock"
	case strings.Contains(wchan, "epoll"):
		return "epoll wait"
	case strings.Contains(wchan, "poll"):
		return "poll wait"
	case strings.Contains(wchan, "sleep"), strings.Contains(wchan, "hrtimer"):
		return "nanosleep"
	case strings.Contains(wchan, "io"), strings.Contains(wchan, "blk"):
		return "disk io"
	case strings.Contains(wchan, "pipe"):
		return "pipe wait"
	case strings.Contains(wchan, "socket"), strings.Contains(wchan, "tcp"), strings.Contains(wchan, "inet"):
		return "network"
	case strings.Contains(wchan, "wait"):
		return "wait"
	default:
		return wchan
	}
}
