package resolver

import (
	"strconv"
	"strings"
	"time"

	"github.com/ftahirops/hpcsentry/model"
)

// ParseQueueLine parses one line of the running-job listing format
// (spec §6): job_id|name|user|state|time|node_list|cpus|memory|partition
// where node_list is "+"-separated node names.
func ParseQueueLine(line string) (model.JobDescriptor, bool) {
	fields := strings.Split(line, "|")
	if len(fields) < 9 {
		return model.JobDescriptor{}, false
	}

	cpus, _ := strconv.Atoi(strings.TrimSpace(fields[6]))
	mem := parseMemoryMB(fields[7])

	d := model.JobDescriptor{
		JobID:     strings.TrimSpace(fields[0]),
		Name:      strings.TrimSpace(fields[1]),
		Owner:     strings.TrimSpace(fields[2]),
		State:     model.ParseJobState(strings.TrimSpace(fields[3])),
		CPUs:      cpus,
		MemoryMB:  mem,
		Partition: strings.TrimSpace(fields[8]),
	}
	if nl := strings.TrimSpace(fields[5]); nl != "" {
		d.Nodes = strings.Split(nl, "+")
	}
	return d, d.JobID != ""
}

// ParseQueueOutput parses every line of a queue command's stdout.
func ParseQueueOutput(output string) []model.JobDescriptor {
	var jobs []model.JobDescriptor
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if d, ok := ParseQueueLine(line); ok {
			jobs = append(jobs, d)
		}
	}
	return jobs
}

// ParseAccountingLine parses one line of the completed-job accounting
// format (spec §6):
// job_id|job_name|user|partition|state|exit_code|start_time|end_time|elapsed|cpu_time|max_rss|max_vmsize
func ParseAccountingLine(line string) (model.JobDescriptor, bool) {
	fields := strings.Split(line, "|")
	if len(fields) < 12 {
		return model.JobDescriptor{}, false
	}

	d := model.JobDescriptor{
		JobID:     strings.TrimSpace(fields[0]),
		Name:      strings.TrimSpace(fields[1]),
		Owner:     strings.TrimSpace(fields[2]),
		Partition: strings.TrimSpace(fields[3]),
		State:     model.ParseJobState(strings.TrimSpace(fields[4])),
	}
	d.StartTime = parseSchedTime(fields[6])
	d.EndTime = parseSchedTime(fields[7])
	return d, d.JobID != ""
}

// parseAveragePID extracts the "average PID" field from an sstat-style
// report. Implementations of the batch scheduler's stats command vary in
// exact column layout; this looks for the first bare integer field,
// which is how sstat's AvePID column appears in its pipe-delimited
// "--noheader --parsable2" output.
func parseAveragePID(output string) (uint32, bool) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, field := range strings.Split(line, "|") {
			field = strings.TrimSpace(field)
			n, err := strconv.Atoi(field)
			if err == nil && n > 0 {
				return uint32(n), true
			}
		}
	}
	return 0, false
}

// parseMemoryMB parses a memory field that may carry a unit suffix
// (e.g. "4096M", "4G") into megabytes.
func parseMemoryMB(raw string) uint64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	mult := 1.0
	switch {
	case strings.HasSuffix(s, "G"):
		mult = 1024
		s = strings.TrimSuffix(s, "G")
	case strings.HasSuffix(s, "M"):
		s = strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "K"):
		mult = 1.0 / 1024 // fractions of a megabyte are truncated
		s = strings.TrimSuffix(s, "K")
	}
	n, _ := strconv.ParseFloat(s, 64)
	return uint64(n * mult)
}

// parseSchedTime parses the scheduler's timestamp format
// ("YYYY-MM-DDTHH:MM:SS", Slurm's default), returning the zero time on
// any parse failure (e.g. "Unknown" or "N/A" placeholders).
func parseSchedTime(raw string) time.Time {
	s := strings.TrimSpace(raw)
	t, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		return time.Time{}
	}
	return t
}
