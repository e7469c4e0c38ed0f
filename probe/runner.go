//go:build 386 || amd64

// Package probe implements the Probe Runtime: it attaches the kernel
// probes a filter selects, decodes every ring-buffer sample into a
// model.RawEvent, and hands callers a Load/Poll/Stats/Cleanup contract
// so the rest of the pipeline never touches cilium/ebpf directly (spec
// §4.1). Grounded on the teacher's per-pack attach/read/close shape in
// collector/ebpf/{offcpu,sockio,syscalldissect}.go, generalized from
// one BPF map per pack to one ring buffer shared by every filter group.
package probe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cilium/ebpf/link"
	"github.com/cilium/ebpf/ringbuf"

	"github.com/ftahirops/hpcsentry/model"
)

// Probe is a live set of attached kernel probes feeding one ring
// buffer. Load returns one, Poll drains it, Cleanup tears it down.
type Probe struct {
	objs  eventsObjects
	links []link.Link
	rd    *ringbuf.Reader

	mu       sync.Mutex
	perKind  map[model.EventKind]uint64
	dropped  uint64
	warnings []string

	events chan model.RawEvent
	stop   chan struct{}
	wg     sync.WaitGroup
}

// Load attaches the kernel probes for filter and starts the
// background reader goroutine. It returns a *LoadError on failure so
// callers can distinguish a privilege problem from a missing
// tracepoint from a rejected program. A net probe that fails to attach
// does not fail Load; the failure is listed in Stats().Warnings.
func Load(filter model.ProbeFilter) (*Probe, error) {
	cap := Detect()
	if !cap.HasRoot {
		return nil, &LoadError{Kind: Privilege, Detail: cap.Reason}
	}
	if !cap.Supports(filter) {
		return nil, &LoadError{Kind: MissingTracepoint, Detail: cap.Reason}
	}

	var objs eventsObjects
	if err := loadEventsObjects(&objs, nil); err != nil {
		return nil, &LoadError{Kind: BytecodeRejected, Detail: err.Error()}
	}

	p := &Probe{
		objs:    objs,
		perKind: make(map[model.EventKind]uint64),
		events:  make(chan model.RawEvent, 4096),
		stop:    make(chan struct{}),
	}

	if err := p.attach(filter); err != nil {
		objs.Close()
		return nil, &LoadError{Kind: BytecodeRejected, Detail: err.Error()}
	}

	rd, err := ringbuf.NewReader(p.objs.Events)
	if err != nil {
		p.closeLinks()
		objs.Close()
		return nil, &LoadError{Kind: BytecodeRejected, Detail: fmt.Sprintf("open ring buffer: %v", err)}
	}
	p.rd = rd

	p.wg.Add(1)
	go p.readLoop()

	return p, nil
}

func (p *Probe) attach(filter model.ProbeFilter) error {
	attachers := map[string]func() (link.Link, error){
		"syscall_enter": func() (link.Link, error) {
			return link.Tracepoint("raw_syscalls", "sys_enter", p.objs.HandleSysEnter, nil)
		},
		"syscall_exit": func() (link.Link, error) {
			return link.Tracepoint("raw_syscalls", "sys_exit", p.objs.HandleSysExit, nil)
		},
		"sched_switch": func() (link.Link, error) {
			return link.AttachRawTracepoint(link.RawTracepointOptions{
				Name:    "sched_switch",
				Program: p.objs.HandleSchedSwitch,
			})
		},
		"vfs_write": func() (link.Link, error) {
			return link.Kprobe("vfs_write", p.objs.HandleVfsWrite, nil)
		},
		"vfs_read_enter": func() (link.Link, error) {
			return link.Kprobe("vfs_read", p.objs.HandleVfsReadEnter, nil)
		},
		"vfs_read_exit": func() (link.Link, error) {
			return link.Kretprobe("vfs_read", p.objs.HandleVfsReadExit, nil)
		},
		"tcp_sendmsg": func() (link.Link, error) {
			return link.Kprobe("tcp_sendmsg", p.objs.HandleTcpSendmsg, nil)
		},
		"tcp_recvmsg_enter": func() (link.Link, error) {
			return link.Kprobe("tcp_recvmsg", p.objs.HandleTcpRecvmsgEnter, nil)
		},
		"tcp_recvmsg_exit": func() (link.Link, error) {
			return link.Kretprobe("tcp_recvmsg", p.objs.HandleTcpRecvmsgExit, nil)
		},
	}

	var names []string
	switch filter {
	case model.FilterSyscall:
		names = []string{"syscall_enter", "syscall_exit"}
	case model.FilterSched:
		names = []string{"sched_switch"}
	case model.FilterIO:
		names = []string{"vfs_write", "vfs_read_enter", "vfs_read_exit"}
	case model.FilterNet:
		names = []string{"tcp_sendmsg", "tcp_recvmsg_enter", "tcp_recvmsg_exit"}
	default:
		names = []string{
			"syscall_enter", "syscall_exit", "sched_switch",
			"vfs_write", "vfs_read_enter", "vfs_read_exit",
			"tcp_sendmsg", "tcp_recvmsg_enter", "tcp_recvmsg_exit",
		}
	}

	optional := map[string]bool{"tcp_sendmsg": true, "tcp_recvmsg_enter": true, "tcp_recvmsg_exit": true}
	for _, n := range names {
		l, err := attachers[n]()
		if err != nil {
			if optional[n] {
				// Net probes are optional: record the failure and go on.
				p.warnings = append(p.warnings, fmt.Sprintf("attach %s: %v", n, err))
				continue
			}
			p.closeLinks()
			return fmt.Errorf("attach %s: %w", n, err)
		}
		p.links = append(p.links, l)
	}
	return nil
}

func (p *Probe) closeLinks() {
	for _, l := range p.links {
		l.Close()
	}
	p.links = nil
}

// readLoop drains the ring buffer until Cleanup closes the reader.
func (p *Probe) readLoop() {
	defer p.wg.Done()
	for {
		rec, err := p.rd.Read()
		if err != nil {
			if err == ringbuf.ErrClosed {
				close(p.events)
				return
			}
			p.mu.Lock()
			p.warnings = append(p.warnings, "ring buffer read: "+err.Error())
			p.mu.Unlock()
			continue
		}

		ev, err := decodeEvent(rec.RawSample)
		if err != nil {
			p.mu.Lock()
			p.warnings = append(p.warnings, err.Error())
			p.mu.Unlock()
			continue
		}

		select {
		case p.events <- ev:
		default:
			// Userspace channel full: count and drop rather than block
			// the kernel-side producer's consumer.
			p.mu.Lock()
			p.dropped++
			p.mu.Unlock()
		}
	}
}

// Poll collects events for up to timeout (or until ctx is done,
// whichever comes first) and returns whatever arrived.
func (p *Probe) Poll(ctx context.Context, timeout time.Duration) []model.RawEvent {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	var out []model.RawEvent
	for {
		select {
		case ev, ok := <-p.events:
			if !ok {
				p.tally(out)
				return out
			}
			out = append(out, ev)
		case <-deadline.C:
			p.tally(out)
			return out
		case <-ctx.Done():
			p.tally(out)
			return out
		}
	}
}

func (p *Probe) tally(evs []model.RawEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ev := range evs {
		p.perKind[ev.Kind]++
	}
}

// Stats returns the probe's structured counters, including the kernel
// side's ring-buffer reservation failures read from the drops map.
func (p *Probe) Stats() model.ProbeStats {
	p.mu.Lock()
	perKind := make(map[model.EventKind]uint64, len(p.perKind))
	var delivered uint64
	for k, v := range p.perKind {
		perKind[k] = v
		delivered += v
	}
	dropped := p.dropped
	warnings := append([]string(nil), p.warnings...)
	p.mu.Unlock()

	var zero uint32
	var kernelDrops uint64
	if p.objs.Drops != nil {
		_ = p.objs.Drops.Lookup(&zero, &kernelDrops)
	}

	return model.ProbeStats{
		Delivered:   delivered,
		DroppedRing: dropped + kernelDrops,
		PerKind:     perKind,
		Warnings:    warnings,
	}
}

// Cleanup closes the ring buffer reader, detaches every link, and
// unloads the BPF objects. Safe to call once; the reader goroutine
// exits once the ring buffer closes.
func (p *Probe) Cleanup() {
	if p.rd != nil {
		p.rd.Close()
	}
	p.wg.Wait()
	p.closeLinks()
	p.objs.Close()
}
