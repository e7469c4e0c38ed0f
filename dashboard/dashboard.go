// Package dashboard implements the real-time terminal view: a
// bubbletea program that polls a Ticker once per tick and renders the
// current job table, mirroring the teacher's tick/collectMsg loop and
// status bar but scoped to one table-plus-detail screen instead of
// xtop's full page set.
package dashboard

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ftahirops/hpcsentry/report"
)

// JobView pairs one job's §6 report with the efficiency score the
// Classifier computed for it — the score is not part of the pinned
// JSON schema, so the dashboard carries it alongside instead of
// parsing it back out of the classification label.
type JobView struct {
	report.JobReport
	EfficiencyScore float64
}

// Ticker produces one fresh snapshot of every tracked job's report.
// cmd/hpcsentry's monitor type implements it over the probe/aggregator/
// resolver/jobmetrics/classifier pipeline.
type Ticker interface {
	Tick() []JobView
}

type tickMsg time.Time

type collectMsg struct {
	jobs []JobView
}

type sortColumn int

const (
	sortByScore sortColumn = iota
	sortByUser
	sortByCPU
	sortColumnCount
)

func (c sortColumn) String() string {
	switch c {
	case sortByUser:
		return "user"
	case sortByCPU:
		return "cpu%"
	default:
		return "score"
	}
}

// Model is the bubbletea model driving the job table.
type Model struct {
	ticker   Ticker
	interval time.Duration
	width    int
	height   int

	jobs     []JobView
	sortCol  sortColumn
	selected int
	paused   bool
	showHelp bool
}

// New builds the dashboard's initial model.
func New(ticker Ticker, interval time.Duration) Model {
	return Model{ticker: ticker, interval: interval}
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func collectOnce(t Ticker) tea.Cmd {
	return func() tea.Msg {
		return collectMsg{jobs: t.Tick()}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(m.interval), collectOnce(m.ticker))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "?":
			m.showHelp = true
		case "a":
			m.paused = !m.paused
			if !m.paused {
				return m, tea.Batch(tick(m.interval), collectOnce(m.ticker))
			}
		case "s":
			m.sortCol = (m.sortCol + 1) % sortColumnCount
			m.sortJobs()
		case "j", "down":
			if m.selected < len(m.jobs)-1 {
				m.selected++
			}
		case "k", "up":
			if m.selected > 0 {
				m.selected--
			}
		case "g":
			m.selected = 0
		case "G":
			m.selected = len(m.jobs) - 1
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tickMsg:
		if m.paused {
			return m, nil
		}
		return m, tea.Batch(tick(m.interval), collectOnce(m.ticker))
	case collectMsg:
		if !m.paused {
			m.jobs = msg.jobs
			m.sortJobs()
			if m.selected >= len(m.jobs) {
				m.selected = len(m.jobs) - 1
			}
			if m.selected < 0 {
				m.selected = 0
			}
		}
	}
	return m, nil
}

func (m *Model) sortJobs() {
	switch m.sortCol {
	case sortByUser:
		sort.Slice(m.jobs, func(i, j int) bool { return m.jobs[i].User < m.jobs[j].User })
	case sortByCPU:
		sort.Slice(m.jobs, func(i, j int) bool { return m.jobs[i].Metrics.CPUPercent > m.jobs[j].Metrics.CPUPercent })
	default:
		sort.Slice(m.jobs, func(i, j int) bool { return m.jobs[i].EfficiencyScore < m.jobs[j].EfficiencyScore })
	}
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if len(m.jobs) == 0 {
		return "No jobs tracked yet\n\n" + m.renderStatusBar()
	}

	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf(
		"%-10s %-10s %-8s %8s %8s %8s %8s %-18s",
		"JOB", "USER", "PART", "CPU%", "IO%", "NET%", "SCORE", "LABEL")))
	sb.WriteString("\n")

	for i, j := range m.jobs {
		row := fmt.Sprintf(
			"%-10s %-10s %-8s %7.1f%% %7.1f%% %7.1f%% %8s %-18s",
			truncate(j.JobID, 10), truncate(j.User, 10), truncate(j.Partition, 8),
			j.Metrics.CPUPercent, j.Metrics.IOPercent, j.Metrics.NetPercent,
			scoreStyle(j.EfficiencyScore).Render(fmt.Sprintf("%.0f", j.EfficiencyScore)),
			labelStyleFor(j.Classification).Render(j.Classification),
		)
		if i == m.selected {
			row = selectedStyle.Render(row)
		}
		sb.WriteString(row)
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(m.renderDetail())
	sb.WriteString("\n")
	sb.WriteString(m.renderStatusBar())
	return sb.String()
}

func (m Model) renderDetail() string {
	if m.selected < 0 || m.selected >= len(m.jobs) {
		return ""
	}
	j := m.jobs[m.selected]

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("Job %s — %s", j.JobID, j.JobName)))
	sb.WriteString("\n")
	sb.WriteString(labelStyle.Render("nodes: ") + valueStyle.Render(strings.Join(j.Nodes, ",")))
	sb.WriteString("  ")
	sb.WriteString(labelStyle.Render("duration: ") + valueStyle.Render(fmt.Sprintf("%.0fs", j.DurationSeconds)))
	sb.WriteString("\n")
	sb.WriteString(labelStyle.Render("syscalls: ") + valueStyle.Render(fmt.Sprintf("%d", j.Metrics.TotalSyscalls)))
	sb.WriteString("  ")
	sb.WriteString(labelStyle.Render("ctx-switches: ") + valueStyle.Render(fmt.Sprintf("%d", j.Metrics.ContextSwitches)))
	sb.WriteString("\n")
	if len(j.Recommendations) > 0 {
		sb.WriteString(headerStyle.Render("recommendations:"))
		sb.WriteString("\n")
		for _, r := range j.Recommendations {
			sb.WriteString("  - " + r + "\n")
		}
	}
	return sb.String()
}

func (m Model) renderStatusBar() string {
	var indicators string
	if m.paused {
		indicators += "  " + critStyle.Render("[PAUSED]")
	}
	help := dimStyle.Render(fmt.Sprintf("sort:%s(s)  j/k:select  a:pause  ?:help  q:quit", m.sortCol))
	left := fmt.Sprintf("%d jobs tracked", len(m.jobs)) + indicators
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(help)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + help
}

func (m Model) renderHelp() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("hpcsentry — real-time job classifier"))
	sb.WriteString("\n\n")
	sb.WriteString("  j/k       select job\n")
	sb.WriteString("  g/G       jump to first/last\n")
	sb.WriteString("  s         cycle sort column (score, user, cpu%)\n")
	sb.WriteString("  a         pause/resume polling\n")
	sb.WriteString("  ?         toggle this help\n")
	sb.WriteString("  q/Ctrl+C  quit\n")
	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render("Press any key to close"))
	return sb.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
