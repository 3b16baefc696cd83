// Package presenter renders run progress, either as a TUI dashboard or as a
// plain progress bar.
package presenter

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Akotliar/sitemap-qa-sub000/pkg/pipeline"
)

// phaseOrder drives the dashboard's stage list.
var phaseOrder = []string{
	pipeline.PhaseDiscovery,
	pipeline.PhaseExtraction,
	pipeline.PhaseConsolidation,
	pipeline.PhaseClassification,
	pipeline.PhaseGrouping,
}

type phaseState struct {
	running  bool
	done     bool
	duration time.Duration
}

// Dashboard is a TUI view of a running pipeline. It implements both tea.Model
// and pipeline.Observer; observer callbacks arrive from pipeline goroutines
// and are folded in under a mutex, the periodic tick re-renders.
type Dashboard struct {
	site      string
	phases    map[string]*phaseState
	completed int
	total     int
	width     int
	height    int
	startTime time.Time
	spin      spinner.Model
	bar       progress.Model
	mu        sync.RWMutex
}

type tickMsg time.Time

// NewDashboard creates a new TUI dashboard
func NewDashboard(site string) *Dashboard {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	phases := make(map[string]*phaseState, len(phaseOrder))
	for _, phase := range phaseOrder {
		phases[phase] = &phaseState{}
	}

	return &Dashboard{
		site:      site,
		phases:    phases,
		startTime: time.Now(),
		spin:      s,
		bar:       progress.New(progress.WithDefaultGradient()),
	}
}

// PhaseStarted implements pipeline.Observer
func (d *Dashboard) PhaseStarted(phase string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if state, ok := d.phases[phase]; ok {
		state.running = true
	}
}

// PhaseCompleted implements pipeline.Observer
func (d *Dashboard) PhaseCompleted(phase string, elapsed time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if state, ok := d.phases[phase]; ok {
		state.running = false
		state.done = true
		state.duration = elapsed
	}
}

// Progress implements pipeline.Observer
func (d *Dashboard) Progress(phase string, completed, total int) {
	if phase != pipeline.PhaseExtraction {
		return
	}
	d.mu.Lock()
	d.completed = completed
	d.total = total
	d.mu.Unlock()
}

// Init initializes the dashboard
func (d *Dashboard) Init() tea.Cmd {
	return tea.Batch(
		d.spin.Tick,
		tickCmd(),
		tea.EnterAltScreen,
	)
}

// Update handles dashboard updates
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "Q", "ctrl+c":
			return d, tea.Quit
		}

	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
		d.bar.Width = msg.Width/2 - 8
		return d, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		d.spin, cmd = d.spin.Update(msg)
		return d, cmd

	case tickMsg:
		return d, tickCmd()
	}

	return d, nil
}

// View renders the dashboard
func (d *Dashboard) View() string {
	if d.width == 0 {
		return "Initializing..."
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	halfWidth := d.width / 2
	row := lipgloss.JoinHorizontal(
		lipgloss.Top,
		d.renderPhases(halfWidth),
		d.renderProgress(d.width-halfWidth),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		d.renderHeader(),
		row,
		d.renderFooter(),
	)
}

func (d *Dashboard) renderHeader() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7D56F4")).
		Padding(0, 1)

	timeStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#999999"))

	elapsed := time.Since(d.startTime).Round(time.Second)
	title := titleStyle.Render("🗺  sitemap-qa")
	info := timeStyle.Render(fmt.Sprintf(" %s | Running: %s", d.site, elapsed))

	return title + info
}

func (d *Dashboard) renderPhases(width int) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#874BFD")).
		Padding(1, 2).
		Width(width - 2)

	doneStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	pendingStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))

	lines := []string{"Stages", ""}
	for _, phase := range phaseOrder {
		state := d.phases[phase]
		switch {
		case state.done:
			lines = append(lines, doneStyle.Render(fmt.Sprintf("✓ %-15s %s", phase, state.duration.Round(time.Millisecond))))
		case state.running:
			lines = append(lines, fmt.Sprintf("%s %s", d.spin.View(), phase))
		default:
			lines = append(lines, pendingStyle.Render(fmt.Sprintf("  %s", phase)))
		}
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func (d *Dashboard) renderProgress(width int) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#FF6B6B")).
		Padding(1, 2).
		Width(width - 2)

	lines := []string{"Extraction", ""}
	if d.total > 0 {
		lines = append(lines,
			d.bar.ViewAs(float64(d.completed)/float64(d.total)),
			"",
			fmt.Sprintf("%d / %d sitemaps", d.completed, d.total),
		)
	} else {
		lines = append(lines, "waiting for discovery...")
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func (d *Dashboard) renderFooter() string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("#999999")).
		Padding(0, 1).
		Render("press q to quit")
}

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
