package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Akotliar/sitemap-qa-sub000/internal/common"
	"github.com/Akotliar/sitemap-qa-sub000/pkg/pipeline"
	"github.com/Akotliar/sitemap-qa-sub000/pkg/risk"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#04B575"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#999999"))

	badgeStyles = map[risk.Severity]lipgloss.Style{
		risk.SeverityHigh: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#FF6B6B")).
			Padding(0, 1),
		risk.SeverityMedium: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#FFD166")).
			Padding(0, 1),
		risk.SeverityLow: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#4ECDC4")).
			Padding(0, 1),
	}
)

// ConsoleRenderer writes the styled terminal report.
type ConsoleRenderer struct {
	out   io.Writer
	width int
}

// NewConsoleRenderer creates a renderer for out, sized to the terminal.
func NewConsoleRenderer(out io.Writer) *ConsoleRenderer {
	return &ConsoleRenderer{out: out, width: common.TerminalWidth}
}

// Render writes the full report.
func (r *ConsoleRenderer) Render(report *pipeline.Report) {
	fmt.Fprintln(r.out, titleStyle.Render("sitemap-qa report"), dimStyle.Render(report.Site))
	fmt.Fprintln(r.out)

	r.renderOverview(report)
	r.renderGroups(report.Groups)
	r.renderAccessIssues(report)
	r.renderTimings(report.Timings)
}

func (r *ConsoleRenderer) renderOverview(report *pipeline.Report) {
	fmt.Fprintln(r.out, sectionStyle.Render("Overview"))
	if report.Discovery != nil {
		fmt.Fprintf(r.out, "  Sitemaps found:     %d (via %s)\n", len(report.Discovery.Sitemaps), report.Discovery.Source)
		if report.Discovery.CanonicalHost != "" {
			fmt.Fprintf(r.out, "  Canonical host:     %s\n", report.Discovery.CanonicalHost)
		}
	}
	fmt.Fprintf(r.out, "  URL entries:        %d\n", report.TotalEntries)
	fmt.Fprintf(r.out, "  Unique URLs:        %d (%d duplicates removed)\n", report.UniqueURLCount, report.DuplicatesRemoved)
	if report.ExtractionFailed > 0 {
		fmt.Fprintf(r.out, "  Failed sitemaps:    %d\n", report.ExtractionFailed)
	}
	if report.InvalidURLs > 0 {
		fmt.Fprintf(r.out, "  Unparseable URLs:   %d\n", report.InvalidURLs)
	}
	if report.Summary != nil {
		fmt.Fprintf(r.out, "  URLs with findings: %d of %d\n", report.Summary.RiskURLCount,
			report.Summary.RiskURLCount+report.Summary.CleanURLCount)
	}
	fmt.Fprintln(r.out)
}

func (r *ConsoleRenderer) renderGroups(groups []risk.Group) {
	fmt.Fprintln(r.out, sectionStyle.Render("Findings"))
	if len(groups) == 0 {
		fmt.Fprintln(r.out, dimStyle.Render("  no risk findings"))
		fmt.Fprintln(r.out)
		return
	}

	for _, group := range groups {
		badge := badgeStyles[group.Severity].Render(strings.ToUpper(string(group.Severity)))
		fmt.Fprintf(r.out, "  %s %s (%d URLs)\n", badge, group.Category, group.Count)
		fmt.Fprintf(r.out, "      %s\n", group.Rationale)
		if group.Recommendation != "" {
			fmt.Fprintf(r.out, "      %s\n", dimStyle.Render(group.Recommendation))
		}
		for _, sample := range group.Samples {
			fmt.Fprintf(r.out, "      - %s\n", truncate(sample, r.width-8))
		}
		if group.Count > len(group.Samples) {
			fmt.Fprintf(r.out, "      %s\n", dimStyle.Render(fmt.Sprintf("... and %d more", group.Count-len(group.Samples))))
		}
	}
	fmt.Fprintln(r.out)
}

func (r *ConsoleRenderer) renderAccessIssues(report *pipeline.Report) {
	if report.Discovery == nil || len(report.Discovery.AccessIssues) == 0 {
		return
	}
	fmt.Fprintln(r.out, sectionStyle.Render("Access issues"))
	for _, issue := range report.Discovery.AccessIssues {
		fmt.Fprintf(r.out, "  [%d] %s (%s)\n", issue.StatusCode, issue.URL, issue.Reason)
	}
	fmt.Fprintln(r.out)
}

func (r *ConsoleRenderer) renderTimings(timings []pipeline.PhaseTiming) {
	if len(timings) == 0 {
		return
	}
	var parts []string
	for _, timing := range timings {
		parts = append(parts, fmt.Sprintf("%s %s", timing.Phase, timing.Duration.Round(time.Millisecond)))
	}
	fmt.Fprintln(r.out, dimStyle.Render(strings.Join(parts, " | ")))
}

func truncate(s string, max int) string {
	if max < 10 {
		max = 10
	}
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
