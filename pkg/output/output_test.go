package output_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Akotliar/sitemap-qa-sub000/pkg/discovery"
	"github.com/Akotliar/sitemap-qa-sub000/pkg/output"
	"github.com/Akotliar/sitemap-qa-sub000/pkg/pipeline"
	"github.com/Akotliar/sitemap-qa-sub000/pkg/risk"
)

func sampleReport() *pipeline.Report {
	return &pipeline.Report{
		Site:        "https://example.com",
		GeneratedAt: time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
		Discovery: &discovery.Result{
			Sitemaps: []string{"https://example.com/sitemap.xml"},
			Source:   discovery.SourceRobots,
		},
		TotalEntries:      10,
		UniqueURLCount:    8,
		DuplicatesRemoved: 2,
		Summary: &risk.Summary{
			RiskURLCount:  2,
			CleanURLCount: 6,
			Findings: []risk.Finding{
				{URL: "https://example.com/admin", Category: "admin_paths", Severity: risk.SeverityHigh, Pattern: "admin-console"},
				{URL: "https://example.com/api?token=REDACTED", Category: "sensitive_params", Severity: risk.SeverityHigh, Pattern: "sensitive-query-param"},
			},
		},
		Groups: []risk.Group{
			{
				Category:       "admin_paths",
				Severity:       risk.SeverityHigh,
				Count:          1,
				Rationale:      "administrative surfaces are advertised",
				Recommendation: "gate admin paths",
				Samples:        []string{"https://example.com/admin"},
				URLs:           []string{"https://example.com/admin"},
			},
		},
		Timings: []pipeline.PhaseTiming{
			{Phase: pipeline.PhaseDiscovery, Duration: 120 * time.Millisecond},
		},
	}
}

func TestJSONLWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "findings.jsonl")
	writer, err := output.NewJSONLWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	report := sampleReport()
	if err := writer.WriteAll(report.Summary.Findings); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	var lines int
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var finding risk.Finding
		if err := json.Unmarshal(scanner.Bytes(), &finding); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", lines+1, err)
		}
		if finding.Category == "" || finding.Severity == "" {
			t.Fatalf("finding fields lost: %+v", finding)
		}
		lines++
	}
	if lines != 2 {
		t.Fatalf("expected 2 lines, got %d", lines)
	}
}

func TestConsoleRenderer(t *testing.T) {
	var buf bytes.Buffer
	output.NewConsoleRenderer(&buf).Render(sampleReport())
	text := buf.String()

	for _, want := range []string{
		"https://example.com",
		"admin_paths",
		"1 URLs",
		"gate admin paths",
		"8 (2 duplicates removed)",
		"discovery",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("console report missing %q:\n%s", want, text)
		}
	}
}

func TestConsoleRendererEmptyFindings(t *testing.T) {
	report := sampleReport()
	report.Groups = nil

	var buf bytes.Buffer
	output.NewConsoleRenderer(&buf).Render(report)
	if !strings.Contains(buf.String(), "no risk findings") {
		t.Fatalf("empty-findings marker missing:\n%s", buf.String())
	}
}

func TestRenderHTML(t *testing.T) {
	var buf bytes.Buffer
	if err := output.RenderHTML(&buf, sampleReport()); err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}
	html := buf.String()

	for _, want := range []string{
		"<!DOCTYPE html>",
		"https://example.com",
		"admin_paths",
		`class="badge high"`,
		"HIGH",
		"gate admin paths",
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("html report missing %q", want)
		}
	}
}

func TestWriteHTMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.html")
	if err := output.WriteHTMLFile(path, sampleReport()); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "sitemap-qa report") {
		t.Fatal("written file does not contain the report")
	}
}
