package output

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"strings"

	"github.com/Akotliar/sitemap-qa-sub000/pkg/pipeline"
	"github.com/Akotliar/sitemap-qa-sub000/pkg/risk"
)

// WriteHTMLFile renders the report to path as a standalone page.
func WriteHTMLFile(path string, report *pipeline.Report) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create html report: %w", err)
	}
	defer file.Close()
	return RenderHTML(file, report)
}

// RenderHTML writes the HTML report to w.
func RenderHTML(w io.Writer, report *pipeline.Report) error {
	return htmlTemplate.Execute(w, report)
}

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"upper": func(s risk.Severity) string { return strings.ToUpper(string(s)) },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>sitemap-qa report - {{.Site}}</title>
<style>
  body { font-family: -apple-system, "Segoe UI", sans-serif; margin: 2rem auto; max-width: 960px; color: #222; }
  h1 { font-size: 1.4rem; }
  h2 { font-size: 1.1rem; border-bottom: 1px solid #ddd; padding-bottom: 0.3rem; }
  table { border-collapse: collapse; width: 100%; margin: 1rem 0; }
  th, td { text-align: left; padding: 0.4rem 0.6rem; border-bottom: 1px solid #eee; font-size: 0.9rem; }
  .badge { display: inline-block; padding: 0.1rem 0.5rem; border-radius: 3px; font-size: 0.75rem; font-weight: 600; color: #fff; }
  .badge.high { background: #d64545; }
  .badge.medium { background: #d69b45; }
  .badge.low { background: #45a3d6; }
  .muted { color: #888; font-size: 0.85rem; }
  ul.samples { margin: 0.3rem 0; padding-left: 1.2rem; }
  ul.samples li { font-family: monospace; font-size: 0.8rem; word-break: break-all; }
</style>
</head>
<body>
<h1>sitemap-qa report</h1>
<p>{{.Site}} <span class="muted">generated {{.GeneratedAt.Format "2006-01-02 15:04:05 MST"}}</span></p>

<h2>Overview</h2>
<table>
  {{with .Discovery}}
  <tr><td>Sitemaps found</td><td>{{len .Sitemaps}} (via {{.Source}})</td></tr>
  {{if .CanonicalHost}}<tr><td>Canonical host</td><td>{{.CanonicalHost}}</td></tr>{{end}}
  {{end}}
  <tr><td>URL entries</td><td>{{.TotalEntries}}</td></tr>
  <tr><td>Unique URLs</td><td>{{.UniqueURLCount}} ({{.DuplicatesRemoved}} duplicates removed)</td></tr>
  {{if .ExtractionFailed}}<tr><td>Failed sitemaps</td><td>{{.ExtractionFailed}}</td></tr>{{end}}
  {{with .Summary}}
  <tr><td>URLs with findings</td><td>{{.RiskURLCount}}</td></tr>
  {{end}}
</table>

<h2>Findings</h2>
{{if .Groups}}
{{range .Groups}}
<h3><span class="badge {{.Severity}}">{{upper .Severity}}</span> {{.Category}} <span class="muted">{{.Count}} URLs</span></h3>
<p>{{.Rationale}}</p>
{{if .Recommendation}}<p class="muted">{{.Recommendation}}</p>{{end}}
<ul class="samples">
{{range .Samples}}<li>{{.}}</li>
{{end}}</ul>
{{if gt .Count (len .Samples)}}<p class="muted">... and more</p>{{end}}
{{end}}
{{else}}
<p class="muted">No risk findings.</p>
{{end}}

{{if .Discovery}}{{if .Discovery.AccessIssues}}
<h2>Access issues</h2>
<table>
<tr><th>Status</th><th>URL</th><th>Reason</th></tr>
{{range .Discovery.AccessIssues}}
<tr><td>{{.StatusCode}}</td><td>{{.URL}}</td><td>{{.Reason}}</td></tr>
{{end}}
</table>
{{end}}{{end}}

<h2>Timings</h2>
<table>
{{range .Timings}}<tr><td>{{.Phase}}</td><td>{{.Duration}}</td></tr>
{{end}}</table>
</body>
</html>
`))
