// Package discovery determines the set of leaf sitemap URLs for a root site:
// robots.txt directives, standard well-known paths, then recursive expansion
// of sitemap indices in bounded concurrent batches.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"

	"github.com/Akotliar/sitemap-qa-sub000/pkg/httpclient"
	"github.com/Akotliar/sitemap-qa-sub000/pkg/metrics"
	"github.com/Akotliar/sitemap-qa-sub000/pkg/sitemap"
)

// ErrNoSitemap is the terminal discovery failure: no sitemap was found by any
// strategy. Everything else is isolated per URL.
var ErrNoSitemap = errors.New("no sitemap found")

// Source names the strategy that produced the seed sitemaps.
type Source string

const (
	SourceRobots       Source = "robots-txt"
	SourceStandardPath Source = "standard-path"
	SourceNone         Source = "none"
)

// AccessIssue records a sitemap URL that exists but could not be read.
type AccessIssue struct {
	URL        string `json:"url"`
	StatusCode int    `json:"status_code"`
	Reason     string `json:"reason"`
}

// Result is the outcome of the discovery phase, immutable after return.
type Result struct {
	Sitemaps      []string
	Source        Source
	AccessIssues  []AccessIssue
	CanonicalHost string
	Processed     int
}

// Index-sniffing heuristic for malformed indices: sample the first few
// <url><loc> values of a urlset and treat the document as an index when most
// of them look like sitemaps. Best-effort; do not tune without a product
// decision.
const (
	indexSniffSample    = 5
	indexSniffThreshold = 0.5
)

var standardPaths = []string{
	"/sitemap.xml",
	"/sitemap_index.xml",
	"/sitemap-index.xml",
	"/sitemap.xml.gz",
	"/sitemap_index.xml.gz",
	"/sitemap-index.xml.gz",
}

// Config holds discovery tunables.
type Config struct {
	BatchSize   int // sitemap URLs fetched per expansion batch, default 50
	MaxSitemaps int // hard cap on processed sitemap URLs, default 1000
}

// Engine runs discovery for one root site per call.
type Engine struct {
	client    *httpclient.Client
	cfg       Config
	logger    *zap.Logger
	redirects redirectNote
}

// NewEngine creates an Engine.
func NewEngine(client *httpclient.Client, cfg Config, logger *zap.Logger) *Engine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxSitemaps <= 0 {
		cfg.MaxSitemaps = 1000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{client: client, cfg: cfg, logger: logger}
}

// Discover resolves site to its leaf sitemap URLs. Per-URL failures are
// isolated; only "zero sitemaps by any strategy" is returned as an error.
func (e *Engine) Discover(ctx context.Context, site string) (*Result, error) {
	base, err := baseOf(site)
	if err != nil {
		return nil, fmt.Errorf("invalid site url %q: %w", site, err)
	}
	e.redirects.mu.Lock()
	e.redirects.observed = false
	e.redirects.mu.Unlock()

	var issues []AccessIssue

	seeds, robotsIssues := e.probeRobots(ctx, base)
	issues = append(issues, robotsIssues...)
	source := SourceRobots

	if len(seeds) == 0 {
		var pathIssues []AccessIssue
		seeds, pathIssues = e.probeStandardPaths(ctx, base)
		issues = append(issues, pathIssues...)
		source = SourceStandardPath
	}

	if len(seeds) == 0 {
		result := &Result{Source: SourceNone, AccessIssues: issues}
		return result, fmt.Errorf("%w for %s", ErrNoSitemap, site)
	}

	result := e.expand(ctx, base, seeds, issues)
	result.Source = source
	if len(result.Sitemaps) == 0 {
		return result, fmt.Errorf("%w for %s", ErrNoSitemap, site)
	}
	// A successful crawl suppresses transient access issues.
	result.AccessIssues = nil
	return result, nil
}

// probeRobots extracts Sitemap: directives from /robots.txt.
func (e *Engine) probeRobots(ctx context.Context, base *url.URL) ([]string, []AccessIssue) {
	robotsURL := base.String() + "/robots.txt"
	resp, err := e.client.Fetch(ctx, robotsURL)
	if err != nil {
		issue := accessIssueOf(robotsURL, err)
		if issue != nil {
			return nil, []AccessIssue{*issue}
		}
		e.logger.Debug("robots.txt unavailable", zap.String("url", robotsURL), zap.Error(err))
		return nil, nil
	}

	var sitemaps []string
	for _, line := range strings.Split(string(resp.Body), "\n") {
		line = strings.TrimSpace(line)
		if len(line) < len("sitemap:") || !strings.EqualFold(line[:len("sitemap:")], "sitemap:") {
			continue
		}
		value := strings.TrimSpace(line[len("sitemap:"):])
		if u, err := url.Parse(value); err == nil && u.Scheme != "" && u.Host != "" {
			sitemaps = append(sitemaps, value)
		} else {
			e.logger.Warn("ignoring malformed Sitemap directive", zap.String("value", value))
		}
	}
	return sitemaps, nil
}

// probeStandardPaths concurrently probes the well-known sitemap locations and
// keeps the first success in canonical path order, so discovery stays
// deterministic when several paths answer 200.
func (e *Engine) probeStandardPaths(ctx context.Context, base *url.URL) ([]string, []AccessIssue) {
	type probe struct {
		url   string
		err   error
		found bool
	}
	results := make([]probe, len(standardPaths))

	var wg sync.WaitGroup
	for i, path := range standardPaths {
		wg.Add(1)
		go func(i int, candidate string) {
			defer wg.Done()
			_, err := e.client.Fetch(ctx, candidate)
			results[i] = probe{url: candidate, err: err, found: err == nil}
		}(i, base.String()+path)
	}
	wg.Wait()

	var issues []AccessIssue
	for _, r := range results {
		if r.found {
			return []string{r.url}, nil
		}
		if issue := accessIssueOf(r.url, r.err); issue != nil {
			issues = append(issues, *issue)
		}
	}
	return nil, issues
}

type fetched struct {
	url string
	doc *sitemap.Document
	err error
}

// expand processes the work queue in bounded batches. Each batch is awaited
// in full before its results fold into the queue and visited set, which gives
// per-batch atomicity even though intra-batch fetches run concurrently.
func (e *Engine) expand(ctx context.Context, base *url.URL, seeds []string, issues []AccessIssue) *Result {
	visited := mapset.NewSet[string]()
	queue := make([]string, 0, len(seeds))
	for _, s := range seeds {
		if visited.Add(s) {
			queue = append(queue, s)
		}
	}

	result := &Result{AccessIssues: issues}
	canonicalResolved := false

	for len(queue) > 0 && result.Processed < e.cfg.MaxSitemaps {
		size := e.cfg.BatchSize
		if size > len(queue) {
			size = len(queue)
		}
		if remaining := e.cfg.MaxSitemaps - result.Processed; size > remaining {
			size = remaining
		}
		batch := queue[:size]
		queue = queue[size:]

		for _, f := range e.fetchBatch(ctx, batch) {
			result.Processed++
			metrics.SitemapsProcessedTotal.Inc()

			if f.err != nil {
				if issue := accessIssueOf(f.url, f.err); issue != nil {
					result.AccessIssues = append(result.AccessIssues, *issue)
				}
				e.logger.Warn("sitemap fetch failed", zap.String("url", f.url), zap.Error(f.err))
				continue
			}

			children, isIndex := classifyDocument(f.doc)
			if isIndex {
				for _, child := range children {
					if visited.Add(child) {
						queue = append(queue, child)
					}
				}
				continue
			}
			result.Sitemaps = append(result.Sitemaps, f.url)
		}

		if !canonicalResolved {
			if host, ok := e.resolveCanonicalHost(ctx, base); ok {
				result.CanonicalHost = host
				canonicalResolved = true
			}
		}
	}

	if len(queue) > 0 {
		e.logger.Warn("sitemap cap reached, expansion halted",
			zap.Int("processed", result.Processed),
			zap.Int("pending", len(queue)))
	}
	return result
}

// fetchBatch fetches and decodes one batch concurrently, preserving input order.
func (e *Engine) fetchBatch(ctx context.Context, batch []string) []fetched {
	results := make([]fetched, len(batch))
	var wg sync.WaitGroup
	for i, u := range batch {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			resp, err := e.client.Fetch(ctx, u)
			if err != nil {
				results[i] = fetched{url: u, err: err}
				return
			}
			doc, err := sitemap.DecodeBytes(resp.Body)
			results[i] = fetched{url: u, doc: doc, err: err}
			if err == nil && resp.Redirected {
				e.noteRedirect(u, resp.FinalURL)
			}
		}(i, u)
	}
	wg.Wait()
	return results
}

// classifyDocument decides index-vs-leaf. A well-formed <sitemapindex> wins;
// otherwise a urlset whose first few locs are mostly sitemap-looking is
// treated as a malformed index and only the sitemap-looking locs become
// children, so an ordinary page sitemap is never misread as an index.
func classifyDocument(doc *sitemap.Document) ([]string, bool) {
	var refs, pages []string
	for _, entry := range doc.Entries {
		if entry.Kind == sitemap.KindSitemap {
			refs = append(refs, entry.Loc)
		} else {
			pages = append(pages, entry.Loc)
		}
	}
	if len(refs) > 0 {
		return refs, true
	}
	if doc.Index {
		// Empty well-formed index: not a leaf either.
		return nil, true
	}

	sample := pages
	if len(sample) > indexSniffSample {
		sample = sample[:indexSniffSample]
	}
	if len(sample) == 0 {
		return nil, false
	}
	hits := 0
	for _, loc := range sample {
		if looksLikeSitemap(loc) {
			hits++
		}
	}
	if float64(hits)/float64(len(sample)) > indexSniffThreshold {
		var children []string
		for _, loc := range pages {
			if looksLikeSitemap(loc) {
				children = append(children, loc)
			}
		}
		return children, true
	}
	return nil, false
}

func looksLikeSitemap(loc string) bool {
	l := strings.ToLower(loc)
	return strings.Contains(l, "sitemap") ||
		strings.HasSuffix(l, ".xml") ||
		strings.HasSuffix(l, ".xml.gz")
}

// redirect observations feed lazy canonical-host resolution.
type redirectNote struct {
	mu       sync.Mutex
	observed bool
}

func (e *Engine) noteRedirect(from, to string) {
	e.redirects.mu.Lock()
	defer e.redirects.mu.Unlock()
	if !e.redirects.observed {
		e.redirects.observed = true
		e.logger.Info("cross-host redirect observed", zap.String("from", from), zap.String("to", to))
	}
}

// resolveCanonicalHost probes the www/non-www variant of the base host once a
// redirect has been observed. Diagnostic only; URLs are never rewritten.
func (e *Engine) resolveCanonicalHost(ctx context.Context, base *url.URL) (string, bool) {
	e.redirects.mu.Lock()
	observed := e.redirects.observed
	e.redirects.mu.Unlock()
	if !observed {
		return "", false
	}

	host := base.Hostname()
	var variant string
	if strings.HasPrefix(host, "www.") {
		variant = strings.TrimPrefix(host, "www.")
	} else {
		variant = "www." + host
	}

	probeURL := base.Scheme + "://" + variant + "/"
	_, err := e.client.Fetch(ctx, probeURL)
	if err == nil {
		return variant, true
	}
	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == 404 {
		// Host exists even though the root path does not.
		return variant, true
	}
	return host, true
}

// accessIssueOf maps 401/403 responses to an AccessIssue, nil otherwise.
func accessIssueOf(u string, err error) *AccessIssue {
	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) && (httpErr.StatusCode == 401 || httpErr.StatusCode == 403) {
		reason := "forbidden"
		if httpErr.StatusCode == 401 {
			reason = "unauthorized"
		}
		return &AccessIssue{URL: u, StatusCode: httpErr.StatusCode, Reason: reason}
	}
	return nil
}

func baseOf(site string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSuffix(strings.TrimSpace(site), "/"))
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("missing scheme or host")
	}
	return &url.URL{Scheme: strings.ToLower(u.Scheme), Host: strings.ToLower(u.Host)}, nil
}
