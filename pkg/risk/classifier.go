package risk

import (
	"context"
	"fmt"
	"regexp"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/Akotliar/sitemap-qa-sub000/pkg/metrics"
)

// Finding is one pattern match against one URL. URL is already sanitized for
// sensitive-parameter matches.
type Finding struct {
	URL       string   `json:"url"`
	Category  string   `json:"category"`
	Severity  Severity `json:"severity"`
	Pattern   string   `json:"pattern"`
	Rationale string   `json:"rationale"`
	Matched   string   `json:"matched"`
}

// Summary aggregates one classification run.
type Summary struct {
	Findings       []Finding
	RiskURLCount   int
	CleanURLCount  int
	SeverityCounts map[Severity]int
}

// Config holds classifier tunables and run-specific rule inputs.
type Config struct {
	BatchSize         int // default 10000
	Concurrency       int // default max(NumCPU-1, 2)
	Policies          []PolicyPattern
	AcceptedPatterns  []string
	AllowedSubdomains []string
}

// Classifier evaluates URLs against the combined pattern table in batches.
type Classifier struct {
	cfg      Config
	accepted []*regexp.Regexp
	user     []Pattern
	logger   *zap.Logger
}

// NewClassifier compiles user policies and accepted patterns up front so a
// bad expression fails the run before any URL is touched.
func NewClassifier(cfg Config, logger *zap.Logger) (*Classifier, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10000
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.NumCPU() - 1
		if cfg.Concurrency < 2 {
			cfg.Concurrency = 2
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	accepted := make([]*regexp.Regexp, 0, len(cfg.AcceptedPatterns))
	for _, expr := range cfg.AcceptedPatterns {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("accepted pattern %q: %w", expr, err)
		}
		accepted = append(accepted, re)
	}

	user, err := CompilePolicies(cfg.Policies)
	if err != nil {
		return nil, err
	}

	return &Classifier{cfg: cfg, accepted: accepted, user: user, logger: logger}, nil
}

// Detect classifies urls against the built-in table, the per-run derived
// patterns and the user policies. Batches run on a bounded worker pool and
// their results are concatenated in batch order, so the output is identical
// to a sequential run.
func (c *Classifier) Detect(ctx context.Context, urls []string, baseURL string) (*Summary, error) {
	patterns := BuiltinPatterns()
	if mismatch, err := DomainMismatchPattern(baseURL, c.cfg.AllowedSubdomains); err == nil {
		patterns = append(patterns, mismatch)
	} else {
		c.logger.Warn("domain mismatch checks disabled", zap.Error(err))
	}
	if proto, ok := ProtocolInconsistencyPattern(baseURL); ok {
		patterns = append(patterns, proto)
	}
	patterns = append(patterns, c.user...)

	batches := chunk(urls, c.cfg.BatchSize)
	results := make([][]Finding, len(batches))

	sem := make(chan struct{}, c.cfg.Concurrency)
	var wg sync.WaitGroup
	for i, batch := range batches {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, batch []string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = classifyBatch(batch, patterns, c.accepted)
		}(i, batch)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary := &Summary{SeverityCounts: make(map[Severity]int)}
	riskURLs := make(map[string]bool)
	for _, findings := range results {
		for _, f := range findings {
			summary.Findings = append(summary.Findings, f)
			summary.SeverityCounts[f.Severity]++
			riskURLs[f.URL] = true
			metrics.FindingsTotal.WithLabelValues(string(f.Severity)).Inc()
		}
	}
	summary.RiskURLCount = len(riskURLs)
	summary.CleanURLCount = len(urls) - summary.RiskURLCount

	c.logger.Info("classification complete",
		zap.Int("urls", len(urls)),
		zap.Int("findings", len(summary.Findings)),
		zap.Int("risk_urls", summary.RiskURLCount),
		zap.Int("high", summary.SeverityCounts[SeverityHigh]),
		zap.Int("medium", summary.SeverityCounts[SeverityMedium]),
		zap.Int("low", summary.SeverityCounts[SeverityLow]))
	return summary, nil
}

func classifyBatch(urls []string, patterns []Pattern, accepted []*regexp.Regexp) []Finding {
	var findings []Finding
	for _, rawURL := range urls {
		if isAccepted(rawURL, accepted) {
			continue
		}
		for _, pattern := range patterns {
			matched, ok := pattern.Matches(rawURL)
			if !ok {
				continue
			}
			reported := rawURL
			if sensitiveParamRe.MatchString(rawURL) {
				reported = Redact(rawURL)
				if pattern.Category == CategorySensitiveParams {
					matched = Redact(matched)
				}
			}
			findings = append(findings, Finding{
				URL:       reported,
				Category:  pattern.Category,
				Severity:  pattern.Severity,
				Pattern:   pattern.Name,
				Rationale: pattern.Rationale,
				Matched:   matched,
			})
		}
	}
	return findings
}

func isAccepted(rawURL string, accepted []*regexp.Regexp) bool {
	for _, re := range accepted {
		if re.MatchString(rawURL) {
			return true
		}
	}
	return false
}

func chunk(urls []string, size int) [][]string {
	var batches [][]string
	for start := 0; start < len(urls); start += size {
		end := start + size
		if end > len(urls) {
			end = len(urls)
		}
		batches = append(batches, urls[start:end])
	}
	return batches
}
