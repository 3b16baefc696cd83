// Package extract fetches discovered leaf sitemaps concurrently and decodes
// them into URL records, isolating per-sitemap failures.
package extract

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Akotliar/sitemap-qa-sub000/pkg/httpclient"
	"github.com/Akotliar/sitemap-qa-sub000/pkg/metrics"
	"github.com/Akotliar/sitemap-qa-sub000/pkg/sitemap"
)

// URLEntry is one <url> record attributed to its source sitemap.
type URLEntry struct {
	Loc         string
	LastMod     string
	ChangeFreq  string
	Priority    float64
	HasPriority bool
	Source      string
	ExtractedAt time.Time
}

// Result aggregates one extraction run.
type Result struct {
	Entries   []URLEntry
	Warnings  []sitemap.Warning
	Processed int
	Failed    int
	Errors    []string
}

// Progress receives a monotonic completed/total signal after each batch.
type Progress func(completed, total int)

// Config holds extraction tunables.
type Config struct {
	Concurrency int // batch size, default 10
}

// Pipeline extracts URL entries from leaf sitemaps in fixed-size batches.
type Pipeline struct {
	client   *httpclient.Client
	cfg      Config
	logger   *zap.Logger
	progress Progress
}

// NewPipeline creates a Pipeline.
func NewPipeline(client *httpclient.Client, cfg Config, logger *zap.Logger) *Pipeline {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{client: client, cfg: cfg, logger: logger}
}

// OnProgress registers the progress callback. The pipeline itself performs no
// progress I/O; presenters bind here.
func (p *Pipeline) OnProgress(fn Progress) { p.progress = fn }

type decoded struct {
	url string
	doc *sitemap.Document
	err error
}

// Extract processes sitemapURLs in batches of Concurrency. One fetch or
// decode failure never blocks or aborts sibling batch members.
func (p *Pipeline) Extract(ctx context.Context, sitemapURLs []string) *Result {
	result := &Result{}
	extractedAt := time.Now()
	total := len(sitemapURLs)
	completed := 0

	for start := 0; start < total; start += p.cfg.Concurrency {
		end := start + p.cfg.Concurrency
		if end > total {
			end = total
		}
		batch := sitemapURLs[start:end]

		for _, d := range p.decodeBatch(ctx, batch) {
			result.Processed++
			if d.err != nil {
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", d.url, d.err))
				p.logger.Warn("sitemap extraction failed", zap.String("url", d.url), zap.Error(d.err))
				continue
			}
			result.Warnings = append(result.Warnings, d.doc.Warnings...)
			for _, entry := range d.doc.Entries {
				if entry.Kind != sitemap.KindURL {
					continue
				}
				result.Entries = append(result.Entries, URLEntry{
					Loc:         entry.Loc,
					LastMod:     entry.LastMod,
					ChangeFreq:  entry.ChangeFreq,
					Priority:    entry.Priority,
					HasPriority: entry.HasPriority,
					Source:      d.url,
					ExtractedAt: extractedAt,
				})
			}
		}

		completed = end
		if p.progress != nil {
			p.progress(completed, total)
		}
	}

	metrics.URLEntriesTotal.Add(float64(len(result.Entries)))
	p.logger.Info("extraction complete",
		zap.Int("sitemaps", result.Processed),
		zap.Int("failed", result.Failed),
		zap.Int("entries", len(result.Entries)))
	return result
}

func (p *Pipeline) decodeBatch(ctx context.Context, batch []string) []decoded {
	results := make([]decoded, len(batch))
	var wg sync.WaitGroup
	for i, u := range batch {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			resp, err := p.client.Fetch(ctx, u)
			if err != nil {
				results[i] = decoded{url: u, err: err}
				return
			}
			doc, err := sitemap.DecodeBytes(resp.Body)
			results[i] = decoded{url: u, doc: doc, err: err}
		}(i, u)
	}
	wg.Wait()
	return results
}
