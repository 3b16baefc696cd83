// Package pipeline runs the five stages in order, discovery, extraction,
// consolidation, classification and grouping, handing each stage the full
// output of the previous one.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Akotliar/sitemap-qa-sub000/pkg/dedup"
	"github.com/Akotliar/sitemap-qa-sub000/pkg/discovery"
	"github.com/Akotliar/sitemap-qa-sub000/pkg/extract"
	"github.com/Akotliar/sitemap-qa-sub000/pkg/risk"
)

// Phase names in execution order.
const (
	PhaseDiscovery      = "discovery"
	PhaseExtraction     = "extraction"
	PhaseConsolidation  = "consolidation"
	PhaseClassification = "classification"
	PhaseGrouping       = "grouping"
)

// Observer receives run lifecycle events. Presenters implement it; the
// pipeline itself performs no terminal I/O.
type Observer interface {
	PhaseStarted(phase string)
	PhaseCompleted(phase string, d time.Duration)
	Progress(phase string, completed, total int)
}

// PhaseTiming records one stage's wall time.
type PhaseTiming struct {
	Phase    string        `json:"phase"`
	Duration time.Duration `json:"duration"`
}

// Report is the immutable result of one full run.
type Report struct {
	Site              string
	GeneratedAt       time.Time
	Discovery         *discovery.Result
	TotalEntries      int
	ExtractionFailed  int
	ExtractionErrors  []string
	UniqueURLCount    int
	DuplicatesRemoved int
	InvalidURLs       int
	Summary           *risk.Summary
	Groups            []risk.Group
	Timings           []PhaseTiming
}

// Config holds the grouping bound; stage tunables live with the stages.
type Config struct {
	SampleSize int
}

// Pipeline wires the stage implementations together.
type Pipeline struct {
	engine       *discovery.Engine
	extractor    *extract.Pipeline
	consolidator *dedup.Consolidator
	classifier   *risk.Classifier
	cfg          Config
	logger       *zap.Logger
	observer     Observer
}

// New creates a Pipeline from already-configured stages.
func New(engine *discovery.Engine, extractor *extract.Pipeline, consolidator *dedup.Consolidator,
	classifier *risk.Classifier, cfg Config, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		engine:       engine,
		extractor:    extractor,
		consolidator: consolidator,
		classifier:   classifier,
		cfg:          cfg,
		logger:       logger,
	}
}

// SetObserver registers the lifecycle observer and binds extraction progress
// to it.
func (p *Pipeline) SetObserver(obs Observer) {
	p.observer = obs
	p.extractor.OnProgress(func(completed, total int) {
		obs.Progress(PhaseExtraction, completed, total)
	})
}

// Run executes all stages for site. A discovery failure aborts the run; later
// stages report partial failures inside the Report instead. Cancellation is
// checked between stages.
func (p *Pipeline) Run(ctx context.Context, site string) (*Report, error) {
	report := &Report{Site: site, GeneratedAt: time.Now()}

	disc, err := runPhase(p, PhaseDiscovery, report, func() (*discovery.Result, error) {
		return p.engine.Discover(ctx, site)
	})
	report.Discovery = disc
	if err != nil {
		return report, err
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	extracted, _ := runPhase(p, PhaseExtraction, report, func() (*extract.Result, error) {
		return p.extractor.Extract(ctx, disc.Sitemaps), nil
	})
	report.TotalEntries = len(extracted.Entries)
	report.ExtractionFailed = extracted.Failed
	report.ExtractionErrors = extracted.Errors
	if err := ctx.Err(); err != nil {
		return report, err
	}

	consolidated, _ := runPhase(p, PhaseConsolidation, report, func() (*dedup.Result, error) {
		return p.consolidator.Consolidate(extracted.Entries), nil
	})
	report.UniqueURLCount = consolidated.UniqueCount
	report.DuplicatesRemoved = consolidated.DuplicatesRemoved
	report.InvalidURLs = consolidated.Invalid
	if err := ctx.Err(); err != nil {
		return report, err
	}

	urls := make([]string, 0, len(consolidated.URLs))
	for _, u := range consolidated.URLs {
		urls = append(urls, u.Loc)
	}
	summary, err := runPhase(p, PhaseClassification, report, func() (*risk.Summary, error) {
		return p.classifier.Detect(ctx, urls, site)
	})
	if err != nil {
		return report, err
	}
	report.Summary = summary

	groups, _ := runPhase(p, PhaseGrouping, report, func() ([]risk.Group, error) {
		return risk.BuildGroups(summary.Findings, p.cfg.SampleSize), nil
	})
	report.Groups = groups

	p.logger.Info("run complete",
		zap.String("site", site),
		zap.Int("sitemaps", len(disc.Sitemaps)),
		zap.Int("unique_urls", report.UniqueURLCount),
		zap.Int("findings", len(summary.Findings)))
	return report, nil
}

// runPhase wraps one stage with observer notifications and timing capture.
func runPhase[T any](p *Pipeline, phase string, report *Report, fn func() (T, error)) (T, error) {
	if p.observer != nil {
		p.observer.PhaseStarted(phase)
	}
	start := time.Now()
	out, err := fn()
	elapsed := time.Since(start)
	report.Timings = append(report.Timings, PhaseTiming{Phase: phase, Duration: elapsed})
	if p.observer != nil {
		p.observer.PhaseCompleted(phase, elapsed)
	}
	return out, err
}
