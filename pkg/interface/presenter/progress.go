package presenter

import (
	"os"
	"sync"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/Akotliar/sitemap-qa-sub000/pkg/pipeline"
)

// ProgressBar is the plain-mode presenter: one mpb bar tracking extraction,
// phase transitions logged as bar captions. Implements pipeline.Observer.
type ProgressBar struct {
	container *mpb.Progress
	bar       *mpb.Bar
	mu        sync.Mutex
	current   string
}

// NewProgressBar creates a progress presenter writing to stderr.
func NewProgressBar() *ProgressBar {
	return &ProgressBar{
		container: mpb.New(
			mpb.WithOutput(os.Stderr),
			mpb.WithRefreshRate(120*time.Millisecond),
		),
	}
}

// PhaseStarted implements pipeline.Observer
func (p *ProgressBar) PhaseStarted(phase string) {
	p.mu.Lock()
	p.current = phase
	p.mu.Unlock()
}

// PhaseCompleted implements pipeline.Observer
func (p *ProgressBar) PhaseCompleted(phase string, _ time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if phase == pipeline.PhaseExtraction && p.bar != nil && !p.bar.Completed() {
		p.bar.SetTotal(-1, true)
	}
}

// Progress implements pipeline.Observer
func (p *ProgressBar) Progress(phase string, completed, total int) {
	if phase != pipeline.PhaseExtraction {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil {
		p.bar = p.container.AddBar(int64(total),
			mpb.PrependDecorators(
				decor.Name("extracting "),
				decor.CountersNoUnit("%d / %d"),
			),
			mpb.AppendDecorators(
				decor.Percentage(),
			),
		)
	}
	p.bar.SetCurrent(int64(completed))
}

// Wait blocks until the bar has flushed its final state.
func (p *ProgressBar) Wait() {
	p.mu.Lock()
	bar := p.bar
	p.mu.Unlock()
	if bar != nil {
		p.container.Wait()
	}
}
