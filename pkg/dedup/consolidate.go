package dedup

import (
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"go.uber.org/zap"

	"github.com/Akotliar/sitemap-qa-sub000/pkg/extract"
)

// ConsolidatedURL is a URL entry after deduplication. Loc always carries the
// canonical string, never a member's raw form.
type ConsolidatedURL struct {
	Loc         string
	LastMod     string
	ChangeFreq  string
	Priority    float64
	HasPriority bool
	Sources     []string
}

// Result is the outcome of one consolidation pass. The dedup invariant holds
// over valid input: DuplicatesRemoved == (TotalInput - Invalid) - UniqueCount.
type Result struct {
	URLs              []ConsolidatedURL
	TotalInput        int
	Invalid           int
	UniqueCount       int
	DuplicatesRemoved int
}

// Consolidator groups URL entries by canonical form. The bloom filter is a
// negative-membership fast path in front of the exact index: a negative test
// proves the key is new, a positive one falls through to the map, so the
// result stays exact.
type Consolidator struct {
	normalizer *Normalizer
	seen       *bloom.BloomFilter
	logger     *zap.Logger
}

// NewConsolidator creates a Consolidator sized for expectedURLs entries.
func NewConsolidator(normalizer *Normalizer, expectedURLs uint, logger *zap.Logger) *Consolidator {
	if expectedURLs == 0 {
		expectedURLs = 1_000_000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consolidator{
		normalizer: normalizer,
		seen:       bloom.NewWithEstimates(expectedURLs, 0.01),
		logger:     logger,
	}
}

type group struct {
	rec        ConsolidatedURL
	freqCounts map[string]int
	freqOrder  []string
	lastMod    time.Time
	hasLastMod bool
}

// Consolidate merges entries per canonical URL: lastmod = most recent valid
// timestamp, priority = maximum, changefreq = most frequent (first seen wins
// ties), sources = ordered concatenation. First-seen input order is kept.
func (c *Consolidator) Consolidate(entries []extract.URLEntry) *Result {
	result := &Result{TotalInput: len(entries)}

	index := make(map[string]int)
	var groups []*group

	for _, entry := range entries {
		canonical, err := c.normalizer.Normalize(entry.Loc)
		if err != nil {
			result.Invalid++
			c.logger.Warn("skipping unparseable URL", zap.String("loc", entry.Loc), zap.Error(err))
			continue
		}

		key := []byte(canonical)
		var g *group
		if c.seen.Test(key) {
			if i, ok := index[canonical]; ok {
				g = groups[i]
			}
		}
		if g == nil {
			c.seen.Add(key)
			g = &group{
				rec:        ConsolidatedURL{Loc: canonical},
				freqCounts: make(map[string]int),
			}
			index[canonical] = len(groups)
			groups = append(groups, g)
		}
		mergeEntry(g, entry)
	}

	result.URLs = make([]ConsolidatedURL, 0, len(groups))
	for _, g := range groups {
		g.rec.ChangeFreq = pickChangeFreq(g)
		result.URLs = append(result.URLs, g.rec)
	}
	result.UniqueCount = len(result.URLs)
	result.DuplicatesRemoved = result.TotalInput - result.Invalid - result.UniqueCount

	c.logger.Info("consolidation complete",
		zap.Int("input", result.TotalInput),
		zap.Int("unique", result.UniqueCount),
		zap.Int("duplicates_removed", result.DuplicatesRemoved),
		zap.Int("invalid", result.Invalid))
	return result
}

func mergeEntry(g *group, entry extract.URLEntry) {
	if entry.LastMod != "" {
		if ts, ok := parseLastMod(entry.LastMod); ok {
			if !g.hasLastMod || ts.After(g.lastMod) {
				g.lastMod = ts
				g.hasLastMod = true
				g.rec.LastMod = entry.LastMod
			}
		} else if g.rec.LastMod == "" {
			// Keep an invalid stamp only until a valid one shows up.
			g.rec.LastMod = entry.LastMod
		}
	}

	if entry.HasPriority && (!g.rec.HasPriority || entry.Priority > g.rec.Priority) {
		g.rec.Priority = entry.Priority
		g.rec.HasPriority = true
	}

	if entry.ChangeFreq != "" {
		if g.freqCounts[entry.ChangeFreq] == 0 {
			g.freqOrder = append(g.freqOrder, entry.ChangeFreq)
		}
		g.freqCounts[entry.ChangeFreq]++
	}

	g.rec.Sources = append(g.rec.Sources, entry.Source)
}

// pickChangeFreq selects the most frequent value; first-seen wins ties.
func pickChangeFreq(g *group) string {
	best := ""
	bestCount := 0
	for _, freq := range g.freqOrder {
		if g.freqCounts[freq] > bestCount {
			best = freq
			bestCount = g.freqCounts[freq]
		}
	}
	return best
}

var lastModLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02",
}

func parseLastMod(value string) (time.Time, bool) {
	for _, layout := range lastModLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
