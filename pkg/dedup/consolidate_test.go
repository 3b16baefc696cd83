package dedup_test

import (
	"testing"

	"github.com/Akotliar/sitemap-qa-sub000/pkg/dedup"
	"github.com/Akotliar/sitemap-qa-sub000/pkg/extract"
)

func newConsolidator() *dedup.Consolidator {
	n := dedup.NewNormalizer(dedup.NormalizeConfig{
		StripWWW:        true,
		BlacklistParams: []string{"utm_source"},
	})
	return dedup.NewConsolidator(n, 1000, nil)
}

func TestConsolidateMergesDuplicates(t *testing.T) {
	entries := []extract.URLEntry{
		{Loc: "https://www.example.com/page?utm_source=mail", LastMod: "2024-01-15", ChangeFreq: "daily", Priority: 0.5, HasPriority: true, Source: "sitemap-a.xml"},
		{Loc: "https://example.com/page/", LastMod: "2024-06-01", ChangeFreq: "weekly", Priority: 0.8, HasPriority: true, Source: "sitemap-b.xml"},
		{Loc: "https://EXAMPLE.com/page", ChangeFreq: "daily", Source: "sitemap-c.xml"},
		{Loc: "https://example.com/other", Source: "sitemap-a.xml"},
	}

	result := newConsolidator().Consolidate(entries)

	if result.TotalInput != 4 || result.UniqueCount != 2 || result.DuplicatesRemoved != 2 {
		t.Fatalf("unexpected counts: %+v", result)
	}

	merged := result.URLs[0]
	if merged.Loc != "https://example.com/page" {
		t.Fatalf("merged loc must be canonical, got %q", merged.Loc)
	}
	if merged.LastMod != "2024-06-01" {
		t.Fatalf("lastmod must be the most recent, got %q", merged.LastMod)
	}
	if !merged.HasPriority || merged.Priority != 0.8 {
		t.Fatalf("priority must be the maximum, got %+v", merged)
	}
	if merged.ChangeFreq != "daily" {
		t.Fatalf("changefreq must be the most frequent, got %q", merged.ChangeFreq)
	}
	want := []string{"sitemap-a.xml", "sitemap-b.xml", "sitemap-c.xml"}
	if len(merged.Sources) != len(want) {
		t.Fatalf("sources must concatenate in order, got %v", merged.Sources)
	}
	for i, s := range want {
		if merged.Sources[i] != s {
			t.Fatalf("sources[%d] = %q, want %q", i, merged.Sources[i], s)
		}
	}
}

func TestConsolidateFirstSeenOrder(t *testing.T) {
	entries := []extract.URLEntry{
		{Loc: "https://example.com/c", Source: "s"},
		{Loc: "https://example.com/a", Source: "s"},
		{Loc: "https://example.com/c/", Source: "s"},
		{Loc: "https://example.com/b", Source: "s"},
	}

	result := newConsolidator().Consolidate(entries)
	want := []string{"https://example.com/c", "https://example.com/a", "https://example.com/b"}
	if len(result.URLs) != len(want) {
		t.Fatalf("expected %d unique URLs, got %d", len(want), len(result.URLs))
	}
	for i, w := range want {
		if result.URLs[i].Loc != w {
			t.Fatalf("output order broken at %d: got %q, want %q", i, result.URLs[i].Loc, w)
		}
	}
}

func TestConsolidateChangeFreqTieBreak(t *testing.T) {
	entries := []extract.URLEntry{
		{Loc: "https://example.com/p", ChangeFreq: "weekly", Source: "s"},
		{Loc: "https://example.com/p", ChangeFreq: "daily", Source: "s"},
	}
	result := newConsolidator().Consolidate(entries)
	if result.URLs[0].ChangeFreq != "weekly" {
		t.Fatalf("tie must fall to first seen, got %q", result.URLs[0].ChangeFreq)
	}
}

func TestConsolidateSkipsInvalidURLs(t *testing.T) {
	entries := []extract.URLEntry{
		{Loc: "https://example.com/ok", Source: "s"},
		{Loc: "not a url at all\x7f", Source: "s"},
		{Loc: "/relative/path", Source: "s"},
	}
	result := newConsolidator().Consolidate(entries)
	if result.Invalid != 2 {
		t.Fatalf("expected 2 invalid entries, got %d", result.Invalid)
	}
	if result.UniqueCount != 1 || result.DuplicatesRemoved != 0 {
		t.Fatalf("dedup accounting broken: %+v", result)
	}
}

func TestConsolidateLastModAcrossLayouts(t *testing.T) {
	entries := []extract.URLEntry{
		{Loc: "https://example.com/p", LastMod: "2024-05-01T10:00:00Z", Source: "s"},
		{Loc: "https://example.com/p", LastMod: "2024-06-01", Source: "s"},
		{Loc: "https://example.com/p", LastMod: "definitely-not-a-date", Source: "s"},
	}
	result := newConsolidator().Consolidate(entries)
	if result.URLs[0].LastMod != "2024-06-01" {
		t.Fatalf("expected newest valid lastmod, got %q", result.URLs[0].LastMod)
	}
}
