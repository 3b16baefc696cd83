package sitemap_test

import (
	"bytes"
	"compress/gzip"
	"errors"
	"strings"
	"testing"

	"github.com/Akotliar/sitemap-qa-sub000/pkg/sitemap"
)

const urlsetDoc = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url>
    <loc>https://example.com/</loc>
    <lastmod>2024-06-01</lastmod>
    <changefreq>daily</changefreq>
    <priority>0.8</priority>
  </url>
  <url>
    <loc>https://example.com/about</loc>
  </url>
  <url>
    <lastmod>2024-01-01</lastmod>
  </url>
</urlset>`

func TestDecodeURLSet(t *testing.T) {
	doc, err := sitemap.DecodeBytes([]byte(urlsetDoc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Index {
		t.Fatalf("urlset must not be flagged as index")
	}
	if len(doc.Entries) != 2 {
		t.Fatalf("expected 2 entries (loc-less record skipped), got %d", len(doc.Entries))
	}
	first := doc.Entries[0]
	if first.Kind != sitemap.KindURL || first.Loc != "https://example.com/" {
		t.Fatalf("unexpected first entry: %+v", first)
	}
	if first.LastMod != "2024-06-01" || first.ChangeFreq != "daily" {
		t.Fatalf("metadata not decoded: %+v", first)
	}
	if !first.HasPriority || first.Priority != 0.8 {
		t.Fatalf("priority not decoded: %+v", first)
	}
}

func TestDecodeSitemapIndex(t *testing.T) {
	doc, err := sitemap.DecodeBytes([]byte(`<sitemapindex>
  <sitemap><loc>https://example.com/sitemap-a.xml</loc></sitemap>
  <sitemap><loc>https://example.com/sitemap-b.xml</loc></sitemap>
</sitemapindex>`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !doc.Index {
		t.Fatalf("sitemapindex root not detected")
	}
	if len(doc.Entries) != 2 {
		t.Fatalf("expected 2 references, got %d", len(doc.Entries))
	}
	for _, entry := range doc.Entries {
		if entry.Kind != sitemap.KindSitemap {
			t.Fatalf("expected sitemap kind, got %q", entry.Kind)
		}
	}
}

func TestDecodeNamespacePrefixedTags(t *testing.T) {
	doc, err := sitemap.DecodeBytes([]byte(`<sm:urlset xmlns:sm="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sm:url><sm:loc>https://example.com/page</sm:loc></sm:url>
</sm:urlset>`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Entries) != 1 || doc.Entries[0].Loc != "https://example.com/page" {
		t.Fatalf("namespace-prefixed document not decoded: %+v", doc.Entries)
	}
}

func TestDecodeGzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write([]byte(urlsetDoc))
	zw.Close()

	doc, err := sitemap.DecodeBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Entries) != 2 {
		t.Fatalf("expected 2 entries from gzip document, got %d", len(doc.Entries))
	}
	if !strings.Contains(doc.Raw, "<urlset") {
		t.Fatalf("Raw must carry decompressed text")
	}
}

func TestDecodeCorruptGzipIsHardFailure(t *testing.T) {
	payload := append([]byte{0x1f, 0x8b}, []byte("definitely not a gzip stream")...)
	_, err := sitemap.DecodeBytes(payload)
	if !errors.Is(err, sitemap.ErrDecompression) {
		t.Fatalf("expected ErrDecompression, got %v", err)
	}
}

func TestDecodeStream(t *testing.T) {
	doc, err := sitemap.Decode(strings.NewReader(urlsetDoc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(doc.Entries))
	}
}

func TestDecodePriorityClampWarns(t *testing.T) {
	doc, err := sitemap.DecodeBytes([]byte(`<urlset>
  <url><loc>https://example.com/a</loc><priority>3.5</priority></url>
  <url><loc>https://example.com/b</loc><priority>-1</priority></url>
</urlset>`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Entries[0].Priority != 1 || doc.Entries[1].Priority != 0 {
		t.Fatalf("priorities not clamped: %+v", doc.Entries)
	}
	if len(doc.Warnings) != 2 {
		t.Fatalf("clamps must be reported as warnings, got %+v", doc.Warnings)
	}
}

func TestDecodeInvalidChangeFreqDropped(t *testing.T) {
	doc, err := sitemap.DecodeBytes([]byte(`<urlset>
  <url><loc>https://example.com/a</loc><changefreq>fortnightly</changefreq></url>
</urlset>`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Entries[0].ChangeFreq != "" {
		t.Fatalf("invalid changefreq must be dropped, got %q", doc.Entries[0].ChangeFreq)
	}
	if len(doc.Warnings) != 1 {
		t.Fatalf("drop must be reported as a warning")
	}
}

func TestDecodeUnrecognizedDocument(t *testing.T) {
	doc, err := sitemap.DecodeBytes([]byte(`<html><body><a href="/x">x</a></body></html>`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Entries) != 0 {
		t.Fatalf("non-sitemap document must yield zero entries, got %d", len(doc.Entries))
	}
}
