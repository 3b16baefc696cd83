// Package sitemap decodes sitemap and sitemap-index XML documents, with
// transparent gzip handling and lenient, token-level parsing.
package sitemap

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrDecompression means the document carried the gzip magic prefix but the
// payload could not be decompressed. Terminal for that one document.
var ErrDecompression = errors.New("failed to decompress")

// EntryKind discriminates index references from page records.
type EntryKind string

const (
	KindSitemap EntryKind = "sitemap"
	KindURL     EntryKind = "url"
)

// Entry is one <sitemap> or <url> record.
type Entry struct {
	Kind        EntryKind
	Loc         string
	LastMod     string
	ChangeFreq  string
	Priority    float64
	HasPriority bool
}

// Warning records a non-fatal parse problem; processing continues.
type Warning struct {
	Loc     string
	Message string
}

// Document is the decoded form of one sitemap document. Raw carries the fully
// decompressed text so discovery can sniff index-vs-leaf without re-fetching.
type Document struct {
	Entries  []Entry
	Raw      string
	Index    bool // root element was <sitemapindex>
	Warnings []Warning
}

var validChangeFreq = map[string]bool{
	"always": true, "hourly": true, "daily": true, "weekly": true,
	"monthly": true, "yearly": true, "never": true,
}

// DecodeBytes decodes a possibly gzip-compressed sitemap document.
func DecodeBytes(data []byte) (*Document, error) {
	if len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b {
		gzr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
		}
		decompressed, err := io.ReadAll(gzr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
		}
		data = decompressed
	}
	return parse(data), nil
}

// Decode decodes from a byte stream, consuming it exactly once.
func Decode(r io.Reader) (*Document, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gzr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
		}
		data, err := io.ReadAll(gzr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
		}
		return parse(data), nil
	}
	data, err := io.ReadAll(br)
	if err != nil {
		return nil, err
	}
	return parse(data), nil
}

// parse walks the token stream. Unknown tags are ignored; records without a
// non-empty <loc> are skipped; a document matching neither urlset nor
// sitemapindex yields zero entries.
func parse(data []byte) *Document {
	doc := &Document{Raw: string(data)}

	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false

	rootSeen := false
	for {
		tok, err := dec.Token()
		if err != nil {
			// Malformed tail: keep whatever decoded cleanly.
			break
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch strings.ToLower(start.Name.Local) {
		case "urlset":
			rootSeen = true
		case "sitemapindex":
			rootSeen = true
			doc.Index = true
		case "url":
			if rootSeen {
				decodeRecord(dec, KindURL, doc)
			}
		case "sitemap":
			if rootSeen {
				decodeRecord(dec, KindSitemap, doc)
			}
		}
	}
	return doc
}

func decodeRecord(dec *xml.Decoder, kind EntryKind, doc *Document) {
	entry := Entry{Kind: kind}
	var pending []string
	field := ""
	depth := 0 // nesting below the record element; fields are read at depth 1 only

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 {
				field = strings.ToLower(t.Name.Local)
			} else {
				field = ""
			}
		case xml.CharData:
			text := strings.TrimSpace(string(t))
			if text == "" {
				continue
			}
			switch field {
			case "loc":
				entry.Loc += text
			case "lastmod":
				entry.LastMod = text
			case "changefreq":
				freq := strings.ToLower(text)
				if validChangeFreq[freq] {
					entry.ChangeFreq = freq
				} else {
					pending = append(pending, fmt.Sprintf("invalid changefreq %q dropped", text))
				}
			case "priority":
				value, err := strconv.ParseFloat(text, 64)
				if err != nil {
					pending = append(pending, fmt.Sprintf("invalid priority %q ignored", text))
					continue
				}
				if value < 0 || value > 1 {
					pending = append(pending, fmt.Sprintf("priority %s clamped to [0,1]", text))
					value = clamp(value)
				}
				entry.Priority = value
				entry.HasPriority = true
			}
		case xml.EndElement:
			if depth == 0 {
				// Closing tag of the record itself.
				for _, msg := range pending {
					doc.Warnings = append(doc.Warnings, Warning{Loc: entry.Loc, Message: msg})
				}
				if entry.Loc != "" {
					doc.Entries = append(doc.Entries, entry)
				}
				return
			}
			depth--
			field = ""
		}
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
