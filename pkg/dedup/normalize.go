// Package dedup normalizes URLs to a canonical form and merges duplicate
// entries with deterministic precedence rules.
package dedup

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/idna"
)

// NormalizeConfig controls optional normalization steps.
type NormalizeConfig struct {
	StripWWW        bool
	UpgradeHTTP     bool // http→https only when explicitly enabled
	LowercasePath   bool // paths are case-sensitive by convention, default off
	KeepFragment    bool
	BlacklistParams []string
}

// Normalizer builds canonical URL strings. Normalize is idempotent.
type Normalizer struct {
	cfg       NormalizeConfig
	blacklist map[string]bool
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(cfg NormalizeConfig) *Normalizer {
	blacklist := make(map[string]bool, len(cfg.BlacklistParams))
	for _, p := range cfg.BlacklistParams {
		blacklist[p] = true
	}
	return &Normalizer{cfg: cfg, blacklist: blacklist}
}

// Normalize returns the canonical form of raw, applying in order: host
// lowering (+ optional www strip), Punycode conversion, optional scheme
// upgrade, default-port strip, unreserved-only percent-decoding of the path,
// trailing-slash strip (except root), query cleanup with lexicographic key
// sort, and fragment drop.
func (n *Normalizer) Normalize(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("not an absolute URL: %q", raw)
	}

	scheme := strings.ToLower(u.Scheme)
	if n.cfg.UpgradeHTTP && scheme == "http" {
		scheme = "https"
	}

	host := strings.ToLower(u.Hostname())
	if n.cfg.StripWWW {
		host = strings.TrimPrefix(host, "www.")
	}
	if ascii, err := idna.ToASCII(host); err == nil && ascii != "" {
		host = ascii
	}
	if port := u.Port(); port != "" && !isDefaultPort(scheme, port) {
		host += ":" + port
	}

	path := decodeUnreserved(u.EscapedPath())
	if n.cfg.LowercasePath {
		path = strings.ToLower(path)
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	if path == "" {
		path = "/"
	}

	canonical := scheme + "://" + host + path
	if query := n.normalizeQuery(u.Query()); query != "" {
		canonical += "?" + query
	}
	if n.cfg.KeepFragment && u.Fragment != "" {
		canonical += "#" + u.Fragment
	}
	return canonical, nil
}

// normalizeQuery removes empty-valued and blacklisted parameters and sorts
// the remainder lexicographically by key.
func (n *Normalizer) normalizeQuery(values url.Values) string {
	cleaned := url.Values{}
	for key, vals := range values {
		if n.blacklist[key] {
			continue
		}
		for _, v := range vals {
			if v == "" {
				continue
			}
			cleaned.Add(key, v)
		}
	}
	for key := range cleaned {
		sort.Strings(cleaned[key])
	}
	return cleaned.Encode() // Encode sorts by key
}

func isDefaultPort(scheme, port string) bool {
	return (scheme == "http" && port == "80") || (scheme == "https" && port == "443")
}

// decodeUnreserved percent-decodes only unreserved characters, leaving
// reserved ones encoded; hex digits of surviving escapes are upper-cased so
// the result is stable under re-normalization.
func decodeUnreserved(p string) string {
	var b strings.Builder
	b.Grow(len(p))
	for i := 0; i < len(p); i++ {
		if p[i] == '%' && i+2 < len(p) {
			if v, err := strconv.ParseUint(p[i+1:i+3], 16, 8); err == nil {
				c := byte(v)
				if isUnreserved(c) {
					b.WriteByte(c)
				} else {
					b.WriteByte('%')
					b.WriteString(strings.ToUpper(p[i+1 : i+3]))
				}
				i += 2
				continue
			}
		}
		b.WriteByte(p[i])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') ||
		(c >= '0' && c <= '9') || c == '-' || c == '_' || c == '.' || c == '~'
}
