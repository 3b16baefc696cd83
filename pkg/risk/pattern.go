// Package risk classifies URLs against a pattern table of security and QA
// risk categories and groups the resulting findings by severity.
package risk

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Severity of a pattern or finding.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Rank orders severities for sorting; higher is more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Kind selects the matching strategy of a Pattern.
type Kind string

const (
	KindLiteral Kind = "literal" // case-sensitive substring
	KindGlob    Kind = "glob"    // evaluated as a contains match
	KindRegex   Kind = "regex"   // case-insensitive regular expression

	// kindHostAllow flags URLs whose host is outside an allow-list. Used
	// internally for the per-run domain mismatch pattern.
	kindHostAllow Kind = "host-allow"
)

// Pattern is one immutable matching rule.
type Pattern struct {
	Name      string
	Category  string
	Severity  Severity
	Kind      Kind
	Expr      string
	Rationale string

	re           *regexp.Regexp
	allowedHosts map[string]bool
}

// Compile prepares a regex pattern for matching. Literal and glob patterns
// need no compilation and pass through unchanged.
func (p Pattern) Compile() (Pattern, error) {
	if p.Kind != KindRegex {
		return p, nil
	}
	expr := p.Expr
	if !strings.HasPrefix(expr, "(?i)") {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return p, fmt.Errorf("pattern %s: %w", p.Name, err)
	}
	p.re = re
	return p, nil
}

// Matches reports whether rawURL triggers the pattern, returning the matched
// substring for finding context.
func (p Pattern) Matches(rawURL string) (string, bool) {
	switch p.Kind {
	case KindLiteral, KindGlob:
		if strings.Contains(rawURL, p.Expr) {
			return p.Expr, true
		}
	case KindRegex:
		if p.re == nil {
			return "", false
		}
		if m := p.re.FindString(rawURL); m != "" {
			return m, true
		}
	case kindHostAllow:
		u, err := url.Parse(rawURL)
		if err != nil {
			return "", false
		}
		host := strings.ToLower(u.Hostname())
		if host != "" && !p.allowedHosts[host] {
			return host, true
		}
	}
	return "", false
}

// sensitiveKeys are query parameter names whose values must never reach a
// report unredacted.
const sensitiveKeys = `token|access_token|auth|api_?key|secret|password|passwd|pwd|session|sessionid|sid|jwt|signature|sig|credentials?`

var (
	sensitiveParamRe  = regexp.MustCompile(`(?i)[?&](?:` + sensitiveKeys + `)=`)
	sensitiveRedactRe = regexp.MustCompile(`(?i)([?&](?:` + sensitiveKeys + `)=)[^&#]*`)
)

// Redact replaces the values of sensitive query parameters with REDACTED.
func Redact(rawURL string) string {
	return sensitiveRedactRe.ReplaceAllString(rawURL, "${1}REDACTED")
}

// BuiltinPatterns returns the static pattern table. The per-run patterns
// (domain mismatch, protocol inconsistency) are derived separately because
// they depend on the base URL.
func BuiltinPatterns() []Pattern {
	patterns := []Pattern{
		{
			Name:      "staging-host",
			Category:  CategoryEnvironmentLeakage,
			Severity:  SeverityHigh,
			Kind:      KindRegex,
			Expr:      `//(?:staging|stage|dev|test|uat|qa|sandbox|preprod|preview|demo)[.-]`,
			Rationale: "URL points at a non-production environment",
		},
		{
			Name:      "env-path-segment",
			Category:  CategoryEnvironmentLeakage,
			Severity:  SeverityHigh,
			Kind:      KindRegex,
			Expr:      `/(?:staging|preprod|sandbox)/`,
			Rationale: "URL path exposes a non-production area",
		},
		{
			Name:      "admin-console",
			Category:  CategoryAdminPaths,
			Severity:  SeverityHigh,
			Kind:      KindRegex,
			Expr:      `/(?:admin|wp-admin|administrator|phpmyadmin|manage|console)(?:/|$|\?)`,
			Rationale: "administrative interface listed in a public sitemap",
		},
		{
			Name:      "login-page",
			Category:  CategoryAdminPaths,
			Severity:  SeverityMedium,
			Kind:      KindRegex,
			Expr:      `/(?:login|signin|sign-in)(?:/|$|\?)`,
			Rationale: "authentication entry point listed in a public sitemap",
		},
		{
			Name:      "internal-path",
			Category:  CategoryInternalContent,
			Severity:  SeverityMedium,
			Kind:      KindRegex,
			Expr:      `/(?:internal|private|debug|backup|tmp)(?:/|$|\?)`,
			Rationale: "internal or non-public content referenced publicly",
		},
		{
			Name:      "vcs-metadata",
			Category:  CategoryInternalContent,
			Severity:  SeverityHigh,
			Kind:      KindLiteral,
			Expr:      "/.git",
			Rationale: "version control metadata exposed",
		},
		{
			Name:      "sensitive-query-param",
			Category:  CategorySensitiveParams,
			Severity:  SeverityHigh,
			Kind:      KindRegex,
			Expr:      `[?&](?:` + sensitiveKeys + `)=`,
			Rationale: "credential-bearing query parameter in a published URL",
		},
	}
	compiled := make([]Pattern, 0, len(patterns))
	for _, p := range patterns {
		c, err := p.Compile()
		if err != nil {
			// Built-in expressions are fixed; a failure here is a programming error.
			panic(err)
		}
		compiled = append(compiled, c)
	}
	return compiled
}

// Category names of the built-in pattern table.
const (
	CategoryEnvironmentLeakage    = "environment_leakage"
	CategoryAdminPaths            = "admin_paths"
	CategoryInternalContent       = "internal_content"
	CategorySensitiveParams       = "sensitive_params"
	CategoryProtocolInconsistency = "protocol_inconsistency"
	CategoryDomainMismatch        = "domain_mismatch"
)

// DomainMismatchPattern derives the per-run host allow-list pattern. Without
// an explicit subdomain list it allows the base host, its bare apex form and
// the www variant.
func DomainMismatchPattern(baseURL string, allowedSubdomains []string) (Pattern, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Hostname() == "" {
		return Pattern{}, fmt.Errorf("domain mismatch pattern: invalid base URL %q", baseURL)
	}
	root := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))

	allowed := map[string]bool{
		root:          true,
		"www." + root: true,
	}
	for _, sub := range allowedSubdomains {
		sub = strings.ToLower(strings.TrimSpace(sub))
		if sub == "" {
			continue
		}
		if strings.Contains(sub, ".") {
			allowed[sub] = true
		} else {
			allowed[sub+"."+root] = true
		}
	}

	return Pattern{
		Name:         "foreign-host",
		Category:     CategoryDomainMismatch,
		Severity:     SeverityMedium,
		Kind:         kindHostAllow,
		Rationale:    "URL host is outside the crawled site",
		allowedHosts: allowed,
	}, nil
}

// ProtocolInconsistencyPattern flags plain-http URLs when the site itself is
// served over https. Returns ok=false when the base URL is not https.
func ProtocolInconsistencyPattern(baseURL string) (Pattern, bool) {
	u, err := url.Parse(baseURL)
	if err != nil || !strings.EqualFold(u.Scheme, "https") {
		return Pattern{}, false
	}
	p, err := Pattern{
		Name:      "http-on-https-site",
		Category:  CategoryProtocolInconsistency,
		Severity:  SeverityMedium,
		Kind:      KindRegex,
		Expr:      `^http://`,
		Rationale: "insecure scheme on a site served over https",
	}.Compile()
	if err != nil {
		panic(err)
	}
	return p, true
}

// PolicyPattern is a user-supplied rule as it appears in the policy file.
type PolicyPattern struct {
	Name      string `mapstructure:"name" json:"name"`
	Category  string `mapstructure:"category" json:"category"`
	Severity  string `mapstructure:"severity" json:"severity"`
	Kind      string `mapstructure:"kind" json:"kind"`
	Pattern   string `mapstructure:"pattern" json:"pattern"`
	Rationale string `mapstructure:"rationale" json:"rationale"`
}

// CompilePolicies converts user policy entries into runnable patterns.
func CompilePolicies(policies []PolicyPattern) ([]Pattern, error) {
	patterns := make([]Pattern, 0, len(policies))
	for _, policy := range policies {
		severity := Severity(strings.ToLower(policy.Severity))
		if severity.Rank() == 0 {
			return nil, fmt.Errorf("policy %s: unknown severity %q", policy.Name, policy.Severity)
		}
		kind := Kind(strings.ToLower(policy.Kind))
		switch kind {
		case KindLiteral, KindGlob, KindRegex:
		case "":
			kind = KindLiteral
		default:
			return nil, fmt.Errorf("policy %s: unknown kind %q", policy.Name, policy.Kind)
		}
		category := policy.Category
		if category == "" {
			category = policy.Name
		}
		p, err := Pattern{
			Name:      policy.Name,
			Category:  category,
			Severity:  severity,
			Kind:      kind,
			Expr:      policy.Pattern,
			Rationale: policy.Rationale,
		}.Compile()
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}
