package risk

import "sort"

// Group aggregates the findings of one category.
type Group struct {
	Category       string   `json:"category"`
	Severity       Severity `json:"severity"`
	Count          int      `json:"count"` // distinct URLs, never raw finding count
	Rationale      string   `json:"rationale"`
	Recommendation string   `json:"recommendation"`
	Samples        []string `json:"samples"`
	URLs           []string `json:"urls"`
}

// DefaultSampleSize bounds Group.Samples.
const DefaultSampleSize = 5

type categoryInfo struct {
	rationale      string
	recommendation string
}

var categoryCatalog = map[string]categoryInfo{
	CategoryEnvironmentLeakage: {
		rationale:      "non-production environments are reachable through the public sitemap",
		recommendation: "remove staging and test hosts from published sitemaps and restrict their access",
	},
	CategoryAdminPaths: {
		rationale:      "administrative or authentication surfaces are advertised to crawlers",
		recommendation: "exclude admin and login paths from sitemaps and gate them behind access controls",
	},
	CategoryInternalContent: {
		rationale:      "internal-only content is listed publicly",
		recommendation: "audit the listed paths and drop internal sections from sitemap generation",
	},
	CategorySensitiveParams: {
		rationale:      "published URLs carry credential-bearing query parameters",
		recommendation: "rotate any exposed secrets and strip sensitive parameters before publishing URLs",
	},
	CategoryProtocolInconsistency: {
		rationale:      "plain-http URLs are published for a site served over https",
		recommendation: "rewrite sitemap entries to https and add redirects for the http forms",
	},
	CategoryDomainMismatch: {
		rationale:      "sitemap entries point at hosts outside the crawled site",
		recommendation: "verify the foreign hosts are intended and move their URLs to the owning site's sitemap",
	},
}

// BuildGroups buckets findings by category. Per-category severity is the
// maximum member severity and Count is the number of distinct URLs. Groups
// come back sorted by severity descending, stable by first appearance.
func BuildGroups(findings []Finding, sampleSize int) []Group {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}

	type bucket struct {
		group Group
		seen  map[string]bool
	}
	index := make(map[string]*bucket)
	var order []string

	for _, f := range findings {
		b, ok := index[f.Category]
		if !ok {
			info := categoryCatalog[f.Category]
			rationale := info.rationale
			if rationale == "" {
				rationale = f.Rationale
			}
			b = &bucket{
				group: Group{
					Category:       f.Category,
					Severity:       f.Severity,
					Rationale:      rationale,
					Recommendation: info.recommendation,
				},
				seen: make(map[string]bool),
			}
			index[f.Category] = b
			order = append(order, f.Category)
		}
		if f.Severity.Rank() > b.group.Severity.Rank() {
			b.group.Severity = f.Severity
		}
		if !b.seen[f.URL] {
			b.seen[f.URL] = true
			b.group.URLs = append(b.group.URLs, f.URL)
			if len(b.group.Samples) < sampleSize {
				b.group.Samples = append(b.group.Samples, f.URL)
			}
		}
	}

	groups := make([]Group, 0, len(order))
	for _, category := range order {
		b := index[category]
		b.group.Count = len(b.group.URLs)
		groups = append(groups, b.group)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Severity.Rank() > groups[j].Severity.Rank()
	})
	return groups
}
