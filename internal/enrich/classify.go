package enrich

import "strings"

// Classify determines the industry for a lead. An explicit hint from
// the input wins; otherwise the keyword table is scanned against the
// domain and company name in rule order.
func (c ScoringConfig) Classify(domain, company, hint string) string {
	if hint != "" {
		return hint
	}

	haystack := strings.ToLower(domain + " " + company)
	for _, rule := range c.Industries {
		for _, kw := range rule.Keywords {
			if strings.Contains(haystack, kw) {
				return rule.Name
			}
		}
	}
	return UnknownIndustry
}
