package enrich

import (
	"strings"

	"github.com/sells-group/lead-enrichment/internal/model"
)

// CanonicalDomain derives the lookup domain for a lead. An explicit
// domain wins over the email host. The result is lowercased with any
// scheme, www prefix, port, and path stripped. Returns "" when no
// plausible domain can be derived.
func CanonicalDomain(lead model.Lead) string {
	raw := lead.Domain
	if raw == "" {
		if _, host, ok := strings.Cut(lead.Email, "@"); ok {
			raw = host
		}
	}

	d := strings.ToLower(strings.TrimSpace(raw))
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "www.")
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	if i := strings.IndexByte(d, ':'); i >= 0 {
		d = d[:i]
	}
	d = strings.Trim(d, ".")

	if !strings.Contains(d, ".") || strings.ContainsAny(d, " @") {
		return ""
	}
	return d
}
