package provider

import (
	"context"

	"github.com/sells-group/lead-enrichment/internal/model"
)

// DNSHealthProvider scores basic DNS liveness: an address record for the
// website and MX records for mail delivery.
type DNSHealthProvider struct{}

func NewDNSHealthProvider() *DNSHealthProvider { return &DNSHealthProvider{} }

func (p *DNSHealthProvider) Name() string  { return "dns_health" }
func (p *DNSHealthProvider) MaxScore() int { return 10 }
func (p *DNSHealthProvider) Applies(id Identity) bool {
	return id.Domain != ""
}

func (p *DNSHealthProvider) Evaluate(ctx context.Context, id Identity) (Result, error) {
	if err := checkCtx(ctx); err != nil {
		return Result{}, err
	}

	h := fingerprint(p.Name(), id.Domain)
	hasA := h%10 != 0
	hasMX := h%6 != 0

	var score int
	var flags []string
	if hasA {
		score += 5
	} else {
		flags = append(flags, "Domain does not resolve")
	}
	if hasMX {
		score += 5
	} else {
		flags = append(flags, "No mail exchanger configured")
	}

	return Result{
		SubScore:  score,
		Evidence:  model.Evidence{DNS: &model.DNSEvidence{HasAddress: hasA, HasMX: hasMX}},
		RiskFlags: flags,
	}, nil
}
