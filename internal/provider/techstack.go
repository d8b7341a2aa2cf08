package provider

import (
	"context"
	"strings"

	"github.com/sells-group/lead-enrichment/internal/model"
)

// knownStacks is the pool of technologies the fingerprint picks from.
var knownStacks = []string{
	"nginx", "cloudflare", "aws", "wordpress", "react",
	"kubernetes", "salesforce", "hubspot", "shopify", "google-analytics",
}

// telecomMarkers indicate a telecom or VoIP oriented stack, which earns
// the full bonus for this vertical.
var telecomMarkers = []string{"voip", "sip", "telecom", "telco", "pbx", "trunk", "carrier", "wholesale"}

// TechStackProvider fingerprints the technology stack behind the lead's
// domain. Telecom and VoIP stacks score highest.
type TechStackProvider struct{}

func NewTechStackProvider() *TechStackProvider { return &TechStackProvider{} }

func (p *TechStackProvider) Name() string  { return "tech_stack" }
func (p *TechStackProvider) MaxScore() int { return 15 }
func (p *TechStackProvider) Applies(id Identity) bool {
	return id.Domain != ""
}

func (p *TechStackProvider) Evaluate(ctx context.Context, id Identity) (Result, error) {
	if err := checkCtx(ctx); err != nil {
		return Result{}, err
	}

	h := fingerprint(p.Name(), id.Domain)

	count := int(h%4) + 1
	techs := make([]string, 0, count)
	for i := 0; i < count; i++ {
		techs = append(techs, knownStacks[(int(h)+i*7)%len(knownStacks)])
	}

	telecom := false
	for _, marker := range telecomMarkers {
		if strings.Contains(id.Domain, marker) || strings.Contains(strings.ToLower(id.CompanyName), marker) {
			telecom = true
			break
		}
	}

	score := 3 * count
	if telecom {
		score = 15
	}
	if score > 15 {
		score = 15
	}

	return Result{
		SubScore: score,
		Evidence: model.Evidence{TechStack: &model.TechStackEvidence{
			Technologies: techs,
			TelecomStack: telecom,
		}},
	}, nil
}
