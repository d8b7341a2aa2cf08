package provider

import (
	"context"

	"github.com/sells-group/lead-enrichment/internal/model"
)

// CertificateProvider scores TLS certificate health for the lead's
// domain. Organization-validated certificates earn a small bonus.
type CertificateProvider struct{}

func NewCertificateProvider() *CertificateProvider { return &CertificateProvider{} }

func (p *CertificateProvider) Name() string  { return "certificate" }
func (p *CertificateProvider) MaxScore() int { return 10 }
func (p *CertificateProvider) Applies(id Identity) bool {
	return id.Domain != ""
}

func (p *CertificateProvider) Evaluate(ctx context.Context, id Identity) (Result, error) {
	if err := checkCtx(ctx); err != nil {
		return Result{}, err
	}

	h := fingerprint(p.Name(), id.Domain)
	valid := h%8 != 0
	orgValidated := valid && h%3 == 0

	var score int
	var flags []string
	if valid {
		score = 8
		if orgValidated {
			score += 2
		}
	} else {
		flags = append(flags, "TLS certificate invalid or expired")
	}

	return Result{
		SubScore: score,
		Evidence: model.Evidence{Certificate: &model.CertificateEvidence{
			Valid:        valid,
			OrgValidated: orgValidated,
		}},
		RiskFlags: flags,
	}, nil
}
