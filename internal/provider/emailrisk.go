package provider

import (
	"context"
	"strings"

	"github.com/sells-group/lead-enrichment/internal/model"
)

// roleLocalParts are mailbox names that indicate a shared or functional
// address rather than a person.
var roleLocalParts = map[string]bool{
	"admin": true, "administrator": true, "billing": true, "contact": true,
	"hello": true, "help": true, "info": true, "mail": true, "marketing": true,
	"noc": true, "noreply": true, "no-reply": true, "office": true,
	"postmaster": true, "sales": true, "support": true, "team": true,
	"webmaster": true,
}

// freeProviderDomains are consumer mailbox providers.
var freeProviderDomains = map[string]bool{
	"gmail.com": true, "yahoo.com": true, "hotmail.com": true,
	"outlook.com": true, "aol.com": true, "icloud.com": true,
	"protonmail.com": true, "proton.me": true, "mail.com": true,
	"gmx.com": true, "yandex.com": true, "zoho.com": true,
}

// disposableDomains are throwaway mailbox providers.
var disposableDomains = map[string]bool{
	"mailinator.com": true, "guerrillamail.com": true, "10minutemail.com": true,
	"tempmail.com": true, "throwaway.email": true, "yopmail.com": true,
}

// EmailRiskProvider scores mailbox-level quality: role-based addresses,
// free or disposable providers, and breach corpus sightings.
type EmailRiskProvider struct{}

func NewEmailRiskProvider() *EmailRiskProvider { return &EmailRiskProvider{} }

func (p *EmailRiskProvider) Name() string  { return "email_risk" }
func (p *EmailRiskProvider) MaxScore() int { return 5 }
func (p *EmailRiskProvider) Applies(id Identity) bool {
	return strings.Contains(id.Email, "@")
}

func (p *EmailRiskProvider) Evaluate(ctx context.Context, id Identity) (Result, error) {
	if err := checkCtx(ctx); err != nil {
		return Result{}, err
	}

	local, domain, _ := strings.Cut(strings.ToLower(id.Email), "@")
	roleBased := roleLocalParts[local]
	free := freeProviderDomains[domain]
	disposable := disposableDomains[domain]

	h := fingerprint(p.Name(), strings.ToLower(id.Email))
	breachSeen := h%11 == 0

	ev := &model.EmailRiskEvidence{
		RoleBased:    roleBased,
		Disposable:   disposable,
		FreeProvider: free,
		BreachSeen:   breachSeen,
	}

	var flags []string
	if roleBased {
		flags = append(flags, "Role-based email address")
	}
	if disposable {
		flags = append(flags, "Disposable email domain")
	}
	if free {
		flags = append(flags, "Free email provider")
	}
	if breachSeen {
		flags = append(flags, "Address seen in breach corpus")
	}

	score := 5
	if len(flags) > 0 {
		score = 0
	}

	return Result{
		SubScore:  score,
		Evidence:  model.Evidence{EmailRisk: ev},
		RiskFlags: flags,
	}, nil
}
