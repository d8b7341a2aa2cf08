// Package enrich turns a single lead into a scored, evidence-backed
// result by fanning out to every applicable signal provider.
package enrich

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lead-enrichment/internal/model"
	"github.com/sells-group/lead-enrichment/internal/provider"
)

// DegradedFlag marks results produced by the degraded fallback path.
const DegradedFlag = "Enrichment failed"

// Unit enriches one lead at a time. It is safe for concurrent use.
type Unit struct {
	registry    *provider.Registry
	scoring     ScoringConfig
	timeout     time.Duration
	slowTimeout time.Duration
}

// NewUnit builds an enrichment unit over the given provider registry.
func NewUnit(registry *provider.Registry, scoring ScoringConfig, timeout, slowTimeout time.Duration) *Unit {
	return &Unit{
		registry:    registry,
		scoring:     scoring,
		timeout:     timeout,
		slowTimeout: slowTimeout,
	}
}

// Enrich evaluates every applicable provider concurrently and folds the
// sub-scores into a final 0-100 score. It never fails: provider faults
// contribute zero, and an internal fault yields a degraded result so
// one bad lead cannot sink its batch.
func (u *Unit) Enrich(ctx context.Context, lead model.Lead) (result model.LeadResult) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Warn("enrichment unit panicked",
				zap.String("email", lead.Email),
				zap.Any("panic", r),
			)
			result = u.degraded(lead)
		}
	}()

	domain := CanonicalDomain(lead)
	if domain == "" {
		zap.L().Warn("no usable domain for lead", zap.String("email", lead.Email))
		return u.degraded(lead)
	}

	industry := u.scoring.Classify(domain, lead.Company, lead.IndustryHint)
	id := provider.Identity{
		Email:        lead.Email,
		Domain:       domain,
		CompanyName:  lead.Company,
		IndustryHint: industry,
	}

	providers := u.registry.All()
	results := make([]provider.Result, len(providers))
	ran := make([]bool, len(providers))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range providers {
		if !p.Applies(id) {
			continue
		}
		ran[i] = true
		g.Go(func() error {
			timeout := u.timeout
			if provider.SlowProviders[p.Name()] {
				timeout = u.slowTimeout
			}
			results[i] = provider.Evaluate(gctx, p, id, timeout)
			return nil
		})
	}
	// Dispatch absorbs all provider faults, so Wait cannot fail.
	_ = g.Wait()

	breakdown := make(map[string]int)
	var evidence model.Evidence
	var flags []string
	seen := make(map[string]bool)
	total := 0

	for i, p := range providers {
		if !ran[i] {
			continue
		}
		breakdown[p.Name()] = results[i].SubScore
		total += results[i].SubScore
		evidence.Merge(results[i].Evidence)
		for _, f := range results[i].RiskFlags {
			if !seen[f] {
				seen[f] = true
				flags = append(flags, f)
			}
		}
	}

	total -= u.scoring.RiskFlagPenalty * len(flags)
	total = clampScore(total)

	return model.LeadResult{
		Name:           lead.Name,
		Email:          lead.Email,
		Domain:         domain,
		CompanyName:    lead.Company,
		Industry:       industry,
		Score:          total,
		ScoreBreakdown: breakdown,
		Evidence:       evidence,
		RiskFlags:      flags,
	}
}

// degraded builds the fallback result: the lead keeps its floor score
// for having an address at all, with a single flag explaining why.
func (u *Unit) degraded(lead model.Lead) model.LeadResult {
	return model.LeadResult{
		Name:        lead.Name,
		Email:       lead.Email,
		Domain:      lead.Domain,
		CompanyName: lead.Company,
		Industry:    UnknownIndustry,
		Score:       u.scoring.DegradedScore,
		RiskFlags:   []string{DegradedFlag},
	}
}

func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
