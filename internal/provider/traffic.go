package provider

import (
	"context"

	"github.com/sells-group/lead-enrichment/internal/model"
)

// TrafficProvider scores estimated web presence by global traffic rank.
type TrafficProvider struct{}

func NewTrafficProvider() *TrafficProvider { return &TrafficProvider{} }

func (p *TrafficProvider) Name() string  { return "traffic" }
func (p *TrafficProvider) MaxScore() int { return 10 }
func (p *TrafficProvider) Applies(id Identity) bool {
	return id.Domain != ""
}

func (p *TrafficProvider) Evaluate(ctx context.Context, id Identity) (Result, error) {
	if err := checkCtx(ctx); err != nil {
		return Result{}, err
	}

	h := fingerprint(p.Name(), id.Domain)
	rank := int(h%1_000_000) + 1

	var score int
	switch {
	case rank < 10_000:
		score = 10
	case rank < 100_000:
		score = 7
	case rank < 500_000:
		score = 4
	default:
		score = 1
	}

	return Result{
		SubScore: score,
		Evidence: model.Evidence{Traffic: &model.TrafficEvidence{GlobalRank: rank}},
	}, nil
}
