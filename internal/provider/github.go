package provider

import (
	"context"
	"strings"

	"github.com/sells-group/lead-enrichment/internal/model"
)

// techDomainMarkers suggest a technology company even without an
// explicit industry hint.
var techDomainMarkers = []string{"dev", "tech", "soft", "cloud", "data", "api", "app", "labs"}

// GitHubProvider scores public code hosting presence. It only applies
// to technology leads; everyone else skips it silently.
type GitHubProvider struct{}

func NewGitHubProvider() *GitHubProvider { return &GitHubProvider{} }

func (p *GitHubProvider) Name() string  { return "github" }
func (p *GitHubProvider) MaxScore() int { return 10 }

func (p *GitHubProvider) Applies(id Identity) bool {
	if id.Domain == "" {
		return false
	}
	if id.IndustryHint == "Technology" {
		return true
	}
	for _, marker := range techDomainMarkers {
		if strings.Contains(id.Domain, marker) {
			return true
		}
	}
	return false
}

func (p *GitHubProvider) Evaluate(ctx context.Context, id Identity) (Result, error) {
	if err := checkCtx(ctx); err != nil {
		return Result{}, err
	}

	h := fingerprint(p.Name(), id.Domain)
	orgFound := h%4 != 0
	repos := 0
	if orgFound {
		repos = int(h % 200)
	}

	var score int
	switch {
	case !orgFound:
		score = 0
	case repos > 50:
		score = 10
	case repos > 10:
		score = 7
	default:
		score = 4
	}

	return Result{
		SubScore: score,
		Evidence: model.Evidence{CodeHosting: &model.CodeHostingEvidence{
			OrgFound:    orgFound,
			PublicRepos: repos,
		}},
	}, nil
}
