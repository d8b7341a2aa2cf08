// Package provider defines the interface and implementations for lead
// intelligence signal providers.
package provider

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/lead-enrichment/internal/model"
)

// Identity holds the identifiers a provider may use to look up a lead.
type Identity struct {
	Email        string
	Domain       string
	CompanyName  string
	IndustryHint string
}

// Result is the complete response from a provider for one lead.
// SubScore is bounded by the provider's MaxScore; RiskFlags are
// human-readable warnings that lower the final score.
type Result struct {
	SubScore  int            `json:"sub_score"`
	Evidence  model.Evidence `json:"evidence"`
	RiskFlags []string       `json:"risk_flags,omitempty"`
}

// Provider defines the interface for intelligence signal providers.
type Provider interface {
	// Name returns the provider identifier used as the score breakdown key.
	Name() string
	// MaxScore returns the upper bound of this provider's contribution.
	MaxScore() int
	// Applies reports whether the provider's preconditions hold for the
	// identity. Providers whose preconditions fail are skipped silently.
	Applies(id Identity) bool
	// Evaluate looks up the identity and returns a bounded sub-score
	// with supporting evidence.
	Evaluate(ctx context.Context, id Identity) (Result, error)
}

// Registry manages available signal providers in registration order.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	order     []string
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[p.Name()]; !ok {
		r.order = append(r.order, p.Name())
	}
	r.providers[p.Name()] = p
}

// Get returns a provider by name, or nil if not found.
func (r *Registry) Get(name string) Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[name]
}

// List returns all registered provider names in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// All returns all registered providers in registration order.
func (r *Registry) All() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	providers := make([]Provider, 0, len(r.order))
	for _, name := range r.order {
		providers = append(providers, r.providers[name])
	}
	return providers
}

// Evaluate runs a single provider under a deadline and absorbs every
// failure mode: errors, timeouts, and panics all collapse to a zero
// Result so one misbehaving provider can never sink a lead.
func Evaluate(ctx context.Context, p Provider, id Identity, timeout time.Duration) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Warn("provider panicked",
				zap.String("provider", p.Name()),
				zap.String("domain", id.Domain),
				zap.Any("panic", r),
			)
			res = Result{}
		}
	}()

	evalCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := p.Evaluate(evalCtx, id)
	if err != nil {
		zap.L().Warn("provider evaluation failed",
			zap.String("provider", p.Name()),
			zap.String("domain", id.Domain),
			zap.Error(err),
		)
		return Result{}
	}

	// Enforce the declared bound even if a provider misreports.
	if res.SubScore < 0 {
		res.SubScore = 0
	}
	if res.SubScore > p.MaxScore() {
		res.SubScore = p.MaxScore()
	}
	return res
}
