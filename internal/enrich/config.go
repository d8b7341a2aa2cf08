package enrich

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// UnknownIndustry is the classification fallback when no keyword matches.
const UnknownIndustry = "Unknown"

// IndustryRule maps an industry name to the keywords that identify it.
// Rules are evaluated in order; the first match wins.
type IndustryRule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// ScoringConfig holds the tunable scoring constants and the industry
// keyword table. Operators can override it with a YAML file; anything
// left unset falls back to the compiled defaults.
type ScoringConfig struct {
	RiskFlagPenalty int            `yaml:"risk_flag_penalty"`
	DegradedScore   int            `yaml:"degraded_score"`
	Industries      []IndustryRule `yaml:"industries"`
}

// DefaultScoring returns the built-in scoring configuration.
func DefaultScoring() ScoringConfig {
	return ScoringConfig{
		RiskFlagPenalty: 5,
		DegradedScore:   10,
		Industries: []IndustryRule{
			{Name: "Telecommunications", Keywords: []string{"telecom", "telco", "voip", "sip", "carrier", "wireless", "broadband", "trunk"}},
			{Name: "Technology", Keywords: []string{"tech", "software", "cloud", "data", "cyber", "digital", "app", "dev", "labs", "systems", "api"}},
			{Name: "Finance", Keywords: []string{"bank", "capital", "finance", "invest", "credit", "insurance", "wealth", "fund"}},
			{Name: "Healthcare", Keywords: []string{"health", "medical", "clinic", "pharma", "care", "dental", "bio"}},
			{Name: "Retail", Keywords: []string{"shop", "store", "retail", "commerce", "market", "boutique"}},
			{Name: "Manufacturing", Keywords: []string{"manufact", "industrial", "factory", "machine", "supply"}},
			{Name: "Education", Keywords: []string{"school", "university", "academy", "college", "education", "learning"}},
			{Name: "Real Estate", Keywords: []string{"realty", "property", "estate", "homes", "housing"}},
			{Name: "Legal", Keywords: []string{"law", "legal", "attorney", "counsel"}},
			{Name: "Marketing", Keywords: []string{"marketing", "media", "agency", "creative", "brand", "advertis"}},
		},
	}
}

// LoadScoring reads a scoring configuration from a YAML file, filling
// any unset fields from the defaults. An empty path returns the
// defaults unchanged.
func LoadScoring(path string) (ScoringConfig, error) {
	cfg := DefaultScoring()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, eris.Wrapf(err, "enrich: read scoring config %s", path)
	}

	var loaded ScoringConfig
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return cfg, eris.Wrap(err, "enrich: parse scoring config")
	}

	if loaded.RiskFlagPenalty > 0 {
		cfg.RiskFlagPenalty = loaded.RiskFlagPenalty
	}
	if loaded.DegradedScore > 0 {
		cfg.DegradedScore = loaded.DegradedScore
	}
	if len(loaded.Industries) > 0 {
		cfg.Industries = loaded.Industries
	}
	return cfg, nil
}
