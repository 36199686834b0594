package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// QualificationPolicy holds the tunable pieces of deal qualification that
// are business configuration rather than code: the score threshold
// separating QUALIFIED from ANALYZING, and any extra lifecycle edges a
// deployment grants on top of the built-in graph.
type QualificationPolicy struct {
	// MinScore is the minimum qualification score for a filter-passing
	// deal to be recommended QUALIFIED. Deals below it stay ANALYZING.
	MinScore int `yaml:"min_score"`

	// ExtraTransitions maps a status to additional target statuses allowed
	// by this deployment. It can only add edges; the built-in graph and
	// terminal states cannot be overridden. Terminal states never gain
	// outbound edges.
	ExtraTransitions map[string][]string `yaml:"extra_transitions"`
}

// DefaultPolicy treats any non-negative score on a filter-passing deal as
// qualified and grants no extra edges.
func DefaultPolicy() *QualificationPolicy {
	return &QualificationPolicy{MinScore: 0}
}

// LoadPolicy reads a QualificationPolicy from a YAML file. An empty path
// returns the default policy.
func LoadPolicy(path string) (*QualificationPolicy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	policy := DefaultPolicy()
	if err := yaml.Unmarshal(data, policy); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}

	if policy.MinScore < 0 {
		return nil, fmt.Errorf("min_score must not be negative, got %d", policy.MinScore)
	}

	return policy, nil
}
