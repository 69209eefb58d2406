package policy

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/gcsspectre/internal/models"
	"gopkg.in/yaml.v3"
)

// Policy defines the exposure table and enforcement rules for a run.
type Policy struct {
	Version       string                `yaml:"version"`
	ExposureRules []models.ExposureRule `yaml:"exposure_rules,omitempty"`
	Rules         Rules                 `yaml:"rules"`
}

// Rules contains all configurable policy rules.
type Rules struct {
	MaxExposedBuckets *int     `yaml:"max_exposed_buckets,omitempty"`
	MaxErrors         *int     `yaml:"max_errors,omitempty"`
	MinScore          *float64 `yaml:"min_score,omitempty"`
	ForbidPrincipals  []string `yaml:"forbid_principals,omitempty"`
	ForbidRoles       []string `yaml:"forbid_roles,omitempty"`
}

// Violation is a single policy failure.
type Violation struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Result holds the outcome of a policy check.
type Result struct {
	Pass       bool        `json:"pass"`
	Violations []Violation `json:"violations"`
}

// LoadFromFile reads a policy file. A missing file yields a nil policy.
func LoadFromFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read policy: %w", err)
	}

	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}

	for i, r := range p.ExposureRules {
		if r.Role == "" || len(r.Members) == 0 {
			return nil, fmt.Errorf("parse policy: exposure rule %d needs a role and at least one member", i+1)
		}
	}

	return &p, nil
}

// FindPolicyFile searches for a policy file in the current directory
// and parent directories up to the filesystem root.
func FindPolicyFile() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	return findPolicyFileFrom(dir)
}

func findPolicyFileFrom(dir string) string {
	names := []string{".gcsspectre-policy.yaml", ".gcsspectre-policy.yml"}

	for {
		for _, name := range names {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// ExposureTable returns a private copy of the exposure rules in effect:
// the policy's own table when it has one, the default table otherwise.
func (p *Policy) ExposureTable() []models.ExposureRule {
	if p == nil || len(p.ExposureRules) == 0 {
		return CopyRules(DefaultExposureRules)
	}
	return CopyRules(p.ExposureRules)
}

// Evaluate checks a run summary against the policy rules.
func (p *Policy) Evaluate(summary models.RunSummary) *Result {
	if p == nil {
		return &Result{Pass: true}
	}

	var violations []Violation

	// max_exposed_buckets
	if p.Rules.MaxExposedBuckets != nil {
		if summary.ExposedBuckets > *p.Rules.MaxExposedBuckets {
			violations = append(violations, Violation{
				Rule:    "max_exposed_buckets",
				Message: fmt.Sprintf("exposed buckets %d exceeds limit %d", summary.ExposedBuckets, *p.Rules.MaxExposedBuckets),
			})
		}
	}

	// max_errors
	if p.Rules.MaxErrors != nil {
		count := summary.ErroredBuckets + summary.ProjectErrors
		if count > *p.Rules.MaxErrors {
			violations = append(violations, Violation{
				Rule:    "max_errors",
				Message: fmt.Sprintf("errors %d exceeds limit %d", count, *p.Rules.MaxErrors),
			})
		}
	}

	// min_score
	if p.Rules.MinScore != nil {
		if summary.ScorePercent < *p.Rules.MinScore {
			violations = append(violations, Violation{
				Rule:    "min_score",
				Message: fmt.Sprintf("score %.1f%% below minimum %.1f%%", summary.ScorePercent, *p.Rules.MinScore),
			})
		}
	}

	// forbid_principals
	for _, principal := range p.Rules.ForbidPrincipals {
		if count := summary.ExposedPrincipals[principal]; count > 0 {
			violations = append(violations, Violation{
				Rule:    "forbid_principals",
				Message: fmt.Sprintf("forbidden principal %q exposed on %d binding(s)", principal, count),
			})
		}
	}

	// forbid_roles
	for _, role := range p.Rules.ForbidRoles {
		if count := summary.ExposedByRole[role]; count > 0 {
			violations = append(violations, Violation{
				Rule:    "forbid_roles",
				Message: fmt.Sprintf("forbidden role %q exposed on %d binding(s)", role, count),
			})
		}
	}

	return &Result{
		Pass:       len(violations) == 0,
		Violations: violations,
	}
}
