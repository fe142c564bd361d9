package engine

import (
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/metroflow/induction-backend/internal/apierr"
)

// Criterion keys. Every weight profile maps exactly these keys to
// non-negative weights summing to 1.
const (
	CriterionFitness  = "fitness"
	CriterionJobCard  = "jobcard"
	CriterionMileage  = "mileage"
	CriterionBranding = "branding"
	CriterionCleaning = "cleaning"
	CriterionShunting = "shunting"
)

// Criteria lists the criterion keys in canonical scoring order. Score
// breakdowns always emit rows in this order, which keeps runs
// bit-deterministic.
var Criteria = []string{
	CriterionFitness,
	CriterionJobCard,
	CriterionMileage,
	CriterionBranding,
	CriterionCleaning,
	CriterionShunting,
}

const weightEpsilon = 1e-6

// DefaultWeights returns the default criterion weighting.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		CriterionFitness:  0.25,
		CriterionJobCard:  0.20,
		CriterionMileage:  0.15,
		CriterionBranding: 0.20,
		CriterionCleaning: 0.10,
		CriterionShunting: 0.10,
	}
}

// ValidateWeights rejects unknown keys, negative weights, and totals that
// do not sum to 1 within epsilon. Missing keys count as weight 0.
func ValidateWeights(weights map[string]float64) error {
	if len(weights) == 0 {
		return &apierr.ValidationError{Field: "weightProfile", Reason: "empty weight profile"}
	}
	known := make(map[string]bool, len(Criteria))
	for _, c := range Criteria {
		known[c] = true
	}
	sum := 0.0
	for key, w := range weights {
		if !known[key] {
			return &apierr.ValidationError{Field: "weightProfile", Reason: fmt.Sprintf("unknown criterion %q", key)}
		}
		if w < 0 {
			return &apierr.ValidationError{Field: "weightProfile", Reason: fmt.Sprintf("negative weight %.4f for %q", w, key)}
		}
		sum += w
	}
	if math.Abs(sum-1.0) > weightEpsilon {
		return &apierr.ValidationError{Field: "weightProfile", Reason: fmt.Sprintf("weights sum to %.4f, must sum to 1.0", sum)}
	}
	return nil
}

// CloneWeights copies a profile so callers can hold it without aliasing the
// caller's map.
func CloneWeights(weights map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(weights))
	for k, v := range weights {
		out[k] = v
	}
	return out
}

// LoadProfiles reads named weight profiles from a YAML file of the shape
//
//	profiles:
//	  balanced: {fitness: 0.25, jobcard: 0.20, ...}
//	  branding_push: {...}
//
// Every profile is validated; the file is rejected whole on the first bad
// profile so a typo cannot silently ship a skewed profile.
func LoadProfiles(path string) (map[string]map[string]float64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read weight profiles: %w", err)
	}
	var doc struct {
		Profiles map[string]map[string]float64 `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse weight profiles: %w", err)
	}
	names := make([]string, 0, len(doc.Profiles))
	for name := range doc.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := ValidateWeights(doc.Profiles[name]); err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
	}
	return doc.Profiles, nil
}
