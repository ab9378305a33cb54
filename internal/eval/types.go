// Package eval runs offline scenario suites against the recognition and
// decision pipelines and reports the results as markdown.
//
// A suite is a YAML document holding recognition cases (an utterance plus
// the intent, confidence band, and reasoning fragments the pipeline must
// produce, optionally under an injected model failure) and decision cases
// (a trigger, a candidate strategy set, and seeded history plus the
// strategy the engine must recommend). Every case runs against the
// scripted provider, so suites are deterministic and need no network.
package eval

import (
	"fmt"

	"github.com/rwalling/arbiter/internal/llm"
	"github.com/rwalling/arbiter/pkg/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SUITE MODEL
// ═══════════════════════════════════════════════════════════════════════════════

// Suite is a named set of evaluation scenarios.
type Suite struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description,omitempty"`
	Recognition []RecognitionCase `yaml:"recognition,omitempty"`
	Decision    []DecisionCase    `yaml:"decision,omitempty"`
}

// RecognitionCase drives one utterance through the full recognition
// pipeline and checks what comes out.
type RecognitionCase struct {
	Name  string `yaml:"name"`
	Input string `yaml:"input"`

	// ExpectIntent is the intent the pipeline must settle on. Empty
	// means the pipeline must refuse to pick one.
	ExpectIntent string `yaml:"expect_intent"`

	// MinConfidence and MaxConfidence bound the final confidence.
	// Zero means unchecked.
	MinConfidence float64 `yaml:"min_confidence,omitempty"`
	MaxConfidence float64 `yaml:"max_confidence,omitempty"`

	// ExpectReasoning lists substrings the result's reasoning must
	// contain. Degraded paths announce themselves here, so these
	// fragments are how a case pins down which path ran.
	ExpectReasoning []string `yaml:"expect_reasoning,omitempty"`

	// ModelFailure injects a provider fault for this case's input:
	// timeout, unavailable, or malformed. Empty runs the model cleanly.
	ModelFailure string `yaml:"model_failure,omitempty"`
}

// DecisionCase runs the decision engine once and checks the recommendation.
type DecisionCase struct {
	Name      string   `yaml:"name"`
	Trigger   string   `yaml:"trigger"`
	Available []string `yaml:"available"`

	// Historical seeds per-strategy aggregates for this case. Strategies
	// absent here fall back to the engine's neutral priors.
	Historical map[string]HistoricalSeed `yaml:"historical,omitempty"`

	// VIP and Patience shape the user profile. Patience zero means
	// unspecified and evaluates as neutral 0.5.
	VIP      bool    `yaml:"vip,omitempty"`
	Patience float64 `yaml:"patience,omitempty"`

	ExpectStrategy string `yaml:"expect_strategy"`

	// MinConfidence bounds the decision confidence. Zero means unchecked.
	MinConfidence float64 `yaml:"min_confidence,omitempty"`
}

// HistoricalSeed is the observed-performance stub a decision case plants
// for one strategy.
type HistoricalSeed struct {
	SuccessRate     float64 `yaml:"success_rate"`
	AvgResponseTime float64 `yaml:"avg_response_time"`
}

// ═══════════════════════════════════════════════════════════════════════════════
// VALIDATION
// ═══════════════════════════════════════════════════════════════════════════════

// validate rejects suites that could not run meaningfully: missing names,
// unknown triggers or strategies, out-of-range bounds. Reported errors
// carry the case name so a YAML author can find the line.
func (s *Suite) validate() error {
	if s.Name == "" {
		return fmt.Errorf("suite name is required")
	}
	if len(s.Recognition) == 0 && len(s.Decision) == 0 {
		return fmt.Errorf("suite %q has no cases", s.Name)
	}

	seen := make(map[string]bool)
	for i, c := range s.Recognition {
		if err := c.validate(); err != nil {
			return fmt.Errorf("recognition case %d (%q): %w", i, c.Name, err)
		}
		if seen["r/"+c.Name] {
			return fmt.Errorf("duplicate recognition case name %q", c.Name)
		}
		seen["r/"+c.Name] = true
	}
	for i, c := range s.Decision {
		if err := c.validate(); err != nil {
			return fmt.Errorf("decision case %d (%q): %w", i, c.Name, err)
		}
		if seen["d/"+c.Name] {
			return fmt.Errorf("duplicate decision case name %q", c.Name)
		}
		seen["d/"+c.Name] = true
	}
	return nil
}

func (c RecognitionCase) validate() error {
	if c.Name == "" {
		return fmt.Errorf("case name is required")
	}
	if c.Input == "" {
		return fmt.Errorf("input is required")
	}
	switch c.ModelFailure {
	case "", llm.FailTimeout, llm.FailUnavailable, llm.FailMalformed:
	default:
		return fmt.Errorf("unknown model_failure %q", c.ModelFailure)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min_confidence %.2f out of range", c.MinConfidence)
	}
	if c.MaxConfidence < 0 || c.MaxConfidence > 1 {
		return fmt.Errorf("max_confidence %.2f out of range", c.MaxConfidence)
	}
	if c.MinConfidence > 0 && c.MaxConfidence > 0 && c.MinConfidence > c.MaxConfidence {
		return fmt.Errorf("min_confidence %.2f above max_confidence %.2f", c.MinConfidence, c.MaxConfidence)
	}
	return nil
}

func (c DecisionCase) validate() error {
	if c.Name == "" {
		return fmt.Errorf("case name is required")
	}
	if !types.ErrorClass(c.Trigger).Valid() {
		return fmt.Errorf("unknown trigger %q", c.Trigger)
	}
	for _, s := range c.Available {
		if !types.Strategy(s).Valid() {
			return fmt.Errorf("unknown strategy %q in available", s)
		}
	}
	if !types.Strategy(c.ExpectStrategy).Valid() {
		return fmt.Errorf("unknown expect_strategy %q", c.ExpectStrategy)
	}
	for name, seed := range c.Historical {
		if !types.Strategy(name).Valid() {
			return fmt.Errorf("unknown strategy %q in historical", name)
		}
		if seed.SuccessRate < 0 || seed.SuccessRate > 1 {
			return fmt.Errorf("historical %s: success_rate %.2f out of range", name, seed.SuccessRate)
		}
		if seed.AvgResponseTime < 0 {
			return fmt.Errorf("historical %s: avg_response_time %.2f is negative", name, seed.AvgResponseTime)
		}
	}
	if c.Patience < 0 || c.Patience > 1 {
		return fmt.Errorf("patience %.2f out of range", c.Patience)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min_confidence %.2f out of range", c.MinConfidence)
	}
	return nil
}
