// Package confidence calibrates raw confidence estimates and fuses the
// model, rule, and context signals into a single hybrid score.
//
// All functions here are pure: they take their tuning as arguments,
// allocate nothing shared, and clamp out-of-range inputs instead of
// rejecting them. A confidence produced by this package is always in
// [0, 1], whatever the caller fed in.
package confidence

import (
	"fmt"
	"math"

	"github.com/rwalling/arbiter/internal/config"
	"github.com/rwalling/arbiter/pkg/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// CALIBRATION
// ═══════════════════════════════════════════════════════════════════════════════

// Calibrate scales a raw confidence by its source's multiplier and clamps
// the result to [0, 1].
//
// Behavior:
//  1. The raw value is clamped to [0, 1] before scaling.
//  2. The multiplier comes from cfg.SourceMultipliers; unknown or
//     unconfigured sources use 1.0.
//  3. The scaled value is clamped again, so multipliers above 1.0 can
//     never push a score past 1.0.
func Calibrate(value float64, source types.Source, cfg config.CalibrationConfig) types.ConfidenceScore {
	raw := types.Clamp01(value)
	multiplier := multiplierFor(source, cfg)
	scaled := raw * multiplier
	final := types.Clamp01(scaled)

	explanation := fmt.Sprintf("%s %.3f scaled by %.2f", source, raw, multiplier)
	if final != scaled {
		explanation += fmt.Sprintf(", clamped to %.2f", final)
	}

	return types.ConfidenceScore{
		Value:       final,
		Source:      source,
		Explanation: explanation,
	}
}

// multiplierFor looks up the calibration multiplier for a source.
// Unknown sources and missing entries fall back to 1.0.
func multiplierFor(source types.Source, cfg config.CalibrationConfig) float64 {
	if !source.Valid() {
		return 1.0
	}
	if m, ok := cfg.SourceMultipliers[string(source)]; ok && m > 0 {
		return m
	}
	return 1.0
}

// ═══════════════════════════════════════════════════════════════════════════════
// HYBRID FUSION
// ═══════════════════════════════════════════════════════════════════════════════

// Hybrid blends the model, rule, and context confidences into one score
// using the configured weights (model-dominant by default), then runs the
// blend through hybrid-source calibration. intentName labels the
// explanation and may be empty.
//
// Inputs are clamped to [0, 1] first. Weights that do not sum to 1.0 are
// renormalized for this call; a non-positive weight sum falls back to the
// built-in defaults. The explanation names the dominant signal and spells
// out each contribution so a reviewer can recompute the blend by hand.
func Hybrid(model, rule, contextual float64, intentName string, cfg config.CalibrationConfig) types.ConfidenceScore {
	m := types.Clamp01(model)
	r := types.Clamp01(rule)
	c := types.Clamp01(contextual)

	mw, rw, cw := normalizedWeights(cfg)
	blend := m*mw + r*rw + c*cw

	subject := "hybrid"
	if intentName != "" {
		subject = intentName
	}

	calibrated := Calibrate(blend, types.SourceHybrid, cfg)
	calibrated.Explanation = fmt.Sprintf(
		"%s %.3f led by %s: model %.3f (w %.2f), rule %.3f (w %.2f), context %.3f (w %.2f); %s",
		subject, calibrated.Value, dominantSignal(m*mw, r*rw, c*cw), m, mw, r, rw, c, cw,
		calibrated.Explanation)

	return calibrated
}

// dominantSignal names the largest weighted contribution. Ties prefer
// model, then rule.
func dominantSignal(mc, rc, cc float64) string {
	switch {
	case mc >= rc && mc >= cc:
		return "model"
	case rc >= cc:
		return "rule"
	default:
		return "context"
	}
}

// normalizedWeights returns the blend weights rescaled to sum to 1.0.
// A non-positive sum yields the default split.
func normalizedWeights(cfg config.CalibrationConfig) (model, rule, contextual float64) {
	sum := cfg.ModelWeight + cfg.RuleWeight + cfg.ContextWeight
	if sum <= 0 {
		defaults := config.Default().Calibration
		return defaults.ModelWeight, defaults.RuleWeight, defaults.ContextWeight
	}
	if math.Abs(sum-1.0) <= config.WeightTolerance {
		return cfg.ModelWeight, cfg.RuleWeight, cfg.ContextWeight
	}
	return cfg.ModelWeight / sum, cfg.RuleWeight / sum, cfg.ContextWeight / sum
}

// ═══════════════════════════════════════════════════════════════════════════════
// MANAGER (Hot-reload aware wrapper)
// ═══════════════════════════════════════════════════════════════════════════════

// Manager binds the pure calibration functions to a live config store, so
// callers pick up hot-reloaded multipliers and weights without replumbing.
type Manager struct {
	store *config.Store
}

// NewManager creates a manager reading calibration settings from store.
// A nil store falls back to the built-in defaults on every call.
func NewManager(store *config.Store) *Manager {
	return &Manager{store: store}
}

// Calibrate scales value by its source's configured multiplier.
func (m *Manager) Calibrate(value float64, source types.Source) types.ConfidenceScore {
	return Calibrate(value, source, m.calibration())
}

// Hybrid fuses the three confidence signals under the current config.
func (m *Manager) Hybrid(model, rule, contextual float64, intentName string) types.ConfidenceScore {
	return Hybrid(model, rule, contextual, intentName, m.calibration())
}

func (m *Manager) calibration() config.CalibrationConfig {
	if m == nil || m.store == nil {
		return config.Default().Calibration
	}
	return m.store.Get().Calibration
}
