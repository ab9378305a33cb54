package decision

import (
	"math"
	"sort"
	"time"

	"github.com/rwalling/arbiter/internal/config"
	"github.com/rwalling/arbiter/pkg/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// FACTOR COMPUTATION
// ═══════════════════════════════════════════════════════════════════════════════
//
// Each factor maps one slice of the decision context to a normalized [0,1]
// score for one strategy. All of them are pure: no I/O, no clock reads, no
// shared state. The engine precomputes the context-wide signals (system
// load, trigger frequency, error trend) once per decision and threads them
// through factorInput so the per-strategy work stays O(1).

// errorTrend classifies the recent failure direction across all strategies.
type errorTrend int

const (
	trendStable errorTrend = iota
	trendRising
	trendFalling
)

func (t errorTrend) String() string {
	switch t {
	case trendRising:
		return "rising"
	case trendFalling:
		return "falling"
	default:
		return "stable"
	}
}

// factorInput bundles everything one strategy's factor pass needs.
type factorInput struct {
	strategy types.Strategy
	row      config.StrategyConfig
	agg      types.Aggregates
	dc       *types.DecisionContext
	cfg      *config.DecisionConfig

	triggerFreq float64    // share of the recent trigger window matching dc.Trigger
	load        float64    // precomputed via systemLoad
	trend       errorTrend // precomputed via detectTrend
	now         time.Time
}

// computeFactors evaluates all ten factors for one strategy.
func computeFactors(in factorInput) map[string]float64 {
	return map[string]float64{
		types.FactorErrorFrequency:    factorErrorFrequency(in),
		types.FactorHistoricalSuccess: factorHistoricalSuccess(in),
		types.FactorResponseTime:      factorResponseTime(in),
		types.FactorUserContext:       factorUserContext(in),
		types.FactorSystemLoad:        factorSystemLoad(in),
		types.FactorTimeOfDay:         factorTimeOfDay(in),
		types.FactorErrorPattern:      factorErrorPattern(in),
		types.FactorBusinessPriority:  factorBusinessPriority(in),
		types.FactorCostEffectiveness: factorCostEffectiveness(in),
		types.FactorUserSatisfaction:  factorUserSatisfaction(in),
	}
}

// factorErrorFrequency scores how well the strategy fits the triggering
// error class, with the penalty for a poor fit growing as that class
// becomes frequent in the recent trigger window.
func factorErrorFrequency(in factorInput) float64 {
	fitness := 0.35
	for _, class := range in.row.Applicability {
		if class == string(in.dc.Trigger) {
			fitness = 0.85
			break
		}
	}
	return clamp01(fitness * (1 - 0.5*in.triggerFreq*(1-fitness)))
}

// factorHistoricalSuccess blends the tracked success rate with the mean
// of the recent outcome window.
func factorHistoricalSuccess(in factorInput) float64 {
	rate := in.agg.SuccessRate
	recent := in.agg.RecentSuccessMean(rate)
	return clamp01(in.cfg.HistoryEMAWeight*rate + in.cfg.HistoryRecentWeight*recent)
}

// factorResponseTime rewards fast strategies, with an extra bonus for
// lightweight ones when the system is already under pressure.
func factorResponseTime(in factorInput) float64 {
	score := responseSpeed(in.agg.AvgResponseTime, in.cfg.ResponseTimeRef)
	if in.load > 0.7 && in.row.ResourceCost < 0.3 {
		score += 0.1
	}
	return clamp01(score)
}

// factorUserContext adjusts for who is waiting: VIPs pull toward
// higher-quality strategies, impatient users toward fast ones, patient
// users toward thorough ones.
func factorUserContext(in factorInput) float64 {
	score := 0.5
	if in.dc.User.IsVIP {
		score += 0.3 * in.row.Quality
	}
	switch {
	case in.dc.User.PatienceLevel < 0.4:
		speed := responseSpeed(in.agg.AvgResponseTime, in.cfg.ResponseTimeRef)
		score += 0.4 * (speed - 0.5)
	case in.dc.User.PatienceLevel > 0.7:
		score += 0.4 * (in.row.Quality - 0.5)
	}
	return clamp01(score)
}

// factorSystemLoad penalizes resource-heavy strategies in proportion to
// current system pressure.
func factorSystemLoad(in factorInput) float64 {
	return clamp01(1 - in.load*in.row.ResourceCost)
}

// factorTimeOfDay applies the strategy's business-hours or off-hours
// preference from its config row.
func factorTimeOfDay(in factorInput) float64 {
	hour := in.now.Hour()
	if hour >= in.cfg.BusinessHoursStart && hour < in.cfg.BusinessHoursEnd {
		return clamp01(in.row.BusinessHours)
	}
	return clamp01(in.row.OffHours)
}

// factorErrorPattern scores the strategy's fitness under the current
// failure trend: defensive strategies rate high while failures rise,
// aggressive retries while they fall.
func factorErrorPattern(in factorInput) float64 {
	switch in.trend {
	case trendRising:
		return clamp01(in.row.Pattern.Rising)
	case trendFalling:
		return clamp01(in.row.Pattern.Falling)
	default:
		return clamp01(in.row.Pattern.Stable)
	}
}

// factorBusinessPriority looks up the trigger's business urgency and
// applies tier and explicit priority rules from the request.
func factorBusinessPriority(in factorInput) float64 {
	score, ok := in.cfg.BusinessPriorities[string(in.dc.Trigger)]
	if !ok {
		score = 0.5
	}
	if in.dc.BusinessRules["tier"] == "premium" {
		score += in.cfg.PremiumTierBonus
	}
	switch in.dc.BusinessRules["priority"] {
	case "critical":
		score += 0.2
	case "high":
		score += 0.1
	case "low":
		score -= 0.1
	}
	return clamp01(score)
}

// factorCostEffectiveness scores success delivered per unit of configured
// cost, scaled into [0,1].
func factorCostEffectiveness(in factorInput) float64 {
	cost := in.row.CostWeight
	if cost <= 0 {
		cost = 1.0
	}
	return clamp01(in.agg.SuccessRate / cost * in.cfg.CostScale)
}

// factorUserSatisfaction blends the caller-reported satisfaction score,
// when present, with the strategy's configured baseline.
func factorUserSatisfaction(in factorInput) float64 {
	baseline := in.row.BaselineSatisfaction
	if in.dc.User.SatisfactionScore <= 0 {
		return clamp01(baseline)
	}
	w := in.cfg.SatisfactionUserWeight
	return clamp01(w*in.dc.User.SatisfactionScore + (1-w)*baseline)
}

// ═══════════════════════════════════════════════════════════════════════════════
// CONTEXT-WIDE SIGNALS
// ═══════════════════════════════════════════════════════════════════════════════

// systemLoad folds the metrics snapshot into a single [0,1] pressure
// signal: the worst of CPU, memory, network latency (1s saturates), and
// concurrency relative to the configured ceiling.
func systemLoad(m types.SystemMetrics, maxConcurrent int) float64 {
	if maxConcurrent <= 0 {
		maxConcurrent = 1000
	}
	load := m.CPU
	if m.Memory > load {
		load = m.Memory
	}
	if lat := m.NetworkLatencyMs / 1000.0; lat > load {
		load = lat
	}
	if conc := float64(m.ConcurrentRequests) / float64(maxConcurrent); conc > load {
		load = conc
	}
	return clamp01(load)
}

// detectTrend compares the failure rate of the older half of the pooled
// recent outcomes against the newer half. Changes under the 0.05
// hysteresis band, or fewer than four outcomes, read as stable.
func detectTrend(historical map[types.Strategy]types.Aggregates) errorTrend {
	var pooled []types.Outcome
	for _, agg := range historical {
		pooled = append(pooled, agg.Recent...)
	}
	if len(pooled) < 4 {
		return trendStable
	}
	sort.SliceStable(pooled, func(i, j int) bool {
		return pooled[i].At.Before(pooled[j].At)
	})

	half := len(pooled) / 2
	older := failureRate(pooled[:half])
	newer := failureRate(pooled[half:])
	switch {
	case newer-older > 0.05:
		return trendRising
	case older-newer > 0.05:
		return trendFalling
	default:
		return trendStable
	}
}

func failureRate(outcomes []types.Outcome) float64 {
	if len(outcomes) == 0 {
		return 0
	}
	failures := 0
	for _, o := range outcomes {
		if !o.Success {
			failures++
		}
	}
	return float64(failures) / float64(len(outcomes))
}

// responseSpeed maps a response time onto (0,1]: instant scores 1.0 and
// the reference time scores 0.5.
func responseSpeed(avgSeconds, refSeconds float64) float64 {
	if refSeconds <= 0 {
		refSeconds = 2.0
	}
	if avgSeconds < 0 {
		avgSeconds = 0
	}
	return 1.0 / (1.0 + avgSeconds/refSeconds)
}

// normalizedWeights reads the ten factor weights and rescales them to sum
// to exactly 1.0. Missing or negative entries count as zero; an all-zero
// table degrades to equal weights.
func normalizedWeights(cfg *config.DecisionConfig) map[string]float64 {
	weights := make(map[string]float64, len(types.AllFactors))
	sum := 0.0
	for _, name := range types.AllFactors {
		w := cfg.FactorWeights[name]
		if w < 0 {
			w = 0
		}
		weights[name] = w
		sum += w
	}
	if sum <= 0 {
		equal := 1.0 / float64(len(types.AllFactors))
		for _, name := range types.AllFactors {
			weights[name] = equal
		}
		return weights
	}
	if math.Abs(sum-1.0) > 1e-9 {
		for name, w := range weights {
			weights[name] = w / sum
		}
	}
	return weights
}

// factorStdDev measures how much the ten factors disagree; 0 means
// unanimous, 0.5 is the maximum possible spread on [0,1] scores.
func factorStdDev(factors map[string]float64) float64 {
	if len(factors) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range factors {
		mean += v
	}
	mean /= float64(len(factors))

	variance := 0.0
	for _, v := range factors {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(factors))
	return math.Sqrt(variance)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
