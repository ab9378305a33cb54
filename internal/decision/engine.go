// Package decision implements the fallback strategy decision engine: ten
// weighted factor scores per candidate strategy, deterministic ranking,
// and a total always-answers contract. The engine only recommends;
// executing a strategy and reporting its outcome belong to the caller.
package decision

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rwalling/arbiter/internal/bus"
	"github.com/rwalling/arbiter/internal/config"
	"github.com/rwalling/arbiter/internal/data"
	"github.com/rwalling/arbiter/internal/logging"
	"github.com/rwalling/arbiter/pkg/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// ENGINE
// ═══════════════════════════════════════════════════════════════════════════════

// AggregatesSource provides per-strategy performance snapshots. The
// tracker satisfies this; decisions read through it so slight staleness
// is acceptable and never blocks.
type AggregatesSource interface {
	Get(strategy types.Strategy) types.Aggregates
}

// Engine scores candidate strategies and recommends one. Safe for
// concurrent use; the trigger window is its only mutable state.
type Engine struct {
	store  *config.Store
	perf   AggregatesSource
	db     *data.Store
	events *bus.Bus
	log    *logging.Logger

	mu       sync.Mutex
	triggers []types.ErrorClass
}

// New creates a decision engine. perf, db and events are all optional:
// without perf the engine falls back to neutral aggregates, without db
// no audit rows are written, without events nothing is published.
func New(store *config.Store, perf AggregatesSource, db *data.Store, events *bus.Bus) *Engine {
	if store == nil {
		store = config.NewStore(config.Default())
	}
	return &Engine{
		store:  store,
		perf:   perf,
		db:     db,
		events: events,
		log:    logging.Global().WithComponent("DecisionEngine"),
	}
}

// Decide evaluates every available strategy against the context and
// returns the best one. The contract is total: an empty candidate set or
// an internal fault yields the configured default strategy at confidence
// zero, never an error or a panic.
func (e *Engine) Decide(ctx context.Context, dc types.DecisionContext) (result types.DecisionResult) {
	start := time.Now()
	decisionID := uuid.New().String()

	defer func() {
		if r := recover(); r != nil {
			e.log.Error("Decision %s panicked: %v", decisionID, r)
			result = e.degraded(decisionID, string(dc.Trigger), fmt.Sprintf("internal fault during decision: %v", r), start)
		}
	}()

	cfg := e.store.Get()
	dcfg := &cfg.Decision

	// =========================================================================
	// PHASE 1: Context-wide signals
	// =========================================================================

	freq := e.observeTrigger(dc.Trigger, dcfg.TriggerWindow)
	load := systemLoad(dc.Metrics, dcfg.MaxConcurrent)
	now := dc.Timestamp
	if now.IsZero() {
		now = time.Now()
	}

	// =========================================================================
	// PHASE 2: Nothing to evaluate
	// =========================================================================

	if len(dc.Available) == 0 {
		result = e.degraded(decisionID, string(dc.Trigger), "no strategies were available to evaluate", start)
		e.finish(ctx, &dc, &result)
		return result
	}

	// =========================================================================
	// PHASE 3: Score every candidate
	// =========================================================================

	// The trend reads the same aggregates the scoring will use: the
	// context snapshot where provided, the live tracker elsewhere.
	aggs := make(map[types.Strategy]types.Aggregates, len(dc.Available))
	for _, strategy := range dc.Available {
		aggs[strategy] = e.aggregatesFor(&dc, strategy)
	}
	trend := detectTrend(aggs)

	e.log.Debug("Decision %s: trigger %s (freq %.2f), load %.2f, trend %s",
		decisionID, dc.Trigger, freq, load, trend)

	weights := normalizedWeights(dcfg)
	scores := make([]types.StrategyScore, 0, len(dc.Available))

	for _, strategy := range dc.Available {
		agg := aggs[strategy]
		row := strategyRow(cfg, strategy)

		factors := computeFactors(factorInput{
			strategy:    strategy,
			row:         row,
			agg:         agg,
			dc:          &dc,
			cfg:         dcfg,
			triggerFreq: freq,
			load:        load,
			trend:       trend,
			now:         now,
		})

		score := 0.0
		for name, value := range factors {
			score += weights[name] * value
		}
		confidence := clamp01(dcfg.ConfidenceStabilityWeight*(1-2*factorStdDev(factors)) +
			dcfg.ConfidenceScoreWeight*score)

		top := topFactors(factors, weights, 2)
		scores = append(scores, types.StrategyScore{
			Strategy:              strategy,
			Score:                 score,
			Confidence:            confidence,
			Reasoning:             []string{fmt.Sprintf("led by %s and %s", top[0], top[1])},
			Factors:               factors,
			EstimatedSuccessRate:  factors[types.FactorHistoricalSuccess],
			EstimatedResponseTime: agg.AvgResponseTime,
			EstimatedCost:         row.CostWeight,
		})
	}

	// =========================================================================
	// PHASE 4: Rank (deterministic: ties fall back to enumeration order)
	// =========================================================================

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Strategy.Ordinal() < scores[j].Strategy.Ordinal()
	})

	// =========================================================================
	// PHASE 5: Assemble, publish, audit
	// =========================================================================

	winner := scores[0]

	maxAlt := dcfg.MaxAlternatives
	if maxAlt < 0 {
		maxAlt = 0
	}
	var alternatives []types.Strategy
	for i := 1; i < len(scores) && len(alternatives) < maxAlt; i++ {
		alternatives = append(alternatives, scores[i].Strategy)
	}

	marginTerm := 1.0 // an unopposed winner carries full margin
	gap := 0.0
	if len(scores) > 1 {
		gap = winner.Score - scores[1].Score
		marginTerm = clamp01(gap * dcfg.MarginScale)
	}
	confidence := clamp01(dcfg.MarginWinnerWeight*winner.Confidence + dcfg.MarginGapWeight*marginTerm)

	top := topFactors(winner.Factors, weights, 2)
	reasoning := []string{
		fmt.Sprintf("dominant factors: %s (%.2f), %s (%.2f)",
			top[0], winner.Factors[top[0]], top[1], winner.Factors[top[1]]),
		fmt.Sprintf("estimated success rate %.0f%% at %.2fs response time",
			winner.EstimatedSuccessRate*100, winner.EstimatedResponseTime),
	}
	if len(alternatives) > 0 {
		reasoning = append(reasoning, fmt.Sprintf("margin of %.3f over %s", gap, scores[1].Strategy))
	}

	result = types.DecisionResult{
		Recommended:  winner.Strategy,
		Alternatives: alternatives,
		Confidence:   confidence,
		Reasoning:    reasoning,
		Scores:       scores,
		DecisionTime: time.Since(start).Seconds(),
		Metadata: map[string]string{
			"decision_id": decisionID,
			"trigger":     string(dc.Trigger),
		},
	}

	e.log.Info("Decided %s for %s (score %.3f, confidence %.2f, %d candidates)",
		winner.Strategy, dc.Trigger, winner.Score, confidence, len(scores))

	e.finish(ctx, &dc, &result)
	return result
}

// ═══════════════════════════════════════════════════════════════════════════════
// SUPPORTING PIECES
// ═══════════════════════════════════════════════════════════════════════════════

// aggregatesFor prefers the snapshot carried by the context, then the
// live tracker, then neutral priors.
func (e *Engine) aggregatesFor(dc *types.DecisionContext, strategy types.Strategy) types.Aggregates {
	if agg, ok := dc.Historical[strategy]; ok {
		return agg
	}
	if e.perf != nil {
		return e.perf.Get(strategy)
	}
	return types.Aggregates{SuccessRate: 0.5, AvgResponseTime: 1.0, CostScore: 1.0}
}

// observeTrigger records the trigger in the bounded window and returns
// how much of the window's capacity that class now occupies. Cold starts
// read as infrequent on purpose.
func (e *Engine) observeTrigger(trigger types.ErrorClass, window int) float64 {
	if trigger == "" {
		return 0
	}
	if window <= 0 {
		window = 50
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.triggers = append(e.triggers, trigger)
	if len(e.triggers) > window {
		e.triggers = e.triggers[len(e.triggers)-window:]
	}
	matches := 0
	for _, t := range e.triggers {
		if t == trigger {
			matches++
		}
	}
	return float64(matches) / float64(window)
}

// degraded builds the always-valid fallback result used for empty
// candidate sets and recovered faults.
func (e *Engine) degraded(decisionID, trigger, reason string, start time.Time) types.DecisionResult {
	fallback := types.Strategy(e.store.Get().Decision.DefaultStrategy)
	if fallback == "" {
		fallback = types.StrategyDefaultResponse
	}
	return types.DecisionResult{
		Recommended:  fallback,
		Confidence:   0.0,
		Reasoning:    []string{reason},
		DecisionTime: time.Since(start).Seconds(),
		Metadata: map[string]string{
			"decision_id": decisionID,
			"trigger":     trigger,
			"degraded":    "true",
		},
	}
}

// finish publishes the decision event and appends the audit row. Both
// are best-effort and never fail the decision.
func (e *Engine) finish(ctx context.Context, dc *types.DecisionContext, result *types.DecisionResult) {
	decisionID := result.Metadata["decision_id"]
	score := 0.0
	if len(result.Scores) > 0 {
		score = result.Scores[0].Score
	}

	if e.events != nil {
		e.events.Publish(bus.NewDecisionEvent(decisionID, string(result.Recommended),
			string(dc.Trigger), score, result.Confidence))
	}

	if e.db != nil {
		// A decision that was made is a decision that happened: the audit
		// row is written even when the caller's context has expired.
		actx, cancel := logging.DetachContextWithTimeout(ctx, 5*time.Second)
		defer cancel()
		err := e.db.AppendDecision(actx, &data.DecisionRecord{
			DecisionID: decisionID,
			ErrorClass: string(dc.Trigger),
			Strategy:   string(result.Recommended),
			Score:      score,
			Confidence: result.Confidence,
			Reasoning:  strings.Join(result.Reasoning, "; "),
			CreatedAt:  time.Now().UTC(),
		})
		if err != nil {
			e.log.Warn("Failed to audit decision %s: %v", decisionID, err)
		}
	}
}

// strategyRow looks up the strategy's tuning row, falling back to a
// neutral row for strategies missing from configuration.
func strategyRow(cfg *config.Config, strategy types.Strategy) config.StrategyConfig {
	if row, ok := cfg.Strategies[string(strategy)]; ok {
		return row
	}
	return config.StrategyConfig{
		CostWeight:           1.0,
		ResourceCost:         0.5,
		Quality:              0.5,
		BaselineSatisfaction: 0.5,
		BusinessHours:        0.5,
		OffHours:             0.5,
		Pattern:              config.PatternScores{Rising: 0.5, Falling: 0.5, Stable: 0.5},
	}
}

// topFactors returns the n factor names with the largest weighted
// contribution, ties resolved by canonical factor order.
func topFactors(factors, weights map[string]float64, n int) []string {
	names := make([]string, len(types.AllFactors))
	copy(names, types.AllFactors)
	sort.SliceStable(names, func(i, j int) bool {
		return weights[names[i]]*factors[names[i]] > weights[names[j]]*factors[names[j]]
	})
	if n > len(names) {
		n = len(names)
	}
	return names[:n]
}
