package decision

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwalling/arbiter/internal/bus"
	"github.com/rwalling/arbiter/internal/config"
	"github.com/rwalling/arbiter/internal/data"
	"github.com/rwalling/arbiter/internal/tracker"
	"github.com/rwalling/arbiter/pkg/types"
)

// businessHoursStamp keeps the time-of-day factor on a known branch.
var businessHoursStamp = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, mutate func(*config.Config)) *Engine {
	t.Helper()

	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	return New(config.NewStore(cfg), nil, nil, nil)
}

// timeoutContext is the canonical two-candidate race: the circuit breaker
// has the better track record against a mediocre immediate retry.
func timeoutContext() types.DecisionContext {
	return types.DecisionContext{
		Trigger: types.ErrorTimeout,
		Available: []types.Strategy{
			types.StrategyImmediate,
			types.StrategyCircuitBreaker,
		},
		Historical: map[types.Strategy]types.Aggregates{
			types.StrategyImmediate:      {SuccessRate: 0.5, AvgResponseTime: 0.5},
			types.StrategyCircuitBreaker: {SuccessRate: 0.9, AvgResponseTime: 0.3},
		},
		User:      types.UserProfile{PatienceLevel: 0.5},
		Timestamp: businessHoursStamp,
	}
}

func ranking(result types.DecisionResult) []types.Strategy {
	out := make([]types.Strategy, len(result.Scores))
	for i, s := range result.Scores {
		out[i] = s.Strategy
	}
	return out
}

// ═══════════════════════════════════════════════════════════════════════════════
// CORE SCENARIOS
// ═══════════════════════════════════════════════════════════════════════════════

func TestDecidePrefersProvenStrategyOnTimeout(t *testing.T) {
	engine := newTestEngine(t, nil)

	result := engine.Decide(context.Background(), timeoutContext())

	assert.Equal(t, types.StrategyCircuitBreaker, result.Recommended)
	assert.Equal(t, []types.Strategy{types.StrategyImmediate}, result.Alternatives)

	require.Len(t, result.Scores, 2)
	assert.Equal(t, types.StrategyCircuitBreaker, result.Scores[0].Strategy)
	assert.Greater(t, result.Scores[0].Score, result.Scores[1].Score)

	assert.Greater(t, result.Confidence, 0.0)
	assert.LessOrEqual(t, result.Confidence, 1.0)

	require.Len(t, result.Reasoning, 3)
	assert.Contains(t, result.Reasoning[0], "dominant factors")
	assert.Contains(t, result.Reasoning[1], "90%")
	assert.Contains(t, result.Reasoning[2], "margin of")

	for _, score := range result.Scores {
		require.Len(t, score.Factors, len(types.AllFactors))
		for name, value := range score.Factors {
			assert.GreaterOrEqual(t, value, 0.0, "factor %s", name)
			assert.LessOrEqual(t, value, 1.0, "factor %s", name)
		}
	}
}

func TestDecideEmptySetReturnsDefault(t *testing.T) {
	engine := newTestEngine(t, nil)

	result := engine.Decide(context.Background(), types.DecisionContext{
		Trigger:   types.ErrorServiceUnavailable,
		Timestamp: businessHoursStamp,
	})

	assert.Equal(t, types.StrategyDefaultResponse, result.Recommended)
	assert.Zero(t, result.Confidence)
	assert.Empty(t, result.Alternatives)
	require.NotEmpty(t, result.Reasoning)
	assert.Contains(t, result.Reasoning[0], "no strategies were available")
	assert.Equal(t, "true", result.Metadata["degraded"])
}

func TestDecideDeterministicRanking(t *testing.T) {
	engine := newTestEngine(t, nil)

	dc := timeoutContext()
	dc.Available = append(dc.Available, types.StrategyGracefulDegradation)
	dc.Historical[types.StrategyGracefulDegradation] = types.Aggregates{SuccessRate: 0.7, AvgResponseTime: 0.8}

	first := engine.Decide(context.Background(), dc)
	second := engine.Decide(context.Background(), dc)

	assert.Equal(t, ranking(first), ranking(second))
	assert.Equal(t, first.Recommended, second.Recommended)
	assert.Equal(t, first.Alternatives, second.Alternatives)
}

func TestDecideRecommendsFromAvailableSet(t *testing.T) {
	engine := newTestEngine(t, nil)

	sets := [][]types.Strategy{
		{types.StrategyDefaultResponse},
		{types.StrategyCacheFallback, types.StrategyAlternativeService},
		{types.StrategyRetryThenFallback, types.StrategyGracefulDegradation, types.StrategyImmediate},
		types.AllStrategies,
	}
	for _, available := range sets {
		result := engine.Decide(context.Background(), types.DecisionContext{
			Trigger:   types.ErrorNetwork,
			Available: available,
			Timestamp: businessHoursStamp,
		})
		assert.Contains(t, available, result.Recommended)
		assert.LessOrEqual(t, len(result.Alternatives), 2)
		for _, alt := range result.Alternatives {
			assert.Contains(t, available, alt)
		}
	}
}

func TestDecideTieBreaksByEnumOrder(t *testing.T) {
	engine := newTestEngine(t, func(cfg *config.Config) {
		// Identical tuning rows force an exact score tie
		cfg.Strategies[string(types.StrategyCacheFallback)] = cfg.Strategies[string(types.StrategyImmediate)]
	})

	same := types.Aggregates{SuccessRate: 0.6, AvgResponseTime: 0.5}
	result := engine.Decide(context.Background(), types.DecisionContext{
		Trigger: types.ErrorTimeout,
		Available: []types.Strategy{
			types.StrategyCacheFallback, // listed first, loses on enumeration order
			types.StrategyImmediate,
		},
		Historical: map[types.Strategy]types.Aggregates{
			types.StrategyCacheFallback: same,
			types.StrategyImmediate:     same,
		},
		User:      types.UserProfile{PatienceLevel: 0.5},
		Timestamp: businessHoursStamp,
	})

	require.Len(t, result.Scores, 2)
	assert.InDelta(t, result.Scores[0].Score, result.Scores[1].Score, 1e-12)
	assert.Equal(t, types.StrategyImmediate, result.Recommended)
}

func TestDecideRenormalizesLopsidedWeights(t *testing.T) {
	engine := newTestEngine(t, func(cfg *config.Config) {
		// Sums to 10, not 1 — after renormalization the score must equal
		// the historical-success factor exactly.
		cfg.Decision.FactorWeights = map[string]float64{
			types.FactorHistoricalSuccess: 10.0,
		}
	})

	result := engine.Decide(context.Background(), timeoutContext())

	require.Len(t, result.Scores, 2)
	assert.Equal(t, types.StrategyCircuitBreaker, result.Recommended)
	assert.InDelta(t, 0.9, result.Scores[0].Score, 1e-9)
	assert.InDelta(t, 0.5, result.Scores[1].Score, 1e-9)
}

// ═══════════════════════════════════════════════════════════════════════════════
// DEGRADATION AND WIRING
// ═══════════════════════════════════════════════════════════════════════════════

type panicSource struct{}

func (panicSource) Get(types.Strategy) types.Aggregates {
	panic("snapshot torn")
}

func TestDecideRecoversFromInternalFault(t *testing.T) {
	engine := New(config.NewStore(config.Default()), panicSource{}, nil, nil)

	dc := types.DecisionContext{
		Trigger:   types.ErrorInternal,
		Available: []types.Strategy{types.StrategyImmediate},
		Timestamp: businessHoursStamp,
	}

	var result types.DecisionResult
	assert.NotPanics(t, func() {
		result = engine.Decide(context.Background(), dc)
	})
	assert.Equal(t, types.StrategyDefaultResponse, result.Recommended)
	assert.Zero(t, result.Confidence)
	require.NotEmpty(t, result.Reasoning)
	assert.Contains(t, result.Reasoning[0], "internal fault during decision")
	assert.Equal(t, "true", result.Metadata["degraded"])
}

func TestDecideUnopposedWinner(t *testing.T) {
	engine := newTestEngine(t, nil)

	dc := timeoutContext()
	dc.Available = []types.Strategy{types.StrategyCircuitBreaker}

	result := engine.Decide(context.Background(), dc)

	assert.Equal(t, types.StrategyCircuitBreaker, result.Recommended)
	assert.Empty(t, result.Alternatives)
	assert.Len(t, result.Reasoning, 2) // no margin line without a runner-up
	assert.Greater(t, result.Confidence, 0.0)
}

func TestDecideConfidenceReflectsMargin(t *testing.T) {
	engine := newTestEngine(t, nil)

	narrow := timeoutContext()
	narrow.Historical = map[types.Strategy]types.Aggregates{
		types.StrategyImmediate:      {SuccessRate: 0.79, AvgResponseTime: 0.5},
		types.StrategyCircuitBreaker: {SuccessRate: 0.80, AvgResponseTime: 0.5},
	}
	blowout := timeoutContext()
	blowout.Historical = map[types.Strategy]types.Aggregates{
		types.StrategyImmediate:      {SuccessRate: 0.2, AvgResponseTime: 0.5},
		types.StrategyCircuitBreaker: {SuccessRate: 0.95, AvgResponseTime: 0.5},
	}

	tight := engine.Decide(context.Background(), narrow)
	decisive := engine.Decide(context.Background(), blowout)

	assert.Greater(t, decisive.Confidence, tight.Confidence)
}

func TestDecideReadsTrackerWhenContextHasNoSnapshot(t *testing.T) {
	store := config.NewStore(config.Default())
	perf := tracker.New(store, nil, nil)
	for i := 0; i < 5; i++ {
		perf.RecordOutcome(types.StrategyCacheFallback, true, 100*time.Millisecond)
	}

	engine := New(store, perf, nil, nil)
	result := engine.Decide(context.Background(), types.DecisionContext{
		Trigger:   types.ErrorTimeout,
		Available: []types.Strategy{types.StrategyImmediate, types.StrategyCacheFallback},
		User:      types.UserProfile{PatienceLevel: 0.5},
		Timestamp: businessHoursStamp,
	})

	assert.Equal(t, types.StrategyCacheFallback, result.Recommended)
	require.Len(t, result.Scores, 2)
	assert.InDelta(t, 0.1, result.Scores[0].EstimatedResponseTime, 1e-9)
}

func TestDecidePublishesEvent(t *testing.T) {
	events := bus.NewBusWithConfig(16, 8)
	defer events.Close()

	engine := New(config.NewStore(config.Default()), nil, nil, events)
	result := engine.Decide(context.Background(), timeoutContext())

	history := events.GetHistory()
	require.Len(t, history, 1)
	assert.Equal(t, bus.EventDecisionMade, history[0].Type)
	assert.Equal(t, string(types.StrategyCircuitBreaker), history[0].Strategy)
	assert.Equal(t, string(types.ErrorTimeout), history[0].ErrorClass)
	assert.Equal(t, result.Metadata["decision_id"], history[0].RequestID)
	assert.InDelta(t, result.Confidence, history[0].Confidence, 1e-9)
}

func TestDecideAuditTrail(t *testing.T) {
	db, err := data.NewDB(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	engine := New(config.NewStore(config.Default()), nil, db, nil)

	won := engine.Decide(context.Background(), timeoutContext())
	degraded := engine.Decide(context.Background(), types.DecisionContext{
		Trigger:   types.ErrorAuth,
		Timestamp: businessHoursStamp,
	})

	records, err := db.RecentDecisions(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Newest first
	assert.Equal(t, degraded.Metadata["decision_id"], records[0].DecisionID)
	assert.Equal(t, string(types.StrategyDefaultResponse), records[0].Strategy)
	assert.Zero(t, records[0].Confidence)
	assert.Equal(t, string(types.ErrorAuth), records[0].ErrorClass)

	assert.Equal(t, won.Metadata["decision_id"], records[1].DecisionID)
	assert.Equal(t, string(types.StrategyCircuitBreaker), records[1].Strategy)
	assert.Contains(t, records[1].Reasoning, "dominant factors")
}
