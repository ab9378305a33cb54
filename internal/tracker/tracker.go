// Package tracker maintains rolling performance aggregates per fallback
// strategy: an EMA success rate, a smoothed response time, and a bounded
// recent-outcome window. Updates for the same strategy are serialized;
// different strategies update independently. Reads hand out copies, so a
// snapshot taken mid-burst is stale but never torn.
package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rwalling/arbiter/internal/bus"
	"github.com/rwalling/arbiter/internal/config"
	"github.com/rwalling/arbiter/internal/data"
	"github.com/rwalling/arbiter/internal/logging"
	"github.com/rwalling/arbiter/pkg/types"
)

// Tracker owns the per-strategy aggregates. Safe for concurrent use.
type Tracker struct {
	store  *config.Store
	db     *data.Store
	events *bus.Bus
	log    *logging.Logger

	mu      sync.RWMutex
	entries map[types.Strategy]*entry
}

// entry serializes updates for one strategy.
type entry struct {
	mu  sync.Mutex
	agg types.Aggregates
}

// New creates a tracker seeded from the per-strategy config table. A nil
// store falls back to built-in defaults; db enables write-through
// persistence (nil disables it); events enables outcome.recorded events.
func New(store *config.Store, db *data.Store, events *bus.Bus) *Tracker {
	if store == nil {
		store = config.NewStore(config.Default())
	}

	t := &Tracker{
		store:   store,
		db:      db,
		events:  events,
		log:     logging.Global().WithComponent("Tracker"),
		entries: make(map[types.Strategy]*entry),
	}

	cfg := store.Get()
	for _, s := range types.AllStrategies {
		t.entries[s] = &entry{agg: seedAggregates(s, cfg)}
	}

	return t
}

// Restore replaces seeded aggregates with persisted state. Strategies
// without a stored row keep their seeds. No-op without a database.
func (t *Tracker) Restore(ctx context.Context) error {
	if t.db == nil {
		return nil
	}

	stored, err := t.db.LoadAggregates(ctx)
	if err != nil {
		return fmt.Errorf("load aggregates: %w", err)
	}

	windowSize := t.trackerConfig().WindowSize
	restored := 0
	for name, agg := range stored {
		strategy := types.Strategy(name)
		if !strategy.Valid() {
			t.log.Warn("Skipping stored aggregates for unknown strategy %q", name)
			continue
		}

		recent, err := t.db.RecentOutcomes(ctx, name, windowSize)
		if err != nil {
			return fmt.Errorf("load recent outcomes for %s: %w", name, err)
		}

		e := t.entry(strategy)
		e.mu.Lock()
		costScore := e.agg.CostScore // cost comes from config, not the database
		e.agg = agg
		e.agg.CostScore = costScore
		e.agg.Recent = recent
		e.mu.Unlock()
		restored++
	}

	if restored > 0 {
		t.log.Info("Restored aggregates for %d strategies", restored)
	}
	return nil
}

// RecordOutcome folds one execution result into the strategy's aggregates.
// Total contract: bookkeeping errors are logged, never returned.
func (t *Tracker) RecordOutcome(strategy types.Strategy, success bool, latency time.Duration) {
	if strategy == "" {
		return
	}

	cfg := t.trackerConfig()
	outcome := types.Outcome{
		Success: success,
		Latency: latency.Seconds(),
		At:      time.Now().UTC(),
	}

	e := t.entry(strategy)
	e.mu.Lock()

	e.agg.Recent = append(e.agg.Recent, outcome)
	if cfg.WindowSize > 0 && len(e.agg.Recent) > cfg.WindowSize {
		e.agg.Recent = e.agg.Recent[len(e.agg.Recent)-cfg.WindowSize:]
	}

	successMean, latencyMean := windowMeans(e.agg.Recent)
	e.agg.SuccessRate = cfg.HistoryWeight*e.agg.SuccessRate + cfg.RecentWeight*successMean
	e.agg.AvgResponseTime = cfg.HistoryWeight*e.agg.AvgResponseTime + cfg.RecentWeight*latencyMean
	e.agg.UsageCount++

	snapshot := cloneAggregates(e.agg)
	e.mu.Unlock()

	if cfg.Persist && t.db != nil {
		t.persist(strategy, outcome, snapshot)
	}

	if t.events != nil {
		_ = t.events.Publish(bus.NewOutcomeEvent(string(strategy), "", success, latency))
	}

	t.log.Debug("Recorded %s outcome for %s: rate %.3f over %d uses",
		resultWord(success), strategy, snapshot.SuccessRate, snapshot.UsageCount)
}

// Get returns a copy of one strategy's aggregates. Unknown strategies
// return seeded defaults without creating state.
func (t *Tracker) Get(strategy types.Strategy) types.Aggregates {
	t.mu.RLock()
	e, ok := t.entries[strategy]
	t.mu.RUnlock()
	if !ok {
		return seedAggregates(strategy, t.store.Get())
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneAggregates(e.agg)
}

// Snapshot returns a copy of every tracked strategy's aggregates.
func (t *Tracker) Snapshot() map[types.Strategy]types.Aggregates {
	t.mu.RLock()
	keys := make([]types.Strategy, 0, len(t.entries))
	for s := range t.entries {
		keys = append(keys, s)
	}
	t.mu.RUnlock()

	result := make(map[types.Strategy]types.Aggregates, len(keys))
	for _, s := range keys {
		result[s] = t.Get(s)
	}
	return result
}

// entry returns the serialization point for a strategy, creating it on
// first use so unconfigured strategies can still learn.
func (t *Tracker) entry(strategy types.Strategy) *entry {
	t.mu.RLock()
	e, ok := t.entries[strategy]
	t.mu.RUnlock()
	if ok {
		return e
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok = t.entries[strategy]; ok {
		return e
	}
	e = &entry{agg: seedAggregates(strategy, t.store.Get())}
	t.entries[strategy] = e
	return e
}

// persist writes the outcome and aggregates through to the database.
func (t *Tracker) persist(strategy types.Strategy, outcome types.Outcome, agg types.Aggregates) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := t.db.AppendOutcome(ctx, string(strategy), outcome); err != nil {
		t.log.Warn("Failed to persist outcome for %s: %v", strategy, err)
		return
	}
	if err := t.db.SaveAggregates(ctx, string(strategy), agg); err != nil {
		t.log.Warn("Failed to persist aggregates for %s: %v", strategy, err)
	}
}

func (t *Tracker) trackerConfig() config.TrackerConfig {
	cfg := t.store.Get().Tracker
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = config.Default().Tracker.WindowSize
	}
	if cfg.HistoryWeight+cfg.RecentWeight <= 0 {
		defaults := config.Default().Tracker
		cfg.HistoryWeight = defaults.HistoryWeight
		cfg.RecentWeight = defaults.RecentWeight
	}
	return cfg
}

// seedAggregates builds the pre-outcome aggregates for a strategy from its
// config row. Strategies without a row get neutral priors.
func seedAggregates(strategy types.Strategy, cfg *config.Config) types.Aggregates {
	row, ok := cfg.Strategies[string(strategy)]
	if !ok {
		return types.Aggregates{SuccessRate: 0.5, AvgResponseTime: 1.0, CostScore: 1.0}
	}
	return types.Aggregates{
		SuccessRate:     row.SeedSuccessRate,
		AvgResponseTime: row.SeedResponseTime,
		CostScore:       row.CostWeight,
	}
}

// windowMeans returns the success fraction and mean latency of the window.
func windowMeans(recent []types.Outcome) (successMean, latencyMean float64) {
	if len(recent) == 0 {
		return 0, 0
	}

	hits := 0
	var latencySum float64
	for _, o := range recent {
		if o.Success {
			hits++
		}
		latencySum += o.Latency
	}
	n := float64(len(recent))
	return float64(hits) / n, latencySum / n
}

func cloneAggregates(agg types.Aggregates) types.Aggregates {
	out := agg
	out.Recent = append([]types.Outcome(nil), agg.Recent...)
	return out
}

func resultWord(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
