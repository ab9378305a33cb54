package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rwalling/arbiter/pkg/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// STRATEGY OUTCOME OPERATIONS
// ═══════════════════════════════════════════════════════════════════════════════

// AppendOutcome appends one strategy execution result to the outcome history.
func (s *Store) AppendOutcome(ctx context.Context, strategy string, outcome types.Outcome) error {
	if strategy == "" {
		return fmt.Errorf("strategy cannot be empty")
	}

	at := outcome.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	query := `
		INSERT INTO strategy_outcomes (strategy, success, latency_seconds, recorded_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query, strategy, boolToInt(outcome.Success), outcome.Latency, at)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}

	return nil
}

// RecentOutcomes returns the newest outcomes for a strategy, oldest first,
// so the result can be replayed straight into a recent-outcome ring.
func (s *Store) RecentOutcomes(ctx context.Context, strategy string, limit int) ([]types.Outcome, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := `
		SELECT success, latency_seconds, recorded_at
		FROM strategy_outcomes
		WHERE strategy = ?
		ORDER BY id DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, strategy, limit)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []types.Outcome
	for rows.Next() {
		var o types.Outcome
		var success int
		if err := rows.Scan(&success, &o.Latency, &o.At); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.Success = success != 0
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}

	// Reverse into chronological order
	for i, j := 0, len(outcomes)-1; i < j; i, j = i+1, j-1 {
		outcomes[i], outcomes[j] = outcomes[j], outcomes[i]
	}

	return outcomes, nil
}

// CountOutcomes returns how many outcome rows exist for a strategy, or for
// all strategies when strategy is empty.
func (s *Store) CountOutcomes(ctx context.Context, strategy string) (int64, error) {
	var row *sql.Row
	if strategy == "" {
		row = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM strategy_outcomes")
	} else {
		row = s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM strategy_outcomes WHERE strategy = ?", strategy)
	}

	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count outcomes: %w", err)
	}
	return n, nil
}

// PruneOutcomes deletes outcome rows recorded before the cutoff. Returns
// the number of rows removed.
func (s *Store) PruneOutcomes(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM strategy_outcomes WHERE recorded_at < ?", before)
	if err != nil {
		return 0, fmt.Errorf("prune outcomes: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count pruned outcomes: %w", err)
	}
	return n, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// STRATEGY AGGREGATE OPERATIONS
// ═══════════════════════════════════════════════════════════════════════════════

// SaveAggregates upserts the rolling aggregates for a strategy. The recent
// window is not stored here; it is rebuilt from strategy_outcomes.
func (s *Store) SaveAggregates(ctx context.Context, strategy string, agg types.Aggregates) error {
	if strategy == "" {
		return fmt.Errorf("strategy cannot be empty")
	}

	query := `
		INSERT INTO strategy_aggregates (strategy, success_rate, avg_response_time, usage_count, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(strategy) DO UPDATE SET
			success_rate = excluded.success_rate,
			avg_response_time = excluded.avg_response_time,
			usage_count = excluded.usage_count,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		strategy, agg.SuccessRate, agg.AvgResponseTime, agg.UsageCount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert aggregates: %w", err)
	}

	return nil
}

// LoadAggregates returns the stored aggregates for every strategy that has
// a row. Recent windows are left empty for the caller to rebuild.
func (s *Store) LoadAggregates(ctx context.Context) (map[string]types.Aggregates, error) {
	query := `
		SELECT strategy, success_rate, avg_response_time, usage_count
		FROM strategy_aggregates
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query aggregates: %w", err)
	}
	defer rows.Close()

	result := make(map[string]types.Aggregates)
	for rows.Next() {
		var strategy string
		var agg types.Aggregates
		if err := rows.Scan(&strategy, &agg.SuccessRate, &agg.AvgResponseTime, &agg.UsageCount); err != nil {
			return nil, fmt.Errorf("scan aggregates: %w", err)
		}
		result[strategy] = agg
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aggregates: %w", err)
	}

	return result, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// DECISION AUDIT OPERATIONS
// ═══════════════════════════════════════════════════════════════════════════════

// DecisionRecord is one row of the decision audit log.
type DecisionRecord struct {
	DecisionID string
	ErrorClass string
	Strategy   string
	Score      float64
	Confidence float64
	Reasoning  string
	Intent     string
	CreatedAt  time.Time
}

// AppendDecision appends one decision to the audit log.
func (s *Store) AppendDecision(ctx context.Context, rec *DecisionRecord) error {
	if rec.DecisionID == "" {
		return fmt.Errorf("decision ID cannot be empty")
	}

	at := rec.CreatedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	query := `
		INSERT INTO decision_log (decision_id, error_class, strategy, score, confidence, reasoning, intent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.DecisionID, rec.ErrorClass, rec.Strategy, rec.Score, rec.Confidence,
		rec.Reasoning, rec.Intent, at)
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}

	return nil
}

// RecentDecisions returns the newest audit rows, newest first.
func (s *Store) RecentDecisions(ctx context.Context, limit int) ([]*DecisionRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT decision_id, error_class, strategy, score, confidence, reasoning, intent, created_at
		FROM decision_log
		ORDER BY id DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var records []*DecisionRecord
	for rows.Next() {
		var rec DecisionRecord
		if err := rows.Scan(&rec.DecisionID, &rec.ErrorClass, &rec.Strategy,
			&rec.Score, &rec.Confidence, &rec.Reasoning, &rec.Intent, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decisions: %w", err)
	}

	return records, nil
}

// boolToInt converts a bool to SQLite's integer representation.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
