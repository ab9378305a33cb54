// Package types defines shared types used across all Arbiter modules.
package types

import (
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════════
// CONFIDENCE TYPES
// ═══════════════════════════════════════════════════════════════════════════════

// Source identifies where a confidence estimate came from.
type Source string

const (
	SourceModel   Source = "model"   // Derived from the language model's own estimate
	SourceRule    Source = "rule"    // Derived from the keyword-overlap matcher
	SourceContext Source = "context" // Derived from conversation-context evidence
	SourceHybrid  Source = "hybrid"  // Fusion of the three above
)

// Valid reports whether the source is a known member of the enumeration.
func (s Source) Valid() bool {
	switch s {
	case SourceModel, SourceRule, SourceContext, SourceHybrid:
		return true
	}
	return false
}

// ConfidenceScore is a calibrated confidence value with provenance.
// Immutable once produced.
type ConfidenceScore struct {
	Value       float64 `json:"value"` // 0.0 - 1.0
	Source      Source  `json:"source"`
	Explanation string  `json:"explanation"`
}

// Clamp01 bounds v to [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ═══════════════════════════════════════════════════════════════════════════════
// INTENT RECOGNITION TYPES
// ═══════════════════════════════════════════════════════════════════════════════

// Intent describes one candidate intent the recognizer can match against.
// The catalog of intents is supplied by the caller; storage is not modeled here.
type Intent struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Examples    []string `json:"examples,omitempty"` // Up to 3 are rendered into prompts
}

// Turn is one prior exchange in the conversation.
type Turn struct {
	Input      string    `json:"input"`
	IntentName string    `json:"intent_name,omitempty"`
	At         time.Time `json:"at"`
}

// ConversationContext carries the evidence used for context-derived confidence.
type ConversationContext struct {
	History     []Turn            `json:"history,omitempty"`
	FilledSlots map[string]string `json:"filled_slots,omitempty"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// LastIntent returns the intent of the most recent turn, or "" if none.
func (c *ConversationContext) LastIntent() string {
	if c == nil || len(c.History) == 0 {
		return ""
	}
	return c.History[len(c.History)-1].IntentName
}

// IntentCount returns how many prior turns resolved to the given intent.
func (c *ConversationContext) IntentCount(name string) int {
	if c == nil || name == "" {
		return 0
	}
	n := 0
	for _, t := range c.History {
		if t.IntentName == name {
			n++
		}
	}
	return n
}

// Alternative is a non-winning intent candidate with its score.
type Alternative struct {
	IntentName string  `json:"intent_name"`
	Score      float64 `json:"score"`
}

// RecognitionResult is the terminal artifact of one recognition attempt.
// IntentName == "" means the input could not be mapped to a known intent.
type RecognitionResult struct {
	IntentName   string        `json:"intent_name,omitempty"`
	Confidence   float64       `json:"confidence"` // 0.0 - 1.0, always
	Reasoning    string        `json:"reasoning"`
	Alternatives []Alternative `json:"alternatives,omitempty"` // Descending by score, at most 3
	RawInput     string        `json:"raw_input"`
}

// Unknown reports whether the result carries no recognized intent.
func (r *RecognitionResult) Unknown() bool {
	return r.IntentName == ""
}

// ═══════════════════════════════════════════════════════════════════════════════
// ERROR CLASSES
// ═══════════════════════════════════════════════════════════════════════════════

// ErrorClass is the trigger that starts a fallback decision.
type ErrorClass string

const (
	ErrorNetwork            ErrorClass = "network"
	ErrorTimeout            ErrorClass = "timeout"
	ErrorRateLimit          ErrorClass = "rate_limit"
	ErrorModelFormat        ErrorClass = "model_format_error"
	ErrorServiceUnavailable ErrorClass = "service_unavailable"
	ErrorAuth               ErrorClass = "auth"
	ErrorInternal           ErrorClass = "internal"
	ErrorLowConfidence      ErrorClass = "low_confidence"
	ErrorUnknown            ErrorClass = "unknown"
)

// AllErrorClasses lists every error class in declaration order.
var AllErrorClasses = []ErrorClass{
	ErrorNetwork,
	ErrorTimeout,
	ErrorRateLimit,
	ErrorModelFormat,
	ErrorServiceUnavailable,
	ErrorAuth,
	ErrorInternal,
	ErrorLowConfidence,
	ErrorUnknown,
}

// Valid reports whether the error class is a known member of the enumeration.
func (e ErrorClass) Valid() bool {
	for _, c := range AllErrorClasses {
		if e == c {
			return true
		}
	}
	return false
}

// ═══════════════════════════════════════════════════════════════════════════════
// FALLBACK STRATEGIES
// ═══════════════════════════════════════════════════════════════════════════════

// Strategy is a named remedial action. The enumeration is closed; declaration
// order is the canonical order used to break ranking ties.
type Strategy string

const (
	StrategyImmediate           Strategy = "immediate"            // Retry right away, once
	StrategyRetryThenFallback   Strategy = "retry_then_fallback"  // Bounded retries, then degrade
	StrategyCircuitBreaker      Strategy = "circuit_breaker"      // Stop calling the dependency for a cooldown
	StrategyGracefulDegradation Strategy = "graceful_degradation" // Reduced-quality answer from partial data
	StrategyCacheFallback       Strategy = "cache_fallback"       // Serve the last known good response
	StrategyAlternativeService  Strategy = "alternative_service"  // Switch to a backup provider
	StrategyDefaultResponse     Strategy = "default_response"     // Canned safe answer
)

// AllStrategies lists every strategy in canonical (tie-break) order.
var AllStrategies = []Strategy{
	StrategyImmediate,
	StrategyRetryThenFallback,
	StrategyCircuitBreaker,
	StrategyGracefulDegradation,
	StrategyCacheFallback,
	StrategyAlternativeService,
	StrategyDefaultResponse,
}

// Ordinal returns the strategy's position in canonical order, or
// len(AllStrategies) for unknown values so they always sort last.
func (s Strategy) Ordinal() int {
	for i, v := range AllStrategies {
		if s == v {
			return i
		}
	}
	return len(AllStrategies)
}

// Valid reports whether the strategy is a known member of the enumeration.
func (s Strategy) Valid() bool {
	return s.Ordinal() < len(AllStrategies)
}

// ═══════════════════════════════════════════════════════════════════════════════
// PERFORMANCE AGGREGATES
// ═══════════════════════════════════════════════════════════════════════════════

// Outcome is one recorded strategy execution result.
type Outcome struct {
	Success bool      `json:"success"`
	Latency float64   `json:"latency"` // Seconds
	At      time.Time `json:"at"`
}

// Aggregates holds the rolling performance statistics for one strategy.
// Owned exclusively by the performance tracker; consumers receive copies.
type Aggregates struct {
	SuccessRate     float64   `json:"success_rate"`      // EMA, 0.0 - 1.0
	AvgResponseTime float64   `json:"avg_response_time"` // Seconds, smoothed
	CostScore       float64   `json:"cost_score"`        // Relative cost, higher = pricier
	UsageCount      int64     `json:"usage_count"`
	Recent          []Outcome `json:"recent,omitempty"` // Oldest first, bounded by ring capacity
}

// RecentSuccessMean returns the success fraction of the recent window,
// or fallback when the window is empty.
func (a Aggregates) RecentSuccessMean(fallback float64) float64 {
	if len(a.Recent) == 0 {
		return fallback
	}
	hits := 0
	for _, o := range a.Recent {
		if o.Success {
			hits++
		}
	}
	return float64(hits) / float64(len(a.Recent))
}

// ═══════════════════════════════════════════════════════════════════════════════
// DECISION TYPES
// ═══════════════════════════════════════════════════════════════════════════════

// Factor names for the ten weighted decision factors. Shared between the
// engine, the configuration surface, and reporting.
const (
	FactorErrorFrequency    = "error_frequency"
	FactorHistoricalSuccess = "historical_success"
	FactorResponseTime      = "response_time"
	FactorUserContext       = "user_context"
	FactorSystemLoad        = "system_load"
	FactorTimeOfDay         = "time_of_day"
	FactorErrorPattern      = "error_pattern"
	FactorBusinessPriority  = "business_priority"
	FactorCostEffectiveness = "cost_effectiveness"
	FactorUserSatisfaction  = "user_satisfaction"
)

// AllFactors lists the ten factor names in canonical order.
var AllFactors = []string{
	FactorErrorFrequency,
	FactorHistoricalSuccess,
	FactorResponseTime,
	FactorUserContext,
	FactorSystemLoad,
	FactorTimeOfDay,
	FactorErrorPattern,
	FactorBusinessPriority,
	FactorCostEffectiveness,
	FactorUserSatisfaction,
}

// SystemMetrics is a snapshot of system pressure at decision time.
type SystemMetrics struct {
	CPU                float64 `json:"cpu"`    // 0.0 - 1.0 utilization
	Memory             float64 `json:"memory"` // 0.0 - 1.0 utilization
	NetworkLatencyMs   float64 `json:"network_latency_ms"`
	ConcurrentRequests int     `json:"concurrent_requests"`
}

// UserProfile carries the user-side evidence for a decision.
type UserProfile struct {
	UserID            string  `json:"user_id,omitempty"`
	IsVIP             bool    `json:"is_vip"`
	PatienceLevel     float64 `json:"patience_level"`               // 0.0 (none) - 1.0 (very patient)
	SatisfactionScore float64 `json:"satisfaction_score,omitempty"` // 0.0 - 1.0 historical satisfaction
}

// DecisionContext is the read-only snapshot a decision is made from.
// Built fresh per decision; never mutated after creation.
type DecisionContext struct {
	Trigger       ErrorClass              `json:"trigger"`
	Available     []Strategy              `json:"available"`
	Historical    map[Strategy]Aggregates `json:"historical,omitempty"`
	Metrics       SystemMetrics           `json:"metrics"`
	User          UserProfile             `json:"user"`
	BusinessRules map[string]string       `json:"business_rules,omitempty"`
	Timestamp     time.Time               `json:"timestamp"`
}

// StrategyScore is the per-strategy evaluation produced during one decision.
type StrategyScore struct {
	Strategy              Strategy           `json:"strategy"`
	Score                 float64            `json:"score"`
	Confidence            float64            `json:"confidence"` // 0.0 - 1.0
	Reasoning             []string           `json:"reasoning,omitempty"`
	Factors               map[string]float64 `json:"factors"` // Factor name -> normalized [0,1] score
	EstimatedSuccessRate  float64            `json:"estimated_success_rate"`
	EstimatedResponseTime float64            `json:"estimated_response_time"` // Seconds
	EstimatedCost         float64            `json:"estimated_cost"`
}

// DecisionResult is the terminal artifact of one decision cycle.
type DecisionResult struct {
	Recommended  Strategy          `json:"recommended"`
	Alternatives []Strategy        `json:"alternatives,omitempty"` // At most 2, descending by score
	Confidence   float64           `json:"confidence"`             // 0.0 - 1.0
	Reasoning    []string          `json:"reasoning"`
	Scores       []StrategyScore   `json:"scores,omitempty"` // Ranked, winner first
	DecisionTime float64           `json:"decision_time"`    // Seconds spent deciding
	Metadata     map[string]string `json:"metadata,omitempty"`
}
