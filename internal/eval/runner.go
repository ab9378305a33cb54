package eval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rwalling/arbiter/internal/bus"
	"github.com/rwalling/arbiter/internal/config"
	"github.com/rwalling/arbiter/internal/decision"
	"github.com/rwalling/arbiter/internal/llm"
	"github.com/rwalling/arbiter/internal/logging"
	"github.com/rwalling/arbiter/internal/recognizer"
	"github.com/rwalling/arbiter/pkg/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SUITE RUNNER
// ═══════════════════════════════════════════════════════════════════════════════

const (
	// caseTimeout bounds one clean recognition call.
	caseTimeout = 5 * time.Second

	// injectedTimeout bounds a call under timeout injection. The provider
	// blocks until the deadline, so this directly sets how long such a
	// case takes.
	injectedTimeout = 150 * time.Millisecond
)

// decisionStamp is when every decision case nominally happens: a weekday
// mid-business-day, so time-of-day scoring cannot drift with the wall
// clock between runs.
var decisionStamp = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

// Runner executes suites against the live config. Recognition cases each
// get a fresh scripted provider so failure injection cannot leak between
// cases; decision cases share one engine, as in production.
type Runner struct {
	store   *config.Store
	events  *bus.Bus
	catalog []types.Intent
	log     *logging.Logger
}

// NewRunner creates a runner over the given config store. A nil store
// falls back to built-in defaults; a nil events bus disables publication.
func NewRunner(store *config.Store, events *bus.Bus) *Runner {
	if store == nil {
		store = config.NewStore(config.Default())
	}
	return &Runner{
		store:   store,
		events:  events,
		catalog: recognizer.DemoCatalog(),
		log:     logging.Global().WithComponent("Eval"),
	}
}

// WithCatalog swaps the intent catalog recognition cases run against.
func (r *Runner) WithCatalog(catalog []types.Intent) *Runner {
	r.catalog = catalog
	return r
}

// Run executes every case in the suite and returns the collected report.
// The context aborts the run between cases; a partial report is not
// returned on abort.
func (r *Runner) Run(ctx context.Context, suite *Suite) (*Report, error) {
	if suite == nil {
		return nil, fmt.Errorf("nil suite")
	}
	if err := suite.validate(); err != nil {
		return nil, err
	}

	report := &Report{
		Suite:       suite.Name,
		Description: suite.Description,
		StartedAt:   time.Now(),
	}

	// ===================== PHASE 1: recognition cases =====================
	for _, c := range suite.Recognition {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("suite aborted: %w", err)
		}
		report.Results = append(report.Results, r.runRecognition(ctx, c))
	}

	// ===================== PHASE 2: decision cases =====================
	engine := decision.New(r.store, nil, nil, r.events)
	for _, c := range suite.Decision {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("suite aborted: %w", err)
		}
		report.Results = append(report.Results, r.runDecision(ctx, engine, c))
	}

	report.Duration = time.Since(report.StartedAt)
	r.log.Info("Suite %s: %d/%d passed in %v",
		suite.Name, report.Passed(), report.Total(), report.Duration)
	return report, nil
}

// runRecognition drives one utterance through a fresh recognizer and
// checks the outcome against the case's expectations.
func (r *Runner) runRecognition(ctx context.Context, c RecognitionCase) CaseResult {
	rules := llm.DefaultScript()
	if c.ModelFailure != "" {
		// The injected rule matches the case's own input, so only this
		// call fails while the canned script stays intact.
		rules = append([]llm.ScriptRule{{Match: c.Input, Fail: c.ModelFailure}}, rules...)
	}
	provider := llm.NewScriptedProviderFromRules(llm.DefaultConfig("scripted"), rules)
	rec := recognizer.New(provider, r.store, r.events)

	timeout := caseTimeout
	if c.ModelFailure == llm.FailTimeout {
		timeout = injectedTimeout
	}
	caseCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	result := rec.Recognize(caseCtx, c.Input, r.catalog, nil)
	elapsed := time.Since(start)

	var problems []string
	if result.IntentName != c.ExpectIntent {
		problems = append(problems, fmt.Sprintf("expected intent %q, got %q", c.ExpectIntent, result.IntentName))
	}
	if c.MinConfidence > 0 && result.Confidence < c.MinConfidence {
		problems = append(problems, fmt.Sprintf("confidence %.2f below floor %.2f", result.Confidence, c.MinConfidence))
	}
	if c.MaxConfidence > 0 && result.Confidence > c.MaxConfidence {
		problems = append(problems, fmt.Sprintf("confidence %.2f above ceiling %.2f", result.Confidence, c.MaxConfidence))
	}
	for _, want := range c.ExpectReasoning {
		if !strings.Contains(result.Reasoning, want) {
			problems = append(problems, fmt.Sprintf("reasoning lacks %q", want))
		}
	}

	return CaseResult{
		Kind:     KindRecognition,
		Name:     c.Name,
		Observed: observedRecognition(result),
		Problems: problems,
		Duration: elapsed,
	}
}

// runDecision evaluates one trigger scenario and checks the recommendation.
func (r *Runner) runDecision(ctx context.Context, engine *decision.Engine, c DecisionCase) CaseResult {
	start := time.Now()
	result := engine.Decide(ctx, c.decisionContext())
	elapsed := time.Since(start)

	var problems []string
	if result.Recommended != types.Strategy(c.ExpectStrategy) {
		problems = append(problems, fmt.Sprintf("expected strategy %q, got %q", c.ExpectStrategy, result.Recommended))
	}
	if c.MinConfidence > 0 && result.Confidence < c.MinConfidence {
		problems = append(problems, fmt.Sprintf("confidence %.2f below floor %.2f", result.Confidence, c.MinConfidence))
	}

	return CaseResult{
		Kind:     KindDecision,
		Name:     c.Name,
		Observed: fmt.Sprintf("%s @ %.2f", result.Recommended, result.Confidence),
		Problems: problems,
		Duration: elapsed,
	}
}

// decisionContext builds the engine input for one case. Metrics stay at
// zero so the load factor is quiet and the case's seeds carry the scoring.
func (c DecisionCase) decisionContext() types.DecisionContext {
	available := make([]types.Strategy, 0, len(c.Available))
	for _, s := range c.Available {
		available = append(available, types.Strategy(s))
	}

	var historical map[types.Strategy]types.Aggregates
	if len(c.Historical) > 0 {
		historical = make(map[types.Strategy]types.Aggregates, len(c.Historical))
		for name, seed := range c.Historical {
			historical[types.Strategy(name)] = types.Aggregates{
				SuccessRate:     seed.SuccessRate,
				AvgResponseTime: seed.AvgResponseTime,
			}
		}
	}

	patience := c.Patience
	if patience <= 0 {
		patience = 0.5
	}

	return types.DecisionContext{
		Trigger:    types.ErrorClass(c.Trigger),
		Available:  available,
		Historical: historical,
		User: types.UserProfile{
			UserID:        "eval",
			IsVIP:         c.VIP,
			PatienceLevel: patience,
		},
		Timestamp: decisionStamp,
	}
}

func observedRecognition(result *types.RecognitionResult) string {
	name := result.IntentName
	if name == "" {
		name = "(none)"
	}
	return fmt.Sprintf("%s @ %.2f", name, result.Confidence)
}
