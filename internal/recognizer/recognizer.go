// Package recognizer maps free-form user text onto a known intent catalog.
//
// Each recognition attempt walks a fixed pipeline: build a classification
// prompt from the catalog and recent conversation turns, call the model
// under a bounded timeout, strictly validate its JSON reply, and fall
// back to a deterministic keyword-overlap matcher when the call fails or
// the reply is malformed. The surviving signals are fused by the
// confidence package into one calibrated score.
//
// Recognize has a total contract: it never returns an error and never
// panics. Degraded outcomes are encoded in the result's confidence and
// reasoning, so callers always hold a usable value.
package recognizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rwalling/arbiter/internal/bus"
	"github.com/rwalling/arbiter/internal/confidence"
	"github.com/rwalling/arbiter/internal/config"
	"github.com/rwalling/arbiter/internal/llm"
	"github.com/rwalling/arbiter/internal/logging"
	"github.com/rwalling/arbiter/pkg/types"
)

// Recognizer orchestrates recognition attempts. Safe for concurrent use:
// every attempt works on its own snapshot of the live config.
type Recognizer struct {
	provider llm.Provider
	store    *config.Store
	conf     *confidence.Manager
	events   *bus.Bus
	log      *logging.Logger
}

// New creates a recognizer. A nil store falls back to built-in defaults;
// a nil events bus disables event publication.
func New(provider llm.Provider, store *config.Store, events *bus.Bus) *Recognizer {
	if store == nil {
		store = config.NewStore(config.Default())
	}
	return &Recognizer{
		provider: provider,
		store:    store,
		conf:     confidence.NewManager(store),
		events:   events,
		log:      logging.Global().WithComponent("Recognizer"),
	}
}

// Recognize runs one recognition attempt for input against the catalog.
// conv may be nil when no conversation context exists.
func (r *Recognizer) Recognize(ctx context.Context, input string, catalog []types.Intent, conv *types.ConversationContext) *types.RecognitionResult {
	start := time.Now()
	requestID := uuid.NewString()

	result, source := r.recognize(ctx, requestID, input, catalog, conv)

	r.publish(bus.NewRecognitionEvent(requestID, result.IntentName, string(source), result.Confidence))
	r.log.Debug("Recognized %q as %q (%.2f via %s) in %v",
		truncate(input, 48), result.IntentName, result.Confidence, source, time.Since(start))

	return result
}

// recognize walks the pipeline. The recover converts any internal fault
// into an unknown result instead of propagating it.
func (r *Recognizer) recognize(ctx context.Context, requestID, input string, catalog []types.Intent, conv *types.ConversationContext) (result *types.RecognitionResult, source types.Source) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("Recognition fault: %v", rec)
			result = &types.RecognitionResult{
				Confidence: 0,
				Reasoning:  fmt.Sprintf("internal fault during recognition: %v", rec),
				RawInput:   input,
			}
			source = ""
		}
	}()

	if len(catalog) == 0 {
		return &types.RecognitionResult{
			Reasoning: "no intents configured; nothing to recognize against",
			RawInput:  input,
		}, ""
	}

	cfg := r.store.Get()

	req := BuildPrompt(input, catalog, conv, cfg)

	timeout := time.Duration(cfg.Model.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := r.provider.Chat(callCtx, req)
	if err != nil {
		r.publish(bus.NewModelErrorEvent(requestID, cfg.Model.Model, err.Error()))
		return r.fallback(requestID, fmt.Sprintf("model call failed: %v", err), input, catalog, conv, cfg)
	}

	parsed, perr := ParseEnvelope(resp.Content, catalog)
	if perr != nil {
		r.publish(bus.NewModelErrorEvent(requestID, cfg.Model.Model, perr.Error()))
		return r.fallback(requestID, fmt.Sprintf("model response rejected: %v", perr), input, catalog, conv, cfg)
	}

	return r.calibrated(parsed, input, catalog, conv, cfg), types.SourceHybrid
}

// calibrated finishes the model path: the model's estimate is corroborated
// by the rule matcher and the conversation context, then fused.
func (r *Recognizer) calibrated(parsed *Parsed, input string, catalog []types.Intent, conv *types.ConversationContext, cfg *config.Config) *types.RecognitionResult {
	intent, _ := findIntent(parsed.Intent, catalog)

	modelCal := r.conf.Calibrate(parsed.Confidence, types.SourceModel)
	ruleCal := r.conf.Calibrate(RuleConfidenceFor(input, intent, cfg.Recognizer), types.SourceRule)

	ctxConf, ctxNotes := ContextConfidence(parsed.Intent, conv, time.Now(), cfg.Recognizer)
	ctxCal := r.conf.Calibrate(ctxConf, types.SourceContext)

	final := r.conf.Hybrid(modelCal.Value, ruleCal.Value, ctxCal.Value, parsed.Intent)

	reasoning := parsed.Reasoning
	if reasoning == "" {
		reasoning = "model classification"
	}
	if len(ctxNotes) > 0 {
		reasoning += "; context: " + strings.Join(ctxNotes, ", ")
	}
	reasoning += "; " + final.Explanation

	return &types.RecognitionResult{
		IntentName:   parsed.Intent,
		Confidence:   final.Value,
		Reasoning:    reasoning,
		Alternatives: parsed.Alternatives,
		RawInput:     input,
	}
}

// fallback runs the deterministic matcher after a model failure. The rule
// formula alone sets the confidence; context evidence is reported in the
// reasoning but cannot move the number.
func (r *Recognizer) fallback(requestID, reason, input string, catalog []types.Intent, conv *types.ConversationContext, cfg *config.Config) (*types.RecognitionResult, types.Source) {
	r.log.Warn("Falling back to rule matching: %s", reason)
	r.publish(bus.NewRecognitionFallbackEvent(requestID, reason))

	match := MatchRules(input, catalog, cfg.Recognizer)
	reasoning := reason + "; " + match.Reasoning

	if match.IntentName == "" {
		return &types.RecognitionResult{
			Confidence: 0,
			Reasoning:  reasoning,
			RawInput:   input,
		}, types.SourceRule
	}

	_, ctxNotes := ContextConfidence(match.IntentName, conv, time.Now(), cfg.Recognizer)
	if len(ctxNotes) > 0 {
		reasoning += "; context: " + strings.Join(ctxNotes, ", ")
	}

	return &types.RecognitionResult{
		IntentName:   match.IntentName,
		Confidence:   match.Confidence,
		Reasoning:    reasoning,
		Alternatives: match.Alternatives,
		RawInput:     input,
	}, types.SourceRule
}

func (r *Recognizer) publish(event bus.Event) {
	if r.events == nil {
		return
	}
	_ = r.events.Publish(event)
}

// findIntent looks a name up in the catalog.
func findIntent(name string, catalog []types.Intent) (types.Intent, bool) {
	for _, intent := range catalog {
		if intent.Name == name {
			return intent, true
		}
	}
	return types.Intent{}, false
}

// truncate shortens s to at most n runes for log lines.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
