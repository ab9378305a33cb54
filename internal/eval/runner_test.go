package eval

import (
	"context"
	"testing"

	"github.com/rwalling/arbiter/internal/bus"
	"github.com/rwalling/arbiter/internal/llm"
	"github.com/rwalling/arbiter/internal/recognizer"
	"github.com/rwalling/arbiter/pkg/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// RUNNER TESTS
// The built-in suite doubles as the integration regression bed: if tuning
// or pipeline changes break its expectations, TestRunnerPassesDefaultSuite
// is the first thing to go red.
// ═══════════════════════════════════════════════════════════════════════════════

func TestRunnerPassesDefaultSuite(t *testing.T) {
	suite, err := DefaultSuite()
	if err != nil {
		t.Fatalf("DefaultSuite: %v", err)
	}

	report, err := NewRunner(nil, nil).Run(context.Background(), suite)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !report.Ok() {
		t.Fatalf("default suite failed %d/%d cases:\n%s",
			report.Failed(), report.Total(), report.Markdown())
	}
	want := len(suite.Recognition) + len(suite.Decision)
	if report.Total() != want {
		t.Errorf("report has %d results, want %d", report.Total(), want)
	}
}

func TestRunnerIsolatesFailureInjection(t *testing.T) {
	// Same utterance twice: first with an injected fault, then clean. A
	// leak would poison the second case's provider.
	suite := &Suite{
		Name: "isolation",
		Recognition: []RecognitionCase{
			{
				Name:            "injected",
				Input:           "我要退款",
				ExpectIntent:    "request_refund",
				ModelFailure:    llm.FailMalformed,
				ExpectReasoning: []string{"model response rejected"},
			},
			{
				Name:          "clean",
				Input:         "我要退款",
				ExpectIntent:  "request_refund",
				MinConfidence: 0.5,
			},
		},
	}

	report, err := NewRunner(nil, nil).Run(context.Background(), suite)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Ok() {
		t.Fatalf("suite failed:\n%s", report.Markdown())
	}
}

func TestRunnerDetectsFailures(t *testing.T) {
	suite := &Suite{
		Name: "broken",
		Recognition: []RecognitionCase{
			{
				Name:         "wrong_intent",
				Input:        "hello there",
				ExpectIntent: "book_flight",
			},
			{
				Name:          "impossible_floor",
				Input:         "hello there",
				ExpectIntent:  "greeting",
				MinConfidence: 0.99,
			},
		},
		Decision: []DecisionCase{
			{
				Name:      "wrong_strategy",
				Trigger:   "timeout",
				Available: []string{"immediate", "circuit_breaker"},
				Historical: map[string]HistoricalSeed{
					"immediate":       {SuccessRate: 0.5, AvgResponseTime: 0.5},
					"circuit_breaker": {SuccessRate: 0.9, AvgResponseTime: 0.3},
				},
				ExpectStrategy: "immediate",
			},
		},
	}

	report, err := NewRunner(nil, nil).Run(context.Background(), suite)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Failed() != 3 {
		t.Fatalf("failed = %d, want 3:\n%s", report.Failed(), report.Markdown())
	}
	for _, res := range report.Results {
		if res.Passed() {
			t.Errorf("case %s unexpectedly passed", res.Name)
		}
		if len(res.Problems) == 0 {
			t.Errorf("case %s failed without recorded problems", res.Name)
		}
	}
}

func TestRunnerRejectsBadSuites(t *testing.T) {
	r := NewRunner(nil, nil)

	if _, err := r.Run(context.Background(), nil); err == nil {
		t.Error("nil suite: expected an error")
	}
	if _, err := r.Run(context.Background(), &Suite{}); err == nil {
		t.Error("invalid suite: expected an error")
	}
}

func TestRunnerHonorsCancellation(t *testing.T) {
	suite, err := DefaultSuite()
	if err != nil {
		t.Fatalf("DefaultSuite: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewRunner(nil, nil).Run(ctx, suite); err == nil {
		t.Error("cancelled context: expected an error")
	}
}

func TestRunnerPublishesPipelineEvents(t *testing.T) {
	events := bus.NewBusWithConfig(256, 16)
	defer events.Close()

	suite := &Suite{
		Name: "events",
		Recognition: []RecognitionCase{
			{Name: "hi", Input: "hello there", ExpectIntent: "greeting"},
		},
		Decision: []DecisionCase{
			{
				Name:           "solo",
				Trigger:        "timeout",
				Available:      []string{"circuit_breaker"},
				ExpectStrategy: "circuit_breaker",
			},
		},
	}

	report, err := NewRunner(nil, events).Run(context.Background(), suite)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Ok() {
		t.Fatalf("suite failed:\n%s", report.Markdown())
	}

	var sawRecognition, sawDecision bool
	for _, e := range events.GetHistory() {
		switch e.Type {
		case bus.EventRecognitionCompleted:
			sawRecognition = true
		case bus.EventDecisionMade:
			sawDecision = true
		}
	}
	if !sawRecognition {
		t.Error("no recognition event reached the bus")
	}
	if !sawDecision {
		t.Error("no decision event reached the bus")
	}
}

func TestRunnerCustomCatalog(t *testing.T) {
	// A catalog without book_flight forces the pipeline to reject the
	// model's favorite answer and fall back.
	var catalog []types.Intent
	for _, intent := range recognizer.DemoCatalog() {
		if intent.Name != "book_flight" {
			catalog = append(catalog, intent)
		}
	}

	suite := &Suite{
		Name: "trimmed",
		Recognition: []RecognitionCase{
			{
				Name:            "flight_not_in_catalog",
				Input:           "我想订机票",
				ExpectIntent:    "",
				ExpectReasoning: []string{"model response rejected"},
			},
		},
	}

	report, err := NewRunner(nil, nil).WithCatalog(catalog).Run(context.Background(), suite)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Ok() {
		t.Fatalf("suite failed:\n%s", report.Markdown())
	}
}
