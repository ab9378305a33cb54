package eval

import (
	"strings"
	"testing"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════════
// REPORT TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestReportMarkdown(t *testing.T) {
	report := &Report{
		Suite:       "sample",
		Description: "two pipelines, one failure",
		Duration:    1234 * time.Millisecond,
		Results: []CaseResult{
			{Kind: KindRecognition, Name: "good", Observed: "greeting @ 0.75"},
			{
				Kind:     KindRecognition,
				Name:     "bad",
				Observed: "(none) @ 0.00",
				Problems: []string{`expected intent "greeting", got ""`},
			},
			{Kind: KindDecision, Name: "pick", Observed: "circuit_breaker @ 0.63"},
		},
	}

	md := report.Markdown()
	for _, want := range []string{
		"# Eval: sample",
		"two pipelines, one failure",
		"**2/3 passed** in 1.234s.",
		"## Recognition",
		"| good | PASS | greeting @ 0.75 |",
		"| bad | FAIL | (none) @ 0.00 |",
		"## Decision",
		"| pick | PASS | circuit_breaker @ 0.63 |",
		"## Failures",
		"### recognition/bad",
		`- expected intent "greeting", got ""`,
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown lacks %q\n%s", want, md)
		}
	}
}

func TestReportMarkdownCleanRun(t *testing.T) {
	report := &Report{
		Suite: "clean",
		Results: []CaseResult{
			{Kind: KindDecision, Name: "only", Observed: "immediate @ 0.60"},
		},
	}

	md := report.Markdown()
	if strings.Contains(md, "## Failures") {
		t.Errorf("clean run should have no failure section:\n%s", md)
	}
	if strings.Contains(md, "## Recognition") {
		t.Errorf("report without recognition cases should skip that section:\n%s", md)
	}
	if !strings.Contains(md, "**1/1 passed**") {
		t.Errorf("markdown lacks the summary line:\n%s", md)
	}
}

func TestReportCounts(t *testing.T) {
	report := &Report{
		Results: []CaseResult{
			{Kind: KindRecognition, Name: "a"},
			{Kind: KindRecognition, Name: "b", Problems: []string{"nope"}},
			{Kind: KindDecision, Name: "c"},
		},
	}

	if got := report.Total(); got != 3 {
		t.Errorf("Total = %d, want 3", got)
	}
	if got := report.Passed(); got != 2 {
		t.Errorf("Passed = %d, want 2", got)
	}
	if got := report.Failed(); got != 1 {
		t.Errorf("Failed = %d, want 1", got)
	}
	if report.Ok() {
		t.Error("Ok should be false with a failing case")
	}
}
