package eval

import (
	"fmt"
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════════
// REPORT
// ═══════════════════════════════════════════════════════════════════════════════

// Kind labels which pipeline a case exercised.
type Kind string

const (
	KindRecognition Kind = "recognition"
	KindDecision    Kind = "decision"
)

// CaseResult is the outcome of one case. An empty Problems slice means
// the case passed.
type CaseResult struct {
	Kind     Kind
	Name     string
	Observed string
	Problems []string
	Duration time.Duration
}

// Passed reports whether every expectation held.
func (c CaseResult) Passed() bool {
	return len(c.Problems) == 0
}

// Report collects the results of one suite run.
type Report struct {
	Suite       string
	Description string
	StartedAt   time.Time
	Duration    time.Duration
	Results     []CaseResult
}

// Total returns the number of cases run.
func (r *Report) Total() int {
	return len(r.Results)
}

// Passed returns the number of cases whose expectations all held.
func (r *Report) Passed() int {
	n := 0
	for _, res := range r.Results {
		if res.Passed() {
			n++
		}
	}
	return n
}

// Failed returns the number of cases with at least one unmet expectation.
func (r *Report) Failed() int {
	return r.Total() - r.Passed()
}

// Ok reports whether the whole suite passed.
func (r *Report) Ok() bool {
	return r.Failed() == 0
}

// Markdown renders the report as a markdown document: a summary line, a
// table per pipeline, and a failure section spelling out every unmet
// expectation. Renders cleanly both raw and through a terminal renderer.
func (r *Report) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Eval: %s\n\n", r.Suite)
	if r.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", r.Description)
	}
	fmt.Fprintf(&b, "**%d/%d passed** in %s.\n", r.Passed(), r.Total(), r.Duration.Round(time.Millisecond))

	r.renderKind(&b, KindRecognition, "Recognition")
	r.renderKind(&b, KindDecision, "Decision")
	r.renderFailures(&b)

	return b.String()
}

func (r *Report) renderKind(b *strings.Builder, kind Kind, heading string) {
	results := r.byKind(kind)
	if len(results) == 0 {
		return
	}

	fmt.Fprintf(b, "\n## %s\n\n", heading)
	fmt.Fprintf(b, "| Case | Outcome | Observed |\n")
	fmt.Fprintf(b, "|------|---------|----------|\n")
	for _, res := range results {
		outcome := "PASS"
		if !res.Passed() {
			outcome = "FAIL"
		}
		fmt.Fprintf(b, "| %s | %s | %s |\n", res.Name, outcome, res.Observed)
	}
}

func (r *Report) renderFailures(b *strings.Builder) {
	if r.Ok() {
		return
	}

	fmt.Fprintf(b, "\n## Failures\n")
	for _, res := range r.Results {
		if res.Passed() {
			continue
		}
		fmt.Fprintf(b, "\n### %s/%s\n\n", res.Kind, res.Name)
		for _, p := range res.Problems {
			fmt.Fprintf(b, "- %s\n", p)
		}
	}
}

func (r *Report) byKind(kind Kind) []CaseResult {
	var out []CaseResult
	for _, res := range r.Results {
		if res.Kind == kind {
			out = append(out, res)
		}
	}
	return out
}
