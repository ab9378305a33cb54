package recognizer

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/rwalling/arbiter/internal/config"
	"github.com/rwalling/arbiter/pkg/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TOKENIZER
// ═══════════════════════════════════════════════════════════════════════════════

// Tokenize splits text into matchable tokens: lowercased ASCII words and
// CJK bigrams. Han runs of length one contribute the single character.
// "我想订机票" yields 我想, 想订, 订机, 机票; "Book a flight" yields
// book, a, flight.
func Tokenize(text string) []string {
	var tokens []string
	var word []rune
	var han []rune

	flushWord := func() {
		if len(word) > 0 {
			tokens = append(tokens, strings.ToLower(string(word)))
			word = word[:0]
		}
	}
	flushHan := func() {
		if len(han) == 1 {
			tokens = append(tokens, string(han))
		}
		for i := 0; i+1 < len(han); i++ {
			tokens = append(tokens, string(han[i:i+2]))
		}
		han = han[:0]
	}

	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			flushWord()
			han = append(han, r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			flushHan()
			word = append(word, r)
		default:
			flushWord()
			flushHan()
		}
	}
	flushWord()
	flushHan()

	return tokens
}

// tokenSet returns the unique tokens of text.
func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range Tokenize(text) {
		set[tok] = true
	}
	return set
}

// ═══════════════════════════════════════════════════════════════════════════════
// RULE MATCHING
// ═══════════════════════════════════════════════════════════════════════════════

// RuleMatch is the outcome of the deterministic keyword-overlap matcher.
// IntentName == "" means no intent cleared the minimum score.
type RuleMatch struct {
	IntentName   string
	Score        float64 // Raw weighted keyword score, unbounded above
	Confidence   float64 // min(Score, MaxRuleConfidence), or 0 when unknown
	Reasoning    string
	Alternatives []types.Alternative
}

// scoreIntent counts unique input-token hits against the intent's
// description and examples and weights them per config.
func scoreIntent(inputTokens map[string]bool, intent types.Intent, cfg config.RecognizerConfig) (score float64, descHits, exampleHits int) {
	descTokens := tokenSet(intent.Description)
	exampleTokens := tokenSet(strings.Join(intent.Examples, " "))

	for tok := range inputTokens {
		if descTokens[tok] {
			descHits++
		}
		if exampleTokens[tok] {
			exampleHits++
		}
	}

	score = cfg.DescriptionWeight*float64(descHits) + cfg.ExampleWeight*float64(exampleHits)
	return score, descHits, exampleHits
}

// MatchRules runs the keyword-overlap matcher over the whole catalog and
// returns the best candidate. Deterministic: equal scores resolve by
// catalog order.
func MatchRules(input string, catalog []types.Intent, cfg config.RecognizerConfig) RuleMatch {
	inputTokens := tokenSet(input)

	type candidate struct {
		name        string
		score       float64
		descHits    int
		exampleHits int
	}

	candidates := make([]candidate, 0, len(catalog))
	for _, intent := range catalog {
		score, dh, eh := scoreIntent(inputTokens, intent, cfg)
		candidates = append(candidates, candidate{intent.Name, score, dh, eh})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) == 0 || candidates[0].score < cfg.MinRuleScore {
		return RuleMatch{
			Reasoning: fmt.Sprintf("no intent reached the rule-match floor %.2f", cfg.MinRuleScore),
		}
	}

	top := candidates[0]
	confidence := top.score
	if confidence > cfg.MaxRuleConfidence {
		confidence = cfg.MaxRuleConfidence
	}

	var alternatives []types.Alternative
	for _, c := range candidates[1:] {
		if c.score <= 0 || len(alternatives) == 3 {
			break
		}
		alternatives = append(alternatives, types.Alternative{IntentName: c.name, Score: c.score})
	}

	return RuleMatch{
		IntentName: top.name,
		Score:      top.score,
		Confidence: confidence,
		Reasoning: fmt.Sprintf("keyword overlap: %d description hits, %d example hits (score %.2f)",
			top.descHits, top.exampleHits, top.score),
		Alternatives: alternatives,
	}
}

// RuleConfidenceFor returns the rule-derived confidence for one specific
// intent, used to corroborate a model answer. Bounded by
// MaxRuleConfidence like the fallback path.
func RuleConfidenceFor(input string, intent types.Intent, cfg config.RecognizerConfig) float64 {
	score, _, _ := scoreIntent(tokenSet(input), intent, cfg)
	if score > cfg.MaxRuleConfidence {
		return cfg.MaxRuleConfidence
	}
	return score
}
