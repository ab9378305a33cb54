package recognizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwalling/arbiter/internal/config"
	"github.com/rwalling/arbiter/pkg/types"
)

func demoCatalog() []types.Intent {
	return DemoCatalog()
}

// ═══════════════════════════════════════════════════════════════════════════════
// TOKENIZER TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestTokenize(t *testing.T) {
	t.Run("han runs become bigrams", func(t *testing.T) {
		assert.Equal(t, []string{"我想", "想订", "订机", "机票"}, Tokenize("我想订机票"))
	})

	t.Run("ascii words are lowercased", func(t *testing.T) {
		assert.Equal(t, []string{"book", "a", "flight"}, Tokenize("Book a FLIGHT!"))
	})

	t.Run("mixed text splits at script boundaries", func(t *testing.T) {
		assert.Equal(t, []string{"订机", "机票", "to", "tokyo"}, Tokenize("订机票 to Tokyo"))
	})

	t.Run("single han character survives", func(t *testing.T) {
		assert.Equal(t, []string{"好"}, Tokenize("好"))
	})

	t.Run("empty input yields nothing", func(t *testing.T) {
		assert.Empty(t, Tokenize(""))
		assert.Empty(t, Tokenize("  ,.!  "))
	})
}

// ═══════════════════════════════════════════════════════════════════════════════
// RULE MATCHING TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestMatchRules(t *testing.T) {
	cfg := config.Default().Recognizer

	t.Run("chinese booking utterance matches book_flight", func(t *testing.T) {
		match := MatchRules("我想订机票", demoCatalog(), cfg)

		require.Equal(t, "book_flight", match.IntentName)
		assert.GreaterOrEqual(t, match.Confidence, 0.3)
		assert.NotEmpty(t, match.Reasoning)
	})

	t.Run("english utterance matches through examples", func(t *testing.T) {
		match := MatchRules("please book a flight", demoCatalog(), cfg)

		assert.Equal(t, "book_flight", match.IntentName)
	})

	t.Run("weak overlap stays below the floor", func(t *testing.T) {
		match := MatchRules("what is the weather like", demoCatalog(), cfg)

		assert.Empty(t, match.IntentName)
		assert.Equal(t, 0.0, match.Confidence)
		assert.Contains(t, match.Reasoning, "floor")
	})

	t.Run("confidence is capped", func(t *testing.T) {
		// Repeat enough catalog vocabulary to push the raw score past the cap
		match := MatchRules("预订机票 book a plane ticket flight 我想订机票 订机票 book a flight to Tokyo", demoCatalog(), cfg)

		require.Equal(t, "book_flight", match.IntentName)
		assert.Greater(t, match.Score, cfg.MaxRuleConfidence)
		assert.Equal(t, cfg.MaxRuleConfidence, match.Confidence)
	})

	t.Run("deterministic across calls", func(t *testing.T) {
		first := MatchRules("我想订机票", demoCatalog(), cfg)
		second := MatchRules("我想订机票", demoCatalog(), cfg)

		assert.Equal(t, first, second)
	})

	t.Run("ties resolve by catalog order", func(t *testing.T) {
		catalog := []types.Intent{
			{Name: "alpha", Description: "send a parcel"},
			{Name: "beta", Description: "send a parcel"},
		}
		match := MatchRules("send a parcel", catalog, cfg)

		assert.Equal(t, "alpha", match.IntentName)
	})

	t.Run("alternatives are scored and bounded", func(t *testing.T) {
		// 订单 overlaps check_order; 退款 overlaps request_refund
		match := MatchRules("我的订单想退款", demoCatalog(), cfg)

		require.NotEmpty(t, match.IntentName)
		assert.LessOrEqual(t, len(match.Alternatives), 3)
		for i := 1; i < len(match.Alternatives); i++ {
			assert.GreaterOrEqual(t, match.Alternatives[i-1].Score, match.Alternatives[i].Score)
		}
	})
}

func TestRuleConfidenceFor(t *testing.T) {
	cfg := config.Default().Recognizer
	catalog := demoCatalog()

	t.Run("corroborates the matching intent", func(t *testing.T) {
		conf := RuleConfidenceFor("我想订机票", catalog[0], cfg)
		assert.GreaterOrEqual(t, conf, 0.3)
		assert.LessOrEqual(t, conf, cfg.MaxRuleConfidence)
	})

	t.Run("unrelated intent scores low", func(t *testing.T) {
		conf := RuleConfidenceFor("我想订机票", catalog[4], cfg)
		assert.Less(t, conf, 0.3)
	})
}
