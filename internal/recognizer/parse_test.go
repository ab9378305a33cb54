package recognizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvelope(t *testing.T) {
	catalog := demoCatalog()

	t.Run("valid envelope", func(t *testing.T) {
		content := `{"intent": "book_flight", "confidence": 0.88, "reasoning": "asks for a ticket", "alternatives": [{"intent": "book_hotel", "confidence": 0.2}]}`

		parsed, err := ParseEnvelope(content, catalog)
		require.NoError(t, err)
		assert.Equal(t, "book_flight", parsed.Intent)
		assert.InDelta(t, 0.88, parsed.Confidence, 1e-9)
		assert.Equal(t, "asks for a ticket", parsed.Reasoning)
		require.Len(t, parsed.Alternatives, 1)
		assert.Equal(t, "book_hotel", parsed.Alternatives[0].IntentName)
	})

	t.Run("markdown fences are stripped", func(t *testing.T) {
		content := "```json\n{\"intent\": \"greeting\", \"confidence\": 0.95}\n```"

		parsed, err := ParseEnvelope(content, catalog)
		require.NoError(t, err)
		assert.Equal(t, "greeting", parsed.Intent)
	})

	t.Run("prose is rejected", func(t *testing.T) {
		_, err := ParseEnvelope("I believe the user wants a flight.", catalog)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not valid JSON")
	})

	t.Run("missing intent is rejected", func(t *testing.T) {
		_, err := ParseEnvelope(`{"intent": "", "confidence": 0.2}`, catalog)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no intent")
	})

	t.Run("unknown intent is rejected", func(t *testing.T) {
		_, err := ParseEnvelope(`{"intent": "summon_dragon", "confidence": 0.9}`, catalog)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not in the known set")
	})

	t.Run("out of range confidence is rejected", func(t *testing.T) {
		_, err := ParseEnvelope(`{"intent": "greeting", "confidence": 1.4}`, catalog)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "out of range")

		_, err = ParseEnvelope(`{"intent": "greeting", "confidence": -0.1}`, catalog)
		require.Error(t, err)
	})

	t.Run("alternatives are filtered not fatal", func(t *testing.T) {
		content := `{"intent": "book_flight", "confidence": 0.8, "alternatives": [
			{"intent": "summon_dragon", "confidence": 0.9},
			{"intent": "book_flight", "confidence": 0.7},
			{"intent": "check_order", "confidence": 0.1},
			{"intent": "book_hotel", "confidence": 0.3},
			{"intent": "greeting", "confidence": 0.2},
			{"intent": "request_refund", "confidence": 0.15}
		]}`

		parsed, err := ParseEnvelope(content, catalog)
		require.NoError(t, err)

		// Unknown name and the winning intent are dropped; the rest are
		// sorted descending and capped at three.
		require.Len(t, parsed.Alternatives, 3)
		assert.Equal(t, "book_hotel", parsed.Alternatives[0].IntentName)
		assert.Equal(t, "greeting", parsed.Alternatives[1].IntentName)
		assert.Equal(t, "request_refund", parsed.Alternatives[2].IntentName)
	})
}
