package recognizer

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rwalling/arbiter/pkg/types"
)

// envelope is the strict wire contract expected from the model. Anything
// that does not unmarshal into this shape, or that fails the validation
// below, is treated exactly like a transport failure.
type envelope struct {
	Intent       string    `json:"intent"`
	Confidence   float64   `json:"confidence"`
	Reasoning    string    `json:"reasoning"`
	Alternatives []altPick `json:"alternatives"`
}

type altPick struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// Parsed is a validated model classification.
type Parsed struct {
	Intent       string
	Confidence   float64
	Reasoning    string
	Alternatives []types.Alternative
}

// ParseEnvelope validates the model's reply against the known intent set.
// Validation is strict: a missing or unknown intent, or an out-of-range
// confidence, fails the parse. Alternatives are lenient — unknown names
// are dropped rather than failing the whole reply.
func ParseEnvelope(content string, catalog []types.Intent) (*Parsed, error) {
	stripped := stripFences(content)

	var env envelope
	if err := json.Unmarshal([]byte(stripped), &env); err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}

	if env.Intent == "" {
		return nil, fmt.Errorf("response carries no intent")
	}
	if !inCatalog(env.Intent, catalog) {
		return nil, fmt.Errorf("intent %q is not in the known set", env.Intent)
	}
	if env.Confidence < 0 || env.Confidence > 1 {
		return nil, fmt.Errorf("confidence %.3f out of range", env.Confidence)
	}

	var alternatives []types.Alternative
	for _, alt := range env.Alternatives {
		if alt.Intent == "" || alt.Intent == env.Intent || !inCatalog(alt.Intent, catalog) {
			continue
		}
		alternatives = append(alternatives, types.Alternative{
			IntentName: alt.Intent,
			Score:      types.Clamp01(alt.Confidence),
		})
	}
	sort.SliceStable(alternatives, func(i, j int) bool {
		return alternatives[i].Score > alternatives[j].Score
	})
	if len(alternatives) > 3 {
		alternatives = alternatives[:3]
	}

	return &Parsed{
		Intent:       env.Intent,
		Confidence:   env.Confidence,
		Reasoning:    env.Reasoning,
		Alternatives: alternatives,
	}, nil
}

// stripFences removes a surrounding markdown code fence, a habit many
// models carry even when told to return bare JSON.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

// inCatalog reports whether name is a known intent.
func inCatalog(name string, catalog []types.Intent) bool {
	for _, intent := range catalog {
		if intent.Name == name {
			return true
		}
	}
	return false
}
