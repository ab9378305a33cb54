package recognizer

import (
	"fmt"
	"time"

	"github.com/rwalling/arbiter/internal/config"
	"github.com/rwalling/arbiter/pkg/types"
)

// ContextConfidence scores how strongly the conversation supports the
// candidate intent. Pure; the result is in [0, 1] and is built from four
// configured bonuses:
//
//  1. Continuity: the candidate equals the last turn's intent, or shares
//     a related-intents group with it.
//  2. Frequency: per prior occurrence of the candidate in the history,
//     capped.
//  3. Slots: the conversation already carries filled slots.
//  4. Recency: the conversation was active within the recency window.
//
// The returned notes name each bonus that fired, for reasoning strings.
func ContextConfidence(candidate string, conv *types.ConversationContext, now time.Time, cfg config.RecognizerConfig) (float64, []string) {
	if candidate == "" || conv == nil {
		return 0, nil
	}

	var score float64
	var notes []string

	last := conv.LastIntent()
	if last != "" {
		switch {
		case last == candidate:
			score += cfg.ContinuityBonus
			notes = append(notes, fmt.Sprintf("continues intent %s", last))
		case relatedIntents(candidate, last, cfg.RelatedIntents):
			score += cfg.ContinuityBonus
			notes = append(notes, fmt.Sprintf("related to previous intent %s", last))
		}
	}

	if count := conv.IntentCount(candidate); count > 0 {
		bonus := float64(count) * cfg.FrequencyStep
		if bonus > cfg.FrequencyCap {
			bonus = cfg.FrequencyCap
		}
		score += bonus
		notes = append(notes, fmt.Sprintf("seen %d times this conversation", count))
	}

	if len(conv.FilledSlots) > 0 {
		score += cfg.SlotBonus
		notes = append(notes, fmt.Sprintf("%d slots already filled", len(conv.FilledSlots)))
	}

	if within(conv, now, cfg.RecencyWindowSeconds) {
		score += cfg.RecencyBonus
		notes = append(notes, "conversation active recently")
	}

	return types.Clamp01(score), notes
}

// relatedIntents reports whether a and b share a related-intents group.
func relatedIntents(a, b string, groups map[string][]string) bool {
	for _, members := range groups {
		var hasA, hasB bool
		for _, m := range members {
			if m == a {
				hasA = true
			}
			if m == b {
				hasB = true
			}
		}
		if hasA && hasB {
			return true
		}
	}
	return false
}

// within reports whether the conversation saw activity inside the window.
// The freshest of UpdatedAt and the last turn's timestamp counts.
func within(conv *types.ConversationContext, now time.Time, windowSeconds int) bool {
	if windowSeconds <= 0 {
		return false
	}

	newest := conv.UpdatedAt
	if n := len(conv.History); n > 0 && conv.History[n-1].At.After(newest) {
		newest = conv.History[n-1].At
	}
	if newest.IsZero() {
		return false
	}

	return now.Sub(newest) <= time.Duration(windowSeconds)*time.Second
}
