package recognizer

import (
	"fmt"
	"strings"

	"github.com/rwalling/arbiter/internal/config"
	"github.com/rwalling/arbiter/internal/llm"
	"github.com/rwalling/arbiter/pkg/types"
)

// BuildPrompt renders the intent catalog and recent conversation history
// into the model's input contract. The system prompt carries the catalog
// and the JSON format contract; prior turns become user/assistant message
// pairs so the model sees the conversation the way it happened.
func BuildPrompt(input string, catalog []types.Intent, conv *types.ConversationContext, cfg *config.Config) *llm.ChatRequest {
	var sb strings.Builder
	sb.WriteString("You are an intent classifier. Map the user's latest message onto exactly one of the known intents.\n")
	sb.WriteString(`Return ONLY JSON: {"intent":"...","confidence":0-1,"reasoning":"...","alternatives":[{"intent":"...","confidence":0-1}]}.` + "\n")
	sb.WriteString("Pick only from the listed intents.\n\nKnown intents:\n")

	maxExamples := cfg.Recognizer.MaxExamples
	for _, intent := range catalog {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", intent.Name, intent.Description))
		examples := intent.Examples
		if maxExamples > 0 && len(examples) > maxExamples {
			examples = examples[:maxExamples]
		}
		if len(examples) > 0 {
			sb.WriteString(fmt.Sprintf("  examples: %s\n", strings.Join(examples, " | ")))
		}
	}

	messages := historyMessages(conv, cfg.Recognizer.HistoryTurns)
	messages = append(messages, llm.Message{Role: "user", Content: input})

	return &llm.ChatRequest{
		Model:        cfg.Model.Model,
		SystemPrompt: sb.String(),
		Messages:     messages,
		MaxTokens:    cfg.Model.MaxTokens,
		Temperature:  cfg.Model.Temperature,
	}
}

// historyMessages converts the most recent conversation turns into
// user/assistant pairs, newest last.
func historyMessages(conv *types.ConversationContext, turns int) []llm.Message {
	if conv == nil || turns <= 0 || len(conv.History) == 0 {
		return nil
	}

	history := conv.History
	if len(history) > turns {
		history = history[len(history)-turns:]
	}

	messages := make([]llm.Message, 0, len(history)*2)
	for _, turn := range history {
		messages = append(messages, llm.Message{Role: "user", Content: turn.Input})
		if turn.IntentName != "" {
			messages = append(messages, llm.Message{
				Role:    "assistant",
				Content: fmt.Sprintf(`{"intent": %q}`, turn.IntentName),
			})
		}
	}
	return messages
}
