package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

// Failure modes a script rule can simulate.
const (
	// FailTimeout blocks until the caller's context expires.
	FailTimeout = "timeout"

	// FailUnavailable returns an immediate transport error.
	FailUnavailable = "unavailable"

	// FailMalformed returns prose instead of the expected JSON envelope.
	FailMalformed = "malformed"
)

// ScriptRule maps an utterance substring to a canned response. Rules are
// evaluated in order; the first match wins. Matching is case-insensitive
// and works on raw bytes, so CJK substrings match without tokenization.
type ScriptRule struct {
	// Match is the substring to look for in the user's utterance.
	Match string `yaml:"match"`

	// Response is the raw content to return, normally the JSON
	// classification envelope.
	Response string `yaml:"response"`

	// DelayMs simulates inference latency before responding.
	DelayMs int `yaml:"delay_ms,omitempty"`

	// Fail simulates a failure instead of responding: timeout,
	// unavailable, or malformed.
	Fail string `yaml:"fail,omitempty"`
}

// scriptFile is the on-disk YAML shape for custom scripts.
type scriptFile struct {
	Rules []ScriptRule `yaml:"rules"`
}

// ScriptedProvider is a deterministic Provider that replays canned
// responses. It backs tests, the evaluation harness, and the traffic
// simulator, and doubles as an offline demo backend.
type ScriptedProvider struct {
	config *ProviderConfig
	rules  []ScriptRule
	calls  atomic.Int64
}

// NewScriptedProvider creates a scripted provider. If scriptPath is empty,
// the built-in demo script is used.
func NewScriptedProvider(cfg *ProviderConfig, scriptPath string) (*ScriptedProvider, error) {
	cfg = applyDefaults(cfg, "scripted")

	rules := DefaultScript()
	if scriptPath != "" {
		data, err := os.ReadFile(scriptPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read script file: %w", err)
		}

		var sf scriptFile
		if err := yaml.Unmarshal(data, &sf); err != nil {
			return nil, fmt.Errorf("failed to parse script file: %w", err)
		}
		if len(sf.Rules) == 0 {
			return nil, fmt.Errorf("script file %s contains no rules", scriptPath)
		}
		rules = sf.Rules
	}

	return &ScriptedProvider{config: cfg, rules: rules}, nil
}

// NewScriptedProviderFromRules creates a scripted provider from in-memory
// rules. Tests use this to stage exact model behavior.
func NewScriptedProviderFromRules(cfg *ProviderConfig, rules []ScriptRule) *ScriptedProvider {
	return &ScriptedProvider{
		config: applyDefaults(cfg, "scripted"),
		rules:  rules,
	}
}

// DefaultScript returns the built-in demo rules: a small bilingual
// customer-service intent set matching the sample catalog used by the
// evaluation scenarios and the simulator.
func DefaultScript() []ScriptRule {
	return []ScriptRule{
		{
			Match:    "订机票",
			Response: `{"intent": "book_flight", "confidence": 0.88, "reasoning": "utterance asks to book a plane ticket", "alternatives": [{"intent": "book_hotel", "confidence": 0.2}]}`,
			DelayMs:  20,
		},
		{
			Match:    "flight",
			Response: `{"intent": "book_flight", "confidence": 0.86, "reasoning": "mentions booking a flight", "alternatives": [{"intent": "check_order", "confidence": 0.15}]}`,
			DelayMs:  20,
		},
		{
			Match:    "酒店",
			Response: `{"intent": "book_hotel", "confidence": 0.85, "reasoning": "utterance asks about a hotel stay", "alternatives": []}`,
			DelayMs:  20,
		},
		{
			Match:    "hotel",
			Response: `{"intent": "book_hotel", "confidence": 0.84, "reasoning": "mentions a hotel booking", "alternatives": []}`,
			DelayMs:  20,
		},
		{
			Match:    "退款",
			Response: `{"intent": "request_refund", "confidence": 0.9, "reasoning": "utterance asks for a refund", "alternatives": []}`,
			DelayMs:  25,
		},
		{
			Match:    "refund",
			Response: `{"intent": "request_refund", "confidence": 0.89, "reasoning": "asks for money back", "alternatives": []}`,
			DelayMs:  25,
		},
		{
			Match:    "订单",
			Response: `{"intent": "check_order", "confidence": 0.82, "reasoning": "asks about an existing order", "alternatives": [{"intent": "request_refund", "confidence": 0.3}]}`,
			DelayMs:  20,
		},
		{
			Match:    "order",
			Response: `{"intent": "check_order", "confidence": 0.8, "reasoning": "asks about an order", "alternatives": [{"intent": "request_refund", "confidence": 0.25}]}`,
			DelayMs:  20,
		},
		{
			Match:    "你好",
			Response: `{"intent": "greeting", "confidence": 0.95, "reasoning": "greeting", "alternatives": []}`,
			DelayMs:  10,
		},
		{
			Match:    "hello",
			Response: `{"intent": "greeting", "confidence": 0.95, "reasoning": "greeting", "alternatives": []}`,
			DelayMs:  10,
		},
	}
}

// Chat implements Provider. It matches the last user message against the
// script and returns the first matching rule's response. Unmatched input
// yields a well-formed low-confidence envelope with an empty intent.
func (s *ScriptedProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()
	s.calls.Add(1)

	utterance := lastUserMessage(req)
	rule, matched := s.findRule(utterance)

	if matched && rule.Fail != "" {
		switch rule.Fail {
		case FailTimeout:
			<-ctx.Done()
			return nil, ctx.Err()
		case FailUnavailable:
			return nil, fmt.Errorf("scripted provider: service unavailable for %q", rule.Match)
		case FailMalformed:
			return s.respond(req, start, "I think the user probably wants something, hard to say really."), nil
		default:
			return nil, fmt.Errorf("scripted provider: unknown failure mode %q", rule.Fail)
		}
	}

	content := `{"intent": "", "confidence": 0.2, "reasoning": "no scripted rule matched", "alternatives": []}`
	delay := time.Duration(0)
	if matched {
		content = rule.Response
		delay = time.Duration(rule.DelayMs) * time.Millisecond
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return s.respond(req, start, content), nil
}

// findRule returns the first rule whose Match is a substring of the
// utterance, case-insensitively.
func (s *ScriptedProvider) findRule(utterance string) (ScriptRule, bool) {
	folded := strings.ToLower(utterance)
	for _, rule := range s.rules {
		if rule.Match == "" {
			continue
		}
		if strings.Contains(folded, strings.ToLower(rule.Match)) {
			return rule, true
		}
	}
	return ScriptRule{}, false
}

func (s *ScriptedProvider) respond(req *ChatRequest, start time.Time, content string) *ChatResponse {
	promptLen := len(req.SystemPrompt)
	for _, m := range req.Messages {
		promptLen += len(m.Content)
	}

	// Rough 4-bytes-per-token estimate, enough for metrics
	promptTokens := promptLen / 4
	completionTokens := len(content) / 4

	return &ChatResponse{
		Content:          content,
		Model:            s.config.Model,
		TokensUsed:       promptTokens + completionTokens,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		Duration:         time.Since(start),
		FinishReason:     "stop",
	}
}

// Name returns the provider identifier.
func (s *ScriptedProvider) Name() string {
	return "scripted"
}

// Available always reports true; the script needs no network.
func (s *ScriptedProvider) Available() bool {
	return true
}

// Calls returns how many Chat calls the provider has served.
func (s *ScriptedProvider) Calls() int64 {
	return s.calls.Load()
}

// lastUserMessage returns the content of the most recent user message.
func lastUserMessage(req *ChatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return req.Messages[i].Content
		}
	}
	return ""
}
