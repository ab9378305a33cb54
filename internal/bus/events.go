// Package bus provides the in-process event bus that connects the decision
// pipeline to its observers. Recognition results, fallback decisions, and
// recorded outcomes are announced here so that metrics, persistence, and the
// dashboard can react without the pipeline knowing they exist.
package bus

import (
	"fmt"
	"sync/atomic"
	"time"
)

// EventType identifies the kind of event flowing through the bus.
type EventType string

// Event types published by the decision pipeline.
const (
	// Recognition lifecycle
	EventRecognitionCompleted EventType = "recognition.completed"
	EventRecognitionFallback  EventType = "recognition.fallback"

	// Model calls made on behalf of recognition
	EventModelRequest  EventType = "model.request"
	EventModelResponse EventType = "model.response"
	EventModelError    EventType = "model.error"

	// Decision lifecycle
	EventDecisionMade EventType = "decision.made"

	// Outcome feedback
	EventOutcomeRecorded EventType = "outcome.recorded"

	// Configuration
	EventConfigReloaded EventType = "config.reloaded"

	// Cache coordination: consumers holding derived state (dashboards,
	// report caches) should drop it and re-read
	EventCacheInvalidate EventType = "cache.invalidate"
)

// Event is a single announcement on the bus. Fields beyond the identification
// block are populated per event type; unused fields marshal away.
type Event struct {
	// Core identification
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`

	// Request tracking
	RequestID string `json:"request_id,omitempty"`

	// Recognition context
	Intent     string  `json:"intent,omitempty"`
	Source     string  `json:"source,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`

	// Decision context
	Strategy   string  `json:"strategy,omitempty"`
	ErrorClass string  `json:"error_class,omitempty"`
	Score      float64 `json:"score,omitempty"`

	// Outcome context
	Success    bool  `json:"success,omitempty"`
	DurationMs int64 `json:"duration_ms,omitempty"`

	// Content
	Content string `json:"content,omitempty"`
	Details string `json:"details,omitempty"`

	// Error information
	Error string `json:"error,omitempty"`

	// Model context
	Model string `json:"model,omitempty"`
}

// eventIDCounter for generating unique event IDs.
var eventIDCounter uint64

// generateEventID creates a unique event identifier.
func generateEventID() string {
	n := atomic.AddUint64(&eventIDCounter, 1)
	return fmt.Sprintf("evt_%d_%d", time.Now().UnixNano(), n)
}

// NewEvent creates a new event with the current timestamp and generated ID.
func NewEvent(eventType EventType) Event {
	return Event{
		ID:        generateEventID(),
		Timestamp: time.Now().UTC(),
		Type:      eventType,
	}
}

// NewRecognitionEvent creates a recognition.completed event.
func NewRecognitionEvent(requestID, intent, source string, confidence float64) Event {
	e := NewEvent(EventRecognitionCompleted)
	e.RequestID = requestID
	e.Intent = intent
	e.Source = source
	e.Confidence = confidence
	return e
}

// NewRecognitionFallbackEvent creates a recognition.fallback event, published
// when the model path failed and rule matching produced the result.
func NewRecognitionFallbackEvent(requestID, reason string) Event {
	e := NewEvent(EventRecognitionFallback)
	e.RequestID = requestID
	e.Details = reason
	return e
}

// NewDecisionEvent creates a decision.made event.
func NewDecisionEvent(requestID, strategy, errorClass string, score, confidence float64) Event {
	e := NewEvent(EventDecisionMade)
	e.RequestID = requestID
	e.Strategy = strategy
	e.ErrorClass = errorClass
	e.Score = score
	e.Confidence = confidence
	return e
}

// NewOutcomeEvent creates an outcome.recorded event.
func NewOutcomeEvent(strategy, errorClass string, success bool, duration time.Duration) Event {
	e := NewEvent(EventOutcomeRecorded)
	e.Strategy = strategy
	e.ErrorClass = errorClass
	e.Success = success
	e.DurationMs = duration.Milliseconds()
	return e
}

// NewConfigReloadedEvent creates a config.reloaded event.
func NewConfigReloadedEvent(path string) Event {
	e := NewEvent(EventConfigReloaded)
	e.Details = path
	return e
}

// NewCacheInvalidateEvent creates a cache.invalidate event. Scope names the
// derived state to drop; empty means everything.
func NewCacheInvalidateEvent(scope string) Event {
	e := NewEvent(EventCacheInvalidate)
	e.Details = scope
	return e
}

// NewModelErrorEvent creates a model.error event.
func NewModelErrorEvent(requestID, model, errMsg string) Event {
	e := NewEvent(EventModelError)
	e.RequestID = requestID
	e.Model = model
	e.Error = errMsg
	return e
}
