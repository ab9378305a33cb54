// Package metrics aggregates the event stream into session statistics for
// the CLI and the live dashboard. The collector subscribes to the bus and
// folds every announcement into counters; nothing here feeds back into the
// decision pipeline.
package metrics

import (
	"sync"
	"time"

	"github.com/rwalling/arbiter/internal/bus"
)

// SessionStats holds the counters for the current process lifetime.
type SessionStats struct {
	StartTime time.Time

	// Recognition
	Recognitions  int
	Fallbacks     int // recognitions that fell back to rule matching
	ModelErrors   int
	ConfidenceSum float64 // across completed recognitions
	ByIntent      map[string]int

	// Decisions
	Decisions  int
	ByStrategy map[string]int

	// Outcomes
	Outcomes        int
	OutcomeSuccess  int
	OutcomeFailures int
	TotalOutcomeMs  int64

	// Configuration
	ConfigReloads int

	LastEvent     string
	LastEventTime time.Time
}

// SuccessRate is the fraction of recorded outcomes that succeeded.
func (s *SessionStats) SuccessRate() float64 {
	if s.Outcomes == 0 {
		return 1.0
	}
	return float64(s.OutcomeSuccess) / float64(s.Outcomes)
}

// FallbackRate is the fraction of recognitions served by rule fallback.
func (s *SessionStats) FallbackRate() float64 {
	if s.Recognitions == 0 {
		return 0
	}
	return float64(s.Fallbacks) / float64(s.Recognitions)
}

// AvgConfidence is the mean confidence across completed recognitions.
func (s *SessionStats) AvgConfidence() float64 {
	if s.Recognitions == 0 {
		return 0
	}
	return s.ConfidenceSum / float64(s.Recognitions)
}

// AvgOutcomeLatency is the mean recorded outcome latency in seconds.
func (s *SessionStats) AvgOutcomeLatency() float64 {
	if s.Outcomes == 0 {
		return 0
	}
	return float64(s.TotalOutcomeMs) / float64(s.Outcomes) / 1000.0
}

// Uptime is the elapsed session duration.
func (s *SessionStats) Uptime() time.Duration {
	return time.Since(s.StartTime)
}

// Collector subscribes to the event bus and aggregates session metrics.
type Collector struct {
	bus       *bus.Bus
	mu        sync.RWMutex
	session   *SessionStats
	recent    []bus.Event
	maxEvents int
	sub       bus.SubscriptionID
	started   bool
	stopped   bool
}

// NewCollector creates a metrics collector. Start must be called before
// any events are counted.
func NewCollector(events *bus.Bus) *Collector {
	return &Collector{
		bus: events,
		session: &SessionStats{
			StartTime:  time.Now(),
			ByIntent:   make(map[string]int),
			ByStrategy: make(map[string]int),
		},
		maxEvents: 50,
	}
}

// Start subscribes to the bus. Safe to call with a nil bus; the collector
// then just reports an empty session.
func (c *Collector) Start() {
	if c.bus == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started || c.stopped {
		return
	}
	c.started = true

	// One wildcard subscription; dispatch happens on the event type
	c.sub = c.bus.Subscribe(bus.EventType(""), c.handleEvent)
}

// Stop unsubscribes from the bus.
func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}
	c.stopped = true

	if c.bus != nil && c.started {
		_ = c.bus.Unsubscribe(c.sub)
	}
}

// GetSessionStats returns a copy of the current session stats.
func (c *Collector) GetSessionStats() *SessionStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := *c.session
	stats.ByIntent = make(map[string]int, len(c.session.ByIntent))
	for k, v := range c.session.ByIntent {
		stats.ByIntent[k] = v
	}
	stats.ByStrategy = make(map[string]int, len(c.session.ByStrategy))
	for k, v := range c.session.ByStrategy {
		stats.ByStrategy[k] = v
	}
	return &stats
}

// GetRecentEvents returns the most recent n observed events, oldest first.
func (c *Collector) GetRecentEvents(n int) []bus.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if n > len(c.recent) {
		n = len(c.recent)
	}
	start := len(c.recent) - n
	events := make([]bus.Event, n)
	copy(events, c.recent[start:])
	return events
}

// handleEvent folds one bus event into the session counters. Runs on the
// subscriber goroutine, so everything locks.
func (c *Collector) handleEvent(event bus.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.recent = append(c.recent, event)
	if len(c.recent) > c.maxEvents {
		c.recent = c.recent[1:]
	}

	switch event.Type {
	case bus.EventRecognitionCompleted:
		c.session.Recognitions++
		c.session.ConfidenceSum += event.Confidence
		if event.Intent != "" {
			c.session.ByIntent[event.Intent]++
		}
		c.session.LastEvent = "recognized " + event.Intent

	case bus.EventRecognitionFallback:
		c.session.Fallbacks++
		c.session.LastEvent = "rule fallback"

	case bus.EventModelError:
		c.session.ModelErrors++
		c.session.LastEvent = "model error"

	case bus.EventDecisionMade:
		c.session.Decisions++
		if event.Strategy != "" {
			c.session.ByStrategy[event.Strategy]++
		}
		c.session.LastEvent = "decided " + event.Strategy

	case bus.EventOutcomeRecorded:
		c.session.Outcomes++
		if event.Success {
			c.session.OutcomeSuccess++
		} else {
			c.session.OutcomeFailures++
		}
		c.session.TotalOutcomeMs += event.DurationMs
		c.session.LastEvent = "outcome for " + event.Strategy

	case bus.EventConfigReloaded:
		c.session.ConfigReloads++
		c.session.LastEvent = "config reloaded"

	case bus.EventCacheInvalidate:
		c.session.LastEvent = "cache invalidated"

	default:
		c.session.LastEvent = string(event.Type)
	}
	c.session.LastEventTime = event.Timestamp
}
