package llm

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ═══════════════════════════════════════════════════════════════════════════════
// PROVIDER FACTORIES (Pluggable backends)
// ═══════════════════════════════════════════════════════════════════════════════

// ProviderFactory builds a provider from its config. Embedders register
// factories for real inference backends; the built-in scripted provider
// covers offline runs and tests.
type ProviderFactory func(cfg *ProviderConfig) (Provider, error)

var (
	factoryMu sync.RWMutex
	factories = make(map[string]ProviderFactory)
)

// RegisterProviderFactory makes a backend constructable by name through
// NewProvider. Registering the same name twice replaces the factory.
func RegisterProviderFactory(name string, factory ProviderFactory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	factories[name] = factory
}

// lookupFactory returns the registered factory for name, if any.
func lookupFactory(name string) (ProviderFactory, bool) {
	factoryMu.RLock()
	defer factoryMu.RUnlock()
	f, ok := factories[name]
	return f, ok
}

// RegisteredProviders returns the names of all registered factories,
// sorted, plus the built-in scripted provider.
func RegisteredProviders() []string {
	factoryMu.RLock()
	names := make([]string, 0, len(factories)+1)
	for name := range factories {
		names = append(names, name)
	}
	factoryMu.RUnlock()

	names = append(names, "scripted")
	sort.Strings(names)
	return names
}

// ═══════════════════════════════════════════════════════════════════════════════
// METRICS REGISTRY (Aggregated reporting)
// ═══════════════════════════════════════════════════════════════════════════════

// MetricsRegistry tracks all MetricsProvider instances for aggregated reporting.
type MetricsRegistry struct {
	mu        sync.RWMutex
	providers map[string]*MetricsProvider
}

// globalRegistry is the singleton metrics registry.
var globalRegistry = &MetricsRegistry{
	providers: make(map[string]*MetricsProvider),
}

// Register adds a MetricsProvider to the registry.
func (r *MetricsRegistry) Register(provider *MetricsProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[provider.Name()] = provider
}

// Get retrieves a specific provider's MetricsProvider.
func (r *MetricsRegistry) Get(name string) *MetricsProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[name]
}

// GetAll returns all registered MetricsProviders.
func (r *MetricsRegistry) GetAll() map[string]*MetricsProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*MetricsProvider, len(r.providers))
	for k, v := range r.providers {
		result[k] = v
	}
	return result
}

// GetAllMetrics returns aggregated metrics from all providers.
func (r *MetricsRegistry) GetAllMetrics() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]interface{}, len(r.providers))
	for name, provider := range r.providers {
		result[name] = provider.GetMetrics()
	}
	return result
}

// Reset clears all metrics across all providers.
func (r *MetricsRegistry) Reset() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, provider := range r.providers {
		provider.Reset()
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// USAGE SUMMARY
// ═══════════════════════════════════════════════════════════════════════════════

// UsageSummary holds aggregated usage across all providers.
type UsageSummary struct {
	TotalCalls   int64
	TotalErrors  int64
	TotalTokens  int64
	InputTokens  int64
	OutputTokens int64
	ByProvider   map[string]ProviderUsage
}

// ProviderUsage holds per-provider usage.
type ProviderUsage struct {
	Calls        int64
	Errors       int64
	Tokens       int64
	InputTokens  int64
	OutputTokens int64
	AvgLatencyMs int64
}

// GetUsageSummary returns an aggregated usage summary across all providers.
func (r *MetricsRegistry) GetUsageSummary() *UsageSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summary := &UsageSummary{
		ByProvider: make(map[string]ProviderUsage),
	}

	for name, provider := range r.providers {
		metrics := provider.GetMetrics()

		calls, _ := metrics["total_calls"].(int64)
		errors, _ := metrics["total_errors"].(int64)
		tokens, _ := metrics["total_tokens"].(int64)
		inputTokens, _ := metrics["input_tokens"].(int64)
		outputTokens, _ := metrics["output_tokens"].(int64)
		avgLatency, _ := metrics["avg_latency_ms"].(int64)

		summary.TotalCalls += calls
		summary.TotalErrors += errors
		summary.TotalTokens += tokens
		summary.InputTokens += inputTokens
		summary.OutputTokens += outputTokens

		summary.ByProvider[name] = ProviderUsage{
			Calls:        calls,
			Errors:       errors,
			Tokens:       tokens,
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
			AvgLatencyMs: avgLatency,
		}
	}

	return summary
}

// FormatUsageSummary returns a human-readable usage summary.
func (r *MetricsRegistry) FormatUsageSummary() string {
	summary := r.GetUsageSummary()

	if summary.TotalCalls == 0 {
		return "No model calls recorded this session."
	}

	var sb strings.Builder
	sb.WriteString("═══════════════════════════════════════════════════════\n")
	sb.WriteString("                  MODEL USAGE SUMMARY                  \n")
	sb.WriteString("═══════════════════════════════════════════════════════\n\n")

	// Totals
	sb.WriteString(fmt.Sprintf("Total Calls:    %d (%d errors)\n",
		summary.TotalCalls, summary.TotalErrors))
	sb.WriteString(fmt.Sprintf("Total Tokens:   %d (in: %d, out: %d)\n",
		summary.TotalTokens, summary.InputTokens, summary.OutputTokens))

	sb.WriteString("\n───────────────────────────────────────────────────────\n")
	sb.WriteString("By Provider:\n\n")

	// Sorted for stable output
	names := make([]string, 0, len(summary.ByProvider))
	for name := range summary.ByProvider {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ps := summary.ByProvider[name]
		if ps.Calls == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("  %-12s %d calls, %d errors, %d tokens, avg %dms\n",
			name+":", ps.Calls, ps.Errors, ps.Tokens, ps.AvgLatencyMs))
	}

	sb.WriteString("\n═══════════════════════════════════════════════════════\n")

	return sb.String()
}

// ═══════════════════════════════════════════════════════════════════════════════
// PACKAGE-LEVEL FUNCTIONS (Access global registry)
// ═══════════════════════════════════════════════════════════════════════════════

// RegisterMetricsProvider adds a provider to the global registry.
func RegisterMetricsProvider(provider *MetricsProvider) {
	globalRegistry.Register(provider)
}

// GetMetricsProvider retrieves a specific provider from the global registry.
func GetMetricsProvider(name string) *MetricsProvider {
	return globalRegistry.Get(name)
}

// GetAllMetrics returns metrics from all registered providers.
func GetAllMetrics() map[string]interface{} {
	return globalRegistry.GetAllMetrics()
}

// GetUsageSummaryFormatted returns the formatted usage summary for the
// global registry.
func GetUsageSummaryFormatted() string {
	return globalRegistry.FormatUsageSummary()
}

// ResetAllMetrics clears metrics across all providers.
func ResetAllMetrics() {
	globalRegistry.Reset()
}

// GlobalRegistry returns the global metrics registry instance.
func GlobalRegistry() *MetricsRegistry {
	return globalRegistry
}
