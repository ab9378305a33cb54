package llm

import (
	"fmt"
	"time"

	"github.com/rwalling/arbiter/internal/config"
)

// NewProvider creates a classification provider based on configuration.
// The built-in scripted provider needs no network; any other name is
// resolved through the factories registered by the embedding application.
func NewProvider(cfg *config.Config) (Provider, error) {
	providerName := cfg.Model.Provider
	if providerName == "" {
		providerName = "scripted"
	}

	providerCfg := &ProviderConfig{
		Name:        providerName,
		Model:       cfg.Model.Model,
		MaxTokens:   cfg.Model.MaxTokens,
		Temperature: cfg.Model.Temperature,
		Timeout:     time.Duration(cfg.Model.TimeoutSeconds) * time.Second,
	}
	providerCfg = applyDefaults(providerCfg, providerName)

	if providerName == "scripted" {
		return buildScripted(providerCfg, cfg.Model.ScriptFile)
	}

	return NewProviderByName(providerName, providerCfg)
}

// NewProviderByName creates a specific provider by name.
// All providers are wrapped with MetricsProvider for call counting and
// latency tracking.
func NewProviderByName(name string, cfg *ProviderConfig) (Provider, error) {
	if name == "scripted" {
		return buildScripted(cfg, "")
	}

	factory, ok := lookupFactory(name)
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}

	provider, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("provider '%s': %w", name, err)
	}

	return wrapWithMetrics(provider), nil
}

// buildScripted constructs the scripted provider and wraps it.
func buildScripted(cfg *ProviderConfig, scriptPath string) (Provider, error) {
	provider, err := NewScriptedProvider(cfg, scriptPath)
	if err != nil {
		return nil, err
	}
	return wrapWithMetrics(provider), nil
}

// wrapWithMetrics wraps a provider and registers it globally.
func wrapWithMetrics(provider Provider) Provider {
	metricsProvider := NewMetricsProvider(provider)
	RegisterMetricsProvider(metricsProvider)
	return metricsProvider
}
