package llm

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwalling/arbiter/internal/config"
)

// stubProvider is a minimal Provider for factory tests.
type stubProvider struct {
	name string
}

func (s *stubProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	return &ChatResponse{Content: "{}", Model: req.Model, Duration: time.Millisecond}, nil
}

func (s *stubProvider) Name() string    { return s.name }
func (s *stubProvider) Available() bool { return true }

// TestNewProviderFromConfig verifies the default config yields a working
// scripted provider wrapped with metrics.
func TestNewProviderFromConfig(t *testing.T) {
	cfg := config.Default()

	provider, err := NewProvider(cfg)
	require.NoError(t, err)
	assert.Equal(t, "scripted", provider.Name())

	_, ok := provider.(*MetricsProvider)
	assert.True(t, ok, "Factory should wrap providers with metrics")

	resp, err := provider.Chat(context.Background(), chatReq("hello"))
	require.NoError(t, err)
	assert.Contains(t, resp.Content, "greeting")
}

// TestNewProviderUnknownName verifies unknown names fail cleanly.
func TestNewProviderUnknownName(t *testing.T) {
	_, err := NewProviderByName("carrier-pigeon", DefaultConfig("carrier-pigeon"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

// TestRegisteredFactoryIsUsed verifies embedder-registered backends are
// constructable by name and metrics-wrapped.
func TestRegisteredFactoryIsUsed(t *testing.T) {
	RegisterProviderFactory("stub-backend", func(cfg *ProviderConfig) (Provider, error) {
		return &stubProvider{name: "stub-backend"}, nil
	})

	provider, err := NewProviderByName("stub-backend", DefaultConfig("stub-backend"))
	require.NoError(t, err)
	assert.Equal(t, "stub-backend", provider.Name())

	_, ok := provider.(*MetricsProvider)
	assert.True(t, ok)

	names := RegisteredProviders()
	assert.Contains(t, names, "scripted")
	assert.Contains(t, names, "stub-backend")
}

// TestRegisteredFactoryErrorPropagates verifies factory failures surface
// with the provider name attached.
func TestRegisteredFactoryErrorPropagates(t *testing.T) {
	RegisterProviderFactory("faulty-backend", func(cfg *ProviderConfig) (Provider, error) {
		return nil, fmt.Errorf("missing credentials")
	})

	_, err := NewProviderByName("faulty-backend", DefaultConfig("faulty-backend"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "faulty-backend")
	assert.Contains(t, err.Error(), "missing credentials")
}

// TestDefaultConfigBackfill verifies zero-valued fields pick up defaults.
func TestDefaultConfigBackfill(t *testing.T) {
	cfg := applyDefaults(&ProviderConfig{Name: "scripted"}, "scripted")
	assert.Equal(t, "intent-v1", cfg.Model)
	assert.Equal(t, 512, cfg.MaxTokens)
	assert.Equal(t, 30*time.Second, cfg.Timeout)

	cfg = applyDefaults(nil, "scripted")
	require.NotNil(t, cfg)
	assert.Equal(t, "scripted", cfg.Name)
}
