package eval

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SUITE LOADER
// The default suite ships embedded in the binary; custom suites load from
// disk. Both go through the same parse-and-validate path.
// ═══════════════════════════════════════════════════════════════════════════════

//go:embed suites/default.yaml
var defaultSuiteYAML []byte

var (
	defaultSuite     *Suite
	defaultSuiteOnce sync.Once
	defaultSuiteErr  error
)

// DefaultSuite returns the embedded suite, parsed once and cached.
func DefaultSuite() (*Suite, error) {
	defaultSuiteOnce.Do(func() {
		defaultSuite, defaultSuiteErr = ParseSuite(defaultSuiteYAML)
		if defaultSuiteErr != nil {
			defaultSuiteErr = fmt.Errorf("built-in suite: %w", defaultSuiteErr)
		}
	})
	return defaultSuite, defaultSuiteErr
}

// LoadSuite reads and validates a suite file from disk.
func LoadSuite(path string) (*Suite, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read suite: %w", err)
	}
	suite, err := ParseSuite(raw)
	if err != nil {
		return nil, fmt.Errorf("suite %s: %w", path, err)
	}
	return suite, nil
}

// ParseSuite decodes YAML into a validated suite.
func ParseSuite(raw []byte) (*Suite, error) {
	var suite Suite
	if err := yaml.Unmarshal(raw, &suite); err != nil {
		return nil, fmt.Errorf("parse suite YAML: %w", err)
	}
	if err := suite.validate(); err != nil {
		return nil, err
	}
	return &suite, nil
}
