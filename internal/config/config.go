package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/rwalling/arbiter/pkg/types"
)

// WeightTolerance is how far a weight group may drift from 1.0 before
// Normalize rescales it. Drift inside the tolerance is left alone so that
// hand-written YAML like 0.3333/0.3333/0.3334 round-trips unchanged.
const WeightTolerance = 1e-9

// Config is the root configuration structure for Arbiter.
type Config struct {
	// Model contains inference backend settings for intent recognition
	Model ModelConfig `mapstructure:"model" yaml:"model"`

	// Recognizer contains intent recognition settings (prompting, rule
	// fallback, conversation-context scoring)
	Recognizer RecognizerConfig `mapstructure:"recognizer" yaml:"recognizer"`

	// Calibration contains confidence calibration multipliers and the
	// hybrid blend weights
	Calibration CalibrationConfig `mapstructure:"calibration" yaml:"calibration"`

	// Decision contains the fallback decision engine's factor weights and
	// scoring tables
	Decision DecisionConfig `mapstructure:"decision" yaml:"decision"`

	// Strategies is the per-strategy tuning table, keyed by strategy name
	// (immediate, retry_then_fallback, circuit_breaker, ...)
	Strategies map[string]StrategyConfig `mapstructure:"strategies" yaml:"strategies"`

	// Tracker contains strategy performance tracking settings
	Tracker TrackerConfig `mapstructure:"tracker" yaml:"tracker"`

	// Storage contains data directory and database settings
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`

	// Events contains event bus settings
	Events EventsConfig `mapstructure:"events" yaml:"events"`

	// Logging contains log level and output file settings
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// ModelConfig holds the inference backend used to classify intents.
// Concrete transports register themselves with the llm package; the
// built-in "scripted" provider replays canned responses and needs no
// network access.
type ModelConfig struct {
	// Provider selects the registered inference backend
	Provider string `mapstructure:"provider" yaml:"provider"`

	// Model is the model identifier passed to the provider
	Model string `mapstructure:"model" yaml:"model"`

	// TimeoutSeconds bounds a single classification call
	TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`

	// Temperature for classification calls (low keeps output parseable)
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`

	// MaxTokens caps the model response length
	MaxTokens int `mapstructure:"max_tokens" yaml:"max_tokens"`

	// ScriptFile optionally points the scripted provider at a YAML file
	// of canned exchanges. Empty uses the built-in samples.
	ScriptFile string `mapstructure:"script_file" yaml:"script_file"`
}

// RecognizerConfig tunes intent recognition: how prompts are built, how the
// rule fallback scores matches, and how conversation context adjusts
// confidence.
type RecognizerConfig struct {
	// MaxExamples is the number of example utterances per intent included
	// in the classification prompt
	MaxExamples int `mapstructure:"max_examples" yaml:"max_examples"`

	// HistoryTurns is the number of recent conversation turns included in
	// the classification prompt
	HistoryTurns int `mapstructure:"history_turns" yaml:"history_turns"`

	// DescriptionWeight is the rule-fallback score per keyword hit against
	// an intent description
	DescriptionWeight float64 `mapstructure:"description_weight" yaml:"description_weight"`

	// ExampleWeight is the rule-fallback score per keyword hit against an
	// intent example
	ExampleWeight float64 `mapstructure:"example_weight" yaml:"example_weight"`

	// MinRuleScore is the floor below which the rule fallback reports the
	// unknown intent instead of a weak guess
	MinRuleScore float64 `mapstructure:"min_rule_score" yaml:"min_rule_score"`

	// MaxRuleConfidence caps rule-fallback confidence so rule matches can
	// never look as certain as a model answer
	MaxRuleConfidence float64 `mapstructure:"max_rule_confidence" yaml:"max_rule_confidence"`

	// ContinuityBonus is added when the candidate intent continues the
	// previous turn's intent or stays in its related group
	ContinuityBonus float64 `mapstructure:"continuity_bonus" yaml:"continuity_bonus"`

	// FrequencyStep is the per-occurrence bonus for intents seen earlier
	// in the conversation
	FrequencyStep float64 `mapstructure:"frequency_step" yaml:"frequency_step"`

	// FrequencyCap bounds the accumulated frequency bonus
	FrequencyCap float64 `mapstructure:"frequency_cap" yaml:"frequency_cap"`

	// SlotBonus is added when the conversation already carries filled
	// slots relevant to the candidate intent
	SlotBonus float64 `mapstructure:"slot_bonus" yaml:"slot_bonus"`

	// RecencyBonus is added when the conversation was active within the
	// recency window
	RecencyBonus float64 `mapstructure:"recency_bonus" yaml:"recency_bonus"`

	// RecencyWindowSeconds defines how recent "recent activity" is
	RecencyWindowSeconds int `mapstructure:"recency_window_seconds" yaml:"recency_window_seconds"`

	// RelatedIntents groups intent names that commonly follow each other
	// in one conversation (for the continuity bonus). Keyed by group name.
	RelatedIntents map[string][]string `mapstructure:"related_intents" yaml:"related_intents"`
}

// CalibrationConfig tunes confidence calibration.
type CalibrationConfig struct {
	// SourceMultipliers maps a confidence source (model, rule, context,
	// hybrid) to its calibration multiplier. Unknown sources fall back
	// to 1.0.
	SourceMultipliers map[string]float64 `mapstructure:"source_multipliers" yaml:"source_multipliers"`

	// ModelWeight, RuleWeight and ContextWeight blend the three signals
	// into a hybrid confidence. They are renormalized to sum to 1.0.
	ModelWeight   float64 `mapstructure:"model_weight" yaml:"model_weight"`
	RuleWeight    float64 `mapstructure:"rule_weight" yaml:"rule_weight"`
	ContextWeight float64 `mapstructure:"context_weight" yaml:"context_weight"`
}

// DecisionConfig tunes the fallback decision engine. FactorWeights carries
// the ten scoring dimensions; the remaining fields parameterize individual
// factor computations so that operational tuning never requires a rebuild.
type DecisionConfig struct {
	// FactorWeights maps factor name to weight. Weights are renormalized
	// to sum to 1.0 at load time and again defensively per decision.
	FactorWeights map[string]float64 `mapstructure:"factor_weights" yaml:"factor_weights"`

	// DefaultStrategy is recommended when no strategies are available
	DefaultStrategy string `mapstructure:"default_strategy" yaml:"default_strategy"`

	// MaxAlternatives caps the ranked alternatives attached to a decision
	MaxAlternatives int `mapstructure:"max_alternatives" yaml:"max_alternatives"`

	// BusinessPriorities maps an error class to its business urgency in
	// [0, 1]. Classes missing from the table score 0.5.
	BusinessPriorities map[string]float64 `mapstructure:"business_priorities" yaml:"business_priorities"`

	// PremiumTierBonus is added to the business-priority factor when the
	// request carries a premium tier business rule
	PremiumTierBonus float64 `mapstructure:"premium_tier_bonus" yaml:"premium_tier_bonus"`

	// BusinessHoursStart and BusinessHoursEnd bound the local business
	// day (24h clock) for the time-of-day factor
	BusinessHoursStart int `mapstructure:"business_hours_start" yaml:"business_hours_start"`
	BusinessHoursEnd   int `mapstructure:"business_hours_end" yaml:"business_hours_end"`

	// HistoryEMAWeight and HistoryRecentWeight blend the tracked success
	// rate with the mean of recent outcomes for the historical-success
	// factor
	HistoryEMAWeight    float64 `mapstructure:"history_ema_weight" yaml:"history_ema_weight"`
	HistoryRecentWeight float64 `mapstructure:"history_recent_weight" yaml:"history_recent_weight"`

	// ResponseTimeRef is the response time (seconds) at which the
	// response-time factor scores 0.5
	ResponseTimeRef float64 `mapstructure:"response_time_ref" yaml:"response_time_ref"`

	// MaxConcurrent normalizes the active-request count into the system
	// load signal
	MaxConcurrent int `mapstructure:"max_concurrent" yaml:"max_concurrent"`

	// CostScale converts the success-per-cost ratio into [0, 1] for the
	// cost-effectiveness factor
	CostScale float64 `mapstructure:"cost_scale" yaml:"cost_scale"`

	// TriggerWindow is how many recent triggers the engine remembers when
	// judging whether an error class is currently frequent
	TriggerWindow int `mapstructure:"trigger_window" yaml:"trigger_window"`

	// SatisfactionUserWeight blends the caller-reported satisfaction
	// score with the strategy's baseline for the user-satisfaction factor
	SatisfactionUserWeight float64 `mapstructure:"satisfaction_user_weight" yaml:"satisfaction_user_weight"`

	// ConfidenceStabilityWeight and ConfidenceScoreWeight blend factor
	// agreement (low variance) with the overall score into a per-strategy
	// confidence
	ConfidenceStabilityWeight float64 `mapstructure:"confidence_stability_weight" yaml:"confidence_stability_weight"`
	ConfidenceScoreWeight     float64 `mapstructure:"confidence_score_weight" yaml:"confidence_score_weight"`

	// MarginWinnerWeight, MarginGapWeight and MarginScale turn the
	// winner's confidence and its lead over the runner-up into the
	// decision confidence
	MarginWinnerWeight float64 `mapstructure:"margin_winner_weight" yaml:"margin_winner_weight"`
	MarginGapWeight    float64 `mapstructure:"margin_gap_weight" yaml:"margin_gap_weight"`
	MarginScale        float64 `mapstructure:"margin_scale" yaml:"margin_scale"`
}

// PatternScores is a strategy's fitness under each recent error trend.
// Defensive strategies score high when failures are rising; aggressive
// retries score high when failures are falling.
type PatternScores struct {
	Rising  float64 `mapstructure:"rising" yaml:"rising"`
	Falling float64 `mapstructure:"falling" yaml:"falling"`
	Stable  float64 `mapstructure:"stable" yaml:"stable"`
}

// StrategyConfig is one row of the per-strategy tuning table.
type StrategyConfig struct {
	// CostWeight is the relative cost of executing the strategy (1.0 is
	// the reference cost). Denominator of the cost-effectiveness factor.
	CostWeight float64 `mapstructure:"cost_weight" yaml:"cost_weight"`

	// ResourceCost in [0, 1] describes how heavy the strategy is on the
	// system (0 = near-free, 1 = expensive under load)
	ResourceCost float64 `mapstructure:"resource_cost" yaml:"resource_cost"`

	// Quality in [0, 1] describes how thorough the strategy's answers are
	// (0 = canned text, 1 = full alternative processing)
	Quality float64 `mapstructure:"quality" yaml:"quality"`

	// BaselineSatisfaction is the expected user satisfaction in [0, 1]
	// when no per-user signal is available
	BaselineSatisfaction float64 `mapstructure:"baseline_satisfaction" yaml:"baseline_satisfaction"`

	// SeedSuccessRate seeds the tracker before any outcomes are recorded
	SeedSuccessRate float64 `mapstructure:"seed_success_rate" yaml:"seed_success_rate"`

	// SeedResponseTime (seconds) seeds the tracked response time
	SeedResponseTime float64 `mapstructure:"seed_response_time" yaml:"seed_response_time"`

	// Applicability lists the error classes this strategy suits
	Applicability []string `mapstructure:"applicability" yaml:"applicability"`

	// BusinessHours and OffHours are the time-of-day fitness scores
	BusinessHours float64 `mapstructure:"business_hours" yaml:"business_hours"`
	OffHours      float64 `mapstructure:"off_hours" yaml:"off_hours"`

	// Pattern is the fitness table under rising/falling/stable failures
	Pattern PatternScores `mapstructure:"pattern" yaml:"pattern"`
}

// TrackerConfig tunes strategy performance tracking.
type TrackerConfig struct {
	// WindowSize is the per-key recent-outcome ring capacity
	WindowSize int `mapstructure:"window_size" yaml:"window_size"`

	// HistoryWeight and RecentWeight blend the previous success rate with
	// the recent-window mean on every recorded outcome. Renormalized to
	// sum to 1.0.
	HistoryWeight float64 `mapstructure:"history_weight" yaml:"history_weight"`
	RecentWeight  float64 `mapstructure:"recent_weight" yaml:"recent_weight"`

	// Persist writes recorded outcomes through to the local database so
	// aggregates survive restarts
	Persist bool `mapstructure:"persist" yaml:"persist"`
}

// StorageConfig holds filesystem paths.
type StorageConfig struct {
	// DataDir is the Arbiter home directory
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`

	// DBPath is the SQLite database file. The store opens arbiter.db in
	// this path's directory, so only the directory part is configurable.
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// EventsConfig tunes the in-process event bus.
type EventsConfig struct {
	// BufferSize is the per-subscriber channel buffer. Subscribers that
	// fall this far behind lose events rather than block publishers.
	BufferSize int `mapstructure:"buffer_size" yaml:"buffer_size"`

	// HistorySize is the replayable event history ring capacity
	HistorySize int `mapstructure:"history_size" yaml:"history_size"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level sets log verbosity: debug, info, warn, error
	Level string `mapstructure:"level" yaml:"level"`

	// File is the log file path (empty disables file logging)
	File string `mapstructure:"file" yaml:"file"`
}

// Default returns a Config populated with working defaults. The strategy
// table and factor weights below are the tuned production baseline; every
// value can be overridden per deployment in config.yaml.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".arbiter")

	return &Config{
		Model: ModelConfig{
			Provider:       "scripted",
			Model:          "intent-v1",
			TimeoutSeconds: 30,
			Temperature:    0.1, // classification wants determinism, not prose
			MaxTokens:      512,
		},
		Recognizer: RecognizerConfig{
			MaxExamples:          3,
			HistoryTurns:         5,
			DescriptionWeight:    0.3,
			ExampleWeight:        0.2,
			MinRuleScore:         0.3,
			MaxRuleConfidence:    0.95,
			ContinuityBonus:      0.2,
			FrequencyStep:        0.05,
			FrequencyCap:         0.15,
			SlotBonus:            0.2,
			RecencyBonus:         0.1,
			RecencyWindowSeconds: 300,
			RelatedIntents: map[string][]string{
				"travel":    {"book_flight", "book_hotel"},
				"post_sale": {"check_order", "request_refund"},
			},
		},
		Calibration: CalibrationConfig{
			SourceMultipliers: map[string]float64{
				string(types.SourceModel):   1.0,
				string(types.SourceRule):    0.85,
				string(types.SourceContext): 0.9,
				string(types.SourceHybrid):  1.05,
			},
			ModelWeight:   0.6, // the model signal dominates the hybrid blend
			RuleWeight:    0.25,
			ContextWeight: 0.15,
		},
		Decision: DecisionConfig{
			FactorWeights: map[string]float64{
				types.FactorErrorFrequency:    0.15,
				types.FactorHistoricalSuccess: 0.20,
				types.FactorResponseTime:      0.12,
				types.FactorUserContext:       0.10,
				types.FactorSystemLoad:        0.10,
				types.FactorTimeOfDay:         0.05,
				types.FactorErrorPattern:      0.08,
				types.FactorBusinessPriority:  0.10,
				types.FactorCostEffectiveness: 0.06,
				types.FactorUserSatisfaction:  0.04,
			},
			DefaultStrategy:           string(types.StrategyDefaultResponse),
			MaxAlternatives:           2,
			BusinessPriorities:        defaultBusinessPriorities(),
			PremiumTierBonus:          0.1,
			BusinessHoursStart:        9,
			BusinessHoursEnd:          18,
			HistoryEMAWeight:          0.7,
			HistoryRecentWeight:       0.3,
			ResponseTimeRef:           2.0,
			MaxConcurrent:             1000,
			CostScale:                 0.5,
			TriggerWindow:             50,
			SatisfactionUserWeight:    0.5,
			ConfidenceStabilityWeight: 0.6,
			ConfidenceScoreWeight:     0.4,
			MarginWinnerWeight:        0.7,
			MarginGapWeight:           0.3,
			MarginScale:               5.0, // a 0.2 score lead counts as a decisive win
		},
		Strategies: DefaultStrategies(),
		Tracker: TrackerConfig{
			WindowSize:    100,
			HistoryWeight: 0.7,
			RecentWeight:  0.3,
			Persist:       true,
		},
		Storage: StorageConfig{
			DataDir: dataDir,
			DBPath:  filepath.Join(dataDir, "data", "arbiter.db"),
		},
		Events: EventsConfig{
			BufferSize:  100,
			HistorySize: 1000,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(dataDir, "logs", "arbiter.log"),
		},
	}
}

// DefaultStrategies returns the tuned per-strategy table. Exported so the
// decision engine can backfill rows that a partial config file omits.
func DefaultStrategies() map[string]StrategyConfig {
	return map[string]StrategyConfig{
		string(types.StrategyImmediate): {
			CostWeight:           0.5,
			ResourceCost:         0.2,
			Quality:              0.3,
			BaselineSatisfaction: 0.6,
			SeedSuccessRate:      0.5, // blind retries are a coin flip until proven otherwise
			SeedResponseTime:     0.5,
			Applicability: []string{
				string(types.ErrorNetwork),
				string(types.ErrorTimeout),
			},
			BusinessHours: 0.6,
			OffHours:      0.5,
			Pattern:       PatternScores{Rising: 0.3, Falling: 0.7, Stable: 0.6},
		},
		string(types.StrategyRetryThenFallback): {
			CostWeight:           0.8,
			ResourceCost:         0.4,
			Quality:              0.5,
			BaselineSatisfaction: 0.65,
			SeedSuccessRate:      0.7,
			SeedResponseTime:     1.5,
			Applicability: []string{
				string(types.ErrorNetwork),
				string(types.ErrorTimeout),
				string(types.ErrorRateLimit),
				string(types.ErrorServiceUnavailable),
			},
			BusinessHours: 0.6,
			OffHours:      0.6,
			Pattern:       PatternScores{Rising: 0.5, Falling: 0.6, Stable: 0.6},
		},
		string(types.StrategyCircuitBreaker): {
			CostWeight:           0.6,
			ResourceCost:         0.3,
			Quality:              0.6,
			BaselineSatisfaction: 0.6,
			SeedSuccessRate:      0.85,
			SeedResponseTime:     0.3,
			Applicability: []string{
				string(types.ErrorNetwork),
				string(types.ErrorTimeout),
				string(types.ErrorRateLimit),
				string(types.ErrorServiceUnavailable),
			},
			BusinessHours: 0.6,
			OffHours:      0.7,
			Pattern:       PatternScores{Rising: 0.9, Falling: 0.4, Stable: 0.6},
		},
		string(types.StrategyGracefulDegradation): {
			CostWeight:           0.7,
			ResourceCost:         0.3,
			Quality:              0.5,
			BaselineSatisfaction: 0.7,
			SeedSuccessRate:      0.85,
			SeedResponseTime:     0.8,
			Applicability: []string{
				string(types.ErrorServiceUnavailable),
				string(types.ErrorInternal),
				string(types.ErrorModelFormat),
				string(types.ErrorLowConfidence),
			},
			BusinessHours: 0.5,
			OffHours:      0.6,
			Pattern:       PatternScores{Rising: 0.8, Falling: 0.5, Stable: 0.6},
		},
		string(types.StrategyCacheFallback): {
			CostWeight:           0.3,
			ResourceCost:         0.1,
			Quality:              0.4,
			BaselineSatisfaction: 0.65,
			SeedSuccessRate:      0.9, // serving a cached answer rarely fails outright
			SeedResponseTime:     0.1,
			Applicability: []string{
				string(types.ErrorNetwork),
				string(types.ErrorTimeout),
				string(types.ErrorRateLimit),
				string(types.ErrorServiceUnavailable),
			},
			BusinessHours: 0.5,
			OffHours:      0.7,
			Pattern:       PatternScores{Rising: 0.85, Falling: 0.5, Stable: 0.6},
		},
		string(types.StrategyAlternativeService): {
			CostWeight:           1.5,
			ResourceCost:         0.6,
			Quality:              0.8,
			BaselineSatisfaction: 0.75,
			SeedSuccessRate:      0.8,
			SeedResponseTime:     2.0,
			Applicability: []string{
				string(types.ErrorServiceUnavailable),
				string(types.ErrorAuth),
				string(types.ErrorInternal),
				string(types.ErrorModelFormat),
			},
			BusinessHours: 0.7,
			OffHours:      0.5,
			Pattern:       PatternScores{Rising: 0.7, Falling: 0.5, Stable: 0.6},
		},
		string(types.StrategyDefaultResponse): {
			CostWeight:           0.2,
			ResourceCost:         0.05,
			Quality:              0.2,
			BaselineSatisfaction: 0.4,
			SeedSuccessRate:      0.95, // always "succeeds", just not helpfully
			SeedResponseTime:     0.05,
			Applicability:        allErrorClassNames(),
			BusinessHours:        0.4,
			OffHours:             0.5,
			Pattern:              PatternScores{Rising: 0.6, Falling: 0.4, Stable: 0.5},
		},
	}
}

func defaultBusinessPriorities() map[string]float64 {
	return map[string]float64{
		string(types.ErrorServiceUnavailable): 0.9,
		string(types.ErrorTimeout):            0.8,
		string(types.ErrorNetwork):            0.7,
		string(types.ErrorRateLimit):          0.6,
		string(types.ErrorLowConfidence):      0.6,
		string(types.ErrorModelFormat):        0.5,
		string(types.ErrorInternal):           0.5,
		string(types.ErrorAuth):               0.4,
		string(types.ErrorUnknown):            0.5,
	}
}

func allErrorClassNames() []string {
	names := make([]string, 0, len(types.AllErrorClasses))
	for _, ec := range types.AllErrorClasses {
		names = append(names, string(ec))
	}
	return names
}

// Load reads configuration from the default location (~/.arbiter/config.yaml)
// and merges with environment variables. If no config file exists, it creates
// one with default values.
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, ".arbiter", "config.yaml")
	return LoadFromPath(configPath)
}

// LoadFromPath reads configuration from a specific file path and merges with
// environment variables. If the file doesn't exist, it creates one with
// default values.
func LoadFromPath(path string) (*Config, error) {
	// Expand tilde in path
	path = expandPath(path)

	// Ensure the config directory exists
	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	// Check if config file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// Create default config
		cfg := Default()
		if err := writeConfigFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
	}

	return readConfigFile(path)
}

// readConfigFile parses an existing config file into a Config, applies
// environment overrides, fills gaps with defaults, and renormalizes weight
// groups. It is the single parse path shared by LoadFromPath and the
// hot-reload watcher.
func readConfigFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Enable environment variable overrides
	// Example: ARBITER_DECISION_DEFAULT_STRATEGY=cache_fallback
	v.SetEnvPrefix("ARBITER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read the config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Expand paths with tilde
	cfg.Storage.DataDir = expandPath(cfg.Storage.DataDir)
	cfg.Storage.DBPath = expandPath(cfg.Storage.DBPath)
	cfg.Logging.File = expandPath(cfg.Logging.File)
	cfg.Model.ScriptFile = expandPath(cfg.Model.ScriptFile)

	cfg.applyDefaults()
	cfg.Normalize()

	return &cfg, nil
}

// applyDefaults fills in missing configuration values with defaults. Handles
// partial config files: a deployment that only tunes decision weights still
// gets the full strategy table.
func (c *Config) applyDefaults() {
	defaults := Default()

	if c.Model.Provider == "" {
		c.Model.Provider = defaults.Model.Provider
	}
	if c.Model.Model == "" {
		c.Model.Model = defaults.Model.Model
	}
	if c.Model.TimeoutSeconds == 0 {
		c.Model.TimeoutSeconds = defaults.Model.TimeoutSeconds
	}
	if c.Model.MaxTokens == 0 {
		c.Model.MaxTokens = defaults.Model.MaxTokens
	}

	if c.Recognizer.MaxExamples == 0 {
		c.Recognizer.MaxExamples = defaults.Recognizer.MaxExamples
	}
	if c.Recognizer.MaxRuleConfidence == 0 {
		c.Recognizer.MaxRuleConfidence = defaults.Recognizer.MaxRuleConfidence
	}
	if c.Recognizer.RecencyWindowSeconds == 0 {
		c.Recognizer.RecencyWindowSeconds = defaults.Recognizer.RecencyWindowSeconds
	}
	if c.Recognizer.RelatedIntents == nil {
		c.Recognizer.RelatedIntents = defaults.Recognizer.RelatedIntents
	}

	if len(c.Calibration.SourceMultipliers) == 0 {
		c.Calibration.SourceMultipliers = defaults.Calibration.SourceMultipliers
	}
	if c.Calibration.ModelWeight == 0 && c.Calibration.RuleWeight == 0 && c.Calibration.ContextWeight == 0 {
		c.Calibration.ModelWeight = defaults.Calibration.ModelWeight
		c.Calibration.RuleWeight = defaults.Calibration.RuleWeight
		c.Calibration.ContextWeight = defaults.Calibration.ContextWeight
	}

	if len(c.Decision.FactorWeights) == 0 {
		c.Decision.FactorWeights = defaults.Decision.FactorWeights
	}
	if c.Decision.DefaultStrategy == "" {
		c.Decision.DefaultStrategy = defaults.Decision.DefaultStrategy
	}
	if len(c.Decision.BusinessPriorities) == 0 {
		c.Decision.BusinessPriorities = defaults.Decision.BusinessPriorities
	}
	if c.Decision.BusinessHoursStart == 0 && c.Decision.BusinessHoursEnd == 0 {
		c.Decision.BusinessHoursStart = defaults.Decision.BusinessHoursStart
		c.Decision.BusinessHoursEnd = defaults.Decision.BusinessHoursEnd
	}
	if c.Decision.HistoryEMAWeight == 0 && c.Decision.HistoryRecentWeight == 0 {
		c.Decision.HistoryEMAWeight = defaults.Decision.HistoryEMAWeight
		c.Decision.HistoryRecentWeight = defaults.Decision.HistoryRecentWeight
	}
	if c.Decision.ResponseTimeRef == 0 {
		c.Decision.ResponseTimeRef = defaults.Decision.ResponseTimeRef
	}
	if c.Decision.MaxConcurrent == 0 {
		c.Decision.MaxConcurrent = defaults.Decision.MaxConcurrent
	}
	if c.Decision.CostScale == 0 {
		c.Decision.CostScale = defaults.Decision.CostScale
	}
	if c.Decision.TriggerWindow == 0 {
		c.Decision.TriggerWindow = defaults.Decision.TriggerWindow
	}
	if c.Decision.SatisfactionUserWeight == 0 {
		c.Decision.SatisfactionUserWeight = defaults.Decision.SatisfactionUserWeight
	}
	if c.Decision.ConfidenceStabilityWeight == 0 && c.Decision.ConfidenceScoreWeight == 0 {
		c.Decision.ConfidenceStabilityWeight = defaults.Decision.ConfidenceStabilityWeight
		c.Decision.ConfidenceScoreWeight = defaults.Decision.ConfidenceScoreWeight
	}
	if c.Decision.MarginWinnerWeight == 0 && c.Decision.MarginGapWeight == 0 {
		c.Decision.MarginWinnerWeight = defaults.Decision.MarginWinnerWeight
		c.Decision.MarginGapWeight = defaults.Decision.MarginGapWeight
	}
	if c.Decision.MarginScale == 0 {
		c.Decision.MarginScale = defaults.Decision.MarginScale
	}

	// Backfill the strategy table row by row so that a config file tuning
	// a single strategy keeps the other six.
	if c.Strategies == nil {
		c.Strategies = map[string]StrategyConfig{}
	}
	for name, row := range DefaultStrategies() {
		if _, exists := c.Strategies[name]; !exists {
			c.Strategies[name] = row
		}
	}

	if c.Tracker.WindowSize == 0 {
		c.Tracker.WindowSize = defaults.Tracker.WindowSize
	}
	if c.Tracker.HistoryWeight == 0 && c.Tracker.RecentWeight == 0 {
		c.Tracker.HistoryWeight = defaults.Tracker.HistoryWeight
		c.Tracker.RecentWeight = defaults.Tracker.RecentWeight
	}

	if c.Storage.DataDir == "" {
		c.Storage.DataDir = defaults.Storage.DataDir
	}
	if c.Storage.DBPath == "" {
		c.Storage.DBPath = filepath.Join(c.Storage.DataDir, "data", "arbiter.db")
	}

	if c.Events.BufferSize == 0 {
		c.Events.BufferSize = defaults.Events.BufferSize
	}
	if c.Events.HistorySize == 0 {
		c.Events.HistorySize = defaults.Events.HistorySize
	}

	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}
}

// Normalize rescales every weight group whose sum drifted from 1.0, and
// reports whether anything changed. Weights are treated as relative, so a
// table summing to 0.999 is rescaled rather than rejected.
func (c *Config) Normalize() bool {
	changed := false

	if sum := mapSum(c.Decision.FactorWeights); sum > 0 && math.Abs(sum-1.0) > WeightTolerance {
		for k, w := range c.Decision.FactorWeights {
			c.Decision.FactorWeights[k] = w / sum
		}
		changed = true
	}

	hybridSum := c.Calibration.ModelWeight + c.Calibration.RuleWeight + c.Calibration.ContextWeight
	if hybridSum > 0 && math.Abs(hybridSum-1.0) > WeightTolerance {
		c.Calibration.ModelWeight /= hybridSum
		c.Calibration.RuleWeight /= hybridSum
		c.Calibration.ContextWeight /= hybridSum
		changed = true
	}

	trackerSum := c.Tracker.HistoryWeight + c.Tracker.RecentWeight
	if trackerSum > 0 && math.Abs(trackerSum-1.0) > WeightTolerance {
		c.Tracker.HistoryWeight /= trackerSum
		c.Tracker.RecentWeight /= trackerSum
		changed = true
	}

	historySum := c.Decision.HistoryEMAWeight + c.Decision.HistoryRecentWeight
	if historySum > 0 && math.Abs(historySum-1.0) > WeightTolerance {
		c.Decision.HistoryEMAWeight /= historySum
		c.Decision.HistoryRecentWeight /= historySum
		changed = true
	}

	return changed
}

func mapSum(m map[string]float64) float64 {
	sum := 0.0
	for _, v := range m {
		sum += v
	}
	return sum
}

// Save writes the current configuration to the default config file location.
func (c *Config) Save() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, ".arbiter", "config.yaml")
	return c.SaveToPath(configPath)
}

// SaveToPath writes the current configuration to a specific file path.
func (c *Config) SaveToPath(path string) error {
	path = expandPath(path)

	// Ensure the config directory exists
	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return writeConfigFile(path, c)
}

// GetDataDir returns the Arbiter data directory path (~/.arbiter by default).
func (c *Config) GetDataDir() string {
	if c.Storage.DataDir != "" {
		return expandPath(c.Storage.DataDir)
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".arbiter")
}

// GetConfigPath returns the full path to the config file.
func (c *Config) GetConfigPath() string {
	return filepath.Join(c.GetDataDir(), "config.yaml")
}

// EnsureDirectories creates all necessary directories for Arbiter operation.
// This includes the data directory, logs directory, and database directory.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.GetDataDir(),
		filepath.Dir(c.Storage.DBPath),
	}
	if c.Logging.File != "" {
		dirs = append(dirs, filepath.Dir(c.Logging.File))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// Validate checks the configuration for common errors and inconsistencies.
// Weight groups that merely drift from summing to 1.0 are not errors (see
// Normalize); Validate rejects values that cannot be rescaled into sense,
// such as negative weights or unknown table keys.
func (c *Config) Validate() error {
	// Validate model config
	if c.Model.Provider == "" {
		return fmt.Errorf("model.provider cannot be empty")
	}
	if c.Model.TimeoutSeconds <= 0 {
		return fmt.Errorf("model.timeout_seconds must be positive, got %d", c.Model.TimeoutSeconds)
	}
	if c.Model.MaxTokens <= 0 {
		return fmt.Errorf("model.max_tokens must be positive, got %d", c.Model.MaxTokens)
	}

	// Validate recognizer config
	if c.Recognizer.MaxExamples < 1 {
		return fmt.Errorf("recognizer.max_examples must be at least 1")
	}
	if c.Recognizer.HistoryTurns < 0 {
		return fmt.Errorf("recognizer.history_turns cannot be negative")
	}
	if c.Recognizer.MinRuleScore < 0 || c.Recognizer.MinRuleScore > 1 {
		return fmt.Errorf("recognizer.min_rule_score must be in [0, 1], got %v", c.Recognizer.MinRuleScore)
	}
	if c.Recognizer.MaxRuleConfidence <= 0 || c.Recognizer.MaxRuleConfidence > 1 {
		return fmt.Errorf("recognizer.max_rule_confidence must be in (0, 1], got %v", c.Recognizer.MaxRuleConfidence)
	}
	if c.Recognizer.DescriptionWeight < 0 || c.Recognizer.ExampleWeight < 0 {
		return fmt.Errorf("recognizer keyword weights cannot be negative")
	}

	// Validate calibration config
	for source, mult := range c.Calibration.SourceMultipliers {
		if !types.Source(source).Valid() {
			return fmt.Errorf("calibration.source_multipliers has unknown source '%s'", source)
		}
		if mult <= 0 {
			return fmt.Errorf("calibration multiplier for '%s' must be positive, got %v", source, mult)
		}
	}
	if c.Calibration.ModelWeight < 0 || c.Calibration.RuleWeight < 0 || c.Calibration.ContextWeight < 0 {
		return fmt.Errorf("calibration blend weights cannot be negative")
	}
	if c.Calibration.ModelWeight+c.Calibration.RuleWeight+c.Calibration.ContextWeight == 0 {
		return fmt.Errorf("calibration blend weights cannot all be zero")
	}

	// Validate decision config
	for name, w := range c.Decision.FactorWeights {
		if !knownFactor(name) {
			return fmt.Errorf("decision.factor_weights has unknown factor '%s'", name)
		}
		if w < 0 {
			return fmt.Errorf("decision factor weight '%s' cannot be negative, got %v", name, w)
		}
	}
	if mapSum(c.Decision.FactorWeights) == 0 {
		return fmt.Errorf("decision.factor_weights cannot sum to zero")
	}
	if !types.Strategy(c.Decision.DefaultStrategy).Valid() {
		return fmt.Errorf("invalid default_strategy '%s'", c.Decision.DefaultStrategy)
	}
	if c.Decision.MaxAlternatives < 0 {
		return fmt.Errorf("decision.max_alternatives cannot be negative")
	}
	for class, priority := range c.Decision.BusinessPriorities {
		if !types.ErrorClass(class).Valid() {
			return fmt.Errorf("decision.business_priorities has unknown error class '%s'", class)
		}
		if priority < 0 || priority > 1 {
			return fmt.Errorf("business priority for '%s' must be in [0, 1], got %v", class, priority)
		}
	}
	if c.Decision.BusinessHoursStart < 0 || c.Decision.BusinessHoursStart > 23 ||
		c.Decision.BusinessHoursEnd < 1 || c.Decision.BusinessHoursEnd > 24 ||
		c.Decision.BusinessHoursStart >= c.Decision.BusinessHoursEnd {
		return fmt.Errorf("business hours %d-%d are not a valid daytime range",
			c.Decision.BusinessHoursStart, c.Decision.BusinessHoursEnd)
	}

	// Validate strategy table
	if len(c.Strategies) == 0 {
		return fmt.Errorf("strategies table cannot be empty")
	}
	for name, row := range c.Strategies {
		if !types.Strategy(name).Valid() {
			return fmt.Errorf("strategies table has unknown strategy '%s'", name)
		}
		if row.CostWeight <= 0 {
			return fmt.Errorf("strategy '%s': cost_weight must be positive, got %v", name, row.CostWeight)
		}
		if row.ResourceCost < 0 || row.ResourceCost > 1 {
			return fmt.Errorf("strategy '%s': resource_cost must be in [0, 1]", name)
		}
		if row.SeedSuccessRate < 0 || row.SeedSuccessRate > 1 {
			return fmt.Errorf("strategy '%s': seed_success_rate must be in [0, 1]", name)
		}
		if row.SeedResponseTime < 0 {
			return fmt.Errorf("strategy '%s': seed_response_time cannot be negative", name)
		}
		for _, class := range row.Applicability {
			if !types.ErrorClass(class).Valid() {
				return fmt.Errorf("strategy '%s': unknown error class '%s' in applicability", name, class)
			}
		}
	}

	// Validate tracker config
	if c.Tracker.WindowSize < 1 {
		return fmt.Errorf("tracker.window_size must be at least 1, got %d", c.Tracker.WindowSize)
	}
	if c.Tracker.HistoryWeight < 0 || c.Tracker.RecentWeight < 0 {
		return fmt.Errorf("tracker blend weights cannot be negative")
	}
	if c.Tracker.HistoryWeight+c.Tracker.RecentWeight == 0 {
		return fmt.Errorf("tracker blend weights cannot both be zero")
	}

	// Validate events config
	if c.Events.BufferSize < 1 {
		return fmt.Errorf("events.buffer_size must be at least 1")
	}
	if c.Events.HistorySize < 0 {
		return fmt.Errorf("events.history_size cannot be negative")
	}

	// Validate logging config
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
	}

	return nil
}

func knownFactor(name string) bool {
	for _, f := range types.AllFactors {
		if f == name {
			return true
		}
	}
	return false
}

// writeConfigFile writes a Config struct to a YAML file.
// Uses gopkg.in/yaml.v3 directly to ensure proper tag-based serialization.
func writeConfigFile(path string, cfg *Config) error {
	// Marshal config to YAML bytes using yaml struct tags
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write to file with proper permissions
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// expandPath expands ~ to the user's home directory in a path string.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
