// Package main is the entry point for the Arbiter CLI.
// Arbiter recognizes user intents with calibrated confidence and, when a
// downstream call fails, recommends the fallback strategy most likely to
// recover, learning from every reported outcome.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/rwalling/arbiter/internal/bus"
	"github.com/rwalling/arbiter/internal/config"
	"github.com/rwalling/arbiter/internal/data"
	"github.com/rwalling/arbiter/internal/decision"
	"github.com/rwalling/arbiter/internal/eval"
	"github.com/rwalling/arbiter/internal/llm"
	"github.com/rwalling/arbiter/internal/logging"
	"github.com/rwalling/arbiter/internal/metrics"
	"github.com/rwalling/arbiter/internal/recognizer"
	"github.com/rwalling/arbiter/internal/tracker"
	"github.com/rwalling/arbiter/internal/ui"
	"github.com/rwalling/arbiter/pkg/types"
)

var (
	version = "0.1.0"
	cfgPath string
	verbose bool
	log     *logging.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "arbiter",
		Short: "Arbiter - calibrated intent recognition with adaptive fallback decisions",
		Long: `Arbiter is the decision layer for a conversational system:
  • Intent recognition blending model, rule and context confidence
  • Per-source confidence calibration with a hybrid consensus boost
  • Ten-factor fallback strategy scoring when downstream calls fail
  • Strategy performance tracking that learns from reported outcomes
  • Live session dashboard over the in-process event bus

Recognize an utterance:   arbiter recognize "book a flight to Tokyo"
Pick a fallback strategy: arbiter decide --trigger timeout
Watch a live session:     arbiter dashboard --demo
Configuration:            arbiter config show`,
		PersistentPreRunE: initLogging,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard("default", time.Second, false)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default ~/.arbiter/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Arbiter v%s\n", version)
		},
	})

	// Recognition and decisioning
	rootCmd.AddCommand(recognizeCmd())
	rootCmd.AddCommand(decideCmd())

	// Learning loop
	rootCmd.AddCommand(outcomesCmd())
	rootCmd.AddCommand(simulateCmd())

	// Offline evaluation
	rootCmd.AddCommand(evalCmd())

	// Live dashboard
	rootCmd.AddCommand(dashboardCmd())

	// Config command group
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// LOGGING INITIALIZATION
// ═══════════════════════════════════════════════════════════════════════════════

func initLogging(cmd *cobra.Command, args []string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	logDir := filepath.Join(home, ".arbiter", "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to create log directory: %v\n", err)
	}

	// Timestamped log file for this session
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logFile := filepath.Join(logDir, fmt.Sprintf("arbiter_%s.log", timestamp))

	var cfg *logging.Config
	if verbose {
		cfg = logging.VerboseConfig()
	} else {
		cfg = logging.DefaultConfig()
	}
	cfg.FilePath = logFile

	log = logging.New(cfg)
	logging.SetGlobal(log)

	log.Debug("Arbiter session started - logging to %s", logFile)
	if verbose {
		log.Debug("Config path: %s", getConfigPath())
	}

	return nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// RECOGNIZE COMMAND
// ═══════════════════════════════════════════════════════════════════════════════

func recognizeCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "recognize [text]",
		Short: "Recognize the intent of one utterance",
		Long: `Classify an utterance against the built-in intent catalog and print
the calibrated result.

The model provider comes from config (model.provider); the default
scripted provider replays canned classifications and works offline.

Examples:
  arbiter recognize "book a flight to Tokyo"
  arbiter recognize 我想订机票
  arbiter recognize --json "where is my order"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := strings.Join(args, " ")

			c, cleanup, err := initCore()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			result := c.rec.Recognize(ctx, input, recognizer.DemoCatalog(), nil)

			if asJSON {
				return printJSON(result)
			}
			printRecognition(result)
			if verbose {
				if mp, ok := c.provider.(*llm.MetricsProvider); ok {
					fmt.Println()
					fmt.Println("Model usage: " + mp.GetSummaryLine())
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw result as JSON")

	return cmd
}

func printRecognition(result *types.RecognitionResult) {
	if result.Unknown() {
		fmt.Println("No intent recognized.")
		fmt.Printf("Reasoning:  %s\n", result.Reasoning)
		return
	}

	fmt.Printf("Intent:     %s\n", result.IntentName)
	fmt.Printf("Confidence: %.2f\n", result.Confidence)
	fmt.Printf("Reasoning:  %s\n", result.Reasoning)
	if len(result.Alternatives) > 0 {
		alts := make([]string, len(result.Alternatives))
		for i, a := range result.Alternatives {
			alts[i] = fmt.Sprintf("%s (%.2f)", a.IntentName, a.Score)
		}
		fmt.Printf("Also close: %s\n", strings.Join(alts, ", "))
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// DECIDE COMMAND
// ═══════════════════════════════════════════════════════════════════════════════

func decideCmd() *cobra.Command {
	var (
		trigger   string
		available []string
		vip       bool
		patience  float64
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Recommend a fallback strategy for an error",
		Long: `Score the candidate strategies for one error trigger and print the
engine's recommendation. Historical performance comes from the local
strategy tracker, so recommendations improve as outcomes are recorded
(see: arbiter outcomes, arbiter simulate).

Error classes: network, timeout, rate_limit, model_format_error,
service_unavailable, auth, internal, low_confidence, unknown.

Examples:
  arbiter decide --trigger timeout
  arbiter decide --trigger rate_limit --available immediate,cache_fallback
  arbiter decide --trigger service_unavailable --vip --patience 0.2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			errClass := types.ErrorClass(trigger)
			if !errClass.Valid() {
				return fmt.Errorf("unknown error class %q", trigger)
			}

			candidates := make([]types.Strategy, 0, len(available))
			for _, name := range available {
				name = strings.TrimSpace(name)
				if name == "" {
					continue
				}
				s := types.Strategy(name)
				if !s.Valid() {
					return fmt.Errorf("unknown strategy %q", name)
				}
				candidates = append(candidates, s)
			}

			c, cleanup, err := initCore()
			if err != nil {
				return err
			}
			defer cleanup()

			dc := types.DecisionContext{
				Trigger:   errClass,
				Available: candidates,
				User: types.UserProfile{
					UserID:        "cli",
					IsVIP:         vip,
					PatienceLevel: patience,
				},
				Timestamp: time.Now(),
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			result := c.engine.Decide(ctx, dc)

			if asJSON {
				return printJSON(result)
			}
			printDecision(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&trigger, "trigger", "timeout", "error class that started the fallback")
	cmd.Flags().StringSliceVar(&available, "available", defaultCandidates(), "candidate strategies (comma separated)")
	cmd.Flags().BoolVar(&vip, "vip", false, "treat the affected user as VIP")
	cmd.Flags().Float64Var(&patience, "patience", 0.5, "user patience level, 0.0-1.0")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw result as JSON")

	return cmd
}

// defaultCandidates is every real strategy; the engine adds the default
// response on its own when nothing else is available.
func defaultCandidates() []string {
	strategies := availableStrategies()
	out := make([]string, len(strategies))
	for i, s := range strategies {
		out[i] = string(s)
	}
	return out
}

func printDecision(result types.DecisionResult) {
	fmt.Printf("Recommended: %s\n", result.Recommended)
	fmt.Printf("Confidence:  %.2f\n", result.Confidence)
	if len(result.Alternatives) > 0 {
		alts := make([]string, len(result.Alternatives))
		for i, s := range result.Alternatives {
			alts[i] = string(s)
		}
		fmt.Printf("Fallbacks:   %s\n", strings.Join(alts, ", "))
	}
	if len(result.Reasoning) > 0 {
		fmt.Println("Reasoning:")
		for _, line := range result.Reasoning {
			fmt.Printf("  - %s\n", line)
		}
	}
	if len(result.Scores) > 0 {
		fmt.Println("Ranking:")
		for i, s := range result.Scores {
			fmt.Printf("  %d. %-22s score %.3f  est. success %.0f%%  est. rt %.2fs\n",
				i+1, s.Strategy, s.Score, s.EstimatedSuccessRate*100, s.EstimatedResponseTime)
		}
	}
	fmt.Printf("Decided in %.1fms\n", result.DecisionTime*1000)
}

// ═══════════════════════════════════════════════════════════════════════════════
// OUTCOMES COMMANDS
// ═══════════════════════════════════════════════════════════════════════════════

func outcomesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outcomes",
		Short: "Show or record strategy outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showOutcomes()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show tracked strategy performance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showOutcomes()
		},
	})

	var (
		strategy string
		success  bool
		latency  float64
	)
	record := &cobra.Command{
		Use:   "record",
		Short: "Record one strategy execution outcome",
		Long: `Report the result of executing a recommended strategy back into the
performance tracker. This closes the learning loop from scripts and
other processes.

Example:
  arbiter outcomes record --strategy circuit_breaker --success --latency 0.3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := types.Strategy(strategy)
			if !s.Valid() {
				return fmt.Errorf("unknown strategy %q", strategy)
			}
			if latency < 0 {
				return fmt.Errorf("latency must be >= 0, got %v", latency)
			}

			c, cleanup, err := initCore()
			if err != nil {
				return err
			}
			defer cleanup()

			c.track.RecordOutcome(s, success, time.Duration(latency*float64(time.Second)))

			agg := c.track.Get(s)
			word := "failure"
			if success {
				word = "success"
			}
			fmt.Printf("Recorded %s for %s.\n", word, s)
			fmt.Printf("Now: success rate %.1f%%, avg rt %.2fs, %d uses.\n",
				agg.SuccessRate*100, agg.AvgResponseTime, agg.UsageCount)
			return nil
		},
	}
	record.Flags().StringVar(&strategy, "strategy", "", "strategy that was executed (required)")
	record.Flags().BoolVar(&success, "success", false, "whether the execution succeeded")
	record.Flags().Float64Var(&latency, "latency", 0, "observed latency in seconds")
	_ = record.MarkFlagRequired("strategy")
	cmd.AddCommand(record)

	return cmd
}

func showOutcomes() error {
	c, cleanup, err := initCore()
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Println("Strategy performance:")
	fmt.Println("─────────────────────")
	fmt.Printf("%-22s %9s %8s %6s %8s\n", "STRATEGY", "SUCCESS", "AVG RT", "USED", "RECENT")
	for _, s := range types.AllStrategies {
		agg := c.track.Get(s)
		recent := "-"
		if n := len(agg.Recent); n > 0 {
			wins := 0
			for _, o := range agg.Recent {
				if o.Success {
					wins++
				}
			}
			recent = fmt.Sprintf("%d/%d", wins, n)
		}
		fmt.Printf("%-22s %8.1f%% %7.2fs %6d %8s\n",
			s, agg.SuccessRate*100, agg.AvgResponseTime, agg.UsageCount, recent)
	}

	if c.cfg.Tracker.Persist {
		fmt.Printf("\nOutcomes persist to %s\n", c.cfg.Storage.DBPath)
	} else {
		fmt.Println("\nPersistence is off (tracker.persist); aggregates reset per process.")
	}
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// EVAL COMMAND
// ═══════════════════════════════════════════════════════════════════════════════

func evalCmd() *cobra.Command {
	var (
		suitePath string
		plain     bool
	)

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Run the offline scenario suite",
		Long: `Run recognition and decision scenarios against the current
configuration and print a pass/fail report. Without --suite the
built-in suite runs; it covers the clean path, every injected model
failure mode, and the canonical decision races.

The command exits non-zero when any case fails, so it slots into CI.

Examples:
  arbiter eval
  arbiter eval --suite ./suites/regression.yaml
  arbiter eval --plain > report.md`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			var suite *eval.Suite
			if suitePath != "" {
				suite, err = eval.LoadSuite(suitePath)
			} else {
				suite, err = eval.DefaultSuite()
			}
			if err != nil {
				return err
			}

			runner := eval.NewRunner(config.NewStore(cfg), nil)

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			report, err := runner.Run(ctx, suite)
			if err != nil {
				return err
			}

			md := report.Markdown()
			if plain {
				fmt.Println(md)
			} else {
				fmt.Println(renderMarkdown(md))
			}

			if !report.Ok() {
				return fmt.Errorf("%d of %d cases failed", report.Failed(), report.Total())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&suitePath, "suite", "", "suite YAML file (default: built-in suite)")
	cmd.Flags().BoolVar(&plain, "plain", false, "print raw markdown without terminal rendering")

	return cmd
}

// renderMarkdown renders a markdown report for the terminal, falling back
// to the raw text when the renderer cannot be built.
func renderMarkdown(md string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

// ═══════════════════════════════════════════════════════════════════════════════
// SIMULATE COMMAND
// ═══════════════════════════════════════════════════════════════════════════════

func simulateCmd() *cobra.Command {
	var (
		iterations int
		trigger    string
		seed       int64
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Drive the decide-execute-learn loop with synthetic failures",
		Long: `Generate synthetic error contexts, let the engine pick a strategy,
execute it against a synthetic backend with per-strategy success odds,
and report every outcome back to the tracker. Prints how the tracked
success rates drifted, which is the learning loop working end to end.

Examples:
  arbiter simulate
  arbiter simulate --iterations 500 --seed 42
  arbiter simulate --trigger rate_limit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if iterations <= 0 {
				return fmt.Errorf("iterations must be positive, got %d", iterations)
			}
			var only types.ErrorClass
			if trigger != "" {
				only = types.ErrorClass(trigger)
				if !only.Valid() {
					return fmt.Errorf("unknown error class %q", trigger)
				}
			}
			if seed == 0 {
				seed = time.Now().UnixNano()
			}

			c, cleanup, err := initCore()
			if err != nil {
				return err
			}
			defer cleanup()

			return runSimulation(c, iterations, seed, only)
		},
	}

	cmd.Flags().IntVar(&iterations, "iterations", 100, "number of synthetic failures to decide on")
	cmd.Flags().StringVar(&trigger, "trigger", "", "restrict the simulation to one error class")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 picks one from the clock)")

	return cmd
}

// simBehavior is the synthetic backend for one strategy: how often it
// recovers and how long it takes.
type simBehavior struct {
	successProb float64
	minLatency  float64 // Seconds
	maxLatency  float64
}

var simBehaviors = map[types.Strategy]simBehavior{
	types.StrategyImmediate:           {successProb: 0.40, minLatency: 0.2, maxLatency: 0.8},
	types.StrategyRetryThenFallback:   {successProb: 0.65, minLatency: 1.0, maxLatency: 2.2},
	types.StrategyCircuitBreaker:      {successProb: 0.80, minLatency: 0.2, maxLatency: 0.5},
	types.StrategyGracefulDegradation: {successProb: 0.85, minLatency: 0.4, maxLatency: 0.9},
	types.StrategyCacheFallback:       {successProb: 0.90, minLatency: 0.05, maxLatency: 0.15},
	types.StrategyAlternativeService:  {successProb: 0.75, minLatency: 1.4, maxLatency: 2.4},
	types.StrategyDefaultResponse:     {successProb: 1.00, minLatency: 0.01, maxLatency: 0.02},
}

// simTriggers are the error classes the simulator rotates through when no
// --trigger restriction is given.
var simTriggers = []types.ErrorClass{
	types.ErrorNetwork,
	types.ErrorTimeout,
	types.ErrorRateLimit,
	types.ErrorServiceUnavailable,
	types.ErrorModelFormat,
	types.ErrorInternal,
}

// registerSyntheticExecutors binds a synthetic backend to every strategy.
// Executors report their synthetic latency instead of sleeping it off.
func registerSyntheticExecutors(reg *decision.ExecutorRegistry, rng *rand.Rand) {
	for s, b := range simBehaviors {
		b := b
		_ = reg.Register(s, func(ctx context.Context, dc types.DecisionContext) (bool, float64, any, error) {
			latency := b.minLatency + rng.Float64()*(b.maxLatency-b.minLatency)
			return rng.Float64() < b.successProb, latency, nil, nil
		})
	}
}

func runSimulation(c *core, iterations int, seed int64, only types.ErrorClass) error {
	rng := rand.New(rand.NewSource(seed))
	reg := decision.NewExecutorRegistry()
	registerSyntheticExecutors(reg, rng)

	before := make(map[types.Strategy]types.Aggregates, len(types.AllStrategies))
	for _, s := range types.AllStrategies {
		before[s] = c.track.Get(s)
	}

	picked := make(map[types.Strategy]int)
	wins := make(map[types.Strategy]int)
	ctx := context.Background()

	for i := 0; i < iterations; i++ {
		trigger := only
		if trigger == "" {
			trigger = simTriggers[rng.Intn(len(simTriggers))]
		}

		dc := types.DecisionContext{
			Trigger:   trigger,
			Available: availableStrategies(),
			User: types.UserProfile{
				UserID:        fmt.Sprintf("sim-%d", i),
				IsVIP:         rng.Float64() < 0.2,
				PatienceLevel: 0.2 + rng.Float64()*0.6,
			},
			Timestamp: time.Now(),
		}

		result := c.engine.Decide(ctx, dc)
		run := reg.Execute(ctx, result.Recommended, dc)
		c.track.RecordOutcome(run.Strategy, run.Success, run.Latency)

		picked[run.Strategy]++
		if run.Success {
			wins[run.Strategy]++
		}
	}

	scope := "mixed error classes"
	if only != "" {
		scope = string(only)
	}
	fmt.Printf("Simulated %d fallback decisions (%s, seed %d)\n\n", iterations, scope, seed)
	fmt.Printf("%-22s %7s %6s %13s %12s\n", "STRATEGY", "PICKED", "WINS", "RATE BEFORE", "RATE AFTER")
	for _, s := range types.AllStrategies {
		if picked[s] == 0 && before[s].UsageCount == 0 {
			continue
		}
		after := c.track.Get(s)
		fmt.Printf("%-22s %7d %6d %12.1f%% %11.1f%%\n",
			s, picked[s], wins[s], before[s].SuccessRate*100, after.SuccessRate*100)
	}

	if c.cfg.Tracker.Persist {
		fmt.Printf("\nAggregates persisted; the next run starts from these rates.\n")
	}
	return nil
}

func availableStrategies() []types.Strategy {
	out := make([]types.Strategy, 0, len(types.AllStrategies)-1)
	for _, s := range types.AllStrategies {
		if s == types.StrategyDefaultResponse {
			continue
		}
		out = append(out, s)
	}
	return out
}

// ═══════════════════════════════════════════════════════════════════════════════
// DASHBOARD COMMAND
// ═══════════════════════════════════════════════════════════════════════════════

func dashboardCmd() *cobra.Command {
	var (
		themeFlag string
		refresh   time.Duration
		demo      bool
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Launch the live session dashboard",
		Long: `Launch the terminal dashboard: session counters, per-strategy
performance, and the live event feed, all read from the in-process
event bus.

With --demo a background loop feeds the session with synthetic
recognitions, decisions and outcomes so every panel moves.

Available themes: ` + strings.Join(ui.ThemeNames(), ", ") + `

Examples:
  arbiter dashboard
  arbiter dashboard --demo
  arbiter dashboard --theme dracula --refresh 500ms`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(themeFlag, refresh, demo)
		},
	}

	cmd.Flags().StringVarP(&themeFlag, "theme", "t", "default", "color theme")
	cmd.Flags().DurationVar(&refresh, "refresh", time.Second, "panel refresh interval")
	cmd.Flags().BoolVar(&demo, "demo", false, "generate synthetic traffic while the dashboard runs")

	return cmd
}

func runDashboard(themeName string, refresh time.Duration, demo bool) error {
	defer log.Trace("runDashboard")()

	c, cleanup, err := initCore()
	if err != nil {
		return err
	}
	defer cleanup()

	// Force TrueColor so themed backgrounds render correctly everywhere.
	lipgloss.SetColorProfile(termenv.TrueColor)

	// The dashboard owns the terminal; logs go to the session file only.
	logging.DisableConsoleOutput()
	defer logging.EnableConsoleOutput()

	collector := metrics.NewCollector(c.events)
	collector.Start()
	defer collector.Stop()

	// Config edits land in the feed and in the live components.
	watcher := config.NewWatcher(getConfigPath(), c.store, log)
	watcher.OnReload(func(*config.Config) {
		_ = c.events.Publish(bus.NewConfigReloadedEvent(getConfigPath()))
	})
	if err := watcher.Start(); err != nil {
		log.Warn("Config watch unavailable: %v", err)
	}

	if demo {
		stop := make(chan struct{})
		defer close(stop)
		go demoTraffic(c, stop)
	}

	return ui.Run(&ui.Config{
		Collector:   collector,
		Performance: c.track,
		Provider:    c.provider.Name(),
		Theme:       themeName,
		Refresh:     refresh,
	})
}

// demoTraffic feeds the session with synthetic activity until stopped:
// recognitions through the real recognizer, decisions through the real
// engine, outcomes through the real tracker.
func demoTraffic(c *core, stop <-chan struct{}) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	reg := decision.NewExecutorRegistry()
	registerSyntheticExecutors(reg, rng)
	catalog := recognizer.DemoCatalog()

	utterances := []string{
		"我想订机票",
		"book a flight to Tokyo",
		"我要订酒店",
		"book a hotel in Paris",
		"我要退款",
		"refund my order please",
		"查一下我的订单",
		"where is my order",
		"你好",
		"hello there",
		"qwerty asdf zxcv",
	}

	for i := 0; ; i++ {
		select {
		case <-stop:
			return
		case <-time.After(time.Duration(400+rng.Intn(500)) * time.Millisecond):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if rng.Float64() < 0.5 {
			input := utterances[rng.Intn(len(utterances))]
			c.rec.Recognize(ctx, input, catalog, nil)
		} else {
			dc := types.DecisionContext{
				Trigger:   simTriggers[rng.Intn(len(simTriggers))],
				Available: availableStrategies(),
				User: types.UserProfile{
					UserID:        fmt.Sprintf("demo-%d", i),
					IsVIP:         rng.Float64() < 0.2,
					PatienceLevel: 0.2 + rng.Float64()*0.6,
				},
				Timestamp: time.Now(),
			}
			result := c.engine.Decide(ctx, dc)
			run := reg.Execute(ctx, result.Recommended, dc)
			c.track.RecordOutcome(run.Strategy, run.Success, run.Latency)
		}
		cancel()
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// CONFIG COMMANDS
// ═══════════════════════════════════════════════════════════════════════════════

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			fmt.Println("Arbiter configuration:")
			fmt.Println("──────────────────────")
			fmt.Printf("Provider:         %s (%s)\n", cfg.Model.Provider, cfg.Model.Model)
			fmt.Printf("Model timeout:    %ds\n", cfg.Model.TimeoutSeconds)
			fmt.Printf("Rule floor:       %.2f (cap %.2f)\n", cfg.Recognizer.MinRuleScore, cfg.Recognizer.MaxRuleConfidence)
			fmt.Printf("Default strategy: %s\n", cfg.Decision.DefaultStrategy)
			fmt.Printf("Tracker window:   %d (persist: %t)\n", cfg.Tracker.WindowSize, cfg.Tracker.Persist)
			fmt.Printf("Data dir:         %s\n", cfg.GetDataDir())
			fmt.Printf("Log level:        %s\n", cfg.Logging.Level)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(getConfigPath())
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := getConfigPath()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			if err := config.Default().SaveToPath(path); err != nil {
				return err
			}
			fmt.Printf("Wrote default configuration to %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	cmd.AddCommand(initCmd)

	return cmd
}

// ═══════════════════════════════════════════════════════════════════════════════
// CORE INITIALIZATION
// ═══════════════════════════════════════════════════════════════════════════════

// core is the shared object graph behind every command that recognizes,
// decides, or records.
type core struct {
	cfg      *config.Config
	store    *config.Store
	events   *bus.Bus
	db       *data.Store
	track    *tracker.Tracker
	provider llm.Provider
	rec      *recognizer.Recognizer
	engine   *decision.Engine
}

func initCore() (*core, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, nil, err
	}

	store := config.NewStore(cfg)
	events := bus.NewBusWithConfig(cfg.Events.HistorySize, cfg.Events.BufferSize)

	db, err := data.NewDB(filepath.Dir(cfg.Storage.DBPath))
	if err != nil {
		events.Close()
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	track := tracker.New(store, db, events)
	restoreCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := track.Restore(restoreCtx); err != nil {
		log.Warn("Could not restore strategy history: %v", err)
	}
	cancel()

	provider, err := llm.NewProvider(cfg)
	if err != nil {
		db.Close()
		events.Close()
		return nil, nil, fmt.Errorf("create provider: %w", err)
	}

	c := &core{
		cfg:      cfg,
		store:    store,
		events:   events,
		db:       db,
		track:    track,
		provider: provider,
		rec:      recognizer.New(provider, store, events),
		engine:   decision.New(store, track, db, events),
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			log.Warn("Closing database: %v", err)
		}
		if err := events.Close(); err != nil {
			log.Warn("Closing event bus: %v", err)
		}
	}
	return c, cleanup, nil
}

func loadConfig() (*config.Config, error) {
	path := getConfigPath()
	log.Debug("Loading config from: %s", path)
	return config.LoadFromPath(path)
}

func getConfigPath() string {
	if cfgPath != "" {
		return cfgPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ".arbiter/config.yaml"
	}
	return filepath.Join(home, ".arbiter", "config.yaml")
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
