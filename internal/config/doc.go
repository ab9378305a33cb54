// Package config provides configuration management for the Arbiter decision
// engine.
//
// # Overview
//
// The config package uses Viper to load configuration from YAML files and
// environment variables. It provides a type-safe configuration structure with
// validation, default values, automatic file creation, and hot reload.
//
// # Configuration File
//
// The configuration is stored at ~/.arbiter/config.yaml and is automatically
// created with sensible defaults on first use. The file structure mirrors
// the Go structs defined in this package.
//
// # Environment Variables
//
// All configuration values can be overridden using environment variables
// with the ARBITER_ prefix. Nested fields are separated by underscores.
//
// Examples:
//   - ARBITER_MODEL_PROVIDER=scripted
//   - ARBITER_DECISION_DEFAULT_STRATEGY=cache_fallback
//   - ARBITER_TRACKER_WINDOW_SIZE=50
//   - ARBITER_LOGGING_LEVEL=debug
//
// # Hot Reload
//
// Long-running components share a Store and call Get per operation. A
// Watcher re-reads the config file whenever it changes on disk and swaps
// the parsed result into the Store, so tuning factor weights or the
// strategy table takes effect on the next decision without a restart.
// A file that fails to parse or validate is discarded and logged; the
// Store keeps serving the last good configuration.
//
//	store := config.NewStore(cfg)
//	w := config.NewWatcher(cfg.GetConfigPath(), store, logger)
//	if err := w.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Weight Normalization
//
// Factor weights, the hybrid calibration blend, and the tracker blend are
// relative weights. Groups whose sum drifts from 1.0 are rescaled at load
// time by Normalize rather than rejected, so a hand-edited table summing
// to 0.999 keeps working. Validate only rejects values that cannot be
// rescaled into sense: negative weights, unknown factor or strategy names,
// unknown error classes.
//
// # Usage Example
//
//	package main
//
//	import (
//	    "log"
//	    "github.com/rwalling/arbiter/internal/config"
//	)
//
//	func main() {
//	    // Load configuration
//	    cfg, err := config.Load()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    // Ensure all directories exist
//	    if err := cfg.EnsureDirectories(); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    // Validate configuration
//	    if err := cfg.Validate(); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    // Use configuration
//	    row := cfg.Strategies[cfg.Decision.DefaultStrategy]
//	    log.Printf("Default strategy %s costs %.2f", cfg.Decision.DefaultStrategy, row.CostWeight)
//	}
//
// # Configuration Sections
//
//   - Model: inference backend for intent classification (provider, timeout, tokens)
//   - Recognizer: prompt building, rule fallback scoring, context bonuses
//   - Calibration: per-source confidence multipliers and the hybrid blend
//   - Decision: factor weights, business priorities, scoring parameters
//   - Strategies: per-strategy tuning table (cost, applicability, seeds)
//   - Tracker: performance tracking window and blend weights
//   - Storage: data directory and database path
//   - Events: event bus buffer and history sizes
//   - Logging: log level and output file configuration
//
// # Path Expansion
//
// The package automatically expands ~ to the user's home directory in
// all path configurations, making config files portable across systems.
//
// # Validation
//
// The Validate() method checks configuration for common errors:
//   - Known strategy, factor, source, and error-class names in every table
//   - Numeric range validation (weights, windows, business hours)
//   - Required field presence
//
// # Thread Safety
//
// Config instances are not thread-safe and are treated as immutable once
// loaded. For concurrent access with hot reload, share a Store: Get returns
// the current snapshot and Set swaps in a replacement wholesale.
//
// # Testing
//
// The package includes comprehensive tests demonstrating all functionality.
// Run tests with:
//
//	go test ./internal/config/
//
// See example_test.go for usage examples and patterns.
package config
