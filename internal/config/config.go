// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for the server's bind addresses,
// board geometry, PRNG seed and debug/spectator addresses: cmd/server
// reads these values as its flag defaults.
//
// The timing knobs in TimingConfig are not read by cmd/server; the
// evaluator and scheduler take their timings from rules.DefaultConfig,
// rules.GrowthInterval and scheduler.DefaultConfig.
package config

import (
	"os"
	"strconv"
	"time"
)

// =============================================================================
// NETWORK CONFIGURATION
// =============================================================================

// NetworkConfig holds the server's three TCP endpoints.
type NetworkConfig struct {
	BindRequest int    // request/reply port (default 5533)
	BindPublish int    // publish port (default 5554)
	ArchivePush string // optional score-archive sink address, empty disables it
}

// DefaultNetwork returns the default endpoint configuration.
func DefaultNetwork() NetworkConfig {
	return NetworkConfig{
		BindRequest: 5533,
		BindPublish: 5554,
		ArchivePush: "",
	}
}

// NetworkFromEnv returns network configuration with environment variable
// overrides.
func NetworkFromEnv() NetworkConfig {
	cfg := DefaultNetwork()

	if p := getEnvInt("OUTERSPACE_BIND_REQ", 0); p > 0 {
		cfg.BindRequest = p
	}
	if p := getEnvInt("OUTERSPACE_BIND_PUB", 0); p > 0 {
		cfg.BindPublish = p
	}
	if a := os.Getenv("OUTERSPACE_ARCHIVE_PUSH"); a != "" {
		cfg.ArchivePush = a
	}

	return cfg
}

// =============================================================================
// WORLD GEOMETRY
// =============================================================================

// WorldConfig bounds the board size and target population, mirroring
// internal/world.Config but expressed as the CLI/env surface.
type WorldConfig struct {
	BoardSize      int
	MaxTargets     int
	InitialTargets int
	Seed           int64
}

// DefaultWorld returns the game's fixed defaults: a 20x20 board, up to 256
// targets, starting at 85.
func DefaultWorld() WorldConfig {
	return WorldConfig{
		BoardSize:      20,
		MaxTargets:     256,
		InitialTargets: 85,
		Seed:           0, // 0 means "derive from the clock", see scheduler.NewRNG
	}
}

// WorldFromEnv returns world configuration with environment variable
// overrides. The CLI flags in cmd/server take precedence over these when
// both are set.
func WorldFromEnv() WorldConfig {
	cfg := DefaultWorld()

	if v := getEnvInt("OUTERSPACE_BOARD_SIZE", 0); v > 0 {
		cfg.BoardSize = v
	}
	if v := getEnvInt("OUTERSPACE_MAX_TARGETS", 0); v > 0 {
		cfg.MaxTargets = v
	}
	if v := getEnvInt("OUTERSPACE_INITIAL_TARGETS", 0); v > 0 {
		cfg.InitialTargets = v
	}
	if v := getEnvInt("OUTERSPACE_SEED", 0); v != 0 {
		cfg.Seed = int64(v)
	}

	return cfg
}

// =============================================================================
// TIMING CONFIGURATION
// =============================================================================

// TimingConfig lists the evaluator and scheduler's timing values. It is
// not wired into either; see the package comment.
type TimingConfig struct {
	StunDuration     time.Duration
	CooldownDuration time.Duration
	DriftInterval    time.Duration
	GrowthInterval   time.Duration
}

// DefaultTiming returns the game's fixed timing constants.
func DefaultTiming() TimingConfig {
	return TimingConfig{
		StunDuration:     10 * time.Second,
		CooldownDuration: 3 * time.Second,
		DriftInterval:    time.Second,
		GrowthInterval:   10 * time.Second,
	}
}

// =============================================================================
// OBSERVABILITY CONFIGURATION
// =============================================================================

// ObservabilityConfig holds the loopback-only debug server and spectator
// bridge settings.
type ObservabilityConfig struct {
	DebugAddr     string // pprof + /metrics + /healthz, loopback only
	SpectatorAddr string // HTTP + WebSocket bridge for browser spectators
}

// DefaultObservability returns the default debug/spectator addresses.
func DefaultObservability() ObservabilityConfig {
	return ObservabilityConfig{
		DebugAddr:     "127.0.0.1:6060",
		SpectatorAddr: ":8080",
	}
}

// ObservabilityFromEnv returns observability configuration with
// environment variable overrides.
func ObservabilityFromEnv() ObservabilityConfig {
	cfg := DefaultObservability()

	if a := os.Getenv("OUTERSPACE_DEBUG_ADDR"); a != "" {
		cfg.DebugAddr = a
	}
	if a := os.Getenv("OUTERSPACE_SPECTATOR_ADDR"); a != "" {
		cfg.SpectatorAddr = a
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Network       NetworkConfig
	World         WorldConfig
	Timing        TimingConfig
	Observability ObservabilityConfig
}

// Load returns the complete configuration with environment overrides.
// cmd/server applies CLI flags on top of this.
func Load() AppConfig {
	return AppConfig{
		Network:       NetworkFromEnv(),
		World:         WorldFromEnv(),
		Timing:        DefaultTiming(),
		Observability: ObservabilityFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
