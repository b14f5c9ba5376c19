// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for index tuning and server settings.
//
// IMPORTANT: When changing defaults, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
	"time"
)

// =============================================================================
// BROAD-PHASE INDEX CONFIGURATION
// =============================================================================

// IndexConfig holds the spatial index tuning knobs.
// These values are shared between the index itself and the observability
// surfaces that report on it.
type IndexConfig struct {
	DefaultCellSize  float64       // Initial grid cell size in world units
	MinCellSize      float64       // Auto-tuner never shrinks cells below this
	DensityThreshold int           // Bin entity count that triggers DBVH conversion
	OccupancyTarget  float64       // Avg non-empty-bin occupancy that triggers auto-tune
	AutoTuneCooldown time.Duration // Minimum interval between cell-size changes
}

// DefaultIndex returns the default index configuration.
func DefaultIndex() IndexConfig {
	return IndexConfig{
		DefaultCellSize:  128,
		MinCellSize:      32,
		DensityThreshold: 8,
		OccupancyTarget:  10,
		AutoTuneCooldown: 5 * time.Second,
	}
}

// IndexFromEnv returns index configuration with environment variable overrides.
// Environment variables take precedence over defaults.
func IndexFromEnv() IndexConfig {
	cfg := DefaultIndex()

	if v := getEnvFloat("INDEX_CELL_SIZE", 0); v > 0 {
		cfg.DefaultCellSize = v
	}
	if v := getEnvInt("INDEX_DENSITY_THRESHOLD", 0); v > 0 {
		cfg.DensityThreshold = v
	}
	if v := getEnvFloat("INDEX_OCCUPANCY_TARGET", 0); v > 0 {
		cfg.OccupancyTarget = v
	}
	if v := getEnvInt("INDEX_AUTOTUNE_COOLDOWN_SEC", 0); v > 0 {
		cfg.AutoTuneCooldown = time.Duration(v) * time.Second
	}

	return cfg
}

// =============================================================================
// WORLD / SIMULATION CONFIGURATION
// =============================================================================

// WorldConfig holds the demo simulation settings.
type WorldConfig struct {
	Width    float64 // World width in units
	Height   float64 // World height in units
	TickRate int     // Simulation ticks per second
}

// DefaultWorld returns the default world configuration.
func DefaultWorld() WorldConfig {
	return WorldConfig{
		Width:    4096,
		Height:   4096,
		TickRate: 30,
	}
}

// WorldFromEnv returns world configuration with environment variable overrides.
func WorldFromEnv() WorldConfig {
	cfg := DefaultWorld()

	if v := getEnvFloat("WORLD_WIDTH", 0); v > 0 {
		cfg.Width = v
	}
	if v := getEnvFloat("WORLD_HEIGHT", 0); v > 0 {
		cfg.Height = v
	}
	if v := getEnvInt("TICK_RATE", 0); v > 0 {
		cfg.TickRate = v
	}

	return cfg
}

// =============================================================================
// RESOURCE LIMITS
// =============================================================================

// ResourceLimits controls DoS protection and performance limits.
type ResourceLimits struct {
	MaxEntities      int // Hard cap on simulated entities
	MaxSpawnPerCall  int // Per-request spawn cap on the API
	MaxWSConnections int // Total websocket connection cap
	MaxWSPerIP       int // Websocket connections per IP
}

// DefaultLimits returns the default resource limits.
func DefaultLimits() ResourceLimits {
	return ResourceLimits{
		MaxEntities:      10_000,
		MaxSpawnPerCall:  500,
		MaxWSConnections: 500,
		MaxWSPerIP:       10,
	}
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port      int
	DebugAddr string // Observability server bind address (localhost only)
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:      3000,
		DebugAddr: "127.0.0.1:6060",
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if addr := os.Getenv("DEBUG_ADDR"); addr != "" {
		cfg.DebugAddr = addr
	}

	return cfg
}

// =============================================================================
// STATS RECORDING
// =============================================================================

// StatsConfig holds the optional sqlite tick-stats recorder settings.
// An empty Path disables recording entirely.
type StatsConfig struct {
	Path          string        // sqlite database path ("" = disabled)
	FlushInterval time.Duration // Batch flush interval
}

// StatsFromEnv returns stats recorder configuration from the environment.
func StatsFromEnv() StatsConfig {
	cfg := StatsConfig{
		Path:          os.Getenv("STATS_DB"),
		FlushInterval: 2 * time.Second,
	}
	if v := getEnvInt("STATS_FLUSH_SEC", 0); v > 0 {
		cfg.FlushInterval = time.Duration(v) * time.Second
	}
	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Index  IndexConfig
	World  WorldConfig
	Server ServerConfig
	Limits ResourceLimits
	Stats  StatsConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Index:  IndexFromEnv(),
		World:  WorldFromEnv(),
		Server: ServerFromEnv(),
		Limits: DefaultLimits(),
		Stats:  StatsFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// getEnvInt reads an integer environment variable with a fallback default.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// getEnvFloat reads a float environment variable with a fallback default.
func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
