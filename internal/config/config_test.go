package config

import (
	"testing"
	"time"
)

func TestDefaultIndex(t *testing.T) {
	cfg := DefaultIndex()

	if cfg.DefaultCellSize != 128 {
		t.Errorf("expected default cell size 128, got %v", cfg.DefaultCellSize)
	}
	if cfg.MinCellSize != 32 {
		t.Errorf("expected min cell size 32, got %v", cfg.MinCellSize)
	}
	if cfg.DensityThreshold != 8 {
		t.Errorf("expected density threshold 8, got %d", cfg.DensityThreshold)
	}
	if cfg.AutoTuneCooldown != 5*time.Second {
		t.Errorf("expected 5s cooldown, got %v", cfg.AutoTuneCooldown)
	}
}

func TestIndexEnvOverrides(t *testing.T) {
	t.Setenv("INDEX_CELL_SIZE", "256")
	t.Setenv("INDEX_DENSITY_THRESHOLD", "12")
	t.Setenv("INDEX_OCCUPANCY_TARGET", "20")

	cfg := IndexFromEnv()

	if cfg.DefaultCellSize != 256 {
		t.Errorf("expected cell size 256, got %v", cfg.DefaultCellSize)
	}
	if cfg.DensityThreshold != 12 {
		t.Errorf("expected threshold 12, got %d", cfg.DensityThreshold)
	}
	if cfg.OccupancyTarget != 20 {
		t.Errorf("expected occupancy target 20, got %v", cfg.OccupancyTarget)
	}
	// Untouched fields keep defaults
	if cfg.MinCellSize != 32 {
		t.Errorf("expected min cell size 32, got %v", cfg.MinCellSize)
	}
}

func TestInvalidEnvValuesIgnored(t *testing.T) {
	t.Setenv("INDEX_CELL_SIZE", "not-a-number")
	t.Setenv("TICK_RATE", "-5")

	if got := IndexFromEnv().DefaultCellSize; got != 128 {
		t.Errorf("bad env value should fall back to 128, got %v", got)
	}
	if got := WorldFromEnv().TickRate; got != 30 {
		t.Errorf("negative tick rate should fall back to 30, got %d", got)
	}
}

func TestLoadComposesAllSections(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("STATS_DB", "/tmp/stats.db")

	cfg := Load()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Stats.Path != "/tmp/stats.db" {
		t.Errorf("expected stats path override, got %q", cfg.Stats.Path)
	}
	if cfg.Limits.MaxEntities != 10000 {
		t.Errorf("expected default entity limit 10000, got %d", cfg.Limits.MaxEntities)
	}
}
