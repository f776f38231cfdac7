package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateSuccess(t *testing.T) {
	cfg := Default()
	cfg.StopDistance = 0.0050
	cfg.TakeDistance = 0.0100
	cfg.BreakEvenTrigger = 0.0030
	cfg.BreakEvenOffset = 0.0005
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateFailsOnBadRisk(t *testing.T) {
	cfg := Default()
	cfg.MaxRiskPerTrade = -0.01 // invalid
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for negative MaxRiskPerTrade")
	}
}

func TestValidateRejectsUnknownModes(t *testing.T) {
	cfg := Default()
	cfg.SizingMode = "doubling"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown sizing mode")
	}
	cfg = Default()
	cfg.GridMode = "sideways"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown grid mode")
	}
}

func TestValidateBreakEvenOffsetBelowTrigger(t *testing.T) {
	cfg := Default()
	cfg.BreakEvenTrigger = 0.0010
	cfg.BreakEvenOffset = 0.0010
	if err := cfg.Validate(); err == nil {
		t.Fatal("offset equal to trigger would arm a stop at the current price")
	}
}

func TestValidateMaxVolumeBelowMin(t *testing.T) {
	cfg := Default()
	cfg.MinVolume = 0.1
	cfg.MaxVolume = 0.05
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when MaxVolume < MinVolume")
	}
}

func TestValidateReportsFirstNegativeDistance(t *testing.T) {
	cfg := Default()
	cfg.StopDistance = -1
	cfg.TakeDistance = -2
	cfg.TrailingStep = -3
	for i := 0; i < 20; i++ {
		err := cfg.Validate()
		if err == nil {
			t.Fatal("expected error for negative distances")
		}
		if !strings.HasPrefix(err.Error(), "StopDistance") {
			t.Fatalf("run %d: expected StopDistance to be reported first, got %v", i, err)
		}
	}
}

func TestLoadAppliesYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grid.yaml")
	contents := `
sizing_mode: fibonacci
base_volume: 0.05
grid_mode: average_up
max_average_orders: 3
stop_distance: 0.005
allow_hedge: true
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("GOTSGRID_BASE_VOLUME", "0.02")
	t.Setenv("GOTSGRID_MAX_STEPS", "4")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.SizingMode != SizingFibonacci {
		t.Fatalf("expected sizing mode from YAML, got %q", cfg.SizingMode)
	}
	if cfg.BaseVolume != 0.02 {
		t.Fatalf("expected base volume from env, got %v", cfg.BaseVolume)
	}
	if cfg.MaxSteps != 4 {
		t.Fatalf("expected max steps from env, got %d", cfg.MaxSteps)
	}
	if !cfg.AllowHedge {
		t.Fatal("expected allow_hedge from YAML")
	}
	if cfg.HMAPeriod != 9 {
		t.Fatalf("expected default HMA period to survive, got %d", cfg.HMAPeriod)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("base_volume: 0\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for zero base volume")
	}
}
