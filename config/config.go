package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Sizing modes.
const (
	SizingConstant  = "constant"
	SizingLinear    = "linear"
	SizingMultiply  = "multiply"
	SizingFibonacci = "fibonacci"
)

// Grid modes.
const (
	GridAverageDown = "average_down"
	GridAverageUp   = "average_up"
	GridNone        = "none"
)

// StrategyConfig holds all tunable parameters of the grid/martingale engine.
// Distances are absolute price units; volumes are in instrument lots.
type StrategyConfig struct {
	// Signal gate
	HMAPeriod    int `yaml:"hma_period"`      // default 9
	ATSEMAperiod int `yaml:"atso_ema_period"` // default 5
	ATRPeriod    int `yaml:"atr_period"`      // default 14

	// Volume sizing
	SizingMode           string  `yaml:"sizing_mode"`           // constant | linear | multiply | fibonacci
	BaseVolume           float64 `yaml:"base_volume"`           // first slice after a win
	MaxRiskPerTrade      float64 `yaml:"max_risk_per_trade"`    // constant mode: fraction of equity risked to the stop, 0 = use BaseVolume
	MartingaleMultiplier float64 `yaml:"martingale_multiplier"` // multiply mode
	MaxSteps             int     `yaml:"max_steps"`             // 0 = unbounded
	AveragingMultiplier  float64 `yaml:"averaging_multiplier"`  // per added slice, default 1
	LotIncrement         float64 `yaml:"lot_increment"`         // per added slice, default 0

	// Grid spacing
	GridMode         string  `yaml:"grid_mode"` // average_down | average_up | none
	GridMultiplier   float64 `yaml:"grid_multiplier"`
	MaxAverageOrders int     `yaml:"max_average_orders"`

	// Protective levels, 0 = disabled
	StopDistance     float64 `yaml:"stop_distance"`
	TakeDistance     float64 `yaml:"take_distance"`
	BreakEvenTrigger float64 `yaml:"break_even_trigger"`
	BreakEvenOffset  float64 `yaml:"break_even_offset"`
	TrailingStart    float64 `yaml:"trailing_start"`
	TrailingDistance float64 `yaml:"trailing_distance"`
	TrailingStep     float64 `yaml:"trailing_step"`

	// Broker constraints
	VolumeStep float64 `yaml:"volume_step"`
	MinVolume  float64 `yaml:"min_volume"`
	MaxVolume  float64 `yaml:"max_volume"` // 0 = uncapped

	// Engine
	AllowHedge bool   `yaml:"allow_hedge"`
	LogLevel   string `yaml:"log_level"`
}

// Default returns a config that validates and trades one averaging-down
// multiply-martingale basket at a time.
func Default() StrategyConfig {
	return StrategyConfig{
		HMAPeriod:            9,
		ATSEMAperiod:         5,
		ATRPeriod:            14,
		SizingMode:           SizingMultiply,
		BaseVolume:           0.01,
		MartingaleMultiplier: 2,
		MaxSteps:             3,
		AveragingMultiplier:  1,
		GridMode:             GridAverageDown,
		GridMultiplier:       1,
		MaxAverageOrders:     5,
		VolumeStep:           0.01,
		MinVolume:            0.01,
		LogLevel:             "info",
	}
}

// Validate checks that all numeric fields are within sensible bounds.
// It returns the first encountered error, allowing the caller to surface a
// clear configuration problem before any trading starts.
func (c *StrategyConfig) Validate() error {
	if c.HMAPeriod <= 0 {
		return errors.New("HMAPeriod must be positive")
	}
	if c.ATSEMAperiod <= 0 {
		return errors.New("ATSEMAperiod must be positive")
	}
	if c.ATRPeriod <= 0 {
		return errors.New("ATRPeriod must be positive")
	}
	switch c.SizingMode {
	case SizingConstant, SizingLinear, SizingMultiply, SizingFibonacci:
	default:
		return fmt.Errorf("unknown SizingMode %q", c.SizingMode)
	}
	if c.BaseVolume <= 0 {
		return fmt.Errorf("BaseVolume (%f) must be positive", c.BaseVolume)
	}
	if c.MaxRiskPerTrade < 0 || c.MaxRiskPerTrade > 0.5 {
		return fmt.Errorf("MaxRiskPerTrade (%f) must be >=0 and <=0.5", c.MaxRiskPerTrade)
	}
	if c.SizingMode == SizingMultiply && c.MartingaleMultiplier < 1 {
		return fmt.Errorf("MartingaleMultiplier (%f) must be >= 1", c.MartingaleMultiplier)
	}
	if c.MaxSteps < 0 {
		return errors.New("MaxSteps cannot be negative")
	}
	if c.AveragingMultiplier <= 0 {
		return fmt.Errorf("AveragingMultiplier (%f) must be positive", c.AveragingMultiplier)
	}
	if c.LotIncrement < 0 {
		return errors.New("LotIncrement cannot be negative")
	}
	switch c.GridMode {
	case GridAverageDown, GridAverageUp, GridNone:
	default:
		return fmt.Errorf("unknown GridMode %q", c.GridMode)
	}
	if c.GridMultiplier < 0 {
		return errors.New("GridMultiplier cannot be negative")
	}
	if c.MaxAverageOrders < 1 {
		return errors.New("MaxAverageOrders must be at least 1")
	}
	for _, d := range []struct {
		name string
		v    float64
	}{
		{"StopDistance", c.StopDistance},
		{"TakeDistance", c.TakeDistance},
		{"BreakEvenTrigger", c.BreakEvenTrigger},
		{"BreakEvenOffset", c.BreakEvenOffset},
		{"TrailingStart", c.TrailingStart},
		{"TrailingDistance", c.TrailingDistance},
		{"TrailingStep", c.TrailingStep},
	} {
		if d.v < 0 {
			return fmt.Errorf("%s (%f) cannot be negative", d.name, d.v)
		}
	}
	if c.BreakEvenTrigger > 0 && c.BreakEvenOffset >= c.BreakEvenTrigger {
		return fmt.Errorf("BreakEvenOffset (%f) must be below BreakEvenTrigger (%f)", c.BreakEvenOffset, c.BreakEvenTrigger)
	}
	if c.VolumeStep <= 0 {
		return errors.New("VolumeStep must be positive")
	}
	if c.MinVolume < 0 {
		return errors.New("MinVolume cannot be negative")
	}
	if c.MaxVolume < 0 || (c.MaxVolume > 0 && c.MaxVolume < c.MinVolume) {
		return fmt.Errorf("MaxVolume (%f) must be 0 or >= MinVolume (%f)", c.MaxVolume, c.MinVolume)
	}
	return nil
}

// Load reads a YAML config on top of Default(). A .env file in the working
// directory is loaded first if present; GOTSGRID_* variables override the
// matching YAML keys (e.g. GOTSGRID_BASE_VOLUME=0.02).
func Load(path string) (StrategyConfig, error) {
	_ = godotenv.Load()

	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config.Load: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config.Load: parse YAML: %w", err)
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return cfg, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config.Load: %w", err)
	}
	return cfg, nil
}

const envPrefix = "GOTSGRID_"

// applyEnvOverrides re-decodes every GOTSGRID_<YAML_KEY> variable through
// yaml so the field types stay the single source of truth.
func applyEnvOverrides(cfg *StrategyConfig) error {
	overrides := map[string]interface{}{}
	for _, kv := range os.Environ() {
		key, val, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, envPrefix) {
			continue
		}
		yamlKey := strings.ToLower(strings.TrimPrefix(key, envPrefix))
		overrides[yamlKey] = scalar(val)
	}
	if len(overrides) == 0 {
		return nil
	}
	data, err := yaml.Marshal(overrides)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("env overrides: %w", err)
	}
	return nil
}

func scalar(v string) interface{} {
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return v
}
