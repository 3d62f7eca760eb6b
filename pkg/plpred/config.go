package plpred

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/richard-senior/plpred/internal/logger"
	"gopkg.in/yaml.v3"
)

// PredictorConfig contains all configurable parameters that influence prediction outcomes.
// This centralizes the magic numbers so they can be tuned in one place.
type PredictorConfig struct {
	// Storage
	DbPath string `yaml:"db_path"` // location of the sqlite database, empty disables the store

	// === STRENGTH ESTIMATION ===

	StrengthHalfLifeDays float64 `yaml:"strength_half_life_days"` // time-decay half life for match weighting, <=0 disables decay
	StrengthClipMin      float64 `yaml:"strength_clip_min"`       // lower clip for attack/defence factors (default 0.5)
	StrengthClipMax      float64 `yaml:"strength_clip_max"`       // upper clip for attack/defence factors (default 1.9)
	HomeAdvantageMin     float64 `yaml:"home_advantage_min"`      // lower clamp for the home advantage multiplier (default 1.0)
	HomeAdvantageMax     float64 `yaml:"home_advantage_max"`      // upper clamp for the home advantage multiplier (default 1.25)

	// Neutral league defaults used when no data exists for a baseline
	DefaultAvgGoalsPerGame float64 `yaml:"default_avg_goals_per_game"` // total goals per match (default 2.6)
	DefaultHomeAdvantage   float64 `yaml:"default_home_advantage"`     // multiplicative home edge (default 1.08)
	DefaultDrawScale       float64 `yaml:"default_draw_scale"`         // draw inflation for the draw-scale path (default 1.0)

	// === ELO RATING ===

	EloInit          float64 `yaml:"elo_init"`            // initial rating for unseen teams (default 1500)
	EloKBase         float64 `yaml:"elo_k_base"`          // base K factor (default 20)
	EloScale         float64 `yaml:"elo_scale"`           // logistic scale in rating points (default 400)
	EloHomeAdvPoints float64 `yaml:"elo_home_adv_points"` // additive home advantage in rating points (default 60)
	EloHalfLifeDays  float64 `yaml:"elo_half_life_days"`  // freshness half life for the K factor (default 365)

	// === OUTCOME MODEL ===

	MaxGoals      int     `yaml:"max_goals"`       // grid covers 0..MaxGoals goals per side (default 10, min 6)
	MinGoalsFloor float64 `yaml:"min_goals_floor"` // floor for expected goals (default 0.05)
	MaxGoalsCap   float64 `yaml:"max_goals_cap"`   // cap for expected goals (default 3.5)
	DixonColesRho float64 `yaml:"dixon_coles_rho"` // low-score correlation parameter (default -0.1, must be <=0)
	UseDixonColes bool    `yaml:"use_dixon_coles"` // false selects the coarser draw-scale path instead

	// === BLENDING ===

	BlendEloWeight float64 `yaml:"blend_elo_weight"` // weight of the Elo component in the final probabilities (default 0.4)
	TopScorelines  int     `yaml:"top_scorelines"`   // number of scorelines reported per prediction (default 3)

	// === EXTERNAL DATA ===

	FootballDataToken string `yaml:"football_data_token"` // api.football-data.org auth token
	Competition       string `yaml:"competition"`         // competition code, e.g. "PL"
	FixtureWindowDays int    `yaml:"fixture_window_days"` // how far ahead to predict (default 14)

	LogLevel string `yaml:"log_level"` // debug, info, warn, error
}

// DefaultConfig returns the configuration with all standard values.
func DefaultConfig() *PredictorConfig {
	return &PredictorConfig{
		DbPath: "",

		StrengthHalfLifeDays: 0,
		StrengthClipMin:      0.5,
		StrengthClipMax:      1.9,
		HomeAdvantageMin:     1.0,
		HomeAdvantageMax:     1.25,

		DefaultAvgGoalsPerGame: 2.6,
		DefaultHomeAdvantage:   1.08,
		DefaultDrawScale:       1.0,

		EloInit:          1500.0,
		EloKBase:         20.0,
		EloScale:         400.0,
		EloHomeAdvPoints: 60.0,
		EloHalfLifeDays:  365.0,

		MaxGoals:      10,
		MinGoalsFloor: 0.05,
		MaxGoalsCap:   3.5,
		DixonColesRho: -0.1,
		UseDixonColes: true,

		BlendEloWeight: 0.4,
		TopScorelines:  3,

		Competition:       "PL",
		FixtureWindowDays: 14,

		LogLevel: "info",
	}
}

// Global configuration instance
var Config *PredictorConfig

func init() {
	Config = DefaultConfig()
}

// UpdateConfig replaces the global configuration after validating it.
func UpdateConfig(cfg *PredictorConfig) error {
	if err := ValidateConfig(cfg); err != nil {
		return err
	}
	Config = cfg
	return nil
}

// LoadConfig builds a configuration from defaults, an optional YAML file and
// environment variables, in ascending order of precedence. A missing file is
// not an error; a malformed one is.
func LoadConfig(path string) (*PredictorConfig, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
			logger.Debug("No config file at", path, "- using defaults")
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	// .env is a convenience for local runs; absence is normal
	if err := godotenv.Load(); err != nil {
		logger.Debug(".env file not found, relying on actual environment variables")
	}
	applyEnvOverrides(cfg)

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides maps a small set of environment variables onto the config.
func applyEnvOverrides(cfg *PredictorConfig) {
	if v := os.Getenv("FOOTBALL_DATA_TOKEN"); v != "" {
		cfg.FootballDataToken = v
	}
	if v := os.Getenv("FD_COMP"); v != "" {
		cfg.Competition = v
	}
	if v := os.Getenv("FD_WINDOW_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FixtureWindowDays = n
		}
	}
	if v := os.Getenv("BLEND_ELO"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.BlendEloWeight = f
		}
	}
	if v := os.Getenv("PLPRED_DB_PATH"); v != "" {
		cfg.DbPath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// ValidateConfig ensures all configuration values are within reasonable ranges.
func ValidateConfig(cfg *PredictorConfig) error {
	if cfg.MaxGoals < 6 {
		return fmt.Errorf("MaxGoals should be at least 6 to capture realistic scores, got: %d", cfg.MaxGoals)
	}
	if cfg.DixonColesRho > 0 || cfg.DixonColesRho < -0.3 {
		return fmt.Errorf("DixonColesRho should be between -0.3 and 0, got: %f", cfg.DixonColesRho)
	}
	if cfg.BlendEloWeight < 0.0 || cfg.BlendEloWeight > 1.0 {
		return fmt.Errorf("BlendEloWeight must be between 0.0 and 1.0, got: %f", cfg.BlendEloWeight)
	}
	if cfg.StrengthClipMin <= 0 || cfg.StrengthClipMin >= cfg.StrengthClipMax {
		return fmt.Errorf("strength clip band invalid: [%f, %f]", cfg.StrengthClipMin, cfg.StrengthClipMax)
	}
	if cfg.HomeAdvantageMin < 1.0 || cfg.HomeAdvantageMax < cfg.HomeAdvantageMin {
		return fmt.Errorf("home advantage clamp invalid: [%f, %f]", cfg.HomeAdvantageMin, cfg.HomeAdvantageMax)
	}
	if cfg.MinGoalsFloor <= 0 || cfg.MaxGoalsCap <= cfg.MinGoalsFloor {
		return fmt.Errorf("expected goals band invalid: [%f, %f]", cfg.MinGoalsFloor, cfg.MaxGoalsCap)
	}
	if cfg.EloScale <= 0 {
		return fmt.Errorf("EloScale must be positive, got: %f", cfg.EloScale)
	}
	if cfg.TopScorelines < 1 {
		return fmt.Errorf("TopScorelines must be at least 1, got: %d", cfg.TopScorelines)
	}
	return nil
}

// GetDixonColesRho returns the Dixon-Coles correlation parameter.
func GetDixonColesRho() float64 {
	return Config.DixonColesRho
}
