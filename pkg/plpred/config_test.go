package plpred

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, ValidateConfig(DefaultConfig()), "The shipped defaults must validate")
}

func TestValidateConfigRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*PredictorConfig)
	}{
		{"small grid", func(c *PredictorConfig) { c.MaxGoals = 4 }},
		{"positive rho", func(c *PredictorConfig) { c.DixonColesRho = 0.1 }},
		{"rho out of band", func(c *PredictorConfig) { c.DixonColesRho = -0.5 }},
		{"blend weight above one", func(c *PredictorConfig) { c.BlendEloWeight = 1.5 }},
		{"inverted clip band", func(c *PredictorConfig) { c.StrengthClipMin = 2.0 }},
		{"home advantage below one", func(c *PredictorConfig) { c.HomeAdvantageMin = 0.8 }},
		{"goals band inverted", func(c *PredictorConfig) { c.MaxGoalsCap = 0.01 }},
		{"zero elo scale", func(c *PredictorConfig) { c.EloScale = 0 }},
		{"no scorelines", func(c *PredictorConfig) { c.TopScorelines = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, ValidateConfig(cfg))
		})
	}
}

func TestUpdateConfigRejectsInvalid(t *testing.T) {
	original := Config
	defer func() { Config = original }()

	bad := DefaultConfig()
	bad.MaxGoals = 1
	require.Error(t, UpdateConfig(bad))
	assert.Same(t, original, Config, "A rejected config must not replace the global")

	good := DefaultConfig()
	good.MaxGoals = 8
	require.NoError(t, UpdateConfig(good))
	assert.Equal(t, 8, Config.MaxGoals)
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plpred.yaml")
	yaml := "competition: CL\nblend_elo_weight: 0.6\nmax_goals: 8\nuse_dixon_coles: false\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "CL", cfg.Competition)
	assert.Equal(t, 0.6, cfg.BlendEloWeight)
	assert.Equal(t, 8, cfg.MaxGoals)
	assert.False(t, cfg.UseDixonColes)
	assert.Equal(t, 1500.0, cfg.EloInit, "Unset fields should keep their defaults")
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err, "A missing config file is not an error")
	assert.Equal(t, DefaultConfig().Competition, cfg.Competition)
}

func TestLoadConfigMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("competition: [unclosed"), 0644))
	_, err := LoadConfig(path)
	require.Error(t, err, "A malformed config file must fail loudly")
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("FOOTBALL_DATA_TOKEN", "secret")
	t.Setenv("FD_COMP", "ELC")
	t.Setenv("FD_WINDOW_DAYS", "7")
	t.Setenv("BLEND_ELO", "0.25")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.FootballDataToken)
	assert.Equal(t, "ELC", cfg.Competition)
	assert.Equal(t, 7, cfg.FixtureWindowDays)
	assert.Equal(t, 0.25, cfg.BlendEloWeight)
}
