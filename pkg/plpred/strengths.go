package plpred

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/richard-senior/plpred/internal/logger"
)

// TeamStrength holds a team's attack/defence multipliers relative to the
// league baselines. 1.0 is league average throughout; a defence factor above
// 1.0 means the team concedes more than average. All six fields default to
// neutral so a missing venue split is a constructor default, not a special
// case at the call site.
type TeamStrength struct {
	Attack      float64 `json:"att"`
	Defence     float64 `json:"def"`
	AttackHome  float64 `json:"att_h"`
	DefenceHome float64 `json:"def_h"`
	AttackAway  float64 `json:"att_a"`
	DefenceAway float64 `json:"def_a"`
}

// NeutralStrength returns the all-1.0 strength used for unknown teams.
func NeutralStrength() TeamStrength {
	return TeamStrength{
		Attack: 1.0, Defence: 1.0,
		AttackHome: 1.0, DefenceHome: 1.0,
		AttackAway: 1.0, DefenceAway: 1.0,
	}
}

// LeagueContext carries the league-wide rates derived alongside the team
// factors. Same lifecycle as the strength table: recomputed wholesale, never
// mutated.
type LeagueContext struct {
	AvgGoalsPerGame float64 `json:"league_avg_gpg"` // total goals per match
	HomeAdvantage   float64 `json:"home_adv"`       // multiplicative, >= 1.0
	DrawScale       float64 `json:"draw_scale"`     // 0.9..1.1, for the draw-scale path
	Matches         int     `json:"n_matches"`
}

// StrengthTable is the output of a BuildStrengths run: one TeamStrength per
// team keyed by raw name, plus the league context.
type StrengthTable struct {
	Teams  map[string]TeamStrength `json:"teams"`
	League LeagueContext           `json:"league"`
}

// Strength returns the factors for a table key, neutral when absent.
func (t *StrengthTable) Strength(key string) TeamStrength {
	if t == nil || t.Teams == nil {
		return NeutralStrength()
	}
	if s, ok := t.Teams[key]; ok {
		return s
	}
	return NeutralStrength()
}

// teamAccumulator collects weighted goals and game counts for one team,
// split by venue. Counts are weighted so time decay applies uniformly.
type teamAccumulator struct {
	gfHome, gaHome, gpHome float64
	gfAway, gaAway, gpAway float64
}

// BuildStrengths aggregates finished matches into a strength table.
// halfLifeDays > 0 enables time-decay weighting: each match contributes
// weight 0.5^(ageDays/halfLifeDays), age measured from the run time.
// An empty dataset yields an empty team table and neutral league defaults;
// callers must treat missing teams as neutral. Pure function of its inputs
// (modulo the decay clock): the same dataset produces an identical table.
func BuildStrengths(matches []MatchRecord, halfLifeDays float64) (*StrengthTable, error) {
	table := &StrengthTable{
		Teams: map[string]TeamStrength{},
		League: LeagueContext{
			AvgGoalsPerGame: Config.DefaultAvgGoalsPerGame,
			HomeAdvantage:   Config.DefaultHomeAdvantage,
			DrawScale:       Config.DefaultDrawScale,
		},
	}
	if len(matches) == 0 {
		return table, nil
	}

	now := time.Now().UTC()
	acc := map[string]*teamAccumulator{}
	team := func(name string) *teamAccumulator {
		if a, ok := acc[name]; ok {
			return a
		}
		a := &teamAccumulator{}
		acc[name] = a
		return a
	}

	// Outer union: a team seen only at home (or only away) still gets an
	// entry, its other venue split staying neutral.
	var lgHomeGoals, lgAwayGoals, lgGames float64
	for i, m := range matches {
		if m.Home == "" || m.Away == "" {
			return nil, fmt.Errorf("build strengths: missing required fields on record %d", i)
		}
		w := halfLifeWeight(now.Sub(m.UTCDate).Hours()/24.0, halfLifeDays)

		h := team(m.Home)
		h.gfHome += w * float64(m.HomeGoals)
		h.gaHome += w * float64(m.AwayGoals)
		h.gpHome += w

		a := team(m.Away)
		a.gfAway += w * float64(m.AwayGoals)
		a.gaAway += w * float64(m.HomeGoals)
		a.gpAway += w

		lgHomeGoals += w * float64(m.HomeGoals)
		lgAwayGoals += w * float64(m.AwayGoals)
		lgGames += w
	}

	// League baselines in goals per match, guarded against empty splits.
	fallback := Config.DefaultAvgGoalsPerGame / 2.0
	lgHomeScored := safeRatio(lgHomeGoals, lgGames, fallback)
	lgAwayScored := safeRatio(lgAwayGoals, lgGames, fallback)
	lgOverall := safeRatio(lgHomeGoals+lgAwayGoals, 2.0*lgGames, fallback)

	// A goalless league would zero the baselines and poison every ratio below.
	if lgHomeScored <= 0 {
		lgHomeScored = fallback
	}
	if lgAwayScored <= 0 {
		lgAwayScored = fallback
	}
	if lgOverall <= 0 {
		lgOverall = fallback
	}

	table.League.Matches = len(matches)
	table.League.AvgGoalsPerGame = lgHomeScored + lgAwayScored
	table.League.HomeAdvantage = clamp(lgHomeScored/math.Max(lgAwayScored, 1e-9),
		Config.HomeAdvantageMin, Config.HomeAdvantageMax)

	// Sorted team order keeps the run reproducible bit for bit.
	names := make([]string, 0, len(acc))
	for name := range acc {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		a := acc[name]
		s := NeutralStrength()

		if a.gpHome > 0 {
			s.AttackHome = clipFactor(safeRatio(a.gfHome, a.gpHome, 0) / lgHomeScored)
			s.DefenceHome = clipFactor(safeRatio(a.gaHome, a.gpHome, 0) / lgAwayScored)
		} else {
			logger.Debug("No home games for team, using neutral home factors", name)
		}
		if a.gpAway > 0 {
			s.AttackAway = clipFactor(safeRatio(a.gfAway, a.gpAway, 0) / lgAwayScored)
			s.DefenceAway = clipFactor(safeRatio(a.gaAway, a.gpAway, 0) / lgHomeScored)
		} else {
			logger.Debug("No away games for team, using neutral away factors", name)
		}

		gp := a.gpHome + a.gpAway
		if gp > 0 {
			s.Attack = clipFactor(safeRatio(a.gfHome+a.gfAway, gp, 0) / lgOverall)
			s.Defence = clipFactor(safeRatio(a.gaHome+a.gaAway, gp, 0) / lgOverall)
		}

		table.Teams[name] = s
	}

	return table, nil
}

// halfLifeWeight returns 0.5^(age/halfLife); 1.0 when decay is disabled.
// Future-dated records weigh 1.0 rather than above it.
func halfLifeWeight(ageDays, halfLifeDays float64) float64 {
	if halfLifeDays <= 0 {
		return 1.0
	}
	if ageDays < 0 {
		return 1.0
	}
	return math.Pow(0.5, ageDays/halfLifeDays)
}

// safeRatio guards every per-game and per-baseline division in the package.
func safeRatio(num, den, fallback float64) float64 {
	if den == 0 {
		return fallback
	}
	return num / den
}

// clipFactor keeps a strength factor inside the configured band so small
// samples cannot produce unstable multipliers.
func clipFactor(f float64) float64 {
	return clamp(f, Config.StrengthClipMin, Config.StrengthClipMax)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
