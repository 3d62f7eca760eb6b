package plpred

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMatch(daysAgo int, home, away string, hg, ag int) MatchRecord {
	return MatchRecord{
		UTCDate:   time.Now().UTC().AddDate(0, 0, -daysAgo),
		Home:      home,
		Away:      away,
		HomeGoals: hg,
		AwayGoals: ag,
	}
}

func TestBuildStrengthsEmptyDataset(t *testing.T) {
	table, err := BuildStrengths(nil, 0)
	require.NoError(t, err, "Empty dataset should not error")
	assert.Empty(t, table.Teams, "Empty dataset should yield an empty team table")
	assert.Equal(t, Config.DefaultAvgGoalsPerGame, table.League.AvgGoalsPerGame, "League average should fall back to the default")
	assert.Equal(t, Config.DefaultHomeAdvantage, table.League.HomeAdvantage, "Home advantage should fall back to the default")

	s := table.Strength("Arsenal")
	assert.Equal(t, NeutralStrength(), s, "Unknown teams should be neutral")
}

func TestBuildStrengthsMissingTeamName(t *testing.T) {
	matches := []MatchRecord{testMatch(10, "Arsenal", "", 2, 0)}
	_, err := BuildStrengths(matches, 0)
	require.Error(t, err, "A record with a missing team name should fail the build")
}

func TestBuildStrengthsIdempotent(t *testing.T) {
	matches := []MatchRecord{
		testMatch(30, "Arsenal", "Chelsea", 3, 1),
		testMatch(20, "Chelsea", "Spurs", 0, 0),
		testMatch(10, "Spurs", "Arsenal", 1, 2),
	}
	a, err := BuildStrengths(matches, 0)
	require.NoError(t, err)
	b, err := BuildStrengths(matches, 0)
	require.NoError(t, err)
	assert.Equal(t, a, b, "Same dataset should produce an identical table")
}

func TestBuildStrengthsFactorsReflectScoring(t *testing.T) {
	// Arsenal scores heavily at home across every fixture, Wanderers leak.
	matches := []MatchRecord{
		testMatch(40, "Arsenal", "Wanderers", 4, 0),
		testMatch(30, "Arsenal", "Rovers", 3, 1),
		testMatch(20, "Rovers", "Wanderers", 2, 2),
		testMatch(10, "Wanderers", "Arsenal", 0, 3),
		testMatch(5, "Rovers", "Arsenal", 1, 1),
		testMatch(2, "Wanderers", "Rovers", 1, 2),
	}
	table, err := BuildStrengths(matches, 0)
	require.NoError(t, err)
	require.Len(t, table.Teams, 3, "All teams from both columns should appear")

	arsenal := table.Strength("Arsenal")
	wanderers := table.Strength("Wanderers")
	assert.Greater(t, arsenal.AttackHome, 1.0, "A heavy home scorer should sit above league average")
	assert.Greater(t, wanderers.DefenceHome, 1.0, "A leaky defence should sit above 1.0")
	assert.Greater(t, wanderers.DefenceAway, 1.0, "A leaky defence should sit above 1.0 away too")
	assert.Less(t, arsenal.DefenceAway, 1.0, "A tight away defence should sit below 1.0")
}

func TestBuildStrengthsClipsFactors(t *testing.T) {
	// One-sided results would push the raw ratios well outside the band.
	matches := []MatchRecord{
		testMatch(20, "Giants", "Minnows", 9, 0),
		testMatch(10, "Minnows", "Giants", 0, 8),
	}
	table, err := BuildStrengths(matches, 0)
	require.NoError(t, err)

	for name, s := range table.Teams {
		for _, f := range []float64{s.Attack, s.Defence, s.AttackHome, s.DefenceHome, s.AttackAway, s.DefenceAway} {
			assert.GreaterOrEqual(t, f, Config.StrengthClipMin, "Factor for %s should respect the lower clip", name)
			assert.LessOrEqual(t, f, Config.StrengthClipMax, "Factor for %s should respect the upper clip", name)
		}
	}
}

func TestBuildStrengthsHomeAdvantageClamped(t *testing.T) {
	// Home sides dominating every match should still clamp the advantage.
	matches := []MatchRecord{
		testMatch(20, "Arsenal", "Chelsea", 5, 0),
		testMatch(10, "Chelsea", "Arsenal", 4, 0),
	}
	table, err := BuildStrengths(matches, 0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, table.League.HomeAdvantage, Config.HomeAdvantageMin)
	assert.LessOrEqual(t, table.League.HomeAdvantage, Config.HomeAdvantageMax)
}

func TestBuildStrengthsOneVenueTeam(t *testing.T) {
	// Newly promoted side seen only away keeps neutral home factors.
	matches := []MatchRecord{
		testMatch(20, "Arsenal", "Ipswich", 2, 0),
		testMatch(10, "Chelsea", "Ipswich", 1, 1),
	}
	table, err := BuildStrengths(matches, 0)
	require.NoError(t, err)

	ipswich := table.Strength("Ipswich")
	assert.Equal(t, 1.0, ipswich.AttackHome, "A team with no home games should keep neutral home attack")
	assert.Equal(t, 1.0, ipswich.DefenceHome, "A team with no home games should keep neutral home defence")
	assert.NotEqual(t, 0.0, ipswich.AttackAway, "Away factors should still be computed")
}

func TestHalfLifeWeight(t *testing.T) {
	assert.Equal(t, 1.0, halfLifeWeight(100, 0), "Decay disabled should weigh 1.0")
	assert.Equal(t, 1.0, halfLifeWeight(-5, 180), "Future-dated records should weigh 1.0")
	assert.InDelta(t, 0.5, halfLifeWeight(180, 180), 1e-12, "One half-life should weigh 0.5")
	assert.InDelta(t, 0.25, halfLifeWeight(360, 180), 1e-12, "Two half-lives should weigh 0.25")
}

func TestBuildStrengthsDecayFavoursRecentForm(t *testing.T) {
	// Same fixtures, opposite order in time. With decay on, the recent
	// result dominates so the tables must differ.
	recentWin := []MatchRecord{
		testMatch(400, "Arsenal", "Chelsea", 0, 3),
		testMatch(5, "Arsenal", "Chelsea", 3, 0),
	}
	recentLoss := []MatchRecord{
		testMatch(400, "Arsenal", "Chelsea", 3, 0),
		testMatch(5, "Arsenal", "Chelsea", 0, 3),
	}
	winTable, err := BuildStrengths(recentWin, 180)
	require.NoError(t, err)
	lossTable, err := BuildStrengths(recentLoss, 180)
	require.NoError(t, err)

	assert.Greater(t, winTable.Strength("Arsenal").AttackHome,
		lossTable.Strength("Arsenal").AttackHome,
		"Recent scoring should outweigh old scoring under decay")
}

func TestClampAndSafeRatio(t *testing.T) {
	assert.Equal(t, 1.0, clamp(0.3, 1.0, 1.25))
	assert.Equal(t, 1.25, clamp(2.0, 1.0, 1.25))
	assert.Equal(t, 1.1, clamp(1.1, 1.0, 1.25))
	assert.Equal(t, 0.7, safeRatio(0, 0, 0.7), "Zero denominator should return the fallback")
	assert.Equal(t, 2.0, safeRatio(4, 2, 0.7))
}
