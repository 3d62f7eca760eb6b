package plpred

import (
	"math"
	"time"

	"github.com/richard-senior/plpred/internal/logger"
)

// ExpectedGoalsPair is the (lambda, mu) pair for a fixture.
type ExpectedGoalsPair struct {
	Home float64 `json:"home"`
	Away float64 `json:"away"`
}

// ComponentProbs exposes the two model components before blending.
type ComponentProbs struct {
	Poisson OutcomeProbs `json:"poisson"`
	Elo     OutcomeProbs `json:"elo"`
}

// BTTSProbs is the both-teams-to-score market.
type BTTSProbs struct {
	Yes float64 `json:"yes"`
	No  float64 `json:"no"`
}

// TotalsProbs is the over/under market for one goal line.
type TotalsProbs struct {
	Over  float64 `json:"over"`
	Under float64 `json:"under"`
}

// ResolutionNote records how each fixture name was mapped onto the rating
// tables. Name resolution is best effort, so the method is surfaced rather
// than hidden.
type ResolutionNote struct {
	HomeKey     string `json:"home_key,omitempty"`
	AwayKey     string `json:"away_key,omitempty"`
	ResolveHome string `json:"resolve_home"`
	ResolveAway string `json:"resolve_away"`
}

// MatchPrediction is the per-fixture output record. It is created once and
// read-only downstream; probabilities are rounded to 4 decimal places and
// expected goals to 2, which external tooling depends on.
type MatchPrediction struct {
	Home          string            `json:"home"`
	Away          string            `json:"away"`
	KickoffUTC    time.Time         `json:"kickoff_utc"`
	ExpectedGoals ExpectedGoalsPair `json:"expected_goals"`
	Probs         OutcomeProbs      `json:"outcome_probs"`
	Components    ComponentProbs    `json:"component_probs"`
	BTTS          BTTSProbs         `json:"btts"`
	Totals2p5     TotalsProbs       `json:"totals_2_5"`
	TopScorelines []Scoreline       `json:"top_scorelines"`
	BlendWeight   float64           `json:"blend_weight"`
	Note          ResolutionNote    `json:"notes"`
}

// ExpectedGoalsForPair resolves both team names against the strength table
// and computes expected goals multiplicatively from the league base rate,
// the home side's home attack, the away side's away defence (and vice
// versa), and the home-advantage multiplier. Unresolved names fall back to
// neutral strengths. Both values are floored and capped to keep the grid
// well behaved.
func ExpectedGoalsForPair(homeName, awayName string, table *StrengthTable) (float64, float64, ResolutionNote) {
	homeKey, howHome := ResolveTeamKey(homeName, table)
	awayKey, howAway := ResolveTeamKey(awayName, table)
	if howHome == ResolveUnmatched {
		logger.Warn("Unresolved home team, using neutral strengths", homeName)
	}
	if howAway == ResolveUnmatched {
		logger.Warn("Unresolved away team, using neutral strengths", awayName)
	}

	sh := table.Strength(homeKey)
	sa := table.Strength(awayKey)

	// Defence factors above 1.0 mean "concedes more than average", so they
	// multiply the opponent's expected goals.
	base := table.League.AvgGoalsPerGame / 2.0
	lam := base * table.League.HomeAdvantage * sh.AttackHome * sa.DefenceAway
	mu := base * sa.AttackAway * sh.DefenceHome

	lam = clamp(lam, Config.MinGoalsFloor, Config.MaxGoalsCap)
	mu = clamp(mu, Config.MinGoalsFloor, Config.MaxGoalsCap)

	note := ResolutionNote{
		HomeKey: homeKey, AwayKey: awayKey,
		ResolveHome: howHome, ResolveAway: howAway,
	}
	return lam, mu, note
}

// BlendProbs linearly mixes the Poisson and Elo triples; weight is the Elo
// share, clamped to [0,1]. The result is renormalized, with a uniform
// fallback should the mass degenerate.
func BlendProbs(poisson, elo OutcomeProbs, weight float64) OutcomeProbs {
	w := clamp(weight, 0.0, 1.0)
	return normalizeOutcome(OutcomeProbs{
		Home: (1.0-w)*poisson.Home + w*elo.Home,
		Draw: (1.0-w)*poisson.Draw + w*elo.Draw,
		Away: (1.0-w)*poisson.Away + w*elo.Away,
	})
}

// PredictFixture produces the full probability record for one fixture from a
// strength table and an Elo table. Exactly one of the Dixon-Coles or
// draw-scale corrections is applied, selected by configuration.
func PredictFixture(fx Fixture, st *StrengthTable, elo *EloTable, blendWeight float64) *MatchPrediction {
	lam, mu, note := ExpectedGoalsForPair(fx.Home, fx.Away, st)

	grid := BuildGrid(lam, mu, Config.MaxGoals)
	var pPoisson OutcomeProbs
	if Config.UseDixonColes {
		grid = grid.DixonColes(lam, mu, GetDixonColesRho())
		pPoisson = normalizeOutcome(grid.Outcomes())
	} else {
		pPoisson = PoissonOutcomeProbs(lam, mu, st.League.DrawScale)
	}

	// The Elo table shares team keys with the strength table, both being
	// built from the same dataset, so the resolved keys carry over.
	homeKey, awayKey := note.HomeKey, note.AwayKey
	if homeKey == "" {
		homeKey = fx.Home
	}
	if awayKey == "" {
		awayKey = fx.Away
	}
	eh, ed, ea := EloMatchProbs(elo.Rating(homeKey), elo.Rating(awayKey),
		elo.HomeAdvPoints, elo.Scale, elo.DrawNu)
	pElo := OutcomeProbs{Home: eh, Draw: ed, Away: ea}

	w := clamp(blendWeight, 0.0, 1.0)
	final := BlendProbs(pPoisson, pElo, w)

	bttsYes := grid.BTTSYes()
	over25 := grid.OverGoals(2.5)

	return &MatchPrediction{
		Home:       fx.Home,
		Away:       fx.Away,
		KickoffUTC: fx.KickoffUTC,
		ExpectedGoals: ExpectedGoalsPair{
			Home: round2(lam),
			Away: round2(mu),
		},
		Probs:         roundOutcome(final),
		Components:    ComponentProbs{Poisson: roundOutcome(pPoisson), Elo: roundOutcome(pElo)},
		BTTS:          BTTSProbs{Yes: round4(bttsYes), No: round4(1.0 - bttsYes)},
		Totals2p5:     TotalsProbs{Over: round4(over25), Under: round4(1.0 - over25)},
		TopScorelines: roundScorelines(grid.TopScorelines(Config.TopScorelines)),
		BlendWeight:   w,
		Note:          note,
	}
}

// PredictFixtures runs PredictFixture over a fixture list, preserving order.
func PredictFixtures(fixtures []Fixture, st *StrengthTable, elo *EloTable, blendWeight float64) []*MatchPrediction {
	preds := make([]*MatchPrediction, 0, len(fixtures))
	for _, fx := range fixtures {
		preds = append(preds, PredictFixture(fx, st, elo, blendWeight))
	}
	return preds
}

func roundOutcome(p OutcomeProbs) OutcomeProbs {
	return OutcomeProbs{Home: round4(p.Home), Draw: round4(p.Draw), Away: round4(p.Away)}
}

func roundScorelines(lines []Scoreline) []Scoreline {
	out := make([]Scoreline, len(lines))
	for i, l := range lines {
		out[i] = Scoreline{HomeGoals: l.HomeGoals, AwayGoals: l.AwayGoals, Prob: round4(l.Prob)}
	}
	return out
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
