package plpred

import (
	"math"
	"sort"
)

// ProbabilityGrid is the scoreline distribution for one fixture: cell [i][j]
// is P(home scores i, away scores j) for goals 0..maxGoals per side. After
// construction and after any adjustment the cells are non-negative and sum
// to 1 within floating tolerance.
type ProbabilityGrid [][]float64

// OutcomeProbs is a 1X2 probability triple.
type OutcomeProbs struct {
	Home float64 `json:"home"`
	Draw float64 `json:"draw"`
	Away float64 `json:"away"`
}

// Scoreline is one cell of the grid with its probability.
type Scoreline struct {
	HomeGoals int     `json:"home_goals"`
	AwayGoals int     `json:"away_goals"`
	Prob      float64 `json:"prob"`
}

// poissonPMF returns P(X = k) for X ~ Poisson(lambda). Computed iteratively
// to avoid factorial overflow for the grid sizes in use.
func poissonPMF(k int, lambda float64) float64 {
	lambda = math.Max(lambda, 1e-9)
	p := math.Exp(-lambda)
	for i := 1; i <= k; i++ {
		p *= lambda / float64(i)
	}
	return p
}

// BuildGrid builds the independent Poisson outer product over goal counts
// 0..maxGoals for expected goals (lam, mu). Use at least maxGoals 6;
// values below that truncate too much tail mass.
func BuildGrid(lam, mu float64, maxGoals int) ProbabilityGrid {
	if maxGoals < 6 {
		maxGoals = 6
	}
	homePMF := make([]float64, maxGoals+1)
	awayPMF := make([]float64, maxGoals+1)
	for k := 0; k <= maxGoals; k++ {
		homePMF[k] = poissonPMF(k, lam)
		awayPMF[k] = poissonPMF(k, mu)
	}

	grid := make(ProbabilityGrid, maxGoals+1)
	for i := range grid {
		grid[i] = make([]float64, maxGoals+1)
		for j := range grid[i] {
			grid[i][j] = homePMF[i] * awayPMF[j]
		}
	}
	return grid.renormalize()
}

// DixonColes applies the low-score correlation correction and renormalizes.
// Uses the published tau convention: tau(0,0)=1-lam*mu*rho, tau(0,1)=1+lam*rho,
// tau(1,0)=1+mu*rho, tau(1,1)=1-rho. With rho < 0 the 0-0 and 1-1 cells gain
// mass, matching the empirical excess of low-scoring draws.
func (g ProbabilityGrid) DixonColes(lam, mu, rho float64) ProbabilityGrid {
	out := g.clone()
	if len(out) < 2 || len(out[0]) < 2 {
		return out
	}
	out[0][0] *= 1 - lam*mu*rho
	out[0][1] *= 1 + lam*rho
	out[1][0] *= 1 + mu*rho
	out[1][1] *= 1 - rho
	return out.renormalize()
}

// Outcomes derives the 1X2 triple: home win is the lower triangle, draw the
// trace, away win the upper triangle.
func (g ProbabilityGrid) Outcomes() OutcomeProbs {
	var p OutcomeProbs
	for i := range g {
		for j := range g[i] {
			switch {
			case i > j:
				p.Home += g[i][j]
			case i == j:
				p.Draw += g[i][j]
			default:
				p.Away += g[i][j]
			}
		}
	}
	return p
}

// BTTSYes is the probability both teams score.
func (g ProbabilityGrid) BTTSYes() float64 {
	total := 0.0
	for i := 1; i < len(g); i++ {
		for j := 1; j < len(g[i]); j++ {
			total += g[i][j]
		}
	}
	return total
}

// OverGoals is the probability that total goals exceed the threshold,
// e.g. OverGoals(2.5) sums every cell with i+j >= 3.
func (g ProbabilityGrid) OverGoals(threshold float64) float64 {
	total := 0.0
	for i := range g {
		for j := range g[i] {
			if float64(i+j) > threshold {
				total += g[i][j]
			}
		}
	}
	return total
}

// ExpectedGoals returns the marginal means of the grid.
func (g ProbabilityGrid) ExpectedGoals() (home, away float64) {
	for i := range g {
		for j := range g[i] {
			home += float64(i) * g[i][j]
			away += float64(j) * g[i][j]
		}
	}
	return home, away
}

// TopScorelines returns the k most probable scorelines in descending order.
// Probability ties break on lower total goals, then lower home goals, so the
// output is deterministic.
func (g ProbabilityGrid) TopScorelines(k int) []Scoreline {
	all := make([]Scoreline, 0, len(g)*len(g))
	for i := range g {
		for j := range g[i] {
			all = append(all, Scoreline{HomeGoals: i, AwayGoals: j, Prob: g[i][j]})
		}
	}
	sort.SliceStable(all, func(a, b int) bool {
		if all[a].Prob != all[b].Prob {
			return all[a].Prob > all[b].Prob
		}
		ta := all[a].HomeGoals + all[a].AwayGoals
		tb := all[b].HomeGoals + all[b].AwayGoals
		if ta != tb {
			return ta < tb
		}
		return all[a].HomeGoals < all[b].HomeGoals
	})
	if k > len(all) {
		k = len(all)
	}
	return all[:k]
}

// Sum totals every cell; 1.0 within tolerance for a valid grid.
func (g ProbabilityGrid) Sum() float64 {
	total := 0.0
	for i := range g {
		for j := range g[i] {
			total += g[i][j]
		}
	}
	return total
}

func (g ProbabilityGrid) clone() ProbabilityGrid {
	out := make(ProbabilityGrid, len(g))
	for i := range g {
		out[i] = make([]float64, len(g[i]))
		copy(out[i], g[i])
	}
	return out
}

// renormalize scales the grid back to unit mass after an adjustment.
func (g ProbabilityGrid) renormalize() ProbabilityGrid {
	total := g.Sum()
	if total <= 0 {
		return g
	}
	for i := range g {
		for j := range g[i] {
			g[i][j] /= total
		}
	}
	return g
}

// PoissonOutcomeProbs is the coarser alternative to Dixon-Coles used by the
// draw-scale path: a raw Poisson grid, the draw share rescaled by drawScale,
// then the triple renormalized. Must not be combined with Dixon-Coles in the
// same prediction run.
func PoissonOutcomeProbs(lam, mu, drawScale float64) OutcomeProbs {
	p := BuildGrid(lam, mu, Config.MaxGoals).Outcomes()
	if drawScale != 1.0 {
		p.Draw *= drawScale
	}
	return normalizeOutcome(p)
}

// normalizeOutcome renormalizes a triple to sum 1, falling back to uniform
// thirds when the mass degenerates.
func normalizeOutcome(p OutcomeProbs) OutcomeProbs {
	s := p.Home + p.Draw + p.Away
	if s <= 0 {
		return OutcomeProbs{Home: 1.0 / 3, Draw: 1.0 / 3, Away: 1.0 / 3}
	}
	return OutcomeProbs{Home: p.Home / s, Draw: p.Draw / s, Away: p.Away / s}
}
