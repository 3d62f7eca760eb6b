package plpred

import (
	"math"
	"sort"
	"time"
)

// EloOptions holds the replay parameters. Zero values select the configured
// defaults so callers can override just the fields they care about; a field
// whose zero is meaningful takes a negative value instead. In particular
// HalfLifeDays < 0 disables freshness decay entirely (constant K), where 0
// would select the configured half life.
type EloOptions struct {
	Init          float64
	KBase         float64
	Scale         float64
	HomeAdvPoints float64
	HalfLifeDays  float64 // <0 disables decay, 0 selects the default
}

// withDefaults fills unset options from the global configuration.
func (o EloOptions) withDefaults() EloOptions {
	if o.Init == 0 {
		o.Init = Config.EloInit
	}
	if o.KBase == 0 {
		o.KBase = Config.EloKBase
	}
	if o.Scale == 0 {
		o.Scale = Config.EloScale
	}
	if o.HomeAdvPoints == 0 {
		o.HomeAdvPoints = Config.EloHomeAdvPoints
	}
	if o.HalfLifeDays == 0 {
		o.HalfLifeDays = Config.EloHalfLifeDays
	}
	return o
}

// EloRating is one team's entry in the table.
type EloRating struct {
	Rating float64 `json:"elo"`
	Games  int     `json:"games"`
}

// EloTable is the result of replaying a dataset chronologically. It is
// immutable once returned; the mutating replay state stays local to BuildElo.
type EloTable struct {
	Init          float64              `json:"init"`
	KBase         float64              `json:"k_base"`
	Scale         float64              `json:"scale"`
	HomeAdvPoints float64              `json:"home_adv_points"`
	DrawNu        float64              `json:"draw_nu"`
	Teams         map[string]EloRating `json:"teams"`
}

// Rating returns a team's rating, or the init value for unseen teams.
func (t *EloTable) Rating(team string) float64 {
	if t == nil {
		return Config.EloInit
	}
	if r, ok := t.Teams[team]; ok {
		return r.Rating
	}
	return t.Init
}

// BuildElo replays matches in strictly ascending date order and produces a
// rating per team plus a fitted draw-inflation parameter. The K factor is
// freshness weighted: K = KBase * 0.5^(ageDays/halfLife) with age measured
// from the run time, so stale matches move ratings less regardless of where
// they sit in the sequence. Every update is zero-sum between the two teams.
func BuildElo(matches []MatchRecord, opts EloOptions) *EloTable {
	o := opts.withDefaults()
	table := &EloTable{
		Init:          o.Init,
		KBase:         o.KBase,
		Scale:         o.Scale,
		HomeAdvPoints: o.HomeAdvPoints,
		DrawNu:        1.0,
		Teams:         map[string]EloRating{},
	}
	if len(matches) == 0 {
		return table
	}

	ordered := SortMatchesByDate(matches)

	draws := 0
	for _, m := range ordered {
		if m.IsDraw() {
			draws++
		}
	}
	drawRate := clamp(float64(draws)/float64(len(ordered)), 0.15, 0.35)
	table.DrawNu = 2.0 * drawRate / math.Max(1.0-drawRate, 1e-6)

	now := time.Now().UTC()
	ratings := map[string]float64{}
	games := map[string]int{}
	get := func(team string) float64 {
		if r, ok := ratings[team]; ok {
			return r
		}
		return o.Init
	}

	for _, m := range ordered {
		rh := get(m.Home)
		ra := get(m.Away)
		delta := (rh + o.HomeAdvPoints) - ra
		expected := 1.0 / (1.0 + math.Pow(10, -delta/o.Scale))

		var actual float64
		switch {
		case m.HomeGoals > m.AwayGoals:
			actual = 1.0
		case m.HomeGoals == m.AwayGoals:
			actual = 0.5
		default:
			actual = 0.0
		}

		ageDays := now.Sub(m.UTCDate).Hours() / 24.0
		k := o.KBase * halfLifeWeight(ageDays, o.HalfLifeDays)
		g := goalDiffFactor(m.HomeGoals-m.AwayGoals, math.Abs(delta))

		change := k * g * (actual - expected)
		ratings[m.Home] = rh + change
		ratings[m.Away] = ra - change
		games[m.Home]++
		games[m.Away]++
	}

	names := make([]string, 0, len(ratings))
	for name := range ratings {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		table.Teams[name] = EloRating{Rating: ratings[name], Games: games[name]}
	}

	return table
}

// goalDiffFactor scales an update by the winning margin, damped on large
// rating gaps so blow-outs between mismatched sides do not overreact.
func goalDiffFactor(goalDiff int, ratingGap float64) float64 {
	gd := goalDiff
	if gd < 0 {
		gd = -gd
	}
	var g float64
	switch {
	case gd <= 1:
		g = 1.0
	case gd == 2:
		g = 1.5
	default:
		g = (11.0 + float64(gd)) / 8.0
	}
	return g * (2.2 / (0.001*ratingGap + 2.2))
}

// EloMatchProbs converts two ratings into a 1X2 distribution via a logistic
// expectation with a draw-inflation term: pH = r/(r+1+nu*sqrt(r)) where
// r = 10^(delta/scale). Falls back to uniform thirds if the denominator
// degenerates.
func EloMatchProbs(ratingHome, ratingAway, homeAdvPoints, scale, drawNu float64) (float64, float64, float64) {
	delta := (ratingHome + homeAdvPoints) - ratingAway
	r := math.Pow(10, delta/math.Max(scale, 1e-6))
	rSqrt := math.Sqrt(r)
	denom := r + 1.0 + drawNu*rSqrt
	if denom <= 0 {
		return 1.0 / 3, 1.0 / 3, 1.0 / 3
	}
	pH := r / denom
	pD := drawNu * rSqrt / denom
	pA := 1.0 / denom
	s := pH + pD + pA
	if s <= 0 {
		return 1.0 / 3, 1.0 / 3, 1.0 / 3
	}
	return pH / s, pD / s, pA / s
}
