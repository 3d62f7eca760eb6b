package plpred

import (
	"math"
)

// Backtest support: scoring stored predictions against results that arrived
// later. Everything here is pure computation over completed data.

// MatchOutcome labels a finished match from the home perspective.
type MatchOutcome string

const (
	OutcomeHome MatchOutcome = "H"
	OutcomeDraw MatchOutcome = "D"
	OutcomeAway MatchOutcome = "A"
)

// OutcomeOf classifies a final score.
func OutcomeOf(homeGoals, awayGoals int) MatchOutcome {
	switch {
	case homeGoals > awayGoals:
		return OutcomeHome
	case homeGoals < awayGoals:
		return OutcomeAway
	default:
		return OutcomeDraw
	}
}

// PredictionAccuracy holds the scoring of a single settled prediction.
type PredictionAccuracy struct {
	Home           string
	Away           string
	Actual         MatchOutcome
	Predicted      MatchOutcome
	OutcomeCorrect bool
	Brier          float64 // multiclass Brier score over the 1X2 triple
	LogLoss        float64 // -ln(prob assigned to the actual outcome)
}

// AggregateAccuracy summarises a batch of settled predictions.
type AggregateAccuracy struct {
	Matches     int
	HitRate     float64 // fraction of correct 1X2 calls
	MeanBrier   float64
	MeanLogLoss float64
}

// mostLikely picks the modal outcome of a triple; ties favour the home side
// then the draw, matching the order the probabilities are reported in.
func mostLikely(p OutcomeProbs) MatchOutcome {
	best, outcome := p.Home, OutcomeHome
	if p.Draw > best {
		best, outcome = p.Draw, OutcomeDraw
	}
	if p.Away > best {
		outcome = OutcomeAway
	}
	return outcome
}

// EvaluatePrediction scores one prediction against the final result.
func EvaluatePrediction(probs OutcomeProbs, result MatchRecord) *PredictionAccuracy {
	actual := OutcomeOf(result.HomeGoals, result.AwayGoals)

	target := map[MatchOutcome]float64{OutcomeHome: 0, OutcomeDraw: 0, OutcomeAway: 0}
	target[actual] = 1.0

	brier := math.Pow(probs.Home-target[OutcomeHome], 2) +
		math.Pow(probs.Draw-target[OutcomeDraw], 2) +
		math.Pow(probs.Away-target[OutcomeAway], 2)

	var pActual float64
	switch actual {
	case OutcomeHome:
		pActual = probs.Home
	case OutcomeDraw:
		pActual = probs.Draw
	default:
		pActual = probs.Away
	}
	// floor before the log so a zero-probability outcome scores finitely
	pActual = math.Max(pActual, 1e-15)

	predicted := mostLikely(probs)
	return &PredictionAccuracy{
		Home:           result.Home,
		Away:           result.Away,
		Actual:         actual,
		Predicted:      predicted,
		OutcomeCorrect: predicted == actual,
		Brier:          brier,
		LogLoss:        -math.Log(pActual),
	}
}

// EvaluateBatch scores stored predictions against a results set, matching on
// canonical team names. Predictions without a settled result are skipped.
func EvaluateBatch(preds []*StoredPrediction, results []MatchRecord) *AggregateAccuracy {
	type key struct{ home, away string }
	settled := map[key]MatchRecord{}
	for _, r := range results {
		settled[key{CanonicalName(r.Home), CanonicalName(r.Away)}] = r
	}

	agg := &AggregateAccuracy{}
	var hits int
	for _, p := range preds {
		r, ok := settled[key{CanonicalName(p.Home), CanonicalName(p.Away)}]
		if !ok {
			continue
		}
		probs := OutcomeProbs{Home: p.ProbHome, Draw: p.ProbDraw, Away: p.ProbAway}
		acc := EvaluatePrediction(probs, r)
		agg.Matches++
		if acc.OutcomeCorrect {
			hits++
		}
		agg.MeanBrier += acc.Brier
		agg.MeanLogLoss += acc.LogLoss
	}
	if agg.Matches == 0 {
		return agg
	}
	agg.HitRate = float64(hits) / float64(agg.Matches)
	agg.MeanBrier /= float64(agg.Matches)
	agg.MeanLogLoss /= float64(agg.Matches)
	return agg
}
