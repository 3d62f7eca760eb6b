package plpred

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, OutcomeHome, OutcomeOf(2, 0))
	assert.Equal(t, OutcomeAway, OutcomeOf(0, 1))
	assert.Equal(t, OutcomeDraw, OutcomeOf(1, 1))
}

func TestMostLikely(t *testing.T) {
	assert.Equal(t, OutcomeHome, mostLikely(OutcomeProbs{Home: 0.5, Draw: 0.3, Away: 0.2}))
	assert.Equal(t, OutcomeAway, mostLikely(OutcomeProbs{Home: 0.2, Draw: 0.3, Away: 0.5}))
	assert.Equal(t, OutcomeDraw, mostLikely(OutcomeProbs{Home: 0.3, Draw: 0.4, Away: 0.3}))
	// Exact ties favour the earlier outcome in home, draw, away order.
	assert.Equal(t, OutcomeHome, mostLikely(OutcomeProbs{Home: 0.4, Draw: 0.4, Away: 0.2}))
}

func TestEvaluatePredictionCorrectCall(t *testing.T) {
	probs := OutcomeProbs{Home: 0.6, Draw: 0.25, Away: 0.15}
	result := MatchRecord{Home: "Arsenal", Away: "Chelsea", HomeGoals: 2, AwayGoals: 0}

	acc := EvaluatePrediction(probs, result)
	assert.Equal(t, OutcomeHome, acc.Actual)
	assert.Equal(t, OutcomeHome, acc.Predicted)
	assert.True(t, acc.OutcomeCorrect)

	wantBrier := math.Pow(0.6-1, 2) + math.Pow(0.25, 2) + math.Pow(0.15, 2)
	assert.InDelta(t, wantBrier, acc.Brier, 1e-12)
	assert.InDelta(t, -math.Log(0.6), acc.LogLoss, 1e-12)
}

func TestEvaluatePredictionWrongCall(t *testing.T) {
	probs := OutcomeProbs{Home: 0.6, Draw: 0.25, Away: 0.15}
	result := MatchRecord{Home: "Arsenal", Away: "Chelsea", HomeGoals: 0, AwayGoals: 1}

	acc := EvaluatePrediction(probs, result)
	assert.Equal(t, OutcomeAway, acc.Actual)
	assert.False(t, acc.OutcomeCorrect)
	assert.InDelta(t, -math.Log(0.15), acc.LogLoss, 1e-12)
}

func TestEvaluatePredictionZeroProbabilityFinite(t *testing.T) {
	probs := OutcomeProbs{Home: 1.0, Draw: 0.0, Away: 0.0}
	result := MatchRecord{Home: "Arsenal", Away: "Chelsea", HomeGoals: 0, AwayGoals: 0}

	acc := EvaluatePrediction(probs, result)
	assert.False(t, math.IsInf(acc.LogLoss, 1), "Log loss must stay finite on a zero-probability outcome")
	assert.Greater(t, acc.LogLoss, 30.0, "The floor should still punish the miss heavily")
}

func TestEvaluateBatch(t *testing.T) {
	preds := []*StoredPrediction{
		{Home: "Arsenal FC", Away: "Chelsea FC", ProbHome: 0.6, ProbDraw: 0.25, ProbAway: 0.15},
		{Home: "Spurs", Away: "Wolves", ProbHome: 0.3, ProbDraw: 0.3, ProbAway: 0.4},
		{Home: "Brentford", Away: "Fulham", ProbHome: 0.4, ProbDraw: 0.3, ProbAway: 0.3},
	}
	results := []MatchRecord{
		{Home: "Arsenal", Away: "Chelsea", HomeGoals: 2, AwayGoals: 0},
		{Home: "Tottenham Hotspur", Away: "Wolverhampton Wanderers", HomeGoals: 1, AwayGoals: 1},
		// Brentford v Fulham has not been played yet.
	}

	agg := EvaluateBatch(preds, results)
	assert.Equal(t, 2, agg.Matches, "Canonical names and aliases should match settled results")
	assert.InDelta(t, 0.5, agg.HitRate, 1e-12, "One of the two settled calls was correct")
	assert.Greater(t, agg.MeanBrier, 0.0)
	assert.Greater(t, agg.MeanLogLoss, 0.0)
}

func TestEvaluateBatchNoResults(t *testing.T) {
	preds := []*StoredPrediction{
		{Home: "Arsenal", Away: "Chelsea", ProbHome: 0.6, ProbDraw: 0.25, ProbAway: 0.15},
	}
	agg := EvaluateBatch(preds, nil)
	assert.Equal(t, 0, agg.Matches)
	assert.Equal(t, 0.0, agg.HitRate)
}
