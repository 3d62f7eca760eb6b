package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/richard-senior/plpred/internal/logger"
	"github.com/richard-senior/plpred/pkg/fdclient"
	"github.com/richard-senior/plpred/pkg/plpred"
)

func main() {
	configPath := flag.String("config", "plpred.yaml", "path to the YAML config file")
	resultsCSV := flag.String("results", "", "path to a results CSV (skips the API fetch)")
	season := flag.Int("season", time.Now().UTC().Year(), "season start year for the API fetch")
	outPath := flag.String("out", "predictions.json", "where to write the prediction batch")
	flag.Parse()

	cfg, err := plpred.LoadConfig(*configPath)
	if err != nil {
		logger.Error("Configuration error:", err)
		os.Exit(1)
	}
	if err := plpred.UpdateConfig(cfg); err != nil {
		logger.Error("Configuration error:", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.LogLevel)

	logger.Info("Starting plpred for competition", cfg.Competition)

	if err := run(cfg, *resultsCSV, *season, *outPath); err != nil {
		logger.Error("Run failed:", err)
		os.Exit(1)
	}
}

func run(cfg *plpred.PredictorConfig, resultsCSV string, season int, outPath string) error {
	ctx := context.Background()

	client := fdclient.New(fdclient.Options{Token: cfg.FootballDataToken})

	matches, err := loadMatches(ctx, cfg, client, resultsCSV, season)
	if err != nil {
		return err
	}
	logger.Info("Loaded matches", len(matches))

	var store *plpred.Store
	if cfg.DbPath != "" {
		store, err = plpred.OpenStore(cfg.DbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.SaveMatches(matches); err != nil {
			logger.Warn("Could not persist match batch:", err)
		}
	}

	strengths, err := plpred.BuildStrengths(matches, cfg.StrengthHalfLifeDays)
	if err != nil {
		return err
	}
	elo := plpred.BuildElo(matches, plpred.EloOptions{})
	logger.Info("Rated teams", len(strengths.Teams),
		"league avg gpg", fmt.Sprintf("%.2f", strengths.League.AvgGoalsPerGame))

	now := time.Now().UTC()
	fixtures, err := client.FetchFixtures(ctx, cfg.Competition, now,
		now.AddDate(0, 0, cfg.FixtureWindowDays))
	if err != nil {
		return fmt.Errorf("fetch fixtures: %w", err)
	}
	if len(fixtures) == 0 {
		logger.Warn("No fixtures in the window, nothing to predict")
		return nil
	}

	preds := plpred.PredictFixtures(fixtures, strengths, elo, cfg.BlendEloWeight)

	if store != nil {
		if err := store.SavePredictions(preds); err != nil {
			logger.Warn("Could not persist predictions:", err)
		}
	}

	return writePredictions(outPath, preds)
}

// loadMatches reads results from a CSV when one is given, otherwise from the
// API for the requested season.
func loadMatches(ctx context.Context, cfg *plpred.PredictorConfig, client *fdclient.Client, resultsCSV string, season int) ([]plpred.MatchRecord, error) {
	if resultsCSV != "" {
		f, err := os.Open(resultsCSV)
		if err != nil {
			return nil, fmt.Errorf("open results csv: %w", err)
		}
		defer f.Close()
		return plpred.ReadMatchesCSV(f)
	}
	return client.FetchResults(ctx, cfg.Competition, season)
}

func writePredictions(path string, preds []*plpred.MatchPrediction) error {
	out := struct {
		GeneratedUTC time.Time                 `json:"generated_utc"`
		Predictions  []*plpred.MatchPrediction `json:"predictions"`
	}{
		GeneratedUTC: time.Now().UTC(),
		Predictions:  preds,
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal predictions: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write predictions: %w", err)
	}
	logger.Info("Wrote predictions", path, len(preds))
	return nil
}
