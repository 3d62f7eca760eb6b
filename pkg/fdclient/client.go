// Package fdclient is a minimal client for the football-data.org v4 API,
// covering the two calls the predictor needs: finished results and upcoming
// fixtures for a competition. Requests are rate limited client-side (the
// free tier allows 10 requests a minute) and retried with exponential
// backoff on transient failures.
package fdclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/richard-senior/plpred/internal/logger"
	"github.com/richard-senior/plpred/pkg/plpred"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.football-data.org/v4"

// Client talks to the football-data.org API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	token      string
	baseURL    string
}

// Options configures a Client. Zero values select sensible defaults.
type Options struct {
	Token          string
	Timeout        time.Duration
	RequestsPerMin int
	MaxRetryTime   time.Duration
	BaseURL        string // overridable for tests
}

// New creates a Client.
func New(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerMin == 0 {
		opts.RequestsPerMin = 10
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMin)), 1),
		token:      opts.Token,
		baseURL:    opts.BaseURL,
	}
}

// API payload shapes; only the fields in use are declared.
type apiTeam struct {
	Name string `json:"name"`
}

type apiScore struct {
	FullTime struct {
		Home *int `json:"home"`
		Away *int `json:"away"`
	} `json:"fullTime"`
}

type apiMatch struct {
	UTCDate  string   `json:"utcDate"`
	Status   string   `json:"status"`
	HomeTeam apiTeam  `json:"homeTeam"`
	AwayTeam apiTeam  `json:"awayTeam"`
	Score    apiScore `json:"score"`
}

type matchesResponse struct {
	Matches []apiMatch `json:"matches"`
}

// FetchResults returns the finished matches for a competition season,
// e.g. FetchResults(ctx, "PL", 2024). Matches without a full-time score are
// skipped; the batch continues.
func (c *Client) FetchResults(ctx context.Context, competition string, season int) ([]plpred.MatchRecord, error) {
	params := url.Values{}
	params.Set("season", strconv.Itoa(season))
	params.Set("status", "FINISHED")

	resp, err := c.getMatches(ctx, competition, params)
	if err != nil {
		return nil, err
	}

	records := make([]plpred.MatchRecord, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		ft := m.Score.FullTime
		if ft.Home == nil || ft.Away == nil {
			continue
		}
		kickoff, err := time.Parse(time.RFC3339, m.UTCDate)
		if err != nil {
			logger.Warn("Skipping match with unparseable kickoff", m.UTCDate)
			continue
		}
		records = append(records, plpred.MatchRecord{
			UTCDate:   kickoff.UTC(),
			Season:    strconv.Itoa(season),
			Home:      m.HomeTeam.Name,
			Away:      m.AwayTeam.Name,
			HomeGoals: *ft.Home,
			AwayGoals: *ft.Away,
		})
	}
	return records, nil
}

// FetchFixtures returns the scheduled fixtures for a competition inside a
// date window.
func (c *Client) FetchFixtures(ctx context.Context, competition string, from, to time.Time) ([]plpred.Fixture, error) {
	params := url.Values{}
	params.Set("dateFrom", from.UTC().Format("2006-01-02"))
	params.Set("dateTo", to.UTC().Format("2006-01-02"))
	params.Set("status", "SCHEDULED,TIMED")

	resp, err := c.getMatches(ctx, competition, params)
	if err != nil {
		return nil, err
	}

	fixtures := make([]plpred.Fixture, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		kickoff, err := time.Parse(time.RFC3339, m.UTCDate)
		if err != nil {
			logger.Warn("Skipping fixture with unparseable kickoff", m.UTCDate)
			continue
		}
		fixtures = append(fixtures, plpred.Fixture{
			Home:       m.HomeTeam.Name,
			Away:       m.AwayTeam.Name,
			KickoffUTC: kickoff.UTC(),
		})
	}
	return fixtures, nil
}

// getMatches performs one rate-limited, retried GET against the matches
// endpoint for a competition.
func (c *Client) getMatches(ctx context.Context, competition string, params url.Values) (*matchesResponse, error) {
	endpoint := fmt.Sprintf("%s/competitions/%s/matches?%s", c.baseURL, competition, params.Encode())

	var payload matchesResponse
	operation := func() error {
		// every attempt pays a rate-limit token, retries included
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		if c.token != "" {
			req.Header.Set("X-Auth-Token", c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			err := &StatusError{StatusCode: resp.StatusCode}
			// auth and bad-request failures will not heal on retry
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return backoff.Permanent(err)
			}
			return err
		}
		return json.NewDecoder(resp.Body).Decode(&payload)
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(operation, backoff.WithContext(strategy, ctx)); err != nil {
		return nil, fmt.Errorf("fetch %s matches: %w", competition, err)
	}
	return &payload, nil
}

// StatusError reports a non-200 response from the API.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("football-data.org returned status %d", e.StatusCode)
}
