package fdclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultsPayload = `{
  "matches": [
    {
      "utcDate": "2024-08-17T14:00:00Z",
      "status": "FINISHED",
      "homeTeam": {"name": "Arsenal FC"},
      "awayTeam": {"name": "Wolverhampton Wanderers FC"},
      "score": {"fullTime": {"home": 2, "away": 0}}
    },
    {
      "utcDate": "2024-08-17T16:30:00Z",
      "status": "FINISHED",
      "homeTeam": {"name": "Chelsea FC"},
      "awayTeam": {"name": "Manchester City FC"},
      "score": {"fullTime": {"home": null, "away": null}}
    }
  ]
}`

const fixturesPayload = `{
  "matches": [
    {
      "utcDate": "2026-09-01T15:00:00Z",
      "status": "TIMED",
      "homeTeam": {"name": "Arsenal FC"},
      "awayTeam": {"name": "Chelsea FC"},
      "score": {"fullTime": {"home": null, "away": null}}
    }
  ]
}`

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Options{
		Token:          "test-token",
		BaseURL:        srv.URL,
		RequestsPerMin: 6000, // effectively no rate limiting in tests
	})
}

func TestFetchResults(t *testing.T) {
	var gotPath, gotToken, gotStatus string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.Header.Get("X-Auth-Token")
		gotStatus = r.URL.Query().Get("status")
		w.Write([]byte(resultsPayload))
	})

	records, err := client.FetchResults(context.Background(), "PL", 2024)
	require.NoError(t, err, "Fetch against the stub server should succeed")

	assert.Equal(t, "/competitions/PL/matches", gotPath)
	assert.Equal(t, "test-token", gotToken, "The auth token should be sent as a header")
	assert.Equal(t, "FINISHED", gotStatus)

	require.Len(t, records, 1, "The match without a full-time score should be skipped")
	assert.Equal(t, "Arsenal FC", records[0].Home)
	assert.Equal(t, 2, records[0].HomeGoals)
	assert.Equal(t, "2024", records[0].Season)
	assert.Equal(t, time.Date(2024, 8, 17, 14, 0, 0, 0, time.UTC), records[0].UTCDate)
}

func TestFetchFixtures(t *testing.T) {
	var gotFrom, gotTo string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotFrom = r.URL.Query().Get("dateFrom")
		gotTo = r.URL.Query().Get("dateTo")
		w.Write([]byte(fixturesPayload))
	})

	from := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 14)
	fixtures, err := client.FetchFixtures(context.Background(), "PL", from, to)
	require.NoError(t, err)

	assert.Equal(t, "2026-08-29", gotFrom)
	assert.Equal(t, "2026-09-12", gotTo)

	require.Len(t, fixtures, 1)
	assert.Equal(t, "Arsenal FC", fixtures[0].Home)
	assert.Equal(t, "Chelsea FC", fixtures[0].Away)
}

func TestFetchRetriesTransientFailure(t *testing.T) {
	calls := 0
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(resultsPayload))
	})

	records, err := client.FetchResults(context.Background(), "PL", 2024)
	require.NoError(t, err, "A transient 500 should be retried")
	assert.GreaterOrEqual(t, calls, 2)
	assert.Len(t, records, 1)
}

func TestFetchDoesNotRetryAuthFailure(t *testing.T) {
	calls := 0
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := client.FetchResults(context.Background(), "PL", 2024)
	require.Error(t, err)
	assert.Equal(t, 1, calls, "4xx failures must not be retried")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
}

func TestRetriesConsultRateLimiter(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	// One request a minute: the first attempt spends the burst token, so a
	// retry has to block on the limiter until the context gives up.
	client := New(Options{BaseURL: srv.URL, RequestsPerMin: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := client.FetchResults(ctx, "PL", 2024)
	require.Error(t, err)
	assert.Equal(t, 1, calls, "Retries must wait for a rate-limit token, not fire immediately")
}

func TestFetchHonoursContextCancellation(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.FetchResults(ctx, "PL", 2024)
	require.Error(t, err, "A cancelled context should abort the fetch")
}
