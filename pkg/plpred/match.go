package plpred

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/richard-senior/plpred/internal/logger"
)

// Compile-time check to ensure MatchRecord implements Persistable interface
var _ Persistable = (*MatchRecord)(nil)

// MatchRecord represents a single finished match. Records are supplied by an
// external fetch pipeline and treated as immutable; ordering by date matters
// for time decay and the Elo replay.
type MatchRecord struct {
	UTCDate   time.Time `json:"utcDate" column:"utc_date" dbtype:"DATETIME NOT NULL" primary:"true" index:"true"`
	Home      string    `json:"home" column:"home" dbtype:"TEXT NOT NULL" primary:"true" index:"true"`
	Away      string    `json:"away" column:"away" dbtype:"TEXT NOT NULL" primary:"true" index:"true"`
	Season    string    `json:"season,omitempty" column:"season" dbtype:"TEXT"`
	HomeGoals int       `json:"homeGoals" column:"home_goals" dbtype:"INTEGER DEFAULT 0"`
	AwayGoals int       `json:"awayGoals" column:"away_goals" dbtype:"INTEGER DEFAULT 0"`
}

// Fixture is an upcoming match awaiting a prediction.
type Fixture struct {
	Home       string    `json:"home"`
	Away       string    `json:"away"`
	KickoffUTC time.Time `json:"kickoff_utc"`
}

// IsDraw reports whether the match finished level.
func (m *MatchRecord) IsDraw() bool {
	return m.HomeGoals == m.AwayGoals
}

// GoalDifference returns home goals minus away goals.
func (m *MatchRecord) GoalDifference() int {
	return m.HomeGoals - m.AwayGoals
}

/////////////////////////////////////////////////////////////////////////
////// Persistable Interface Implementation
/////////////////////////////////////////////////////////////////////////

// GetTableName returns the table name for match records
func (m *MatchRecord) GetTableName() string {
	return "matches"
}

// GetPrimaryKey returns the compound primary key as a map
func (m *MatchRecord) GetPrimaryKey() map[string]any {
	return map[string]any{
		"utc_date": m.UTCDate,
		"home":     m.Home,
		"away":     m.Away,
	}
}

// SetPrimaryKey sets the compound primary key from a map
func (m *MatchRecord) SetPrimaryKey(pk map[string]any) error {
	date, ok := pk["utc_date"].(time.Time)
	if !ok {
		return fmt.Errorf("primary key 'utc_date' must be a time.Time")
	}
	home, ok := pk["home"].(string)
	if !ok {
		return fmt.Errorf("primary key 'home' must be a string")
	}
	away, ok := pk["away"].(string)
	if !ok {
		return fmt.Errorf("primary key 'away' must be a string")
	}
	m.UTCDate, m.Home, m.Away = date, home, away
	return nil
}

// BeforeSave is called before saving the match record
func (m *MatchRecord) BeforeSave() error {
	if m.Home == "" || m.Away == "" {
		return fmt.Errorf("match record must name both teams")
	}
	return nil
}

/////////////////////////////////////////////////////////////////////////
////// Schema Validation
/////////////////////////////////////////////////////////////////////////

// SchemaError reports required columns missing from a dataset. It is fatal:
// callers receive no partial output.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("dataset missing required columns: %s", strings.Join(e.Missing, ", "))
}

// requiredColumns is the minimum schema for a results dataset. Extra columns
// are tolerated and ignored.
var requiredColumns = []string{"date", "home", "away", "home_goals", "away_goals"}

/////////////////////////////////////////////////////////////////////////
////// CSV Codec
/////////////////////////////////////////////////////////////////////////

// ReadMatchesCSV parses the results CSV persisted by the fetch pipeline.
// The header is validated against the required schema; a missing column is a
// SchemaError. Malformed rows are skipped with a warning, non-numeric goal
// values coerce to 0 rather than failing the row.
func ReadMatchesCSV(r io.Reader) ([]MatchRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &SchemaError{Missing: requiredColumns}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var missing []string
	minFields := 0
	for _, col := range requiredColumns {
		i, ok := idx[col]
		if !ok {
			missing = append(missing, col)
			continue
		}
		if i >= minFields {
			minFields = i + 1
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}

	var matches []MatchRecord
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			logger.Warn("Skipping malformed csv row", line, err)
			continue
		}
		if len(row) < minFields {
			logger.Warn("Skipping csv row with too few fields", line, len(row))
			continue
		}

		date, err := parseUTCDate(row[idx["date"]])
		if err != nil {
			logger.Warn("Skipping row with unparseable date", line, row[idx["date"]])
			continue
		}

		m := MatchRecord{
			UTCDate:   date,
			Home:      strings.TrimSpace(row[idx["home"]]),
			Away:      strings.TrimSpace(row[idx["away"]]),
			HomeGoals: coerceGoals(row[idx["home_goals"]], line),
			AwayGoals: coerceGoals(row[idx["away_goals"]], line),
		}
		if si, ok := idx["season"]; ok && si < len(row) {
			m.Season = strings.TrimSpace(row[si])
		}
		if m.Home == "" || m.Away == "" {
			logger.Warn("Skipping row with empty team name", line)
			continue
		}
		matches = append(matches, m)
	}

	return matches, nil
}

// WriteMatchesCSV writes matches in the same schema ReadMatchesCSV accepts.
func WriteMatchesCSV(w io.Writer, matches []MatchRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "season", "home", "away", "home_goals", "away_goals"}); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, m := range matches {
		row := []string{
			m.UTCDate.UTC().Format(time.RFC3339),
			m.Season,
			m.Home,
			m.Away,
			strconv.Itoa(m.HomeGoals),
			strconv.Itoa(m.AwayGoals),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// coerceGoals converts a goal column to a non-negative int, coercing junk to 0.
func coerceGoals(s string, line int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		logger.Warn("Coercing non-numeric goal value to 0 on row", line, s)
		return 0
	}
	return n
}

// parseUTCDate accepts the formats seen in the wild: RFC3339 kickoff
// timestamps and bare dates.
func parseUTCDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date format: %q", s)
}

// SortMatchesByDate returns a copy sorted in ascending kickoff order. The
// sort is stable so same-day matches keep their original order.
func SortMatchesByDate(matches []MatchRecord) []MatchRecord {
	sorted := make([]MatchRecord, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UTCDate.Before(sorted[j].UTCDate)
	})
	return sorted
}
