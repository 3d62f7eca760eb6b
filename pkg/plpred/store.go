package plpred

import (
	"database/sql"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/richard-senior/plpred/internal/logger"
	_ "modernc.org/sqlite"
)

// Persistable is implemented by every type the store knows how to persist.
// Table layout is driven by the `column`, `dbtype`, `primary` and `index`
// struct tags.
type Persistable interface {
	GetTableName() string
	GetPrimaryKey() map[string]any
	SetPrimaryKey(map[string]any) error
	BeforeSave() error
}

// Store wraps the sqlite database holding match results and generated
// predictions, so repeated runs can replay stored data without refetching.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if necessary) the sqlite database at path and
// ensures the schema exists.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	for _, obj := range []Persistable{&MatchRecord{}, &StoredPrediction{}} {
		if err := s.CreateTable(obj); err != nil {
			return nil, err
		}
	}
	logger.Info("Store initialized", path)
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateTable creates the table and indexes for a persistable type.
func (s *Store) CreateTable(obj Persistable) error {
	table := obj.GetTableName()
	ddl := createTableSQL(obj, table)
	logger.Debug("Creating table with SQL", ddl)
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}
	for _, stmt := range indexSQL(obj, table) {
		if _, err := s.db.Exec(stmt); err != nil {
			logger.Warn("Failed to create index", err)
		}
	}
	return nil
}

// Save inserts or updates a single object keyed by its primary key.
func (s *Store) Save(obj Persistable) error {
	if err := obj.BeforeSave(); err != nil {
		return fmt.Errorf("before save hook failed: %w", err)
	}
	exists, err := s.Exists(obj)
	if err != nil {
		return err
	}
	if exists {
		return s.update(obj)
	}
	return s.insert(obj)
}

// BulkSave saves a batch of objects inside one transaction.
func (s *Store) BulkSave(objects []Persistable) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, obj := range objects {
		if err := obj.BeforeSave(); err != nil {
			return fmt.Errorf("before save hook failed: %w", err)
		}
		table := obj.GetTableName()
		columns, values := persistentFields(obj)
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
		query := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
			table, strings.Join(columns, ", "), placeholders)
		if _, err := tx.Exec(query, values...); err != nil {
			return fmt.Errorf("failed to save into %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// Exists reports whether a row with the object's primary key is present.
func (s *Store) Exists(obj Persistable) (bool, error) {
	table := obj.GetTableName()
	where, values := whereClause(obj.GetPrimaryKey())
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", table, where)
	if err := s.db.QueryRow(query, values...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check existence in %s: %w", table, err)
	}
	return count > 0, nil
}

// FindWhere runs a custom WHERE query and scans each row into a fresh
// instance of the prototype's type.
func (s *Store) FindWhere(prototype Persistable, where string, args ...any) ([]Persistable, error) {
	table := prototype.GetTableName()
	columns, _ := scanTargets(prototype)

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(columns, ", "), table)
	if where != "" {
		query += " WHERE " + where
	}
	logger.Debug("FindWhere SQL", query)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	objType := reflect.TypeOf(prototype).Elem()
	var results []Persistable
	for rows.Next() {
		fresh := reflect.New(objType).Interface().(Persistable)
		_, dests := scanTargets(fresh)
		if err := rows.Scan(dests...); err != nil {
			return nil, fmt.Errorf("failed to scan row from %s: %w", table, err)
		}
		results = append(results, fresh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows from %s: %w", table, err)
	}
	return results, nil
}

// SaveMatches persists a result batch.
func (s *Store) SaveMatches(matches []MatchRecord) error {
	batch := make([]Persistable, len(matches))
	for i := range matches {
		batch[i] = &matches[i]
	}
	return s.BulkSave(batch)
}

// LoadMatches returns every stored match in ascending date order.
func (s *Store) LoadMatches() ([]MatchRecord, error) {
	rows, err := s.FindWhere(&MatchRecord{}, "1=1 ORDER BY utc_date ASC")
	if err != nil {
		return nil, err
	}
	matches := make([]MatchRecord, 0, len(rows))
	for _, r := range rows {
		matches = append(matches, *(r.(*MatchRecord)))
	}
	return matches, nil
}

// SavePredictions flattens and persists a prediction batch.
func (s *Store) SavePredictions(preds []*MatchPrediction) error {
	batch := make([]Persistable, 0, len(preds))
	for _, p := range preds {
		batch = append(batch, flattenPrediction(p))
	}
	return s.BulkSave(batch)
}

func (s *Store) insert(obj Persistable) error {
	table := obj.GetTableName()
	columns, values := persistentFields(obj)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), placeholders)
	if _, err := s.db.Exec(query, values...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return nil
}

func (s *Store) update(obj Persistable) error {
	table := obj.GetTableName()
	pk := obj.GetPrimaryKey()
	columns, values := persistentFields(obj)

	var setPairs []string
	var setValues []any
	for i, col := range columns {
		if _, isPK := pk[col]; isPK {
			continue
		}
		setPairs = append(setPairs, col+" = ?")
		setValues = append(setValues, values[i])
	}

	where, whereValues := whereClause(pk)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", table, strings.Join(setPairs, ", "), where)
	if _, err := s.db.Exec(query, append(setValues, whereValues...)...); err != nil {
		return fmt.Errorf("failed to update %s: %w", table, err)
	}
	return nil
}

/////////////////////////////////////////////////////////////////////////
////// Struct-tag driven SQL generation
/////////////////////////////////////////////////////////////////////////

func createTableSQL(obj Persistable, table string) string {
	objType := reflect.TypeOf(obj).Elem()

	var columns, primaryKeys []string
	for i := 0; i < objType.NumField(); i++ {
		field := objType.Field(i)
		if !field.IsExported() {
			continue
		}
		dbType := field.Tag.Get("dbtype")
		if dbType == "" {
			continue
		}
		column := columnName(field)
		if field.Tag.Get("primary") == "true" {
			primaryKeys = append(primaryKeys, column)
		}
		columns = append(columns, fmt.Sprintf("%s %s", column, dbType))
	}
	if len(primaryKeys) > 0 {
		columns = append(columns, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(primaryKeys, ", ")))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(columns, ", "))
}

func indexSQL(obj Persistable, table string) []string {
	objType := reflect.TypeOf(obj).Elem()
	var statements []string
	for i := 0; i < objType.NumField(); i++ {
		field := objType.Field(i)
		if !field.IsExported() || field.Tag.Get("index") == "" {
			continue
		}
		column := columnName(field)
		statements = append(statements, fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s)", table, column, table, column))
	}
	return statements
}

// persistentFields extracts column names and current values for writes.
func persistentFields(obj Persistable) ([]string, []any) {
	objValue := reflect.ValueOf(obj).Elem()
	objType := objValue.Type()

	var columns []string
	var values []any
	for i := 0; i < objType.NumField(); i++ {
		field := objType.Field(i)
		if !field.IsExported() || field.Tag.Get("dbtype") == "" {
			continue
		}
		columns = append(columns, columnName(field))
		values = append(values, objValue.Field(i).Interface())
	}
	return columns, values
}

// scanTargets extracts column names and addressable scan destinations.
func scanTargets(obj Persistable) ([]string, []any) {
	objValue := reflect.ValueOf(obj).Elem()
	objType := objValue.Type()

	var columns []string
	var dests []any
	for i := 0; i < objType.NumField(); i++ {
		field := objType.Field(i)
		if !field.IsExported() || field.Tag.Get("dbtype") == "" {
			continue
		}
		columns = append(columns, columnName(field))
		dests = append(dests, objValue.Field(i).Addr().Interface())
	}
	return columns, dests
}

func columnName(field reflect.StructField) string {
	if name := field.Tag.Get("column"); name != "" {
		return name
	}
	return strings.ToLower(field.Name)
}

// whereClause builds a deterministic WHERE fragment from a primary key map.
func whereClause(pk map[string]any) (string, []any) {
	columns := make([]string, 0, len(pk))
	for col := range pk {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	var conditions []string
	var values []any
	for _, col := range columns {
		conditions = append(conditions, col+" = ?")
		values = append(values, pk[col])
	}
	return strings.Join(conditions, " AND "), values
}

/////////////////////////////////////////////////////////////////////////
////// Stored Prediction Row
/////////////////////////////////////////////////////////////////////////

// Compile-time check to ensure StoredPrediction implements Persistable
var _ Persistable = (*StoredPrediction)(nil)

// StoredPrediction is the flattened database row for a MatchPrediction,
// kept so historical predictions can be evaluated against later results.
type StoredPrediction struct {
	KickoffUTC  time.Time `json:"kickoffUtc" column:"kickoff_utc" dbtype:"DATETIME NOT NULL" primary:"true" index:"true"`
	Home        string    `json:"home" column:"home" dbtype:"TEXT NOT NULL" primary:"true"`
	Away        string    `json:"away" column:"away" dbtype:"TEXT NOT NULL" primary:"true"`
	HomeXG      float64   `json:"homeXg" column:"home_xg" dbtype:"REAL DEFAULT 0.0"`
	AwayXG      float64   `json:"awayXg" column:"away_xg" dbtype:"REAL DEFAULT 0.0"`
	ProbHome    float64   `json:"probHome" column:"prob_home" dbtype:"REAL DEFAULT 0.0"`
	ProbDraw    float64   `json:"probDraw" column:"prob_draw" dbtype:"REAL DEFAULT 0.0"`
	ProbAway    float64   `json:"probAway" column:"prob_away" dbtype:"REAL DEFAULT 0.0"`
	BlendWeight float64   `json:"blendWeight" column:"blend_weight" dbtype:"REAL DEFAULT 0.0"`
	CreatedAt   time.Time `json:"createdAt" column:"created_at" dbtype:"DATETIME"`
}

func flattenPrediction(p *MatchPrediction) *StoredPrediction {
	return &StoredPrediction{
		KickoffUTC:  p.KickoffUTC,
		Home:        p.Home,
		Away:        p.Away,
		HomeXG:      p.ExpectedGoals.Home,
		AwayXG:      p.ExpectedGoals.Away,
		ProbHome:    p.Probs.Home,
		ProbDraw:    p.Probs.Draw,
		ProbAway:    p.Probs.Away,
		BlendWeight: p.BlendWeight,
	}
}

// GetTableName returns the table name for stored predictions
func (p *StoredPrediction) GetTableName() string {
	return "predictions"
}

// GetPrimaryKey returns the compound primary key as a map
func (p *StoredPrediction) GetPrimaryKey() map[string]any {
	return map[string]any{
		"kickoff_utc": p.KickoffUTC,
		"home":        p.Home,
		"away":        p.Away,
	}
}

// SetPrimaryKey sets the compound primary key from a map
func (p *StoredPrediction) SetPrimaryKey(pk map[string]any) error {
	kickoff, ok := pk["kickoff_utc"].(time.Time)
	if !ok {
		return fmt.Errorf("primary key 'kickoff_utc' must be a time.Time")
	}
	home, ok := pk["home"].(string)
	if !ok {
		return fmt.Errorf("primary key 'home' must be a string")
	}
	away, ok := pk["away"].(string)
	if !ok {
		return fmt.Errorf("primary key 'away' must be a string")
	}
	p.KickoffUTC, p.Home, p.Away = kickoff, home, away
	return nil
}

// BeforeSave stamps the row creation time.
func (p *StoredPrediction) BeforeSave() error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	return nil
}
