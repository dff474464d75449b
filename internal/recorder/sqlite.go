package recorder

import (
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"InstabilitySentinel/internal/logger"
	"InstabilitySentinel/internal/model"
)

// SQLiteRecorder persists observations to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	// WAL lets dashboards read while the service writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Log.WithField("path", dbPath).Info("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS observations (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			country_code TEXT NOT NULL,
			timestamp    INTEGER NOT NULL,
			score        REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_obs_ts ON observations(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_obs_code_ts ON observations(country_code, timestamp)`,

		`CREATE TABLE IF NOT EXISTS observation_components (
			observation_id INTEGER NOT NULL REFERENCES observations(id) ON DELETE CASCADE,
			name           TEXT NOT NULL,
			value          REAL NOT NULL,
			PRIMARY KEY (observation_id, name)
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordObservation(obs *model.Observation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO observations (country_code, timestamp, score) VALUES (?,?,?)`,
		obs.CountryCode, obs.Timestamp.UnixNano(), obs.Score)
	if err != nil {
		return fmt.Errorf("insert observation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("observation id: %w", err)
	}
	for name, v := range obs.Components {
		if _, err := tx.Exec(`INSERT INTO observation_components (observation_id, name, value) VALUES (?,?,?)`,
			id, name, v); err != nil {
			return fmt.Errorf("insert component %s: %w", name, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) LoadObservations(since time.Time) ([]model.Observation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT o.id, o.country_code, o.timestamp, o.score, c.name, c.value
		FROM observations o
		LEFT JOIN observation_components c ON c.observation_id = o.id
		WHERE o.timestamp >= ?
		ORDER BY o.timestamp, o.id`, unixNanos(since))
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var (
		out    []model.Observation
		lastID int64 = -1
	)
	for rows.Next() {
		var (
			id    int64
			code  string
			ts    int64
			score float64
			name  sql.NullString
			value sql.NullFloat64
		)
		if err := rows.Scan(&id, &code, &ts, &score, &name, &value); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		if id != lastID {
			out = append(out, model.Observation{
				CountryCode: code,
				Timestamp:   time.Unix(0, ts).UTC(),
				Score:       score,
			})
			lastID = id
		}
		if name.Valid {
			cur := &out[len(out)-1]
			if cur.Components == nil {
				cur.Components = make(map[string]float64)
			}
			cur.Components[name.String] = value.Float64
		}
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Prune(before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := unixNanos(before)
	if _, err := r.db.Exec(`DELETE FROM observation_components WHERE observation_id IN
		(SELECT id FROM observations WHERE timestamp < ?)`, cutoff); err != nil {
		return 0, fmt.Errorf("prune components: %w", err)
	}
	res, err := r.db.Exec(`DELETE FROM observations WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune observations: %w", err)
	}
	return res.RowsAffected()
}

// unixNanos maps t to the stored column value. The zero time sorts before
// everything instead of overflowing.
func unixNanos(t time.Time) int64 {
	if t.IsZero() {
		return math.MinInt64
	}
	return t.UnixNano()
}

func (r *SQLiteRecorder) Close() error {
	logger.Log.Info("closing sqlite recorder")
	return r.db.Close()
}
