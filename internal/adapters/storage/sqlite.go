package storage

// sqlite.go stores telemetry batches in a single SQLite file.
//
//   - `play_orchestrators`: one row per orchestrator start, keyed by play_id.
//   - `instance_results`: one row per terminated instance, keyed by instance_id.
//
// Rows are append-only. A batch that repeats a primary key is accepted and the
// duplicate row is skipped, so replaying a batch after a crash is harmless.

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alejandrodnm/tabot/internal/domain"
	_ "modernc.org/sqlite"
)

// ErrNoRuns is returned by LatestRunID when nothing has been recorded yet.
var ErrNoRuns = errors.New("no runs recorded")

const schema = `
CREATE TABLE IF NOT EXISTS play_orchestrators (
    play_id          TEXT PRIMARY KEY,
    run_type         TEXT NOT NULL,
    start_time_local TEXT NOT NULL,
    start_time_utc   TEXT NOT NULL,
    conditions       TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS instance_results (
    instance_id             TEXT PRIMARY KEY,
    run_id                  TEXT    NOT NULL,
    symbol                  TEXT    NOT NULL,
    symbol_group            TEXT    NOT NULL,
    play_config_name        TEXT    NOT NULL,
    weather_condition       TEXT    NOT NULL,
    units                   REAL    NOT NULL DEFAULT 0,
    bought_value            REAL    NOT NULL DEFAULT 0,
    sold_value              REAL    NOT NULL DEFAULT 0,
    total_gain              REAL    NOT NULL DEFAULT 0,
    average_buy_price       REAL    NOT NULL DEFAULT 0,
    average_sell_price      REAL    NOT NULL DEFAULT 0,
    buy_order_count         INTEGER NOT NULL DEFAULT 0,
    sell_order_count        INTEGER NOT NULL DEFAULT 0,
    sell_order_filled_count INTEGER NOT NULL DEFAULT 0,
    terminated_at           TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_play_started ON play_orchestrators(start_time_utc DESC);
CREATE INDEX IF NOT EXISTS idx_results_run  ON instance_results(run_id);
`

// timeLayout is fixed width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStorage implements ports.ResultStore using SQLite (pure Go, no CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (or creates) the database at path and applies the schema.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// SavePlayStarts inserts start records, skipping play ids already stored.
func (s *SQLiteStorage) SavePlayStarts(ctx context.Context, starts []domain.PlayStart) error {
	if len(starts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SavePlayStarts: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO play_orchestrators
			(play_id, run_type, start_time_local, start_time_utc, conditions)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage.SavePlayStarts: prepare: %w", err)
	}
	defer stmt.Close()

	for _, p := range starts {
		conds, err := encodeConditions(nonNil(p.Conditions))
		if err != nil {
			return fmt.Errorf("storage.SavePlayStarts: %s: %w", p.PlayID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			p.PlayID,
			string(p.RunType),
			p.StartTimeLocal.Format(timeLayout),
			p.StartTimeUTC.UTC().Format(timeLayout),
			conds,
		); err != nil {
			return fmt.Errorf("storage.SavePlayStarts: insert %s: %w", p.PlayID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SavePlayStarts: commit: %w", err)
	}
	return nil
}

// SaveInstanceResults inserts summaries, skipping instance ids already stored.
func (s *SQLiteStorage) SaveInstanceResults(ctx context.Context, results []domain.InstanceSummary) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveInstanceResults: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO instance_results (
			instance_id, run_id, symbol, symbol_group, play_config_name,
			weather_condition, units, bought_value, sold_value, total_gain,
			average_buy_price, average_sell_price, buy_order_count,
			sell_order_count, sell_order_filled_count, terminated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage.SaveInstanceResults: prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		if _, err := stmt.ExecContext(ctx,
			r.InstanceID, r.RunID, r.Symbol, r.SymbolGroup, r.PlayConfigName,
			r.WeatherCondition, r.Units, r.BoughtValue, r.SoldValue, r.TotalGain,
			r.AverageBuyPrice, r.AverageSellPrice, r.BuyOrderCount,
			r.SellOrderCount, r.SellOrderFilledCount,
			r.TerminatedAt.UTC().Format(timeLayout),
		); err != nil {
			return fmt.Errorf("storage.SaveInstanceResults: insert %s: %w", r.InstanceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveInstanceResults: commit: %w", err)
	}
	return nil
}

// InstanceResults returns the summaries of runID ordered by termination time.
func (s *SQLiteStorage) InstanceResults(ctx context.Context, runID string) ([]domain.InstanceSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT instance_id, run_id, symbol, symbol_group, play_config_name,
		       weather_condition, units, bought_value, sold_value, total_gain,
		       average_buy_price, average_sell_price, buy_order_count,
		       sell_order_count, sell_order_filled_count, terminated_at
		FROM instance_results
		WHERE run_id = ?
		ORDER BY terminated_at, instance_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("storage.InstanceResults: query: %w", err)
	}
	defer rows.Close()

	var out []domain.InstanceSummary
	for rows.Next() {
		var r domain.InstanceSummary
		var terminated string
		if err := rows.Scan(
			&r.InstanceID, &r.RunID, &r.Symbol, &r.SymbolGroup, &r.PlayConfigName,
			&r.WeatherCondition, &r.Units, &r.BoughtValue, &r.SoldValue, &r.TotalGain,
			&r.AverageBuyPrice, &r.AverageSellPrice, &r.BuyOrderCount,
			&r.SellOrderCount, &r.SellOrderFilledCount, &terminated,
		); err != nil {
			return nil, fmt.Errorf("storage.InstanceResults: scan: %w", err)
		}
		if r.TerminatedAt, err = time.Parse(timeLayout, terminated); err != nil {
			return nil, fmt.Errorf("storage.InstanceResults: parse terminated_at %q: %w", terminated, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PlayStarts returns every recorded orchestrator start, newest first.
func (s *SQLiteStorage) PlayStarts(ctx context.Context) ([]domain.PlayStart, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT play_id, run_type, start_time_local, start_time_utc, conditions
		FROM play_orchestrators
		ORDER BY start_time_utc DESC, play_id`)
	if err != nil {
		return nil, fmt.Errorf("storage.PlayStarts: query: %w", err)
	}
	defer rows.Close()

	var out []domain.PlayStart
	for rows.Next() {
		var p domain.PlayStart
		var runType, local, utc, conds string
		if err := rows.Scan(&p.PlayID, &runType, &local, &utc, &conds); err != nil {
			return nil, fmt.Errorf("storage.PlayStarts: scan: %w", err)
		}
		p.RunType = domain.RunType(runType)
		if p.StartTimeLocal, err = time.Parse(timeLayout, local); err != nil {
			return nil, fmt.Errorf("storage.PlayStarts: parse start_time_local: %w", err)
		}
		if p.StartTimeUTC, err = time.Parse(timeLayout, utc); err != nil {
			return nil, fmt.Errorf("storage.PlayStarts: parse start_time_utc: %w", err)
		}
		if err := json.Unmarshal([]byte(conds), &p.Conditions); err != nil {
			return nil, fmt.Errorf("storage.PlayStarts: decode conditions: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// LatestRunID returns the play id with the newest UTC start time.
func (s *SQLiteStorage) LatestRunID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT play_id FROM play_orchestrators
		ORDER BY start_time_utc DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoRuns
	}
	if err != nil {
		return "", fmt.Errorf("storage.LatestRunID: %w", err)
	}
	return id, nil
}

// Prune deletes runs that started before cutoff together with their results.
func (s *SQLiteStorage) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("storage.Prune: begin tx: %w", err)
	}
	defer tx.Rollback()

	before := cutoff.UTC().Format(timeLayout)
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM instance_results WHERE run_id IN (
			SELECT play_id FROM play_orchestrators WHERE start_time_utc < ?)`, before); err != nil {
		return 0, fmt.Errorf("storage.Prune: results: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM play_orchestrators WHERE start_time_utc < ?`, before)
	if err != nil {
		return 0, fmt.Errorf("storage.Prune: runs: %w", err)
	}
	n, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("storage.Prune: commit: %w", err)
	}
	return n, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func encodeConditions(c map[string]string) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode conditions: %w", err)
	}
	return string(b), nil
}
