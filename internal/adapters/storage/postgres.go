package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alejandrodnm/tabot/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS play_orchestrators (
    play_id          TEXT PRIMARY KEY,
    run_type         TEXT        NOT NULL,
    start_time_local TIMESTAMPTZ NOT NULL,
    start_time_utc   TIMESTAMPTZ NOT NULL,
    conditions       JSONB       NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS instance_results (
    instance_id             TEXT PRIMARY KEY,
    run_id                  TEXT             NOT NULL,
    symbol                  TEXT             NOT NULL,
    symbol_group            TEXT             NOT NULL,
    play_config_name        TEXT             NOT NULL,
    weather_condition       TEXT             NOT NULL,
    units                   DOUBLE PRECISION NOT NULL DEFAULT 0,
    bought_value            DOUBLE PRECISION NOT NULL DEFAULT 0,
    sold_value              DOUBLE PRECISION NOT NULL DEFAULT 0,
    total_gain              DOUBLE PRECISION NOT NULL DEFAULT 0,
    average_buy_price       DOUBLE PRECISION NOT NULL DEFAULT 0,
    average_sell_price      DOUBLE PRECISION NOT NULL DEFAULT 0,
    buy_order_count         INTEGER          NOT NULL DEFAULT 0,
    sell_order_count        INTEGER          NOT NULL DEFAULT 0,
    sell_order_filled_count INTEGER          NOT NULL DEFAULT 0,
    terminated_at           TIMESTAMPTZ      NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_play_started ON play_orchestrators(start_time_utc DESC);
CREATE INDEX IF NOT EXISTS idx_results_run  ON instance_results(run_id);
`

// PostgresStorage implements ports.ResultStore on a pgx connection pool.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage connects to dsn, pings the server and applies the schema.
func NewPostgresStorage(ctx context.Context, dsn string, maxConns int) (*PostgresStorage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("storage.NewPostgresStorage: parse config: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage.NewPostgresStorage: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage.NewPostgresStorage: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage.NewPostgresStorage: apply schema: %w", err)
	}
	return &PostgresStorage{pool: pool}, nil
}

// SavePlayStarts inserts start records in one batch, skipping known play ids.
func (s *PostgresStorage) SavePlayStarts(ctx context.Context, starts []domain.PlayStart) error {
	if len(starts) == 0 {
		return nil
	}

	const query = `
		INSERT INTO play_orchestrators
			(play_id, run_type, start_time_local, start_time_utc, conditions)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (play_id) DO NOTHING`

	batch := &pgx.Batch{}
	for _, p := range starts {
		conds, err := json.Marshal(nonNil(p.Conditions))
		if err != nil {
			return fmt.Errorf("storage.SavePlayStarts: %s: encode conditions: %w", p.PlayID, err)
		}
		batch.Queue(query, p.PlayID, string(p.RunType), p.StartTimeLocal, p.StartTimeUTC.UTC(), conds)
	}
	return s.sendBatch(ctx, "SavePlayStarts", batch)
}

// SaveInstanceResults inserts summaries in one batch, skipping known instance ids.
func (s *PostgresStorage) SaveInstanceResults(ctx context.Context, results []domain.InstanceSummary) error {
	if len(results) == 0 {
		return nil
	}

	const query = `
		INSERT INTO instance_results (
			instance_id, run_id, symbol, symbol_group, play_config_name,
			weather_condition, units, bought_value, sold_value, total_gain,
			average_buy_price, average_sell_price, buy_order_count,
			sell_order_count, sell_order_filled_count, terminated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (instance_id) DO NOTHING`

	batch := &pgx.Batch{}
	for _, r := range results {
		batch.Queue(query,
			r.InstanceID, r.RunID, r.Symbol, r.SymbolGroup, r.PlayConfigName,
			r.WeatherCondition, r.Units, r.BoughtValue, r.SoldValue, r.TotalGain,
			r.AverageBuyPrice, r.AverageSellPrice, r.BuyOrderCount,
			r.SellOrderCount, r.SellOrderFilledCount, r.TerminatedAt.UTC(),
		)
	}
	return s.sendBatch(ctx, "SaveInstanceResults", batch)
}

func (s *PostgresStorage) sendBatch(ctx context.Context, op string, batch *pgx.Batch) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("storage.%s: begin tx: %w", op, err)
	}
	defer tx.Rollback(ctx)

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("storage.%s: row %d: %w", op, i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("storage.%s: close batch: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("storage.%s: commit: %w", op, err)
	}
	return nil
}

// InstanceResults returns the summaries of runID ordered by termination time.
func (s *PostgresStorage) InstanceResults(ctx context.Context, runID string) ([]domain.InstanceSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT instance_id, run_id, symbol, symbol_group, play_config_name,
		       weather_condition, units, bought_value, sold_value, total_gain,
		       average_buy_price, average_sell_price, buy_order_count,
		       sell_order_count, sell_order_filled_count, terminated_at
		FROM instance_results
		WHERE run_id = $1
		ORDER BY terminated_at, instance_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("storage.InstanceResults: query: %w", err)
	}
	defer rows.Close()

	var out []domain.InstanceSummary
	for rows.Next() {
		var r domain.InstanceSummary
		if err := rows.Scan(
			&r.InstanceID, &r.RunID, &r.Symbol, &r.SymbolGroup, &r.PlayConfigName,
			&r.WeatherCondition, &r.Units, &r.BoughtValue, &r.SoldValue, &r.TotalGain,
			&r.AverageBuyPrice, &r.AverageSellPrice, &r.BuyOrderCount,
			&r.SellOrderCount, &r.SellOrderFilledCount, &r.TerminatedAt,
		); err != nil {
			return nil, fmt.Errorf("storage.InstanceResults: scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestRunID returns the play id with the newest UTC start time.
func (s *PostgresStorage) LatestRunID(ctx context.Context) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx, `
		SELECT play_id FROM play_orchestrators
		ORDER BY start_time_utc DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNoRuns
	}
	if err != nil {
		return "", fmt.Errorf("storage.LatestRunID: %w", err)
	}
	return id, nil
}

// Close releases the pool.
func (s *PostgresStorage) Close() error {
	s.pool.Close()
	return nil
}

func nonNil(c map[string]string) map[string]string {
	if c == nil {
		return map[string]string{}
	}
	return c
}
