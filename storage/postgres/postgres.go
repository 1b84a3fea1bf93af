package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/and161185/csm-probes/internal/utils"
	"github.com/and161185/csm-probes/model"
	"github.com/and161185/csm-probes/storage"
)

const createTable = `
CREATE TABLE IF NOT EXISTS metrics (
	name        TEXT PRIMARY KEY,
	metric_type TEXT NOT NULL,
	value       DOUBLE PRECISION,
	environment TEXT,
	zone        TEXT,
	az          TEXT NOT NULL,
	ts          TEXT NOT NULL
)`

const upsertMetric = `
INSERT INTO metrics (name, metric_type, value, environment, zone, az, ts)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (name) DO UPDATE SET
	value = CASE
		WHEN EXCLUDED.metric_type = 'c' AND metrics.metric_type = 'c'
		THEN COALESCE(metrics.value, 0) + EXCLUDED.value
		ELSE EXCLUDED.value
	END,
	metric_type = EXCLUDED.metric_type,
	environment = EXCLUDED.environment,
	zone        = EXCLUDED.zone,
	az          = EXCLUDED.az,
	ts          = EXCLUDED.ts
RETURNING value`

const selectColumns = `SELECT name, metric_type, value, environment, zone, az, ts FROM metrics`

type PostgresStorage struct {
	db *pgxpool.Pool
}

// NewPostgresStorage connects to the database and creates the metrics table.
func NewPostgresStorage(ctx context.Context, databaseDsn string) (*PostgresStorage, error) {
	db, err := pgxpool.New(ctx, databaseDsn)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	err = utils.WithRetry(ctx, func() error {
		_, err := db.Exec(ctx, createTable)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}
	return &PostgresStorage{db: db}, nil
}

func upsertArgs(m model.Metric) []any {
	value := m.Value
	if m.MetricType == model.Counter {
		value = utils.F64Ptr(storage.CounterDelta(m))
	}
	return []any{m.Name, string(m.MetricType), value, m.Environment, m.Zone, m.AZ, m.Timestamp}
}

func (store *PostgresStorage) Save(ctx context.Context, m model.Metric) (model.Metric, error) {
	var stored *float64
	err := utils.WithRetry(ctx, func() error {
		return store.db.QueryRow(ctx, upsertMetric, upsertArgs(m)...).Scan(&stored)
	})
	if err != nil {
		return model.Metric{}, fmt.Errorf("save %s: %w", m.Name, err)
	}
	m.Value = stored
	return m, nil
}

func (store *PostgresStorage) SaveBatch(ctx context.Context, metrics []model.Metric) error {
	if len(metrics) == 0 {
		return nil
	}

	return utils.WithRetry(ctx, func() error {
		tx, err := store.db.Begin(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		batch := &pgx.Batch{}
		for _, m := range metrics {
			batch.Queue(upsertMetric, upsertArgs(m)...)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
}

func scanMetric(row pgx.Row) (model.Metric, error) {
	var (
		m   model.Metric
		typ string
	)
	if err := row.Scan(&m.Name, &typ, &m.Value, &m.Environment, &m.Zone, &m.AZ, &m.Timestamp); err != nil {
		return model.Metric{}, err
	}
	m.MetricType = model.MetricType(typ)
	m.Kind = model.KindMetric
	return m, nil
}

func (store *PostgresStorage) Get(ctx context.Context, name string) (model.Metric, error) {
	var m model.Metric
	err := utils.WithRetry(ctx, func() error {
		var err error
		m, err = scanMetric(store.db.QueryRow(ctx, selectColumns+` WHERE name = $1`, name))
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Metric{}, storage.ErrMetricNotFound
	}
	if err != nil {
		return model.Metric{}, fmt.Errorf("get %s: %w", name, err)
	}
	return m, nil
}

func (store *PostgresStorage) GetAll(ctx context.Context) (map[string]model.Metric, error) {
	result := make(map[string]model.Metric)
	err := utils.WithRetry(ctx, func() error {
		rows, err := store.db.Query(ctx, selectColumns)
		if err != nil {
			return err
		}
		defer rows.Close()

		clear(result)
		for rows.Next() {
			m, err := scanMetric(rows)
			if err != nil {
				return err
			}
			result[m.Name] = m
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("get all: %w", err)
	}
	return result, nil
}

func (store *PostgresStorage) Ping(ctx context.Context) error {
	return store.db.Ping(ctx)
}

func (store *PostgresStorage) Close() {
	store.db.Close()
}
