package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/config"
)

const snapshotTableDDL = `
CREATE TABLE IF NOT EXISTS bot_snapshots (
    id INT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
    data JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresStore keeps the snapshot as a single JSONB row.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore establishes a connection pool and ensures the snapshot
// table exists.
func NewPostgresStore(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, errors.New("POSTGRES_DSN is required for the postgres backend")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxIdleSec > 0 {
		poolCfg.MaxConnIdleTime = time.Duration(cfg.ConnMaxIdleSec) * time.Second
	}
	if cfg.ConnMaxLifeSec > 0 {
		poolCfg.MaxConnLifetime = time.Duration(cfg.ConnMaxLifeSec) * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, snapshotTableDDL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure snapshot table: %w", err)
	}

	logger.Info("connected to postgres")
	return &PostgresStore{pool: pool, logger: logger}, nil
}

// Load reads the snapshot row. An absent or malformed row yields an empty
// snapshot.
func (s *PostgresStore) Load(ctx context.Context) (*Snapshot, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM bot_snapshots WHERE id = 1`).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return EmptySnapshot(), nil
	}
	if err != nil {
		return EmptySnapshot(), fmt.Errorf("read snapshot row: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		s.logger.Warn("snapshot row malformed, starting empty", zap.Error(err))
		return EmptySnapshot(), nil
	}
	snapshot.normalize()
	return &snapshot, nil
}

// Save upserts the snapshot row.
func (s *PostgresStore) Save(ctx context.Context, snapshot *Snapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	const query = `
        INSERT INTO bot_snapshots (id, data, updated_at) VALUES (1, $1, NOW())
        ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`
	if _, err := s.pool.Exec(ctx, query, raw); err != nil {
		return fmt.Errorf("write snapshot row: %w", err)
	}
	return nil
}

// Close releases pool resources.
func (s *PostgresStore) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}
