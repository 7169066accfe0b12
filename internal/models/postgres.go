package models

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/tatianab/storyworld/internal/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresStore keeps save files as yaml documents in the saves table.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// NewPostgresStore connects, verifies the connection and applies pending
// migrations.
func NewPostgresStore(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info("save store ready", zap.String("driver", "postgres"))
	return &PostgresStore{pool: pool, log: log}, nil
}

func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Save(ctx context.Context, slot string, sf *SaveFile) error {
	data, err := yaml.Marshal(sf)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO saves (slot, version, data, saved_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (slot) DO UPDATE
		 SET version = EXCLUDED.version, data = EXCLUDED.data, saved_at = EXCLUDED.saved_at`,
		slot, sf.Version, string(data),
	)
	return err
}

func (s *PostgresStore) Load(ctx context.Context, slot string) (*SaveFile, error) {
	var data string
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM saves WHERE slot = $1`, slot,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("load %s: %w", slot, ErrNoSave)
	}
	if err != nil {
		return nil, err
	}
	return ParseWorld([]byte(data))
}

func (s *PostgresStore) List(ctx context.Context) ([]SaveInfo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT slot, version, saved_at FROM saves ORDER BY saved_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var saves []SaveInfo
	for rows.Next() {
		var info SaveInfo
		if err := rows.Scan(&info.Slot, &info.Version, &info.SavedAt); err != nil {
			return nil, err
		}
		saves = append(saves, info)
	}
	return saves, rows.Err()
}
