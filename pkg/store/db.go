package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"

	"github.com/Bharath-S-J/Intent-Chat/config"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

type Store struct {
	DB *sql.DB
	// RDB is nil when the Redis relay is disabled.
	RDB    *redis.Client
	logger *slog.Logger
}

// New wraps an already opened database. Tests use it with their own pool.
func New(db *sql.DB, rdb *redis.Client, logger *slog.Logger) *Store {
	return &Store{DB: db, RDB: rdb, logger: logger}
}

func NewStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	var db *sql.DB
	var err error

	pgConnStr := cfg.Database.URL
	logger.Info("Initializing store", "redis_enabled", cfg.Redis.URL != "")

	// Retry Postgres connection 5 times
	for i := 0; i < 5; i++ {
		db, err = sql.Open("postgres", pgConnStr)
		if err == nil {
			err = db.PingContext(ctx)
			if err == nil {
				logger.Info("PostgreSQL connection successful", "attempt", i+1)
				break
			}
		}
		logger.Warn("Waiting for PostgreSQL...", "attempt", i+1, "max_attempts", 5, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL", "error", err)
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxIdleTime(cfg.Database.MaxIdleTime)

	logger.Debug("PostgreSQL connection pool configured",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
		"conn_max_idle_time", cfg.Database.MaxIdleTime)

	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		rdb, err = InitRedis(ctx, cfg.Redis, logger)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	logger.Info("Store connections established")
	return New(db, rdb, logger), nil
}

func (s *Store) InitSchema(ctx context.Context) error {
	s.logger.Info("Initializing database schema")

	schema := `
		CREATE EXTENSION IF NOT EXISTS "pgcrypto";

		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			email VARCHAR(255) UNIQUE NOT NULL,
			full_name VARCHAR(100) NOT NULL,
			profile_pic TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		-- One row per direction; message_count is NULL once is_friend is set.
		CREATE TABLE IF NOT EXISTS contacts (
			user_id UUID REFERENCES users(id) ON DELETE CASCADE,
			contact_id UUID REFERENCES users(id) ON DELETE CASCADE,
			is_friend BOOLEAN NOT NULL DEFAULT FALSE,
			message_count INTEGER DEFAULT 0 CHECK (message_count >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, contact_id)
		);

		CREATE INDEX IF NOT EXISTS idx_contacts_contact_id ON contacts(contact_id);

		CREATE TABLE IF NOT EXISTS messages (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			sender_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			receiver_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			text TEXT NOT NULL DEFAULT '',
			image TEXT NOT NULL DEFAULT '',
			tone VARCHAR(16),
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_messages_pair_created_at ON messages(sender_id, receiver_id, created_at);
	`

	if _, err := s.DB.ExecContext(ctx, schema); err != nil {
		s.logger.Error("Failed to initialize schema", "error", err)
		return fmt.Errorf("init schema: %w", err)
	}

	s.logger.Info("Database schema initialized successfully")
	return nil
}

func (s *Store) Close() error {
	s.logger.Info("Closing store connections")

	var errs []error

	if err := s.DB.Close(); err != nil {
		s.logger.Error("Failed to close PostgreSQL connection", "error", err)
		errs = append(errs, fmt.Errorf("postgres close error: %w", err))
	}

	if s.RDB != nil {
		if err := s.RDB.Close(); err != nil {
			s.logger.Error("Failed to close Redis connection", "error", err)
			errs = append(errs, fmt.Errorf("redis close error: %w", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	s.logger.Info("Store connections closed successfully")
	return nil
}

// withTx runs fn inside a transaction, committing only when fn succeeds.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
