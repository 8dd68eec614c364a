// Package cache provides the on-device SQLite store that mirrors remote
// document-store contents, plus schema migration management.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file" // File source driver for migrations
	_ "github.com/mattn/go-sqlite3"                      // SQLite driver
	"go.uber.org/zap"

	"github.com/dkhoury/meetsync/internal/config"
)

// ErrNotCached signals that no cached row exists for the requested id.
var ErrNotCached = errors.New("entity not cached")

// DB wraps the SQLite cache database connection.
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB opens the cache database at the configured path.
func NewDB(cfg *config.CacheConfig, logger *zap.Logger) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", cfg.Path)

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// SQLite allows a single writer; serializing through one connection
	// avoids SQLITE_BUSY under concurrent repository calls.
	sqlDB.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping cache database: %w", err)
	}

	logger.Info("cache database opened", zap.String("path", cfg.Path))

	return &DB{
		DB:     sqlDB,
		logger: logger,
	}, nil
}

// Close closes the cache database connection.
func (db *DB) Close() error {
	db.logger.Info("closing cache database")
	return db.DB.Close()
}

// Health checks that the cache database is reachable.
func (db *DB) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("cache database health check failed: %w", err)
	}

	return nil
}

// RunMigrations runs schema migrations using the golang-migrate library.
func (db *DB) RunMigrations(migrationsPath string) error {
	db.logger.Info("running cache migrations", zap.String("path", migrationsPath))

	driver, err := migratesqlite.WithInstance(db.DB, &migratesqlite.Config{
		MigrationsTable: "schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver instance: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite3",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			db.logger.Info("cache schema is already up to date")
			return nil
		}
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		db.logger.Warn("failed to get migration version", zap.Error(err))
	} else {
		db.logger.Info("cache migrations completed",
			zap.Uint("version", version),
			zap.Bool("dirty", dirty),
		)
	}

	return nil
}

// Stats returns cached row counts per entity kind for diagnostics.
func (db *DB) Stats(ctx context.Context) (map[string]int64, error) {
	stats := make(map[string]int64)

	for _, table := range []string{"events_cache", "groups_cache", "series_cache"} {
		var count int64
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
		if err := db.QueryRowContext(ctx, query).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		stats[table] = count
	}

	return stats, nil
}

// SweepStale deletes cache rows that have not been mirrored since cutoff.
// The cache is a derivative mirror, so dropping old rows is always safe.
func (db *DB) SweepStale(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64

	for _, table := range []string{"events_cache", "groups_cache", "series_cache"} {
		query := fmt.Sprintf("DELETE FROM %s WHERE synced_at < ?", table)
		result, err := db.ExecContext(ctx, query, cutoff.UTC())
		if err != nil {
			return total, fmt.Errorf("failed to sweep %s: %w", table, err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("failed to get rows affected: %w", err)
		}
		total += affected
	}

	if total > 0 {
		db.logger.Info("swept stale cache rows", zap.Int64("count", total))
	}

	return total, nil
}

// StartSweepJob periodically removes rows older than retention until ctx is done.
func (db *DB) StartSweepJob(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			db.logger.Info("stopping cache sweep job")
			return
		case <-ticker.C:
			if _, err := db.SweepStale(ctx, time.Now().Add(-retention)); err != nil {
				db.logger.Error("cache sweep failed", zap.Error(err))
			}
		}
	}
}

// withTx runs fn inside a transaction, rolling back on error.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Warn("transaction rollback failed", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// marshalIDs encodes an identifier list as JSON for storage in a text column.
func marshalIDs(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("failed to encode id list: %w", err)
	}
	return string(data), nil
}

// unmarshalIDs decodes a JSON identifier list stored in a text column.
func unmarshalIDs(data string) ([]string, error) {
	var ids []string
	if err := json.Unmarshal([]byte(data), &ids); err != nil {
		return nil, fmt.Errorf("failed to decode id list: %w", err)
	}
	return ids, nil
}
