// Package db stores the history of aircraft seen overhead in PostgreSQL.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/unklstewy/overhead/pkg/config"
)

//go:embed schema.sql
var schemaSQL embed.FS

// DB wraps a database connection with helper methods.
type DB struct {
	*sql.DB
	config config.DatabaseConfig
}

// Connect establishes a connection to the PostgreSQL database.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	sqlDB, err := sql.Open("postgres", connString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// Test connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{
		DB:     sqlDB,
		config: cfg,
	}, nil
}

// connString builds a lib/pq keyword/value connection string.
func connString(cfg config.DatabaseConfig) string {
	s := fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, quoteValue(cfg.Username), quoteValue(cfg.Database), cfg.SSLMode)
	if cfg.Password != "" {
		s += " password=" + quoteValue(cfg.Password)
	}
	return s
}

// quoteValue quotes a connection string value when it contains spaces,
// quotes or backslashes.
func quoteValue(v string) string {
	needs := v == ""
	for _, c := range v {
		if c == ' ' || c == '\'' || c == '\\' {
			needs = true
			break
		}
	}
	if !needs {
		return v
	}
	out := make([]rune, 0, len(v)+2)
	out = append(out, '\'')
	for _, c := range v {
		if c == '\'' || c == '\\' {
			out = append(out, '\\')
		}
		out = append(out, c)
	}
	return string(append(out, '\''))
}

// InitSchema creates the database schema if it does not exist.
// This should be called once at application startup.
func (db *DB) InitSchema(ctx context.Context) error {
	schemaBytes, err := schemaSQL.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}

	if _, err := db.ExecContext(ctx, string(schemaBytes)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// CleanupOldData removes poll cycles (and their sightings) older than maxAge,
// and aircraft not seen since then.
func (db *DB) CleanupOldData(ctx context.Context, maxAge time.Duration) error {
	cutoff := time.Now().UTC().Add(-maxAge)

	if _, err := db.ExecContext(ctx, `DELETE FROM poll_cycles WHERE taken_at < $1`, cutoff); err != nil {
		return fmt.Errorf("failed to delete old cycles: %w", err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM aircraft WHERE last_seen < $1`, cutoff); err != nil {
		return fmt.Errorf("failed to delete old aircraft: %w", err)
	}

	return nil
}

// GetStats returns database statistics.
func (db *DB) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	queries := []struct {
		key   string
		query string
	}{
		{"poll_cycles", `SELECT COUNT(*) FROM poll_cycles`},
		{"sightings", `SELECT COUNT(*) FROM sightings`},
		{"distinct_aircraft", `SELECT COUNT(*) FROM aircraft`},
	}
	for _, q := range queries {
		var n int64
		if err := db.QueryRowContext(ctx, q.query).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", q.key, err)
		}
		stats[q.key] = n
	}

	return stats, nil
}
