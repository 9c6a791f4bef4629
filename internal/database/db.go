package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"offerdesk/internal/config"
)

const pingTimeout = 5 * time.Second

// DB is the local store behind the session slot
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Initialize opens a sqlite store at dbPath
func Initialize(dbPath string) (*DB, error) {
	return open(NewSQLiteDialect(), DialectConfig{Path: dbPath})
}

// InitializeWithConfig opens the store selected by DB_TYPE
func InitializeWithConfig(cfg *config.Config) (*DB, error) {
	dialect, err := dialectFor(cfg.DatabaseType)
	if err != nil {
		return nil, err
	}
	return open(dialect, DialectConfig{Path: cfg.DatabasePath, URL: cfg.DatabaseURL})
}

func dialectFor(dbType string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(dbType)) {
	case "", "sqlite", "sqlite3":
		return NewSQLiteDialect(), nil
	case "postgres", "postgresql":
		return NewPostgresDialect(), nil
	case "mysql":
		return NewMySQLDialect(), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
}

func open(dialect Dialect, dialectConfig DialectConfig) (*DB, error) {
	dsn := dialect.DSN(dialectConfig)
	if dsn == "" {
		return nil, fmt.Errorf("no connection string for %s", dialect.Name())
	}

	conn, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect.Name(), err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to reach %s database: %w", dialect.Name(), err)
	}

	if err := dialect.Configure(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to configure %s connection: %w", dialect.Name(), err)
	}

	return &DB{DB: conn, Dialect: dialect}, nil
}

// QueryRowContext rebinds placeholders for the active dialect
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return db.DB.QueryRowContext(ctx, db.Dialect.Rebind(query), args...)
}

// ExecContext rebinds placeholders for the active dialect
func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return db.DB.ExecContext(ctx, db.Dialect.Rebind(query), args...)
}
