package database

import (
	"database/sql"
	"strconv"
	"strings"
	"time"
)

// Dialect hides the SQL differences between sqlite, postgres and mysql
type Dialect interface {
	Name() string
	DriverName() string
	DSN(config DialectConfig) string

	// Rebind converts ? placeholders to the driver's bind syntax
	Rebind(query string) string

	Configure(db *sql.DB) error
	MigrationsSubdir() string
	MigrationsTableDDL() string

	// UpsertState writes one app_state row; args are key, value
	UpsertState() string
}

// DialectConfig locates the database: a file path for sqlite, a URL otherwise
type DialectConfig struct {
	Path string
	URL  string
}

// limitPool sizes the pool for a store that holds a handful of rows
func limitPool(db *sql.DB) {
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(time.Minute)
}

// numberPlaceholders turns ? into $1, $2, ... outside single-quoted literals
func numberPlaceholders(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	quoted := false
	for _, r := range query {
		switch {
		case r == '\'':
			quoted = !quoted
		case r == '?' && !quoted:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
