package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

var ErrUnsupportedDSN = errors.New("unsupported database dsn")

// sqlitePragmas are appended to every SQLite DSN.
const sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// ParseDSN resolves a configured DSN into a database/sql driver name and
// data source. postgres:// and postgresql:// select pgx; sqlite://path and
// file: URIs select modernc SQLite.
func ParseDSN(dsn string) (driver, source string, err error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "pgx", dsn, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		path := strings.TrimPrefix(dsn, "sqlite://")
		if path == "" {
			return "", "", fmt.Errorf("%w: empty sqlite path", ErrUnsupportedDSN)
		}
		return "sqlite", withPragmas("file:" + path), nil
	case strings.HasPrefix(dsn, "file:"):
		return "sqlite", withPragmas(dsn), nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedDSN, redact(dsn))
	}
}

func withPragmas(source string) string {
	if strings.Contains(source, "?") {
		return source + "&" + sqlitePragmas
	}
	return source + "?" + sqlitePragmas
}

// redact drops anything that may carry credentials.
func redact(dsn string) string {
	if i := strings.Index(dsn, "://"); i >= 0 {
		return dsn[:i+3] + "..."
	}
	return "..."
}

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

// Open connects to dsn, verifies the connection and returns the matching
// manager. SQLite is limited to a single connection, which serialises
// writers.
func Open(ctx context.Context, dsn string) (*sql.DB, RepositoryManager, error) {
	driver, source, err := ParseDSN(dsn)
	if err != nil {
		return nil, nil, err
	}

	db, err := sqlOpen(driver, source)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s db: %w", driver, err)
	}

	var m RepositoryManager
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
		m = NewSQLiteRepositoryManager()
	} else {
		m = NewPostgresRepositoryManager()
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping %s db: %w", driver, err)
	}
	return db, m, nil
}
