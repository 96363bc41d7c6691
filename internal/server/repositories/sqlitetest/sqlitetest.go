// Package sqlitetest opens migrated in-memory SQLite databases for tests.
package sqlitetest

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/valutx/internal/server/migrations"
)

var seq atomic.Int64

// Open returns a fresh, fully migrated database private to t.
func Open(t testing.TB) *sql.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&_pragma=foreign_keys(1)", name, seq.Add(1))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	sub, err := fs.Sub(migrations.FS, migrations.SQLiteDir)
	if err != nil {
		t.Fatalf("migrations fs: %v", err)
	}
	p, err := goose.NewProvider(goose.DialectSQLite3, db, sub)
	if err != nil {
		t.Fatalf("goose provider: %v", err)
	}
	if _, err := p.Up(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
