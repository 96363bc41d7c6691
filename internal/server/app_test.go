package server

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/valutx/internal/server/config"
	"github.com/dmitrijs2005/valutx/internal/server/repositories/repomanager"
)

// failingMigrations is a RepositoryManager whose migrations always fail.
type failingMigrations struct {
	repomanager.RepositoryManager
}

func (failingMigrations) RunMigrations(context.Context, *sql.DB) error {
	return errors.New("migrations failed")
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.LoadDefaults()
	c.DatabaseDSN = "sqlite://" + filepath.Join(t.TempDir(), "valutx.db")
	c.LogLevel = "error"
	return c
}

// stubTelemetry replaces setupTelemetry and counts shutdown calls.
func stubTelemetry(t *testing.T) *int {
	t.Helper()
	calls := 0
	orig := setupTelemetry
	setupTelemetry = func(context.Context, string, string) (func(context.Context) error, error) {
		return func(context.Context) error { calls++; return nil }, nil
	}
	t.Cleanup(func() { setupTelemetry = orig })
	return &calls
}

func stubOpenDatabase(t *testing.T, fn func(context.Context, string) (*sql.DB, repomanager.RepositoryManager, error)) {
	t.Helper()
	orig := openDatabase
	openDatabase = fn
	t.Cleanup(func() { openDatabase = orig })
}

func TestNewApp_OpenFailureShutsDownTelemetry(t *testing.T) {
	calls := stubTelemetry(t)
	stubOpenDatabase(t, func(context.Context, string) (*sql.DB, repomanager.RepositoryManager, error) {
		return nil, nil, errors.New("dial failed")
	})

	app, err := NewApp(context.Background(), testConfig(t))
	require.Error(t, err)
	assert.Nil(t, app)
	assert.Equal(t, 1, *calls)
}

func TestNewApp_MigrationFailureClosesDBAndTelemetry(t *testing.T) {
	calls := stubTelemetry(t)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	stubOpenDatabase(t, func(context.Context, string) (*sql.DB, repomanager.RepositoryManager, error) {
		return db, failingMigrations{}, nil
	})

	app, err := NewApp(context.Background(), testConfig(t))
	require.ErrorContains(t, err, "migrations error")
	assert.Nil(t, app)
	assert.Equal(t, 1, *calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewApp_BadTrustedProxy(t *testing.T) {
	calls := stubTelemetry(t)
	c := testConfig(t)
	c.TrustedProxies = []string{"not-an-ip"}

	_, err := NewApp(context.Background(), c)
	require.ErrorContains(t, err, "trusted proxy")
	assert.Zero(t, *calls, "nothing is started for invalid config")
}

func TestNewApp_SQLite(t *testing.T) {
	calls := stubTelemetry(t)
	c := testConfig(t)
	c.TrustedProxies = []string{"10.0.0.0/8"}

	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)

	assert.True(t, app.trusted.Contains("10.1.2.3"))
	assert.NotNil(t, app.services.Auth)
	assert.NotNil(t, app.services.Items)
	assert.NotNil(t, app.services.Audit)
	assert.NotNil(t, app.services.Export)
	assert.Nil(t, app.redis)

	app.close(context.Background())
	assert.Equal(t, 1, *calls)
}
