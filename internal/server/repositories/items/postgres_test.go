package items

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/valutx/internal/common"
	"github.com/dmitrijs2005/valutx/internal/server/models"
)

var itemCols = []string{"id", "user_id", "type", "ciphertext", "iv", "auth_tag", "version", "created_at", "last_modified"}

const updateSQL = `(?s)^UPDATE\s+vault_items\s+SET.*version\s*=\s*version\s*\+\s*1.*WHERE\s+id\s*=\s*\$1\s+AND\s+user_id\s*=\s*\$2\s+AND\s+\(\$8::bigint\s+IS\s+NULL\s+OR\s+version\s*=\s*\$8\)\s+RETURNING`

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func strptr(s string) *string { return &s }
func i64ptr(v int64) *int64   { return &v }

func TestPostgresCreate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	ts := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+vault_items.*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6,\s*1,\s*\$7,\s*\$7\)`).
		WithArgs("i1", "u1", "login", "ct", "iv", "tag", ts).
		WillReturnRows(sqlmock.NewRows(itemCols).AddRow("i1", "u1", "login", "ct", "iv", "tag", int64(1), ts, ts))

	got, err := repo.Create(context.Background(), &models.Item{
		ID: "i1", UserID: "u1", Type: "login", Ciphertext: "ct", IV: "iv", AuthTag: "tag", CreatedAt: ts,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, ts, got.LastModified)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGet_OwnerScoped(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+vault_items\s+WHERE\s+id\s*=\s*\$1\s+AND\s+user_id\s*=\s*\$2`).
		WithArgs("i1", "intruder").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "intruder", "i1")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestPostgresList(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	ts := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`(?s)WHERE\s+user_id\s*=\s*\$1\s+ORDER\s+BY\s+created_at,\s*id\s+LIMIT\s+\$2\s+OFFSET\s+\$3`).
		WithArgs("u1", 10, 20).
		WillReturnRows(sqlmock.NewRows(itemCols).
			AddRow("a", "u1", "login", "c1", "v1", "", int64(1), ts, ts).
			AddRow("b", "u1", "note", "c2", "v2", "t", int64(3), ts, ts))

	got, err := repo.List(context.Background(), "u1", models.Page{Offset: 20, Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, int64(3), got[1].Version)
}

func TestPostgresList_Empty(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+vault_items`).WillReturnRows(sqlmock.NewRows(itemCols))

	got, err := repo.List(context.Background(), "u1", models.Page{Limit: 10})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestPostgresUpdate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	now := created.Add(time.Hour)

	mock.ExpectQuery(updateSQL).
		WithArgs("i1", "u1",
			sql.NullString{}, sql.NullString{String: "new-ct", Valid: true}, sql.NullString{String: "new-iv", Valid: true}, sql.NullString{},
			now, sql.NullInt64{Int64: 3, Valid: true}).
		WillReturnRows(sqlmock.NewRows(itemCols).AddRow("i1", "u1", "login", "new-ct", "new-iv", "tag", int64(4), created, now))

	got, err := repo.UpdateIfVersionMatches(context.Background(), "u1", "i1", i64ptr(3),
		models.ItemPatch{Ciphertext: strptr("new-ct"), IV: strptr("new-iv")}, now)
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.Version)
	assert.Equal(t, now, got.LastModified)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdate_ZeroRowsClassified(t *testing.T) {
	tests := []struct {
		name   string
		exists bool
		want   error
	}{
		{name: "stale version", exists: true, want: common.ErrVersionConflict},
		{name: "absent or foreign", exists: false, want: common.ErrorNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()

			mock.ExpectQuery(updateSQL).WillReturnError(sql.ErrNoRows)
			probe := mock.ExpectQuery(`SELECT\s+1\s+FROM\s+vault_items\s+WHERE\s+id\s*=\s*\$1\s+AND\s+user_id\s*=\s*\$2`).
				WithArgs("i1", "u1")
			if tt.exists {
				probe.WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
			} else {
				probe.WillReturnError(sql.ErrNoRows)
			}

			_, err := repo.UpdateIfVersionMatches(context.Background(), "u1", "i1", i64ptr(2), models.ItemPatch{}, time.Now())
			require.ErrorIs(t, err, tt.want)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresUpdate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(updateSQL).WillReturnError(errors.New("db is down"))

	_, err := repo.UpdateIfVersionMatches(context.Background(), "u1", "i1", nil, models.ItemPatch{}, time.Now())
	if err == nil || !regexp.MustCompile(`db error: .*db is down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestPostgresDelete(t *testing.T) {
	tests := []struct {
		name    string
		result  sql.Result
		execErr error
		check   func(t *testing.T, err error)
	}{
		{
			name:   "deleted",
			result: sqlmock.NewResult(0, 1),
			check:  func(t *testing.T, err error) { require.NoError(t, err) },
		},
		{
			name:   "not found",
			result: sqlmock.NewResult(0, 0),
			check:  func(t *testing.T, err error) { require.ErrorIs(t, err, common.ErrorNotFound) },
		},
		{
			name:   "rows affected error",
			result: sqlmock.NewErrorResult(errors.New("rows-err")),
			check: func(t *testing.T, err error) {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "rows affected error")
			},
		},
		{
			name:   "unexpected count",
			result: sqlmock.NewResult(0, 2),
			check: func(t *testing.T, err error) {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unexpected rows affected")
			},
		},
		{
			name:    "exec error",
			execErr: errors.New("boom"),
			check: func(t *testing.T, err error) {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "db error")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()

			exp := mock.ExpectExec(`DELETE\s+FROM\s+vault_items\s+WHERE\s+id\s*=\s*\$1\s+AND\s+user_id\s*=\s*\$2`).WithArgs("i1", "u1")
			if tt.execErr != nil {
				exp.WillReturnError(tt.execErr)
			} else {
				exp.WillReturnResult(tt.result)
			}

			tt.check(t, repo.Delete(context.Background(), "u1", "i1"))
		})
	}
}
