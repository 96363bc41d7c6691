package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/valutx/internal/server/models"
	"github.com/dmitrijs2005/valutx/internal/server/repositories/sqlitetest"
)

func TestSQLiteCreateAndList_NewestFirst(t *testing.T) {
	db := sqlitetest.Open(t)
	for _, id := range []string{"u1", "u2"} {
		_, err := db.Exec(`INSERT INTO users (id, email, auth_verifier, kdf_salt, wrapped_dek, created_at) VALUES (?, ?, 'v', 's', 'd', 0)`, id, id+"@x")
		require.NoError(t, err)
	}
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	events := []*models.AuditEvent{
		{ID: "a", UserID: "u1", EventType: models.EventSignup, Severity: models.SeverityInfo, Timestamp: base},
		{ID: "b", UserID: "u1", EventType: models.EventLogin, Severity: models.SeverityInfo, Timestamp: base.Add(time.Minute), IPAddress: "1.2.3.4", UserAgent: "ua"},
		{ID: "c", UserID: "u2", EventType: models.EventLogin, Severity: models.SeverityInfo, Timestamp: base.Add(2 * time.Minute)},
		{ID: "d", UserID: "u1", EventType: models.EventItemDelete, Severity: models.SeverityWarning, Details: "x", Timestamp: base.Add(3 * time.Minute)},
	}
	for _, e := range events {
		require.NoError(t, repo.Create(ctx, e))
	}

	got, err := repo.ListByUser(ctx, "u1", models.Page{Limit: 50})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"d", "b", "a"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, events[1], got[1])

	page, err := repo.ListByUser(ctx, "u1", models.Page{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b", page[0].ID)
}
