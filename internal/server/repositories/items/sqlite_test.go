package items

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/valutx/internal/common"
	"github.com/dmitrijs2005/valutx/internal/server/models"
	"github.com/dmitrijs2005/valutx/internal/server/repositories/sqlitetest"
)

var t0 = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newSQLiteRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db := sqlitetest.Open(t)
	for _, id := range []string{"owner", "other"} {
		_, err := db.Exec(`INSERT INTO users (id, email, auth_verifier, kdf_salt, wrapped_dek, created_at) VALUES (?, ?, 'v', 's', 'd', 0)`,
			id, id+"@example.com")
		require.NoError(t, err)
	}
	return NewSQLiteRepository(db)
}

// seedAtVersion creates an item and bumps it to the wanted version.
func seedAtVersion(t *testing.T, repo *SQLiteRepository, version int64) *models.Item {
	t.Helper()
	ctx := context.Background()
	it, err := repo.Create(ctx, &models.Item{
		ID: "item-1", UserID: "owner", Type: "login", Ciphertext: "ct-1", IV: "iv-1", AuthTag: "tag-1", CreatedAt: t0,
	})
	require.NoError(t, err)
	for it.Version < version {
		it, err = repo.UpdateIfVersionMatches(ctx, "owner", it.ID, &it.Version, models.ItemPatch{}, t0.Add(time.Duration(it.Version)*time.Minute))
		require.NoError(t, err)
	}
	return it
}

func TestSQLiteCreateGetList(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	it := seedAtVersion(t, repo, 1)
	assert.Equal(t, int64(1), it.Version)
	assert.Equal(t, t0, it.CreatedAt)
	assert.Equal(t, t0, it.LastModified)

	got, err := repo.Get(ctx, "owner", it.ID)
	require.NoError(t, err)
	assert.Equal(t, it, got)

	_, err = repo.Create(ctx, &models.Item{ID: "item-2", UserID: "owner", Type: "note", Ciphertext: "c", IV: "i", CreatedAt: t0.Add(time.Second)})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &models.Item{ID: "item-x", UserID: "other", Type: "note", Ciphertext: "c", IV: "i", CreatedAt: t0})
	require.NoError(t, err)

	list, err := repo.List(ctx, "owner", models.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "item-1", list[0].ID)
	assert.Equal(t, "item-2", list[1].ID)

	page, err := repo.List(ctx, "owner", models.Page{Offset: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "item-2", page[0].ID)
}

func TestSQLiteCreate_DuplicateID(t *testing.T) {
	repo := newSQLiteRepo(t)
	seedAtVersion(t, repo, 1)

	_, err := repo.Create(context.Background(), &models.Item{ID: "item-1", UserID: "owner", Type: "t", Ciphertext: "c", IV: "i", CreatedAt: t0})
	require.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestSQLiteUpdate_StaleBaseIsConflictAndUnchanged(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()
	before := seedAtVersion(t, repo, 3)

	_, err := repo.UpdateIfVersionMatches(ctx, "owner", before.ID, i64ptr(2),
		models.ItemPatch{Ciphertext: strptr("clobber")}, t0.Add(time.Hour))
	require.ErrorIs(t, err, common.ErrVersionConflict)

	after, err := repo.Get(ctx, "owner", before.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSQLiteUpdate_MatchingBaseBumpsVersion(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()
	before := seedAtVersion(t, repo, 3)
	now := t0.Add(time.Hour)

	got, err := repo.UpdateIfVersionMatches(ctx, "owner", before.ID, i64ptr(3),
		models.ItemPatch{Ciphertext: strptr("ct-2"), IV: strptr("iv-2")}, now)
	require.NoError(t, err)

	assert.Equal(t, int64(4), got.Version)
	assert.Equal(t, now, got.LastModified)
	assert.Equal(t, "ct-2", got.Ciphertext)
	assert.Equal(t, "iv-2", got.IV)
	assert.Equal(t, before.Type, got.Type, "unsupplied fields are kept")
	assert.Equal(t, before.AuthTag, got.AuthTag)
	assert.Equal(t, before.CreatedAt, got.CreatedAt)
}

func TestSQLiteUpdate_NoBaseIsPermissive(t *testing.T) {
	repo := newSQLiteRepo(t)
	before := seedAtVersion(t, repo, 2)

	got, err := repo.UpdateIfVersionMatches(context.Background(), "owner", before.ID, nil,
		models.ItemPatch{Type: strptr("card")}, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Version)
	assert.Equal(t, "card", got.Type)
}

func TestSQLiteUpdate_EmptyPatchStillBumps(t *testing.T) {
	repo := newSQLiteRepo(t)
	before := seedAtVersion(t, repo, 1)

	got, err := repo.UpdateIfVersionMatches(context.Background(), "owner", before.ID, i64ptr(1), models.ItemPatch{}, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
}

func TestSQLite_OwnershipIsolation(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()
	it := seedAtVersion(t, repo, 1)

	_, errGetForeign := repo.Get(ctx, "other", it.ID)
	_, errGetMissing := repo.Get(ctx, "other", "no-such-item")
	require.ErrorIs(t, errGetForeign, common.ErrorNotFound)
	assert.Equal(t, errGetMissing, errGetForeign)

	_, errUpdForeign := repo.UpdateIfVersionMatches(ctx, "other", it.ID, i64ptr(1), models.ItemPatch{}, t0)
	_, errUpdMissing := repo.UpdateIfVersionMatches(ctx, "other", "no-such-item", i64ptr(1), models.ItemPatch{}, t0)
	require.ErrorIs(t, errUpdForeign, common.ErrorNotFound)
	assert.Equal(t, errUpdMissing, errUpdForeign)

	errDelForeign := repo.Delete(ctx, "other", it.ID)
	errDelMissing := repo.Delete(ctx, "other", "no-such-item")
	require.ErrorIs(t, errDelForeign, common.ErrorNotFound)
	assert.Equal(t, errDelMissing, errDelForeign)

	still, err := repo.Get(ctx, "owner", it.ID)
	require.NoError(t, err)
	assert.Equal(t, it, still)
}

func TestSQLiteDelete(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()
	it := seedAtVersion(t, repo, 1)

	require.NoError(t, repo.Delete(ctx, "owner", it.ID))
	_, err := repo.Get(ctx, "owner", it.ID)
	require.ErrorIs(t, err, common.ErrorNotFound)
	require.ErrorIs(t, repo.Delete(ctx, "owner", it.ID), common.ErrorNotFound)
}

func TestSQLiteUpdate_ConcurrentSameBaseOneWins(t *testing.T) {
	repo := newSQLiteRepo(t)
	before := seedAtVersion(t, repo, 5)

	const writers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		wins    []*models.Item
		clashes int
		other   []error
	)
	for n := 0; n < writers; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := repo.UpdateIfVersionMatches(context.Background(), "owner", before.ID, i64ptr(5),
				models.ItemPatch{Ciphertext: strptr("writer")}, t0.Add(time.Hour))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins = append(wins, got)
			case errors.Is(err, common.ErrVersionConflict):
				clashes++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, other)
	require.Len(t, wins, 1)
	assert.Equal(t, int64(6), wins[0].Version)
	assert.Equal(t, writers-1, clashes)
}

func TestSQLiteDelete_CascadesWithOwner(t *testing.T) {
	db := sqlitetest.Open(t)
	_, err := db.Exec(`INSERT INTO users (id, email, auth_verifier, kdf_salt, wrapped_dek, created_at) VALUES ('owner', 'o@example.com', 'v', 's', 'd', 0)`)
	require.NoError(t, err)
	repo := NewSQLiteRepository(db)
	_, err = repo.Create(context.Background(), &models.Item{ID: "x", UserID: "owner", Type: "t", Ciphertext: "c", IV: "i", CreatedAt: t0})
	require.NoError(t, err)

	_, err = db.Exec(`DELETE FROM users WHERE id = 'owner'`)
	require.NoError(t, err)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM vault_items`).Scan(&n))
	assert.Zero(t, n)
}
