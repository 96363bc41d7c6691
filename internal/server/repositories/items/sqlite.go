package items

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/valutx/internal/common"
	"github.com/dmitrijs2005/valutx/internal/dbx"
	"github.com/dmitrijs2005/valutx/internal/server/models"
)

const sqliteItemColumns = `id, user_id, type, ciphertext, iv, auth_tag, version, created_at, last_modified`

// SQLiteRepository keeps timestamps as INTEGER unix milliseconds.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, item *models.Item) (*models.Item, error) {
	query :=
		`INSERT INTO vault_items (id, user_id, type, ciphertext, iv, auth_tag, version, created_at, last_modified)
		 VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)
		 RETURNING ` + sqliteItemColumns

	ts := item.CreatedAt.UnixMilli()
	got, err := scanSQLite(r.db.QueryRowContext(ctx, query,
		item.ID, item.UserID, item.Type, item.Ciphertext, item.IV, item.AuthTag, ts, ts))
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return got, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, userID, itemID string) (*models.Item, error) {
	query := `SELECT ` + sqliteItemColumns + ` FROM vault_items WHERE id = ? AND user_id = ?`

	item, err := scanSQLite(r.db.QueryRowContext(ctx, query, itemID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return item, nil
}

func (r *SQLiteRepository) List(ctx context.Context, userID string, page models.Page) ([]*models.Item, error) {
	query :=
		`SELECT ` + sqliteItemColumns + ` FROM vault_items
		 WHERE user_id = ?
		 ORDER BY created_at, id
		 LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, userID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to select items: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Item, 0)
	for rows.Next() {
		item, err := scanSQLite(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) UpdateIfVersionMatches(ctx context.Context, userID, itemID string, baseVersion *int64, patch models.ItemPatch, now time.Time) (*models.Item, error) {
	query :=
		`UPDATE vault_items SET
			type = COALESCE(?, type),
			ciphertext = COALESCE(?, ciphertext),
			iv = COALESCE(?, iv),
			auth_tag = COALESCE(?, auth_tag),
			version = version + 1,
			last_modified = ?
		 WHERE id = ? AND user_id = ? AND (? IS NULL OR version = ?)
		 RETURNING ` + sqliteItemColumns

	base := nullInt64(baseVersion)
	item, err := scanSQLite(r.db.QueryRowContext(ctx, query,
		nullString(patch.Type), nullString(patch.Ciphertext), nullString(patch.IV), nullString(patch.AuthTag),
		now.UnixMilli(), itemID, userID, base, base))
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("db error: %w", err)
	}

	var one int
	err = r.db.QueryRowContext(ctx,
		`SELECT 1 FROM vault_items WHERE id = ? AND user_id = ?`, itemID, userID).Scan(&one)
	switch {
	case err == nil:
		return nil, common.ErrVersionConflict
	case errors.Is(err, sql.ErrNoRows):
		return nil, common.ErrorNotFound
	default:
		return nil, fmt.Errorf("db error: %w", err)
	}
}

func (r *SQLiteRepository) Delete(ctx context.Context, userID, itemID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM vault_items WHERE id = ? AND user_id = ?`, itemID, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func scanSQLite(row scanner) (*models.Item, error) {
	it := &models.Item{}
	var createdAt, lastModified int64
	if err := row.Scan(&it.ID, &it.UserID, &it.Type, &it.Ciphertext, &it.IV, &it.AuthTag,
		&it.Version, &createdAt, &lastModified); err != nil {
		return nil, err
	}
	it.CreatedAt = time.UnixMilli(createdAt).UTC()
	it.LastModified = time.UnixMilli(lastModified).UTC()
	return it, nil
}
