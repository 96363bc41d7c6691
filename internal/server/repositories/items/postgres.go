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

const pgItemColumns = `id, user_id, type, ciphertext, iv, auth_tag, version, created_at, last_modified`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, item *models.Item) (*models.Item, error) {
	query :=
		`INSERT INTO vault_items (id, user_id, type, ciphertext, iv, auth_tag, version, created_at, last_modified)
		 VALUES ($1, $2, $3, $4, $5, $6, 1, $7, $7)
		 RETURNING ` + pgItemColumns

	got, err := scanPostgres(r.db.QueryRowContext(ctx, query,
		item.ID, item.UserID, item.Type, item.Ciphertext, item.IV, item.AuthTag, item.CreatedAt))
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return got, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID, itemID string) (*models.Item, error) {
	query := `SELECT ` + pgItemColumns + ` FROM vault_items WHERE id = $1 AND user_id = $2`

	item, err := scanPostgres(r.db.QueryRowContext(ctx, query, itemID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return item, nil
}

func (r *PostgresRepository) List(ctx context.Context, userID string, page models.Page) ([]*models.Item, error) {
	query :=
		`SELECT ` + pgItemColumns + ` FROM vault_items
		 WHERE user_id = $1
		 ORDER BY created_at, id
		 LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, userID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to select items: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Item, 0)
	for rows.Next() {
		item, err := scanPostgres(rows)
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

func (r *PostgresRepository) UpdateIfVersionMatches(ctx context.Context, userID, itemID string, baseVersion *int64, patch models.ItemPatch, now time.Time) (*models.Item, error) {
	query :=
		`UPDATE vault_items SET
			type = COALESCE($3, type),
			ciphertext = COALESCE($4, ciphertext),
			iv = COALESCE($5, iv),
			auth_tag = COALESCE($6, auth_tag),
			version = version + 1,
			last_modified = $7
		 WHERE id = $1 AND user_id = $2 AND ($8::bigint IS NULL OR version = $8)
		 RETURNING ` + pgItemColumns

	item, err := scanPostgres(r.db.QueryRowContext(ctx, query,
		itemID, userID,
		nullString(patch.Type), nullString(patch.Ciphertext), nullString(patch.IV), nullString(patch.AuthTag),
		now, nullInt64(baseVersion)))
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("db error: %w", err)
	}

	exists, err := r.exists(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, common.ErrVersionConflict
	}
	return nil, common.ErrorNotFound
}

func (r *PostgresRepository) exists(ctx context.Context, userID, itemID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM vault_items WHERE id = $1 AND user_id = $2`, itemID, userID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("db error: %w", err)
	}
	return true, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, itemID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM vault_items WHERE id = $1 AND user_id = $2`, itemID, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func scanPostgres(row scanner) (*models.Item, error) {
	it := &models.Item{}
	if err := row.Scan(&it.ID, &it.UserID, &it.Type, &it.Ciphertext, &it.IV, &it.AuthTag,
		&it.Version, &it.CreatedAt, &it.LastModified); err != nil {
		return nil, err
	}
	it.CreatedAt = it.CreatedAt.UTC()
	it.LastModified = it.LastModified.UTC()
	return it, nil
}
