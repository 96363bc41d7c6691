// Package items stores encrypted vault records with optimistic versioning.
package items

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/valutx/internal/server/models"
)

// Repository filters every single-item query by owner, so another user's
// item is indistinguishable from a missing one (common.ErrorNotFound).
type Repository interface {
	Create(ctx context.Context, item *models.Item) (*models.Item, error)
	Get(ctx context.Context, userID, itemID string) (*models.Item, error)
	List(ctx context.Context, userID string, page models.Page) ([]*models.Item, error)
	// UpdateIfVersionMatches applies patch and bumps version by one when the
	// stored version equals baseVersion (or baseVersion is nil). A version
	// mismatch returns common.ErrVersionConflict and changes nothing.
	UpdateIfVersionMatches(ctx context.Context, userID, itemID string, baseVersion *int64, patch models.ItemPatch, now time.Time) (*models.Item, error)
	Delete(ctx context.Context, userID, itemID string) error
}

type scanner interface {
	Scan(dest ...any) error
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
