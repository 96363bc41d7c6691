// Package audit persists append-only security events.
package audit

import (
	"context"

	"github.com/dmitrijs2005/valutx/internal/server/models"
)

// Repository only appends and reads; events are never updated.
type Repository interface {
	Create(ctx context.Context, event *models.AuditEvent) error
	// ListByUser returns the user's events newest first.
	ListByUser(ctx context.Context, userID string, page models.Page) ([]*models.AuditEvent, error)
}
