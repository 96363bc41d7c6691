package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/valutx/internal/logging"
	"github.com/dmitrijs2005/valutx/internal/server/models"
	"github.com/dmitrijs2005/valutx/internal/server/repositories/repomanager"
)

const DefaultAuditPageSize = 50

// AuditLogService reads a user's own security events.
type AuditLogService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewAuditLogService(db *sql.DB, rm repomanager.RepositoryManager, logger logging.Logger) *AuditLogService {
	return &AuditLogService{db: db, repomanager: rm, logger: logger.With("module", "audit_log_service")}
}

// List returns events newest first.
func (s *AuditLogService) List(ctx context.Context, userID string, page models.Page) ([]*models.AuditEvent, error) {
	ctx, span := tracer.Start(ctx, "AuditLogService.List")
	defer span.End()

	events, err := s.repomanager.Audit(s.db).ListByUser(ctx, userID, page.Normalize(DefaultAuditPageSize, MaxPageSize))
	if err != nil {
		return nil, failInternal(ctx, s.logger, span, "list audit events failed", err)
	}
	return events, nil
}
