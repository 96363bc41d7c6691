package audit

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/valutx/internal/dbx"
	"github.com/dmitrijs2005/valutx/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, e *models.AuditEvent) error {
	query :=
		`INSERT INTO audit_logs (id, user_id, event_type, severity, details, ip_address, user_agent, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.UserID, string(e.EventType), string(e.Severity), e.Details, e.IPAddress, e.UserAgent, e.Timestamp)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, page models.Page) ([]*models.AuditEvent, error) {
	query :=
		`SELECT id, user_id, event_type, severity, details, ip_address, user_agent, timestamp
		 FROM audit_logs
		 WHERE user_id = $1
		 ORDER BY timestamp DESC, id DESC
		 LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, userID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to select audit events: %w", err)
	}
	defer rows.Close()

	result := make([]*models.AuditEvent, 0)
	for rows.Next() {
		e := &models.AuditEvent{}
		var eventType, severity string
		if err := rows.Scan(&e.ID, &e.UserID, &eventType, &severity, &e.Details, &e.IPAddress, &e.UserAgent, &e.Timestamp); err != nil {
			return nil, err
		}
		e.EventType = models.AuditEventType(eventType)
		e.Severity = models.Severity(severity)
		e.Timestamp = e.Timestamp.UTC()
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
