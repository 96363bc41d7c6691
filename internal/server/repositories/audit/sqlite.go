package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/valutx/internal/dbx"
	"github.com/dmitrijs2005/valutx/internal/server/models"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, e *models.AuditEvent) error {
	query :=
		`INSERT INTO audit_logs (id, user_id, event_type, severity, details, ip_address, user_agent, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.UserID, string(e.EventType), string(e.Severity), e.Details, e.IPAddress, e.UserAgent, e.Timestamp.UnixMilli())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListByUser(ctx context.Context, userID string, page models.Page) ([]*models.AuditEvent, error) {
	query :=
		`SELECT id, user_id, event_type, severity, details, ip_address, user_agent, timestamp
		 FROM audit_logs
		 WHERE user_id = ?
		 ORDER BY timestamp DESC, rowid DESC
		 LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, userID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to select audit events: %w", err)
	}
	defer rows.Close()

	result := make([]*models.AuditEvent, 0)
	for rows.Next() {
		e := &models.AuditEvent{}
		var eventType, severity string
		var ts int64
		if err := rows.Scan(&e.ID, &e.UserID, &eventType, &severity, &e.Details, &e.IPAddress, &e.UserAgent, &ts); err != nil {
			return nil, err
		}
		e.EventType = models.AuditEventType(eventType)
		e.Severity = models.Severity(severity)
		e.Timestamp = time.UnixMilli(ts).UTC()
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
