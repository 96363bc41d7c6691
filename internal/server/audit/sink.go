// Package audit records security events. Emission is best effort: callers
// log a failed Emit and carry on with the operation that triggered it.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/valutx/internal/dbx"
	"github.com/dmitrijs2005/valutx/internal/server/models"
	"github.com/dmitrijs2005/valutx/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/valutx/internal/server/requestctx"
)

// Event is what services hand to a Sink. Severity defaults to the event
// type's severity and client details come from the context.
type Event struct {
	UserID   string
	Type     models.AuditEventType
	Severity models.Severity
	Details  string
}

type Sink interface {
	Emit(ctx context.Context, e Event) error
}

// RepositorySink appends events to the audit_logs table.
type RepositorySink struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
	now         func() time.Time
	newID       func() string
}

func NewRepositorySink(db dbx.DBTX, rm repomanager.RepositoryManager) *RepositorySink {
	return &RepositorySink{db: db, repomanager: rm, now: time.Now, newID: uuid.NewString}
}

func (s *RepositorySink) Emit(ctx context.Context, e Event) error {
	severity := e.Severity
	if severity == "" {
		severity = e.Type.DefaultSeverity()
	}
	client := requestctx.ClientFromContext(ctx)

	record := &models.AuditEvent{
		ID:        s.newID(),
		UserID:    e.UserID,
		EventType: e.Type,
		Severity:  severity,
		Details:   e.Details,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		Timestamp: s.now().UTC(),
	}

	if err := s.repomanager.Audit(s.db).Create(ctx, record); err != nil {
		return fmt.Errorf("emit %s: %w", e.Type, err)
	}
	return nil
}

// Discard drops every event.
type Discard struct{}

func (Discard) Emit(context.Context, Event) error { return nil }
