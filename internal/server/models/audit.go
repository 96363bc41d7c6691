package models

import "time"

type AuditEventType string

const (
	EventSignup      AuditEventType = "SIGNUP"
	EventLogin       AuditEventType = "LOGIN"
	EventLoginFailed AuditEventType = "LOGIN_FAILED"
	EventKeyRotation AuditEventType = "KEY_ROTATION"
	EventItemCreate  AuditEventType = "ITEM_CREATE"
	EventItemUpdate  AuditEventType = "ITEM_UPDATE"
	EventItemDelete  AuditEventType = "ITEM_DELETE"
	EventExport      AuditEventType = "EXPORT"
)

type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// DefaultSeverity is the severity recorded for an event type.
func (t AuditEventType) DefaultSeverity() Severity {
	switch t {
	case EventItemDelete, EventLoginFailed, EventKeyRotation, EventExport:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// AuditEvent is one append-only security record.
type AuditEvent struct {
	ID        string
	UserID    string
	EventType AuditEventType
	Severity  Severity
	Details   string
	IPAddress string
	UserAgent string
	Timestamp time.Time
}
