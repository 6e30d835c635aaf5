package notify

import "time"

// Severity classifies a notification for display.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Category classifies an audited action.
type Category string

const (
	CategoryCreate  Category = "create"
	CategoryUpdate  Category = "update"
	CategoryDelete  Category = "delete"
	CategoryRun     Category = "run"
	CategoryApprove Category = "approve"
	CategoryReject  Category = "reject"
	CategoryOther   Category = "other"
)

// severityFor maps an audit category to the severity of the toast it raises.
func severityFor(c Category) Severity {
	switch c {
	case CategoryCreate, CategoryRun, CategoryApprove:
		return SeveritySuccess
	case CategoryDelete, CategoryReject:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// Notification is a transient toast. AutoDismissAfter <= 0 means it stays
// until manually dismissed.
type Notification struct {
	ID               string        `json:"id"`
	Message          string        `json:"message"`
	Severity         Severity      `json:"severity"`
	CreatedAt        time.Time     `json:"createdAt"`
	AutoDismissAfter time.Duration `json:"autoDismissAfter"`
}

// AuditEntry is one record in the bounded, append-only activity log.
type AuditEntry struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
	Category  Category  `json:"category"`
	User      string    `json:"user"`
}

// mirrorRecord is the display projection of an audit entry persisted under
// the notifications key. It is derived state, never read back as truth.
type mirrorRecord struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	CreatedAt time.Time `json:"createdAt"`
}
