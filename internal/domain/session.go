package domain

import "time"

// SessionStatus is the lifecycle phase of an upload session.
type SessionStatus string

const (
	SessionUploading  SessionStatus = "uploading"
	SessionValidating SessionStatus = "validating"
	SessionImporting  SessionStatus = "importing"
	SessionCompleted  SessionStatus = "completed"
	SessionFailed     SessionStatus = "failed"
	SessionRollback   SessionStatus = "rollback"
)

// InProgress reports whether the session is in a non-terminal phase.
func (s SessionStatus) InProgress() bool {
	switch s {
	case SessionUploading, SessionValidating, SessionImporting:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is a legal lifecycle
// step. failed and rollback are reachable from any in-progress state.
func (s SessionStatus) CanTransition(next SessionStatus) bool {
	if next == SessionFailed || next == SessionRollback {
		return s.InProgress()
	}
	switch s {
	case SessionUploading:
		return next == SessionValidating
	case SessionValidating:
		// A dry run leaves the session at validating; a later real import
		// re-enters the same phase before moving on.
		return next == SessionValidating || next == SessionImporting
	case SessionImporting:
		return next == SessionCompleted
	}
	return false
}

// UploadSession is one upload-to-import workflow instance. The session
// service exclusively owns its lifecycle.
type UploadSession struct {
	ID          string            `json:"id"`
	SupplierID  string            `json:"supplier_id"`
	Filename    string            `json:"filename"`
	Status      SessionStatus     `json:"status"`
	FileSize    int64             `json:"file_size"`
	RowCount    int               `json:"row_count"`
	ColumnCount int               `json:"column_count"`
	ValidRows   int               `json:"valid_rows"`
	WarningRows int               `json:"warning_rows"`
	ErrorRows   int               `json:"error_rows"`
	SkippedRows int               `json:"skipped_rows"`
	Mapping     FieldMapping      `json:"mapping,omitempty"`
	Validation  *ValidationResult `json:"validation,omitempty"`
	Import      *ImportResult     `json:"import,omitempty"`
	BackupID    *string           `json:"backup_id,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}
