package domain

import "time"

// ImportBackup is a pre-mutation snapshot of the catalog records an import is
// about to overwrite. Snapshots are written before any mutation and are never
// modified afterwards; creates are not backed up.
type ImportBackup struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	SKUs      []string  `json:"skus"`
	Snapshot  []Product `json:"snapshot"`
	CreatedAt time.Time `json:"created_at"`
}
