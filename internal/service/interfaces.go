package service

import (
	"context"

	"github.com/nxtleveltech1/MantisNXT-sub016/internal/domain"
	"github.com/nxtleveltech1/MantisNXT-sub016/internal/mapping"
)

// UploadRequest carries one already-decoded table plus its supplier context.
// Binary spreadsheet/CSV decoding happens upstream.
type UploadRequest struct {
	SupplierID string
	Filename   string
	FileSize   int64
	Headers    []string
	Rows       [][]any
}

// UploadResponse is the upload-phase output: the new session, a preview of
// the data, and the inferred mapping with its confidence ratio.
type UploadResponse struct {
	SessionID  string             `json:"session_id"`
	Headers    []string           `json:"headers"`
	SampleRows [][]string         `json:"sample_rows"`
	Suggested  mapping.Suggestion `json:"suggested"`
}

// ImportOptions are the per-run behavior switches.
type ImportOptions struct {
	SkipEmptyRows bool `json:"skip_empty_rows"`
	ValidateSKU   bool `json:"validate_sku"`
	NormalizeText bool `json:"normalize_text"`
	Backup        bool `json:"backup"`
	DryRun        bool `json:"dry_run"`
}

// ImportRequest drives the validate/import phase of a session. A nil or
// empty Mapping falls back to the mapping stored at upload time.
type ImportRequest struct {
	Mapping    domain.FieldMapping
	Resolution domain.ConflictResolution
	Options    ImportOptions
}

// ImportResponse bundles the outcome of one validate/import call. Import is
// nil for dry runs.
type ImportResponse struct {
	Session    *domain.UploadSession    `json:"session"`
	Validation *domain.ValidationResult `json:"validation"`
	Import     *domain.ImportResult     `json:"import,omitempty"`
}

// ImportServiceInterface defines the engine's operations.
// Used for dependency injection and stubbing in handler tests.
type ImportServiceInterface interface {
	// ProcessUpload creates a session from decoded table data.
	ProcessUpload(ctx context.Context, req UploadRequest) (*UploadResponse, error)
	// ProcessImport validates a session's data and, unless DryRun is set,
	// applies it to the catalog transactionally.
	ProcessImport(ctx context.Context, sessionID string, req ImportRequest) (*ImportResponse, error)
	// GetSession retrieves a session by id.
	GetSession(ctx context.Context, id string) (*domain.UploadSession, error)
}
