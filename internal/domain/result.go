package domain

// RowErrorKind classifies a structured per-row import failure.
type RowErrorKind string

const (
	RowErrorUpsert   RowErrorKind = "upsert"
	RowErrorQuantity RowErrorKind = "quantity"
)

// RowError is a structured per-row mutation failure. Row errors never abort
// the batch; the row is counted as skipped and processing continues.
type RowError struct {
	Row     int          `json:"row"`
	Kind    RowErrorKind `json:"kind"`
	Message string       `json:"message"`
}

// ValidationResult aggregates a full validation pass over an upload. It is
// immutable once returned.
type ValidationResult struct {
	TotalRows         int               `json:"total_rows"`
	ValidRows         int               `json:"valid_rows"`
	WarningRows       int               `json:"warning_rows"`
	ErrorRows         int               `json:"error_rows"`
	SkippedRows       int               `json:"skipped_rows"`
	DuplicatesFound   int               `json:"duplicates_found"`
	ConflictsResolved int               `json:"conflicts_resolved"`
	EstimatedValue    float64           `json:"estimated_value"`
	Categories        []string          `json:"categories,omitempty"`
	Brands            []string          `json:"brands,omitempty"`
	Issues            []ValidationIssue `json:"issues,omitempty"`
	Rows              []*ProcessedRow   `json:"rows,omitempty"`
	Recommendations   []string          `json:"recommendations,omitempty"`
}

// ImportResult is the outcome of applying accepted rows to the catalog.
// Partial success is first-class: per-row errors are reported alongside the
// counts rather than failing the batch.
type ImportResult struct {
	Created           int        `json:"created"`
	Updated           int        `json:"updated"`
	Skipped           int        `json:"skipped"`
	Errors            []RowError `json:"errors,omitempty"`
	BackupID          *string    `json:"backup_id,omitempty"`
	TotalValue        float64    `json:"total_value"`
	NewCategories     []string   `json:"new_categories,omitempty"`
	NewBrands         []string   `json:"new_brands,omitempty"`
	SuppliersAffected int        `json:"suppliers_affected"`
}
