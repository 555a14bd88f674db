package domain

// RowStatus is the outcome of validating one row.
type RowStatus string

const (
	RowStatusValid   RowStatus = "valid"
	RowStatusWarning RowStatus = "warning"
	RowStatusError   RowStatus = "error"
	RowStatusSkipped RowStatus = "skipped"
)

// RowAction is what the conflict resolver decided to do with a row.
type RowAction string

const (
	ActionCreate RowAction = "create"
	ActionUpdate RowAction = "update"
	ActionSkip   RowAction = "skip"
)

// ProcessedRow is one source row after mapping, transformation and conflict
// resolution. Rows are immutable once the validation pass that produced them
// returns.
type ProcessedRow struct {
	ID             string            `json:"id"`
	RowNumber      int               `json:"row_number"` // 1-based data row
	Original       map[string]string `json:"original"`
	Fields         map[Field]any     `json:"fields"`
	Status         RowStatus         `json:"status"`
	Issues         []ValidationIssue `json:"issues,omitempty"`
	Action         RowAction         `json:"action,omitempty"`
	Existing       *Product          `json:"existing,omitempty"`
	ResolvedFields []Field           `json:"resolved_fields,omitempty"`
}

// AddIssue records an issue and re-derives the row status. Status is never
// set independently of the issue list.
func (r *ProcessedRow) AddIssue(issue ValidationIssue) {
	r.Issues = append(r.Issues, issue)
	r.Status = r.deriveStatus()
}

func (r *ProcessedRow) deriveStatus() RowStatus {
	status := RowStatusValid
	for _, is := range r.Issues {
		switch is.Severity {
		case SeverityError:
			return RowStatusError
		case SeverityWarning:
			status = RowStatusWarning
		}
	}
	return status
}

// HasError reports whether any issue carries error severity.
func (r *ProcessedRow) HasError() bool {
	for _, is := range r.Issues {
		if is.Severity == SeverityError {
			return true
		}
	}
	return false
}

// StringField returns a mapped field as a string, or "" when absent or nil.
func (r *ProcessedRow) StringField(f Field) string {
	if v, ok := r.Fields[f]; ok && v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// IntField returns a mapped field as an int along with a presence flag.
func (r *ProcessedRow) IntField(f Field) (int, bool) {
	if v, ok := r.Fields[f]; ok && v != nil {
		if n, ok := v.(int); ok {
			return n, true
		}
	}
	return 0, false
}

// FloatField returns a mapped field as a float64 along with a presence flag.
func (r *ProcessedRow) FloatField(f Field) (float64, bool) {
	if v, ok := r.Fields[f]; ok && v != nil {
		if n, ok := v.(float64); ok {
			return n, true
		}
	}
	return 0, false
}
